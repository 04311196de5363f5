package replication

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePSyncArgsFirstSync(t *testing.T) {
	replID, offset, err := ParsePSyncArgs([]string{"?", "-1"})
	require.NoError(t, err)
	assert.Equal(t, "", replID)
	assert.Equal(t, int64(-1), offset)
}

func TestParsePSyncArgsPartial(t *testing.T) {
	replID, offset, err := ParsePSyncArgs([]string{"8371b4fb1155b71f4a04d3e1bc3e18c4a990aeeb", "1000"})
	require.NoError(t, err)
	assert.Equal(t, "8371b4fb1155b71f4a04d3e1bc3e18c4a990aeeb", replID)
	assert.Equal(t, int64(1000), offset)
}

func TestDecidePSyncFirstSync(t *testing.T) {
	backlog := NewBacklog(0)
	full, offset := DecidePSync("", -1, "test-repl-id", backlog)
	assert.True(t, full)
	assert.Equal(t, uint64(0), offset)
}

func TestDecidePSyncReplIDMismatch(t *testing.T) {
	backlog := NewBacklog(0)
	full, offset := DecidePSync("old-repl-id", 100, "new-repl-id", backlog)
	assert.True(t, full)
	assert.Equal(t, uint64(0), offset)
}

func TestDecidePSyncPartial(t *testing.T) {
	backlog := NewBacklog(0)
	backlog.Add(0, []byte("SET key1 val1"))
	backlog.Add(14, []byte("SET key2 val2"))

	full, offset := DecidePSync("test-repl-id", 0, "test-repl-id", backlog)
	assert.False(t, full)
	assert.Equal(t, uint64(0), offset)
}

func TestDecidePSyncOffsetTooOld(t *testing.T) {
	backlog := NewBacklog(50)
	backlog.Add(0, []byte("12345678901234567890"))
	backlog.Add(20, []byte("12345678901234567890"))
	backlog.Add(40, []byte("12345678901234567890")) // evicts offset 0

	full, offset := DecidePSync("test-repl-id", 0, "test-repl-id", backlog)
	assert.True(t, full)
	assert.Equal(t, uint64(0), offset)
}
