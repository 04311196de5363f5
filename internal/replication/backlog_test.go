package replication

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBacklogBasic(t *testing.T) {
	b := NewBacklog(0)
	b.Add(0, []byte("SET key1 value1"))
	b.Add(15, []byte("SET key2 value2"))

	assert.Equal(t, 2, b.Len())
	assert.False(t, b.Len() == 0)
}

func TestBacklogGetFromOffset(t *testing.T) {
	b := NewBacklog(0)
	b.Add(0, []byte("SET key1 value1"))
	b.Add(15, []byte("SET key2 value2"))
	b.Add(30, []byte("SET key3 value3"))

	cmds, ok := b.GetFromOffset(15)
	require.True(t, ok)
	assert.Len(t, cmds, 2)

	cmds, ok = b.GetFromOffset(0)
	require.True(t, ok)
	assert.Len(t, cmds, 3)

	cmds, ok = b.GetFromOffset(30)
	require.True(t, ok)
	assert.Len(t, cmds, 1)
}

func TestBacklogEviction(t *testing.T) {
	b := NewBacklog(50)
	b.Add(0, []byte("12345678901234567890"))  // 20 bytes
	b.Add(20, []byte("12345678901234567890")) // 20 bytes
	b.Add(40, []byte("12345678901234567890")) // 20 bytes, should evict first

	assert.LessOrEqual(t, b.Len(), 2)
	assert.LessOrEqual(t, b.Size(), 50)

	_, ok := b.GetFromOffset(0)
	assert.False(t, ok)

	_, ok = b.GetFromOffset(20)
	assert.True(t, ok)
}

func TestBacklogClear(t *testing.T) {
	b := NewBacklog(0)
	b.Add(0, []byte("SET key1 value1"))
	b.Add(15, []byte("SET key2 value2"))
	require.Equal(t, 2, b.Len())

	b.Clear()
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, uint64(0), b.FirstOffset())
}
