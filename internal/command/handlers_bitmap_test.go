package command

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ridgedb/ridgedb/pkg/resp"
)

func TestSetBitRejectsOffsetAtAndBeyond2Pow32(t *testing.T) {
	c, table := newTestContext()

	reply, wasWrite := run(table, c, "SETBIT", "bm", "4294967295", "1")
	assert.Equal(t, resp.KindInt, reply.Kind, "offset 2^32-1 must succeed")
	assert.True(t, wasWrite)

	reply, wasWrite = run(table, c, "SETBIT", "bm", "4294967296", "1")
	assert.Equal(t, resp.KindError, reply.Kind, "offset 2^32 must be rejected")
	assert.Contains(t, reply.Str, "out of range")
	assert.False(t, wasWrite)
}

func TestGetBitRejectsOffsetAtAndBeyond2Pow32(t *testing.T) {
	c, table := newTestContext()
	run(table, c, "SETBIT", "bm", "0", "1")

	reply, _ := run(table, c, "GETBIT", "bm", "4294967295")
	assert.Equal(t, resp.KindInt, reply.Kind)

	reply, _ = run(table, c, "GETBIT", "bm", "4294967296")
	assert.Equal(t, resp.KindError, reply.Kind)
	assert.Contains(t, reply.Str, "out of range")
}
