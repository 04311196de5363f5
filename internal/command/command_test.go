package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridgedb/ridgedb/internal/store"
	"github.com/ridgedb/ridgedb/internal/txn"
	"github.com/ridgedb/ridgedb/pkg/resp"
)

func newTestContext() (*Context, *Table) {
	table := NewTable()
	dbIndex := 0
	ctx := &Context{
		Keyspace: store.NewKeyspace(2),
		DBIndex:  &dbIndex,
		Txn:      txn.NewState(),
		NowMS:    func() uint64 { return 0 },
		Table:    table,
	}
	return ctx, table
}

func run(t *Table, c *Context, args ...string) (resp.Value, bool) {
	return t.Dispatch(context.Background(), c, args)
}

func TestDispatchUnknownCommand(t *testing.T) {
	c, table := newTestContext()
	reply, wasWrite := run(table, c, "NOTACOMMAND")
	assert.Equal(t, resp.KindError, reply.Kind)
	assert.False(t, wasWrite)
}

func TestDispatchArityValidation(t *testing.T) {
	c, table := newTestContext()
	reply, _ := run(table, c, "GET")
	assert.Equal(t, resp.KindError, reply.Kind)
	assert.Contains(t, reply.Str, "wrong number of arguments")
}

func TestDispatchSetGetRoundTrip(t *testing.T) {
	c, table := newTestContext()
	reply, wasWrite := run(table, c, "SET", "foo", "bar")
	require.Equal(t, resp.KindStatus, reply.Kind)
	assert.True(t, wasWrite)

	reply, wasWrite = run(table, c, "GET", "foo")
	assert.Equal(t, "bar", string(reply.Bulk))
	assert.False(t, wasWrite)
}

func TestDispatchWrongTypePropagates(t *testing.T) {
	c, table := newTestContext()
	run(table, c, "SET", "foo", "bar")
	reply, wasWrite := run(table, c, "LPUSH", "foo", "x")
	assert.Equal(t, resp.KindError, reply.Kind)
	assert.Contains(t, reply.Str, "WRONGTYPE")
	assert.False(t, wasWrite)
}

func TestDispatchNonWriteCommandReportsNoWrite(t *testing.T) {
	c, table := newTestContext()
	run(table, c, "SET", "foo", "bar")
	_, wasWrite := run(table, c, "GET", "foo")
	assert.False(t, wasWrite)
}

func TestMultiQueuesAndExecRuns(t *testing.T) {
	c, table := newTestContext()
	reply, _ := run(table, c, "MULTI")
	assert.Equal(t, resp.Status("OK"), reply)

	reply, _ = run(table, c, "SET", "a", "1")
	assert.Equal(t, "QUEUED", reply.Str)

	reply, _ = run(table, c, "INCR", "a")
	assert.Equal(t, "QUEUED", reply.Str)

	reply, _ = run(table, c, "EXEC")
	require.Equal(t, resp.KindArray, reply.Kind)
	require.Len(t, reply.Array, 2)
	assert.Equal(t, resp.Status("OK"), reply.Array[0])
	assert.Equal(t, int64(2), reply.Array[1].Int)
}

func TestWatchAbortsExecOnChange(t *testing.T) {
	c, table := newTestContext()
	run(table, c, "SET", "k", "1")
	run(table, c, "WATCH", "k")
	run(table, c, "MULTI")
	run(table, c, "GET", "k")

	other, _ := newTestContext()
	other.Keyspace = c.Keyspace
	run(table, other, "SET", "k", "2")

	reply, _ := run(table, c, "EXEC")
	assert.True(t, reply.IsNilArray())
}

func TestDiscardWithoutMultiErrors(t *testing.T) {
	c, table := newTestContext()
	reply, _ := run(table, c, "DISCARD")
	assert.Equal(t, resp.KindError, reply.Kind)
}

func TestExecPropagatesEachQueuedWrite(t *testing.T) {
	c, table := newTestContext()
	var propagated [][]string
	c.Propagate = func(db int, args []string) {
		propagated = append(propagated, append([]string{}, args...))
	}

	run(table, c, "MULTI")
	run(table, c, "SET", "a", "1")
	run(table, c, "GET", "a")
	run(table, c, "INCR", "a")
	reply, wasWrite := run(table, c, "EXEC")

	require.Equal(t, resp.KindArray, reply.Kind)
	assert.False(t, wasWrite, "EXEC itself is not write-classified; its queued writes propagate individually")
	require.Len(t, propagated, 2, "only the two write commands (SET, INCR) should propagate, not GET")
	assert.Equal(t, []string{"SET", "a", "1"}, propagated[0])
	assert.Equal(t, []string{"INCR", "a"}, propagated[1])
}
