package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridgedb/ridgedb/internal/cluster"
	"github.com/ridgedb/ridgedb/pkg/resp"
)

func TestDispatchProceedsWhenClusterDisabled(t *testing.T) {
	c, table := newTestContext()
	c.Cluster = cluster.NewRegistry(false)

	reply, wasWrite := run(table, c, "SET", "foo", "bar")
	assert.Equal(t, resp.KindStatus, reply.Kind)
	assert.True(t, wasWrite)
}

func TestDispatchMovedWhenSlotOwnedElsewhere(t *testing.T) {
	c, table := newTestContext()
	reg := cluster.NewRegistry(true)
	slot := cluster.KeySlot("foo")
	reg.AddNode(cluster.NewMasterNode("other", "10.0.0.9:6379"))
	reg.AssignSlotsToNode("other", []uint16{slot})
	c.Cluster = reg

	reply, wasWrite := run(table, c, "SET", "foo", "bar")
	require.Equal(t, resp.KindError, reply.Kind)
	assert.Contains(t, reply.Str, "MOVED")
	assert.False(t, wasWrite)
}

func TestDispatchProceedsWhenSlotOwnedLocally(t *testing.T) {
	c, table := newTestContext()
	reg := cluster.NewRegistry(true)
	slot := cluster.KeySlot("foo")
	reg.AssignSlotsToNode(reg.MyID(), []uint16{slot})
	c.Cluster = reg

	reply, wasWrite := run(table, c, "SET", "foo", "bar")
	assert.Equal(t, resp.KindStatus, reply.Kind)
	assert.True(t, wasWrite)
}

func TestDispatchClusterDownWhenSlotUnassigned(t *testing.T) {
	c, table := newTestContext()
	c.Cluster = cluster.NewRegistry(true)

	reply, wasWrite := run(table, c, "GET", "foo")
	require.Equal(t, resp.KindError, reply.Kind)
	assert.Contains(t, reply.Str, "CLUSTERDOWN")
	assert.False(t, wasWrite)
}

func TestDispatchSkipsRoutingForKeylessCommand(t *testing.T) {
	c, table := newTestContext()
	c.Cluster = cluster.NewRegistry(true)

	reply, _ := run(table, c, "CLUSTER", "MYID")
	assert.Equal(t, resp.KindBulk, reply.Kind)
}

func TestAskingArmsNextDispatchOnly(t *testing.T) {
	c, table := newTestContext()
	reg := cluster.NewRegistry(true)
	slot := cluster.KeySlot("foo")
	reg.AssignSlotsToNode(reg.MyID(), []uint16{slot})
	reg.SetSlotState(slot, cluster.Importing, "src")
	c.Cluster = reg

	var asking bool
	c.AskingPtr = &asking

	reply, _ := run(table, c, "ASKING")
	assert.Equal(t, resp.KindStatus, reply.Kind)
	assert.True(t, asking, "ASKING must arm the pointer immediately")

	// Simulate the connection's dispatch loop reading-then-resetting the
	// flag, as internal/server/conn.go's dispatch does.
	c.Asking = asking
	asking = false

	reply, wasWrite := run(table, c, "SET", "foo", "bar")
	assert.Equal(t, resp.KindStatus, reply.Kind)
	assert.True(t, wasWrite)
}
