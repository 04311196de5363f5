package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistryDisabled(t *testing.T) {
	r := NewRegistry(false)
	assert.False(t, r.Enabled())
	assert.Empty(t, r.AllNodes())
}

func TestNewRegistryEnabledSelfRegisters(t *testing.T) {
	r := NewRegistry(true)
	require.True(t, r.Enabled())
	me, ok := r.Node(r.MyID())
	require.True(t, ok)
	assert.True(t, me.IsMaster())
	assert.True(t, me.hasFlag(FlagMyself))
}

func TestAssignSlotsToNodeUpdatesBothMapAndNode(t *testing.T) {
	r := NewRegistry(true)
	r.AssignSlotsToNode(r.MyID(), []uint16{0, 1, 2})

	owner, ok := r.SlotNode(0)
	require.True(t, ok)
	assert.Equal(t, r.MyID(), owner)
	assert.True(t, r.OwnsSlot(1))
	assert.ElementsMatch(t, []uint16{0, 1, 2}, r.MySlots())
}

func TestDelSlotUnassignsFromOwner(t *testing.T) {
	r := NewRegistry(true)
	r.AssignSlotsToNode(r.MyID(), []uint16{5})
	r.DelSlot(5)
	_, ok := r.SlotNode(5)
	assert.False(t, ok)
	assert.False(t, r.OwnsSlot(5))
}

func TestBumpEpochIncrements(t *testing.T) {
	r := NewRegistry(true)
	assert.Equal(t, uint64(0), r.Epoch())
	assert.Equal(t, uint64(1), r.BumpEpoch())
	assert.Equal(t, uint64(2), r.BumpEpoch())
}

func TestSetEpochOnlyAdvances(t *testing.T) {
	r := NewRegistry(true)
	r.SetEpoch(10)
	assert.Equal(t, uint64(10), r.Epoch())
	r.SetEpoch(3)
	assert.Equal(t, uint64(10), r.Epoch(), "SetEpoch must not move the epoch backwards")
}

func TestRemoveNodeRefusesSelf(t *testing.T) {
	r := NewRegistry(true)
	err := r.RemoveNode(r.MyID())
	assert.Error(t, err)
	_, ok := r.Node(r.MyID())
	assert.True(t, ok, "self must still be registered after a refused removal")
}

func TestRemoveNodeOther(t *testing.T) {
	r := NewRegistry(true)
	r.AddNode(NewMasterNode("other", "10.0.0.2:6379"))
	require.NoError(t, r.RemoveNode("other"))
	_, ok := r.Node("other")
	assert.False(t, ok)
}

func TestReplicasOfMaster(t *testing.T) {
	r := NewRegistry(true)
	r.AddNode(NewReplicaNode("repl1", "10.0.0.3:6379", r.MyID()))
	reps := r.Replicas(r.MyID())
	require.Len(t, reps, 1)
	assert.Equal(t, "repl1", reps[0].ID)
}

func TestSlotStateDefaultsStable(t *testing.T) {
	r := NewRegistry(true)
	state, peer := r.GetSlotState(42)
	assert.Equal(t, Stable, state)
	assert.Empty(t, peer)
}

func TestSetSlotStateMigratingThenStable(t *testing.T) {
	r := NewRegistry(true)
	r.SetSlotState(7, Migrating, "peer-id")
	state, peer := r.GetSlotState(7)
	assert.Equal(t, Migrating, state)
	assert.Equal(t, "peer-id", peer)

	r.SetSlotState(7, Stable, "")
	state, _ = r.GetSlotState(7)
	assert.Equal(t, Stable, state)
}

func TestAllowedNodesRestrictsMeet(t *testing.T) {
	r := NewRegistry(true)
	nl, err := ParseNodeList("10.0.0.[1-5]:6379")
	require.NoError(t, err)
	r.SetAllowedNodes(&nl)

	assert.True(t, r.IsAddrAllowed("10.0.0.3:6379"))
	assert.False(t, r.IsAddrAllowed("10.0.0.9:6379"))
}

func TestIsAddrAllowedUnrestrictedByDefault(t *testing.T) {
	r := NewRegistry(true)
	assert.True(t, r.IsAddrAllowed("anything:1234"))
}

func TestSetMyAddr(t *testing.T) {
	r := NewRegistry(true)
	r.SetMyAddr("127.0.0.1:7000")
	me, ok := r.Node(r.MyID())
	require.True(t, ok)
	assert.Equal(t, "127.0.0.1:7000", me.Addr)
}
