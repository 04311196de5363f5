package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFlagsRoundTrip(t *testing.T) {
	n := NewMasterNode("abc", "10.0.0.1:6379")
	n.AddFlag(FlagMyself)
	flags := ParseFlags(n.flagsString())
	assert.ElementsMatch(t, []NodeFlag{FlagMaster, FlagMyself}, flags)
}

func TestNodeAddRemoveFlag(t *testing.T) {
	n := NewNode("id1", "")
	n.AddFlag(FlagFail)
	assert.True(t, n.IsFailed())
	n.RemoveFlag(FlagFail)
	assert.False(t, n.IsFailed())
}

func TestNodeSlotRangesCompresses(t *testing.T) {
	n := NewMasterNode("id1", "127.0.0.1:7000")
	for _, s := range []uint16{0, 1, 2, 5, 6, 10} {
		n.AddSlot(s)
	}
	ranges := n.SlotRanges()
	assert.Equal(t, []SlotRange{{0, 2}, {5, 6}, {10, 10}}, ranges)
}

func TestNodeSlotRangesEmpty(t *testing.T) {
	n := NewNode("id1", "")
	assert.Nil(t, n.SlotRanges())
}

func TestToClusterNodesLineFormat(t *testing.T) {
	n := NewMasterNode("abcd1234", "127.0.0.1:7000")
	n.AddFlag(FlagMyself)
	n.AddSlotRange(0, 5460)
	line := n.ToClusterNodesLine()
	assert.Contains(t, line, "abcd1234 127.0.0.1:7000")
	assert.Contains(t, line, "master,myself")
	assert.Contains(t, line, "- 0 0 0 connected 0-5460")
}

func TestToClusterNodesLineNoAddr(t *testing.T) {
	n := NewNode("id1", "")
	line := n.ToClusterNodesLine()
	assert.Contains(t, line, ":0")
}

func TestReplicaNodeMasterID(t *testing.T) {
	n := NewReplicaNode("repl1", "127.0.0.1:7001", "abcd1234")
	assert.True(t, n.IsReplica())
	assert.Equal(t, "abcd1234", n.MasterID)
}
