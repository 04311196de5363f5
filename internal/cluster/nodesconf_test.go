package cluster

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadNodesConfRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodes.conf")

	r1 := NewRegistry(true)
	r1.SetMyAddr("127.0.0.1:7000")
	r1.AssignSlotsToNode(r1.MyID(), []uint16{0, 1, 2, 100})
	r1.AddNode(NewReplicaNode("repl1", "127.0.0.1:7001", r1.MyID()))
	r1.BumpEpoch()
	r1.BumpEpoch()

	require.NoError(t, r1.SaveNodesConf(path))

	r2 := NewRegistry(true)
	require.NoError(t, r2.LoadNodesConf(path))

	me, ok := r2.Node(r1.MyID())
	require.True(t, ok)
	assert.Equal(t, "127.0.0.1:7000", me.Addr)
	assert.True(t, me.IsMaster())
	assert.ElementsMatch(t, []uint16{0, 1, 2, 100}, me.SortedSlots())

	repl, ok := r2.Node("repl1")
	require.True(t, ok)
	assert.True(t, repl.IsReplica())
	assert.Equal(t, r1.MyID(), repl.MasterID)

	assert.Equal(t, r1.Epoch(), r2.Epoch())
}

func TestLoadNodesConfMissingFileIsNotError(t *testing.T) {
	r := NewRegistry(true)
	err := r.LoadNodesConf(filepath.Join(t.TempDir(), "does-not-exist.conf"))
	assert.NoError(t, err)
}

func TestSaveNodesConfDisabledIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodes.conf")
	r := NewRegistry(false)
	require.NoError(t, r.SaveNodesConf(path))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
