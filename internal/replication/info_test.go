package replication

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfoDefaultsToMaster(t *testing.T) {
	info := NewInfo()
	assert.True(t, info.IsMaster())
	assert.False(t, info.IsReplica())
	assert.Equal(t, 0, info.ReplicaCount())
	assert.Len(t, info.ReplID(), 40)
}

func TestInfoSetReplica(t *testing.T) {
	info := NewInfo()
	info.SetReplica("127.0.0.1", 6379)

	assert.False(t, info.IsMaster())
	assert.True(t, info.IsReplica())

	host, port := info.MasterAddr()
	assert.Equal(t, "127.0.0.1", host)
	assert.Equal(t, 6379, port)
	assert.Equal(t, Disconnected, info.ReplicaState())
}

func TestInfoOffsetManagement(t *testing.T) {
	info := NewInfo()
	assert.Equal(t, uint64(0), info.Offset())

	info.IncrementOffset(100)
	assert.Equal(t, uint64(100), info.Offset())

	info.IncrementOffset(50)
	assert.Equal(t, uint64(150), info.Offset())

	info.SetOffset(200)
	assert.Equal(t, uint64(200), info.Offset())
}

func TestInfoReplicaManagement(t *testing.T) {
	info := NewInfo()
	info.AddReplica(&ReplicaInfo{ID: 1, Addr: "127.0.0.1:6380"})
	require.Equal(t, 1, info.ReplicaCount())

	info.UpdateReplicaAck(1, 100)
	replicas := info.Replicas()
	require.Len(t, replicas, 1)
	assert.Equal(t, uint64(100), replicas[0].AckOffset)

	info.RemoveReplica(1)
	assert.Equal(t, 0, info.ReplicaCount())
}

func TestGenerateReplIDsAreDistinct(t *testing.T) {
	id1 := generateReplID()
	id2 := generateReplID()
	assert.Len(t, id1, 40)
	assert.NotEqual(t, id1, id2)
}
