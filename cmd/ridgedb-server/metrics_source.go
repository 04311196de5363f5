package main

import (
	"github.com/ridgedb/ridgedb/internal/cluster"
	"github.com/ridgedb/ridgedb/internal/replication"
	"github.com/ridgedb/ridgedb/internal/server"
)

// instanceMetrics satisfies internal/metrics.Source by delegating
// across the three concrete types that together own the figures it
// reports. internal/metrics itself stays ignorant of server/
// replication/cluster (see its Source doc comment); this binary is the
// one place all three are already wired together, so the composite
// lives here instead of forcing an import-time dependency onto
// internal/metrics.
type instanceMetrics struct {
	srv     *server.Server
	master  *replication.Master
	cluster *cluster.Registry
}

func (m *instanceMetrics) ConnectedClients() int  { return m.srv.ConnectedClients() }
func (m *instanceMetrics) Keys(db int) int        { return m.srv.Keys(db) }
func (m *instanceMetrics) NumDB() int             { return m.srv.NumDB() }
func (m *instanceMetrics) ReplicaCount() int      { return m.master.ReplicaCount() }
func (m *instanceMetrics) ReplicationOffset() int { return int(m.master.Offset()) }
func (m *instanceMetrics) BacklogBytes() int      { return m.master.BacklogBytes() }

func (m *instanceMetrics) ClusterEnabled() bool {
	return m.cluster != nil && m.cluster.Enabled()
}

func (m *instanceMetrics) ClusterSize() int {
	if m.cluster == nil {
		return 0
	}
	return m.cluster.Size()
}

func (m *instanceMetrics) ClusterEpoch() uint64 {
	if m.cluster == nil {
		return 0
	}
	return m.cluster.Epoch()
}
