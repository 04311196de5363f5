package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	clients      int
	dbKeys       []int
	replicas     int
	replOffset   int
	backlogBytes int
	clusterOn    bool
	clusterSize  int
	clusterEpoch uint64
}

func (f *fakeSource) ConnectedClients() int  { return f.clients }
func (f *fakeSource) Keys(db int) int        { return f.dbKeys[db] }
func (f *fakeSource) NumDB() int             { return len(f.dbKeys) }
func (f *fakeSource) ReplicaCount() int      { return f.replicas }
func (f *fakeSource) ReplicationOffset() int { return f.replOffset }
func (f *fakeSource) BacklogBytes() int      { return f.backlogBytes }
func (f *fakeSource) ClusterEnabled() bool   { return f.clusterOn }
func (f *fakeSource) ClusterSize() int       { return f.clusterSize }
func (f *fakeSource) ClusterEpoch() uint64   { return f.clusterEpoch }

func TestCollectorGathersAllMetrics(t *testing.T) {
	src := &fakeSource{
		clients:      3,
		dbKeys:       []int{10, 0},
		replicas:     2,
		replOffset:   1024,
		backlogBytes: 4096,
		clusterOn:    true,
		clusterSize:  3,
		clusterEpoch: 7,
	}

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewCollector(src)))

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"ridgedb_up",
		"ridgedb_connected_clients",
		"ridgedb_db_keys",
		"ridgedb_connected_replicas",
		"ridgedb_master_repl_offset",
		"ridgedb_repl_backlog_bytes",
		"ridgedb_cluster_enabled",
		"ridgedb_cluster_known_nodes",
		"ridgedb_cluster_current_epoch",
	} {
		assert.True(t, names[want], "missing metric family %s", want)
	}
}

func TestCollectorConnectedClientsValue(t *testing.T) {
	src := &fakeSource{clients: 5, dbKeys: []int{0}}
	c := NewCollector(src)

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(c))
	out, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range out {
		if f.GetName() == "ridgedb_connected_clients" {
			found = true
			require.Len(t, f.Metric, 1)
			assert.Equal(t, float64(5), f.Metric[0].GetGauge().GetValue())
		}
	}
	assert.True(t, found)
}

func TestCollectorDBKeysLabeledPerDB(t *testing.T) {
	src := &fakeSource{dbKeys: []int{10, 20, 30}}
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewCollector(src)))

	out, err := reg.Gather()
	require.NoError(t, err)

	var dbFamily string
	for _, f := range out {
		if f.GetName() == "ridgedb_db_keys" {
			require.Len(t, f.Metric, 3)
			for _, m := range f.Metric {
				dbFamily += m.GetLabel()[0].GetValue() + ":"
			}
		}
	}
	assert.True(t, strings.Contains(dbFamily, "0:") && strings.Contains(dbFamily, "1:") && strings.Contains(dbFamily, "2:"))
}
