// Package metrics exposes a Prometheus /metrics endpoint and a /healthz
// liveness endpoint on their own HTTP listener, separate from the RESP
// port (§ ambient stack, supplemented beyond spec.md: the distilled spec
// has no observability surface, but every teacher deployment ships one).
//
// Grounded on the teacher's own metric-exposing code: there is no
// Prometheus exporter in cc-backend itself, so the shape (a
// prometheus.Collector whose Collect method reads live gauges off a
// running server on each scrape, registered into a prometheus.Registry
// and served over promhttp) follows the custom-Collector pattern in the
// pack's other_examples/4956b678_canonical-redis_exporter (Describe/
// Collect gathering server-side stats on demand, not pre-registered
// gauges updated by hand at each call site).
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Source is the slice of live counters a running instance can report.
// internal/server.Server, internal/replication.Master and
// internal/cluster.Registry each implement the part of this they own;
// cmd/ridgedb-server wires the three together into one Source.
type Source interface {
	// ConnectedClients is the number of open RESP connections.
	ConnectedClients() int
	// Keys returns the key count of database index db, or 0 if db is
	// out of range.
	Keys(db int) int
	// NumDB is the configured database count.
	NumDB() int
	// ReplicaCount is the number of attached replica streams (0 on a
	// standalone instance or one with no replication.Master wired).
	ReplicaCount() int
	// ReplicationOffset is the master replication offset in bytes (0 on
	// a standalone instance).
	ReplicationOffset() int
	// BacklogBytes is the current size in bytes of the replication
	// backlog ring buffer.
	BacklogBytes() int
	// ClusterEnabled reports whether cluster mode is on.
	ClusterEnabled() bool
	// ClusterSize is the number of known cluster nodes (0 outside
	// cluster mode).
	ClusterSize() int
	// ClusterEpoch is the current cluster config epoch.
	ClusterEpoch() uint64
}

// namespace prefixes every exported metric name, the same convention
// the pack's redis_exporter example uses for its Namespace option.
const namespace = "ridgedb"

var (
	connectedClientsDesc = prometheus.NewDesc(
		namespace+"_connected_clients", "Number of client connections.", nil, nil)
	dbKeysDesc = prometheus.NewDesc(
		namespace+"_db_keys", "Number of keys in a database.", []string{"db"}, nil)
	replicaCountDesc = prometheus.NewDesc(
		namespace+"_connected_replicas", "Number of connected replicas.", nil, nil)
	replOffsetDesc = prometheus.NewDesc(
		namespace+"_master_repl_offset", "Master replication offset in bytes.", nil, nil)
	backlogBytesDesc = prometheus.NewDesc(
		namespace+"_repl_backlog_bytes", "Replication backlog size in bytes.", nil, nil)
	clusterEnabledDesc = prometheus.NewDesc(
		namespace+"_cluster_enabled", "Whether cluster mode is enabled (1) or not (0).", nil, nil)
	clusterSizeDesc = prometheus.NewDesc(
		namespace+"_cluster_known_nodes", "Number of known cluster nodes.", nil, nil)
	clusterEpochDesc = prometheus.NewDesc(
		namespace+"_cluster_current_epoch", "Current cluster config epoch.", nil, nil)
	upDesc = prometheus.NewDesc(
		namespace+"_up", "Always 1 while the collector can reach its source.", nil, nil)
)

// Collector adapts a Source to prometheus.Collector, gathering fresh
// values on every scrape rather than tracking a pre-registered gauge
// per stat, the same on-demand-Collect design the redis_exporter
// reference uses against a live Redis INFO reply.
type Collector struct {
	src Source
}

// NewCollector returns a Collector reading from src.
func NewCollector(src Source) *Collector {
	return &Collector{src: src}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- connectedClientsDesc
	ch <- dbKeysDesc
	ch <- replicaCountDesc
	ch <- replOffsetDesc
	ch <- backlogBytesDesc
	ch <- clusterEnabledDesc
	ch <- clusterSizeDesc
	ch <- clusterEpochDesc
	ch <- upDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(upDesc, prometheus.GaugeValue, 1)
	ch <- prometheus.MustNewConstMetric(connectedClientsDesc, prometheus.GaugeValue, float64(c.src.ConnectedClients()))

	for db := 0; db < c.src.NumDB(); db++ {
		ch <- prometheus.MustNewConstMetric(dbKeysDesc, prometheus.GaugeValue,
			float64(c.src.Keys(db)), strconv.Itoa(db))
	}

	ch <- prometheus.MustNewConstMetric(replicaCountDesc, prometheus.GaugeValue, float64(c.src.ReplicaCount()))
	ch <- prometheus.MustNewConstMetric(replOffsetDesc, prometheus.GaugeValue, float64(c.src.ReplicationOffset()))
	ch <- prometheus.MustNewConstMetric(backlogBytesDesc, prometheus.GaugeValue, float64(c.src.BacklogBytes()))

	clusterEnabled := 0.0
	if c.src.ClusterEnabled() {
		clusterEnabled = 1.0
	}
	ch <- prometheus.MustNewConstMetric(clusterEnabledDesc, prometheus.GaugeValue, clusterEnabled)
	ch <- prometheus.MustNewConstMetric(clusterSizeDesc, prometheus.GaugeValue, float64(c.src.ClusterSize()))
	ch <- prometheus.MustNewConstMetric(clusterEpochDesc, prometheus.GaugeValue, float64(c.src.ClusterEpoch()))
}
