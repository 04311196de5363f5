package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ridgedb/ridgedb/internal/command"
	"github.com/ridgedb/ridgedb/internal/replication"
	"github.com/ridgedb/ridgedb/internal/store"
	"github.com/ridgedb/ridgedb/pkg/log"
)

// replController implements command.ReplicationController, the small
// interface handlers_replication.go documents as needing "an adapter
// built where both internal/replication and internal/server are
// visible" — that place is this binary, the only one that imports both
// replication.Master and replication.Replica concretely.
//
// It owns the toggle between the two roles REPLICAOF switches between:
// a Master (always present, accumulating backlog even with zero
// replicas attached) and an optional Replica goroutine streaming from
// another instance. REPLICAOF NO ONE tears the Replica down and
// resumes reporting as master, matching spec.md §4.8's table.
type replController struct {
	mu sync.Mutex

	master     *replication.Master
	ks         *store.Keyspace
	table      *command.Table
	listenPort int

	replica *replication.Replica
	cancel  context.CancelFunc
}

func newReplController(master *replication.Master, ks *store.Keyspace, table *command.Table, listenPort int) *replController {
	return &replController{master: master, ks: ks, table: table, listenPort: listenPort}
}

func (rc *replController) stopReplicaLocked() {
	if rc.replica != nil {
		rc.replica.Stop()
	}
	if rc.cancel != nil {
		rc.cancel()
	}
	rc.replica, rc.cancel = nil, nil
}

// ReplicaOf implements command.ReplicationController.
func (rc *replController) ReplicaOf(host, port string) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if strings.EqualFold(host, "no") && strings.EqualFold(port, "one") {
		rc.stopReplicaLocked()
		log.Infof("replication: promoted back to master")
		return nil
	}

	p, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("invalid master port %q", port)
	}

	rc.stopReplicaLocked()

	info := replication.NewInfo()
	replica := replication.NewReplica(host, p, rc.listenPort, info, rc.ks, rc.table)
	ctx, cancel := context.WithCancel(context.Background())
	rc.replica, rc.cancel = replica, cancel

	// Start attempts exactly one handshake+stream session per call (its
	// own doc comment asks callers wanting reconnect to loop it); this
	// loop supplies spec.md §6.5's "Network errors ... retry with
	// backoff" on top, stopping as soon as ctx is cancelled by a later
	// ReplicaOf/stopReplicaLocked call.
	go func() {
		backoff := time.Second
		const maxBackoff = 30 * time.Second
		for {
			err := replica.Start(ctx)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				log.Warnf("replication: session with %s:%d ended: %v, retrying in %s", host, p, err, backoff)
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < maxBackoff {
				backoff *= 2
			}
		}
	}()

	log.Infof("replication: replicating from %s:%d", host, p)
	return nil
}

// Wait implements command.ReplicationController.
func (rc *replController) Wait(n int, timeout time.Duration) int {
	rc.mu.Lock()
	master := rc.master
	rc.mu.Unlock()
	return master.Wait(n, timeout)
}

// Role implements command.ReplicationController.
func (rc *replController) Role() (string, uint64) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.replica != nil {
		return "slave", rc.replica.Offset()
	}
	return "master", rc.master.Info.Offset()
}

// snapshotProvider adapts aof.FullSyncFrames (a free function) to
// replication.SnapshotProvider (an interface), the same free-function-
// to-interface shim the rest of this binary's wiring needs since
// internal/replication can't import internal/aof directly (see
// replication.SnapshotProvider's doc comment).
type snapshotProvider struct {
	fullSync func(ks *store.Keyspace) ([]byte, error)
	ks       *store.Keyspace
}

func (p snapshotProvider) FullSyncFrames() ([]byte, error) { return p.fullSync(p.ks) }
