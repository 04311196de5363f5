package replication

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ridgedb/ridgedb/pkg/log"
	"github.com/ridgedb/ridgedb/pkg/resp"
)

// Stream is a master's handle to one attached replica's outbound byte
// pipe — the replication analogue of internal/pubsub.Subscriber. The
// connection layer ranges over Messages() and writes each frame
// verbatim to the replica's socket, mirroring conn.go's subscriber push
// loop.
type Stream struct {
	id        uint64
	ch        chan []byte
	ackOffset atomic.Uint64
	dropped   atomic.Bool
}

func (s *Stream) ID() uint64                { return s.id }
func (s *Stream) Messages() <-chan []byte   { return s.ch }
func (s *Stream) AckOffset() uint64         { return s.ackOffset.Load() }
func (s *Stream) setAck(offset uint64)      { s.ackOffset.Store(offset) }

// Master fans out committed writes to every attached replica stream and
// to the partial-resync backlog, implementing internal/server's
// Propagator interface. One Master exists per instance; until at least
// one replica attaches, Propagate only advances the offset and fills the
// backlog, so a standalone instance accumulates backlog for a replica
// that may connect later.
//
// Grounded on original_source/src/replication/propagation.rs's
// CommandPropagator (add_replica/remove_replica/propagate), translated
// from its per-replica tokio::spawn fire-and-forget send into a
// buffered channel per Stream so a slow replica cannot block the
// propagating writer — the backlog remains the sole bounded buffer, per
// spec.md §5's "Master never blocks on a slow replica beyond
// best-effort send".
type Master struct {
	Info    *Info
	backlog *Backlog

	mu      sync.Mutex
	streams map[uint64]*Stream
	nextID  atomic.Uint64

	lastDB int
	haveDB bool

	snapshot SnapshotProvider
}

// streamBufferSize bounds the per-replica outbound channel; a replica
// that falls this far behind has each new frame dropped (and logged)
// rather than stalling the propagator, matching the backlog itself
// favoring bounded memory over unbounded buffering.
const streamBufferSize = 4096

// NewMaster creates a Master with its own replication Info and backlog.
func NewMaster(backlogSize int) *Master {
	return &Master{
		Info:    NewInfo(),
		backlog: NewBacklog(backlogSize),
		streams: make(map[uint64]*Stream),
	}
}

// Backlog exposes the partial-resync buffer for PSYNC handling.
func (m *Master) Backlog() *Backlog { return m.backlog }

// Offset reports the current master replication offset, used by
// internal/metrics' collector.
func (m *Master) Offset() uint64 { return m.Info.Offset() }

// BacklogBytes reports the current size in bytes of the partial-resync
// buffer, used by internal/metrics' collector.
func (m *Master) BacklogBytes() int { return m.backlog.Size() }

// SnapshotProvider supplies the full-resync payload for a replica whose
// PSYNC offset isn't covered by the backlog. internal/aof.FullSyncFrames
// satisfies this; kept as an interface so internal/replication has no
// import-time dependency on internal/aof.
type SnapshotProvider interface {
	FullSyncFrames() ([]byte, error)
}

// SetSnapshotProvider attaches the full-resync data source; nil (the
// zero value) means full resync sends an empty payload, which is only
// correct for a brand-new, still-empty keyspace.
func (m *Master) SetSnapshotProvider(p SnapshotProvider) { m.snapshot = p }

// FullSyncPayload returns the current full-resync payload, or nil if no
// SnapshotProvider is attached.
func (m *Master) FullSyncPayload() ([]byte, error) {
	if m.snapshot == nil {
		return nil, nil
	}
	return m.snapshot.FullSyncFrames()
}

// Attach registers a new replica stream, used once a connection's PSYNC
// has been answered (full or partial) and the socket is ready to
// receive the live command stream.
func (m *Master) Attach(addr string) *Stream {
	s := &Stream{id: m.nextID.Add(1), ch: make(chan []byte, streamBufferSize)}
	m.mu.Lock()
	m.streams[s.id] = s
	m.mu.Unlock()
	m.Info.AddReplica(&ReplicaInfo{ID: s.id, Addr: addr, LastInteraction: time.Now()})
	return s
}

// Detach removes a replica stream on disconnect and closes its outbound
// channel, ending startReplicaPushLoop's range over Messages(). Safe to
// call more than once for the same Stream (ReapStale and a connection's
// own cleanup can race on the same disconnect).
func (m *Master) Detach(s *Stream) {
	m.mu.Lock()
	delete(m.streams, s.id)
	m.mu.Unlock()
	m.Info.RemoveReplica(s.id)
	if s.dropped.CompareAndSwap(false, true) {
		close(s.ch)
	}
}

// Ack records a replica's REPLCONF ACK <offset>.
func (m *Master) Ack(s *Stream, offset uint64) {
	s.setAck(offset)
	m.Info.UpdateReplicaAck(s.id, offset)
}

// Propagate builds the exact wire bytes for one committed write —
// SELECT-prefixed whenever db differs from the last one propagated,
// identically to internal/aof.Writer.Append so the AOF, the backlog,
// and every replica observe the same byte sequence at the same offset,
// per spec.md §7's "single total order" invariant — assigns it the next
// offset range, pushes it to the backlog, and fans it out non-blockingly
// to every attached stream.
func (m *Master) Propagate(db int, args []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var frame []byte
	if !m.haveDB || db != m.lastDB {
		frame = append(frame, resp.EncodeRequest("SELECT", strconv.Itoa(db))...)
		m.lastDB = db
		m.haveDB = true
	}
	frame = append(frame, resp.EncodeRequest(args...)...)

	offsetBefore := m.Info.Offset()
	m.Info.IncrementOffset(uint64(len(frame)))
	m.backlog.Add(offsetBefore, frame)

	for _, s := range m.streams {
		select {
		case s.ch <- frame:
		default:
			log.Warnf("replication: replica stream %d is backed up, dropping a frame", s.id)
		}
	}
}

// Wait implements the WAIT command: blocks (bounded by timeout) until
// at least n replicas have acknowledged at least the current master
// offset, returning the count actually reached. A timeout of 0 checks
// once without waiting, per spec.md §4.8's "WAIT n t_ms ... return value
// is the count reached".
func (m *Master) Wait(n int, timeout time.Duration) int {
	target := m.Info.Offset()
	deadline := time.Now().Add(timeout)
	for {
		reached := 0
		for _, r := range m.Info.Replicas() {
			if r.AckOffset >= target {
				reached++
			}
		}
		if reached >= n || timeout <= 0 || time.Now().After(deadline) {
			return reached
		}
		time.Sleep(20 * time.Millisecond)
	}
}

// ReplicaCount reports how many replica streams are currently attached.
func (m *Master) ReplicaCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.streams)
}

// ReplID reports this master's current replication id.
func (m *Master) ReplID() string { return m.Info.ReplID() }

// Decide wraps DecidePSync against this master's own replication id and
// backlog, the form internal/server's PSYNC handling calls directly.
func (m *Master) Decide(replicaReplID string, replicaOffset int64) (fullResync bool, fromOffset uint64) {
	return DecidePSync(replicaReplID, replicaOffset, m.ReplID(), m.backlog)
}

// BacklogFrom serves the partial-resync tail for a PSYNC CONTINUE.
func (m *Master) BacklogFrom(offset uint64) ([][]byte, bool) {
	return m.backlog.GetFromOffset(offset)
}

// ReapStale closes every attached stream that hasn't ACKed within
// maxAge, so a replica whose connection died without a clean FIN
// doesn't hold a backlog/Info slot forever. Intended to be driven by
// internal/server's Scheduler.RegisterFunc on a periodic tick, the same
// gocron-backed hook AOF's everysec fsync uses. Returns the number of
// streams reaped.
func (m *Master) ReapStale(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	var stale []*Stream

	m.mu.Lock()
	for id, s := range m.streams {
		r, ok := m.Info.replicaSnapshot(id)
		if !ok || r.LastInteraction.Before(cutoff) {
			stale = append(stale, s)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		m.Detach(s)
	}
	return len(stale)
}
