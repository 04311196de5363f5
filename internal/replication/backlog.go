// Package replication implements the replication core (C8): master/
// replica role state, the size-bounded command backlog that backs
// partial resync, the PSYNC handshake decision, and both ends of the
// connection (a Master fanning writes out to attached replica streams,
// and a Replica client that dials a master and applies its stream).
//
// Grounded on original_source/src/replication/{backlog,replication_info,
// sync,replica_client,propagation}.rs; the teacher contributes the
// gocron-driven periodic-tick idiom (internal/taskManager) used for the
// master's stale-replica reaper. The replica's ACK is sent from its own
// read loop, not from a scheduled job.
package replication

import "sync"

// backlogEntry is one propagated write, tagged with the master offset
// it was assigned.
type backlogEntry struct {
	offset uint64
	data   []byte
}

// Backlog is a size-bounded FIFO of recently propagated command bytes,
// indexed by offset, used to serve PSYNC partial resync without forcing
// a full snapshot transfer. Grounded on
// original_source/src/replication/backlog.rs's ReplicationBacklog
// (VecDeque + byte-budget eviction), translated from its Arc<RwLock<..>>
// fields to a single mutex guarding all backlog state.
type Backlog struct {
	mu          sync.RWMutex
	entries     []backlogEntry
	maxSize     int
	currentSize int
	firstOffset uint64
}

// DefaultBacklogSize matches the teacher-independent 1MB default the
// original Rust backlog uses.
const DefaultBacklogSize = 1024 * 1024

// NewBacklog creates a backlog bounded to maxSize bytes. maxSize <= 0
// falls back to DefaultBacklogSize.
func NewBacklog(maxSize int) *Backlog {
	if maxSize <= 0 {
		maxSize = DefaultBacklogSize
	}
	return &Backlog{maxSize: maxSize}
}

// Add appends data at offset, evicting the oldest entries in FIFO order
// while the backlog exceeds its byte budget.
func (b *Backlog) Add(offset uint64, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = append(b.entries, backlogEntry{offset: offset, data: data})
	b.currentSize += len(data)

	for b.currentSize > b.maxSize && len(b.entries) > 0 {
		evicted := b.entries[0]
		b.entries = b.entries[1:]
		b.currentSize -= len(evicted.data)
		if len(b.entries) > 0 {
			b.firstOffset = b.entries[0].offset
		}
	}
}

// GetFromOffset returns every entry at or after offset, one slice
// element per entry in order, or ok=false if offset predates the backlog's retained window
// (the caller must fall back to a full resync).
func (b *Backlog) GetFromOffset(offset uint64) (data [][]byte, ok bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.entries) == 0 {
		return nil, offset == 0
	}
	if offset < b.firstOffset {
		return nil, false
	}

	for _, e := range b.entries {
		if e.offset >= offset {
			data = append(data, e.data)
		}
	}
	return data, true
}

// FirstOffset reports the oldest offset still retained.
func (b *Backlog) FirstOffset() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.firstOffset
}

// Size reports the current retained byte count.
func (b *Backlog) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.currentSize
}

// Len reports the number of retained entries.
func (b *Backlog) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// Clear empties the backlog, used when a master resets its replication
// ID (e.g. on REPLICAOF NO ONE after having been a replica).
func (b *Backlog) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = nil
	b.currentSize = 0
	b.firstOffset = 0
}
