// Package txn implements the per-connection MULTI/EXEC/DISCARD/WATCH
// transaction unit (C5).
package txn

import "sync"

// versionSource is the slice of internal/store.DB that txn depends on:
// a per-key monotonic counter bumped on every write, including deletes
// and expiries. Kept as an interface so this package doesn't import
// internal/store directly and tests can fake it.
type versionSource interface {
	Version(key string) uint64
}

// RawRequest is one queued command: its upper-cased name plus the raw
// arguments exactly as the client sent them, so the queued command can
// be replayed verbatim against the dispatcher at EXEC time.
type RawRequest struct {
	Name string
	Args []string
}

// watch records the version of a key observed at WATCH time.
type watch struct {
	db      int
	key     string
	version uint64
}

// State is the per-connection transaction state of §4.5: whether a
// MULTI is open, the queued command batch, and the watched-key
// baselines.
type State struct {
	mu       sync.Mutex
	inMulti  bool
	dirty    bool // set if a queued command failed to parse/validate
	queue    []RawRequest
	watched  []watch
}

func NewState() *State { return &State{} }

// Multi opens a transaction. Returns false if one is already open
// (nested MULTI is an error per §4.5).
func (s *State) Multi() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inMulti {
		return false
	}
	s.inMulti = true
	s.queue = nil
	return true
}

// InMulti reports whether a MULTI is currently open.
func (s *State) InMulti() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inMulti
}

// Queue appends a command to the pending batch. Returns false if no
// MULTI is open (caller should execute immediately instead).
func (s *State) Queue(req RawRequest) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inMulti {
		return false
	}
	s.queue = append(s.queue, req)
	return true
}

// MarkDirty flags the transaction as doomed to abort (e.g. an unknown
// command or bad arity was queued) without ending it — EXEC will still
// need to clear state and reply with an error (§4.5 "a queued command
// that fails validation dooms the transaction without executing it").
func (s *State) MarkDirty() {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
}

// Watch records the current version of key in db for later comparison
// by CheckAndClear. WATCH is a no-op once inside a MULTI (§4.5).
func (s *State) Watch(db int, key string, src versionSource) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inMulti {
		return false
	}
	s.watched = append(s.watched, watch{db: db, key: key, version: src.Version(key)})
	return true
}

// Unwatch clears every watched key, independent of any open MULTI
// (§4.5 UNWATCH).
func (s *State) Unwatch() {
	s.mu.Lock()
	s.watched = nil
	s.mu.Unlock()
}

// Discard ends the open transaction, dropping the queue and watched
// keys. Returns false if no MULTI was open.
func (s *State) Discard() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inMulti {
		return false
	}
	s.inMulti = false
	s.dirty = false
	s.queue = nil
	s.watched = nil
	return true
}

// PerDB groups a DB lookup function so CheckAndClear can compare
// watched keys against whichever db index they were registered under,
// not just the connection's currently selected db.
type PerDB func(db int) versionSource

// CheckAndClear validates that every watched key's version is unchanged
// since WATCH, ends the transaction, and returns the queued commands to
// run (nil if the transaction should abort without executing anything:
// either a dirty queue, or a watched key moved). ok is false only when
// no MULTI was open to begin with.
func (s *State) CheckAndClear(lookup PerDB) (queue []RawRequest, aborted bool, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inMulti {
		return nil, false, false
	}

	aborted = s.dirty
	if !aborted {
		for _, w := range s.watched {
			src := lookup(w.db)
			if src == nil || src.Version(w.key) != w.version {
				aborted = true
				break
			}
		}
	}

	queued := s.queue
	s.inMulti = false
	s.dirty = false
	s.queue = nil
	s.watched = nil

	if aborted {
		return nil, true, true
	}
	return queued, false, true
}
