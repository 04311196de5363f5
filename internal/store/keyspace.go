package store

import (
	"sync"
	"time"
)

// DB is one numbered database (§2 "Keyspace"): a striped map of keys to
// typed values plus the per-key version counters WATCH/MULTI/EXEC (see
// internal/txn) read to detect intervening writes.
type DB struct {
	shards [shardCount]*shard

	verMu    sync.Mutex
	versions map[string]uint64
}

func NewDB() *DB {
	db := &DB{versions: make(map[string]uint64)}
	for i := range db.shards {
		db.shards[i] = newShard()
	}
	return db
}

func (db *DB) shardFor(key string) *shard {
	return db.shards[fnv1a(key)%shardCount]
}

// bumpVersion records that key was mutated, for WATCH's benefit. It is
// called on every write — including deletions and expiries, which is
// what lets a watcher notice "the key I watched is gone now" and not
// just "the value changed".
func (db *DB) bumpVersion(key string) {
	db.verMu.Lock()
	db.versions[key]++
	db.verMu.Unlock()
}

// Version returns the current version counter for key, used by WATCH to
// record a baseline and by EXEC to check it hasn't moved.
func (db *DB) Version(key string) uint64 {
	db.verMu.Lock()
	defer db.verMu.Unlock()
	return db.versions[key]
}

// lookup returns the live (non-expired) entry for key, lazily deleting
// it and bumping its version if its TTL has passed (§4.2 "Expiry is lazy
// plus actively swept").
func (db *DB) lookup(key string) *entry {
	sh := db.shardFor(key)
	now := time.Now()

	sh.mu.RLock()
	e, ok := sh.data[key]
	sh.mu.RUnlock()
	if !ok {
		return nil
	}
	if !e.expired(now) {
		return e
	}

	sh.mu.Lock()
	e, ok = sh.data[key]
	if ok && e.expired(now) {
		delete(sh.data, key)
		sh.mu.Unlock()
		db.bumpVersion(key)
		return nil
	}
	sh.mu.Unlock()
	if !ok {
		return nil
	}
	return e
}

// Get returns the value stored at key and whether it exists (and isn't
// expired).
func (db *DB) Get(key string) (Value, bool) {
	e := db.lookup(key)
	if e == nil {
		return Value{}, false
	}
	return e.val, true
}

// GetOrCreate returns the entry for key, creating an empty value of kind
// if absent or expired; only a newly created entry has its version
// bumped here, an existing one is returned as is. Typed operators use this
// as their single entry point so "create on first write" is uniform
// across kinds.
func (db *DB) GetOrCreate(key string, kind Kind) (*entry, error) {
	sh := db.shardFor(key)
	now := time.Now()

	sh.mu.Lock()
	e, ok := sh.data[key]
	if ok && e.expired(now) {
		delete(sh.data, key)
		ok = false
	}
	sh.mu.Unlock()

	if ok {
		if e.val.Kind != kind {
			return nil, ErrWrongType
		}
		return e, nil
	}

	e = sh.getOrCreate(key, kind)
	db.bumpVersion(key)
	return e, nil
}

// Typed fetches an existing value, returning ErrWrongType if it's a
// different kind and ok=false (no error) if it's absent.
func (db *DB) Typed(key string, kind Kind) (*entry, bool, error) {
	e := db.lookup(key)
	if e == nil {
		return nil, false, nil
	}
	if e.val.Kind != kind {
		return nil, true, ErrWrongType
	}
	return e, true, nil
}

// Set stores val at key outright, clearing any existing TTL unless
// keepTTL is set (§4.2 SET semantics).
func (db *DB) Set(key string, val Value, keepTTL bool) {
	sh := db.shardFor(key)
	sh.mu.Lock()
	e, ok := sh.data[key]
	if !ok {
		e = &entry{}
		sh.data[key] = e
	}
	e.val = val
	if !keepTTL {
		e.hasTTL = false
		e.expireAt = time.Time{}
	}
	sh.mu.Unlock()
	db.bumpVersion(key)
}

// SetExpireAt installs an absolute expiry on an existing key. Returns
// false if the key doesn't exist.
func (db *DB) SetExpireAt(key string, at time.Time) bool {
	sh := db.shardFor(key)
	sh.mu.Lock()
	e, ok := sh.data[key]
	if ok {
		e.hasTTL = true
		e.expireAt = at
	}
	sh.mu.Unlock()
	if ok {
		db.bumpVersion(key)
	}
	return ok
}

// Persist removes any TTL on key, returning true if one was removed.
func (db *DB) Persist(key string) bool {
	sh := db.shardFor(key)
	sh.mu.Lock()
	e, ok := sh.data[key]
	had := ok && e.hasTTL
	if had {
		e.hasTTL = false
		e.expireAt = time.Time{}
	}
	sh.mu.Unlock()
	if had {
		db.bumpVersion(key)
	}
	return had
}

// TTL returns the remaining lifetime of key: (-1, true) if it exists
// with no expiry, (0, false) if it doesn't exist, or the remaining
// duration otherwise.
func (db *DB) TTL(key string) (time.Duration, bool) {
	e := db.lookup(key)
	if e == nil {
		return 0, false
	}
	if !e.hasTTL {
		return -1, true
	}
	d := time.Until(e.expireAt)
	if d < 0 {
		d = 0
	}
	return d, true
}

// Delete removes key, returning true if it existed.
func (db *DB) Delete(key string) bool {
	sh := db.shardFor(key)
	sh.mu.Lock()
	_, ok := sh.data[key]
	delete(sh.data, key)
	sh.mu.Unlock()
	if ok {
		db.bumpVersion(key)
	}
	return ok
}

// Exists reports whether key is present and unexpired.
func (db *DB) Exists(key string) bool {
	return db.lookup(key) != nil
}

// KindOf returns the Kind of key and whether it exists.
func (db *DB) KindOf(key string) (Kind, bool) {
	e := db.lookup(key)
	if e == nil {
		return 0, false
	}
	return e.val.Kind, true
}

// Len returns the number of live keys across all shards. Expired-but-
// not-yet-swept keys are excluded by checking each as it's counted,
// matching what KEYS/DBSIZE observe (§4.2).
func (db *DB) Len() int {
	now := time.Now()
	total := 0
	for _, sh := range db.shards {
		sh.mu.RLock()
		for _, e := range sh.data {
			if !e.expired(now) {
				total++
			}
		}
		sh.mu.RUnlock()
	}
	return total
}

// Clear removes every key from the database, bumping each removed key's
// version so a WATCH on it sees the flush.
func (db *DB) Clear() {
	for _, sh := range db.shards {
		sh.mu.Lock()
		for k := range sh.data {
			db.bumpVersion(k)
		}
		sh.data = make(map[string]*entry)
		sh.mu.Unlock()
	}
}

// Keys returns every live key matching pattern (a glob per §4.2, see
// glob.go). Used by the KEYS command, internal/aof's rewrite/snapshot
// walk and the cluster slot-key commands; the active-expire sweep uses
// SweepExpired instead.
func (db *DB) Keys(pattern string) []string {
	now := time.Now()
	var out []string
	for _, sh := range db.shards {
		sh.mu.RLock()
		for k, e := range sh.data {
			if e.expired(now) {
				continue
			}
			if pattern == "*" || globMatch(pattern, k) {
				out = append(out, k)
			}
		}
		sh.mu.RUnlock()
	}
	return out
}

// SweepExpired deletes every key whose TTL has passed as of now and
// returns how many were removed. Invoked periodically by the active
// expire-cycle task rather than only lazily on access, so memory used by
// never-read expired keys is reclaimed (§4.2).
func (db *DB) SweepExpired(now time.Time) int {
	removed := 0
	for _, sh := range db.shards {
		sh.mu.Lock()
		for k, e := range sh.data {
			if e.expired(now) {
				delete(sh.data, k)
				removed++
				db.mark(k)
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// mark bumps a key's version without taking the shard lock (the caller
// already holds it). It calls bumpVersion, which takes only the version
// mutex, a lock disjoint from the shard locks, so SweepExpired can call
// it while holding a shard lock without deadlocking.
func (db *DB) mark(key string) {
	db.bumpVersion(key)
}

// Keyspace holds every numbered DB plus the flush/select-by-index
// surface the server layer needs. Each DB is fully independent; there is
// no cross-DB locking (§2).
type Keyspace struct {
	dbs []*DB
}

// NewKeyspace builds a keyspace with n independent databases, mirroring
// the classic SELECT 0..15 numbering (§2, default 16 unless configured
// otherwise).
func NewKeyspace(n int) *Keyspace {
	ks := &Keyspace{dbs: make([]*DB, n)}
	for i := range ks.dbs {
		ks.dbs[i] = NewDB()
	}
	return ks
}

func (ks *Keyspace) DB(i int) *DB {
	if i < 0 || i >= len(ks.dbs) {
		return nil
	}
	return ks.dbs[i]
}

func (ks *Keyspace) NumDB() int { return len(ks.dbs) }

// FlushAll clears every database.
func (ks *Keyspace) FlushAll() {
	for _, db := range ks.dbs {
		db.Clear()
	}
}
