package store

import (
	"strconv"
	"strings"
)

// ParseStreamID parses a "ms-seq" or bare "ms" id. Bare ms defaults its
// seq to 0, matching the auto-complete convention of §4.3 "Stream id
// ordering".
func ParseStreamID(s string) (StreamID, error) {
	if s == "-" {
		return StreamID{0, 0}, nil
	}
	if s == "+" {
		return StreamID{maxUint64, maxUint64}, nil
	}
	parts := strings.SplitN(s, "-", 2)
	ms, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return StreamID{}, ErrNotInteger
	}
	if len(parts) == 1 {
		return StreamID{MS: ms, Seq: 0}, nil
	}
	seq, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return StreamID{}, ErrNotInteger
	}
	return StreamID{MS: ms, Seq: seq}, nil
}

const maxUint64 = 1<<64 - 1

// XAdd appends an entry, assigning an id automatically when requested
// (id == zero StreamID with auto==true), and returns the assigned id.
func (db *DB) XAdd(key string, id StreamID, auto bool, fields map[string]string, order []string, nowMS uint64, maxLen int, trimApprox bool) (StreamID, error) {
	e, err := db.GetOrCreate(key, KindStream)
	if err != nil {
		return StreamID{}, err
	}
	sh := db.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if auto {
		id = e.val.Strm.NextID(nowMS)
	} else if !e.val.Strm.lastID.Less(id) && e.val.Strm.Len() > 0 {
		return StreamID{}, newErr(KindSyntax, "ERR The ID specified in XADD is equal or smaller than the target stream top item")
	}

	if !e.val.Strm.Append(id, fields, order) {
		return StreamID{}, newErr(KindSyntax, "ERR The ID specified in XADD is equal or smaller than the target stream top item")
	}
	if maxLen >= 0 {
		e.val.Strm.Trim(maxLen)
	}
	db.bumpVersion(key)
	return id, nil
}

// XLen returns the number of entries.
func (db *DB) XLen(key string) (int, error) {
	e, ok, err := db.Typed(key, KindStream)
	if err != nil || !ok {
		return 0, err
	}
	return e.val.Strm.Len(), nil
}

// XRange returns entries with id in [start,end], ascending; if reverse,
// the same set is returned descending (XREVRANGE).
func (db *DB) XRange(key string, start, end StreamID, count int, reverse bool) ([]StreamEntry, error) {
	e, ok, err := db.Typed(key, KindStream)
	if err != nil || !ok {
		return nil, err
	}
	sh := db.shardFor(key)
	sh.mu.RLock()
	out := e.val.Strm.Range(start, end, 0)
	sh.mu.RUnlock()

	if reverse {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	if count > 0 && count < len(out) {
		out = out[:count]
	}
	return out, nil
}

// XDel removes the given ids, returning how many existed.
func (db *DB) XDel(key string, ids []StreamID) (int, error) {
	e, ok, err := db.Typed(key, KindStream)
	if err != nil || !ok {
		return 0, err
	}
	sh := db.shardFor(key)
	sh.mu.Lock()
	removed := 0
	for _, id := range ids {
		if e.val.Strm.Delete(id) {
			removed++
		}
	}
	sh.mu.Unlock()
	if removed > 0 {
		db.bumpVersion(key)
	}
	return removed, nil
}

// XTrim caps the stream at maxLen newest entries, returning how many
// were removed.
func (db *DB) XTrim(key string, maxLen int) (int, error) {
	e, ok, err := db.Typed(key, KindStream)
	if err != nil || !ok {
		return 0, err
	}
	sh := db.shardFor(key)
	sh.mu.Lock()
	removed := e.val.Strm.Trim(maxLen)
	sh.mu.Unlock()
	if removed > 0 {
		db.bumpVersion(key)
	}
	return removed, nil
}

// XRead returns entries with id strictly greater than after, up to
// count if positive. Used both for the non-blocking read and as the
// poll step of a blocking XREAD (internal/command's XREAD handler
// re-calls this through blockUntil, against the baseline XLastID gave
// for "$").
func (db *DB) XRead(key string, after StreamID, count int) ([]StreamEntry, error) {
	e, ok, err := db.Typed(key, KindStream)
	if err != nil || !ok {
		return nil, err
	}
	next := StreamID{MS: after.MS, Seq: after.Seq + 1}
	if after.Seq == maxUint64 {
		next = StreamID{MS: after.MS + 1, Seq: 0}
	}
	sh := db.shardFor(key)
	sh.mu.RLock()
	out := e.val.Strm.Range(next, StreamID{maxUint64, maxUint64}, count)
	sh.mu.RUnlock()
	return out, nil
}

// XLastID returns the last assigned id for key, used by XREAD $ to
// establish a blocking baseline.
func (db *DB) XLastID(key string) (StreamID, error) {
	e, ok, err := db.Typed(key, KindStream)
	if err != nil || !ok {
		return StreamID{}, err
	}
	return e.val.Strm.LastID(), nil
}
