package store

import (
	"strconv"
	"time"
)

// SetOpts captures the optional modifiers of SET (§4.3 "String
// operations"): expiry, existence guards, and whether to return the
// previous value.
type SetOpts struct {
	ExpireAt   time.Time
	HasExpire  bool
	KeepTTL    bool
	OnlyIfAbs  bool // NX
	OnlyIfPres bool // XX
	ReturnOld  bool // GET
}

// SetString implements SET, returning the previous value when
// ReturnOld is requested and reporting whether the write actually
// happened (it can be skipped by NX/XX).
func (db *DB) SetString(key string, val []byte, opts SetOpts) (old []byte, hadOld bool, written bool, err error) {
	e := db.lookup(key)
	exists := e != nil
	if exists && e.val.Kind != KindBytes {
		if opts.ReturnOld {
			return nil, false, false, ErrWrongType
		}
	}
	if exists && e.val.Kind == KindBytes {
		old = e.val.Bytes
		hadOld = true
	}

	if opts.OnlyIfAbs && exists {
		return old, hadOld, false, nil
	}
	if opts.OnlyIfPres && !exists {
		return old, hadOld, false, nil
	}

	db.Set(key, Value{Kind: KindBytes, Bytes: val}, opts.KeepTTL)
	if opts.HasExpire {
		db.SetExpireAt(key, opts.ExpireAt)
	}
	return old, hadOld, true, nil
}

// GetString returns the string at key.
func (db *DB) GetString(key string) ([]byte, bool, error) {
	e, ok, err := db.Typed(key, KindBytes)
	if err != nil || !ok {
		return nil, ok, err
	}
	return e.val.Bytes, true, nil
}

// GetDel atomically fetches and removes a string key.
func (db *DB) GetDel(key string) ([]byte, bool, error) {
	e, ok, err := db.Typed(key, KindBytes)
	if err != nil || !ok {
		return nil, ok, err
	}
	b := e.val.Bytes
	db.Delete(key)
	return b, true, nil
}

func parseInt64(b []byte) (int64, error) {
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, ErrNotInteger
	}
	return n, nil
}

// IncrBy adds delta to the integer stored at key (creating it as "0"
// first if absent), per §4.3's overflow and type-checking rules.
func (db *DB) IncrBy(key string, delta int64) (int64, error) {
	e, err := db.GetOrCreate(key, KindBytes)
	if err != nil {
		return 0, err
	}

	sh := db.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	var cur int64
	if len(e.val.Bytes) > 0 {
		n, err := parseInt64(e.val.Bytes)
		if err != nil {
			return 0, err
		}
		cur = n
	}

	if (delta > 0 && cur > maxInt64-delta) || (delta < 0 && cur < minInt64-delta) {
		return 0, ErrOverflow
	}

	next := cur + delta
	e.val.Bytes = []byte(strconv.FormatInt(next, 10))
	db.bumpVersion(key)
	return next, nil
}

const (
	maxInt64 = 1<<63 - 1
	minInt64 = -1 << 63
)

// IncrByFloat adds delta to the float stored at key, formatting the
// result without trailing zeros per §4.3.
func (db *DB) IncrByFloat(key string, delta float64) (float64, error) {
	e, err := db.GetOrCreate(key, KindBytes)
	if err != nil {
		return 0, err
	}

	sh := db.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	var cur float64
	if len(e.val.Bytes) > 0 {
		f, perr := strconv.ParseFloat(string(e.val.Bytes), 64)
		if perr != nil {
			return 0, ErrNotFloat
		}
		cur = f
	}

	next := cur + delta
	e.val.Bytes = []byte(strconv.FormatFloat(next, 'f', -1, 64))
	db.bumpVersion(key)
	return next, nil
}

// Append appends suffix to the string at key (creating it if absent)
// and returns the new length.
func (db *DB) Append(key string, suffix []byte) (int, error) {
	e, err := db.GetOrCreate(key, KindBytes)
	if err != nil {
		return 0, err
	}
	sh := db.shardFor(key)
	sh.mu.Lock()
	e.val.Bytes = append(e.val.Bytes, suffix...)
	n := len(e.val.Bytes)
	sh.mu.Unlock()
	db.bumpVersion(key)
	return n, nil
}

// StrLen returns the length of the string at key, 0 if absent.
func (db *DB) StrLen(key string) (int, error) {
	e, ok, err := db.Typed(key, KindBytes)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return len(e.val.Bytes), nil
}

// normalizeRange converts Redis-style possibly-negative start/end
// indices into a valid [lo, hi) slice range over a sequence of length n,
// per §4.3/§4.4's shared negative-index convention.
func normalizeRange(start, end, n int) (lo, hi int) {
	if start < 0 {
		start += n
	}
	if end < 0 {
		end += n
	}
	if start < 0 {
		start = 0
	}
	if end >= n {
		end = n - 1
	}
	if start > end || n == 0 {
		return 0, 0
	}
	return start, end + 1
}

// GetRange returns the substring [start,end] inclusive, Redis-style
// negative indices allowed.
func (db *DB) GetRange(key string, start, end int) ([]byte, error) {
	e, ok, err := db.Typed(key, KindBytes)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []byte{}, nil
	}
	lo, hi := normalizeRange(start, end, len(e.val.Bytes))
	out := make([]byte, hi-lo)
	copy(out, e.val.Bytes[lo:hi])
	return out, nil
}

// SetRange overwrites the string at key starting at offset with value,
// zero-padding if offset extends past the current length, and returns
// the new total length.
func (db *DB) SetRange(key string, offset int, value []byte) (int, error) {
	e, err := db.GetOrCreate(key, KindBytes)
	if err != nil {
		return 0, err
	}
	sh := db.shardFor(key)
	sh.mu.Lock()
	need := offset + len(value)
	if len(e.val.Bytes) < need {
		grown := make([]byte, need)
		copy(grown, e.val.Bytes)
		e.val.Bytes = grown
	}
	copy(e.val.Bytes[offset:], value)
	n := len(e.val.Bytes)
	sh.mu.Unlock()
	db.bumpVersion(key)
	return n, nil
}
