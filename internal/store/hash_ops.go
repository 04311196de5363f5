package store

import (
	"math/rand"
	"strconv"
)

// HSet sets one or more fields, returning how many were newly created
// (§4.3 "Hash operations").
func (db *DB) HSet(key string, fields map[string]string) (int, error) {
	e, err := db.GetOrCreate(key, KindHash)
	if err != nil {
		return 0, err
	}
	sh := db.shardFor(key)
	sh.mu.Lock()
	created := 0
	for f, v := range fields {
		if _, ok := e.val.Hash[f]; !ok {
			created++
		}
		e.val.Hash[f] = v
	}
	sh.mu.Unlock()
	db.bumpVersion(key)
	return created, nil
}

// HSetNX sets field only if it doesn't already exist.
func (db *DB) HSetNX(key, field, val string) (bool, error) {
	e, err := db.GetOrCreate(key, KindHash)
	if err != nil {
		return false, err
	}
	sh := db.shardFor(key)
	sh.mu.Lock()
	if _, ok := e.val.Hash[field]; ok {
		sh.mu.Unlock()
		return false, nil
	}
	e.val.Hash[field] = val
	sh.mu.Unlock()
	db.bumpVersion(key)
	return true, nil
}

// HGet returns the value of field.
func (db *DB) HGet(key, field string) (string, bool, error) {
	e, ok, err := db.Typed(key, KindHash)
	if err != nil || !ok {
		return "", false, err
	}
	sh := db.shardFor(key)
	sh.mu.RLock()
	v, found := e.val.Hash[field]
	sh.mu.RUnlock()
	return v, found, nil
}

// HMGet returns values for multiple fields, with a false flag for any
// field not present.
func (db *DB) HMGet(key string, fields []string) ([]string, []bool, error) {
	e, ok, err := db.Typed(key, KindHash)
	out := make([]string, len(fields))
	found := make([]bool, len(fields))
	if err != nil || !ok {
		return out, found, err
	}
	sh := db.shardFor(key)
	sh.mu.RLock()
	for i, f := range fields {
		if v, ok := e.val.Hash[f]; ok {
			out[i] = v
			found[i] = true
		}
	}
	sh.mu.RUnlock()
	return out, found, nil
}

// HDel removes the given fields, returning how many existed.
func (db *DB) HDel(key string, fields []string) (int, error) {
	e, ok, err := db.Typed(key, KindHash)
	if err != nil || !ok {
		return 0, err
	}
	sh := db.shardFor(key)
	sh.mu.Lock()
	removed := 0
	for _, f := range fields {
		if _, ok := e.val.Hash[f]; ok {
			delete(e.val.Hash, f)
			removed++
		}
	}
	empty := len(e.val.Hash) == 0
	sh.mu.Unlock()
	if empty {
		db.Delete(key)
	} else if removed > 0 {
		db.bumpVersion(key)
	}
	return removed, nil
}

// HLen returns the number of fields.
func (db *DB) HLen(key string) (int, error) {
	e, ok, err := db.Typed(key, KindHash)
	if err != nil || !ok {
		return 0, err
	}
	return len(e.val.Hash), nil
}

// HGetAll returns a copy of every field/value pair.
func (db *DB) HGetAll(key string) (map[string]string, error) {
	e, ok, err := db.Typed(key, KindHash)
	if err != nil || !ok {
		return map[string]string{}, err
	}
	sh := db.shardFor(key)
	sh.mu.RLock()
	out := make(map[string]string, len(e.val.Hash))
	for k, v := range e.val.Hash {
		out[k] = v
	}
	sh.mu.RUnlock()
	return out, nil
}

// HIncrBy adds delta to the integer stored in field, creating it ("0")
// if absent.
func (db *DB) HIncrBy(key, field string, delta int64) (int64, error) {
	e, err := db.GetOrCreate(key, KindHash)
	if err != nil {
		return 0, err
	}
	sh := db.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	var cur int64
	if v, ok := e.val.Hash[field]; ok {
		n, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil {
			return 0, ErrNotInteger
		}
		cur = n
	}
	if (delta > 0 && cur > maxInt64-delta) || (delta < 0 && cur < minInt64-delta) {
		return 0, ErrOverflow
	}
	next := cur + delta
	e.val.Hash[field] = strconv.FormatInt(next, 10)
	db.bumpVersion(key)
	return next, nil
}

// HIncrByFloat adds delta to the float stored in field.
func (db *DB) HIncrByFloat(key, field string, delta float64) (float64, error) {
	e, err := db.GetOrCreate(key, KindHash)
	if err != nil {
		return 0, err
	}
	sh := db.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	var cur float64
	if v, ok := e.val.Hash[field]; ok {
		f, perr := strconv.ParseFloat(v, 64)
		if perr != nil {
			return 0, ErrNotFloat
		}
		cur = f
	}
	next := cur + delta
	e.val.Hash[field] = strconv.FormatFloat(next, 'f', -1, 64)
	db.bumpVersion(key)
	return next, nil
}

// HKeys/HVals return just the field names or just the values.
func (db *DB) HKeys(key string) ([]string, error) {
	all, err := db.HGetAll(key)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(all))
	for k := range all {
		out = append(out, k)
	}
	return out, nil
}

func (db *DB) HVals(key string) ([]string, error) {
	all, err := db.HGetAll(key)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(all))
	for _, v := range all {
		out = append(out, v)
	}
	return out, nil
}

// HExists reports whether field is present.
func (db *DB) HExists(key, field string) (bool, error) {
	_, ok, err := db.HGet(key, field)
	return ok, err
}

// HRandField returns up to count distinct random fields (or, if
// negative, count draws with repetition allowed), per §4.3.
func (db *DB) HRandField(key string, count int, withValues bool) ([]string, error) {
	all, err := db.HGetAll(key)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}

	emit := func(f string) []string {
		if withValues {
			return []string{f, all[f]}
		}
		return []string{f}
	}

	var out []string
	if count < 0 {
		for i := 0; i < -count; i++ {
			out = append(out, emit(keys[rand.Intn(len(keys))])...)
		}
		return out, nil
	}
	if count > len(keys) {
		count = len(keys)
	}
	perm := rand.Perm(len(keys))
	for i := 0; i < count; i++ {
		out = append(out, emit(keys[perm[i]])...)
	}
	return out, nil
}
