package store

// PushLeft/PushRight implement LPUSH/RPUSH, creating the list if absent
// and returning its new length (§4.3 "List operations").
func (db *DB) PushLeft(key string, vals ...[]byte) (int, error) {
	e, err := db.GetOrCreate(key, KindList)
	if err != nil {
		return 0, err
	}
	sh := db.shardFor(key)
	sh.mu.Lock()
	for _, v := range vals {
		e.val.List.PushLeft(v)
	}
	n := e.val.List.Len()
	sh.mu.Unlock()
	db.bumpVersion(key)
	return n, nil
}

func (db *DB) PushRight(key string, vals ...[]byte) (int, error) {
	e, err := db.GetOrCreate(key, KindList)
	if err != nil {
		return 0, err
	}
	sh := db.shardFor(key)
	sh.mu.Lock()
	for _, v := range vals {
		e.val.List.PushRight(v)
	}
	n := e.val.List.Len()
	sh.mu.Unlock()
	db.bumpVersion(key)
	return n, nil
}

// PushLeftExists/PushRightExists implement LPUSHX/RPUSHX: push only if
// the key already holds a list.
func (db *DB) PushLeftExists(key string, vals ...[]byte) (int, error) {
	e, ok, err := db.Typed(key, KindList)
	if err != nil || !ok {
		return 0, err
	}
	sh := db.shardFor(key)
	sh.mu.Lock()
	for _, v := range vals {
		e.val.List.PushLeft(v)
	}
	n := e.val.List.Len()
	sh.mu.Unlock()
	db.bumpVersion(key)
	return n, nil
}

func (db *DB) PushRightExists(key string, vals ...[]byte) (int, error) {
	e, ok, err := db.Typed(key, KindList)
	if err != nil || !ok {
		return 0, err
	}
	sh := db.shardFor(key)
	sh.mu.Lock()
	for _, v := range vals {
		e.val.List.PushRight(v)
	}
	n := e.val.List.Len()
	sh.mu.Unlock()
	db.bumpVersion(key)
	return n, nil
}

// popList pops from one end and, if the list becomes empty,
// removes the key entirely — lists (and the other aggregate types) never
// exist empty (§4.3 "Empty aggregates are deleted").
func (db *DB) popList(key string, left bool, count int) ([][]byte, error) {
	e, ok, err := db.Typed(key, KindList)
	if err != nil || !ok {
		return nil, err
	}
	sh := db.shardFor(key)
	sh.mu.Lock()
	var out [][]byte
	for i := 0; i < count; i++ {
		var v []byte
		var popped bool
		if left {
			v, popped = e.val.List.PopLeft()
		} else {
			v, popped = e.val.List.PopRight()
		}
		if !popped {
			break
		}
		out = append(out, v)
	}
	empty := e.val.List.Len() == 0
	sh.mu.Unlock()
	if empty {
		db.Delete(key)
	} else if len(out) > 0 {
		db.bumpVersion(key)
	}
	return out, nil
}

func (db *DB) PopLeft(key string, count int) ([][]byte, error) { return db.popList(key, true, count) }
func (db *DB) PopRight(key string, count int) ([][]byte, error) {
	return db.popList(key, false, count)
}

// LLen returns the length of the list at key, 0 if absent.
func (db *DB) LLen(key string) (int, error) {
	e, ok, err := db.Typed(key, KindList)
	if err != nil || !ok {
		return 0, err
	}
	return e.val.List.Len(), nil
}

// LIndex returns the element at idx (Redis-style negative indices
// allowed).
func (db *DB) LIndex(key string, idx int) ([]byte, bool, error) {
	e, ok, err := db.Typed(key, KindList)
	if err != nil || !ok {
		return nil, false, err
	}
	sh := db.shardFor(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	if idx < 0 {
		idx += e.val.List.Len()
	}
	v, ok := e.val.List.Index(idx)
	return v, ok, nil
}

// LSet overwrites the element at idx.
func (db *DB) LSet(key string, idx int, val []byte) error {
	e, ok, err := db.Typed(key, KindList)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoSuchKey
	}
	sh := db.shardFor(key)
	sh.mu.Lock()
	if idx < 0 {
		idx += e.val.List.Len()
	}
	set := e.val.List.SetIndex(idx, val)
	sh.mu.Unlock()
	if !set {
		return newErr(KindSyntax, "ERR index out of range")
	}
	db.bumpVersion(key)
	return nil
}

// LRange returns the elements from start to end inclusive, Redis-style
// negative indices allowed.
func (db *DB) LRange(key string, start, end int) ([][]byte, error) {
	e, ok, err := db.Typed(key, KindList)
	if err != nil || !ok {
		return nil, err
	}
	sh := db.shardFor(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	lo, hi := normalizeRange(start, end, e.val.List.Len())
	all := e.val.List.ToSlice()
	out := make([][]byte, hi-lo)
	copy(out, all[lo:hi])
	return out, nil
}

// LTrim keeps only the elements from start to end inclusive, deleting
// the key if the result is empty.
func (db *DB) LTrim(key string, start, end int) error {
	e, ok, err := db.Typed(key, KindList)
	if err != nil || !ok {
		return err
	}
	sh := db.shardFor(key)
	sh.mu.Lock()
	lo, hi := normalizeRange(start, end, e.val.List.Len())
	kept := e.val.List.ToSlice()[lo:hi]
	e.val.List = NewListFrom(kept)
	empty := e.val.List.Len() == 0
	sh.mu.Unlock()
	if empty {
		db.Delete(key)
	} else {
		db.bumpVersion(key)
	}
	return nil
}

// LRem removes up to count occurrences of value (count>0: front to
// back, count<0: back to front, count==0: all), returning how many were
// removed.
func (db *DB) LRem(key string, count int, value []byte) (int, error) {
	e, ok, err := db.Typed(key, KindList)
	if err != nil || !ok {
		return 0, err
	}
	sh := db.shardFor(key)
	sh.mu.Lock()
	all := e.val.List.ToSlice()
	removed := 0
	var kept [][]byte

	match := func(v []byte) bool { return string(v) == string(value) }
	if count >= 0 {
		limit := count
		for _, v := range all {
			if match(v) && (limit == 0 || removed < limit) {
				removed++
				continue
			}
			kept = append(kept, v)
		}
	} else {
		limit := -count
		for i := len(all) - 1; i >= 0; i-- {
			v := all[i]
			if match(v) && removed < limit {
				removed++
				continue
			}
			kept = append([][]byte{v}, kept...)
		}
	}
	e.val.List = NewListFrom(kept)
	empty := e.val.List.Len() == 0
	sh.mu.Unlock()
	if empty {
		db.Delete(key)
	} else if removed > 0 {
		db.bumpVersion(key)
	}
	return removed, nil
}

// LPos returns the index of the first (or rank-th) occurrence of value.
func (db *DB) LPos(key string, value []byte, rank, count int) ([]int, error) {
	e, ok, err := db.Typed(key, KindList)
	if err != nil || !ok {
		return nil, err
	}
	sh := db.shardFor(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	all := e.val.List.ToSlice()

	if rank == 0 {
		rank = 1
	}
	var positions []int
	if rank > 0 {
		skip := rank - 1
		for i, v := range all {
			if string(v) == string(value) {
				if skip > 0 {
					skip--
					continue
				}
				positions = append(positions, i)
				if count > 0 && len(positions) >= count {
					break
				}
			}
		}
	} else {
		skip := -rank - 1
		for i := len(all) - 1; i >= 0; i-- {
			if string(all[i]) == string(value) {
				if skip > 0 {
					skip--
					continue
				}
				positions = append(positions, i)
				if count > 0 && len(positions) >= count {
					break
				}
			}
		}
	}
	return positions, nil
}

// LInsert inserts val before or after the first occurrence of pivot,
// returning the new length, or -1 if pivot wasn't found.
func (db *DB) LInsert(key string, before bool, pivot, val []byte) (int, error) {
	e, ok, err := db.Typed(key, KindList)
	if err != nil || !ok {
		return 0, err
	}
	sh := db.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	all := e.val.List.ToSlice()
	idx := -1
	for i, v := range all {
		if string(v) == string(pivot) {
			idx = i
			break
		}
	}
	if idx == -1 {
		return -1, nil
	}
	var inserted bool
	if before {
		inserted = e.val.List.InsertBefore(idx, val)
	} else {
		inserted = e.val.List.InsertAfter(idx, val)
	}
	if !inserted {
		return -1, nil
	}
	n := e.val.List.Len()
	db.bumpVersion(key)
	return n, nil
}

// LMove atomically moves one element between the heads/tails of src and
// dst (which may be the same key), per §4.3 "LMOVE".
func (db *DB) LMove(src, dst string, fromLeft, toLeft bool) ([]byte, bool, error) {
	popped, err := db.popList(src, fromLeft, 1)
	if err != nil || len(popped) == 0 {
		return nil, false, err
	}
	v := popped[0]
	if toLeft {
		if _, err := db.PushLeft(dst, v); err != nil {
			return nil, false, err
		}
	} else {
		if _, err := db.PushRight(dst, v); err != nil {
			return nil, false, err
		}
	}
	return v, true, nil
}
