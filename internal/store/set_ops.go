package store

import "math/rand"

// SAdd adds members, returning how many were newly inserted.
func (db *DB) SAdd(key string, members []string) (int, error) {
	e, err := db.GetOrCreate(key, KindSet)
	if err != nil {
		return 0, err
	}
	sh := db.shardFor(key)
	sh.mu.Lock()
	added := 0
	for _, m := range members {
		if _, ok := e.val.Set[m]; !ok {
			e.val.Set[m] = struct{}{}
			added++
		}
	}
	sh.mu.Unlock()
	if added > 0 {
		db.bumpVersion(key)
	}
	return added, nil
}

// SRem removes members, returning how many existed, deleting the key if
// the set becomes empty.
func (db *DB) SRem(key string, members []string) (int, error) {
	e, ok, err := db.Typed(key, KindSet)
	if err != nil || !ok {
		return 0, err
	}
	sh := db.shardFor(key)
	sh.mu.Lock()
	removed := 0
	for _, m := range members {
		if _, ok := e.val.Set[m]; ok {
			delete(e.val.Set, m)
			removed++
		}
	}
	empty := len(e.val.Set) == 0
	sh.mu.Unlock()
	if empty {
		db.Delete(key)
	} else if removed > 0 {
		db.bumpVersion(key)
	}
	return removed, nil
}

// SIsMember reports whether member is in the set.
func (db *DB) SIsMember(key, member string) (bool, error) {
	e, ok, err := db.Typed(key, KindSet)
	if err != nil || !ok {
		return false, err
	}
	sh := db.shardFor(key)
	sh.mu.RLock()
	_, found := e.val.Set[member]
	sh.mu.RUnlock()
	return found, nil
}

// SMIsMember reports membership for several members at once.
func (db *DB) SMIsMember(key string, members []string) ([]bool, error) {
	out := make([]bool, len(members))
	e, ok, err := db.Typed(key, KindSet)
	if err != nil || !ok {
		return out, err
	}
	sh := db.shardFor(key)
	sh.mu.RLock()
	for i, m := range members {
		_, out[i] = e.val.Set[m]
	}
	sh.mu.RUnlock()
	return out, nil
}

// SCard returns the number of members.
func (db *DB) SCard(key string) (int, error) {
	e, ok, err := db.Typed(key, KindSet)
	if err != nil || !ok {
		return 0, err
	}
	return len(e.val.Set), nil
}

// SMembers returns every member.
func (db *DB) SMembers(key string) ([]string, error) {
	e, ok, err := db.Typed(key, KindSet)
	if err != nil || !ok {
		return nil, err
	}
	sh := db.shardFor(key)
	sh.mu.RLock()
	out := make([]string, 0, len(e.val.Set))
	for m := range e.val.Set {
		out = append(out, m)
	}
	sh.mu.RUnlock()
	return out, nil
}

// SPop removes and returns up to count random members.
func (db *DB) SPop(key string, count int) ([]string, error) {
	members, err := db.SMembers(key)
	if err != nil || len(members) == 0 {
		return nil, err
	}
	if count > len(members) {
		count = len(members)
	}
	rand.Shuffle(len(members), func(i, j int) { members[i], members[j] = members[j], members[i] })
	chosen := members[:count]
	if _, err := db.SRem(key, chosen); err != nil {
		return nil, err
	}
	return chosen, nil
}

// SRandMember returns up to |count| members without removing them. A
// negative count allows repeats (§4.3).
func (db *DB) SRandMember(key string, count int) ([]string, error) {
	members, err := db.SMembers(key)
	if err != nil || len(members) == 0 {
		return nil, err
	}
	if count < 0 {
		out := make([]string, -count)
		for i := range out {
			out[i] = members[rand.Intn(len(members))]
		}
		return out, nil
	}
	if count > len(members) {
		count = len(members)
	}
	rand.Shuffle(len(members), func(i, j int) { members[i], members[j] = members[j], members[i] })
	return members[:count], nil
}

// SMove atomically moves member from src to dst, returning whether it
// was present in src.
func (db *DB) SMove(src, dst, member string) (bool, error) {
	e, ok, err := db.Typed(src, KindSet)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	sh := db.shardFor(src)
	sh.mu.Lock()
	_, present := e.val.Set[member]
	if present {
		delete(e.val.Set, member)
	}
	empty := len(e.val.Set) == 0
	sh.mu.Unlock()
	if !present {
		return false, nil
	}
	if empty {
		db.Delete(src)
	} else {
		db.bumpVersion(src)
	}
	if _, err := db.SAdd(dst, []string{member}); err != nil {
		return false, err
	}
	return true, nil
}

func setOf(members []string) map[string]struct{} {
	s := make(map[string]struct{}, len(members))
	for _, m := range members {
		s[m] = struct{}{}
	}
	return s
}

// loadSets fetches the member sets of keys, treating a missing key as
// empty and erroring on a wrong-typed one.
func (db *DB) loadSets(keys []string) ([]map[string]struct{}, error) {
	out := make([]map[string]struct{}, len(keys))
	for i, k := range keys {
		m, err := db.SMembers(k)
		if err != nil {
			return nil, err
		}
		out[i] = setOf(m)
	}
	return out, nil
}

// SInter/SUnion/SDiff implement the boolean set operations of §4.3.
func (db *DB) SInter(keys []string) ([]string, error) {
	sets, err := db.loadSets(keys)
	if err != nil || len(sets) == 0 {
		return nil, err
	}
	var out []string
	for m := range sets[0] {
		inAll := true
		for _, s := range sets[1:] {
			if _, ok := s[m]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			out = append(out, m)
		}
	}
	return out, nil
}

func (db *DB) SUnion(keys []string) ([]string, error) {
	sets, err := db.loadSets(keys)
	if err != nil {
		return nil, err
	}
	union := make(map[string]struct{})
	for _, s := range sets {
		for m := range s {
			union[m] = struct{}{}
		}
	}
	out := make([]string, 0, len(union))
	for m := range union {
		out = append(out, m)
	}
	return out, nil
}

func (db *DB) SDiff(keys []string) ([]string, error) {
	sets, err := db.loadSets(keys)
	if err != nil || len(sets) == 0 {
		return nil, err
	}
	var out []string
	for m := range sets[0] {
		excluded := false
		for _, s := range sets[1:] {
			if _, ok := s[m]; ok {
				excluded = true
				break
			}
		}
		if !excluded {
			out = append(out, m)
		}
	}
	return out, nil
}

// storeResult replaces dest's contents with members (deleting dest if
// members is empty), used by the SINTERSTORE/SUNIONSTORE/SDIFFSTORE
// variants.
func (db *DB) storeResult(dest string, members []string) (int, error) {
	if len(members) == 0 {
		db.Delete(dest)
		return 0, nil
	}
	db.Set(dest, Value{Kind: KindSet, Set: setOf(members)}, false)
	return len(members), nil
}

func (db *DB) SInterStore(dest string, keys []string) (int, error) {
	m, err := db.SInter(keys)
	if err != nil {
		return 0, err
	}
	return db.storeResult(dest, m)
}

func (db *DB) SUnionStore(dest string, keys []string) (int, error) {
	m, err := db.SUnion(keys)
	if err != nil {
		return 0, err
	}
	return db.storeResult(dest, m)
}

func (db *DB) SDiffStore(dest string, keys []string) (int, error) {
	m, err := db.SDiff(keys)
	if err != nil {
		return 0, err
	}
	return db.storeResult(dest, m)
}
