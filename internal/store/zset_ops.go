package store

import "math"

// ZAddOpts mirrors ZADD's modifier flags (§4.3 "Sorted set operations").
type ZAddOpts struct {
	OnlyIfAbs     bool // NX
	OnlyIfPres    bool // XX
	GreaterOnly   bool // GT
	LessOnly      bool // LT
	ReturnChanged bool // CH
}

// ZAdd adds or updates members, returning the count the caller should
// report (added, or added+changed if ReturnChanged is set).
func (db *DB) ZAdd(key string, scores map[string]float64, opts ZAddOpts) (int, error) {
	e, err := db.GetOrCreate(key, KindZSet)
	if err != nil {
		return 0, err
	}
	sh := db.shardFor(key)
	sh.mu.Lock()
	added, changed := 0, 0
	for m, score := range scores {
		old, exists := e.val.ZSet.Score(m)
		if opts.OnlyIfAbs && exists {
			continue
		}
		if opts.OnlyIfPres && !exists {
			continue
		}
		if exists && opts.GreaterOnly && score <= old {
			continue
		}
		if exists && opts.LessOnly && score >= old {
			continue
		}
		isNew := e.val.ZSet.Add(m, score)
		if isNew {
			added++
		} else if old != score {
			changed++
		}
	}
	sh.mu.Unlock()
	if added > 0 || changed > 0 {
		db.bumpVersion(key)
	}
	if opts.ReturnChanged {
		return added + changed, nil
	}
	return added, nil
}

// ZRem removes members, returning how many existed.
func (db *DB) ZRem(key string, members []string) (int, error) {
	e, ok, err := db.Typed(key, KindZSet)
	if err != nil || !ok {
		return 0, err
	}
	sh := db.shardFor(key)
	sh.mu.Lock()
	removed := 0
	for _, m := range members {
		if e.val.ZSet.Remove(m) {
			removed++
		}
	}
	empty := e.val.ZSet.Len() == 0
	sh.mu.Unlock()
	if empty {
		db.Delete(key)
	} else if removed > 0 {
		db.bumpVersion(key)
	}
	return removed, nil
}

// ZScore returns the score of member.
func (db *DB) ZScore(key, member string) (float64, bool, error) {
	e, ok, err := db.Typed(key, KindZSet)
	if err != nil || !ok {
		return 0, false, err
	}
	sh := db.shardFor(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	s, found := e.val.ZSet.Score(member)
	return s, found, nil
}

// ZCard returns the number of members.
func (db *DB) ZCard(key string) (int, error) {
	e, ok, err := db.Typed(key, KindZSet)
	if err != nil || !ok {
		return 0, err
	}
	return e.val.ZSet.Len(), nil
}

// ZRank returns the ascending (or, if rev, descending) rank of member.
func (db *DB) ZRank(key, member string, rev bool) (int, bool, error) {
	e, ok, err := db.Typed(key, KindZSet)
	if err != nil || !ok {
		return 0, false, err
	}
	sh := db.shardFor(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	r, found := e.val.ZSet.Rank(member)
	if !found {
		return 0, false, nil
	}
	if rev {
		r = e.val.ZSet.Len() - 1 - r
	}
	return r, true, nil
}

// ZIncrBy adds delta to member's score (creating it at 0 first), and
// returns the new score.
func (db *DB) ZIncrBy(key, member string, delta float64) (float64, error) {
	e, err := db.GetOrCreate(key, KindZSet)
	if err != nil {
		return 0, err
	}
	sh := db.shardFor(key)
	sh.mu.Lock()
	cur, _ := e.val.ZSet.Score(member)
	next := cur + delta
	e.val.ZSet.Add(member, next)
	sh.mu.Unlock()
	db.bumpVersion(key)
	return next, nil
}

// ZMember pairs a member with its score for range-style replies.
type ZMember struct {
	Member string
	Score  float64
}

func fromEntries(es []zsetEntry) []ZMember {
	out := make([]ZMember, len(es))
	for i, e := range es {
		out[i] = ZMember{Member: e.member, Score: e.score}
	}
	return out
}

// ZRange returns members by rank range, ascending unless rev is set.
func (db *DB) ZRange(key string, start, stop int, rev bool) ([]ZMember, error) {
	e, ok, err := db.Typed(key, KindZSet)
	if err != nil || !ok {
		return nil, err
	}
	sh := db.shardFor(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	n := e.val.ZSet.Len()
	lo, hi := normalizeRange(start, stop, n)
	es := e.val.ZSet.Range(lo, hi-1)
	out := fromEntries(es)
	if rev {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

// ScoreRange bounds a ZRANGEBYSCORE-style query; Min/Max may be +/-Inf,
// and the exclusive flags implement the "(score" syntax (§4.3).
type ScoreRange struct {
	Min, Max         float64
	MinExcl, MaxExcl bool
}

// ZRangeByScore returns members with score in range, ascending unless
// rev is set, honoring an optional offset/count slice of the result.
func (db *DB) ZRangeByScore(key string, r ScoreRange, rev bool, offset, count int) ([]ZMember, error) {
	e, ok, err := db.Typed(key, KindZSet)
	if err != nil || !ok {
		return nil, err
	}
	sh := db.shardFor(key)
	sh.mu.RLock()
	all := e.val.ZSet.All()
	sh.mu.RUnlock()

	var out []ZMember
	for _, en := range all {
		if en.score < r.Min || (r.MinExcl && en.score == r.Min) {
			continue
		}
		if en.score > r.Max || (r.MaxExcl && en.score == r.Max) {
			continue
		}
		out = append(out, ZMember{Member: en.member, Score: en.score})
	}
	if rev {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return applyOffsetCount(out, offset, count), nil
}

func applyOffsetCount(in []ZMember, offset, count int) []ZMember {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(in) {
		return nil
	}
	in = in[offset:]
	if count >= 0 && count < len(in) {
		in = in[:count]
	}
	return in
}

// LexRange bounds a ZRANGEBYLEX-style query. Unbounded is used for "-"
// and "+".
type LexRange struct {
	Min, Max                   string
	MinExcl, MaxExcl           bool
	MinUnbounded, MaxUnbounded bool
}

func lexInRange(m string, r LexRange) bool {
	if !r.MinUnbounded {
		if m < r.Min || (r.MinExcl && m == r.Min) {
			return false
		}
	}
	if !r.MaxUnbounded {
		if m > r.Max || (r.MaxExcl && m == r.Max) {
			return false
		}
	}
	return true
}

// ZRangeByLex returns members in lexicographic range. Only meaningful
// when every member shares the same score, per §4.3.
func (db *DB) ZRangeByLex(key string, r LexRange, rev bool, offset, count int) ([]string, error) {
	e, ok, err := db.Typed(key, KindZSet)
	if err != nil || !ok {
		return nil, err
	}
	sh := db.shardFor(key)
	sh.mu.RLock()
	all := e.val.ZSet.All()
	sh.mu.RUnlock()

	var out []string
	for _, en := range all {
		if lexInRange(en.member, r) {
			out = append(out, en.member)
		}
	}
	if rev {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if count >= 0 && count < len(out) {
		out = out[:count]
	}
	return out, nil
}

// ZCount counts members with score in range.
func (db *DB) ZCount(key string, r ScoreRange) (int, error) {
	members, err := db.ZRangeByScore(key, r, false, 0, -1)
	if err != nil {
		return 0, err
	}
	return len(members), nil
}

// popZSet removes the count lowest- (or highest-) scoring members.
func (db *DB) popZSet(key string, min bool, count int) ([]ZMember, error) {
	e, ok, err := db.Typed(key, KindZSet)
	if err != nil || !ok {
		return nil, err
	}
	sh := db.shardFor(key)
	sh.mu.Lock()
	n := e.val.ZSet.Len()
	if count > n {
		count = n
	}
	var out []ZMember
	for i := 0; i < count; i++ {
		var idx int
		if min {
			idx = 0
		} else {
			idx = e.val.ZSet.Len() - 1
		}
		m, s, ok := e.val.ZSet.ByRank(idx)
		if !ok {
			break
		}
		e.val.ZSet.Remove(m)
		out = append(out, ZMember{Member: m, Score: s})
	}
	empty := e.val.ZSet.Len() == 0
	sh.mu.Unlock()
	if empty {
		db.Delete(key)
	} else if len(out) > 0 {
		db.bumpVersion(key)
	}
	return out, nil
}

func (db *DB) ZPopMin(key string, count int) ([]ZMember, error) { return db.popZSet(key, true, count) }
func (db *DB) ZPopMax(key string, count int) ([]ZMember, error) {
	return db.popZSet(key, false, count)
}

// ZAggregate is how ZUNIONSTORE/ZINTERSTORE combine scores across
// sources (§4.3).
type ZAggregate int

const (
	AggregateSum ZAggregate = iota
	AggregateMin
	AggregateMax
)

func combine(agg ZAggregate, a, b float64) float64 {
	switch agg {
	case AggregateMin:
		return math.Min(a, b)
	case AggregateMax:
		return math.Max(a, b)
	default:
		return a + b
	}
}

func (db *DB) loadZSetScores(key string) (map[string]float64, error) {
	out := make(map[string]float64)
	e, ok, err := db.Typed(key, KindZSet)
	if err != nil {
		return nil, err
	}
	if !ok {
		if ek, present := db.KindOf(key); present && ek == KindSet {
			members, _ := db.SMembers(key)
			for _, m := range members {
				out[m] = 1
			}
		}
		return out, nil
	}
	sh := db.shardFor(key)
	sh.mu.RLock()
	for _, en := range e.val.ZSet.All() {
		out[en.member] = en.score
	}
	sh.mu.RUnlock()
	return out, nil
}

// ZUnionStore/ZInterStore combine multiple sorted sets (or plain sets,
// treated as all-scores-1) with weights and an aggregation function,
// storing the result at dest.
func (db *DB) ZUnionStore(dest string, keys []string, weights []float64, agg ZAggregate) (int, error) {
	combined := make(map[string]float64)
	for i, k := range keys {
		scores, err := db.loadZSetScores(k)
		if err != nil {
			return 0, err
		}
		w := 1.0
		if i < len(weights) {
			w = weights[i]
		}
		for m, s := range scores {
			ws := s * w
			if cur, ok := combined[m]; ok {
				combined[m] = combine(agg, cur, ws)
			} else {
				combined[m] = ws
			}
		}
	}
	return db.storeZSet(dest, combined)
}

func (db *DB) ZInterStore(dest string, keys []string, weights []float64, agg ZAggregate) (int, error) {
	if len(keys) == 0 {
		db.Delete(dest)
		return 0, nil
	}
	sets := make([]map[string]float64, len(keys))
	for i, k := range keys {
		s, err := db.loadZSetScores(k)
		if err != nil {
			return 0, err
		}
		sets[i] = s
	}
	combined := make(map[string]float64)
	for m, s0 := range sets[0] {
		w0 := 1.0
		if len(weights) > 0 {
			w0 = weights[0]
		}
		acc := s0 * w0
		inAll := true
		for i := 1; i < len(sets); i++ {
			s, ok := sets[i][m]
			if !ok {
				inAll = false
				break
			}
			w := 1.0
			if i < len(weights) {
				w = weights[i]
			}
			acc = combine(agg, acc, s*w)
		}
		if inAll {
			combined[m] = acc
		}
	}
	return db.storeZSet(dest, combined)
}

// ZDiff returns members in keys[0] not present in any of keys[1:].
func (db *DB) ZDiff(keys []string) ([]ZMember, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	first, err := db.loadZSetScores(keys[0])
	if err != nil {
		return nil, err
	}
	excluded := make(map[string]struct{})
	for _, k := range keys[1:] {
		scores, err := db.loadZSetScores(k)
		if err != nil {
			return nil, err
		}
		for m := range scores {
			excluded[m] = struct{}{}
		}
	}
	var out []ZMember
	for m, s := range first {
		if _, ok := excluded[m]; !ok {
			out = append(out, ZMember{Member: m, Score: s})
		}
	}
	return out, nil
}

func (db *DB) ZDiffStore(dest string, keys []string) (int, error) {
	diff, err := db.ZDiff(keys)
	if err != nil {
		return 0, err
	}
	combined := make(map[string]float64, len(diff))
	for _, m := range diff {
		combined[m.Member] = m.Score
	}
	return db.storeZSet(dest, combined)
}

func (db *DB) storeZSet(dest string, scores map[string]float64) (int, error) {
	if len(scores) == 0 {
		db.Delete(dest)
		return 0, nil
	}
	z := NewZSet()
	for m, s := range scores {
		z.Add(m, s)
	}
	db.Set(dest, Value{Kind: KindZSet, ZSet: z}, false)
	return len(scores), nil
}
