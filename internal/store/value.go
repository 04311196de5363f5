package store

import (
	"strconv"
	"time"
)

// FormatStreamID renders id in the canonical "ms-seq" wire form.
func FormatStreamID(id StreamID) string {
	return strconv.FormatUint(id.MS, 10) + "-" + strconv.FormatUint(id.Seq, 10)
}

// Kind tags the variant held in a Value, per spec.md §3.
type Kind int

const (
	KindBytes Kind = iota
	KindList
	KindSet
	KindHash
	KindZSet
	KindStream
)

func (k Kind) String() string {
	switch k {
	case KindBytes:
		return "string"
	case KindList:
		return "list"
	case KindSet:
		return "set"
	case KindHash:
		return "hash"
	case KindZSet:
		return "zset"
	case KindStream:
		return "stream"
	default:
		return "unknown"
	}
}

// listNode is one element of the doubly linked list backing KindList,
// giving O(1) push/pop at either end (§4.3 List).
type listNode struct {
	val        []byte
	prev, next *listNode
}

// List is a simple doubly linked list of byte strings.
type List struct {
	head, tail *listNode
	size       int
}

func (l *List) Len() int { return l.size }

func (l *List) PushLeft(v []byte) {
	n := &listNode{val: v}
	if l.head == nil {
		l.head, l.tail = n, n
	} else {
		n.next = l.head
		l.head.prev = n
		l.head = n
	}
	l.size++
}

func (l *List) PushRight(v []byte) {
	n := &listNode{val: v}
	if l.tail == nil {
		l.head, l.tail = n, n
	} else {
		n.prev = l.tail
		l.tail.next = n
		l.tail = n
	}
	l.size++
}

func (l *List) PopLeft() ([]byte, bool) {
	if l.head == nil {
		return nil, false
	}
	n := l.head
	l.head = n.next
	if l.head != nil {
		l.head.prev = nil
	} else {
		l.tail = nil
	}
	l.size--
	return n.val, true
}

func (l *List) PopRight() ([]byte, bool) {
	if l.tail == nil {
		return nil, false
	}
	n := l.tail
	l.tail = n.prev
	if l.tail != nil {
		l.tail.next = nil
	} else {
		l.head = nil
	}
	l.size--
	return n.val, true
}

func (l *List) nodeAt(idx int) *listNode {
	if idx < 0 || idx >= l.size {
		return nil
	}
	if idx <= l.size/2 {
		n := l.head
		for i := 0; i < idx; i++ {
			n = n.next
		}
		return n
	}
	n := l.tail
	for i := l.size - 1; i > idx; i-- {
		n = n.prev
	}
	return n
}

func (l *List) Index(idx int) ([]byte, bool) {
	n := l.nodeAt(idx)
	if n == nil {
		return nil, false
	}
	return n.val, true
}

func (l *List) SetIndex(idx int, v []byte) bool {
	n := l.nodeAt(idx)
	if n == nil {
		return false
	}
	n.val = v
	return true
}

// ToSlice materialises the full list, front to back.
func (l *List) ToSlice() [][]byte {
	out := make([][]byte, 0, l.size)
	for n := l.head; n != nil; n = n.next {
		out = append(out, n.val)
	}
	return out
}

func NewListFrom(vals [][]byte) *List {
	l := &List{}
	for _, v := range vals {
		l.PushRight(v)
	}
	return l
}

// InsertBefore/InsertAfter are used by LINSERT.
func (l *List) InsertBefore(idx int, v []byte) bool {
	n := l.nodeAt(idx)
	if n == nil {
		return false
	}
	nn := &listNode{val: v, prev: n.prev, next: n}
	if n.prev != nil {
		n.prev.next = nn
	} else {
		l.head = nn
	}
	n.prev = nn
	l.size++
	return true
}

func (l *List) InsertAfter(idx int, v []byte) bool {
	n := l.nodeAt(idx)
	if n == nil {
		return false
	}
	nn := &listNode{val: v, prev: n, next: n.next}
	if n.next != nil {
		n.next.prev = nn
	} else {
		l.tail = nn
	}
	n.next = nn
	l.size++
	return true
}

// RemoveAt deletes the node at idx (used internally by LREM).
func (l *List) RemoveAt(idx int) {
	n := l.nodeAt(idx)
	if n == nil {
		return
	}
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	l.size--
}

// ZSet maintains the member->score and (score,member)->{} indices of
// spec.md §3 "Sorted set specifics" together so every mutation keeps both
// consistent.
type ZSet struct {
	members map[string]float64
	order   []zsetEntry // kept sorted by (score, member)
}

type zsetEntry struct {
	member string
	score  float64
}

func NewZSet() *ZSet {
	return &ZSet{members: make(map[string]float64)}
}

func zsetLess(aScore float64, aMember string, bScore float64, bMember string) bool {
	if aScore != bScore {
		return aScore < bScore
	}
	return aMember < bMember
}

func (z *ZSet) search(score float64, member string) int {
	lo, hi := 0, len(z.order)
	for lo < hi {
		mid := (lo + hi) / 2
		if zsetLess(z.order[mid].score, z.order[mid].member, score, member) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// Add inserts or updates member's score; returns true if member was new.
func (z *ZSet) Add(member string, score float64) bool {
	if old, ok := z.members[member]; ok {
		if old == score {
			return false
		}
		i := z.search(old, member)
		z.order = append(z.order[:i], z.order[i+1:]...)
		z.members[member] = score
		j := z.search(score, member)
		z.order = append(z.order, zsetEntry{})
		copy(z.order[j+1:], z.order[j:])
		z.order[j] = zsetEntry{member, score}
		return false
	}
	z.members[member] = score
	j := z.search(score, member)
	z.order = append(z.order, zsetEntry{})
	copy(z.order[j+1:], z.order[j:])
	z.order[j] = zsetEntry{member, score}
	return true
}

func (z *ZSet) Remove(member string) bool {
	score, ok := z.members[member]
	if !ok {
		return false
	}
	i := z.search(score, member)
	z.order = append(z.order[:i], z.order[i+1:]...)
	delete(z.members, member)
	return true
}

func (z *ZSet) Score(member string) (float64, bool) {
	s, ok := z.members[member]
	return s, ok
}

func (z *ZSet) Len() int { return len(z.order) }

// Rank returns the zero-based ascending rank of member.
func (z *ZSet) Rank(member string) (int, bool) {
	score, ok := z.members[member]
	if !ok {
		return 0, false
	}
	return z.search(score, member), true
}

func (z *ZSet) ByRank(i int) (string, float64, bool) {
	if i < 0 || i >= len(z.order) {
		return "", 0, false
	}
	e := z.order[i]
	return e.member, e.score, true
}

// Range returns entries in ascending order for [start,stop] inclusive,
// rank-based, after Redis-style negative-index normalisation by the
// caller.
func (z *ZSet) Range(start, stop int) []zsetEntry {
	n := len(z.order)
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || n == 0 {
		return nil
	}
	out := make([]zsetEntry, stop-start+1)
	copy(out, z.order[start:stop+1])
	return out
}

// All returns every (member, score) in ascending order.
func (z *ZSet) All() []zsetEntry {
	out := make([]zsetEntry, len(z.order))
	copy(out, z.order)
	return out
}

// StreamID is a (ms, seq) identifier per spec.md §3 "Stream id ordering".
type StreamID struct {
	MS  uint64
	Seq uint64
}

func (a StreamID) Less(b StreamID) bool {
	if a.MS != b.MS {
		return a.MS < b.MS
	}
	return a.Seq < b.Seq
}

func (a StreamID) Equal(b StreamID) bool { return a.MS == b.MS && a.Seq == b.Seq }

func (a StreamID) String() string {
	return FormatStreamID(a)
}

type StreamEntry struct {
	ID     StreamID
	Fields map[string]string
	// FieldOrder preserves insertion order for deterministic XRANGE output.
	FieldOrder []string
}

// Stream is an ordered map of ids to field-value maps with monotonic id
// assignment (§3 "Stream id ordering").
type Stream struct {
	entries  []StreamEntry // kept sorted by ID ascending
	lastID   StreamID
	maxDelID StreamID
}

func NewStream() *Stream { return &Stream{} }

func (s *Stream) Len() int { return len(s.entries) }

func (s *Stream) LastID() StreamID { return s.lastID }

func (s *Stream) search(id StreamID) int {
	lo, hi := 0, len(s.entries)
	for lo < hi {
		mid := (lo + hi) / 2
		if s.entries[mid].ID.Less(id) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// NextID computes the auto-assigned id per spec.md §3.
func (s *Stream) NextID(nowMS uint64) StreamID {
	ms := s.lastID.MS
	if nowMS > ms {
		ms = nowMS
	}
	if ms == s.lastID.MS {
		return StreamID{MS: ms, Seq: s.lastID.Seq + 1}
	}
	return StreamID{MS: ms, Seq: 0}
}

// Append inserts entry if id strictly exceeds the last assigned id.
func (s *Stream) Append(id StreamID, fields map[string]string, order []string) bool {
	if !s.lastID.Less(id) && !(s.lastID == StreamID{}) {
		return false
	}
	if s.lastID.Less(id) || (s.lastID == StreamID{} && s.Len() == 0) {
		s.entries = append(s.entries, StreamEntry{ID: id, Fields: fields, FieldOrder: order})
		s.lastID = id
		return true
	}
	return false
}

func (s *Stream) Range(start, end StreamID, count int) []StreamEntry {
	i := s.search(start)
	var out []StreamEntry
	for ; i < len(s.entries); i++ {
		e := s.entries[i]
		if end.Less(e.ID) {
			break
		}
		out = append(out, e)
		if count > 0 && len(out) >= count {
			break
		}
	}
	return out
}

func (s *Stream) Delete(id StreamID) bool {
	i := s.search(id)
	if i < len(s.entries) && s.entries[i].ID.Equal(id) {
		s.entries = append(s.entries[:i], s.entries[i+1:]...)
		return true
	}
	return false
}

// Trim keeps at most maxLen newest entries, returning the number removed.
func (s *Stream) Trim(maxLen int) int {
	if len(s.entries) <= maxLen {
		return 0
	}
	n := len(s.entries) - maxLen
	s.entries = s.entries[n:]
	return n
}

func (s *Stream) All() []StreamEntry {
	out := make([]StreamEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Value is the tagged union of spec.md §3. Exactly one field is
// meaningful per Kind. HyperLogLog values are stored as ordinary Bytes
// (§3: "identified structurally" — see internal/store/hll_ops.go); bitmaps
// likewise reuse Bytes; geo reuses ZSet.
type Value struct {
	Kind  Kind
	Bytes []byte
	List  *List
	Set   map[string]struct{}
	Hash  map[string]string
	ZSet  *ZSet
	Strm  *Stream
}

// entry is what the keyspace actually stores per key: the value plus an
// optional absolute expiry time.
type entry struct {
	val      Value
	expireAt time.Time // zero value means no expiry
	hasTTL   bool
}
