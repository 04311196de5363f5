package store

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringSetGet(t *testing.T) {
	db := NewDB()
	_, _, written, err := db.SetString("k", []byte("v1"), SetOpts{})
	require.NoError(t, err)
	assert.True(t, written)

	v, ok, err := db.GetString("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v1"), v)
}

func TestStringNXXX(t *testing.T) {
	db := NewDB()
	_, _, written, _ := db.SetString("k", []byte("v1"), SetOpts{OnlyIfPres: true})
	assert.False(t, written)

	_, _, written, _ = db.SetString("k", []byte("v1"), SetOpts{OnlyIfAbs: true})
	assert.True(t, written)

	_, _, written, _ = db.SetString("k", []byte("v2"), SetOpts{OnlyIfAbs: true})
	assert.False(t, written)
}

func TestWrongTypeError(t *testing.T) {
	db := NewDB()
	_, _ = db.PushRight("k", []byte("a"))
	_, _, err := db.GetString("k")
	assert.ErrorIs(t, err, ErrWrongType)
	assert.Equal(t, KindWrongType, As(err))
}

func TestIncrBy(t *testing.T) {
	db := NewDB()
	n, err := db.IncrBy("counter", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	n, err = db.IncrBy("counter", -2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestIncrByOverflow(t *testing.T) {
	db := NewDB()
	db.Set("counter", Value{Kind: KindBytes, Bytes: []byte("9223372036854775807")}, false)
	_, err := db.IncrBy("counter", 1)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestExpiry(t *testing.T) {
	db := NewDB()
	db.Set("k", Value{Kind: KindBytes, Bytes: []byte("v")}, false)
	ok := db.SetExpireAt("k", time.Now().Add(-time.Second))
	assert.True(t, ok)

	_, exists := db.Get("k")
	assert.False(t, exists)
}

func TestTTLNoExpiry(t *testing.T) {
	db := NewDB()
	db.Set("k", Value{Kind: KindBytes, Bytes: []byte("v")}, false)
	ttl, ok := db.TTL("k")
	require.True(t, ok)
	assert.Equal(t, time.Duration(-1), ttl)
}

func TestListPushPop(t *testing.T) {
	db := NewDB()
	n, err := db.PushRight("l", []byte("a"), []byte("b"), []byte("c"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	vals, err := db.LRange("l", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b"), []byte("c")}, vals)

	popped, err := db.PopLeft("l", 1)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("a")}, popped)
}

func TestListEmptyIsDeleted(t *testing.T) {
	db := NewDB()
	db.PushRight("l", []byte("a"))
	db.PopLeft("l", 1)
	assert.False(t, db.Exists("l"))
}

func TestHashOps(t *testing.T) {
	db := NewDB()
	created, err := db.HSet("h", map[string]string{"f1": "v1", "f2": "v2"})
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	v, ok, err := db.HGet("h", "f1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v1", v)

	removed, err := db.HDel("h", []string{"f1"})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func TestSetOps(t *testing.T) {
	db := NewDB()
	db.SAdd("s1", []string{"a", "b", "c"})
	db.SAdd("s2", []string{"b", "c", "d"})

	inter, err := db.SInter([]string{"s1", "s2"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b", "c"}, inter)

	union, err := db.SUnion([]string{"s1", "s2"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c", "d"}, union)

	diff, err := db.SDiff([]string{"s1", "s2"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a"}, diff)
}

func TestZSetRankAndRange(t *testing.T) {
	db := NewDB()
	db.ZAdd("z", map[string]float64{"a": 1, "b": 2, "c": 3}, ZAddOpts{})

	rank, ok, err := db.ZRank("z", "b", false)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, rank)

	members, err := db.ZRange("z", 0, -1, false)
	require.NoError(t, err)
	require.Len(t, members, 3)
	assert.Equal(t, "a", members[0].Member)
	assert.Equal(t, "c", members[2].Member)
}

func TestZSetByScore(t *testing.T) {
	db := NewDB()
	db.ZAdd("z", map[string]float64{"a": 1, "b": 2, "c": 3}, ZAddOpts{})
	members, err := db.ZRangeByScore("z", ScoreRange{Min: 2, Max: 3}, false, 0, -1)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestZUnionStoreWeighted(t *testing.T) {
	db := NewDB()
	db.ZAdd("z1", map[string]float64{"a": 1}, ZAddOpts{})
	db.ZAdd("z2", map[string]float64{"a": 2}, ZAddOpts{})
	n, err := db.ZUnionStore("dst", []string{"z1", "z2"}, []float64{1, 2}, AggregateSum)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	score, _, _ := db.ZScore("dst", "a")
	assert.Equal(t, float64(5), score)
}

func TestStreamAppendAndRange(t *testing.T) {
	db := NewDB()
	id1, err := db.XAdd("st", StreamID{}, true, map[string]string{"f": "1"}, []string{"f"}, 100, -1, false)
	require.NoError(t, err)
	id2, err := db.XAdd("st", StreamID{}, true, map[string]string{"f": "2"}, []string{"f"}, 100, -1, false)
	require.NoError(t, err)
	assert.True(t, id1.Less(id2))

	entries, err := db.XRange("st", StreamID{0, 0}, StreamID{maxUint64, maxUint64}, 0, false)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestStreamExplicitIDMustIncrease(t *testing.T) {
	db := NewDB()
	_, err := db.XAdd("st", StreamID{100, 0}, false, map[string]string{"f": "1"}, []string{"f"}, 0, -1, false)
	require.NoError(t, err)
	_, err = db.XAdd("st", StreamID{50, 0}, false, map[string]string{"f": "1"}, []string{"f"}, 0, -1, false)
	assert.Error(t, err)
}

func TestBitmap(t *testing.T) {
	db := NewDB()
	old, err := db.SetBit("bm", 7, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, old)

	bit, err := db.GetBit("bm", 7)
	require.NoError(t, err)
	assert.Equal(t, 1, bit)

	count, err := db.BitCount("bm", false, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestBitOpAnd(t *testing.T) {
	db := NewDB()
	db.Set("a", Value{Kind: KindBytes, Bytes: []byte{0xff}}, false)
	db.Set("b", Value{Kind: KindBytes, Bytes: []byte{0x0f}}, false)
	n, err := db.BitOp(BitOpAnd, "dst", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	v, _, _ := db.GetString("dst")
	assert.Equal(t, []byte{0x0f}, v)
}

func TestHyperLogLogCardinality(t *testing.T) {
	db := NewDB()
	elems := make([][]byte, 0, 10000)
	for i := 0; i < 10000; i++ {
		elems = append(elems, []byte("item:"+strconv.Itoa(i)))
	}
	_, err := db.PFAdd("h", elems)
	require.NoError(t, err)

	n, err := db.PFCount([]string{"h"})
	require.NoError(t, err)
	assert.InEpsilon(t, 10000, float64(n), 0.05)
}

func TestHyperLogLogMergeIdempotent(t *testing.T) {
	db := NewDB()
	db.PFAdd("a", [][]byte{[]byte("x"), []byte("y"), []byte("z")})
	before, _ := db.PFCount([]string{"a"})

	require.NoError(t, db.PFMerge("merged", []string{"a", "a"}))
	after, _ := db.PFCount([]string{"merged"})
	assert.Equal(t, before, after)
}

func TestGeoEncodeDecodeRoundTrip(t *testing.T) {
	lon, lat := 13.361389, 38.115556
	hash := EncodeGeoHash(lon, lat)
	gotLon, gotLat := DecodeGeoHash(hash)
	assert.InDelta(t, lon, gotLon, 1e-4)
	assert.InDelta(t, lat, gotLat, 1e-4)
}

func TestGeoDist(t *testing.T) {
	db := NewDB()
	db.GeoAdd("g", map[string][2]float64{
		"palermo": {13.361389, 38.115556},
		"catania": {15.087269, 37.502669},
	})
	dist, ok, err := db.GeoDist("g", "palermo", "catania", GeoKilometers)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 166.27, dist, 1.0)
}

func TestKeysGlob(t *testing.T) {
	db := NewDB()
	db.Set("foo:1", Value{Kind: KindBytes, Bytes: []byte("a")}, false)
	db.Set("foo:2", Value{Kind: KindBytes, Bytes: []byte("b")}, false)
	db.Set("bar:1", Value{Kind: KindBytes, Bytes: []byte("c")}, false)

	keys := db.Keys("foo:*")
	assert.ElementsMatch(t, []string{"foo:1", "foo:2"}, keys)
}

func TestVersionBumpsOnWrite(t *testing.T) {
	db := NewDB()
	v0 := db.Version("k")
	db.Set("k", Value{Kind: KindBytes, Bytes: []byte("a")}, false)
	v1 := db.Version("k")
	assert.Greater(t, v1, v0)
}
