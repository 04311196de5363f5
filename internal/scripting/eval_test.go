package scripting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridgedb/ridgedb/internal/command"
	"github.com/ridgedb/ridgedb/internal/store"
	"github.com/ridgedb/ridgedb/internal/txn"
)

func newTestContext() *command.Context {
	table := command.NewTable()
	dbIndex := 0
	return &command.Context{
		Keyspace: store.NewKeyspace(1),
		DBIndex:  &dbIndex,
		Txn:      txn.NewState(),
		NowMS:    func() uint64 { return 0 },
		Table:    table,
	}
}

func TestLoadHashIsSHA1Length(t *testing.T) {
	c := New()
	sha := c.Load([]byte("'hello'"))
	assert.Len(t, sha, 40)
}

func TestLoadGetFlushRoundTrip(t *testing.T) {
	c := New()
	sha := c.Load([]byte("KEYS[0]"))

	src, ok := c.Get(sha)
	require.True(t, ok)
	assert.Equal(t, "KEYS[0]", string(src))

	c.Flush()
	_, ok = c.Get(sha)
	assert.False(t, ok)
}

func TestGetMissingShaNotFound(t *testing.T) {
	c := New()
	_, ok := c.Get("nonexistent")
	assert.False(t, ok)
}

func TestEvalReturnsLiteralString(t *testing.T) {
	c := New()
	ctx := newTestContext()

	v, err := c.Eval(ctx, []byte(`"hello"`), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, store.KindBytes, v.Kind)
	assert.Equal(t, "hello", string(v.Bytes))
}

func TestEvalReadsKeysAndArgv(t *testing.T) {
	c := New()
	ctx := newTestContext()

	v, err := c.Eval(ctx, []byte("KEYS[0] + ARGV[0]"), []string{"foo"}, []string{"bar"})
	require.NoError(t, err)
	assert.Equal(t, "foobar", string(v.Bytes))
}

func TestEvalCallSetThenGetRoundTrips(t *testing.T) {
	c := New()
	ctx := newTestContext()

	_, err := c.Eval(ctx, []byte(`call("SET", KEYS[0], ARGV[0])`), []string{"foo"}, []string{"bar"})
	require.NoError(t, err)

	v, err := c.Eval(ctx, []byte(`call("GET", KEYS[0])`), []string{"foo"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "bar", string(v.Bytes))
}

func TestEvalCallPropagatesCommandError(t *testing.T) {
	c := New()
	ctx := newTestContext()

	_, err := c.Eval(ctx, []byte(`call("NOTACOMMAND")`), nil, nil)
	assert.Error(t, err)
}

func TestEvalCachesScriptOnLoad(t *testing.T) {
	c := New()
	ctx := newTestContext()
	source := []byte(`"hi"`)

	_, err := c.Eval(ctx, source, nil, nil)
	require.NoError(t, err)

	sha := sha1Hex(source)
	src, ok := c.Get(sha)
	require.True(t, ok)
	assert.Equal(t, source, src)
}

func TestEvalCompileErrorIsReturned(t *testing.T) {
	c := New()
	ctx := newTestContext()

	_, err := c.Eval(ctx, []byte(`this is not valid expr syntax (((`), nil, nil)
	assert.Error(t, err)
}

func TestGoToStoreValueBool(t *testing.T) {
	v := goToStoreValue(true)
	assert.Equal(t, "1", string(v.Bytes))

	v = goToStoreValue(false)
	assert.Empty(t, v.Bytes)
}

func TestGoToStoreValueList(t *testing.T) {
	v := goToStoreValue([]any{"a", int64(1), nil})
	require.Equal(t, store.KindList, v.Kind)
	assert.Equal(t, [][]byte{[]byte("a"), []byte("1"), nil}, v.List.ToSlice())
}

func TestGoToStoreValueHash(t *testing.T) {
	v := goToStoreValue(map[string]any{"k": "v"})
	require.Equal(t, store.KindHash, v.Kind)
	assert.Equal(t, "v", v.Hash["k"])
}

func TestGoToStoreValueNil(t *testing.T) {
	v := goToStoreValue(nil)
	assert.Equal(t, store.KindBytes, v.Kind)
	assert.Nil(t, v.Bytes)
}
