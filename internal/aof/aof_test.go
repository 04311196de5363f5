package aof

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridgedb/ridgedb/internal/command"
	"github.com/ridgedb/ridgedb/internal/store"
)

func TestAppendAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ridgedb.aof")

	w, err := Open(path, SyncAlways)
	require.NoError(t, err)
	require.NoError(t, w.Append(0, []string{"SET", "foo", "bar"}))
	require.NoError(t, w.Append(1, []string{"SET", "baz", "qux"}))
	require.NoError(t, w.Close())

	table := command.NewTable()
	ks := store.NewKeyspace(4)
	n, err := Load(path, table, ks)
	require.NoError(t, err)
	assert.Equal(t, 4, n) // SELECT 0, SET foo, SELECT 1, SET baz

	v, ok := ks.DB(0).Get("foo")
	require.True(t, ok)
	assert.Equal(t, "bar", string(v.Bytes))

	v, ok = ks.DB(1).Get("baz")
	require.True(t, ok)
	assert.Equal(t, "qux", string(v.Bytes))
}

func TestLoadMissingFileIsNotError(t *testing.T) {
	table := command.NewTable()
	ks := store.NewKeyspace(1)
	n, err := Load(filepath.Join(t.TempDir(), "missing.aof"), table, ks)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRewriteCompactsToCurrentState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ridgedb.aof")

	w, err := Open(path, SyncAlways)
	require.NoError(t, err)
	require.NoError(t, w.Append(0, []string{"SET", "a", "1"}))
	require.NoError(t, w.Append(0, []string{"SET", "a", "2"}))
	require.NoError(t, w.Append(0, []string{"DEL", "a"}))
	require.NoError(t, w.Append(0, []string{"SET", "b", "keep"}))

	ks := store.NewKeyspace(1)
	ks.DB(0).Set("b", store.Value{Kind: store.KindBytes, Bytes: []byte("keep")}, false)

	require.NoError(t, Rewrite(ks, w, filepath.Join(dir, "rewrite.tmp")))
	require.NoError(t, w.Close())

	table := command.NewTable()
	ks2 := store.NewKeyspace(1)
	_, err = Load(path, table, ks2)
	require.NoError(t, err)

	v, ok := ks2.DB(0).Get("b")
	require.True(t, ok)
	assert.Equal(t, "keep", string(v.Bytes))
	assert.False(t, ks2.DB(0).Exists("a"))
}

func TestSnapshotWriteAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ridgedb.rdb")

	ks := store.NewKeyspace(2)
	ks.DB(0).Set("str", store.Value{Kind: store.KindBytes, Bytes: []byte("hello")}, false)
	ks.DB(1).Set("other", store.Value{Kind: store.KindBytes, Bytes: []byte("world")}, false)

	require.NoError(t, WriteSnapshot(ks, path))

	table := command.NewTable()
	ks2 := store.NewKeyspace(2)
	n, err := LoadSnapshot(path, table, ks2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	v, ok := ks2.DB(0).Get("str")
	require.True(t, ok)
	assert.Equal(t, "hello", string(v.Bytes))

	v, ok = ks2.DB(1).Get("other")
	require.True(t, ok)
	assert.Equal(t, "world", string(v.Bytes))
}
