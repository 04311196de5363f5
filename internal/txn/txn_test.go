package txn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVersions struct{ m map[string]uint64 }

func (f *fakeVersions) Version(key string) uint64 { return f.m[key] }

func TestMultiQueueExec(t *testing.T) {
	s := NewState()
	require.True(t, s.Multi())
	require.False(t, s.Multi()) // nested MULTI rejected

	require.True(t, s.Queue(RawRequest{Name: "SET", Args: []string{"k", "v"}}))

	fv := &fakeVersions{m: map[string]uint64{}}
	queue, aborted, ok := s.CheckAndClear(func(int) versionSource { return fv })
	require.True(t, ok)
	assert.False(t, aborted)
	assert.Len(t, queue, 1)
	assert.False(t, s.InMulti())
}

func TestWatchAbortsOnVersionChange(t *testing.T) {
	s := NewState()
	fv := &fakeVersions{m: map[string]uint64{"k": 1}}
	require.True(t, s.Watch(0, "k", fv))

	require.True(t, s.Multi())
	require.True(t, s.Queue(RawRequest{Name: "GET", Args: []string{"k"}}))

	fv.m["k"] = 2 // concurrent write bumps the version
	_, aborted, ok := s.CheckAndClear(func(int) versionSource { return fv })
	require.True(t, ok)
	assert.True(t, aborted)
}

func TestWatchSurvivesUnrelatedWrite(t *testing.T) {
	s := NewState()
	fv := &fakeVersions{m: map[string]uint64{"k": 1, "other": 1}}
	s.Watch(0, "k", fv)
	s.Multi()
	s.Queue(RawRequest{Name: "GET", Args: []string{"k"}})

	fv.m["other"] = 2
	queue, aborted, ok := s.CheckAndClear(func(int) versionSource { return fv })
	require.True(t, ok)
	assert.False(t, aborted)
	assert.Len(t, queue, 1)
}

func TestDiscard(t *testing.T) {
	s := NewState()
	s.Multi()
	s.Queue(RawRequest{Name: "SET", Args: []string{"k", "v"}})
	require.True(t, s.Discard())
	assert.False(t, s.InMulti())
	assert.False(t, s.Discard())
}

func TestDirtyQueueAborts(t *testing.T) {
	s := NewState()
	s.Multi()
	s.MarkDirty()
	fv := &fakeVersions{m: map[string]uint64{}}
	_, aborted, ok := s.CheckAndClear(func(int) versionSource { return fv })
	require.True(t, ok)
	assert.True(t, aborted)
}

func TestUnwatchClearsWithoutMulti(t *testing.T) {
	s := NewState()
	fv := &fakeVersions{m: map[string]uint64{"k": 5}}
	s.Watch(0, "k", fv)
	s.Unwatch()

	s.Multi()
	s.Queue(RawRequest{Name: "GET", Args: []string{"k"}})
	fv.m["k"] = 6
	_, aborted, ok := s.CheckAndClear(func(int) versionSource { return fv })
	require.True(t, ok)
	assert.False(t, aborted)
}
