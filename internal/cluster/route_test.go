package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func alwaysHasKey(string) bool { return true }
func neverHasKey(string) bool  { return false }

func TestRouteDisabledAlwaysProceeds(t *testing.T) {
	r := NewRegistry(false)
	res, err := r.Route([]string{"any-key"}, false, alwaysHasKey)
	require.NoError(t, err)
	assert.Equal(t, Proceed, res.Decision)
}

func TestRouteNoKeysProceeds(t *testing.T) {
	r := NewRegistry(true)
	res, err := r.Route(nil, false, alwaysHasKey)
	require.NoError(t, err)
	assert.Equal(t, Proceed, res.Decision)
}

func TestRouteCrossSlot(t *testing.T) {
	r := NewRegistry(true)
	a := "key0"
	var b string
	for i := 1; i < 100; i++ {
		cand := "key" + string(rune('0'+i%10)) + string(rune('a'+i%26))
		if KeySlot(cand) != KeySlot(a) {
			b = cand
			break
		}
	}
	require.NotEmpty(t, b, "expected to find a key landing in a different slot than %q", a)

	_, err := r.Route([]string{a, b}, false, alwaysHasKey)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CROSSSLOT")
}

func TestRouteClusterDownWhenUnassigned(t *testing.T) {
	r := NewRegistry(true)
	res, err := r.Route([]string{"somekey"}, false, alwaysHasKey)
	require.NoError(t, err)
	assert.Equal(t, ClusterDown, res.Decision)
}

func TestRouteProceedsWhenOwnedStable(t *testing.T) {
	r := NewRegistry(true)
	slot := KeySlot("somekey")
	r.AssignSlotsToNode(r.MyID(), []uint16{slot})

	res, err := r.Route([]string{"somekey"}, false, alwaysHasKey)
	require.NoError(t, err)
	assert.Equal(t, Proceed, res.Decision)
}

func TestRouteMovedWhenOwnedByAnother(t *testing.T) {
	r := NewRegistry(true)
	slot := KeySlot("somekey")
	r.AddNode(NewMasterNode("other", "10.0.0.5:6379"))
	r.AssignSlotsToNode("other", []uint16{slot})

	res, err := r.Route([]string{"somekey"}, false, alwaysHasKey)
	require.NoError(t, err)
	assert.Equal(t, Moved, res.Decision)
	assert.Equal(t, "10.0.0.5:6379", res.Addr)
}

func TestRouteMigratingKeyPresentProceeds(t *testing.T) {
	r := NewRegistry(true)
	slot := KeySlot("somekey")
	r.AssignSlotsToNode(r.MyID(), []uint16{slot})
	r.AddNode(NewMasterNode("dest", "10.0.0.6:6379"))
	r.SetSlotState(slot, Migrating, "dest")

	res, err := r.Route([]string{"somekey"}, false, alwaysHasKey)
	require.NoError(t, err)
	assert.Equal(t, Proceed, res.Decision)
}

func TestRouteMigratingKeyAbsentAsks(t *testing.T) {
	r := NewRegistry(true)
	slot := KeySlot("somekey")
	r.AssignSlotsToNode(r.MyID(), []uint16{slot})
	r.AddNode(NewMasterNode("dest", "10.0.0.6:6379"))
	r.SetSlotState(slot, Migrating, "dest")

	res, err := r.Route([]string{"somekey"}, false, neverHasKey)
	require.NoError(t, err)
	assert.Equal(t, Ask, res.Decision)
	assert.Equal(t, "10.0.0.6:6379", res.Addr)
	assert.Contains(t, res.Err(), "ASK")
}

func TestRouteImportingWithAskingProceeds(t *testing.T) {
	r := NewRegistry(true)
	slot := KeySlot("somekey")
	r.AssignSlotsToNode(r.MyID(), []uint16{slot})
	r.SetSlotState(slot, Importing, "src")

	res, err := r.Route([]string{"somekey"}, true, alwaysHasKey)
	require.NoError(t, err)
	assert.Equal(t, Proceed, res.Decision)
}

func TestRouteImportingWithoutAskingRedirectsSelf(t *testing.T) {
	r := NewRegistry(true)
	r.SetMyAddr("127.0.0.1:7000")
	slot := KeySlot("somekey")
	r.AssignSlotsToNode(r.MyID(), []uint16{slot})
	r.SetSlotState(slot, Importing, "src")

	res, err := r.Route([]string{"somekey"}, false, alwaysHasKey)
	require.NoError(t, err)
	assert.Equal(t, Moved, res.Decision, "without ASKING the client must be told to retry with ASKING")
	assert.Equal(t, "127.0.0.1:7000", res.Addr)
}

func TestRouteResultErrFormatsClusterDown(t *testing.T) {
	res := RouteResult{Decision: ClusterDown}
	assert.Equal(t, "CLUSTERDOWN Hash slot not served", res.Err())
}

func TestRouteResultErrProceedIsEmpty(t *testing.T) {
	res := RouteResult{Decision: Proceed}
	assert.Empty(t, res.Err())
}
