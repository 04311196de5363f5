package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Adapted from the teacher's config.TestNodeList (internal/config/
// nodelist_test.go before this package absorbed the parser).
func TestParseNodeListContains(t *testing.T) {
	nl, err := ParseNodeList("hallo,wel123t,emmy[01-99],fritz[005-500],woody[100-200]")
	require.NoError(t, err)

	assert.False(t, nl.Contains("hello"))
	assert.False(t, nl.Contains("woody"))
	assert.False(t, nl.Contains("fritz1"))
	assert.False(t, nl.Contains("fritz9"))
	assert.False(t, nl.Contains("fritz004"))
	assert.False(t, nl.Contains("woody201"))

	assert.True(t, nl.Contains("hallo"))
	assert.True(t, nl.Contains("wel123t"))
	assert.True(t, nl.Contains("emmy01"))
	assert.True(t, nl.Contains("emmy42"))
	assert.True(t, nl.Contains("emmy99"))
	assert.True(t, nl.Contains("woody100"))
	assert.True(t, nl.Contains("woody199"))
}

func TestParseNodeListUnclosedBracket(t *testing.T) {
	_, err := ParseNodeList("bad[01-99")
	assert.Error(t, err)
}

func TestParseNodeListUnequalLengthRange(t *testing.T) {
	_, err := ParseNodeList("node[1-100]")
	assert.Error(t, err, "zero-padded ranges must have equal-length bounds")
}

func TestParseNodeListAddrRange(t *testing.T) {
	nl, err := ParseNodeList("10.0.0.[1-9]:6379,192.168.[0-1].[0-9]:7000")
	require.NoError(t, err)

	assert.True(t, nl.Contains("10.0.0.5:6379"))
	assert.False(t, nl.Contains("10.0.0.10:6379"))
	assert.True(t, nl.Contains("192.168.0.5:7000"))
	assert.True(t, nl.Contains("192.168.1.9:7000"))
}
