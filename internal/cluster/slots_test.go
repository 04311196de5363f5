package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRC16KnownVectors(t *testing.T) {
	// Standard XMODEM CRC16 test vectors used by every Redis-cluster
	// compatible client to validate the table.
	assert.Equal(t, uint16(0x31C3), CRC16([]byte("123456789")))
	assert.Equal(t, uint16(0), CRC16(nil))
}

func TestHashTag(t *testing.T) {
	assert.Equal(t, "bar", HashTag("foo{bar}baz"))
	assert.Equal(t, "foo{}baz", HashTag("foo{}baz"), "empty braces are not a valid hash tag")
	assert.Equal(t, "foo{bar", HashTag("foo{bar"), "unbalanced braces fall back to the whole key")
	assert.Equal(t, "plainkey", HashTag("plainkey"))
	assert.Equal(t, "first", HashTag("{first}{second}"), "only the first balanced group counts")
}

func TestKeySlotHashTagsCollide(t *testing.T) {
	a := KeySlot("user:{1000}:profile")
	b := KeySlot("user:{1000}:orders")
	assert.Equal(t, a, b, "keys sharing a hash tag must land in the same slot")
}

func TestKeySlotInRange(t *testing.T) {
	for _, k := range []string{"a", "b", "some-long-key-name", "{tag}rest"} {
		s := KeySlot(k)
		assert.Less(t, s, uint16(NumSlots))
	}
}
