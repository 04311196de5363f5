package resp

import "testing"

import "github.com/stretchr/testify/assert"

func TestParseSimpleString(t *testing.T) {
	v, n, err := Parse([]byte("+OK\r\n"))
	assert.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, Status("OK"), v)
}

func TestParseError(t *testing.T) {
	v, _, err := Parse([]byte("-ERR unknown command\r\n"))
	assert.NoError(t, err)
	assert.Equal(t, Err("ERR unknown command"), v)
}

func TestParseInteger(t *testing.T) {
	v, _, err := Parse([]byte(":1000\r\n"))
	assert.NoError(t, err)
	assert.Equal(t, Int(1000), v)

	v, _, err = Parse([]byte(":-456\r\n"))
	assert.NoError(t, err)
	assert.Equal(t, Int(-456), v)
}

func TestParseBulkString(t *testing.T) {
	v, _, err := Parse([]byte("$6\r\nfoobar\r\n"))
	assert.NoError(t, err)
	assert.Equal(t, Bulk([]byte("foobar")), v)

	v, _, err = Parse([]byte("$-1\r\n"))
	assert.NoError(t, err)
	assert.True(t, v.IsNilBulk())

	v, _, err = Parse([]byte("$0\r\n\r\n"))
	assert.NoError(t, err)
	assert.Equal(t, Bulk([]byte{}), v)
}

func TestParseArray(t *testing.T) {
	v, _, err := Parse([]byte("*2\r\n$3\r\nfoo\r\n$3\r\nbar\r\n"))
	assert.NoError(t, err)
	assert.Equal(t, Array([]Value{Bulk([]byte("foo")), Bulk([]byte("bar"))}), v)

	v, _, err = Parse([]byte("*-1\r\n"))
	assert.NoError(t, err)
	assert.True(t, v.IsNilArray())

	v, _, err = Parse([]byte("*0\r\n"))
	assert.NoError(t, err)
	assert.Equal(t, Array([]Value{}), v)
}

func TestParseNestedArray(t *testing.T) {
	v, _, err := Parse([]byte("*2\r\n*2\r\n:1\r\n:2\r\n*1\r\n:3\r\n"))
	assert.NoError(t, err)
	assert.Equal(t, Array([]Value{
		Array([]Value{Int(1), Int(2)}),
		Array([]Value{Int(3)}),
	}), v)
}

func TestParseBinarySafe(t *testing.T) {
	data := []byte("$7\r\n\x00\x01\x02\xff\xfe\xfd\x03\r\n")
	v, _, err := Parse(data)
	assert.NoError(t, err)
	assert.Equal(t, Bulk([]byte{0x00, 0x01, 0x02, 0xff, 0xfe, 0xfd, 0x03}), v)
}

func TestParseIncomplete(t *testing.T) {
	_, _, err := Parse([]byte("+OK"))
	assert.ErrorIs(t, err, ErrIncomplete)

	_, _, err = Parse([]byte("$6\r\nfoo"))
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestParseInvalid(t *testing.T) {
	_, _, err := Parse([]byte("?invalid\r\n"))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestResp3NullAndBool(t *testing.T) {
	v, _, err := Parse([]byte("_\r\n"))
	assert.NoError(t, err)
	assert.Equal(t, Null(), v)

	v, _, err = Parse([]byte("#t\r\n"))
	assert.NoError(t, err)
	assert.Equal(t, Bool(true), v)
}

func TestResp3Double(t *testing.T) {
	v, _, err := Parse([]byte(",3.14159\r\n"))
	assert.NoError(t, err)
	assert.Equal(t, Double(3.14159), v)
}

func TestEncodeRoundTrip(t *testing.T) {
	cases := []Value{
		Status("OK"),
		Err("ERR bad"),
		Int(42),
		Bulk([]byte("hello")),
		NullBulk(),
		Array([]Value{Int(1), Bulk([]byte("a"))}),
		NullArray(),
		Null(),
		Bool(true),
		Double(-0.5),
	}
	for _, v := range cases {
		encoded := v.Encode()
		decoded, n, err := Parse(encoded)
		assert.NoError(t, err)
		assert.Equal(t, len(encoded), n)
		assert.Equal(t, v, decoded)
	}
}

func TestEncodeRequest(t *testing.T) {
	b := EncodeRequest("SET", "foo", "bar")
	assert.Equal(t, "*3\r\n$3\r\nSET\r\n$3\r\nfoo\r\n$3\r\nbar\r\n", string(b))
}

func TestStringArgs(t *testing.T) {
	v := Array([]Value{Bulk([]byte("SET")), Bulk([]byte("foo")), Bulk([]byte("bar"))})
	args, err := v.StringArgs()
	assert.NoError(t, err)
	assert.Equal(t, []string{"SET", "foo", "bar"}, args)
}
