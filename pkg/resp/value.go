// Package resp implements the wire codec described in spec.md §4.1: a
// prefix-tagged, CRLF-terminated line protocol over byte buffers. The
// parser is restartable (it never blocks and never retains state across
// calls other than what the caller re-supplies), and is 8-bit clean inside
// bulk-string payloads.
package resp

import (
	"errors"
	"strconv"
)

// Kind identifies which of the eight wire tags a Value holds.
type Kind byte

const (
	KindStatus Kind = '+'
	KindError  Kind = '-'
	KindInt    Kind = ':'
	KindBulk   Kind = '$'
	KindArray  Kind = '*'
	KindNull   Kind = '_'
	KindBool   Kind = '#'
	KindDouble Kind = ','
)

// Value is a tagged union over the wire value forms of spec.md §4.1.
// Exactly one of the typed fields is meaningful for a given Kind:
//
//	KindStatus, KindError  -> Str
//	KindInt                -> Int
//	KindBulk               -> Bulk (nil means the RESP null bulk string)
//	KindArray              -> Array (nil means the RESP null array)
//	KindNull               -> (no payload)
//	KindBool               -> Bool
//	KindDouble             -> Double
type Value struct {
	Kind   Kind
	Str    string
	Int    int64
	Bulk   []byte
	Array  []Value
	Bool   bool
	Double float64
}

var (
	// ErrIncomplete signals the buffer does not yet hold a full frame;
	// the caller must read more bytes and retry from the same offset.
	ErrIncomplete = errors.New("resp: incomplete frame")
	// ErrMalformed signals a frame that can never become valid by adding
	// more bytes; the connection that produced it should be dropped.
	ErrMalformed = errors.New("resp: malformed frame")
)

func Status(s string) Value { return Value{Kind: KindStatus, Str: s} }
func Err(s string) Value    { return Value{Kind: KindError, Str: s} }
func Int(i int64) Value     { return Value{Kind: KindInt, Int: i} }
func Bulk(b []byte) Value   { return Value{Kind: KindBulk, Bulk: b} }
func NullBulk() Value       { return Value{Kind: KindBulk, Bulk: nil} }
func BulkString(s string) Value {
	return Value{Kind: KindBulk, Bulk: []byte(s)}
}
func Array(vs []Value) Value { return Value{Kind: KindArray, Array: vs} }
func NullArray() Value       { return Value{Kind: KindArray, Array: nil} }
func Null() Value            { return Value{Kind: KindNull} }
func Bool(b bool) Value      { return Value{Kind: KindBool, Bool: b} }
func Double(f float64) Value { return Value{Kind: KindDouble, Double: f} }

// IsNilBulk reports whether v is a $-framed null.
func (v Value) IsNilBulk() bool { return v.Kind == KindBulk && v.Bulk == nil }

// IsNilArray reports whether v is a *-framed null.
func (v Value) IsNilArray() bool { return v.Kind == KindArray && v.Array == nil }

// AsBytes returns the raw bytes of a bulk or status/error value, for
// commands that accept either framing for an argument.
func (v Value) AsBytes() ([]byte, bool) {
	switch v.Kind {
	case KindBulk:
		return v.Bulk, v.Bulk != nil
	case KindStatus, KindError:
		return []byte(v.Str), true
	default:
		return nil, false
	}
}

// StringArgs flattens a request array of bulk strings into plain strings,
// the shape every command handler consumes. Non-bulk elements are
// rejected — valid requests are always arrays of bulk strings (§6.1).
func (v Value) StringArgs() ([]string, error) {
	if v.Kind != KindArray || v.Array == nil {
		return nil, errors.New("resp: not a request array")
	}
	out := make([]string, len(v.Array))
	for i, elem := range v.Array {
		b, ok := elem.AsBytes()
		if !ok {
			return nil, errors.New("resp: request array element is not a bulk string")
		}
		out[i] = string(b)
	}
	return out, nil
}

// FormatInt renders i the way the codec writes it on the wire (plain
// decimal, no leading zeros, sign only when negative).
func FormatInt(i int64) string { return strconv.FormatInt(i, 10) }
