package resp

import (
	"bytes"
	"strconv"
)

// Encode is the inverse of Parse: it renders v on the wire exactly as
// specified in spec.md §4.1. Status/error strings containing CRLF are
// illegal on the wire (they would corrupt framing); callers that need to
// return arbitrary bytes as a "string-ish" reply must use Bulk instead —
// Encode defends against the mistake by bulk-framing any status/error
// string that contains a CR or LF byte rather than emitting broken output.
func (v Value) Encode() []byte {
	var buf bytes.Buffer
	v.encodeInto(&buf)
	return buf.Bytes()
}

func (v Value) encodeInto(buf *bytes.Buffer) {
	switch v.Kind {
	case KindStatus:
		if bytes.ContainsAny([]byte(v.Str), "\r\n") {
			Bulk([]byte(v.Str)).encodeInto(buf)
			return
		}
		buf.WriteByte('+')
		buf.WriteString(v.Str)
		buf.WriteString("\r\n")

	case KindError:
		if bytes.ContainsAny([]byte(v.Str), "\r\n") {
			Bulk([]byte(v.Str)).encodeInto(buf)
			return
		}
		buf.WriteByte('-')
		buf.WriteString(v.Str)
		buf.WriteString("\r\n")

	case KindInt:
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatInt(v.Int, 10))
		buf.WriteString("\r\n")

	case KindBulk:
		buf.WriteByte('$')
		if v.Bulk == nil {
			buf.WriteString("-1\r\n")
			return
		}
		buf.WriteString(strconv.Itoa(len(v.Bulk)))
		buf.WriteString("\r\n")
		buf.Write(v.Bulk)
		buf.WriteString("\r\n")

	case KindArray:
		buf.WriteByte('*')
		if v.Array == nil {
			buf.WriteString("-1\r\n")
			return
		}
		buf.WriteString(strconv.Itoa(len(v.Array)))
		buf.WriteString("\r\n")
		for _, elem := range v.Array {
			elem.encodeInto(buf)
		}

	case KindNull:
		buf.WriteString("_\r\n")

	case KindBool:
		buf.WriteByte('#')
		if v.Bool {
			buf.WriteByte('t')
		} else {
			buf.WriteByte('f')
		}
		buf.WriteString("\r\n")

	case KindDouble:
		buf.WriteByte(',')
		buf.WriteString(strconv.FormatFloat(v.Double, 'g', -1, 64))
		buf.WriteString("\r\n")
	}
}

// EncodeRequest frames a command invocation the way a client (or the
// durability log / replication stream) frames one: an array of bulk
// strings. This is also what internal/aof and internal/replication
// persist and propagate — the same bytes a client would have sent.
func EncodeRequest(args ...string) []byte {
	vs := make([]Value, len(args))
	for i, a := range args {
		vs[i] = BulkString(a)
	}
	return Array(vs).Encode()
}
