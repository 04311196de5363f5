package command

import (
	"context"
	"strconv"
	"strings"

	"github.com/ridgedb/ridgedb/internal/store"
	"github.com/ridgedb/ridgedb/pkg/resp"
)

func registerBitmapCommands(t *Table) {
	t.register(&Command{Name: "SETBIT", MinArgs: 3, MaxArgs: 3, Write: true, Handler: cmdSetBit})
	t.register(&Command{Name: "GETBIT", MinArgs: 2, MaxArgs: 2, Handler: cmdGetBit})
	t.register(&Command{Name: "BITCOUNT", MinArgs: 1, MaxArgs: -1, Handler: cmdBitCount})
	t.register(&Command{Name: "BITPOS", MinArgs: 2, MaxArgs: -1, Handler: cmdBitPos})
	t.register(&Command{Name: "BITOP", MinArgs: 3, MaxArgs: -1, Write: true, Handler: cmdBitOp})
}

func cmdSetBit(_ context.Context, c *Context, args []string) resp.Value {
	offset, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || offset < 0 || offset >= (1<<32) {
		return resp.Err("ERR bit offset is not an integer or out of range")
	}
	val, err := strconv.Atoi(args[2])
	if err != nil || (val != 0 && val != 1) {
		return resp.Err("ERR bit is not an integer or out of range")
	}
	old, serr := c.db().SetBit(args[0], offset, val)
	if serr != nil {
		return errToValue(serr)
	}
	return intReply(old)
}

func cmdGetBit(_ context.Context, c *Context, args []string) resp.Value {
	offset, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || offset < 0 || offset >= (1<<32) {
		return resp.Err("ERR bit offset is not an integer or out of range")
	}
	v, serr := c.db().GetBit(args[0], offset)
	if serr != nil {
		return errToValue(serr)
	}
	return intReply(v)
}

func cmdBitCount(_ context.Context, c *Context, args []string) resp.Value {
	hasRange := len(args) >= 3
	var start, end int
	if hasRange {
		var e1, e2 error
		start, e1 = strconv.Atoi(args[1])
		end, e2 = strconv.Atoi(args[2])
		if e1 != nil || e2 != nil {
			return resp.Err("ERR value is not an integer or out of range")
		}
	}
	n, err := c.db().BitCount(args[0], hasRange, start, end)
	if err != nil {
		return errToValue(err)
	}
	return intReply(n)
}

func cmdBitPos(_ context.Context, c *Context, args []string) resp.Value {
	target, err := strconv.Atoi(args[1])
	if err != nil || (target != 0 && target != 1) {
		return resp.Err("ERR The bit argument must be 1 or 0.")
	}
	hasRange := len(args) >= 4
	var start, end int
	if hasRange {
		var e1, e2 error
		start, e1 = strconv.Atoi(args[2])
		end, e2 = strconv.Atoi(args[3])
		if e1 != nil || e2 != nil {
			return resp.Err("ERR value is not an integer or out of range")
		}
	}
	n, serr := c.db().BitPos(args[0], target, hasRange, start, end)
	if serr != nil {
		return errToValue(serr)
	}
	return intReply(n)
}

func cmdBitOp(_ context.Context, c *Context, args []string) resp.Value {
	var op store.BitOpKind
	switch strings.ToUpper(args[0]) {
	case "AND":
		op = store.BitOpAnd
	case "OR":
		op = store.BitOpOr
	case "XOR":
		op = store.BitOpXor
	case "NOT":
		op = store.BitOpNot
	default:
		return resp.Err("ERR syntax error")
	}
	n, err := c.db().BitOp(op, args[1], args[2:])
	if err != nil {
		return errToValue(err)
	}
	return intReply(n)
}
