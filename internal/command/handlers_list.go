package command

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/ridgedb/ridgedb/pkg/resp"
)

func registerListCommands(t *Table) {
	t.register(&Command{Name: "LPUSH", MinArgs: 2, MaxArgs: -1, Write: true, Handler: cmdLPush})
	t.register(&Command{Name: "RPUSH", MinArgs: 2, MaxArgs: -1, Write: true, Handler: cmdRPush})
	t.register(&Command{Name: "LPUSHX", MinArgs: 2, MaxArgs: -1, Write: true, Handler: cmdLPushX})
	t.register(&Command{Name: "RPUSHX", MinArgs: 2, MaxArgs: -1, Write: true, Handler: cmdRPushX})
	t.register(&Command{Name: "LPOP", MinArgs: 1, MaxArgs: 2, Write: true, Handler: cmdLPop})
	t.register(&Command{Name: "RPOP", MinArgs: 1, MaxArgs: 2, Write: true, Handler: cmdRPop})
	t.register(&Command{Name: "LLEN", MinArgs: 1, MaxArgs: 1, Handler: cmdLLen})
	t.register(&Command{Name: "LINDEX", MinArgs: 2, MaxArgs: 2, Handler: cmdLIndex})
	t.register(&Command{Name: "LSET", MinArgs: 3, MaxArgs: 3, Write: true, Handler: cmdLSet})
	t.register(&Command{Name: "LRANGE", MinArgs: 3, MaxArgs: 3, Handler: cmdLRange})
	t.register(&Command{Name: "LTRIM", MinArgs: 3, MaxArgs: 3, Write: true, Handler: cmdLTrim})
	t.register(&Command{Name: "LREM", MinArgs: 3, MaxArgs: 3, Write: true, Handler: cmdLRem})
	t.register(&Command{Name: "LPOS", MinArgs: 2, MaxArgs: -1, Handler: cmdLPos})
	t.register(&Command{Name: "LINSERT", MinArgs: 4, MaxArgs: 4, Write: true, Handler: cmdLInsert})
	t.register(&Command{Name: "LMOVE", MinArgs: 4, MaxArgs: 4, Write: true, Handler: cmdLMove})
	t.register(&Command{Name: "RPOPLPUSH", MinArgs: 2, MaxArgs: 2, Write: true, Handler: cmdRPopLPush})
	t.register(&Command{Name: "BLPOP", MinArgs: 2, MaxArgs: -1, Write: true, Handler: cmdBLPop})
	t.register(&Command{Name: "BRPOP", MinArgs: 2, MaxArgs: -1, Write: true, Handler: cmdBRPop})
	t.register(&Command{Name: "BLMOVE", MinArgs: 5, MaxArgs: 5, Write: true, Handler: cmdBLMove})
}

func cmdLPush(_ context.Context, c *Context, args []string) resp.Value {
	n, err := c.db().PushLeft(args[0], toBytes(args[1:])...)
	if err != nil {
		return errToValue(err)
	}
	return intReply(n)
}

func cmdRPush(_ context.Context, c *Context, args []string) resp.Value {
	n, err := c.db().PushRight(args[0], toBytes(args[1:])...)
	if err != nil {
		return errToValue(err)
	}
	return intReply(n)
}

func cmdLPushX(_ context.Context, c *Context, args []string) resp.Value {
	n, err := c.db().PushLeftExists(args[0], toBytes(args[1:])...)
	if err != nil {
		return errToValue(err)
	}
	return intReply(n)
}

func cmdRPushX(_ context.Context, c *Context, args []string) resp.Value {
	n, err := c.db().PushRightExists(args[0], toBytes(args[1:])...)
	if err != nil {
		return errToValue(err)
	}
	return intReply(n)
}

func popCount(args []string) (int, resp.Value, bool) {
	if len(args) < 2 {
		return 1, resp.Value{}, false
	}
	n, err := strconv.Atoi(args[1])
	if err != nil || n < 0 {
		return 0, resp.Err("ERR value is out of range, must be positive"), true
	}
	return n, resp.Value{}, false
}

func cmdLPop(_ context.Context, c *Context, args []string) resp.Value {
	n, errVal, hadErr := popCount(args)
	if hadErr {
		return errVal
	}
	explicit := len(args) >= 2
	vals, err := c.db().PopLeft(args[0], n)
	if err != nil {
		return errToValue(err)
	}
	if !explicit {
		if len(vals) == 0 {
			return resp.NullBulk()
		}
		return resp.Bulk(vals[0])
	}
	if vals == nil {
		return resp.NullArray()
	}
	return bulkBytesArray(vals)
}

func cmdRPop(_ context.Context, c *Context, args []string) resp.Value {
	n, errVal, hadErr := popCount(args)
	if hadErr {
		return errVal
	}
	explicit := len(args) >= 2
	vals, err := c.db().PopRight(args[0], n)
	if err != nil {
		return errToValue(err)
	}
	if !explicit {
		if len(vals) == 0 {
			return resp.NullBulk()
		}
		return resp.Bulk(vals[0])
	}
	if vals == nil {
		return resp.NullArray()
	}
	return bulkBytesArray(vals)
}

func cmdLLen(_ context.Context, c *Context, args []string) resp.Value {
	n, err := c.db().LLen(args[0])
	if err != nil {
		return errToValue(err)
	}
	return intReply(n)
}

func cmdLIndex(_ context.Context, c *Context, args []string) resp.Value {
	idx, err := strconv.Atoi(args[1])
	if err != nil {
		return resp.Err("ERR value is not an integer or out of range")
	}
	v, ok, serr := c.db().LIndex(args[0], idx)
	if serr != nil {
		return errToValue(serr)
	}
	return bulkOrNil(v, ok)
}

func cmdLSet(_ context.Context, c *Context, args []string) resp.Value {
	idx, err := strconv.Atoi(args[1])
	if err != nil {
		return resp.Err("ERR value is not an integer or out of range")
	}
	if serr := c.db().LSet(args[0], idx, []byte(args[2])); serr != nil {
		return errToValue(serr)
	}
	return resp.Status("OK")
}

func cmdLRange(_ context.Context, c *Context, args []string) resp.Value {
	start, e1 := strconv.Atoi(args[1])
	end, e2 := strconv.Atoi(args[2])
	if e1 != nil || e2 != nil {
		return resp.Err("ERR value is not an integer or out of range")
	}
	vals, err := c.db().LRange(args[0], start, end)
	if err != nil {
		return errToValue(err)
	}
	return bulkBytesArray(vals)
}

func cmdLTrim(_ context.Context, c *Context, args []string) resp.Value {
	start, e1 := strconv.Atoi(args[1])
	end, e2 := strconv.Atoi(args[2])
	if e1 != nil || e2 != nil {
		return resp.Err("ERR value is not an integer or out of range")
	}
	if err := c.db().LTrim(args[0], start, end); err != nil {
		return errToValue(err)
	}
	return resp.Status("OK")
}

func cmdLRem(_ context.Context, c *Context, args []string) resp.Value {
	count, err := strconv.Atoi(args[1])
	if err != nil {
		return resp.Err("ERR value is not an integer or out of range")
	}
	n, serr := c.db().LRem(args[0], count, []byte(args[2]))
	if serr != nil {
		return errToValue(serr)
	}
	return intReply(n)
}

func cmdLPos(_ context.Context, c *Context, args []string) resp.Value {
	key, val := args[0], args[1]
	rank, count := 1, 1
	wantArray := false
	i := 2
	for i < len(args) {
		switch strings.ToUpper(args[i]) {
		case "RANK":
			if i+1 >= len(args) {
				return resp.Err("ERR syntax error")
			}
			n, err := strconv.Atoi(args[i+1])
			if err != nil || n == 0 {
				return resp.Err("ERR RANK can't be zero")
			}
			rank = n
			i += 2
		case "COUNT":
			if i+1 >= len(args) {
				return resp.Err("ERR syntax error")
			}
			n, err := strconv.Atoi(args[i+1])
			if err != nil || n < 0 {
				return resp.Err("ERR COUNT can't be negative")
			}
			count = n
			wantArray = true
			i += 2
		default:
			return resp.Err("ERR syntax error")
		}
	}
	positions, err := c.db().LPos(key, []byte(val), rank, count)
	if err != nil {
		return errToValue(err)
	}
	if !wantArray {
		if len(positions) == 0 {
			return resp.NullBulk()
		}
		return resp.Int(int64(positions[0]))
	}
	vs := make([]resp.Value, len(positions))
	for i, p := range positions {
		vs[i] = resp.Int(int64(p))
	}
	return resp.Array(vs)
}

func cmdLInsert(_ context.Context, c *Context, args []string) resp.Value {
	var before bool
	switch strings.ToUpper(args[1]) {
	case "BEFORE":
		before = true
	case "AFTER":
		before = false
	default:
		return resp.Err("ERR syntax error")
	}
	n, err := c.db().LInsert(args[0], before, []byte(args[2]), []byte(args[3]))
	if err != nil {
		return errToValue(err)
	}
	return intReply(n)
}

func sideFlag(s string) (left bool, ok bool) {
	switch strings.ToUpper(s) {
	case "LEFT":
		return true, true
	case "RIGHT":
		return false, true
	default:
		return false, false
	}
}

func cmdLMove(_ context.Context, c *Context, args []string) resp.Value {
	fromLeft, ok1 := sideFlag(args[2])
	toLeft, ok2 := sideFlag(args[3])
	if !ok1 || !ok2 {
		return resp.Err("ERR syntax error")
	}
	v, ok, err := c.db().LMove(args[0], args[1], fromLeft, toLeft)
	if err != nil {
		return errToValue(err)
	}
	return bulkOrNil(v, ok)
}

func cmdRPopLPush(_ context.Context, c *Context, args []string) resp.Value {
	v, ok, err := c.db().LMove(args[0], args[1], false, true)
	if err != nil {
		return errToValue(err)
	}
	return bulkOrNil(v, ok)
}

const blockPollInterval = 10 * time.Millisecond

func parseTimeout(s string) (time.Duration, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0, resp.ErrMalformed
	}
	if f == 0 {
		return 0, nil // block forever
	}
	return time.Duration(f * float64(time.Second)), nil
}

// blockUntil polls fn every blockPollInterval until it returns ok==true,
// the timeout elapses, or goctx is cancelled — the poll-and-wake
// strategy recorded in DESIGN.md's Open Question decisions for every
// blocking command (BLPOP/BRPOP/BLMOVE/BZPOPMIN/BZPOPMAX/XREAD BLOCK).
func blockUntil(goctx context.Context, timeout time.Duration, fn func() (resp.Value, bool)) resp.Value {
	if v, ok := fn(); ok {
		return v
	}
	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}
	ticker := time.NewTicker(blockPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-goctx.Done():
			return resp.NullArray()
		case <-deadline:
			return resp.NullArray()
		case <-ticker.C:
			if v, ok := fn(); ok {
				return v
			}
		}
	}
}

func cmdBLPop(goctx context.Context, c *Context, args []string) resp.Value {
	return blockingPop(goctx, c, args, true)
}

func cmdBRPop(goctx context.Context, c *Context, args []string) resp.Value {
	return blockingPop(goctx, c, args, false)
}

func blockingPop(goctx context.Context, c *Context, args []string, left bool) resp.Value {
	keys := args[:len(args)-1]
	timeout, err := parseTimeout(args[len(args)-1])
	if err != nil {
		return resp.Err("ERR timeout is not a float or out of range")
	}
	return blockUntil(goctx, timeout, func() (resp.Value, bool) {
		for _, k := range keys {
			var vals [][]byte
			var perr error
			if left {
				vals, perr = c.db().PopLeft(k, 1)
			} else {
				vals, perr = c.db().PopRight(k, 1)
			}
			if perr != nil {
				continue
			}
			if len(vals) > 0 {
				return resp.Array([]resp.Value{resp.BulkString(k), resp.Bulk(vals[0])}), true
			}
		}
		return resp.Value{}, false
	})
}

func cmdBLMove(goctx context.Context, c *Context, args []string) resp.Value {
	src, dst := args[0], args[1]
	fromLeft, ok1 := sideFlag(args[2])
	toLeft, ok2 := sideFlag(args[3])
	if !ok1 || !ok2 {
		return resp.Err("ERR syntax error")
	}
	timeout, err := parseTimeout(args[4])
	if err != nil {
		return resp.Err("ERR timeout is not a float or out of range")
	}
	return blockUntil(goctx, timeout, func() (resp.Value, bool) {
		v, ok, perr := c.db().LMove(src, dst, fromLeft, toLeft)
		if perr != nil || !ok {
			return resp.Value{}, false
		}
		return resp.Bulk(v), true
	})
}

func toBytes(ss []string) [][]byte {
	out := make([][]byte, len(ss))
	for i, s := range ss {
		out[i] = []byte(s)
	}
	return out
}
