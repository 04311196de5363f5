package command

import (
	"context"
	"strconv"

	"github.com/ridgedb/ridgedb/pkg/resp"
)

func registerHashCommands(t *Table) {
	t.register(&Command{Name: "HSET", MinArgs: 3, MaxArgs: -1, Write: true, Handler: cmdHSet})
	t.register(&Command{Name: "HMSET", MinArgs: 3, MaxArgs: -1, Write: true, Handler: cmdHMSet})
	t.register(&Command{Name: "HSETNX", MinArgs: 3, MaxArgs: 3, Write: true, Handler: cmdHSetNX})
	t.register(&Command{Name: "HGET", MinArgs: 2, MaxArgs: 2, Handler: cmdHGet})
	t.register(&Command{Name: "HMGET", MinArgs: 2, MaxArgs: -1, Handler: cmdHMGet})
	t.register(&Command{Name: "HDEL", MinArgs: 2, MaxArgs: -1, Write: true, Handler: cmdHDel})
	t.register(&Command{Name: "HEXISTS", MinArgs: 2, MaxArgs: 2, Handler: cmdHExists})
	t.register(&Command{Name: "HLEN", MinArgs: 1, MaxArgs: 1, Handler: cmdHLen})
	t.register(&Command{Name: "HGETALL", MinArgs: 1, MaxArgs: 1, Handler: cmdHGetAll})
	t.register(&Command{Name: "HKEYS", MinArgs: 1, MaxArgs: 1, Handler: cmdHKeys})
	t.register(&Command{Name: "HVALS", MinArgs: 1, MaxArgs: 1, Handler: cmdHVals})
	t.register(&Command{Name: "HSTRLEN", MinArgs: 2, MaxArgs: 2, Handler: cmdHStrLen})
	t.register(&Command{Name: "HINCRBY", MinArgs: 3, MaxArgs: 3, Write: true, Handler: cmdHIncrBy})
	t.register(&Command{Name: "HINCRBYFLOAT", MinArgs: 3, MaxArgs: 3, Write: true, Handler: cmdHIncrByFloat})
	t.register(&Command{Name: "HRANDFIELD", MinArgs: 1, MaxArgs: 3, Handler: cmdHRandField})
	t.register(&Command{Name: "HSCAN", MinArgs: 2, MaxArgs: -1, Handler: cmdHScan})
}

func fieldValuePairs(args []string) (map[string]string, bool) {
	if len(args)%2 != 0 {
		return nil, false
	}
	m := make(map[string]string, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		m[args[i]] = args[i+1]
	}
	return m, true
}

func cmdHSet(_ context.Context, c *Context, args []string) resp.Value {
	fields, ok := fieldValuePairs(args[1:])
	if !ok {
		return resp.Err("ERR wrong number of arguments for 'hset' command")
	}
	n, err := c.db().HSet(args[0], fields)
	if err != nil {
		return errToValue(err)
	}
	return intReply(n)
}

func cmdHMSet(_ context.Context, c *Context, args []string) resp.Value {
	fields, ok := fieldValuePairs(args[1:])
	if !ok {
		return resp.Err("ERR wrong number of arguments for 'hmset' command")
	}
	if _, err := c.db().HSet(args[0], fields); err != nil {
		return errToValue(err)
	}
	return resp.Status("OK")
}

func cmdHSetNX(_ context.Context, c *Context, args []string) resp.Value {
	ok, err := c.db().HSetNX(args[0], args[1], args[2])
	if err != nil {
		return errToValue(err)
	}
	if ok {
		return resp.Int(1)
	}
	return resp.Int(0)
}

func cmdHGet(_ context.Context, c *Context, args []string) resp.Value {
	v, ok, err := c.db().HGet(args[0], args[1])
	if err != nil {
		return errToValue(err)
	}
	if !ok {
		return resp.NullBulk()
	}
	return resp.BulkString(v)
}

func cmdHMGet(_ context.Context, c *Context, args []string) resp.Value {
	vals, found, err := c.db().HMGet(args[0], args[1:])
	if err != nil {
		return errToValue(err)
	}
	vs := make([]resp.Value, len(vals))
	for i := range vals {
		if !found[i] {
			vs[i] = resp.NullBulk()
		} else {
			vs[i] = resp.BulkString(vals[i])
		}
	}
	return resp.Array(vs)
}

func cmdHDel(_ context.Context, c *Context, args []string) resp.Value {
	n, err := c.db().HDel(args[0], args[1:])
	if err != nil {
		return errToValue(err)
	}
	return intReply(n)
}

func cmdHExists(_ context.Context, c *Context, args []string) resp.Value {
	ok, err := c.db().HExists(args[0], args[1])
	if err != nil {
		return errToValue(err)
	}
	if ok {
		return resp.Int(1)
	}
	return resp.Int(0)
}

func cmdHLen(_ context.Context, c *Context, args []string) resp.Value {
	n, err := c.db().HLen(args[0])
	if err != nil {
		return errToValue(err)
	}
	return intReply(n)
}

func cmdHGetAll(_ context.Context, c *Context, args []string) resp.Value {
	m, err := c.db().HGetAll(args[0])
	if err != nil {
		return errToValue(err)
	}
	vs := make([]resp.Value, 0, len(m)*2)
	for k, v := range m {
		vs = append(vs, resp.BulkString(k), resp.BulkString(v))
	}
	return resp.Array(vs)
}

func cmdHKeys(_ context.Context, c *Context, args []string) resp.Value {
	ks, err := c.db().HKeys(args[0])
	if err != nil {
		return errToValue(err)
	}
	return bulkStringsArray(ks)
}

func cmdHVals(_ context.Context, c *Context, args []string) resp.Value {
	vs, err := c.db().HVals(args[0])
	if err != nil {
		return errToValue(err)
	}
	return bulkStringsArray(vs)
}

func cmdHStrLen(_ context.Context, c *Context, args []string) resp.Value {
	v, ok, err := c.db().HGet(args[0], args[1])
	if err != nil {
		return errToValue(err)
	}
	if !ok {
		return resp.Int(0)
	}
	return resp.Int(int64(len(v)))
}

func cmdHIncrBy(_ context.Context, c *Context, args []string) resp.Value {
	delta, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil {
		return resp.Err("ERR value is not an integer or out of range")
	}
	n, serr := c.db().HIncrBy(args[0], args[1], delta)
	if serr != nil {
		return errToValue(serr)
	}
	return int64Reply(n)
}

func cmdHIncrByFloat(_ context.Context, c *Context, args []string) resp.Value {
	delta, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return resp.Err("ERR value is not a valid float")
	}
	n, serr := c.db().HIncrByFloat(args[0], args[1], delta)
	if serr != nil {
		return errToValue(serr)
	}
	return resp.BulkString(strconv.FormatFloat(n, 'f', -1, 64))
}

func cmdHRandField(_ context.Context, c *Context, args []string) resp.Value {
	if len(args) == 1 {
		vals, err := c.db().HRandField(args[0], 1, false)
		if err != nil {
			return errToValue(err)
		}
		if len(vals) == 0 {
			return resp.NullBulk()
		}
		return resp.BulkString(vals[0])
	}
	count, err := strconv.Atoi(args[1])
	if err != nil {
		return resp.Err("ERR value is not an integer or out of range")
	}
	withValues := len(args) == 3
	vals, serr := c.db().HRandField(args[0], count, withValues)
	if serr != nil {
		return errToValue(serr)
	}
	return bulkStringsArray(vals)
}

// HSCAN is implemented as a single full pass with no real cursor state —
// the keyspace lives entirely in memory so there is no I/O cost to scan
// all at once, and the cursor returned is always "0" (scan complete).
func cmdHScan(_ context.Context, c *Context, args []string) resp.Value {
	m, err := c.db().HGetAll(args[0])
	if err != nil {
		return errToValue(err)
	}
	vs := make([]resp.Value, 0, len(m)*2)
	for k, v := range m {
		vs = append(vs, resp.BulkString(k), resp.BulkString(v))
	}
	return resp.Array([]resp.Value{resp.BulkString("0"), resp.Array(vs)})
}
