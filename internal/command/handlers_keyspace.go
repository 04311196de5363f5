package command

import (
	"context"
	"math/rand"
	"strconv"
	"time"

	"github.com/ridgedb/ridgedb/pkg/resp"
)

func registerKeyspaceCommands(t *Table) {
	t.register(&Command{Name: "DEL", MinArgs: 1, MaxArgs: -1, Write: true, Handler: cmdDel, FirstKey: 1, LastKey: -1, KeyStep: 1})
	t.register(&Command{Name: "EXISTS", MinArgs: 1, MaxArgs: -1, Handler: cmdExists, FirstKey: 1, LastKey: -1, KeyStep: 1})
	t.register(&Command{Name: "TYPE", MinArgs: 1, MaxArgs: 1, Handler: cmdType, FirstKey: 1, LastKey: 1, KeyStep: 1})
	t.register(&Command{Name: "KEYS", MinArgs: 1, MaxArgs: 1, Handler: cmdKeys})
	t.register(&Command{Name: "EXPIRE", MinArgs: 2, MaxArgs: 3, Write: true, Handler: cmdExpire, FirstKey: 1, LastKey: 1, KeyStep: 1})
	t.register(&Command{Name: "PEXPIRE", MinArgs: 2, MaxArgs: 3, Write: true, Handler: cmdPExpire, FirstKey: 1, LastKey: 1, KeyStep: 1})
	t.register(&Command{Name: "EXPIREAT", MinArgs: 2, MaxArgs: 3, Write: true, Handler: cmdExpireAt, FirstKey: 1, LastKey: 1, KeyStep: 1})
	t.register(&Command{Name: "PEXPIREAT", MinArgs: 2, MaxArgs: 3, Write: true, Handler: cmdPExpireAt, FirstKey: 1, LastKey: 1, KeyStep: 1})
	t.register(&Command{Name: "TTL", MinArgs: 1, MaxArgs: 1, Handler: cmdTTL, FirstKey: 1, LastKey: 1, KeyStep: 1})
	t.register(&Command{Name: "PTTL", MinArgs: 1, MaxArgs: 1, Handler: cmdPTTL, FirstKey: 1, LastKey: 1, KeyStep: 1})
	t.register(&Command{Name: "PERSIST", MinArgs: 1, MaxArgs: 1, Write: true, Handler: cmdPersist, FirstKey: 1, LastKey: 1, KeyStep: 1})
	t.register(&Command{Name: "FLUSHDB", MinArgs: 0, MaxArgs: 1, Write: true, Handler: cmdFlushDB})
	t.register(&Command{Name: "FLUSHALL", MinArgs: 0, MaxArgs: 1, Write: true, Handler: cmdFlushAll})
	t.register(&Command{Name: "SELECT", MinArgs: 1, MaxArgs: 1, Write: true, Handler: cmdSelect})
	t.register(&Command{Name: "DBSIZE", MinArgs: 0, MaxArgs: 0, Handler: cmdDBSize})
	t.register(&Command{Name: "RANDOMKEY", MinArgs: 0, MaxArgs: 0, Handler: cmdRandomKey})
}

func cmdDel(_ context.Context, c *Context, args []string) resp.Value {
	n := 0
	for _, k := range args {
		if c.db().Delete(k) {
			n++
		}
	}
	return intReply(n)
}

func cmdExists(_ context.Context, c *Context, args []string) resp.Value {
	n := 0
	for _, k := range args {
		if c.db().Exists(k) {
			n++
		}
	}
	return intReply(n)
}

func cmdType(_ context.Context, c *Context, args []string) resp.Value {
	kind, ok := c.db().KindOf(args[0])
	if !ok {
		return resp.Status("none")
	}
	return resp.Status(kind.String())
}

func cmdKeys(_ context.Context, c *Context, args []string) resp.Value {
	ks := c.db().Keys(args[0])
	return bulkStringsArray(ks)
}

func parseExpireFlags(args []string) (nx, xx, gt, lt bool, ok bool) {
	ok = true
	for _, a := range args {
		switch a {
		case "NX":
			nx = true
		case "XX":
			xx = true
		case "GT":
			gt = true
		case "LT":
			lt = true
		default:
			ok = false
		}
	}
	return
}

func applyExpire(c *Context, key string, at time.Time, flags []string) resp.Value {
	nx, xx, gt, lt, ok := parseExpireFlags(flags)
	if !ok || (nx && (xx || gt || lt)) || (gt && lt) {
		return resp.Err("ERR NX and XX, GT or LT options at the same time are not compatible")
	}
	if nx || xx || gt || lt {
		cur, has := c.db().TTL(key)
		if !c.db().Exists(key) {
			return resp.Int(0)
		}
		if nx && has && cur != -1 {
			return resp.Int(0)
		}
		if xx && (!has || cur == -1) {
			return resp.Int(0)
		}
		if gt || lt {
			if !has || cur == -1 {
				if gt {
					return resp.Int(0)
				}
			} else {
				curAt := time.Now().Add(cur)
				if gt && !at.After(curAt) {
					return resp.Int(0)
				}
				if lt && !at.Before(curAt) {
					return resp.Int(0)
				}
			}
		}
	}
	if c.db().SetExpireAt(key, at) {
		return resp.Int(1)
	}
	return resp.Int(0)
}

func cmdExpire(_ context.Context, c *Context, args []string) resp.Value {
	n, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return resp.Err("ERR value is not an integer or out of range")
	}
	return applyExpire(c, args[0], time.Now().Add(time.Duration(n)*time.Second), args[2:])
}

func cmdPExpire(_ context.Context, c *Context, args []string) resp.Value {
	n, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return resp.Err("ERR value is not an integer or out of range")
	}
	return applyExpire(c, args[0], time.Now().Add(time.Duration(n)*time.Millisecond), args[2:])
}

func cmdExpireAt(_ context.Context, c *Context, args []string) resp.Value {
	n, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return resp.Err("ERR value is not an integer or out of range")
	}
	return applyExpire(c, args[0], time.Unix(n, 0), args[2:])
}

func cmdPExpireAt(_ context.Context, c *Context, args []string) resp.Value {
	n, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return resp.Err("ERR value is not an integer or out of range")
	}
	return applyExpire(c, args[0], time.UnixMilli(n), args[2:])
}

func cmdTTL(_ context.Context, c *Context, args []string) resp.Value {
	d, ok := c.db().TTL(args[0])
	if !ok {
		return resp.Int(-2)
	}
	if d == -1 {
		return resp.Int(-1)
	}
	return resp.Int(int64(d / time.Second))
}

func cmdPTTL(_ context.Context, c *Context, args []string) resp.Value {
	d, ok := c.db().TTL(args[0])
	if !ok {
		return resp.Int(-2)
	}
	if d == -1 {
		return resp.Int(-1)
	}
	return resp.Int(int64(d / time.Millisecond))
}

func cmdPersist(_ context.Context, c *Context, args []string) resp.Value {
	if c.db().Persist(args[0]) {
		return resp.Int(1)
	}
	return resp.Int(0)
}

func cmdFlushDB(_ context.Context, c *Context, _ []string) resp.Value {
	c.db().Clear()
	return resp.Status("OK")
}

func cmdFlushAll(_ context.Context, c *Context, _ []string) resp.Value {
	c.Keyspace.FlushAll()
	return resp.Status("OK")
}

func cmdSelect(_ context.Context, c *Context, args []string) resp.Value {
	idx, err := strconv.Atoi(args[0])
	if err != nil {
		return resp.Err("ERR value is not an integer or out of range")
	}
	if idx < 0 || idx >= c.Keyspace.NumDB() {
		return resp.Err("ERR DB index is out of range")
	}
	*c.DBIndex = idx
	return resp.Status("OK")
}

func cmdDBSize(_ context.Context, c *Context, _ []string) resp.Value {
	return intReply(c.db().Len())
}

func cmdRandomKey(_ context.Context, c *Context, _ []string) resp.Value {
	ks := c.db().Keys("*")
	if len(ks) == 0 {
		return resp.NullBulk()
	}
	return resp.BulkString(ks[rand.Intn(len(ks))])
}
