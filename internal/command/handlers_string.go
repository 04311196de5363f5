package command

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/ridgedb/ridgedb/internal/store"
	"github.com/ridgedb/ridgedb/pkg/resp"
)

func registerStringCommands(t *Table) {
	t.register(&Command{Name: "SET", MinArgs: 2, MaxArgs: -1, Write: true, Handler: cmdSet, FirstKey: 1, LastKey: 1, KeyStep: 1})
	t.register(&Command{Name: "GET", MinArgs: 1, MaxArgs: 1, Handler: cmdGet, FirstKey: 1, LastKey: 1, KeyStep: 1})
	t.register(&Command{Name: "GETDEL", MinArgs: 1, MaxArgs: 1, Write: true, Handler: cmdGetDel, FirstKey: 1, LastKey: 1, KeyStep: 1})
	t.register(&Command{Name: "GETEX", MinArgs: 1, MaxArgs: -1, Write: true, Handler: cmdGetEx, FirstKey: 1, LastKey: 1, KeyStep: 1})
	t.register(&Command{Name: "SETNX", MinArgs: 2, MaxArgs: 2, Write: true, Handler: cmdSetNX, FirstKey: 1, LastKey: 1, KeyStep: 1})
	t.register(&Command{Name: "SETEX", MinArgs: 3, MaxArgs: 3, Write: true, Handler: cmdSetEx, FirstKey: 1, LastKey: 1, KeyStep: 1})
	t.register(&Command{Name: "PSETEX", MinArgs: 3, MaxArgs: 3, Write: true, Handler: cmdPSetEx, FirstKey: 1, LastKey: 1, KeyStep: 1})
	t.register(&Command{Name: "APPEND", MinArgs: 2, MaxArgs: 2, Write: true, Handler: cmdAppend, FirstKey: 1, LastKey: 1, KeyStep: 1})
	t.register(&Command{Name: "STRLEN", MinArgs: 1, MaxArgs: 1, Handler: cmdStrLen, FirstKey: 1, LastKey: 1, KeyStep: 1})
	t.register(&Command{Name: "INCR", MinArgs: 1, MaxArgs: 1, Write: true, Handler: cmdIncr, FirstKey: 1, LastKey: 1, KeyStep: 1})
	t.register(&Command{Name: "DECR", MinArgs: 1, MaxArgs: 1, Write: true, Handler: cmdDecr, FirstKey: 1, LastKey: 1, KeyStep: 1})
	t.register(&Command{Name: "INCRBY", MinArgs: 2, MaxArgs: 2, Write: true, Handler: cmdIncrBy, FirstKey: 1, LastKey: 1, KeyStep: 1})
	t.register(&Command{Name: "DECRBY", MinArgs: 2, MaxArgs: 2, Write: true, Handler: cmdDecrBy, FirstKey: 1, LastKey: 1, KeyStep: 1})
	t.register(&Command{Name: "INCRBYFLOAT", MinArgs: 2, MaxArgs: 2, Write: true, Handler: cmdIncrByFloat, FirstKey: 1, LastKey: 1, KeyStep: 1})
	t.register(&Command{Name: "GETRANGE", MinArgs: 3, MaxArgs: 3, Handler: cmdGetRange, FirstKey: 1, LastKey: 1, KeyStep: 1})
	t.register(&Command{Name: "SETRANGE", MinArgs: 3, MaxArgs: 3, Write: true, Handler: cmdSetRange, FirstKey: 1, LastKey: 1, KeyStep: 1})
	t.register(&Command{Name: "MGET", MinArgs: 1, MaxArgs: -1, Handler: cmdMGet, FirstKey: 1, LastKey: -1, KeyStep: 1})
	t.register(&Command{Name: "MSET", MinArgs: 2, MaxArgs: -1, Write: true, Handler: cmdMSet, FirstKey: 1, LastKey: -1, KeyStep: 2})
	t.register(&Command{Name: "MSETNX", MinArgs: 2, MaxArgs: -1, Write: true, Handler: cmdMSetNX, FirstKey: 1, LastKey: -1, KeyStep: 2})
}

func cmdSet(_ context.Context, c *Context, args []string) resp.Value {
	key, val := args[0], args[1]
	opts := store.SetOpts{}
	i := 2
	for i < len(args) {
		switch strings.ToUpper(args[i]) {
		case "NX":
			opts.OnlyIfAbs = true
			i++
		case "XX":
			opts.OnlyIfPres = true
			i++
		case "KEEPTTL":
			opts.KeepTTL = true
			i++
		case "GET":
			opts.ReturnOld = true
			i++
		case "EX", "PX", "EXAT", "PXAT":
			if i+1 >= len(args) {
				return resp.Err("ERR syntax error")
			}
			n, err := strconv.ParseInt(args[i+1], 10, 64)
			if err != nil {
				return resp.Err("ERR value is not an integer or out of range")
			}
			opts.HasExpire = true
			switch strings.ToUpper(args[i]) {
			case "EX":
				opts.ExpireAt = time.Now().Add(time.Duration(n) * time.Second)
			case "PX":
				opts.ExpireAt = time.Now().Add(time.Duration(n) * time.Millisecond)
			case "EXAT":
				opts.ExpireAt = time.Unix(n, 0)
			case "PXAT":
				opts.ExpireAt = time.UnixMilli(n)
			}
			i += 2
		default:
			return resp.Err("ERR syntax error")
		}
	}
	if opts.OnlyIfAbs && opts.OnlyIfPres {
		return resp.Err("ERR syntax error")
	}

	old, hadOld, written, err := c.db().SetString(key, []byte(val), opts)
	if err != nil {
		return errToValue(err)
	}
	if opts.ReturnOld {
		if !written && !hadOld {
			return resp.NullBulk()
		}
		return bulkOrNil(old, hadOld)
	}
	if !written {
		return resp.NullBulk()
	}
	return resp.Status("OK")
}

func cmdGet(_ context.Context, c *Context, args []string) resp.Value {
	v, ok, err := c.db().GetString(args[0])
	if err != nil {
		return errToValue(err)
	}
	return bulkOrNil(v, ok)
}

func cmdGetDel(_ context.Context, c *Context, args []string) resp.Value {
	v, ok, err := c.db().GetDel(args[0])
	if err != nil {
		return errToValue(err)
	}
	return bulkOrNil(v, ok)
}

func cmdGetEx(_ context.Context, c *Context, args []string) resp.Value {
	key := args[0]
	v, ok, err := c.db().GetString(key)
	if err != nil {
		return errToValue(err)
	}
	if !ok {
		return resp.NullBulk()
	}
	i := 1
	for i < len(args) {
		switch strings.ToUpper(args[i]) {
		case "PERSIST":
			c.db().Persist(key)
			i++
		case "EX", "PX", "EXAT", "PXAT":
			if i+1 >= len(args) {
				return resp.Err("ERR syntax error")
			}
			n, perr := strconv.ParseInt(args[i+1], 10, 64)
			if perr != nil {
				return resp.Err("ERR value is not an integer or out of range")
			}
			var at time.Time
			switch strings.ToUpper(args[i]) {
			case "EX":
				at = time.Now().Add(time.Duration(n) * time.Second)
			case "PX":
				at = time.Now().Add(time.Duration(n) * time.Millisecond)
			case "EXAT":
				at = time.Unix(n, 0)
			case "PXAT":
				at = time.UnixMilli(n)
			}
			c.db().SetExpireAt(key, at)
			i += 2
		default:
			return resp.Err("ERR syntax error")
		}
	}
	return resp.Bulk(v)
}

func cmdSetNX(_ context.Context, c *Context, args []string) resp.Value {
	_, _, written, err := c.db().SetString(args[0], []byte(args[1]), store.SetOpts{OnlyIfAbs: true})
	if err != nil {
		return errToValue(err)
	}
	if written {
		return resp.Int(1)
	}
	return resp.Int(0)
}

func cmdSetEx(_ context.Context, c *Context, args []string) resp.Value {
	return setWithSeconds(c, args, time.Second)
}

func cmdPSetEx(_ context.Context, c *Context, args []string) resp.Value {
	return setWithSeconds(c, args, time.Millisecond)
}

func setWithSeconds(c *Context, args []string, unit time.Duration) resp.Value {
	n, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return resp.Err("ERR value is not an integer or out of range")
	}
	opts := store.SetOpts{HasExpire: true, ExpireAt: time.Now().Add(time.Duration(n) * unit)}
	_, _, _, serr := c.db().SetString(args[0], []byte(args[2]), opts)
	if serr != nil {
		return errToValue(serr)
	}
	return resp.Status("OK")
}

func cmdAppend(_ context.Context, c *Context, args []string) resp.Value {
	n, err := c.db().Append(args[0], []byte(args[1]))
	if err != nil {
		return errToValue(err)
	}
	return intReply(n)
}

func cmdStrLen(_ context.Context, c *Context, args []string) resp.Value {
	n, err := c.db().StrLen(args[0])
	if err != nil {
		return errToValue(err)
	}
	return intReply(n)
}

func cmdIncr(_ context.Context, c *Context, args []string) resp.Value {
	n, err := c.db().IncrBy(args[0], 1)
	if err != nil {
		return errToValue(err)
	}
	return int64Reply(n)
}

func cmdDecr(_ context.Context, c *Context, args []string) resp.Value {
	n, err := c.db().IncrBy(args[0], -1)
	if err != nil {
		return errToValue(err)
	}
	return int64Reply(n)
}

func cmdIncrBy(_ context.Context, c *Context, args []string) resp.Value {
	delta, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return resp.Err("ERR value is not an integer or out of range")
	}
	n, serr := c.db().IncrBy(args[0], delta)
	if serr != nil {
		return errToValue(serr)
	}
	return int64Reply(n)
}

func cmdDecrBy(_ context.Context, c *Context, args []string) resp.Value {
	delta, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return resp.Err("ERR value is not an integer or out of range")
	}
	n, serr := c.db().IncrBy(args[0], -delta)
	if serr != nil {
		return errToValue(serr)
	}
	return int64Reply(n)
}

func cmdIncrByFloat(_ context.Context, c *Context, args []string) resp.Value {
	delta, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return resp.Err("ERR value is not a valid float")
	}
	n, serr := c.db().IncrByFloat(args[0], delta)
	if serr != nil {
		return errToValue(serr)
	}
	return resp.BulkString(strconv.FormatFloat(n, 'f', -1, 64))
}

func cmdGetRange(_ context.Context, c *Context, args []string) resp.Value {
	start, err1 := strconv.Atoi(args[1])
	end, err2 := strconv.Atoi(args[2])
	if err1 != nil || err2 != nil {
		return resp.Err("ERR value is not an integer or out of range")
	}
	b, err := c.db().GetRange(args[0], start, end)
	if err != nil {
		return errToValue(err)
	}
	return resp.Bulk(b)
}

func cmdSetRange(_ context.Context, c *Context, args []string) resp.Value {
	offset, err := strconv.Atoi(args[1])
	if err != nil || offset < 0 {
		return resp.Err("ERR offset is out of range")
	}
	n, serr := c.db().SetRange(args[0], offset, []byte(args[2]))
	if serr != nil {
		return errToValue(serr)
	}
	return intReply(n)
}

func cmdMGet(_ context.Context, c *Context, args []string) resp.Value {
	vs := make([]resp.Value, len(args))
	for i, k := range args {
		v, ok, err := c.db().GetString(k)
		if err != nil || !ok {
			vs[i] = resp.NullBulk()
			continue
		}
		vs[i] = resp.Bulk(v)
	}
	return resp.Array(vs)
}

func cmdMSet(_ context.Context, c *Context, args []string) resp.Value {
	if len(args)%2 != 0 {
		return resp.Err("ERR wrong number of arguments for 'mset' command")
	}
	for i := 0; i < len(args); i += 2 {
		c.db().Set(args[i], store.Value{Kind: store.KindBytes, Bytes: []byte(args[i+1])}, false)
	}
	return resp.Status("OK")
}

func cmdMSetNX(_ context.Context, c *Context, args []string) resp.Value {
	if len(args)%2 != 0 {
		return resp.Err("ERR wrong number of arguments for 'msetnx' command")
	}
	for i := 0; i < len(args); i += 2 {
		if c.db().Exists(args[i]) {
			return resp.Int(0)
		}
	}
	for i := 0; i < len(args); i += 2 {
		c.db().Set(args[i], store.Value{Kind: store.KindBytes, Bytes: []byte(args[i+1])}, false)
	}
	return resp.Int(1)
}
