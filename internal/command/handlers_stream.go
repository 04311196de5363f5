package command

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/ridgedb/ridgedb/internal/store"
	"github.com/ridgedb/ridgedb/pkg/resp"
)

func durationFromMillis(ms int64) time.Duration {
	if ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

func registerStreamCommands(t *Table) {
	t.register(&Command{Name: "XADD", MinArgs: 4, MaxArgs: -1, Write: true, Handler: cmdXAdd})
	t.register(&Command{Name: "XLEN", MinArgs: 1, MaxArgs: 1, Handler: cmdXLen})
	t.register(&Command{Name: "XRANGE", MinArgs: 3, MaxArgs: 5, Handler: cmdXRange})
	t.register(&Command{Name: "XREVRANGE", MinArgs: 3, MaxArgs: 5, Handler: cmdXRevRange})
	t.register(&Command{Name: "XDEL", MinArgs: 2, MaxArgs: -1, Write: true, Handler: cmdXDel})
	t.register(&Command{Name: "XTRIM", MinArgs: 3, MaxArgs: -1, Write: true, Handler: cmdXTrim})
	t.register(&Command{Name: "XREAD", MinArgs: 3, MaxArgs: -1, Handler: cmdXRead})
}

func streamEntryToResp(e store.StreamEntry) resp.Value {
	vs := make([]resp.Value, 0, len(e.FieldOrder)*2)
	for _, f := range e.FieldOrder {
		vs = append(vs, resp.BulkString(f), resp.BulkString(e.Fields[f]))
	}
	return resp.Array([]resp.Value{
		resp.BulkString(store.FormatStreamID(e.ID)),
		resp.Array(vs),
	})
}

func streamEntriesToResp(es []store.StreamEntry) resp.Value {
	vs := make([]resp.Value, len(es))
	for i, e := range es {
		vs[i] = streamEntryToResp(e)
	}
	return resp.Array(vs)
}

func cmdXAdd(_ context.Context, c *Context, args []string) resp.Value {
	key := args[0]
	i := 1
	maxLen := -1
	trimApprox := false
	for i < len(args) {
		switch strings.ToUpper(args[i]) {
		case "MAXLEN":
			i++
			if i < len(args) && (args[i] == "~" || args[i] == "=") {
				trimApprox = args[i] == "~"
				i++
			}
			if i >= len(args) {
				return resp.Err("ERR syntax error")
			}
			n, err := strconv.Atoi(args[i])
			if err != nil {
				return resp.Err("ERR value is not an integer or out of range")
			}
			maxLen = n
			i++
		case "NOMKSTREAM":
			i++
		default:
			goto idField
		}
	}
idField:
	if i >= len(args) {
		return resp.Err("ERR wrong number of arguments for 'xadd' command")
	}
	idArg := args[i]
	i++
	rest := args[i:]
	if len(rest) == 0 || len(rest)%2 != 0 {
		return resp.Err("ERR wrong number of arguments for 'xadd' command")
	}
	fields := make(map[string]string, len(rest)/2)
	order := make([]string, 0, len(rest)/2)
	for j := 0; j < len(rest); j += 2 {
		if _, dup := fields[rest[j]]; !dup {
			order = append(order, rest[j])
		}
		fields[rest[j]] = rest[j+1]
	}

	auto := idArg == "*"
	var id store.StreamID
	if !auto {
		parsed, err := store.ParseStreamID(idArg)
		if err != nil {
			return resp.Err("ERR Invalid stream ID specified as stream command argument")
		}
		id = parsed
	}
	assigned, err := c.db().XAdd(key, id, auto, fields, order, c.NowMS(), maxLen, trimApprox)
	if err != nil {
		return errToValue(err)
	}
	return resp.BulkString(store.FormatStreamID(assigned))
}

func cmdXLen(_ context.Context, c *Context, args []string) resp.Value {
	n, err := c.db().XLen(args[0])
	if err != nil {
		return errToValue(err)
	}
	return intReply(n)
}

func parseRangeBound(s string, isStart bool) (store.StreamID, error) {
	excl := strings.HasPrefix(s, "(")
	if excl {
		s = s[1:]
	}
	id, err := store.ParseStreamID(s)
	if err != nil {
		return store.StreamID{}, err
	}
	if excl {
		if isStart {
			if id.Seq == ^uint64(0) {
				id = store.StreamID{MS: id.MS + 1, Seq: 0}
			} else {
				id.Seq++
			}
		} else {
			if id.Seq == 0 {
				if id.MS == 0 {
					return id, nil
				}
				id = store.StreamID{MS: id.MS - 1, Seq: ^uint64(0)}
			} else {
				id.Seq--
			}
		}
	}
	return id, nil
}

func cmdXRange(_ context.Context, c *Context, args []string) resp.Value {
	return xRange(c, args, false)
}

func cmdXRevRange(_ context.Context, c *Context, args []string) resp.Value {
	return xRange(c, args, true)
}

func xRange(c *Context, args []string, reverse bool) resp.Value {
	startArg, endArg := args[1], args[2]
	if reverse {
		startArg, endArg = args[2], args[1]
	}
	start, e1 := parseRangeBound(startArg, true)
	end, e2 := parseRangeBound(endArg, false)
	if e1 != nil || e2 != nil {
		return resp.Err("ERR Invalid stream ID specified as stream command argument")
	}
	count := -1
	if len(args) >= 5 && strings.EqualFold(args[3], "COUNT") {
		n, err := strconv.Atoi(args[4])
		if err != nil {
			return resp.Err("ERR value is not an integer or out of range")
		}
		count = n
	}
	es, err := c.db().XRange(args[0], start, end, count, reverse)
	if err != nil {
		return errToValue(err)
	}
	return streamEntriesToResp(es)
}

func cmdXDel(_ context.Context, c *Context, args []string) resp.Value {
	ids := make([]store.StreamID, len(args)-1)
	for i, s := range args[1:] {
		id, err := store.ParseStreamID(s)
		if err != nil {
			return resp.Err("ERR Invalid stream ID specified as stream command argument")
		}
		ids[i] = id
	}
	n, err := c.db().XDel(args[0], ids)
	if err != nil {
		return errToValue(err)
	}
	return intReply(n)
}

func cmdXTrim(_ context.Context, c *Context, args []string) resp.Value {
	i := 1
	if strings.EqualFold(args[i], "MAXLEN") {
		i++
	} else {
		return resp.Err("ERR syntax error")
	}
	if i < len(args) && (args[i] == "~" || args[i] == "=") {
		i++
	}
	if i >= len(args) {
		return resp.Err("ERR syntax error")
	}
	n, err := strconv.Atoi(args[i])
	if err != nil {
		return resp.Err("ERR value is not an integer or out of range")
	}
	removed, serr := c.db().XTrim(args[0], n)
	if serr != nil {
		return errToValue(serr)
	}
	return intReply(removed)
}

func cmdXRead(goctx context.Context, c *Context, args []string) resp.Value {
	i := 0
	count := -1
	var blockTimeout = struct {
		has bool
		d   int64
	}{}
	for i < len(args) {
		switch strings.ToUpper(args[i]) {
		case "COUNT":
			n, err := strconv.Atoi(args[i+1])
			if err != nil {
				return resp.Err("ERR value is not an integer or out of range")
			}
			count = n
			i += 2
		case "BLOCK":
			ms, err := strconv.ParseInt(args[i+1], 10, 64)
			if err != nil {
				return resp.Err("ERR timeout is not an integer or out of range")
			}
			blockTimeout.has = true
			blockTimeout.d = ms
			i += 2
		case "STREAMS":
			i++
			goto streams
		default:
			return resp.Err("ERR syntax error")
		}
	}
streams:
	rest := args[i:]
	if len(rest) == 0 || len(rest)%2 != 0 {
		return resp.Err("ERR Unbalanced XREAD list of streams: for each stream key an ID or '$' must be specified.")
	}
	n := len(rest) / 2
	keys := rest[:n]
	idArgs := rest[n:]
	afters := make([]store.StreamID, n)
	for j, k := range keys {
		if idArgs[j] == "$" {
			last, err := c.db().XLastID(k)
			if err != nil {
				return errToValue(err)
			}
			afters[j] = last
			continue
		}
		id, err := store.ParseStreamID(idArgs[j])
		if err != nil {
			return resp.Err("ERR Invalid stream ID specified as stream command argument")
		}
		afters[j] = id
	}

	readOnce := func() (resp.Value, bool) {
		var out []resp.Value
		for j, k := range keys {
			es, err := c.db().XRead(k, afters[j], count)
			if err != nil || len(es) == 0 {
				continue
			}
			out = append(out, resp.Array([]resp.Value{resp.BulkString(k), streamEntriesToResp(es)}))
		}
		if len(out) == 0 {
			return resp.Value{}, false
		}
		return resp.Array(out), true
	}

	if !blockTimeout.has {
		v, ok := readOnce()
		if !ok {
			return resp.NullArray()
		}
		return v
	}
	timeout := durationFromMillis(blockTimeout.d)
	return blockUntil(goctx, timeout, readOnce)
}
