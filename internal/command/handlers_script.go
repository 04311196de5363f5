package command

import (
	"context"
	"strconv"
	"strings"

	"github.com/ridgedb/ridgedb/internal/store"
	"github.com/ridgedb/ridgedb/pkg/resp"
)

func registerScriptCommands(t *Table) {
	t.register(&Command{Name: "EVAL", MinArgs: 2, MaxArgs: -1, Write: true, Handler: cmdEval})
	t.register(&Command{Name: "EVALSHA", MinArgs: 2, MaxArgs: -1, Write: true, Handler: cmdEvalSha})
	t.register(&Command{Name: "SCRIPT", MinArgs: 1, MaxArgs: -1, Handler: cmdScript})
}

// storeValueToResp renders a script's return value (any store.Value) as
// a wire reply, following the same per-Kind shape the typed operators
// use for their own results.
func storeValueToResp(v store.Value) resp.Value {
	switch v.Kind {
	case store.KindBytes:
		return resp.Bulk(v.Bytes)
	case store.KindList:
		return bulkBytesArray(v.List.ToSlice())
	case store.KindSet:
		ss := make([]string, 0, len(v.Set))
		for m := range v.Set {
			ss = append(ss, m)
		}
		return bulkStringsArray(ss)
	case store.KindHash:
		vs := make([]resp.Value, 0, len(v.Hash)*2)
		for k, val := range v.Hash {
			vs = append(vs, resp.BulkString(k), resp.BulkString(val))
		}
		return resp.Array(vs)
	case store.KindZSet:
		n := v.ZSet.Len()
		vs := make([]resp.Value, 0, n*2)
		for i := 0; i < n; i++ {
			member, score, _ := v.ZSet.ByRank(i)
			vs = append(vs, resp.BulkString(member), resp.BulkString(formatScore(score)))
		}
		return resp.Array(vs)
	default:
		return resp.NullBulk()
	}
}

func cmdEval(_ context.Context, c *Context, args []string) resp.Value {
	if c.Scripts == nil {
		return resp.Err("ERR scripting is not available")
	}
	keys, argv, errVal, ok := splitEvalArgs(args[1:])
	if !ok {
		return errVal
	}
	v, err := c.Scripts.Eval(c, []byte(args[0]), keys, argv)
	if err != nil {
		return resp.Err("ERR " + err.Error())
	}
	return storeValueToResp(v)
}

func cmdEvalSha(_ context.Context, c *Context, args []string) resp.Value {
	if c.Scripts == nil {
		return resp.Err("ERR scripting is not available")
	}
	source, ok := c.Scripts.Get(args[0])
	if !ok {
		return resp.Err("NOSCRIPT No matching script. Please use EVAL.")
	}
	keys, argv, errVal, kok := splitEvalArgs(args[1:])
	if !kok {
		return errVal
	}
	v, err := c.Scripts.Eval(c, source, keys, argv)
	if err != nil {
		return resp.Err("ERR " + err.Error())
	}
	return storeValueToResp(v)
}

func splitEvalArgs(args []string) (keys, argv []string, errVal resp.Value, ok bool) {
	if len(args) == 0 {
		return nil, nil, resp.Err("ERR wrong number of arguments for 'eval' command"), false
	}
	numKeys, err := strconv.Atoi(args[0])
	if err != nil || numKeys < 0 || numKeys+1 > len(args) {
		return nil, nil, resp.Err("ERR Number of keys can't be greater than number of args"), false
	}
	return args[1 : 1+numKeys], args[1+numKeys:], resp.Value{}, true
}

func cmdScript(_ context.Context, c *Context, args []string) resp.Value {
	if c.Scripts == nil {
		return resp.Err("ERR scripting is not available")
	}
	switch strings.ToUpper(args[0]) {
	case "LOAD":
		if len(args) != 2 {
			return resp.Err("ERR wrong number of arguments for 'script|load' command")
		}
		sha := c.Scripts.Load([]byte(args[1]))
		return resp.BulkString(sha)
	case "EXISTS":
		vs := make([]resp.Value, len(args)-1)
		for i, sha := range args[1:] {
			if _, ok := c.Scripts.Get(sha); ok {
				vs[i] = resp.Int(1)
			} else {
				vs[i] = resp.Int(0)
			}
		}
		return resp.Array(vs)
	case "FLUSH":
		c.Scripts.Flush()
		return resp.Status("OK")
	default:
		return resp.Err("ERR unknown SCRIPT subcommand")
	}
}
