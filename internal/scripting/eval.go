package scripting

import (
	"context"
	"fmt"

	"github.com/expr-lang/expr"

	"github.com/ridgedb/ridgedb/internal/command"
	"github.com/ridgedb/ridgedb/internal/store"
	"github.com/ridgedb/ridgedb/pkg/log"
	"github.com/ridgedb/ridgedb/pkg/resp"
)

// Eval compiles and runs source once, the way EVAL in script_cmds.rs
// loads the script into the cache before handing it to the engine. KEYS
// and ARGV are exposed as env variables; call(name, args...) re-enters
// the dispatcher so the script can read and write the keyspace it was
// invoked against.
func (c *Cache) Eval(ctx *command.Context, source []byte, keys, argv []string) (store.Value, error) {
	c.Load(source)

	env := map[string]any{
		"KEYS": keys,
		"ARGV": argv,
		"call": func(args ...any) (any, error) {
			return dispatchCall(ctx, args)
		},
	}

	program, err := expr.Compile(string(source), expr.Env(env))
	if err != nil {
		return store.Value{}, fmt.Errorf("compile: %w", err)
	}

	out, err := expr.Run(program, env)
	if err != nil {
		return store.Value{}, fmt.Errorf("run: %w", err)
	}

	return goToStoreValue(out), nil
}

// dispatchCall runs one command through ctx.Table, the same table the
// connection's own dispatch loop uses, so a script observes exactly the
// routing, arity checks and write bookkeeping a normal client would.
func dispatchCall(ctx *command.Context, args []any) (any, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("call requires a command name")
	}
	strArgs := make([]string, len(args))
	for i, a := range args {
		strArgs[i] = fmt.Sprint(a)
	}

	log.Debugf("scripting: call %v", strArgs)
	reply, _ := ctx.Table.Dispatch(context.Background(), ctx, strArgs)
	if reply.Kind == resp.KindError {
		return nil, fmt.Errorf("%s", reply.Str)
	}
	return respToAny(reply), nil
}

// respToAny converts a wire reply back into the plain Go value a script
// expression sees, mirroring Lua scripting's RESP-to-Lua-type table
// (status -> {ok=...}, here just the string; bulk/array/int/etc. as the
// obvious Go equivalent).
func respToAny(v resp.Value) any {
	switch v.Kind {
	case resp.KindStatus:
		return v.Str
	case resp.KindInt:
		return v.Int
	case resp.KindBulk:
		if v.IsNilBulk() {
			return nil
		}
		return string(v.Bulk)
	case resp.KindArray:
		if v.IsNilArray() {
			return nil
		}
		out := make([]any, len(v.Array))
		for i, e := range v.Array {
			out[i] = respToAny(e)
		}
		return out
	case resp.KindBool:
		return v.Bool
	case resp.KindDouble:
		return v.Double
	default:
		return nil
	}
}

// goToStoreValue renders an expression's result as a store.Value, the
// shape storeValueToResp (internal/command/handlers_script.go) already
// knows how to put on the wire. Scalars become bulk strings, the same
// coarsening Lua-to-RESP conversion does for numbers and booleans;
// slices and maps become a list/hash of their stringified elements.
func goToStoreValue(v any) store.Value {
	switch t := v.(type) {
	case nil:
		return store.Value{Kind: store.KindBytes}
	case bool:
		if !t {
			return store.Value{Kind: store.KindBytes}
		}
		return store.Value{Kind: store.KindBytes, Bytes: []byte("1")}
	case string:
		return store.Value{Kind: store.KindBytes, Bytes: []byte(t)}
	case []byte:
		return store.Value{Kind: store.KindBytes, Bytes: t}
	case []any:
		list := &store.List{}
		for _, e := range t {
			list.PushRight(scalarBytes(e))
		}
		return store.Value{Kind: store.KindList, List: list}
	case map[string]any:
		hash := make(map[string]string, len(t))
		for k, e := range t {
			hash[k] = string(scalarBytes(e))
		}
		return store.Value{Kind: store.KindHash, Hash: hash}
	default:
		return store.Value{Kind: store.KindBytes, Bytes: scalarBytes(t)}
	}
}

func scalarBytes(v any) []byte {
	if v == nil {
		return nil
	}
	if b, ok := v.([]byte); ok {
		return b
	}
	return []byte(fmt.Sprint(v))
}
