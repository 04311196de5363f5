package command

import (
	"context"
	"strings"

	"github.com/ridgedb/ridgedb/internal/cluster"
	"github.com/ridgedb/ridgedb/internal/store"
	"github.com/ridgedb/ridgedb/internal/txn"
	"github.com/ridgedb/ridgedb/pkg/resp"
)

// txnControlCommands run immediately even inside an open MULTI; every
// other command gets queued instead of executed (§4.5).
var txnControlCommands = map[string]bool{
	"MULTI": true, "EXEC": true, "DISCARD": true, "WATCH": true, "UNWATCH": true,
}

// HandlerFunc executes one command's body. It receives only the
// arguments following the command name, not the name itself.
type HandlerFunc func(goctx context.Context, c *Context, args []string) resp.Value

// Command is one static table entry (§4.4).
//
// FirstKey/LastKey/KeyStep describe where in args (the command name
// included, so the key name itself sits at index FirstKey) the
// command's key arguments live, in the same shape as Redis's COMMAND
// INFO: FirstKey == 0 means the command takes no keys (admin/pubsub/
// connection commands, which skip cluster slot routing entirely);
// LastKey < 0 counts back from the end (-1 is the last argument, for
// variadic commands like MGET); KeyStep > 1 skips non-key arguments
// between keys (2 for MSET's key-value pairs).
type Command struct {
	Name     string
	MinArgs  int // minimum arguments after the command name
	MaxArgs  int // -1 means unbounded
	Write    bool
	Handler  HandlerFunc
	FirstKey int
	LastKey  int
	KeyStep  int
}

// Keys returns the key arguments of a full request (args[0] is the
// command name), per FirstKey/LastKey/KeyStep. Returns nil for a
// command with FirstKey == 0.
func (cmd *Command) Keys(args []string) []string {
	if cmd.FirstKey == 0 {
		return nil
	}
	last := cmd.LastKey
	if last < 0 {
		last = len(args) + last
	}
	if cmd.FirstKey > last || last >= len(args) {
		return nil
	}
	step := cmd.KeyStep
	if step < 1 {
		step = 1
	}
	var keys []string
	for i := cmd.FirstKey; i <= last; i += step {
		keys = append(keys, args[i])
	}
	return keys
}

// Table is the static, case-insensitive command → handler map the
// dispatcher consults; build one with NewTable and reuse it across
// connections, it has no mutable state.
type Table struct {
	commands map[string]*Command
}

func NewTable() *Table {
	t := &Table{commands: make(map[string]*Command)}
	registerStringCommands(t)
	registerListCommands(t)
	registerHashCommands(t)
	registerSetCommands(t)
	registerZSetCommands(t)
	registerStreamCommands(t)
	registerBitmapCommands(t)
	registerHLLCommands(t)
	registerGeoCommands(t)
	registerKeyspaceCommands(t)
	registerTxnCommands(t)
	registerServerCommands(t)
	registerPubSubCommands(t)
	registerScriptCommands(t)
	registerReplicationCommands(t)
	registerClusterCommands(t)
	return t
}

func (t *Table) register(cmd *Command) {
	t.commands[cmd.Name] = cmd
}

// Lookup returns the command registered under name (case-insensitive).
func (t *Table) Lookup(name string) (*Command, bool) {
	cmd, ok := t.commands[strings.ToUpper(name)]
	return cmd, ok
}

// Dispatch normalises args[0] to a command name, validates arity, and
// invokes the handler. It never propagates on error, and reports
// Write=true only on a successful write command, matching §4.4's
// "after the operator has committed and before the response is
// serialised" propagation contract — the caller decides what to do
// with that signal (internal/aof, internal/replication).
func (t *Table) Dispatch(goctx context.Context, c *Context, args []string) (reply resp.Value, wasWrite bool) {
	if len(args) == 0 {
		return resp.Err("ERR empty command"), false
	}
	name := strings.ToUpper(args[0])
	rest := args[1:]

	cmd, ok := t.commands[name]
	if !ok {
		if c.Txn != nil && c.Txn.InMulti() && !txnControlCommands[name] {
			c.Txn.MarkDirty()
		}
		return resp.Err("ERR unknown command '" + args[0] + "'"), false
	}
	if len(rest) < cmd.MinArgs || (cmd.MaxArgs >= 0 && len(rest) > cmd.MaxArgs) {
		if c.Txn != nil && c.Txn.InMulti() && !txnControlCommands[name] {
			c.Txn.MarkDirty()
		}
		return resp.Err("ERR wrong number of arguments for '" + strings.ToLower(name) + "' command"), false
	}

	if c.Cluster != nil && c.Cluster.Enabled() {
		if keys := cmd.Keys(args); len(keys) > 0 {
			result, err := c.Cluster.Route(keys, c.Asking, func(key string) bool {
				return c.db().Exists(key)
			})
			if err != nil {
				return resp.Err(err.Error()), false
			}
			if result.Decision != cluster.Proceed {
				return resp.Err(result.Err()), false
			}
		}
	}

	if c.Txn != nil && c.Txn.InMulti() && !txnControlCommands[name] {
		c.Txn.Queue(txn.RawRequest{Name: name, Args: rest})
		return resp.Status("QUEUED"), false
	}

	reply = cmd.Handler(goctx, c, rest)
	if reply.Kind == resp.KindError {
		return reply, false
	}
	return reply, cmd.Write
}

// errToValue maps a store error (or any error) to the wire error reply
// it should produce, using the typed Kind when available so the
// WRONGTYPE/overflow/etc. prefixes are exact rather than guessed from
// string content.
func errToValue(err error) resp.Value {
	if err == nil {
		return resp.Status("OK")
	}
	if kind := store.As(err); kind != store.KindNone {
		return resp.Err(err.Error())
	}
	return resp.Err("ERR " + err.Error())
}

func intReply(n int) resp.Value     { return resp.Int(int64(n)) }
func int64Reply(n int64) resp.Value { return resp.Int(n) }

func bulkOrNil(b []byte, ok bool) resp.Value {
	if !ok {
		return resp.NullBulk()
	}
	return resp.Bulk(b)
}

func bulkStringsArray(ss []string) resp.Value {
	vs := make([]resp.Value, len(ss))
	for i, s := range ss {
		vs[i] = resp.BulkString(s)
	}
	return resp.Array(vs)
}

func bulkBytesArray(bs [][]byte) resp.Value {
	vs := make([]resp.Value, len(bs))
	for i, b := range bs {
		vs[i] = resp.Bulk(b)
	}
	return resp.Array(vs)
}
