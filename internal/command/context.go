// Package command implements the dispatcher (C4): it normalises a
// parsed request to an uppercase command name, validates arity against
// a static table, invokes the matching store operator, and reports
// whether the command was a write so the caller can feed it to the
// durability log and replication stream.
package command

import (
	"github.com/ridgedb/ridgedb/internal/cluster"
	"github.com/ridgedb/ridgedb/internal/store"
	"github.com/ridgedb/ridgedb/internal/txn"
)

// Publisher is the slice of internal/pubsub that PUBLISH needs.
type Publisher interface {
	Publish(channel string, message []byte) int
}

// ScriptCache is the slice of internal/scripting that EVAL/EVALSHA/
// SCRIPT need.
type ScriptCache interface {
	Load(source []byte) string
	Get(sha string) ([]byte, bool)
	Eval(ctx *Context, source []byte, keys, argv []string) (store.Value, error)
	Flush()
}

// Context is everything a handler needs to act on one command. DBIndex
// is a pointer because SELECT mutates the connection's selected
// database for every subsequent command on the same connection.
type Context struct {
	Keyspace *store.Keyspace
	DBIndex  *int
	Txn      *txn.State
	Pub      Publisher
	Scripts  ScriptCache
	Repl     ReplicationController
	Cluster  *cluster.Registry // nil on a standalone (non-cluster) instance
	NowMS    func() uint64

	// Asking is true when the client sent a one-shot ASKING immediately
	// before this command (§"CLUSTER" routing's Importing-slot
	// exception). AskingPtr lets the ASKING handler arm the flag for
	// the connection's next command, the same *int-for-mutable-
	// connection-state idiom DBIndex uses.
	Asking    bool
	AskingPtr *bool

	// Table lets EXEC replay its queued commands back through dispatch
	// without internal/command importing itself.
	Table *Table

	// Propagate, when non-nil, feeds one already-dispatched write
	// command's raw frame to the durability log and replication stream.
	// Only EXEC's handler calls it directly (each queued command needs
	// its own propagation record — spec.md §4.5 rule 4); the top-level
	// per-frame path in internal/server/conn.go propagates on its own
	// after Dispatch returns, so it leaves this nil to avoid double
	// propagation.
	Propagate func(db int, args []string)

	// ClientName/ClientID back CLIENT GETNAME/SETNAME/LIST (§B, supplemented
	// from original_source's client registry) — owned by internal/server,
	// exposed here by reference so the handler can read/mutate it in place.
	ClientID   uint64
	ClientName *string
}

func (c *Context) db() *store.DB {
	return c.Keyspace.DB(*c.DBIndex)
}
