package command

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/ridgedb/ridgedb/pkg/resp"
)

// ReplicationController is the slice of internal/replication (plus the
// orchestration internal/server does to spin up a Replica goroutine) that
// REPLICAOF/WAIT need. internal/replication itself imports this package
// (to replay commands via Table.Dispatch), so the dependency here must
// run the other way — a small interface satisfied by an adapter built
// where both internal/replication and internal/server are visible.
type ReplicationController interface {
	// ReplicaOf starts replicating from host:port, or — when host is
	// the literal "NO" and port is "ONE" — promotes this instance back
	// to master, matching spec.md §4.8's REPLICAOF table.
	ReplicaOf(host, port string) error
	// Wait blocks (bounded by timeout) for at least n replicas to have
	// acknowledged the current master offset, returning the count
	// reached.
	Wait(n int, timeout time.Duration) int
	// Role reports "master" or "slave" plus the current master offset,
	// backing the ROLE command.
	Role() (role string, offset uint64)
}

func registerReplicationCommands(t *Table) {
	t.register(&Command{Name: "REPLICAOF", MinArgs: 2, MaxArgs: 2, Handler: cmdReplicaOf})
	t.register(&Command{Name: "SLAVEOF", MinArgs: 2, MaxArgs: 2, Handler: cmdReplicaOf})
	t.register(&Command{Name: "WAIT", MinArgs: 2, MaxArgs: 2, Handler: cmdWait})
	t.register(&Command{Name: "ROLE", MinArgs: 0, MaxArgs: 0, Handler: cmdRole})
	t.register(&Command{Name: "REPLCONF", MinArgs: 0, MaxArgs: -1, Handler: cmdReplconf})
}

func cmdReplicaOf(_ context.Context, c *Context, args []string) resp.Value {
	if c.Repl == nil {
		return resp.Err("ERR replication is not enabled on this instance")
	}
	if err := c.Repl.ReplicaOf(args[0], args[1]); err != nil {
		return resp.Err("ERR " + err.Error())
	}
	return resp.Status("OK")
}

func cmdWait(_ context.Context, c *Context, args []string) resp.Value {
	if c.Repl == nil {
		return resp.Int(0)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		return resp.Err("ERR value is not an integer or out of range")
	}
	timeoutMS, err := strconv.Atoi(args[1])
	if err != nil || timeoutMS < 0 {
		return resp.Err("ERR timeout is not an integer or out of range")
	}
	reached := c.Repl.Wait(n, time.Duration(timeoutMS)*time.Millisecond)
	return resp.Int(int64(reached))
}

func cmdRole(_ context.Context, c *Context, _ []string) resp.Value {
	if c.Repl == nil {
		return resp.Array([]resp.Value{resp.BulkString("master"), resp.Int(0), resp.Array(nil)})
	}
	role, offset := c.Repl.Role()
	return resp.Array([]resp.Value{
		resp.BulkString(role),
		resp.Int(int64(offset)),
		resp.Array(nil),
	})
}

// cmdReplconf answers the handshake subcommands (listening-port, capa)
// generically with OK; REPLCONF ACK is intercepted by internal/server
// before reaching the dispatcher, since updating a replica's
// acknowledged offset needs the connection's own Stream handle, not
// anything reachable from a stateless Context (mirrors how CLIENT
// LIST/KILL are handled in internal/server rather than here).
func cmdReplconf(_ context.Context, _ *Context, args []string) resp.Value {
	if len(args) > 0 && strings.EqualFold(args[0], "GETACK") {
		return resp.Null()
	}
	return resp.Status("OK")
}
