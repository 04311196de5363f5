package command

import (
	"context"

	"github.com/ridgedb/ridgedb/pkg/resp"
)

func registerTxnCommands(t *Table) {
	t.register(&Command{Name: "MULTI", MinArgs: 0, MaxArgs: 0, Handler: cmdMulti})
	t.register(&Command{Name: "EXEC", MinArgs: 0, MaxArgs: 0, Handler: cmdExec})
	t.register(&Command{Name: "DISCARD", MinArgs: 0, MaxArgs: 0, Handler: cmdDiscard})
	t.register(&Command{Name: "WATCH", MinArgs: 1, MaxArgs: -1, Handler: cmdWatch})
	t.register(&Command{Name: "UNWATCH", MinArgs: 0, MaxArgs: 0, Handler: cmdUnwatch})
}

func cmdMulti(_ context.Context, c *Context, _ []string) resp.Value {
	if !c.Txn.Multi() {
		return resp.Err("ERR MULTI calls can not be nested")
	}
	return resp.Status("OK")
}

func cmdExec(goctx context.Context, c *Context, _ []string) resp.Value {
	queue, aborted, ok := c.Txn.CheckAndClear(func(db int) interface {
		Version(key string) uint64
	} {
		return c.Keyspace.DB(db)
	})
	if !ok {
		return resp.Err("ERR EXEC without MULTI")
	}
	if aborted {
		return resp.NullArray()
	}
	replies := make([]resp.Value, len(queue))
	for i, req := range queue {
		full := append([]string{req.Name}, req.Args...)
		reply, wasWrite := c.Table.Dispatch(goctx, c, full)
		replies[i] = reply
		if wasWrite && c.Propagate != nil {
			c.Propagate(*c.DBIndex, full)
		}
	}
	return resp.Array(replies)
}

func cmdDiscard(_ context.Context, c *Context, _ []string) resp.Value {
	if !c.Txn.Discard() {
		return resp.Err("ERR DISCARD without MULTI")
	}
	return resp.Status("OK")
}

func cmdWatch(_ context.Context, c *Context, args []string) resp.Value {
	for _, k := range args {
		if !c.Txn.Watch(*c.DBIndex, k, c.db()) {
			return resp.Err("ERR WATCH inside MULTI is not allowed")
		}
	}
	return resp.Status("OK")
}

func cmdUnwatch(_ context.Context, c *Context, _ []string) resp.Value {
	c.Txn.Unwatch()
	return resp.Status("OK")
}
