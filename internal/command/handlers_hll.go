package command

import (
	"context"

	"github.com/ridgedb/ridgedb/pkg/resp"
)

func registerHLLCommands(t *Table) {
	t.register(&Command{Name: "PFADD", MinArgs: 1, MaxArgs: -1, Write: true, Handler: cmdPFAdd})
	t.register(&Command{Name: "PFCOUNT", MinArgs: 1, MaxArgs: -1, Handler: cmdPFCount})
	t.register(&Command{Name: "PFMERGE", MinArgs: 1, MaxArgs: -1, Write: true, Handler: cmdPFMerge})
}

func cmdPFAdd(_ context.Context, c *Context, args []string) resp.Value {
	elements := toBytes(args[1:])
	changed, err := c.db().PFAdd(args[0], elements)
	if err != nil {
		return errToValue(err)
	}
	if changed {
		return resp.Int(1)
	}
	return resp.Int(0)
}

func cmdPFCount(_ context.Context, c *Context, args []string) resp.Value {
	n, err := c.db().PFCount(args)
	if err != nil {
		return errToValue(err)
	}
	return resp.Int(int64(n))
}

func cmdPFMerge(_ context.Context, c *Context, args []string) resp.Value {
	if err := c.db().PFMerge(args[0], args[1:]); err != nil {
		return errToValue(err)
	}
	return resp.Status("OK")
}
