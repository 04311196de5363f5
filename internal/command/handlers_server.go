package command

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/ridgedb/ridgedb/pkg/resp"
)

func registerServerCommands(t *Table) {
	t.register(&Command{Name: "PING", MinArgs: 0, MaxArgs: 1, Handler: cmdPing})
	t.register(&Command{Name: "ECHO", MinArgs: 1, MaxArgs: 1, Handler: cmdEcho})
	t.register(&Command{Name: "TIME", MinArgs: 0, MaxArgs: 0, Handler: cmdTime})
	t.register(&Command{Name: "CLIENT", MinArgs: 1, MaxArgs: -1, Handler: cmdClient})
}

func cmdPing(_ context.Context, _ *Context, args []string) resp.Value {
	if len(args) == 1 {
		return resp.BulkString(args[0])
	}
	return resp.Status("PONG")
}

func cmdEcho(_ context.Context, _ *Context, args []string) resp.Value {
	return resp.BulkString(args[0])
}

func cmdTime(_ context.Context, c *Context, _ []string) resp.Value {
	now := time.UnixMilli(int64(c.NowMS()))
	sec := now.Unix()
	micros := now.Nanosecond() / 1000
	return resp.Array([]resp.Value{
		resp.BulkString(strconv.FormatInt(sec, 10)),
		resp.BulkString(strconv.FormatInt(int64(micros), 10)),
	})
}

// CLIENT only supports the subset the connection layer exposes through
// the Context's ClientID/ClientName fields (§B's client registry
// supplement); LIST/KILL/PAUSE live in internal/server where the full
// connection table is visible.
func cmdClient(_ context.Context, c *Context, args []string) resp.Value {
	switch strings.ToUpper(args[0]) {
	case "GETNAME":
		if c.ClientName == nil || *c.ClientName == "" {
			return resp.Bulk(nil)
		}
		return resp.BulkString(*c.ClientName)
	case "SETNAME":
		if len(args) != 2 {
			return resp.Err("ERR wrong number of arguments for 'client|setname' command")
		}
		if c.ClientName != nil {
			*c.ClientName = args[1]
		}
		return resp.Status("OK")
	case "ID":
		return resp.Int(int64(c.ClientID))
	default:
		return resp.Err("ERR unknown CLIENT subcommand")
	}
}
