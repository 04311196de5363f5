package command

import (
	"context"
	"strconv"

	"github.com/ridgedb/ridgedb/pkg/resp"
)

func registerSetCommands(t *Table) {
	t.register(&Command{Name: "SADD", MinArgs: 2, MaxArgs: -1, Write: true, Handler: cmdSAdd})
	t.register(&Command{Name: "SREM", MinArgs: 2, MaxArgs: -1, Write: true, Handler: cmdSRem})
	t.register(&Command{Name: "SISMEMBER", MinArgs: 2, MaxArgs: 2, Handler: cmdSIsMember})
	t.register(&Command{Name: "SMISMEMBER", MinArgs: 2, MaxArgs: -1, Handler: cmdSMIsMember})
	t.register(&Command{Name: "SCARD", MinArgs: 1, MaxArgs: 1, Handler: cmdSCard})
	t.register(&Command{Name: "SMEMBERS", MinArgs: 1, MaxArgs: 1, Handler: cmdSMembers})
	t.register(&Command{Name: "SPOP", MinArgs: 1, MaxArgs: 2, Write: true, Handler: cmdSPop})
	t.register(&Command{Name: "SRANDMEMBER", MinArgs: 1, MaxArgs: 2, Handler: cmdSRandMember})
	t.register(&Command{Name: "SMOVE", MinArgs: 3, MaxArgs: 3, Write: true, Handler: cmdSMove})
	t.register(&Command{Name: "SINTER", MinArgs: 1, MaxArgs: -1, Handler: cmdSInter})
	t.register(&Command{Name: "SUNION", MinArgs: 1, MaxArgs: -1, Handler: cmdSUnion})
	t.register(&Command{Name: "SDIFF", MinArgs: 1, MaxArgs: -1, Handler: cmdSDiff})
	t.register(&Command{Name: "SINTERSTORE", MinArgs: 2, MaxArgs: -1, Write: true, Handler: cmdSInterStore})
	t.register(&Command{Name: "SUNIONSTORE", MinArgs: 2, MaxArgs: -1, Write: true, Handler: cmdSUnionStore})
	t.register(&Command{Name: "SDIFFSTORE", MinArgs: 2, MaxArgs: -1, Write: true, Handler: cmdSDiffStore})
}

func cmdSAdd(_ context.Context, c *Context, args []string) resp.Value {
	n, err := c.db().SAdd(args[0], args[1:])
	if err != nil {
		return errToValue(err)
	}
	return intReply(n)
}

func cmdSRem(_ context.Context, c *Context, args []string) resp.Value {
	n, err := c.db().SRem(args[0], args[1:])
	if err != nil {
		return errToValue(err)
	}
	return intReply(n)
}

func cmdSIsMember(_ context.Context, c *Context, args []string) resp.Value {
	ok, err := c.db().SIsMember(args[0], args[1])
	if err != nil {
		return errToValue(err)
	}
	if ok {
		return resp.Int(1)
	}
	return resp.Int(0)
}

func cmdSMIsMember(_ context.Context, c *Context, args []string) resp.Value {
	flags, err := c.db().SMIsMember(args[0], args[1:])
	if err != nil {
		return errToValue(err)
	}
	vs := make([]resp.Value, len(flags))
	for i, f := range flags {
		if f {
			vs[i] = resp.Int(1)
		} else {
			vs[i] = resp.Int(0)
		}
	}
	return resp.Array(vs)
}

func cmdSCard(_ context.Context, c *Context, args []string) resp.Value {
	n, err := c.db().SCard(args[0])
	if err != nil {
		return errToValue(err)
	}
	return intReply(n)
}

func cmdSMembers(_ context.Context, c *Context, args []string) resp.Value {
	ms, err := c.db().SMembers(args[0])
	if err != nil {
		return errToValue(err)
	}
	return bulkStringsArray(ms)
}

func cmdSPop(_ context.Context, c *Context, args []string) resp.Value {
	count := 1
	explicit := len(args) == 2
	if explicit {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 0 {
			return resp.Err("ERR value is out of range, must be positive")
		}
		count = n
	}
	ms, err := c.db().SPop(args[0], count)
	if err != nil {
		return errToValue(err)
	}
	if !explicit {
		if len(ms) == 0 {
			return resp.NullBulk()
		}
		return resp.BulkString(ms[0])
	}
	return bulkStringsArray(ms)
}

func cmdSRandMember(_ context.Context, c *Context, args []string) resp.Value {
	if len(args) == 1 {
		ms, err := c.db().SRandMember(args[0], 1)
		if err != nil {
			return errToValue(err)
		}
		if len(ms) == 0 {
			return resp.NullBulk()
		}
		return resp.BulkString(ms[0])
	}
	count, err := strconv.Atoi(args[1])
	if err != nil {
		return resp.Err("ERR value is not an integer or out of range")
	}
	ms, serr := c.db().SRandMember(args[0], count)
	if serr != nil {
		return errToValue(serr)
	}
	return bulkStringsArray(ms)
}

func cmdSMove(_ context.Context, c *Context, args []string) resp.Value {
	ok, err := c.db().SMove(args[0], args[1], args[2])
	if err != nil {
		return errToValue(err)
	}
	if ok {
		return resp.Int(1)
	}
	return resp.Int(0)
}

func cmdSInter(_ context.Context, c *Context, args []string) resp.Value {
	ms, err := c.db().SInter(args)
	if err != nil {
		return errToValue(err)
	}
	return bulkStringsArray(ms)
}

func cmdSUnion(_ context.Context, c *Context, args []string) resp.Value {
	ms, err := c.db().SUnion(args)
	if err != nil {
		return errToValue(err)
	}
	return bulkStringsArray(ms)
}

func cmdSDiff(_ context.Context, c *Context, args []string) resp.Value {
	ms, err := c.db().SDiff(args)
	if err != nil {
		return errToValue(err)
	}
	return bulkStringsArray(ms)
}

func cmdSInterStore(_ context.Context, c *Context, args []string) resp.Value {
	n, err := c.db().SInterStore(args[0], args[1:])
	if err != nil {
		return errToValue(err)
	}
	return intReply(n)
}

func cmdSUnionStore(_ context.Context, c *Context, args []string) resp.Value {
	n, err := c.db().SUnionStore(args[0], args[1:])
	if err != nil {
		return errToValue(err)
	}
	return intReply(n)
}

func cmdSDiffStore(_ context.Context, c *Context, args []string) resp.Value {
	n, err := c.db().SDiffStore(args[0], args[1:])
	if err != nil {
		return errToValue(err)
	}
	return intReply(n)
}
