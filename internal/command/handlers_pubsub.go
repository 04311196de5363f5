package command

import (
	"context"

	"github.com/ridgedb/ridgedb/pkg/resp"
)

// SUBSCRIBE/UNSUBSCRIBE/PSUBSCRIBE change how the connection's read loop
// behaves (it starts delivering pushed messages) so they're handled in
// internal/server directly against the connection, not through this
// stateless dispatch table. PUBLISH has no such connection-state impact
// and fits the normal command shape.
func registerPubSubCommands(t *Table) {
	t.register(&Command{Name: "PUBLISH", MinArgs: 2, MaxArgs: 2, Write: true, Handler: cmdPublish})
}

func cmdPublish(_ context.Context, c *Context, args []string) resp.Value {
	if c.Pub == nil {
		return resp.Int(0)
	}
	n := c.Pub.Publish(args[0], []byte(args[1]))
	return resp.Int(int64(n))
}
