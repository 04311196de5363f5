package pubsub

import (
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
)

// Relay mirrors PUBLISH traffic onto an external NATS subject tree,
// generalising the teacher's internal/api/nats.go sink-forwarding
// pattern (which publishes metric lines to a single fixed subject) into
// one subject per RidgeDB channel, prefixed so multiple RidgeDB
// deployments can share a NATS cluster without colliding.
type Relay struct {
	conn   *nats.Conn
	prefix string
}

// NewRelay dials addr and returns a Relay that republishes under
// prefix+"."+channel, with spaces in channel replaced by underscores.
// An empty prefix relays channels unprefixed and unchanged.
func NewRelay(addr, prefix string) (*Relay, error) {
	conn, err := nats.Connect(addr)
	if err != nil {
		return nil, fmt.Errorf("pubsub: NATS relay connect to %q failed: %w", addr, err)
	}
	return &Relay{conn: conn, prefix: prefix}, nil
}

func (r *Relay) subject(channel string) string {
	if r.prefix == "" {
		return channel
	}
	return r.prefix + "." + strings.ReplaceAll(channel, " ", "_")
}

// Forward publishes message onto the relayed subject for channel.
func (r *Relay) Forward(channel string, message []byte) error {
	if err := r.conn.Publish(r.subject(channel), message); err != nil {
		return fmt.Errorf("pubsub: NATS relay publish to %q failed: %w", r.subject(channel), err)
	}
	return nil
}

// Close flushes and closes the underlying NATS connection.
func (r *Relay) Close() {
	r.conn.Close()
}
