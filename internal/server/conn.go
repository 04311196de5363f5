package server

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ridgedb/ridgedb/internal/command"
	"github.com/ridgedb/ridgedb/internal/pubsub"
	"github.com/ridgedb/ridgedb/internal/replication"
	"github.com/ridgedb/ridgedb/internal/txn"
	"github.com/ridgedb/ridgedb/pkg/log"
	"github.com/ridgedb/ridgedb/pkg/resp"
)

// subscriberOnlyCommands is the command set a connection in subscribed
// mode may still issue (§"Pub/Sub", "Subscribers in subscribed mode MAY
// only issue SUBSCRIBE, UNSUBSCRIBE, PSUBSCRIBE, PUNSUBSCRIBE, PING, QUIT").
var subscriberOnlyCommands = map[string]bool{
	"SUBSCRIBE": true, "UNSUBSCRIBE": true, "PSUBSCRIBE": true,
	"PUNSUBSCRIBE": true, "PING": true, "QUIT": true,
}

// conn holds all per-connection state: the net.Conn, its command
// Context, subscription bookkeeping, and authentication/rate-limit
// state. One goroutine per connection runs conn.serve, matching
// original_source's per-connection Connection::process task.
type conn struct {
	srv  *Server
	nc   net.Conn
	info *clientInfo
	kill <-chan struct{}

	writeMu sync.Mutex

	limiter *rate.Limiter

	authenticated bool
	dbIndex       int
	txnState      *txn.State
	clientName    string

	subMu       sync.Mutex
	channels    map[string]*pubsub.Subscriber
	patterns    map[string]*pubsub.Subscriber
	subscriber  *pubsub.Subscriber // shared handle once any subscription exists
	pushDone    chan struct{}
	pushStarted bool

	replStream *replication.Stream // set once this connection becomes a replica link via PSYNC

	asking bool // one-shot ASKING flag, armed by ASKING and consumed by the next dispatch
}

func (s *Server) newConn(nc net.Conn, info *clientInfo, kill <-chan struct{}) *conn {
	c := &conn{
		srv:           s,
		nc:            nc,
		info:          info,
		kill:          kill,
		authenticated: !s.requiresAuth(),
		txnState:      txn.NewState(),
		channels:      make(map[string]*pubsub.Subscriber),
		patterns:      make(map[string]*pubsub.Subscriber),
		pushDone:      make(chan struct{}),
	}
	if s.cfg.RateLimitPerSecond > 0 {
		c.limiter = rate.NewLimiter(s.cfg.RateLimitPerSecond, c.limitBurst())
	}
	return c
}

func (c *conn) limitBurst() int {
	if c.srv.cfg.RateLimitBurst > 0 {
		return c.srv.cfg.RateLimitBurst
	}
	return 1
}

// serve runs the read→dispatch→write loop until the client disconnects,
// sends QUIT, or the connection is killed by CLIENT KILL.
func (c *conn) serve() {
	defer c.cleanup()
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("server: connection %s panicked: %v", c.info.addr, r)
		}
	}()

	go func() {
		select {
		case <-c.kill:
			c.nc.Close()
		case <-c.pushDone:
		}
	}()

	var buf []byte
	readBuf := make([]byte, 4096)
	for {
		if c.srv.cfg.ReadTimeout > 0 {
			c.nc.SetReadDeadline(time.Now().Add(c.srv.cfg.ReadTimeout))
		}
		value, consumed, err := resp.Parse(buf)
		if err == nil {
			buf = buf[consumed:]
			if !c.handleFrame(value) {
				return
			}
			continue
		}
		if !errors.Is(err, resp.ErrIncomplete) {
			c.writeValue(resp.Err("ERR Protocol error: " + err.Error()))
			return
		}

		n, rerr := c.nc.Read(readBuf)
		if n > 0 {
			buf = append(buf, readBuf[:n]...)
		}
		if rerr != nil {
			return
		}
	}
}

// handleFrame executes one parsed command frame and writes its reply.
// Returns false when the connection should close (QUIT, or a fatal
// protocol-level mismatch).
func (c *conn) handleFrame(value resp.Value) bool {
	args, err := value.StringArgs()
	if err != nil {
		c.writeValue(resp.Err("ERR Protocol error: " + err.Error()))
		return false
	}
	if len(args) == 0 {
		c.writeValue(resp.Err("ERR empty command"))
		return true
	}

	name := strings.ToUpper(args[0])
	rest := args[1:]

	c.info.markActivity(strings.Join(args, " "), c.dbIndex)

	if c.limiter != nil && !c.limiter.Allow() {
		c.writeValue(resp.Err("ERR rate limit exceeded"))
		return true
	}

	if !c.authenticated && name != "AUTH" && name != "QUIT" {
		c.writeValue(resp.Err("NOAUTH Authentication required"))
		return true
	}

	if c.inSubscribedMode() && !subscriberOnlyCommands[name] {
		c.writeValue(resp.Err("ERR only (P)SUBSCRIBE / (P)UNSUBSCRIBE / PING / QUIT allowed in this context"))
		return true
	}

	switch name {
	case "AUTH":
		c.writeValue(c.cmdAuth(rest))
		return true
	case "QUIT":
		c.writeValue(resp.Status("OK"))
		return false
	case "HELLO":
		c.writeValue(resp.Status("OK"))
		return true
	case "SUBSCRIBE":
		c.doSubscribe(rest)
		return true
	case "UNSUBSCRIBE":
		c.doUnsubscribe(rest)
		return true
	case "PSUBSCRIBE":
		c.doPSubscribe(rest)
		return true
	case "PUNSUBSCRIBE":
		c.doPUnsubscribe(rest)
		return true
	case "CLIENT":
		if len(rest) > 0 && strings.EqualFold(rest[0], "LIST") {
			c.writeValue(resp.BulkString(strings.Join(c.srv.clients.list(), "\n")))
			return true
		}
		if len(rest) > 1 && strings.EqualFold(rest[0], "KILL") {
			c.writeValue(c.cmdClientKill(rest[1:]))
			return true
		}
	case "PSYNC":
		c.handlePsync(rest)
		return true
	case "REPLCONF":
		if len(rest) == 2 && strings.EqualFold(rest[0], "ACK") {
			c.handleReplconfAck(rest[1])
			return true // REPLCONF ACK gets no reply, per the protocol
		}
	}

	start := time.Now()
	reply, wasWrite := c.dispatch(name, rest)
	duration := time.Since(start)
	c.info.setName(c.clientName)
	c.srv.slowlog.record(args, duration, c.info.addr, c.clientName)

	if wasWrite {
		c.srv.propagate(c.dbIndex, args)
	}
	c.writeValue(reply)
	return true
}

func (c *conn) dispatch(name string, rest []string) (resp.Value, bool) {
	asking := c.asking
	c.asking = false
	ctx := &command.Context{
		Keyspace:   c.srv.keyspace,
		DBIndex:    &c.dbIndex,
		Txn:        c.txnState,
		Pub:        c.srv.hub,
		Scripts:    c.srv.scripts,
		Repl:       c.srv.replCtrl,
		Cluster:    c.srv.cluster,
		Asking:     asking,
		AskingPtr:  &c.asking,
		NowMS:      nowMS,
		Table:      c.srv.table,
		ClientID:   c.info.id,
		ClientName: &c.clientName,
		Propagate:  c.srv.propagate,
	}
	full := append([]string{name}, rest...)
	return c.srv.table.Dispatch(context.Background(), ctx, full)
}

func (c *conn) cmdAuth(args []string) resp.Value {
	if !c.srv.requiresAuth() {
		return resp.Err("ERR Client sent AUTH, but no password is set")
	}
	if len(args) != 1 {
		return resp.Err("ERR wrong number of arguments for 'auth' command")
	}
	if !checkPassword(c.srv.cfg.RequirePassHash, args[0]) {
		return resp.Err("ERR invalid password")
	}
	c.authenticated = true
	return resp.Status("OK")
}

func (c *conn) cmdClientKill(args []string) resp.Value {
	if len(args) != 1 {
		return resp.Err("ERR syntax error")
	}
	var id uint64
	if _, err := parseUint(args[0]); err != nil {
		return resp.Err("ERR No such client")
	}
	id, _ = parseUint(args[0])
	if !c.srv.clients.killClient(id) {
		return resp.Err("ERR No such client")
	}
	return resp.Status("OK")
}

func (c *conn) inSubscribedMode() bool {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	return len(c.channels) > 0 || len(c.patterns) > 0
}

func (c *conn) startPushLoopOnce(sub *pubsub.Subscriber) {
	if c.pushStarted {
		return
	}
	c.pushStarted = true
	go func() {
		for msg := range sub.Messages() {
			if msg.Pattern != "" {
				c.writeValue(resp.Array([]resp.Value{
					resp.BulkString("pmessage"), resp.BulkString(msg.Pattern),
					resp.BulkString(msg.Channel), resp.Bulk(msg.Payload),
				}))
			} else {
				c.writeValue(resp.Array([]resp.Value{
					resp.BulkString("message"), resp.BulkString(msg.Channel), resp.Bulk(msg.Payload),
				}))
			}
		}
	}()
}

func (c *conn) doSubscribe(channels []string) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range channels {
		sub := c.srv.hub.Subscribe(ch, c.subscriber)
		c.subscriber = sub
		c.channels[ch] = sub
		c.startPushLoopOnce(sub)
		c.writeValue(resp.Array([]resp.Value{
			resp.BulkString("subscribe"), resp.BulkString(ch),
			resp.Int(int64(len(c.channels) + len(c.patterns))),
		}))
	}
	c.info.setSubCounts(len(c.channels), len(c.patterns))
}

func (c *conn) doUnsubscribe(channels []string) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	if len(channels) == 0 {
		for ch := range c.channels {
			channels = append(channels, ch)
		}
	}
	for _, ch := range channels {
		if c.subscriber != nil {
			c.srv.hub.Unsubscribe(ch, c.subscriber)
		}
		delete(c.channels, ch)
		c.writeValue(resp.Array([]resp.Value{
			resp.BulkString("unsubscribe"), resp.BulkString(ch),
			resp.Int(int64(len(c.channels) + len(c.patterns))),
		}))
	}
	c.info.setSubCounts(len(c.channels), len(c.patterns))
}

func (c *conn) doPSubscribe(patterns []string) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, p := range patterns {
		sub := c.srv.hub.PSubscribe(p, c.subscriber)
		c.subscriber = sub
		c.patterns[p] = sub
		c.startPushLoopOnce(sub)
		c.writeValue(resp.Array([]resp.Value{
			resp.BulkString("psubscribe"), resp.BulkString(p),
			resp.Int(int64(len(c.channels) + len(c.patterns))),
		}))
	}
	c.info.setSubCounts(len(c.channels), len(c.patterns))
}

func (c *conn) doPUnsubscribe(patterns []string) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	if len(patterns) == 0 {
		for p := range c.patterns {
			patterns = append(patterns, p)
		}
	}
	for _, p := range patterns {
		if c.subscriber != nil {
			c.srv.hub.PUnsubscribe(p, c.subscriber)
		}
		delete(c.patterns, p)
		c.writeValue(resp.Array([]resp.Value{
			resp.BulkString("punsubscribe"), resp.BulkString(p),
			resp.Int(int64(len(c.channels) + len(c.patterns))),
		}))
	}
	c.info.setSubCounts(len(c.channels), len(c.patterns))
}

func (c *conn) writeValue(v resp.Value) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.srv.cfg.WriteTimeout > 0 {
		c.nc.SetWriteDeadline(time.Now().Add(c.srv.cfg.WriteTimeout))
	}
	var out bytes.Buffer
	out.Write(v.Encode())
	if _, err := c.nc.Write(out.Bytes()); err != nil {
		log.Debugf("server: write to %s failed: %v", c.info.addr, err)
	}
}

func (c *conn) cleanup() {
	close(c.pushDone)
	c.subMu.Lock()
	for ch, sub := range c.channels {
		c.srv.hub.Unsubscribe(ch, sub)
	}
	for p, sub := range c.patterns {
		c.srv.hub.PUnsubscribe(p, sub)
	}
	c.subMu.Unlock()
	if c.replStream != nil && c.srv.master != nil {
		c.srv.master.Detach(c.replStream)
	}
	c.nc.Close()
	c.srv.clients.unregister(c.info.id)
}

func nowMS() uint64 { return uint64(time.Now().UnixMilli()) }

func parseUint(s string) (uint64, error) {
	var n uint64
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, errInvalidUint
		}
		n = n*10 + uint64(r-'0')
	}
	return n, nil
}

var errInvalidUint = errors.New("invalid unsigned integer")
