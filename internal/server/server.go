package server

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/ridgedb/ridgedb/internal/cluster"
	"github.com/ridgedb/ridgedb/internal/command"
	"github.com/ridgedb/ridgedb/internal/pubsub"
	"github.com/ridgedb/ridgedb/internal/replication"
	"github.com/ridgedb/ridgedb/internal/store"
	"github.com/ridgedb/ridgedb/pkg/log"
)

// Durability is the slice of internal/aof a Server needs: record a
// write command so it survives a restart. Kept as an interface so
// internal/server has no import-time dependency on internal/aof.
type Durability interface {
	Append(db int, args []string) error
}

// Propagator is the slice of internal/replication a Server needs: feed
// a committed write into the replication backlog for connected
// replicas to stream.
type Propagator interface {
	Propagate(db int, args []string)
}

// Server owns the listener and every connection spawned from it. One
// Server per listening port; cmd/ridgedb-server wires exactly one for
// the RESP port (the metrics HTTP side is a separate internal/metrics
// server).
type Server struct {
	cfg      Config
	table    *command.Table
	keyspace *store.Keyspace
	hub      *pubsub.Hub
	scripts  command.ScriptCache

	clients *clientRegistry
	slowlog *slowLog

	aof      Durability
	repl     Propagator
	replCtrl command.ReplicationController
	master   *replication.Master
	cluster  *cluster.Registry

	mu       sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup
	closing  bool
}

// NewServer builds a Server ready to ListenAndServe. scripts may be nil
// (EVAL/EVALSHA then reply with an error). hub is used without a nil
// check by SUBSCRIBE/PSUBSCRIBE and PUBLISH, so a nil hub is not
// supported.
func NewServer(cfg Config, table *command.Table, ks *store.Keyspace, hub *pubsub.Hub, scripts command.ScriptCache) *Server {
	return &Server{
		cfg:      cfg,
		table:    table,
		keyspace: ks,
		hub:      hub,
		scripts:  scripts,
		clients:  newClientRegistry(),
		slowlog:  newSlowLog(cfg.SlowLogMaxLen, cfg.SlowLogThreshold),
	}
}

// SetDurability attaches the append-only log sink; nil disables AOF.
func (s *Server) SetDurability(d Durability) { s.aof = d }

// SetPropagator attaches the replication backlog sink; nil disables
// replica propagation (a standalone instance).
func (s *Server) SetPropagator(p Propagator) { s.repl = p }

// SetReplicationController attaches the REPLICAOF/WAIT/ROLE backing
// implementation; nil leaves those commands reporting a standalone
// master with no replicas.
func (s *Server) SetReplicationController(rc command.ReplicationController) { s.replCtrl = rc }

// SetMaster attaches the replication.Master a connection's PSYNC/
// REPLCONF ACK handling streams against; nil disables PSYNC (the
// connection replies with an error instead of hijacking the socket).
func (s *Server) SetMaster(m *replication.Master) { s.master = m }

// SetCluster attaches the cluster.Registry a connection's command
// dispatch consults for slot routing; nil (the default) leaves cluster
// support disabled, matching a standalone instance.
func (s *Server) SetCluster(c *cluster.Registry) { s.cluster = c }

func (s *Server) propagate(db int, args []string) {
	if s.aof != nil {
		if err := s.aof.Append(db, args); err != nil {
			log.Warnf("server: AOF append failed: %v", err)
		}
	}
	if s.repl != nil {
		s.repl.Propagate(db, args)
	}
}

// ListenAndServe binds cfg.Addr and accepts connections until Shutdown
// is called or a non-transient Accept error occurs. Blocking call;
// callers typically run it in its own goroutine, mirroring the
// teacher's server.Serve(listener) call in cmd/cc-backend/server.go.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("server: listen on %s failed: %w", s.cfg.Addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	log.Infof("server: listening on %s", s.cfg.Addr)
	for {
		nc, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closing := s.closing
			s.mu.Unlock()
			if closing {
				return nil
			}
			return fmt.Errorf("server: accept failed: %w", err)
		}

		if s.cfg.MaxClients > 0 && s.clients.count() >= s.cfg.MaxClients {
			nc.Write([]byte("-ERR max number of clients reached\r\n"))
			nc.Close()
			continue
		}

		info, killCh := s.clients.register(nc.RemoteAddr().String())
		c := s.newConn(nc, info, killCh)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			c.serve()
		}()
	}
}

// Shutdown stops accepting new connections and waits (bounded by ctx)
// for in-flight connections to finish, matching the teacher's
// server.Shutdown(ctx) graceful-drain idiom.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	ln := s.listener
	s.mu.Unlock()
	if ln != nil {
		ln.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ConnectedClients reports the current client count, used by
// internal/metrics' collector.
func (s *Server) ConnectedClients() int { return s.clients.count() }

// Keys reports the key count of database index db, or 0 if db is out
// of range, used by internal/metrics' collector.
func (s *Server) Keys(db int) int {
	if db < 0 || db >= s.keyspace.NumDB() {
		return 0
	}
	return s.keyspace.DB(db).Len()
}

// NumDB reports the configured database count, used by
// internal/metrics' collector.
func (s *Server) NumDB() int { return s.keyspace.NumDB() }

// Addr returns the listener's bound address, or "" before ListenAndServe
// has bound its listener. Useful for tests that bind
// to ":0" and need the OS-assigned port.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
