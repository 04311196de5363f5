// Package server implements the connection-handling tier (C10): the TCP
// listener, one goroutine per connection running parse→dispatch→respond,
// subscribed-mode command restriction, authentication, rate limiting,
// the slow log, and the periodic housekeeping scheduler. Grounded on the
// teacher's cmd/cc-backend/server.go (listener bring-up, graceful
// shutdown) and original_source's src/server/connection.rs (the
// per-connection field set and read/dispatch/write loop shape).
package server

import (
	"time"

	"golang.org/x/time/rate"
)

// Config is the subset of internal/config's Keys this package consumes.
// It is a plain struct rather than a direct dependency on internal/config
// so the server can be unit-tested without config file plumbing; the
// real values are copied in from config.Keys by cmd/ridgedb-server.
type Config struct {
	Addr string // "host:port" to listen on, e.g. ":6380"

	// RequirePassHash is a bcrypt hash of the configured requirepass, or
	// empty to accept connections unauthenticated (§7 "NOAUTH").
	RequirePassHash string

	// MaxClients is the highest number of simultaneous connections
	// accepted; 0 means unlimited (§6.6 "maxclients").
	MaxClients int

	// RateLimitPerSecond/RateLimitBurst configure the per-connection
	// token bucket (0 disables limiting).
	RateLimitPerSecond rate.Limit
	RateLimitBurst     int

	// SlowLogThreshold is the minimum command duration recorded into the
	// slow log; SlowLogMaxLen bounds its ring buffer.
	SlowLogThreshold time.Duration
	SlowLogMaxLen    int

	// ReadTimeout/WriteTimeout bound a single socket read/write, not the
	// life of the connection — a blocking command like BLPOP legitimately
	// holds a connection open far longer than either.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig mirrors the conservative defaults a fresh requirepass-less,
// unlimited instance would run with.
func DefaultConfig(addr string) Config {
	return Config{
		Addr:             addr,
		SlowLogThreshold: 10 * time.Millisecond,
		SlowLogMaxLen:    128,
		ReadTimeout:      0,
		WriteTimeout:     10 * time.Second,
	}
}
