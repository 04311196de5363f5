// Package aof implements the append-only durability log (C7): a
// concatenation of framed requests replayed on startup, plus periodic
// compaction and an Avro-encoded point-in-time snapshot. Grounded on
// original_source/src/persistence/aof.rs (AofWriter/AofReader/AofManager)
// for the append/replay/rewrite contract, generalising its async-Rust
// shape into a mutex-guarded *os.File the way the rest of this module
// guards shared state.
package aof

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/ridgedb/ridgedb/pkg/log"
	"github.com/ridgedb/ridgedb/pkg/resp"
)

// SyncPolicy controls how aggressively Writer fsyncs (§6.6
// "aof-fsync ∈ {always,everysec,no}").
type SyncPolicy int

const (
	SyncAlways SyncPolicy = iota
	SyncEverySecond
	SyncNo
)

func ParseSyncPolicy(s string) (SyncPolicy, error) {
	switch s {
	case "always":
		return SyncAlways, nil
	case "everysec", "everysecond":
		return SyncEverySecond, nil
	case "no":
		return SyncNo, nil
	default:
		return SyncNo, fmt.Errorf("aof: unknown fsync policy %q", s)
	}
}

// Writer appends committed write commands to a file in RESP request
// framing (§6.3 "A concatenation of framed requests. SELECT i is
// emitted whenever the writing connection's selected db index differs
// from the last emitted one"). One Writer is shared by every
// connection's Server.propagate call, so all state is mutex-guarded.
type Writer struct {
	mu     sync.Mutex
	f      *os.File
	w      *bufio.Writer
	path   string
	policy SyncPolicy
	lastDB int
	haveDB bool
}

// Open creates path's parent directories if needed and opens it for
// append, creating it if absent.
func Open(path string, policy SyncPolicy) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("aof: create directory for %q failed: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("aof: open %q failed: %w", path, err)
	}
	return &Writer{f: f, w: bufio.NewWriter(f), path: path, policy: policy}, nil
}

// Append writes one command's frame, prefixed with a SELECT frame if db
// differs from the db index last written (§6.3).
func (w *Writer) Append(db int, args []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.haveDB || db != w.lastDB {
		if _, err := w.w.Write(resp.EncodeRequest("SELECT", strconv.Itoa(db))); err != nil {
			return fmt.Errorf("aof: write SELECT failed: %w", err)
		}
		w.lastDB, w.haveDB = db, true
	}

	if _, err := w.w.Write(resp.EncodeRequest(args...)); err != nil {
		return fmt.Errorf("aof: append failed: %w", err)
	}

	switch w.policy {
	case SyncAlways:
		if err := w.w.Flush(); err != nil {
			return err
		}
		return w.f.Sync()
	case SyncEverySecond:
		return w.w.Flush() // fsync is driven by the scheduler's tick, see FlushAndSync
	default:
		return nil
	}
}

// FlushAndSync flushes the buffer and fsyncs the file — the tick body
// internal/server.Scheduler.RegisterFunc runs once a second for the
// "everysec" policy.
func (w *Writer) FlushAndSync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.w.Flush(); err != nil {
		return err
	}
	return w.f.Sync()
}

// Path returns the file path this Writer appends to.
func (w *Writer) Path() string { return w.path }

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.w.Flush(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}

// Replace atomically swaps this Writer's target file for newPath,
// closing the old one — used after Rewrite produces a compacted file.
func (w *Writer) Replace(newPath string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.w.Flush(); err != nil {
		return err
	}
	w.f.Close()

	if err := os.Rename(newPath, w.path); err != nil {
		return fmt.Errorf("aof: rename rewritten file failed: %w", err)
	}
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("aof: reopen after rewrite failed: %w", err)
	}
	w.f = f
	w.w = bufio.NewWriter(f)
	w.lastDB, w.haveDB = 0, false
	log.Infof("aof: rewrite replaced %s", w.path)
	return nil
}
