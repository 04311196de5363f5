// Package scripting implements EVAL/EVALSHA/SCRIPT (§B, supplemented
// from original_source's scripting/script_cache.rs): a content-hash
// keyed cache of script sources plus an evaluator that runs them
// against a single connection's keyspace.
//
// The original stores Lua source and runs it through an embedded Lua
// VM. Nothing in this corpus embeds Lua, so scripts here are
// expr-lang/expr expressions instead: a single expression with access
// to KEYS, ARGV and a call() builtin that dispatches back through the
// command table, in the spirit of redis.call() from a Lua script
// rather than a byte-for-byte port of it.
package scripting

import (
	"crypto/sha1"
	"encoding/hex"
	"sync"
)

// Cache maps a script's SHA1 hash to its source, the same scheme
// script_cache.rs uses (a DashMap there, an RWMutex-guarded map here).
type Cache struct {
	mu      sync.RWMutex
	scripts map[string][]byte
}

// New returns an empty script cache.
func New() *Cache {
	return &Cache{scripts: make(map[string][]byte)}
}

func sha1Hex(source []byte) string {
	sum := sha1.Sum(source)
	return hex.EncodeToString(sum[:])
}

// Load hashes source, stores it, and returns the hash, matching
// ScriptCache::load in script_cache.rs.
func (c *Cache) Load(source []byte) string {
	sha := sha1Hex(source)
	c.mu.Lock()
	c.scripts[sha] = append([]byte(nil), source...)
	c.mu.Unlock()
	return sha
}

// Get returns the cached source for sha, if any.
func (c *Cache) Get(sha string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	src, ok := c.scripts[sha]
	return src, ok
}

// Flush drops every cached script, matching SCRIPT FLUSH.
func (c *Cache) Flush() {
	c.mu.Lock()
	c.scripts = make(map[string][]byte)
	c.mu.Unlock()
}
