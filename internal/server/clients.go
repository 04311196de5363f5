package server

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// clientInfo is one connection's CLIENT LIST row. Grounded on
// original_source's server/client_info.rs ClientInfo/to_list_entry.
type clientInfo struct {
	id        uint64
	addr      string
	name      string
	db        int
	lastCmd   string
	createdAt time.Time
	lastUsed  time.Time
	numSub    int
	numPSub   int

	mu sync.Mutex
}

func (ci *clientInfo) line() string {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	now := time.Now()
	return fmt.Sprintf(
		"id=%d addr=%s name=%s age=%d idle=%d db=%d sub=%d psub=%d multi=-1 cmd=%s",
		ci.id, ci.addr, ci.name,
		int(now.Sub(ci.createdAt).Seconds()), int(now.Sub(ci.lastUsed).Seconds()),
		ci.db, ci.numSub, ci.numPSub, ci.lastCmd)
}

func (ci *clientInfo) markActivity(cmd string, db int) {
	ci.mu.Lock()
	ci.lastCmd = cmd
	ci.db = db
	ci.lastUsed = time.Now()
	ci.mu.Unlock()
}

func (ci *clientInfo) setName(name string) {
	ci.mu.Lock()
	ci.name = name
	ci.mu.Unlock()
}

func (ci *clientInfo) setSubCounts(sub, psub int) {
	ci.mu.Lock()
	ci.numSub, ci.numPSub = sub, psub
	ci.mu.Unlock()
}

// clientRegistry tracks every currently-connected client for CLIENT
// LIST/KILL, keyed by the id assigned at accept time.
type clientRegistry struct {
	nextID atomic.Uint64

	mu      sync.RWMutex
	clients map[uint64]*clientInfo
	kill    map[uint64]chan struct{}
}

func newClientRegistry() *clientRegistry {
	return &clientRegistry{
		clients: make(map[uint64]*clientInfo),
		kill:    make(map[uint64]chan struct{}),
	}
}

func (r *clientRegistry) register(addr string) (*clientInfo, <-chan struct{}) {
	now := time.Now()
	ci := &clientInfo{id: r.nextID.Add(1), addr: addr, createdAt: now, lastUsed: now}
	killCh := make(chan struct{})
	r.mu.Lock()
	r.clients[ci.id] = ci
	r.kill[ci.id] = killCh
	r.mu.Unlock()
	return ci, killCh
}

func (r *clientRegistry) unregister(id uint64) {
	r.mu.Lock()
	delete(r.clients, id)
	delete(r.kill, id)
	r.mu.Unlock()
}

// list returns one CLIENT LIST line per connected client, oldest first.
func (r *clientRegistry) list() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]*clientInfo, 0, len(r.clients))
	for _, ci := range r.clients {
		infos = append(infos, ci)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].id < infos[j].id })
	lines := make([]string, 0, len(infos))
	for _, ci := range infos {
		lines = append(lines, ci.line())
	}
	return lines
}

// killClient closes the target connection's kill channel, which its read loop
// watches and shuts the socket down in response to. Returns false if no
// such client is connected.
func (r *clientRegistry) killClient(id uint64) bool {
	r.mu.RLock()
	ch, ok := r.kill[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	select {
	case <-ch:
	default:
		close(ch)
	}
	return true
}

func (r *clientRegistry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
