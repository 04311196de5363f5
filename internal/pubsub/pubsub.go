// Package pubsub implements the C6 channel/pattern fan-out hub: two
// indices (exact channel, glob pattern) of subscribed connections, and
// best-effort delivery with a bounded per-subscriber queue so one slow
// reader can't stall PUBLISH for everyone else. Grounded on
// pkg/nats/client.go's mutex-guarded subscription registry, generalised
// from a single external NATS connection to an in-process many-channel
// hub plus an optional relay onto NATS (see relay.go).
package pubsub

import (
	"sync"
	"sync/atomic"

	"github.com/ridgedb/ridgedb/internal/store"
	"github.com/ridgedb/ridgedb/pkg/log"
)

// Message is one delivered payload, tagged with the exact channel it was
// published on even when matched through a pattern subscription.
type Message struct {
	Channel string
	Pattern string // empty for an exact-channel delivery
	Payload []byte
}

// queueDepth bounds each subscriber's pending message backlog. Once
// full, PUBLISH drops the new message for that subscriber rather than
// blocking the publisher (§4.10 "delivery is best-effort").
const queueDepth = 256

// Subscriber is one connection's delivery handle, returned by Subscribe/
// PSubscribe and read from by the owning connection's write loop.
type Subscriber struct {
	id      uint64
	ch      chan Message
	dropped atomic.Int64
}

// Messages returns the channel the owning connection should range over
// to pick up deliveries.
func (s *Subscriber) Messages() <-chan Message { return s.ch }

// Dropped reports how many messages were discarded for this subscriber
// because its queue was full.
func (s *Subscriber) Dropped() int64 { return s.dropped.Load() }

type registry struct {
	mu   sync.RWMutex
	subs map[uint64]*Subscriber
	key  map[uint64]string // subscriber id -> channel or pattern
}

func newRegistry() *registry {
	return &registry{subs: make(map[uint64]*Subscriber), key: make(map[uint64]string)}
}

// Hub is the process-wide pub/sub broker. One Hub is shared by every
// connection; subscriptions are per-connection Subscriber handles.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]*registry
	patterns map[string]*registry
	nextID   atomic.Uint64

	relay *Relay // optional, nil unless configured (see relay.go)
}

// NewHub builds an empty hub with no external relay.
func NewHub() *Hub {
	return &Hub{
		channels: make(map[string]*registry),
		patterns: make(map[string]*registry),
	}
}

// SetRelay attaches an external NATS relay so PUBLISH also forwards
// onto a federation subject (§ domain stack: internal/pubsub/relay.go).
func (h *Hub) SetRelay(r *Relay) { h.relay = r }

func (h *Hub) newSubscriber() *Subscriber {
	return &Subscriber{id: h.nextID.Add(1), ch: make(chan Message, queueDepth)}
}

// Subscribe registers sub (creating one if nil) for exact-channel
// delivery on channel and returns it.
func (h *Hub) Subscribe(channel string, sub *Subscriber) *Subscriber {
	if sub == nil {
		sub = h.newSubscriber()
	}
	h.mu.Lock()
	reg, ok := h.channels[channel]
	if !ok {
		reg = newRegistry()
		h.channels[channel] = reg
	}
	h.mu.Unlock()

	reg.mu.Lock()
	reg.subs[sub.id] = sub
	reg.key[sub.id] = channel
	reg.mu.Unlock()
	return sub
}

// Unsubscribe removes sub's registration for channel. Passing an empty
// channel removes it from every exact-channel subscription it holds.
func (h *Hub) Unsubscribe(channel string, sub *Subscriber) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if channel != "" {
		if reg, ok := h.channels[channel]; ok {
			reg.mu.Lock()
			delete(reg.subs, sub.id)
			delete(reg.key, sub.id)
			reg.mu.Unlock()
		}
		return
	}
	for _, reg := range h.channels {
		reg.mu.Lock()
		delete(reg.subs, sub.id)
		delete(reg.key, sub.id)
		reg.mu.Unlock()
	}
}

// PSubscribe registers sub (creating one if nil) for glob-pattern
// delivery and returns it.
func (h *Hub) PSubscribe(pattern string, sub *Subscriber) *Subscriber {
	if sub == nil {
		sub = h.newSubscriber()
	}
	h.mu.Lock()
	reg, ok := h.patterns[pattern]
	if !ok {
		reg = newRegistry()
		h.patterns[pattern] = reg
	}
	h.mu.Unlock()

	reg.mu.Lock()
	reg.subs[sub.id] = sub
	reg.key[sub.id] = pattern
	reg.mu.Unlock()
	return sub
}

// PUnsubscribe removes sub's registration for pattern, or every pattern
// it holds if pattern is empty.
func (h *Hub) PUnsubscribe(pattern string, sub *Subscriber) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if pattern != "" {
		if reg, ok := h.patterns[pattern]; ok {
			reg.mu.Lock()
			delete(reg.subs, sub.id)
			delete(reg.key, sub.id)
			reg.mu.Unlock()
		}
		return
	}
	for _, reg := range h.patterns {
		reg.mu.Lock()
		delete(reg.subs, sub.id)
		delete(reg.key, sub.id)
		reg.mu.Unlock()
	}
}

// deliver attempts to push msg to sub without blocking, counting a drop
// if the subscriber's queue is full (§4.10).
func deliver(sub *Subscriber, msg Message) bool {
	select {
	case sub.ch <- msg:
		return true
	default:
		sub.dropped.Add(1)
		return false
	}
}

// Publish delivers message to every exact subscriber of channel plus
// every pattern subscriber whose pattern matches it, returning the
// total number of subscribers the message was attempted against (per
// §4.10, "returns the total deliveries"). It also forwards to the
// optional relay so other processes see the same publish.
func (h *Hub) Publish(channel string, message []byte) int {
	count := 0

	h.mu.RLock()
	chanReg := h.channels[channel]
	patReg := make([]*registry, 0, len(h.patterns))
	patNames := make([]string, 0, len(h.patterns))
	for pattern, reg := range h.patterns {
		patNames = append(patNames, pattern)
		patReg = append(patReg, reg)
	}
	h.mu.RUnlock()

	if chanReg != nil {
		chanReg.mu.RLock()
		subs := make([]*Subscriber, 0, len(chanReg.subs))
		for _, s := range chanReg.subs {
			subs = append(subs, s)
		}
		chanReg.mu.RUnlock()
		for _, s := range subs {
			deliver(s, Message{Channel: channel, Payload: message})
			count++
		}
	}

	for i, reg := range patReg {
		pattern := patNames[i]
		if !store.GlobMatch(pattern, channel) {
			continue
		}
		reg.mu.RLock()
		subs := make([]*Subscriber, 0, len(reg.subs))
		for _, s := range reg.subs {
			subs = append(subs, s)
		}
		reg.mu.RUnlock()
		for _, s := range subs {
			deliver(s, Message{Channel: channel, Pattern: pattern, Payload: message})
			count++
		}
	}

	if h.relay != nil {
		if err := h.relay.Forward(channel, message); err != nil {
			log.Warnf("pubsub: relay forward for channel %q failed: %v", channel, err)
		}
	}
	return count
}

// NumSubscribers reports how many distinct subscribers are registered
// for channel, counting both exact and pattern matches. No command
// exposes it; there is no PUBSUB NUMSUB.
func (h *Hub) NumSubscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	if reg, ok := h.channels[channel]; ok {
		reg.mu.RLock()
		n += len(reg.subs)
		reg.mu.RUnlock()
	}
	for pattern, reg := range h.patterns {
		if !store.GlobMatch(pattern, channel) {
			continue
		}
		reg.mu.RLock()
		n += len(reg.subs)
		reg.mu.RUnlock()
	}
	return n
}
