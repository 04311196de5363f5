package pubsub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishExactChannel(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe("news", nil)

	n := h.Publish("news", []byte("hello"))
	assert.Equal(t, 1, n)

	select {
	case msg := <-sub.Messages():
		assert.Equal(t, "news", msg.Channel)
		assert.Equal(t, "hello", string(msg.Payload))
	case <-time.After(time.Second):
		t.Fatal("expected a delivered message")
	}
}

func TestPublishPatternMatch(t *testing.T) {
	h := NewHub()
	sub := h.PSubscribe("news.*", nil)

	n := h.Publish("news.sports", []byte("score"))
	assert.Equal(t, 1, n)

	msg := <-sub.Messages()
	assert.Equal(t, "news.sports", msg.Channel)
	assert.Equal(t, "news.*", msg.Pattern)
}

func TestPublishNoSubscribersReturnsZero(t *testing.T) {
	h := NewHub()
	assert.Equal(t, 0, h.Publish("nobody", []byte("x")))
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe("chan", nil)
	h.Unsubscribe("chan", sub)
	assert.Equal(t, 0, h.Publish("chan", []byte("x")))
}

func TestFullQueueDropsInsteadOfBlocking(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe("busy", nil)
	for i := 0; i < queueDepth+10; i++ {
		h.Publish("busy", []byte("x"))
	}
	assert.Greater(t, sub.Dropped(), int64(0))
}

func TestNumSubscribersCountsExactAndPattern(t *testing.T) {
	h := NewHub()
	h.Subscribe("a", nil)
	h.PSubscribe("a*", nil)
	require.Equal(t, 2, h.NumSubscribers("a"))
}
