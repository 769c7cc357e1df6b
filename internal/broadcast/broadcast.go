// Package broadcast carries short signals between the tabs of one browser
// profile. Topics are profile ids; a message published on a topic reaches
// every current subscriber of that topic.
package broadcast

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

type Message struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	// Origin names the tab that sent the message; like a storage event,
	// the sender does not hear its own signal.
	Origin string `json:"origin,omitempty"`
}

type Channel interface {
	Publish(ctx context.Context, topic string, msg Message) error
	// Subscribe returns a receive channel and a cancel func. The receive
	// channel is closed after cancel is called or ctx is done.
	Subscribe(ctx context.Context, topic string) (<-chan Message, func(), error)
}

const subscriberBuffer = 8

// Hub is an in-process Channel.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[*subscriber]struct{}
	log    *logrus.Logger
	closed bool
}

type subscriber struct {
	ch   chan Message
	done chan struct{}
	once sync.Once
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{subs: make(map[string]map[*subscriber]struct{}), log: logger}
}

func (h *Hub) Publish(_ context.Context, topic string, msg Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	for s := range h.subs[topic] {
		select {
		case s.ch <- msg:
		default:
			h.log.Warnf("Hub: dropping %q signal for slow subscriber on topic %s", msg.Key, topic)
		}
	}
	return nil
}

func (h *Hub) Subscribe(ctx context.Context, topic string) (<-chan Message, func(), error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, nil, ErrClosed
	}
	s := &subscriber{ch: make(chan Message, subscriberBuffer), done: make(chan struct{})}
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[*subscriber]struct{})
	}
	h.subs[topic][s] = struct{}{}
	h.mu.Unlock()

	cancel := func() { h.remove(topic, s) }
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-s.done:
		}
	}()
	return s.ch, cancel, nil
}

func (h *Hub) remove(topic string, s *subscriber) {
	s.once.Do(func() {
		h.mu.Lock()
		delete(h.subs[topic], s)
		if len(h.subs[topic]) == 0 {
			delete(h.subs, topic)
		}
		close(s.ch)
		close(s.done)
		h.mu.Unlock()
	})
}

func (h *Hub) Subscribers(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[topic])
}

// Close drops every subscriber. Later Publish and Subscribe calls fail.
func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true
	var all []func()
	for topic, set := range h.subs {
		for s := range set {
			topic, s := topic, s
			all = append(all, func() { h.remove(topic, s) })
		}
	}
	h.mu.Unlock()
	for _, f := range all {
		f()
	}
	return nil
}
