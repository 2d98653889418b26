// Package events is a typed in-process publish/subscribe channel between
// parts of the dashboard that hold no reference to each other.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Topic names a stream of events.
type Topic string

const (
	TopicContentUpdated    Topic = "content-updated"
	TopicContentSaved      Topic = "content-saved"
	TopicNavigateToTab     Topic = "navigate-to-tab"
	TopicKeywordsRefreshed Topic = "keywords-refreshed"
)

// Event is a single published message.
type Event struct {
	ID      string    `json:"id"`
	Topic   Topic     `json:"topic"`
	Payload any       `json:"payload"`
	At      time.Time `json:"at"`
}

// ContentUpdated is published after every generation round-trip.
type ContentUpdated struct {
	RunID     string `json:"run_id"`
	Generator string `json:"generator"`
	Kind      string `json:"kind"`
	Title     string `json:"title"`
	Bundles   int    `json:"bundles"`
}

// ContentSaved is published when a bundle lands in the library.
type ContentSaved struct {
	ItemID uint   `json:"item_id"`
	Title  string `json:"title"`
}

// NavigateToTab asks the UI to switch tabs.
type NavigateToTab struct {
	Tab string `json:"tab"`
}

// KeywordsRefreshed is published after a keyword research run.
type KeywordsRefreshed struct {
	SeedPhrase string `json:"seed_phrase"`
	Count      int    `json:"count"`
}

// Handler receives published events.
type Handler func(Event)

// Bus fans events out to subscribers. Handlers run synchronously on the
// publishing goroutine, in subscription order.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Topic][]subscription
	nextID uint64
	logger *zap.Logger
}

type subscription struct {
	id      uint64
	handler Handler
}

// NewBus creates an empty bus.
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		subs:   make(map[Topic][]subscription),
		logger: logger,
	}
}

// Subscribe registers h for topic. The returned func removes the
// subscription and is safe to call more than once.
func (b *Bus) Subscribe(topic Topic, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[topic] = append(b.subs[topic], subscription{id: id, handler: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(topic, id) })
	}
}

func (b *Bus) remove(topic Topic, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[topic]
	for i, s := range subs {
		if s.id == id {
			b.subs[topic] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subs[topic]) == 0 {
		delete(b.subs, topic)
	}
}

// Publish delivers payload to all current subscribers of topic.
func (b *Bus) Publish(topic Topic, payload any) Event {
	ev := Event{
		ID:      uuid.NewString(),
		Topic:   topic,
		Payload: payload,
		At:      time.Now().UTC(),
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[topic]))
	for _, s := range b.subs[topic] {
		handlers = append(handlers, s.handler)
	}
	b.mu.RUnlock()

	b.logger.Debug("Publishing event", zap.String("topic", string(topic)), zap.Int("subscribers", len(handlers)))
	for _, h := range handlers {
		h(ev)
	}
	return ev
}

// Stream subscribes to topics and forwards events into a buffered channel
// until ctx is done. Events are dropped when the consumer falls behind.
func (b *Bus) Stream(ctx context.Context, buffer int, topics ...Topic) <-chan Event {
	if buffer <= 0 {
		buffer = 16
	}
	out := make(chan Event, buffer)

	var mu sync.Mutex
	closed := false
	forward := func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case out <- ev:
		default:
			b.logger.Warn("Dropping event for slow stream consumer", zap.String("topic", string(ev.Topic)))
		}
	}

	unsubs := make([]func(), 0, len(topics))
	for _, t := range topics {
		unsubs = append(unsubs, b.Subscribe(t, forward))
	}

	go func() {
		<-ctx.Done()
		for _, u := range unsubs {
			u()
		}
		mu.Lock()
		closed = true
		close(out)
		mu.Unlock()
	}()
	return out
}

// SubscriberCount returns the number of handlers registered for topic.
func (b *Bus) SubscriberCount(topic Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}
