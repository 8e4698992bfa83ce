package notify

import (
	"context"
	"errors"
	"sync"

	"github.com/lyzr/explorer/common/logger"
)

// ErrBusClosed is returned after Close
var ErrBusClosed = errors.New("notify bus closed")

// MemoryBus delivers events inside one process
type MemoryBus struct {
	mu     sync.RWMutex
	subs   map[int]*subscription
	nextID int
	closed bool
	log    *logger.Logger
}

type subscription struct {
	pattern string
	events  chan Event
	done    chan struct{}
	once    sync.Once
}

func (s *subscription) stop() {
	s.once.Do(func() { close(s.done) })
}

// NewMemoryBus creates an in-process bus
func NewMemoryBus(log *logger.Logger) *MemoryBus {
	return &MemoryBus{
		subs: make(map[int]*subscription),
		log:  log,
	}
}

// Publish hands the event to every matching subscriber. It blocks while a
// subscriber's buffer is full, until ctx is done.
func (b *MemoryBus) Publish(ctx context.Context, topic string, event Event) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBusClosed
	}
	targets := make([]*subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if topicMatches(s.pattern, topic) {
			targets = append(targets, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range targets {
		select {
		case s.events <- event:
		case <-s.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	b.log.Debug("event published", "topic", topic, "type", event.Type, "subscribers", len(targets))
	return nil
}

// Subscribe registers a handler; each subscription has its own delivery goroutine
func (b *MemoryBus) Subscribe(ctx context.Context, topic string, h Handler) (func(), error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrBusClosed
	}
	id := b.nextID
	b.nextID++
	sub := &subscription{
		pattern: topic,
		events:  make(chan Event, 64),
		done:    make(chan struct{}),
	}
	b.subs[id] = sub
	b.mu.Unlock()

	go func() {
		for {
			select {
			case event := <-sub.events:
				h(event)
			case <-sub.done:
				return
			case <-ctx.Done():
				b.remove(id)
				return
			}
		}
	}()

	return func() { b.remove(id) }, nil
}

func (b *MemoryBus) remove(id int) {
	b.mu.Lock()
	sub, ok := b.subs[id]
	delete(b.subs, id)
	b.mu.Unlock()

	if ok {
		sub.stop()
	}
}

// SubscriberCount returns the number of live subscriptions
func (b *MemoryBus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close ends every subscription
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for id, sub := range b.subs {
		sub.stop()
		delete(b.subs, id)
	}
	return nil
}
