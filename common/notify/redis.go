package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	goredis "github.com/redis/go-redis/v9"

	"github.com/lyzr/explorer/common/logger"
	"github.com/lyzr/explorer/common/redis"
)

// RedisBus delivers events across processes over Redis pub/sub.
// Topics map one-to-one to channel names.
type RedisBus struct {
	client *redis.Client
	log    *logger.Logger

	mu      sync.Mutex
	cancels []context.CancelFunc
}

// NewRedisBus creates a bus over an existing client
func NewRedisBus(client *redis.Client, log *logger.Logger) *RedisBus {
	return &RedisBus{client: client, log: log}
}

// Publish sends the event as JSON
func (b *RedisBus) Publish(ctx context.Context, topic string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return b.client.PublishEvent(ctx, topic, string(payload))
}

// Subscribe listens on topic; a trailing "*" becomes a pattern subscription
func (b *RedisBus) Subscribe(ctx context.Context, topic string, h Handler) (func(), error) {
	subCtx, cancel := context.WithCancel(ctx)

	pubsub, err := b.open(subCtx, topic)
	if err != nil {
		cancel()
		return nil, err
	}

	b.mu.Lock()
	b.cancels = append(b.cancels, cancel)
	b.mu.Unlock()

	go func() {
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				b.dispatch(msg, h)
			}
		}
	}()

	return cancel, nil
}

func (b *RedisBus) dispatch(msg *goredis.Message, h Handler) {
	var event Event
	if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
		b.log.Warn("dropping malformed event", "channel", msg.Channel, "error", err)
		return
	}
	if event.RecordID == "" {
		event.RecordID, _ = RecordIDFromTopic(msg.Channel)
	}
	h(event)
}

func (b *RedisBus) open(ctx context.Context, topic string) (*goredis.PubSub, error) {
	if strings.HasSuffix(topic, "*") {
		return b.client.PSubscribe(ctx, topic)
	}
	return b.client.Subscribe(ctx, topic)
}

// Close ends every subscription opened through this bus; the client stays open
func (b *RedisBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, cancel := range b.cancels {
		cancel()
	}
	b.cancels = nil
	return nil
}
