package notify

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/lyzr/explorer/common/logger"
	"github.com/lyzr/explorer/common/models"
	"github.com/lyzr/explorer/common/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *collector) handle(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *collector) snapshot() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

func TestTopics(t *testing.T) {
	assert.Equal(t, "explorer:tags:r1", TagTopic("r1"))

	id, ok := RecordIDFromTopic("explorer:tags:QS0x")
	assert.True(t, ok)
	assert.Equal(t, "QS0x", id)

	_, ok = RecordIDFromTopic("jobs:events:x")
	assert.False(t, ok)

	assert.True(t, topicMatches(AllTagsTopic, TagTopic("r1")))
	assert.True(t, topicMatches(TagTopic("r1"), TagTopic("r1")))
	assert.False(t, topicMatches(TagTopic("r1"), TagTopic("r2")))
}

func TestMemoryBus_DeliversInOrder(t *testing.T) {
	bus := NewMemoryBus(logger.Discard())
	defer bus.Close()
	ctx := context.Background()

	c := &collector{}
	unsub, err := bus.Subscribe(ctx, TagTopic("r1"), c.handle)
	require.NoError(t, err)
	defer unsub()

	for _, text := range []string{"a", "b", "c"} {
		require.NoError(t, bus.Publish(ctx, TagTopic("r1"), Event{
			Type:     EventTagAdded,
			RecordID: "r1",
			Tag:      &models.Tag{ID: text, RecordID: "r1", Text: text},
		}))
	}
	require.NoError(t, bus.Publish(ctx, TagTopic("r2"), Event{Type: EventTagAdded, RecordID: "r2"}))

	require.Eventually(t, func() bool { return len(c.snapshot()) == 3 }, time.Second, 5*time.Millisecond)
	got := c.snapshot()
	assert.Equal(t, "a", got[0].Tag.Text)
	assert.Equal(t, "c", got[2].Tag.Text)
}

func TestMemoryBus_PatternSubscription(t *testing.T) {
	bus := NewMemoryBus(logger.Discard())
	defer bus.Close()
	ctx := context.Background()

	c := &collector{}
	_, err := bus.Subscribe(ctx, AllTagsTopic, c.handle)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, TagTopic("r1"), Event{Type: EventTagAdded, RecordID: "r1"}))
	require.NoError(t, bus.Publish(ctx, TagTopic("r2"), Event{Type: EventTagRemoved, RecordID: "r2"}))

	require.Eventually(t, func() bool { return len(c.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
}

func TestMemoryBus_Unsubscribe(t *testing.T) {
	bus := NewMemoryBus(logger.Discard())
	defer bus.Close()

	c := &collector{}
	unsub, err := bus.Subscribe(context.Background(), TagTopic("r1"), c.handle)
	require.NoError(t, err)
	assert.Equal(t, 1, bus.SubscriberCount())

	unsub()
	unsub()
	assert.Equal(t, 0, bus.SubscriberCount())

	require.NoError(t, bus.Publish(context.Background(), TagTopic("r1"), Event{Type: EventTagAdded}))
	assert.Empty(t, c.snapshot())
}

func TestMemoryBus_ContextEndsSubscription(t *testing.T) {
	bus := NewMemoryBus(logger.Discard())
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	_, err := bus.Subscribe(ctx, TagTopic("r1"), func(Event) {})
	require.NoError(t, err)

	cancel()
	require.Eventually(t, func() bool { return bus.SubscriberCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestMemoryBus_Closed(t *testing.T) {
	bus := NewMemoryBus(logger.Discard())
	require.NoError(t, bus.Close())

	assert.ErrorIs(t, bus.Publish(context.Background(), "t", Event{}), ErrBusClosed)
	_, err := bus.Subscribe(context.Background(), "t", func(Event) {})
	assert.ErrorIs(t, err, ErrBusClosed)
}

func TestRedisBus(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}

	ctx := context.Background()
	client, err := redis.Dial(ctx, addr, "", 0, logger.Discard())
	require.NoError(t, err)
	defer client.Close()

	bus := NewRedisBus(client, logger.Discard())
	defer bus.Close()

	c := &collector{}
	_, err = bus.Subscribe(ctx, AllTagsTopic, c.handle)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, TagTopic("r9"), Event{
		Type: EventTagAdded,
		Tag:  &models.Tag{ID: "t1", RecordID: "r9", Text: "urgent"},
	}))

	require.Eventually(t, func() bool { return len(c.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	got := c.snapshot()[0]
	assert.Equal(t, "r9", got.RecordID)
	assert.Equal(t, "urgent", got.Tag.Text)
}
