package clients

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/lyzr/explorer/common/notify"
)

// ErrReadOnlyBus is returned by WatchBus.Publish; events originate on the server
var ErrReadOnlyBus = errors.New("watch bus is receive-only")

// WatchBus is a receive-only notify.Bus backed by the explorer's websocket.
// Each subscription holds one connection for one record.
type WatchBus struct {
	client *ExplorerClient

	mu      sync.Mutex
	cancels map[int]context.CancelFunc
	nextID  int
	closed  bool
	wg      sync.WaitGroup
}

var _ notify.Bus = (*WatchBus)(nil)

// NewWatchBus creates a bus over client
func NewWatchBus(client *ExplorerClient) *WatchBus {
	return &WatchBus{
		client:  client,
		cancels: make(map[int]context.CancelFunc),
	}
}

// Publish always fails with ErrReadOnlyBus
func (b *WatchBus) Publish(ctx context.Context, topic string, event notify.Event) error {
	return ErrReadOnlyBus
}

// Subscribe connects to the record named by topic, which must be a single
// record's tag topic. The connection is open when Subscribe returns.
func (b *WatchBus) Subscribe(ctx context.Context, topic string, h notify.Handler) (func(), error) {
	recordID, ok := notify.RecordIDFromTopic(topic)
	if !ok || strings.HasSuffix(topic, "*") {
		return nil, fmt.Errorf("watch bus needs a single record topic, got %q", topic)
	}

	ctx, cancel := context.WithCancel(ctx)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		cancel()
		return nil, notify.ErrBusClosed
	}
	id := b.nextID
	b.nextID++
	b.cancels[id] = cancel
	b.wg.Add(1)
	b.mu.Unlock()

	conn, err := b.client.dialWatch(ctx, recordID)
	if err != nil {
		b.release(id)
		b.wg.Done()
		return nil, err
	}

	go func() {
		defer b.wg.Done()
		defer b.release(id)

		if err := readEvents(ctx, conn, func(event notify.Event) {
			if event.RecordID == "" {
				event.RecordID = recordID
			}
			h(event)
		}); err != nil {
			b.client.logger.Warn("tag watch ended", "record_id", recordID, "error", err)
		}
	}()

	return func() { b.release(id) }, nil
}

// Close ends every subscription and waits for their readers to stop
func (b *WatchBus) Close() error {
	b.mu.Lock()
	b.closed = true
	for id, cancel := range b.cancels {
		cancel()
		delete(b.cancels, id)
	}
	b.mu.Unlock()

	b.wg.Wait()
	return nil
}

func (b *WatchBus) release(id int) {
	b.mu.Lock()
	cancel, ok := b.cancels[id]
	delete(b.cancels, id)
	b.mu.Unlock()

	if ok {
		cancel()
	}
}
