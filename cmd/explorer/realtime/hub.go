// Package realtime pushes tag change events to websocket clients watching a record.
package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/lyzr/explorer/common/logger"
	"github.com/lyzr/explorer/common/metrics"
	"github.com/lyzr/explorer/common/notify"
)

// Hub maintains active WebSocket connections and broadcasts messages
type Hub struct {
	// Map: record id → []*Client
	connections map[string][]*Client
	mutex       sync.RWMutex

	// Channel for registering clients
	register chan *Client

	// Channel for unregistering clients
	unregister chan *Client

	// Channel for broadcasting messages
	broadcast chan *Message

	// Closed when Run returns
	done chan struct{}

	log     *logger.Logger
	metrics *metrics.Metrics
}

// Message is one payload for every client watching a record
type Message struct {
	RecordID string
	Data     []byte
}

// NewHub creates a new Hub instance
func NewHub(log *logger.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		connections: make(map[string][]*Client),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan *Message, 256),
		done:        make(chan struct{}),
		log:         log,
		metrics:     m,
	}
}

// Run starts the hub's main loop. When ctx ends every client is disconnected.
func (h *Hub) Run(ctx context.Context) {
	h.log.Info("realtime hub started")
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastToRecord(message)

		case <-ctx.Done():
			h.closeAll()
			h.log.Info("realtime hub stopped")
			return
		}
	}
}

// Register adds a client; it returns false once the hub has stopped
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client and closes its send channel
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues data for every client watching recordID. When the queue is
// full the message is dropped.
func (h *Hub) Broadcast(recordID string, data []byte) {
	select {
	case h.broadcast <- &Message{RecordID: recordID, Data: data}:
	case <-h.done:
	default:
		h.log.Warn("broadcast queue full, dropping message", "record_id", recordID)
	}
}

// Forward subscribes to every record's tag topic and broadcasts each event
// as JSON to the record's clients
func (h *Hub) Forward(ctx context.Context, bus notify.Bus) (func(), error) {
	return bus.Subscribe(ctx, notify.AllTagsTopic, func(event notify.Event) {
		data, err := json.Marshal(event)
		if err != nil {
			h.log.Error("failed to encode tag event", "record_id", event.RecordID, "error", err)
			return
		}
		h.Broadcast(event.RecordID, data)
	})
}

// registerClient adds a client to the hub
func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.connections[client.recordID] = append(h.connections[client.recordID], client)
	h.metrics.WebsocketOpened()

	h.log.Debug("client registered",
		"record_id", client.recordID,
		"total_for_record", len(h.connections[client.recordID]),
	)
}

// unregisterClient removes a client from the hub
func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.dropLocked(client) {
		h.log.Debug("client unregistered",
			"record_id", client.recordID,
			"remaining_for_record", len(h.connections[client.recordID]),
		)
	}
}

// dropLocked removes client and closes its send channel. A client already
// dropped (slow consumer, then disconnect) is ignored.
func (h *Hub) dropLocked(client *Client) bool {
	clients := h.connections[client.recordID]
	for i, c := range clients {
		if c != client {
			continue
		}

		rest := make([]*Client, 0, len(clients)-1)
		rest = append(rest, clients[:i]...)
		rest = append(rest, clients[i+1:]...)

		if len(rest) == 0 {
			delete(h.connections, client.recordID)
		} else {
			h.connections[client.recordID] = rest
		}

		close(client.send)
		h.metrics.WebsocketClosed()
		return true
	}
	return false
}

// broadcastToRecord sends a message to all connections watching a record
func (h *Hub) broadcastToRecord(message *Message) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	clients := h.connections[message.RecordID]
	if len(clients) == 0 {
		return
	}

	h.log.Debug("broadcasting", "record_id", message.RecordID, "client_count", len(clients))

	for _, client := range clients {
		select {
		case client.send <- message.Data:
		default:
			h.log.Warn("client send buffer full, closing connection", "record_id", client.recordID)
			h.dropLocked(client)
		}
	}
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for _, clients := range h.connections {
		for _, client := range clients {
			close(client.send)
			h.metrics.WebsocketClosed()
		}
	}
	h.connections = make(map[string][]*Client)
}

// GetConnectionCount returns the total number of active connections
func (h *Hub) GetConnectionCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	count := 0
	for _, clients := range h.connections {
		count += len(clients)
	}
	return count
}

// GetRecordCount returns the number of records with at least one watcher
func (h *Hub) GetRecordCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return len(h.connections)
}
