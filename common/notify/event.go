// Package notify carries tag change events between the process that
// writes a tag and every view that shows it.
package notify

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/lyzr/explorer/common/models"
)

// EventType names a tag change
type EventType string

const (
	EventTagAdded   EventType = "tag.added"
	EventTagRemoved EventType = "tag.removed"
)

// topicPrefix is followed by the record id
const topicPrefix = "explorer:tags:"

// AllTagsTopic matches the tag topic of every record
const AllTagsTopic = topicPrefix + "*"

// Event describes one confirmed change to a record's tag list
type Event struct {
	Type     EventType   `json:"type"`
	RecordID string      `json:"record_id"`
	Tag      *models.Tag `json:"tag,omitempty"`

	// RFC 6902 patch against the record's JSON tag array, when the
	// publisher knows the list it changed
	Patch json.RawMessage `json:"patch,omitempty"`

	At time.Time `json:"at"`
}

// Handler receives events for a subscription, one at a time and in publish order
type Handler func(Event)

// Bus publishes events to topics and fans them out to subscribers
type Bus interface {
	Publish(ctx context.Context, topic string, event Event) error

	// Subscribe registers h for topic. A topic ending in "*" matches every
	// topic with that prefix. The subscription ends when ctx is done or the
	// returned func is called.
	Subscribe(ctx context.Context, topic string, h Handler) (func(), error)

	Close() error
}

// TagTopic returns the topic carrying tag events for one record
func TagTopic(recordID string) string {
	return topicPrefix + recordID
}

// RecordIDFromTopic extracts the record id from a tag topic
func RecordIDFromTopic(topic string) (string, bool) {
	if !strings.HasPrefix(topic, topicPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(topic, topicPrefix)
	return id, id != ""
}

func topicMatches(pattern, topic string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(topic, prefix)
	}
	return pattern == topic
}
