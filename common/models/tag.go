package models

import (
	"strings"
	"time"
)

// TempTagPrefix marks client-side placeholder ids that the backend never saw
const TempTagPrefix = "tmp_"

// Tag represents a free-text label a user attached to a record
// Maps to: tags table
type Tag struct {
	// Backend-assigned id, or a TempTagPrefix id while the insert is in flight
	ID       string `db:"id" json:"id"`
	RecordID string `db:"record_id" json:"record_id"`

	// Trimmed, non-empty. (record_id, tag_text) is unique.
	Text string `db:"tag_text" json:"tag_text"`

	// Audit fields
	CreatedBy *string   `db:"created_by" json:"created_by,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	// Set on optimistic placeholders only
	Pending bool `db:"-" json:"pending,omitempty"`
}

// IsPlaceholder reports whether the tag is an unconfirmed local placeholder
func (t *Tag) IsPlaceholder() bool {
	return t.Pending || strings.HasPrefix(t.ID, TempTagPrefix)
}

// NormalizeTagText trims the text and rejects empty labels
func NormalizeTagText(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", ErrValidation
	}
	return trimmed, nil
}

// GroupTagsByRecord groups tags by owning record id, preserving input order
func GroupTagsByRecord(tags []Tag) map[string][]Tag {
	grouped := make(map[string][]Tag)
	for _, t := range tags {
		grouped[t.RecordID] = append(grouped[t.RecordID], t)
	}
	return grouped
}
