// Package tagsync keeps a local tag list in step with a remote tag store,
// showing changes immediately and rolling them back when the store refuses.
package tagsync

import (
	"context"
	"errors"

	"github.com/lyzr/explorer/common/models"
)

// Backend is the remote tag store
type Backend interface {
	// GetTags returns the record's confirmed tags, newest first
	GetTags(ctx context.Context, recordID string) ([]models.Tag, error)

	// AddTag persists a tag. Returns models.ErrConflict when the record
	// already carries the same text.
	AddTag(ctx context.Context, recordID, text string) (models.Tag, error)

	// RemoveTag deletes a tag. Returns models.ErrNotFound for unknown ids.
	RemoveTag(ctx context.Context, tagID string) error
}

// Op names a mutation
type Op string

const (
	OpAdd    Op = "add"
	OpRemove Op = "remove"
)

// Result reports how a mutation settled
type Result struct {
	Op       Op
	RecordID string

	// Add: the confirmed tag on success. Remove: the tag that was removed.
	Tag models.Tag

	// Add only: the placeholder id shown while the insert was in flight
	TempID string

	// Non-nil when the mutation was rolled back
	Err error
}

// RolledBack reports whether the optimistic change was undone
func (r Result) RolledBack() bool {
	return r.Err != nil
}

// IsConflict reports whether err is a duplicate (record_id, tag_text)
func IsConflict(err error) bool {
	return errors.Is(err, models.ErrConflict)
}
