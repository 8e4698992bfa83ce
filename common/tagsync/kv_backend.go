package tagsync

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lyzr/explorer/common/clients"
	"github.com/lyzr/explorer/common/kv"
	"github.com/lyzr/explorer/common/models"
)

// StorageKey holds every record's tags as one JSON object,
// record id -> tag array
const StorageKey = "data_explorer_tags"

// KVBackend keeps tags in a kv.Store instead of the database. Writes are
// read-modify-write of the whole map and are serialized within the process.
type KVBackend struct {
	store kv.Store
	mu    sync.Mutex
	now   func() time.Time
}

// NewKVBackend creates a backend over store
func NewKVBackend(store kv.Store) *KVBackend {
	return &KVBackend{store: store, now: time.Now}
}

func (b *KVBackend) load(ctx context.Context) (map[string][]models.Tag, error) {
	raw, ok, err := b.store.Get(ctx, StorageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read tag storage: %w", err)
	}
	all := make(map[string][]models.Tag)
	if !ok || len(raw) == 0 {
		return all, nil
	}
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, fmt.Errorf("failed to decode tag storage: %w", err)
	}
	return all, nil
}

func (b *KVBackend) save(ctx context.Context, all map[string][]models.Tag) error {
	raw, err := json.Marshal(all)
	if err != nil {
		return fmt.Errorf("failed to encode tag storage: %w", err)
	}
	if err := b.store.Set(ctx, StorageKey, raw); err != nil {
		return fmt.Errorf("failed to write tag storage: %w", err)
	}
	return nil
}

// GetTags implements Backend
func (b *KVBackend) GetTags(ctx context.Context, recordID string) ([]models.Tag, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	all, err := b.load(ctx)
	if err != nil {
		return nil, err
	}
	tags := all[recordID]
	if tags == nil {
		return []models.Tag{}, nil
	}
	return tags, nil
}

// FetchAllTags returns every stored tag, for store.Source implementations
func (b *KVBackend) FetchAllTags(ctx context.Context) ([]models.Tag, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	all, err := b.load(ctx)
	if err != nil {
		return nil, err
	}
	out := []models.Tag{}
	for _, tags := range all {
		out = append(out, tags...)
	}
	return out, nil
}

// AddTag implements Backend. The new tag goes to the front of the record's list.
func (b *KVBackend) AddTag(ctx context.Context, recordID, text string) (models.Tag, error) {
	trimmed, err := models.NormalizeTagText(text)
	if err != nil {
		return models.Tag{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	all, err := b.load(ctx)
	if err != nil {
		return models.Tag{}, err
	}

	for _, t := range all[recordID] {
		if t.Text == trimmed {
			return models.Tag{}, fmt.Errorf("tag %q on record %s: %w", trimmed, recordID, models.ErrConflict)
		}
	}

	tag := models.Tag{
		ID:        uuid.NewString(),
		RecordID:  recordID,
		Text:      trimmed,
		CreatedAt: b.now().UTC(),
		CreatedBy: clients.CreatedBy(ctx),
	}

	all[recordID] = append([]models.Tag{tag}, all[recordID]...)
	if err := b.save(ctx, all); err != nil {
		return models.Tag{}, err
	}
	return tag, nil
}

// RemoveTag implements Backend
func (b *KVBackend) RemoveTag(ctx context.Context, tagID string) error {
	_, err := b.Delete(ctx, tagID)
	return err
}

// Delete removes a tag and returns it
func (b *KVBackend) Delete(ctx context.Context, tagID string) (models.Tag, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	all, err := b.load(ctx)
	if err != nil {
		return models.Tag{}, err
	}

	for recordID, tags := range all {
		for i, t := range tags {
			if t.ID != tagID {
				continue
			}
			if len(tags) == 1 {
				delete(all, recordID)
			} else {
				all[recordID] = removeAt(tags, i)
			}
			if err := b.save(ctx, all); err != nil {
				return models.Tag{}, err
			}
			return t, nil
		}
	}

	return models.Tag{}, fmt.Errorf("tag %s: %w", tagID, models.ErrNotFound)
}
