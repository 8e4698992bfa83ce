package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/lyzr/explorer/common/clients"
	"github.com/lyzr/explorer/common/models"
	"github.com/lyzr/explorer/common/repository"
	"github.com/lyzr/explorer/common/tagsync"
)

// TagStore is where the service persists tags: Postgres or the kv backend
type TagStore interface {
	tagsync.Backend

	FetchAllTags(ctx context.Context) ([]models.Tag, error)

	// Delete removes a tag and returns it, so callers know which record changed
	Delete(ctx context.Context, tagID string) (models.Tag, error)
}

var (
	_ TagStore = (*PostgresTagStore)(nil)
	_ TagStore = (*tagsync.KVBackend)(nil)
)

// PostgresTagStore adapts the tag repository to TagStore
type PostgresTagStore struct {
	repo *repository.TagRepository
}

// NewPostgresTagStore creates a Postgres-backed tag store
func NewPostgresTagStore(repo *repository.TagRepository) *PostgresTagStore {
	return &PostgresTagStore{repo: repo}
}

// GetTags returns the record's tags, newest first
func (s *PostgresTagStore) GetTags(ctx context.Context, recordID string) ([]models.Tag, error) {
	return s.repo.ListByRecord(ctx, recordID)
}

// FetchAllTags returns every tag, newest first
func (s *PostgresTagStore) FetchAllTags(ctx context.Context) ([]models.Tag, error) {
	return s.repo.FetchAllTags(ctx)
}

// AddTag inserts a tag with a fresh uuid. created_by is the caller's user id
// when the request carried one.
func (s *PostgresTagStore) AddTag(ctx context.Context, recordID, text string) (models.Tag, error) {
	trimmed, err := models.NormalizeTagText(text)
	if err != nil {
		return models.Tag{}, err
	}

	tag := &models.Tag{
		ID:        uuid.NewString(),
		RecordID:  recordID,
		Text:      trimmed,
		CreatedBy: clients.CreatedBy(ctx),
	}

	if err := s.repo.Create(ctx, tag); err != nil {
		return models.Tag{}, err
	}
	return *tag, nil
}

// RemoveTag deletes a tag
func (s *PostgresTagStore) RemoveTag(ctx context.Context, tagID string) error {
	_, err := s.Delete(ctx, tagID)
	return err
}

// Delete deletes a tag and returns the removed row
func (s *PostgresTagStore) Delete(ctx context.Context, tagID string) (models.Tag, error) {
	tag, err := s.repo.Delete(ctx, tagID)
	if err != nil {
		return models.Tag{}, err
	}
	return *tag, nil
}
