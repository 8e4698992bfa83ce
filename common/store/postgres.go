package store

import (
	"context"

	"github.com/lyzr/explorer/common/models"
	"github.com/lyzr/explorer/common/repository"
)

// PostgresSource reads records and tags straight from the database
type PostgresSource struct {
	records *repository.RecordRepository
	tags    *repository.TagRepository
}

// NewPostgresSource combines the record and tag repositories into a Source
func NewPostgresSource(records *repository.RecordRepository, tags *repository.TagRepository) *PostgresSource {
	return &PostgresSource{records: records, tags: tags}
}

// FetchRecords implements Source
func (s *PostgresSource) FetchRecords(ctx context.Context, from, to int) ([]models.Record, error) {
	return s.records.FetchRecords(ctx, from, to)
}

// FetchAllTags implements Source
func (s *PostgresSource) FetchAllTags(ctx context.Context) ([]models.Tag, error) {
	return s.tags.FetchAllTags(ctx)
}

// RecordFetcher reads pages of active records
type RecordFetcher interface {
	FetchRecords(ctx context.Context, from, to int) ([]models.Record, error)
}

// TagFetcher reads every tag in one call
type TagFetcher interface {
	FetchAllTags(ctx context.Context) ([]models.Tag, error)
}

// SplitSource reads records and tags from different places, e.g. records
// from Postgres and tags from a key/value store
type SplitSource struct {
	Records RecordFetcher
	Tags    TagFetcher
}

// FetchRecords implements Source
func (s SplitSource) FetchRecords(ctx context.Context, from, to int) ([]models.Record, error) {
	return s.Records.FetchRecords(ctx, from, to)
}

// FetchAllTags implements Source
func (s SplitSource) FetchAllTags(ctx context.Context) ([]models.Tag, error) {
	return s.Tags.FetchAllTags(ctx)
}
