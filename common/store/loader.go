// Package store loads the full record set and attaches tags to it.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/lyzr/explorer/common/logger"
	"github.com/lyzr/explorer/common/metrics"
	"github.com/lyzr/explorer/common/models"
	"github.com/lyzr/explorer/common/repository"
)

// DefaultBatchSize is the number of rows requested per page
const DefaultBatchSize = 1000

// MaxBatchSize is the widest window the record endpoints serve
const MaxBatchSize = repository.MaxFetchRange

// Source is a remote record service
type Source interface {
	// FetchRecords returns active records in the inclusive row range
	// [from, to], ordered by code_display
	FetchRecords(ctx context.Context, from, to int) ([]models.Record, error)

	// FetchAllTags returns every tag in one call
	FetchAllTags(ctx context.Context) ([]models.Tag, error)
}

// Loader pages through a Source until it is exhausted
type Loader struct {
	source    Source
	batchSize int
	log       *logger.Logger
	metrics   *metrics.Metrics
}

// Option configures a Loader
type Option func(*Loader)

// WithBatchSize overrides DefaultBatchSize; values below 1 are ignored and
// values above MaxBatchSize are clamped
func WithBatchSize(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.batchSize = min(n, MaxBatchSize)
		}
	}
}

// WithMetrics records load duration and size
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Loader) {
		l.metrics = m
	}
}

// NewLoader creates a loader over source
func NewLoader(source Source, log *logger.Logger, opts ...Option) *Loader {
	l := &Loader{
		source:    source,
		batchSize: DefaultBatchSize,
		log:       log,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadRecords returns every active record with its tags attached. Any
// failure aborts the whole load: the error is logged and an empty slice is
// returned, never a partial result.
func (l *Loader) LoadRecords(ctx context.Context) []models.Record {
	start := time.Now()

	records, err := l.Load(ctx)
	l.metrics.RecordLoad(len(records), time.Since(start), err)
	if err != nil {
		l.log.Error("record load failed", "error", err)
		return []models.Record{}
	}

	l.log.Info("records loaded",
		"count", len(records),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return records
}

// Load is LoadRecords with the error returned instead of swallowed
func (l *Loader) Load(ctx context.Context) ([]models.Record, error) {
	var all []models.Record

	for from := 0; ; from += l.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		to := from + l.batchSize - 1
		batch, err := l.source.FetchRecords(ctx, from, to)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch records [%d, %d]: %w", from, to, err)
		}

		l.log.Debug("record batch fetched", "from", from, "to", to, "rows", len(batch))
		all = append(all, batch...)

		if len(batch) < l.batchSize {
			break
		}
	}

	tags, err := l.source.FetchAllTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tags: %w", err)
	}

	attachTags(all, tags)

	if all == nil {
		all = []models.Record{}
	}
	return all, nil
}

// attachTags derives missing ids and gives every record its tag list
// (empty, never nil)
func attachTags(records []models.Record, tags []models.Tag) {
	byRecord := models.GroupTagsByRecord(tags)

	for i := range records {
		r := &records[i]
		if r.ID == "" {
			r.ID = models.DeriveRecordID(r.Org, r.CodeID, r.CodeDisplay, r.Count)
		}
		if t, ok := byRecord[r.ID]; ok {
			r.Tags = t
		} else {
			r.Tags = []models.Tag{}
		}
	}
}
