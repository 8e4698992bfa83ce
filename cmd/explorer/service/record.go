package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lyzr/explorer/common/config"
	"github.com/lyzr/explorer/common/explore"
	"github.com/lyzr/explorer/common/logger"
	"github.com/lyzr/explorer/common/metrics"
	"github.com/lyzr/explorer/common/models"
	"github.com/lyzr/explorer/common/notify"
	"github.com/lyzr/explorer/common/store"
)

// ErrInvalidExpression is returned when an explore query carries a filter
// expression that does not compile or does not evaluate to a bool
var ErrInvalidExpression = errors.New("invalid filter expression")

// ExploreQuery is one search over the loaded snapshot
type ExploreQuery struct {
	Keywords   []string
	Filters    models.FilterSelection
	Page       int
	PageSize   int
	Expression string
}

// ExploreResult is a page of records plus the colors of the tags on it
type ExploreResult struct {
	explore.Page
	TagColors map[string]explore.TagColor `json:"tag_colors"`
}

// RecordService holds the in-memory record snapshot that explore queries run
// against. Tags on the snapshot follow the notification bus.
type RecordService struct {
	source      store.Source
	loader      *store.Loader
	filter      *explore.ExpressionFilter
	metrics     *metrics.Metrics
	log         *logger.Logger
	pageSize    int
	loadTimeout time.Duration

	mu       sync.RWMutex
	records  []models.Record
	byID     map[string]int
	loadedAt time.Time
}

// NewRecordService creates a record service with an empty snapshot
func NewRecordService(source store.Source, cfg config.ExplorerConfig, m *metrics.Metrics, log *logger.Logger) *RecordService {
	return &RecordService{
		source:      source,
		loader:      store.NewLoader(source, log, store.WithBatchSize(cfg.BatchSize), store.WithMetrics(m)),
		filter:      explore.NewExpressionFilter(),
		metrics:     m,
		log:         log,
		pageSize:    cfg.PageSize,
		loadTimeout: cfg.LoadTimeout,
		records:     []models.Record{},
		byID:        map[string]int{},
	}
}

// Reload replaces the snapshot with a fresh load. On failure the previous
// snapshot stays in place.
func (s *RecordService) Reload(ctx context.Context) (int, error) {
	if s.loadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.loadTimeout)
		defer cancel()
	}

	start := time.Now()
	records, err := s.loader.Load(ctx)
	s.metrics.RecordLoad(len(records), time.Since(start), err)
	if err != nil {
		s.log.Error("snapshot reload failed", "error", err)
		return 0, fmt.Errorf("failed to load records: %w", err)
	}

	byID := make(map[string]int, len(records))
	for i := range records {
		byID[records[i].ID] = i
	}

	s.mu.Lock()
	s.records = records
	s.byID = byID
	s.loadedAt = time.Now()
	s.mu.Unlock()

	s.log.Info("snapshot loaded",
		"count", len(records),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return len(records), nil
}

// Start keeps snapshot tags current until ctx ends or the returned func is called
func (s *RecordService) Start(ctx context.Context, bus notify.Bus) (func(), error) {
	return bus.Subscribe(ctx, notify.AllTagsTopic, s.ApplyEvent)
}

// ApplyEvent folds one tag event into the snapshot. Tag slices are replaced,
// never edited in place, so pages already handed out stay unchanged.
func (s *RecordService) ApplyEvent(event notify.Event) {
	if event.Tag == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.byID[event.RecordID]
	if !ok {
		s.log.Debug("tag event for unknown record", "record_id", event.RecordID)
		return
	}
	rec := &s.records[i]
	idx := tagIndex(rec.Tags, event.Tag.ID)

	switch event.Type {
	case notify.EventTagAdded:
		if idx >= 0 {
			return
		}
		tags := make([]models.Tag, 0, len(rec.Tags)+1)
		tags = append(tags, *event.Tag)
		rec.Tags = append(tags, rec.Tags...)
	case notify.EventTagRemoved:
		if idx < 0 {
			return
		}
		tags := make([]models.Tag, 0, len(rec.Tags)-1)
		tags = append(tags, rec.Tags[:idx]...)
		rec.Tags = append(tags, rec.Tags[idx+1:]...)
	}
}

// Explore filters the snapshot and returns the requested page
func (s *RecordService) Explore(ctx context.Context, q ExploreQuery) (*ExploreResult, error) {
	keywords := explore.NewKeywordSet(q.Keywords...)

	s.mu.RLock()
	visible, err := s.filter.VisibleRecordsWhere(s.records, keywords, q.Filters, q.Expression)
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}

	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = s.pageSize
	}
	page := explore.PageOf(visible, q.Page, pageSize)

	colors := make(map[string]explore.TagColor)
	for _, r := range page.Records {
		for _, t := range r.Tags {
			if _, seen := colors[t.Text]; !seen {
				colors[t.Text] = explore.ColorFor(t.Text)
			}
		}
	}

	return &ExploreResult{Page: page, TagColors: colors}, nil
}

// Facets returns the distinct values of every facet in the snapshot
func (s *RecordService) Facets() map[models.Facet][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return explore.FacetOptions(s.records)
}

// Records reads a raw range of active records from the source
func (s *RecordService) Records(ctx context.Context, from, to int) ([]models.Record, error) {
	return s.source.FetchRecords(ctx, from, to)
}

// Record returns one record from the snapshot
func (s *RecordService) Record(id string) (models.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byID[id]
	if !ok {
		return models.Record{}, false
	}
	return s.records[i], true
}

// TagIndex returns the position of a tag in the record's snapshot list
func (s *RecordService) TagIndex(recordID, tagID string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byID[recordID]
	if !ok {
		return 0, false
	}
	idx := tagIndex(s.records[i].Tags, tagID)
	return idx, idx >= 0
}

// Stats describes the current snapshot
func (s *RecordService) Stats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"records":   len(s.records),
		"loaded_at": s.loadedAt,
	}
}

func tagIndex(tags []models.Tag, tagID string) int {
	for i, t := range tags {
		if t.ID == tagID {
			return i
		}
	}
	return -1
}
