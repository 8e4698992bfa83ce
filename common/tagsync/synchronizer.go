package tagsync

import (
	"context"
	"fmt"
	"time"

	"github.com/lyzr/explorer/common/logger"
	"github.com/lyzr/explorer/common/metrics"
	"github.com/lyzr/explorer/common/models"
	"github.com/oklog/ulid/v2"
)

// Synchronizer opens sessions against one Backend
type Synchronizer struct {
	backend    Backend
	log        *logger.Logger
	metrics    *metrics.Metrics
	reconciler Reconciler
	serial     bool
	onError    func(Result)
	onChange   func(recordID string, tags []models.Tag)
	now        func() time.Time
}

// New creates a synchronizer
func New(backend Backend, log *logger.Logger, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		backend:    backend,
		log:        log,
		reconciler: ReloadReconciler{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open loads the record's tags and returns a session for editing them
func (s *Synchronizer) Open(ctx context.Context, recordID string) (*Session, error) {
	tags, err := s.backend.GetTags(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tags for record %s: %w", recordID, err)
	}
	return s.OpenWith(recordID, tags), nil
}

// OpenWith returns a session seeded with already-known tags
func (s *Synchronizer) OpenWith(recordID string, tags []models.Tag) *Session {
	sess := &Session{
		sync:     s,
		recordID: recordID,
		tags:     confirmedOnly(tags),
		log:      s.log.WithRecordID(recordID),
	}
	if s.serial {
		sess.serial = true
		sess.queueReady = make(chan struct{}, 1)
		sess.queueStop = make(chan struct{})
		sess.queueDone = make(chan struct{})
		go sess.drain()
	}
	return sess
}

func (s *Synchronizer) placeholderID() string {
	return models.TempTagPrefix + ulid.Make().String()
}

func confirmedOnly(tags []models.Tag) []models.Tag {
	out := make([]models.Tag, 0, len(tags))
	for _, t := range tags {
		if !t.IsPlaceholder() {
			out = append(out, t)
		}
	}
	return out
}
