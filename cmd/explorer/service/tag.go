package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lyzr/explorer/common/logger"
	"github.com/lyzr/explorer/common/metrics"
	"github.com/lyzr/explorer/common/models"
	"github.com/lyzr/explorer/common/notify"
	"github.com/lyzr/explorer/common/tagsync"
)

// TagIndexer locates a tag in the loaded snapshot
type TagIndexer interface {
	TagIndex(recordID, tagID string) (int, bool)
}

// TagService handles tag operations and announces every confirmed change on
// the notification bus
type TagService struct {
	store   TagStore
	bus     notify.Bus
	index   TagIndexer
	metrics *metrics.Metrics
	log     *logger.Logger
	now     func() time.Time
}

var _ tagsync.Backend = (*TagService)(nil)

// NewTagService creates a new tag service. index may be nil; removal events
// then carry no patch and subscribers reload instead.
func NewTagService(store TagStore, bus notify.Bus, index TagIndexer, m *metrics.Metrics, log *logger.Logger) *TagService {
	return &TagService{
		store:   store,
		bus:     bus,
		index:   index,
		metrics: m,
		log:     log,
		now:     time.Now,
	}
}

// GetTags returns the record's tags, newest first
func (s *TagService) GetTags(ctx context.Context, recordID string) ([]models.Tag, error) {
	return s.store.GetTags(ctx, recordID)
}

// FetchAllTags returns every tag
func (s *TagService) FetchAllTags(ctx context.Context) ([]models.Tag, error) {
	return s.store.FetchAllTags(ctx)
}

// AddTag persists a tag and publishes tag.added
func (s *TagService) AddTag(ctx context.Context, recordID, text string) (models.Tag, error) {
	tag, err := s.store.AddTag(ctx, recordID, text)
	if err != nil {
		s.metrics.RecordTagMutation(string(tagsync.OpAdd), outcomeFor(err))
		return models.Tag{}, err
	}
	s.metrics.RecordTagMutation(string(tagsync.OpAdd), metrics.OutcomeOK)

	s.log.WithRecordID(recordID).Info("tag added", "tag_id", tag.ID, "tag_text", tag.Text)

	patch, err := tagsync.AddPatch(tag)
	if err != nil {
		s.log.Warn("failed to build tag patch", "tag_id", tag.ID, "error", err)
	}
	s.publish(ctx, notify.EventTagAdded, tag, patch)

	return tag, nil
}

// RemoveTag implements tagsync.Backend
func (s *TagService) RemoveTag(ctx context.Context, tagID string) error {
	_, err := s.DeleteTag(ctx, tagID)
	return err
}

// DeleteTag deletes a tag, publishes tag.removed and returns the removed tag
func (s *TagService) DeleteTag(ctx context.Context, tagID string) (models.Tag, error) {
	tag, err := s.store.Delete(ctx, tagID)
	if err != nil {
		s.metrics.RecordTagMutation(string(tagsync.OpRemove), outcomeFor(err))
		return models.Tag{}, err
	}
	s.metrics.RecordTagMutation(string(tagsync.OpRemove), metrics.OutcomeOK)

	s.log.WithRecordID(tag.RecordID).WithTagID(tag.ID).Info("tag removed", "tag_text", tag.Text)

	var patch json.RawMessage
	if s.index != nil {
		if idx, ok := s.index.TagIndex(tag.RecordID, tag.ID); ok {
			patch, err = tagsync.RemovePatch(idx, tag.ID)
			if err != nil {
				s.log.Warn("failed to build tag patch", "tag_id", tag.ID, "error", err)
			}
		}
	}
	s.publish(ctx, notify.EventTagRemoved, tag, patch)

	return tag, nil
}

// publish logs and drops bus failures; the change is already stored
func (s *TagService) publish(ctx context.Context, typ notify.EventType, tag models.Tag, patch json.RawMessage) {
	event := notify.Event{
		Type:     typ,
		RecordID: tag.RecordID,
		Tag:      &tag,
		Patch:    patch,
		At:       s.now(),
	}

	if err := s.bus.Publish(ctx, notify.TagTopic(tag.RecordID), event); err != nil {
		s.log.Warn("failed to publish tag event",
			"type", typ,
			"record_id", tag.RecordID,
			"tag_id", tag.ID,
			"error", err,
		)
	}
}

func outcomeFor(err error) string {
	if tagsync.IsConflict(err) {
		return metrics.OutcomeConflict
	}
	return metrics.OutcomeRollback
}
