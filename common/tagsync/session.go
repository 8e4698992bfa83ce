package tagsync

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/lyzr/explorer/common/logger"
	"github.com/lyzr/explorer/common/metrics"
	"github.com/lyzr/explorer/common/models"
	"github.com/lyzr/explorer/common/notify"
)

// ErrSessionClosed is returned by mutations after Close
var ErrSessionClosed = errors.New("tag session closed")

// Session is the editable tag list of one open record. The list is newest
// first; placeholders for in-flight adds sit where they were inserted.
type Session struct {
	sync     *Synchronizer
	recordID string
	log      *logger.Logger

	mu     sync.Mutex
	tags   []models.Tag
	closed bool

	inflight sync.WaitGroup

	// serial mode only; tasks wait in queue in submission order and
	// queueReady holds at most one wakeup for drain
	serial     bool
	queueMu    sync.Mutex
	queue      []func()
	queueReady chan struct{}
	queueStop  chan struct{}
	queueDone  chan struct{}
	closeOnce  sync.Once
}

// RecordID returns the record this session edits
func (s *Session) RecordID() string {
	return s.recordID
}

// Tags returns a snapshot of the current list
func (s *Session) Tags() []models.Tag {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() []models.Tag {
	out := make([]models.Tag, len(s.tags))
	copy(out, s.tags)
	return out
}

// Add shows text as a pending tag at the front of the list and persists it
// in the background. The returned channel yields exactly one Result.
// Empty or blank text fails with models.ErrValidation before any backend call.
func (s *Session) Add(ctx context.Context, text string) (<-chan Result, error) {
	trimmed, err := models.NormalizeTagText(text)
	if err != nil {
		return nil, err
	}

	placeholder := models.Tag{
		ID:        s.sync.placeholderID(),
		RecordID:  s.recordID,
		Text:      trimmed,
		CreatedAt: s.sync.now(),
		Pending:   true,
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	s.tags = append([]models.Tag{placeholder}, s.tags...)
	snapshot := s.snapshotLocked()
	s.inflight.Add(1)
	s.mu.Unlock()
	s.changed(snapshot)

	out := make(chan Result, 1)
	s.run(func() {
		tag, err := s.sync.backend.AddTag(ctx, s.recordID, trimmed)
		res := Result{Op: OpAdd, RecordID: s.recordID, TempID: placeholder.ID, Err: err}

		s.mu.Lock()
		idx := s.indexLocked(placeholder.ID)
		switch {
		case err != nil:
			if idx >= 0 {
				s.tags = removeAt(s.tags, idx)
			}
			res.Tag = placeholder
		default:
			tag.Pending = false
			res.Tag = tag
			s.confirmAddLocked(idx, tag)
		}
		snapshot := s.snapshotLocked()
		s.mu.Unlock()

		s.changed(snapshot)
		s.settle(out, res)
	})

	return out, nil
}

// confirmAddLocked swaps the placeholder at idx for the confirmed tag. A
// reconciliation may already have brought the confirmed tag in, or dropped
// the placeholder; neither may produce a duplicate.
func (s *Session) confirmAddLocked(idx int, tag models.Tag) {
	existing := s.indexLocked(tag.ID)
	switch {
	case idx >= 0 && existing >= 0:
		s.tags = removeAt(s.tags, idx)
	case idx >= 0:
		s.tags[idx] = tag
	case existing < 0:
		s.tags = append([]models.Tag{tag}, s.tags...)
	}
}

// Remove takes the tag out of the list immediately and deletes it in the
// background; if the delete fails the tag goes back where it was, or at the
// end if the list has since shrunk. Unknown ids fail with models.ErrNotFound
// and placeholders with models.ErrPending, both without a backend call.
func (s *Session) Remove(ctx context.Context, tagID string) (<-chan Result, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	idx := s.indexLocked(tagID)
	if idx < 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("tag %s: %w", tagID, models.ErrNotFound)
	}
	if s.tags[idx].IsPlaceholder() {
		s.mu.Unlock()
		return nil, fmt.Errorf("tag %s: %w", tagID, models.ErrPending)
	}
	removed := s.tags[idx]
	s.tags = removeAt(s.tags, idx)
	snapshot := s.snapshotLocked()
	s.inflight.Add(1)
	s.mu.Unlock()
	s.changed(snapshot)

	out := make(chan Result, 1)
	s.run(func() {
		err := s.sync.backend.RemoveTag(ctx, tagID)
		res := Result{Op: OpRemove, RecordID: s.recordID, Tag: removed, Err: err}

		if err != nil {
			s.mu.Lock()
			if s.indexLocked(removed.ID) < 0 {
				s.tags = insertAt(s.tags, min(idx, len(s.tags)), removed)
			}
			snapshot := s.snapshotLocked()
			s.mu.Unlock()
			s.changed(snapshot)
		}

		s.settle(out, res)
	})

	return out, nil
}

// Reload replaces the confirmed part of the list with the backend's view
func (s *Session) Reload(ctx context.Context) error {
	return s.reconcile(ctx, ReloadReconciler{}, notify.Event{RecordID: s.recordID})
}

// Watch applies every change notification for this record through the
// synchronizer's Reconciler until ctx ends or the returned func is called
func (s *Session) Watch(ctx context.Context, bus notify.Bus) (func(), error) {
	return bus.Subscribe(ctx, notify.TagTopic(s.recordID), func(event notify.Event) {
		s.sync.metrics.RecordTagEvent(string(event.Type))
		if err := s.reconcile(ctx, s.sync.reconciler, event); err != nil {
			s.log.Warn("tag reconciliation failed", "event", event.Type, "error", err)
		}
	})
}

func (s *Session) reconcile(ctx context.Context, r Reconciler, event notify.Event) error {
	s.mu.Lock()
	confirmed := confirmedOnly(s.tags)
	s.mu.Unlock()

	next, err := r.Reconcile(ctx, s.sync.backend, s.recordID, confirmed, event)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.tags = mergePending(s.tags, next)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.changed(snapshot)
	return nil
}

// Close rejects further mutations, waits for in-flight ones and stops the
// serial worker
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.inflight.Wait()
	s.closeOnce.Do(func() {
		if s.serial {
			close(s.queueStop)
			<-s.queueDone
		}
	})
}

// run executes fn in the background; the caller has already counted it in
// s.inflight
func (s *Session) run(fn func()) {
	task := func() {
		defer s.inflight.Done()
		fn()
	}

	if !s.serial {
		go task()
		return
	}

	s.queueMu.Lock()
	s.queue = append(s.queue, task)
	s.queueMu.Unlock()
	select {
	case s.queueReady <- struct{}{}:
	default:
	}
}

// drain runs queued tasks one at a time until Close
func (s *Session) drain() {
	defer close(s.queueDone)
	for {
		select {
		case <-s.queueReady:
		case <-s.queueStop:
			return
		}
		for task := s.next(); task != nil; task = s.next() {
			task()
		}
	}
}

func (s *Session) next() func() {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	if len(s.queue) == 0 {
		return nil
	}
	task := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]
	return task
}

// QueueLen reports how many serial tasks have not started yet
func (s *Session) QueueLen() int {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	return len(s.queue)
}

func (s *Session) settle(out chan<- Result, res Result) {
	outcome := metrics.OutcomeOK
	switch {
	case IsConflict(res.Err):
		outcome = metrics.OutcomeConflict
	case res.Err != nil:
		outcome = metrics.OutcomeRollback
	}
	s.sync.metrics.RecordTagMutation(string(res.Op), outcome)

	if res.Err != nil {
		s.log.Warn("tag change rolled back",
			"op", res.Op,
			"tag_id", res.Tag.ID,
			"tag_text", res.Tag.Text,
			"error", res.Err,
		)
		if s.sync.onError != nil {
			s.sync.onError(res)
		}
	}

	out <- res
	close(out)
}

func (s *Session) changed(snapshot []models.Tag) {
	if s.sync.onChange != nil {
		s.sync.onChange(s.recordID, snapshot)
	}
}

func (s *Session) indexLocked(tagID string) int {
	for i, t := range s.tags {
		if t.ID == tagID {
			return i
		}
	}
	return -1
}

// mergePending keeps still-pending placeholders at the front of the new
// confirmed list, dropping any whose text is now confirmed
func mergePending(current, confirmed []models.Tag) []models.Tag {
	texts := make(map[string]struct{}, len(confirmed))
	for _, t := range confirmed {
		texts[t.Text] = struct{}{}
	}

	merged := make([]models.Tag, 0, len(current)+len(confirmed))
	for _, t := range current {
		if !t.IsPlaceholder() {
			continue
		}
		if _, dup := texts[t.Text]; dup {
			continue
		}
		merged = append(merged, t)
	}
	return append(merged, confirmed...)
}

func removeAt(tags []models.Tag, i int) []models.Tag {
	out := make([]models.Tag, 0, len(tags)-1)
	out = append(out, tags[:i]...)
	return append(out, tags[i+1:]...)
}

func insertAt(tags []models.Tag, i int, tag models.Tag) []models.Tag {
	out := make([]models.Tag, 0, len(tags)+1)
	out = append(out, tags[:i]...)
	out = append(out, tag)
	return append(out, tags[i:]...)
}
