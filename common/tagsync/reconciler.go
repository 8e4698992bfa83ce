package tagsync

import (
	"context"
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/lyzr/explorer/common/logger"
	"github.com/lyzr/explorer/common/models"
	"github.com/lyzr/explorer/common/notify"
	"github.com/lyzr/explorer/common/validation"
)

var patchValidator = validation.NewPatchValidator()

// Reconciler computes a session's new confirmed tag list after a change
// notification. Pending placeholders are handled by the session.
type Reconciler interface {
	Reconcile(ctx context.Context, backend Backend, recordID string, confirmed []models.Tag, event notify.Event) ([]models.Tag, error)
}

// ReloadReconciler refetches the whole list from the backend
type ReloadReconciler struct{}

// Reconcile implements Reconciler
func (ReloadReconciler) Reconcile(ctx context.Context, backend Backend, recordID string, _ []models.Tag, _ notify.Event) ([]models.Tag, error) {
	tags, err := backend.GetTags(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload tags: %w", err)
	}
	return confirmedOnly(tags), nil
}

// PatchReconciler applies the event's JSON patch to the confirmed list and
// falls back to a reload when there is no patch or it does not apply
type PatchReconciler struct {
	Fallback Reconciler
	Log      *logger.Logger
}

// NewPatchReconciler creates a patch reconciler that falls back to reload
func NewPatchReconciler(log *logger.Logger) *PatchReconciler {
	return &PatchReconciler{Fallback: ReloadReconciler{}, Log: log}
}

// Reconcile implements Reconciler
func (p *PatchReconciler) Reconcile(ctx context.Context, backend Backend, recordID string, confirmed []models.Tag, event notify.Event) ([]models.Tag, error) {
	if len(event.Patch) == 0 {
		return p.fallback(ctx, backend, recordID, confirmed, event)
	}

	next, err := applyTagPatch(confirmed, event.Patch)
	if err != nil {
		if p.Log != nil {
			p.Log.Debug("tag patch did not apply, reloading", "record_id", recordID, "error", err)
		}
		return p.fallback(ctx, backend, recordID, confirmed, event)
	}
	return next, nil
}

func (p *PatchReconciler) fallback(ctx context.Context, backend Backend, recordID string, confirmed []models.Tag, event notify.Event) ([]models.Tag, error) {
	fb := p.Fallback
	if fb == nil {
		fb = ReloadReconciler{}
	}
	return fb.Reconcile(ctx, backend, recordID, confirmed, event)
}

// applyTagPatch applies an RFC 6902 patch to the JSON form of tags. Only
// list-slot add, remove and id test operations are accepted. The result is
// deduplicated by id, keeping the first occurrence.
func applyTagPatch(tags []models.Tag, patchJSON []byte) ([]models.Tag, error) {
	if err := patchValidator.Validate(patchJSON); err != nil {
		return nil, err
	}

	doc, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tags: %w", err)
	}

	patch, err := jsonpatch.DecodePatch(patchJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to decode patch: %w", err)
	}

	patched, err := patch.Apply(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to apply patch operations: %w", err)
	}

	var next []models.Tag
	if err := json.Unmarshal(patched, &next); err != nil {
		return nil, fmt.Errorf("failed to unmarshal patched tags: %w", err)
	}

	seen := make(map[string]struct{}, len(next))
	out := make([]models.Tag, 0, len(next))
	for _, t := range next {
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		t.Pending = false
		out = append(out, t)
	}
	return out, nil
}
