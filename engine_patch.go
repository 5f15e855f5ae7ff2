package authgate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/registryops/authgate/docstore"
)

// ApplyPatch updates one registered entity under optimistic concurrency.
// The patch is filtered against the entity type's field allow-list, the
// caller's concurrency token is checked against the stored one before any
// write, and the replace itself is conditional, so a writer that loses a
// race gets [ErrConflict] with the fresh token instead of silently
// clobbering the other write. updated_at is stamped server-side; a client
// value for it is ignored.
func (e *Engine) ApplyPatch(ctx context.Context, entityType, entityID string, patch map[string]any, expectedETag string) (*PatchResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	et, ok := e.config.Entities[entityType]
	if !ok {
		return nil, ErrEntityTypeUnknown
	}
	entityID = strings.TrimSpace(entityID)
	if entityID == "" {
		return nil, ErrEntityNotFound
	}

	doc, err := e.store.FindNewest(ctx, et.Collection, et.IDField, entityID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrEntityNotFound
		}
		e.logger.Error("entity lookup failed", "entity_type", entityType, "err", err)
		return nil, fmt.Errorf("%w: entity lookup", ErrStoreUnavailable)
	}

	storedETag := docString(doc, docstore.FieldETag)
	if expectedETag != "" && expectedETag != storedETag {
		return nil, e.patchConflict(ctx, entityType, entityID, storedETag)
	}

	applied := applyAllowedFields(doc, patch, et)
	if applied == 0 {
		e.metricInc(MetricPatchRejected)
		e.emitAudit(ctx, auditEventPatchRejected, false, "", "", ErrEmptyPatch, func() map[string]string {
			return map[string]string{"entity_type": entityType, "entity_id": entityID}
		})
		return nil, ErrEmptyPatch
	}
	doc["updated_at"] = formatTime(e.now())

	// An absent caller token still pins the write to the version just
	// read, so a concurrent writer surfaces as a conflict either way.
	condition := expectedETag
	if condition == "" {
		condition = storedETag
	}

	newETag, err := e.store.Replace(ctx, et.Collection, doc, condition)
	if err != nil {
		if errors.Is(err, docstore.ErrPreconditionFailed) {
			fresh := storedETag
			if current, readErr := e.store.FindNewest(ctx, et.Collection, et.IDField, entityID); readErr == nil {
				fresh = docString(current, docstore.FieldETag)
			}
			return nil, e.patchConflict(ctx, entityType, entityID, fresh)
		}
		e.logger.Error("entity write failed", "entity_type", entityType, "err", err)
		return nil, fmt.Errorf("%w: entity write", ErrStoreUnavailable)
	}

	e.metricInc(MetricPatchApplied)
	e.emitAudit(ctx, auditEventPatchApplied, true, "", "", nil, func() map[string]string {
		return map[string]string{"entity_type": entityType, "entity_id": entityID}
	})

	return &PatchResult{
		Entity: publicEntity(doc),
		ETag:   newETag,
	}, nil
}

func (e *Engine) patchConflict(ctx context.Context, entityType, entityID, currentETag string) error {
	e.metricInc(MetricPatchConflict)
	e.emitAudit(ctx, auditEventPatchConflict, false, "", "", ErrConflict, func() map[string]string {
		return map[string]string{"entity_type": entityType, "entity_id": entityID}
	})
	return &ConflictError{ETag: currentETag}
}

// applyAllowedFields copies allow-listed patch values onto the document
// and reports how many were applied. The partition field and updated_at
// never come from the client, whatever the allow-list says.
func applyAllowedFields(doc docstore.Document, patch map[string]any, et EntityTypeConfig) int {
	allowed := make(map[string]struct{}, len(et.AllowedFields))
	for _, f := range et.AllowedFields {
		allowed[f] = struct{}{}
	}

	applied := 0
	for key, value := range patch {
		if key == et.PartitionField || key == "updated_at" || strings.HasPrefix(key, "_") {
			continue
		}
		if _, ok := allowed[key]; !ok {
			continue
		}
		doc[key] = value
		applied++
	}
	return applied
}

// publicEntity strips store bookkeeping from a document before returning
// it to the caller. Underscore-prefixed fields are internal.
func publicEntity(doc docstore.Document) map[string]any {
	out := make(map[string]any, len(doc))
	for key, value := range doc {
		if strings.HasPrefix(key, "_") {
			continue
		}
		out[key] = value
	}
	return out
}
