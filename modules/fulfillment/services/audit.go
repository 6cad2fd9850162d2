package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sampledesk/sampledesk/modules/fulfillment/domain/auditlog"
	"github.com/sampledesk/sampledesk/pkg/composables"
)

// auditRecorder writes one append-only entry per entity mutation, inside the
// caller's transaction so entity and audit commit or roll back together.
type auditRecorder struct {
	repo auditlog.Repository
}

func newAuditRecorder(repo auditlog.Repository) *auditRecorder {
	return &auditRecorder{repo: repo}
}

func (a *auditRecorder) record(ctx context.Context, action, entityType string, entityID uuid.UUID, before, after any) error {
	var beforeJSON, afterJSON json.RawMessage
	if before != nil {
		b, err := json.Marshal(before)
		if err != nil {
			return fmt.Errorf("marshal audit before: %w", err)
		}
		beforeJSON = b
	}
	if after != nil {
		b, err := json.Marshal(after)
		if err != nil {
			return fmt.Errorf("marshal audit after: %w", err)
		}
		afterJSON = b
	}
	return a.repo.Create(ctx, &auditlog.Entry{
		ID:         uuid.New(),
		Actor:      composables.UseActor(ctx),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Before:     beforeJSON,
		After:      afterJSON,
		CreatedAt:  time.Now(),
	})
}
