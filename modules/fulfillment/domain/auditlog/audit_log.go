package auditlog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Entry is an append-only record of a business mutation. Entries are never
// updated or deleted.
type Entry struct {
	ID         uuid.UUID
	Actor      string
	Action     string
	EntityType string
	EntityID   uuid.UUID
	Before     json.RawMessage
	After      json.RawMessage
	CreatedAt  time.Time
}

type FindParams struct {
	Actor      string
	Action     string
	EntityType string
	EntityID   uuid.UUID
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

type Repository interface {
	Create(ctx context.Context, e *Entry) error
	List(ctx context.Context, params *FindParams) ([]*Entry, error)
	Count(ctx context.Context, params *FindParams) (int64, error)
}
