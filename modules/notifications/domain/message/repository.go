package message

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type FindParams struct {
	Status string
	Type   string
	Limit  int
	Offset int
}

type Repository interface {
	Create(ctx context.Context, m *Message) error
	Update(ctx context.Context, m *Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*Message, error)
	// GetByProviderID resolves a provider message id to the local message,
	// returning serrors.ErrNotFound for ids this system never issued.
	GetByProviderID(ctx context.Context, providerID string) (*Message, error)
	// ListDue returns up to limit pending messages whose NextAttemptAt is
	// unset or has elapsed, oldest first.
	ListDue(ctx context.Context, now time.Time, limit int) ([]*Message, error)
	List(ctx context.Context, params *FindParams) ([]*Message, error)
	Count(ctx context.Context, params *FindParams) (int64, error)
	// DeleteFinalizedBefore prunes terminal messages finalized before cutoff.
	DeleteFinalizedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	// RequeueFailed resets failed messages to pending with zero attempts.
	// Operator action; the send loop never calls this.
	RequeueFailed(ctx context.Context) (int64, error)
	// ReclaimStale counts one attempt against retrying messages not touched
	// since before, putting them back to pending or, once max attempts are
	// spent, to failed. Covers sends abandoned mid-attempt by a crash.
	ReclaimStale(ctx context.Context, before time.Time, maxAttempts int) (int64, error)
}
