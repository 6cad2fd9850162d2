package request

import (
	"context"

	"github.com/google/uuid"
)

type FindParams struct {
	Status    string
	ClaimedBy string
	CompanyID string
	Limit     int
	Offset    int
}

// Repository reads exclude soft-deleted requests; lookups on a missing or
// deleted request return serrors.ErrNotFound.
type Repository interface {
	Create(ctx context.Context, r *Request) error
	Update(ctx context.Context, r *Request) error
	GetByID(ctx context.Context, id uuid.UUID) (*Request, error)
	GetByDisplayID(ctx context.Context, displayID string) (*Request, error)
	ExistsDisplayID(ctx context.Context, displayID string) (bool, error)
	// GetActiveByHash returns the non-deleted request carrying hash, or
	// serrors.ErrNotFound.
	GetActiveByHash(ctx context.Context, hash string) (*Request, error)
	List(ctx context.Context, params *FindParams) ([]*Request, error)
	Count(ctx context.Context, params *FindParams) (int64, error)
}
