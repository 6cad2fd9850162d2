package order

import (
	"context"

	"github.com/google/uuid"
)

// FindParams filters order listings.
type FindParams struct {
	Status    string
	CompanyID string
	Limit     int
	Offset    int
}

type Repository interface {
	Create(ctx context.Context, o *Order) error
	Update(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetByDisplayID(ctx context.Context, displayID string) (*Order, error)
	GetByRequestID(ctx context.Context, requestID uuid.UUID) (*Order, error)
	ExistsForRequest(ctx context.Context, requestID uuid.UUID) (bool, error)
	List(ctx context.Context, params FindParams) ([]*Order, error)
	Count(ctx context.Context, params FindParams) (int64, error)
}
