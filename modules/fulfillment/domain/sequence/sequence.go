package sequence

import "context"

// Scopes for human-readable display identifiers.
const (
	ScopeRequest = "request"
	ScopeOrder   = "order"
)

// Repository hands out monotonically increasing counters per scope. Next must
// be called inside the transaction that persists the entity so a rolled-back
// create cannot burn an identifier visible to readers.
type Repository interface {
	Next(ctx context.Context, scope string) (int64, error)
}
