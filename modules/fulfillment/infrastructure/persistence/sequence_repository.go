package persistence

import (
	"context"
	"fmt"

	"github.com/sampledesk/sampledesk/modules/fulfillment/domain/sequence"
	"github.com/sampledesk/sampledesk/pkg/composables"
)

type SequenceRepository struct{}

func NewSequenceRepository() sequence.Repository {
	return &SequenceRepository{}
}

// Next bumps the per-scope counter atomically. The upsert serializes
// concurrent callers on the counter row, so two transactions can never
// observe the same value.
func (r *SequenceRepository) Next(ctx context.Context, scope string) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var value int64
	err = tx.QueryRow(ctx, `
		INSERT INTO display_id_counters (scope, value)
		VALUES ($1, 1)
		ON CONFLICT (scope) DO UPDATE SET value = display_id_counters.value + 1
		RETURNING value
	`, scope).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("bump %s counter: %w", scope, err)
	}
	return value, nil
}
