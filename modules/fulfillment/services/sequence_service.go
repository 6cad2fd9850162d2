package services

import (
	"context"
	"fmt"

	"github.com/sampledesk/sampledesk/modules/fulfillment/domain/sequence"
)

// SequenceService allocates human-readable display identifiers. Numbers come
// from a per-scope counter row incremented atomically, so concurrent callers
// never see the same number; a rolled-back caller leaves a gap, which is
// accepted.
type SequenceService struct {
	repo sequence.Repository
}

func NewSequenceService(repo sequence.Repository) *SequenceService {
	return &SequenceService{repo: repo}
}

// NextDisplayID returns the next identifier for scope, e.g. "REQ-00042".
// Must run inside the transaction that persists the entity.
func (s *SequenceService) NextDisplayID(ctx context.Context, scope, prefix string) (string, error) {
	n, err := s.repo.Next(ctx, scope)
	if err != nil {
		return "", fmt.Errorf("next %s counter: %w", scope, err)
	}
	return fmt.Sprintf("%s-%05d", prefix, n), nil
}
