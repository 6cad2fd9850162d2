package services

import (
	"context"

	"github.com/sampledesk/sampledesk/modules/fulfillment/domain/auditlog"
)

// AuditLogService exposes read access to the trail; writes happen only as a
// side effect of request and order mutations.
type AuditLogService struct {
	repo auditlog.Repository
}

func NewAuditLogService(repo auditlog.Repository) *AuditLogService {
	return &AuditLogService{repo: repo}
}

func (s *AuditLogService) List(ctx context.Context, params *auditlog.FindParams) ([]*auditlog.Entry, int64, error) {
	entries, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
