package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sampledesk/sampledesk/modules/fulfillment/domain/auditlog"
	"github.com/sampledesk/sampledesk/modules/fulfillment/infrastructure/persistence/models"
	"github.com/sampledesk/sampledesk/pkg/composables"
	"github.com/sampledesk/sampledesk/pkg/repo"
)

// AuditLogRepository only ever inserts and reads. There is no update or
// delete path, matching the append-only contract.
type AuditLogRepository struct{}

func NewAuditLogRepository() auditlog.Repository {
	return &AuditLogRepository{}
}

func (r *AuditLogRepository) Create(ctx context.Context, entry *auditlog.Entry) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	row := toDBAuditEntry(entry)
	_, err = tx.Exec(ctx, `
		INSERT INTO audit_log_entries (id, actor, action, entity_type, entity_id, before, after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		row.ID, row.Actor, row.Action, row.EntityType, row.EntityID, row.Before, row.After, row.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (r *AuditLogRepository) List(ctx context.Context, params *auditlog.FindParams) ([]*auditlog.Entry, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	where, args := buildAuditFilters(params)
	query := `
		SELECT id, actor, action, entity_type, entity_id, before, after, created_at
		FROM audit_log_entries
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_at ASC
	`
	if params != nil {
		query += " " + repo.FormatLimitOffset(params.Limit, params.Offset)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var results []*auditlog.Entry
	for rows.Next() {
		var m models.AuditLogEntry
		if err := rows.Scan(&m.ID, &m.Actor, &m.Action, &m.EntityType, &m.EntityID, &m.Before, &m.After, &m.CreatedAt); err != nil {
			return nil, err
		}
		entry, err := toDomainAuditEntry(&m)
		if err != nil {
			return nil, err
		}
		results = append(results, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *AuditLogRepository) Count(ctx context.Context, params *auditlog.FindParams) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	where, args := buildAuditFilters(params)
	var count int64
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM audit_log_entries WHERE `+strings.Join(where, " AND "), args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count audit entries: %w", err)
	}
	return count, nil
}

func buildAuditFilters(params *auditlog.FindParams) ([]string, []any) {
	where := []string{"1 = 1"}
	var args []any
	if params == nil {
		return where, args
	}
	if params.Actor != "" {
		args = append(args, params.Actor)
		where = append(where, fmt.Sprintf("actor = $%d", len(args)))
	}
	if params.Action != "" {
		args = append(args, params.Action)
		where = append(where, fmt.Sprintf("action = $%d", len(args)))
	}
	if params.EntityType != "" {
		args = append(args, params.EntityType)
		where = append(where, fmt.Sprintf("entity_type = $%d", len(args)))
	}
	if params.EntityID != uuid.Nil {
		args = append(args, params.EntityID)
		where = append(where, fmt.Sprintf("entity_id = $%d", len(args)))
	}
	if params.From != nil {
		args = append(args, *params.From)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if params.To != nil {
		args = append(args, *params.To)
		where = append(where, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	return where, args
}
