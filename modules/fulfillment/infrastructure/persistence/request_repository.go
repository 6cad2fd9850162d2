package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sampledesk/sampledesk/modules/fulfillment/domain/request"
	"github.com/sampledesk/sampledesk/modules/fulfillment/infrastructure/persistence/models"
	"github.com/sampledesk/sampledesk/pkg/composables"
	"github.com/sampledesk/sampledesk/pkg/repo"
	"github.com/sampledesk/sampledesk/pkg/serrors"
)

const requestColumns = `id, display_id, company_id, company_name, company_vip, contact_name, contact_email,
	brief_text, lines, product_changes, status, claimed_by, claimed_at, duplicate_hash,
	info_request_message, info_requested_by, info_requested_at, info_response_message, info_responded_at,
	reviewed_by, reviewed_at, review_notes, rejection_reason, deleted_at, created_at, updated_at`

type RequestRepository struct{}

func NewRequestRepository() request.Repository {
	return &RequestRepository{}
}

func (r *RequestRepository) Create(ctx context.Context, entity *request.Request) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	row, err := toDBRequest(entity)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO requests (`+requestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)
	`,
		row.ID, row.DisplayID, row.CompanyID, row.CompanyName, row.CompanyVIP, row.ContactName, row.ContactEmail,
		row.BriefText, row.Lines, row.ProductChanges, row.Status, row.ClaimedBy, row.ClaimedAt, row.DuplicateHash,
		row.InfoRequestMessage, row.InfoRequestedBy, row.InfoRequestedAt, row.InfoResponseMessage, row.InfoRespondedAt,
		row.ReviewedBy, row.ReviewedAt, row.ReviewNotes, row.RejectionReason, row.DeletedAt, row.CreatedAt, row.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

func (r *RequestRepository) Update(ctx context.Context, entity *request.Request) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	row, err := toDBRequest(entity)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `
		UPDATE requests SET
			company_id = $2, company_name = $3, company_vip = $4, contact_name = $5, contact_email = $6,
			brief_text = $7, lines = $8, product_changes = $9, status = $10, claimed_by = $11, claimed_at = $12,
			info_request_message = $13, info_requested_by = $14, info_requested_at = $15,
			info_response_message = $16, info_responded_at = $17,
			reviewed_by = $18, reviewed_at = $19, review_notes = $20, rejection_reason = $21,
			deleted_at = $22, updated_at = $23
		WHERE id = $1
	`,
		row.ID, row.CompanyID, row.CompanyName, row.CompanyVIP, row.ContactName, row.ContactEmail,
		row.BriefText, row.Lines, row.ProductChanges, row.Status, row.ClaimedBy, row.ClaimedAt,
		row.InfoRequestMessage, row.InfoRequestedBy, row.InfoRequestedAt,
		row.InfoResponseMessage, row.InfoRespondedAt,
		row.ReviewedBy, row.ReviewedAt, row.ReviewNotes, row.RejectionReason,
		row.DeletedAt, row.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return serrors.ErrNotFound
	}
	return nil
}

func (r *RequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*request.Request, error) {
	return r.getOne(ctx, `id = $1 AND deleted_at IS NULL`, id)
}

func (r *RequestRepository) GetByDisplayID(ctx context.Context, displayID string) (*request.Request, error) {
	return r.getOne(ctx, `display_id = $1 AND deleted_at IS NULL`, displayID)
}

func (r *RequestRepository) GetActiveByHash(ctx context.Context, hash string) (*request.Request, error) {
	return r.getOne(ctx, `duplicate_hash = $1 AND deleted_at IS NULL`, hash)
}

func (r *RequestRepository) ExistsDisplayID(ctx context.Context, displayID string) (bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM requests WHERE display_id = $1)`, displayID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check display id: %w", err)
	}
	return exists, nil
}

func (r *RequestRepository) List(ctx context.Context, params *request.FindParams) ([]*request.Request, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	where, args := buildRequestFilters(params)
	query := `SELECT ` + requestColumns + ` FROM requests WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_at DESC`
	if params != nil {
		query += " " + repo.FormatLimitOffset(params.Limit, params.Offset)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var results []*request.Request
	for rows.Next() {
		entity, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *RequestRepository) Count(ctx context.Context, params *request.FindParams) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	where, args := buildRequestFilters(params)
	var count int64
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM requests WHERE `+strings.Join(where, " AND "), args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count requests: %w", err)
	}
	return count, nil
}

func (r *RequestRepository) getOne(ctx context.Context, where string, arg any) (*request.Request, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	row := tx.QueryRow(ctx, `SELECT `+requestColumns+` FROM requests WHERE `+where, arg)
	entity, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, serrors.ErrNotFound
		}
		return nil, err
	}
	return entity, nil
}

func buildRequestFilters(params *request.FindParams) ([]string, []any) {
	where := []string{"deleted_at IS NULL"}
	var args []any
	if params == nil {
		return where, args
	}
	if params.Status != "" {
		args = append(args, params.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if params.ClaimedBy != "" {
		args = append(args, params.ClaimedBy)
		where = append(where, fmt.Sprintf("claimed_by = $%d", len(args)))
	}
	if params.CompanyID != "" {
		args = append(args, params.CompanyID)
		where = append(where, fmt.Sprintf("company_id = $%d", len(args)))
	}
	return where, args
}

func scanRequest(row pgx.Row) (*request.Request, error) {
	var m models.Request
	if err := row.Scan(
		&m.ID, &m.DisplayID, &m.CompanyID, &m.CompanyName, &m.CompanyVIP, &m.ContactName, &m.ContactEmail,
		&m.BriefText, &m.Lines, &m.ProductChanges, &m.Status, &m.ClaimedBy, &m.ClaimedAt, &m.DuplicateHash,
		&m.InfoRequestMessage, &m.InfoRequestedBy, &m.InfoRequestedAt, &m.InfoResponseMessage, &m.InfoRespondedAt,
		&m.ReviewedBy, &m.ReviewedAt, &m.ReviewNotes, &m.RejectionReason, &m.DeletedAt, &m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return toDomainRequest(&m)
}
