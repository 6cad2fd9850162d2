package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sampledesk/sampledesk/modules/notifications/domain/message"
	"github.com/sampledesk/sampledesk/modules/notifications/infrastructure/persistence/models"
	"github.com/sampledesk/sampledesk/pkg/composables"
	"github.com/sampledesk/sampledesk/pkg/repo"
	"github.com/sampledesk/sampledesk/pkg/serrors"
)

const messageColumns = `id, type, from_address, to_addresses, subject, body, status, attempt_count,
	next_attempt_at, provider_message_id, error_message, opened, complained,
	related_request_id, related_order_id, related_company_id, sent_at, finalized_at, created_at, updated_at`

type MessageRepository struct{}

func NewMessageRepository() message.Repository {
	return &MessageRepository{}
}

func (r *MessageRepository) Create(ctx context.Context, m *message.Message) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	row, err := toDBMessage(m)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO outbox_messages (`+messageColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`,
		row.ID, row.Type, row.FromAddress, row.ToAddresses, row.Subject, row.Body, row.Status, row.AttemptCount,
		row.NextAttemptAt, row.ProviderMessageID, row.ErrorMessage, row.Opened, row.Complained,
		row.RelatedRequestID, row.RelatedOrderID, row.RelatedCompanyID, row.SentAt, row.FinalizedAt, row.CreatedAt, row.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outbox message: %w", err)
	}
	return nil
}

func (r *MessageRepository) Update(ctx context.Context, m *message.Message) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	row, err := toDBMessage(m)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `
		UPDATE outbox_messages SET
			status = $2, attempt_count = $3, next_attempt_at = $4, provider_message_id = $5,
			error_message = $6, opened = $7, complained = $8, sent_at = $9, finalized_at = $10, updated_at = $11
		WHERE id = $1
	`,
		row.ID, row.Status, row.AttemptCount, row.NextAttemptAt, row.ProviderMessageID,
		row.ErrorMessage, row.Opened, row.Complained, row.SentAt, row.FinalizedAt, row.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update outbox message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return serrors.ErrNotFound
	}
	return nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id uuid.UUID) (*message.Message, error) {
	return r.getOne(ctx, `id = $1`, id)
}

func (r *MessageRepository) GetByProviderID(ctx context.Context, providerID string) (*message.Message, error) {
	return r.getOne(ctx, `provider_message_id = $1`, providerID)
}

func (r *MessageRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*message.Message, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `
		SELECT `+messageColumns+`
		FROM outbox_messages
		WHERE status = $1 AND (next_attempt_at IS NULL OR next_attempt_at <= $2)
		ORDER BY created_at ASC
		LIMIT $3
	`, message.StatusPending, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due messages: %w", err)
	}
	defer rows.Close()
	return collectMessages(rows)
}

func (r *MessageRepository) List(ctx context.Context, params *message.FindParams) ([]*message.Message, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	where, args := buildMessageFilters(params)
	query := `SELECT ` + messageColumns + ` FROM outbox_messages WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_at DESC`
	if params != nil {
		query += " " + repo.FormatLimitOffset(params.Limit, params.Offset)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()
	return collectMessages(rows)
}

func (r *MessageRepository) Count(ctx context.Context, params *message.FindParams) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	where, args := buildMessageFilters(params)
	var count int64
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_messages WHERE `+strings.Join(where, " AND "), args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return count, nil
}

func (r *MessageRepository) DeleteFinalizedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	tag, err := tx.Exec(ctx, `
		DELETE FROM outbox_messages
		WHERE finalized_at IS NOT NULL AND finalized_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune finalized messages: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *MessageRepository) RequeueFailed(ctx context.Context) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	tag, err := tx.Exec(ctx, `
		UPDATE outbox_messages
		SET status = $1, attempt_count = 0, next_attempt_at = NULL, finalized_at = NULL, error_message = NULL, updated_at = now()
		WHERE status = $2
	`, message.StatusPending, message.StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("requeue failed messages: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *MessageRepository) ReclaimStale(ctx context.Context, before time.Time, maxAttempts int) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	tag, err := tx.Exec(ctx, `
		UPDATE outbox_messages
		SET attempt_count = attempt_count + 1,
			status = CASE WHEN attempt_count + 1 >= $3 THEN $4 ELSE $5 END,
			finalized_at = CASE WHEN attempt_count + 1 >= $3 THEN now() ELSE finalized_at END,
			error_message = $6,
			next_attempt_at = NULL,
			updated_at = now()
		WHERE status = $1 AND updated_at < $2
	`, message.StatusRetrying, before, maxAttempts, message.StatusFailed, message.StatusPending, "send attempt abandoned")
	if err != nil {
		return 0, fmt.Errorf("reclaim stale messages: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *MessageRepository) getOne(ctx context.Context, where string, arg any) (*message.Message, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	row := tx.QueryRow(ctx, `SELECT `+messageColumns+` FROM outbox_messages WHERE `+where, arg)
	m, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, serrors.ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

func buildMessageFilters(params *message.FindParams) ([]string, []any) {
	where := []string{"1 = 1"}
	var args []any
	if params == nil {
		return where, args
	}
	if params.Status != "" {
		args = append(args, params.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if params.Type != "" {
		args = append(args, params.Type)
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}
	return where, args
}

func collectMessages(rows pgx.Rows) ([]*message.Message, error) {
	var results []*message.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func scanMessage(row pgx.Row) (*message.Message, error) {
	var m models.OutboxMessage
	if err := row.Scan(
		&m.ID, &m.Type, &m.FromAddress, &m.ToAddresses, &m.Subject, &m.Body, &m.Status, &m.AttemptCount,
		&m.NextAttemptAt, &m.ProviderMessageID, &m.ErrorMessage, &m.Opened, &m.Complained,
		&m.RelatedRequestID, &m.RelatedOrderID, &m.RelatedCompanyID, &m.SentAt, &m.FinalizedAt, &m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return toDomainMessage(&m)
}

func toDBMessage(m *message.Message) (*models.OutboxMessage, error) {
	to, err := json.Marshal(m.ToAddresses)
	if err != nil {
		return nil, fmt.Errorf("marshal to addresses: %w", err)
	}
	var relatedRequest, relatedOrder *string
	if m.Related.RequestID != nil {
		s := m.Related.RequestID.String()
		relatedRequest = &s
	}
	if m.Related.OrderID != nil {
		s := m.Related.OrderID.String()
		relatedOrder = &s
	}
	return &models.OutboxMessage{
		ID:                m.ID.String(),
		Type:              m.Type,
		FromAddress:       m.FromAddress,
		ToAddresses:       to,
		Subject:           m.Subject,
		Body:              m.Body,
		Status:            m.Status,
		AttemptCount:      m.AttemptCount,
		NextAttemptAt:     m.NextAttemptAt,
		ProviderMessageID: m.ProviderMessageID,
		ErrorMessage:      m.ErrorMessage,
		Opened:            m.Opened,
		Complained:        m.Complained,
		RelatedRequestID:  relatedRequest,
		RelatedOrderID:    relatedOrder,
		RelatedCompanyID:  m.Related.CompanyID,
		SentAt:            m.SentAt,
		FinalizedAt:       m.FinalizedAt,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}, nil
}

func toDomainMessage(row *models.OutboxMessage) (*message.Message, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, fmt.Errorf("parse message id: %w", err)
	}
	var to []string
	if len(row.ToAddresses) > 0 {
		if err := json.Unmarshal(row.ToAddresses, &to); err != nil {
			return nil, fmt.Errorf("unmarshal to addresses: %w", err)
		}
	}
	related := message.Related{CompanyID: row.RelatedCompanyID}
	if row.RelatedRequestID != nil {
		reqID, err := uuid.Parse(*row.RelatedRequestID)
		if err != nil {
			return nil, fmt.Errorf("parse related request id: %w", err)
		}
		related.RequestID = &reqID
	}
	if row.RelatedOrderID != nil {
		ordID, err := uuid.Parse(*row.RelatedOrderID)
		if err != nil {
			return nil, fmt.Errorf("parse related order id: %w", err)
		}
		related.OrderID = &ordID
	}
	return &message.Message{
		ID:                id,
		Type:              row.Type,
		FromAddress:       row.FromAddress,
		ToAddresses:       to,
		Subject:           row.Subject,
		Body:              row.Body,
		Status:            row.Status,
		AttemptCount:      row.AttemptCount,
		NextAttemptAt:     row.NextAttemptAt,
		ProviderMessageID: row.ProviderMessageID,
		ErrorMessage:      row.ErrorMessage,
		Opened:            row.Opened,
		Complained:        row.Complained,
		Related:           related,
		SentAt:            row.SentAt,
		FinalizedAt:       row.FinalizedAt,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}, nil
}
