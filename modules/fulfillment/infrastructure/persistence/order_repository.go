package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sampledesk/sampledesk/modules/fulfillment/domain/order"
	"github.com/sampledesk/sampledesk/modules/fulfillment/infrastructure/persistence/models"
	"github.com/sampledesk/sampledesk/pkg/composables"
	"github.com/sampledesk/sampledesk/pkg/repo"
	"github.com/sampledesk/sampledesk/pkg/serrors"
)

const orderColumns = `id, display_id, request_id, status, checklist, lot_numbers, packed_by, packed_at,
	documents_confirmed, shipment, shipped_by, shipped_at, created_at, updated_at`

type OrderRepository struct{}

func NewOrderRepository() order.Repository {
	return &OrderRepository{}
}

func (r *OrderRepository) Create(ctx context.Context, entity *order.Order) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	row, err := toDBOrder(entity)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		row.ID, row.DisplayID, row.RequestID, row.Status, row.Checklist, row.LotNumbers, row.PackedBy, row.PackedAt,
		row.DocumentsConfirmed, row.Shipment, row.ShippedBy, row.ShippedAt, row.CreatedAt, row.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *OrderRepository) Update(ctx context.Context, entity *order.Order) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	row, err := toDBOrder(entity)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `
		UPDATE orders SET
			status = $2, checklist = $3, lot_numbers = $4, packed_by = $5, packed_at = $6,
			documents_confirmed = $7, shipment = $8, shipped_by = $9, shipped_at = $10, updated_at = $11
		WHERE id = $1
	`,
		row.ID, row.Status, row.Checklist, row.LotNumbers, row.PackedBy, row.PackedAt,
		row.DocumentsConfirmed, row.Shipment, row.ShippedBy, row.ShippedAt, row.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return serrors.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.getOne(ctx, `id = $1`, id)
}

func (r *OrderRepository) GetByDisplayID(ctx context.Context, displayID string) (*order.Order, error) {
	return r.getOne(ctx, `display_id = $1`, displayID)
}

func (r *OrderRepository) GetByRequestID(ctx context.Context, requestID uuid.UUID) (*order.Order, error) {
	return r.getOne(ctx, `request_id = $1`, requestID)
}

func (r *OrderRepository) ExistsForRequest(ctx context.Context, requestID uuid.UUID) (bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE request_id = $1)`, requestID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check order for request: %w", err)
	}
	return exists, nil
}

func (r *OrderRepository) List(ctx context.Context, params order.FindParams) ([]*order.Order, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	where, args := buildOrderFilters(params)
	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at ASC ` + repo.FormatLimitOffset(params.Limit, params.Offset)

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var results []*order.Order
	for rows.Next() {
		entity, err := scanOrder(rows)
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

func (r *OrderRepository) Count(ctx context.Context, params order.FindParams) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	where, args := buildOrderFilters(params)
	query := `SELECT COUNT(*) FROM orders`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	var count int64
	if err := tx.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return count, nil
}

func (r *OrderRepository) getOne(ctx context.Context, where string, arg any) (*order.Order, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	row := tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE `+where, arg)
	entity, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, serrors.ErrNotFound
		}
		return nil, err
	}
	return entity, nil
}

func buildOrderFilters(params order.FindParams) ([]string, []any) {
	var where []string
	var args []any
	if params.Status != "" {
		args = append(args, params.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if params.CompanyID != "" {
		args = append(args, params.CompanyID)
		where = append(where, fmt.Sprintf("request_id IN (SELECT id FROM requests WHERE company_id = $%d)", len(args)))
	}
	return where, args
}

func scanOrder(row pgx.Row) (*order.Order, error) {
	var m models.Order
	if err := row.Scan(
		&m.ID, &m.DisplayID, &m.RequestID, &m.Status, &m.Checklist, &m.LotNumbers, &m.PackedBy, &m.PackedAt,
		&m.DocumentsConfirmed, &m.Shipment, &m.ShippedBy, &m.ShippedAt, &m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return toDomainOrder(&m)
}
