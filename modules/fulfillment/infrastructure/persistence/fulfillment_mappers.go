package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/sampledesk/sampledesk/modules/fulfillment/domain/auditlog"
	"github.com/sampledesk/sampledesk/modules/fulfillment/domain/order"
	"github.com/sampledesk/sampledesk/modules/fulfillment/domain/request"
	"github.com/sampledesk/sampledesk/modules/fulfillment/infrastructure/persistence/models"
)

func toDBRequest(r *request.Request) (*models.Request, error) {
	lines, err := json.Marshal(r.Lines)
	if err != nil {
		return nil, fmt.Errorf("marshal request lines: %w", err)
	}
	changes, err := json.Marshal(r.ProductChanges)
	if err != nil {
		return nil, fmt.Errorf("marshal product changes: %w", err)
	}
	return &models.Request{
		ID:                  r.ID.String(),
		DisplayID:           r.DisplayID,
		CompanyID:           r.CompanyID,
		CompanyName:         r.CompanyName,
		CompanyVIP:          r.CompanyVIP,
		ContactName:         r.ContactName,
		ContactEmail:        r.ContactEmail,
		BriefText:           r.BriefText,
		Lines:               lines,
		ProductChanges:      changes,
		Status:              r.Status,
		ClaimedBy:           r.ClaimedBy,
		ClaimedAt:           r.ClaimedAt,
		DuplicateHash:       r.DuplicateHash,
		InfoRequestMessage:  r.InfoRequestMessage,
		InfoRequestedBy:     r.InfoRequestedBy,
		InfoRequestedAt:     r.InfoRequestedAt,
		InfoResponseMessage: r.InfoResponseMessage,
		InfoRespondedAt:     r.InfoRespondedAt,
		ReviewedBy:          r.ReviewedBy,
		ReviewedAt:          r.ReviewedAt,
		ReviewNotes:         r.ReviewNotes,
		RejectionReason:     r.RejectionReason,
		DeletedAt:           r.DeletedAt,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}, nil
}

func toDomainRequest(row *models.Request) (*request.Request, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, fmt.Errorf("parse request id: %w", err)
	}
	var lines []request.ProductLine
	if len(row.Lines) > 0 {
		if err := json.Unmarshal(row.Lines, &lines); err != nil {
			return nil, fmt.Errorf("unmarshal request lines: %w", err)
		}
	}
	var changes []request.ProductChange
	if len(row.ProductChanges) > 0 {
		if err := json.Unmarshal(row.ProductChanges, &changes); err != nil {
			return nil, fmt.Errorf("unmarshal product changes: %w", err)
		}
	}
	return &request.Request{
		ID:                  id,
		DisplayID:           row.DisplayID,
		CompanyID:           row.CompanyID,
		CompanyName:         row.CompanyName,
		CompanyVIP:          row.CompanyVIP,
		ContactName:         row.ContactName,
		ContactEmail:        row.ContactEmail,
		BriefText:           row.BriefText,
		Lines:               lines,
		ProductChanges:      changes,
		Status:              row.Status,
		ClaimedBy:           row.ClaimedBy,
		ClaimedAt:           row.ClaimedAt,
		DuplicateHash:       row.DuplicateHash,
		InfoRequestMessage:  row.InfoRequestMessage,
		InfoRequestedBy:     row.InfoRequestedBy,
		InfoRequestedAt:     row.InfoRequestedAt,
		InfoResponseMessage: row.InfoResponseMessage,
		InfoRespondedAt:     row.InfoRespondedAt,
		ReviewedBy:          row.ReviewedBy,
		ReviewedAt:          row.ReviewedAt,
		ReviewNotes:         row.ReviewNotes,
		RejectionReason:     row.RejectionReason,
		DeletedAt:           row.DeletedAt,
		CreatedAt:           row.CreatedAt,
		UpdatedAt:           row.UpdatedAt,
	}, nil
}

func toDBOrder(o *order.Order) (*models.Order, error) {
	var checklist json.RawMessage
	if o.Checklist != nil {
		b, err := json.Marshal(o.Checklist)
		if err != nil {
			return nil, fmt.Errorf("marshal order checklist: %w", err)
		}
		checklist = b
	}
	lots, err := json.Marshal(o.LotNumbers)
	if err != nil {
		return nil, fmt.Errorf("marshal lot numbers: %w", err)
	}
	var shipment json.RawMessage
	if o.Shipment != nil {
		b, err := json.Marshal(o.Shipment)
		if err != nil {
			return nil, fmt.Errorf("marshal shipment: %w", err)
		}
		shipment = b
	}
	return &models.Order{
		ID:                 o.ID.String(),
		DisplayID:          o.DisplayID,
		RequestID:          o.RequestID.String(),
		Status:             o.Status,
		Checklist:          checklist,
		LotNumbers:         lots,
		PackedBy:           o.PackedBy,
		PackedAt:           o.PackedAt,
		DocumentsConfirmed: o.DocumentsConfirmed,
		Shipment:           shipment,
		ShippedBy:          o.ShippedBy,
		ShippedAt:          o.ShippedAt,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}, nil
}

func toDomainOrder(row *models.Order) (*order.Order, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, fmt.Errorf("parse order id: %w", err)
	}
	requestID, err := uuid.Parse(row.RequestID)
	if err != nil {
		return nil, fmt.Errorf("parse order request id: %w", err)
	}
	var checklist *order.PackingChecklist
	if len(row.Checklist) > 0 {
		checklist = &order.PackingChecklist{}
		if err := json.Unmarshal(row.Checklist, checklist); err != nil {
			return nil, fmt.Errorf("unmarshal order checklist: %w", err)
		}
	}
	var lots []string
	if len(row.LotNumbers) > 0 {
		if err := json.Unmarshal(row.LotNumbers, &lots); err != nil {
			return nil, fmt.Errorf("unmarshal lot numbers: %w", err)
		}
	}
	var shipment *order.ShipmentDetails
	if len(row.Shipment) > 0 {
		shipment = &order.ShipmentDetails{}
		if err := json.Unmarshal(row.Shipment, shipment); err != nil {
			return nil, fmt.Errorf("unmarshal shipment: %w", err)
		}
	}
	return &order.Order{
		ID:                 id,
		DisplayID:          row.DisplayID,
		RequestID:          requestID,
		Status:             row.Status,
		Checklist:          checklist,
		LotNumbers:         lots,
		PackedBy:           row.PackedBy,
		PackedAt:           row.PackedAt,
		DocumentsConfirmed: row.DocumentsConfirmed,
		Shipment:           shipment,
		ShippedBy:          row.ShippedBy,
		ShippedAt:          row.ShippedAt,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}, nil
}

func toDBAuditEntry(e *auditlog.Entry) *models.AuditLogEntry {
	return &models.AuditLogEntry{
		ID:         e.ID.String(),
		Actor:      e.Actor,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID.String(),
		Before:     e.Before,
		After:      e.After,
		CreatedAt:  e.CreatedAt,
	}
}

func toDomainAuditEntry(row *models.AuditLogEntry) (*auditlog.Entry, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, fmt.Errorf("parse audit entry id: %w", err)
	}
	entityID, err := uuid.Parse(row.EntityID)
	if err != nil {
		return nil, fmt.Errorf("parse audit entity id: %w", err)
	}
	return &auditlog.Entry{
		ID:         id,
		Actor:      row.Actor,
		Action:     row.Action,
		EntityType: row.EntityType,
		EntityID:   entityID,
		Before:     row.Before,
		After:      row.After,
		CreatedAt:  row.CreatedAt,
	}, nil
}
