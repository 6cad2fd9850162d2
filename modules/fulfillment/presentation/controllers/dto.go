package controllers

import (
	"time"

	"github.com/sampledesk/sampledesk/modules/fulfillment/domain/order"
	"github.com/sampledesk/sampledesk/modules/fulfillment/domain/request"
)

type ProductLineDTO struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
	Notes     string `json:"notes,omitempty"`
}

func (d ProductLineDTO) toDomain() request.ProductLine {
	return request.ProductLine{ProductID: d.ProductID, Quantity: d.Quantity, Notes: d.Notes}
}

type RequestResponse struct {
	ID             string                  `json:"id"`
	DisplayID      string                  `json:"display_id"`
	CompanyID      string                  `json:"company_id"`
	CompanyName    string                  `json:"company_name"`
	CompanyVIP     bool                    `json:"company_vip"`
	ContactName    string                  `json:"contact_name"`
	ContactEmail   string                  `json:"contact_email"`
	BriefText      string                  `json:"brief_text,omitempty"`
	Lines          []request.ProductLine   `json:"lines"`
	ProductChanges []request.ProductChange `json:"product_changes,omitempty"`
	Status         string                  `json:"status"`
	ClaimedBy      *string                 `json:"claimed_by,omitempty"`
	ClaimedAt      *time.Time              `json:"claimed_at,omitempty"`
	InfoRequest    *string                 `json:"info_request_message,omitempty"`
	InfoResponse   *string                 `json:"info_response_message,omitempty"`
	ReviewedBy     *string                 `json:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time              `json:"reviewed_at,omitempty"`
	ReviewNotes    *string                 `json:"review_notes,omitempty"`
	Rejection      *string                 `json:"rejection_reason,omitempty"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`
}

func toRequestResponse(r *request.Request) *RequestResponse {
	return &RequestResponse{
		ID:             r.ID.String(),
		DisplayID:      r.DisplayID,
		CompanyID:      r.CompanyID,
		CompanyName:    r.CompanyName,
		CompanyVIP:     r.CompanyVIP,
		ContactName:    r.ContactName,
		ContactEmail:   r.ContactEmail,
		BriefText:      r.BriefText,
		Lines:          r.Lines,
		ProductChanges: r.ProductChanges,
		Status:         r.Status,
		ClaimedBy:      r.ClaimedBy,
		ClaimedAt:      r.ClaimedAt,
		InfoRequest:    r.InfoRequestMessage,
		InfoResponse:   r.InfoResponseMessage,
		ReviewedBy:     r.ReviewedBy,
		ReviewedAt:     r.ReviewedAt,
		ReviewNotes:    r.ReviewNotes,
		Rejection:      r.RejectionReason,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

type OrderResponse struct {
	ID                 string                  `json:"id"`
	DisplayID          string                  `json:"display_id"`
	RequestID          string                  `json:"request_id"`
	Status             string                  `json:"status"`
	Priority           string                  `json:"priority,omitempty"`
	Checklist          *order.PackingChecklist `json:"checklist,omitempty"`
	LotNumbers         []string                `json:"lot_numbers,omitempty"`
	PackedBy           *string                 `json:"packed_by,omitempty"`
	PackedAt           *time.Time              `json:"packed_at,omitempty"`
	DocumentsConfirmed bool                    `json:"documents_confirmed"`
	Shipment           *order.ShipmentDetails  `json:"shipment,omitempty"`
	ShippedBy          *string                 `json:"shipped_by,omitempty"`
	ShippedAt          *time.Time              `json:"shipped_at,omitempty"`
	CreatedAt          time.Time               `json:"created_at"`
	UpdatedAt          time.Time               `json:"updated_at"`
}

func toOrderResponse(o *order.Order, priority string) *OrderResponse {
	return &OrderResponse{
		ID:                 o.ID.String(),
		DisplayID:          o.DisplayID,
		RequestID:          o.RequestID.String(),
		Status:             o.Status,
		Priority:           priority,
		Checklist:          o.Checklist,
		LotNumbers:         o.LotNumbers,
		PackedBy:           o.PackedBy,
		PackedAt:           o.PackedAt,
		DocumentsConfirmed: o.DocumentsConfirmed,
		Shipment:           o.Shipment,
		ShippedBy:          o.ShippedBy,
		ShippedAt:          o.ShippedAt,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
}

type ListResponse struct {
	Items any   `json:"items"`
	Total int64 `json:"total"`
}
