package models

import (
	"encoding/json"
	"time"
)

type Request struct {
	ID                  string
	DisplayID           string
	CompanyID           string
	CompanyName         string
	CompanyVIP          bool
	ContactName         string
	ContactEmail        string
	BriefText           string
	Lines               json.RawMessage
	ProductChanges      json.RawMessage
	Status              string
	ClaimedBy           *string
	ClaimedAt           *time.Time
	DuplicateHash       string
	InfoRequestMessage  *string
	InfoRequestedBy     *string
	InfoRequestedAt     *time.Time
	InfoResponseMessage *string
	InfoRespondedAt     *time.Time
	ReviewedBy          *string
	ReviewedAt          *time.Time
	ReviewNotes         *string
	RejectionReason     *string
	DeletedAt           *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type Order struct {
	ID                 string
	DisplayID          string
	RequestID          string
	Status             string
	Checklist          json.RawMessage
	LotNumbers         json.RawMessage
	PackedBy           *string
	PackedAt           *time.Time
	DocumentsConfirmed bool
	Shipment           json.RawMessage
	ShippedBy          *string
	ShippedAt          *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type AuditLogEntry struct {
	ID         string
	Actor      string
	Action     string
	EntityType string
	EntityID   string
	Before     json.RawMessage
	After      json.RawMessage
	CreatedAt  time.Time
}
