package models

import (
	"encoding/json"
	"time"
)

type OutboxMessage struct {
	ID                string
	Type              string
	FromAddress       string
	ToAddresses       json.RawMessage
	Subject           string
	Body              string
	Status            string
	AttemptCount      int
	NextAttemptAt     *time.Time
	ProviderMessageID *string
	ErrorMessage      *string
	Opened            bool
	Complained        bool
	RelatedRequestID  *string
	RelatedOrderID    *string
	RelatedCompanyID  string
	SentAt            *time.Time
	FinalizedAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
