package controllers

import (
	"time"

	"github.com/sampledesk/sampledesk/modules/notifications/domain/message"
)

type MessageResponse struct {
	ID                string     `json:"id"`
	Type              string     `json:"type"`
	FromAddress       string     `json:"from_address"`
	ToAddresses       []string   `json:"to_addresses"`
	Subject           string     `json:"subject"`
	Status            string     `json:"status"`
	AttemptCount      int        `json:"attempt_count"`
	NextAttemptAt     *time.Time `json:"next_attempt_at,omitempty"`
	ProviderMessageID *string    `json:"provider_message_id,omitempty"`
	ErrorMessage      *string    `json:"error_message,omitempty"`
	Opened            bool       `json:"opened"`
	Complained        bool       `json:"complained"`
	SentAt            *time.Time `json:"sent_at,omitempty"`
	FinalizedAt       *time.Time `json:"finalized_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func toMessageResponse(m *message.Message) *MessageResponse {
	return &MessageResponse{
		ID:                m.ID.String(),
		Type:              m.Type,
		FromAddress:       m.FromAddress,
		ToAddresses:       m.ToAddresses,
		Subject:           m.Subject,
		Status:            m.Status,
		AttemptCount:      m.AttemptCount,
		NextAttemptAt:     m.NextAttemptAt,
		ProviderMessageID: m.ProviderMessageID,
		ErrorMessage:      m.ErrorMessage,
		Opened:            m.Opened,
		Complained:        m.Complained,
		SentAt:            m.SentAt,
		FinalizedAt:       m.FinalizedAt,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

type ListResponse struct {
	Items any   `json:"items"`
	Total int64 `json:"total"`
}
