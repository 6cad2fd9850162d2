package message

import (
	"time"

	"github.com/google/uuid"
)

// Delivery statuses. A message walks pending -> retrying -> sent under the
// send loop, then sent -> delivered/delivery_delayed/bounced under provider
// webhooks. failed and cancelled short-circuit the walk.
const (
	StatusPending         = "pending"
	StatusRetrying        = "retrying"
	StatusSent            = "sent"
	StatusDelivered       = "delivered"
	StatusDeliveryDelayed = "delivery_delayed"
	StatusBounced         = "bounced"
	StatusFailed          = "failed"
	StatusCancelled       = "cancelled"
)

// Business event tags carried on outbound messages.
const (
	TypeRequestReceived      = "request.received"
	TypeRequestApproved      = "request.approved"
	TypeRequestRejected      = "request.rejected"
	TypeRequestInfoRequested = "request.info_requested"
	TypeRequestInfoResponded = "request.info_responded"
	TypeOrderReady           = "order.ready"
	TypeOrderPacked          = "order.packed"
	TypeOrderShipped         = "order.shipped"
)

// Related soft-links a message back to the business entities that caused it.
// Links are informational only; nothing cascades through them.
type Related struct {
	RequestID *uuid.UUID `json:"request_id,omitempty"`
	OrderID   *uuid.UUID `json:"order_id,omitempty"`
	CompanyID string     `json:"company_id,omitempty"`
}

type Message struct {
	ID   uuid.UUID
	Type string

	FromAddress string
	ToAddresses []string
	Subject     string
	Body        string

	Status        string
	AttemptCount  int
	NextAttemptAt *time.Time

	ProviderMessageID *string
	ErrorMessage      *string

	Opened     bool
	Complained bool

	Related Related

	SentAt      *time.Time
	FinalizedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsTerminal reports whether status admits no further transition at all.
func IsTerminal(status string) bool {
	switch status {
	case StatusDelivered, StatusBounced, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// IsSendFinal reports whether the send loop is done with status. Webhooks may
// still advance a send-final message (sent -> delivered), but no further
// provider call will be made.
func IsSendFinal(status string) bool {
	switch status {
	case StatusPending, StatusRetrying:
		return false
	}
	return true
}

// statusRank orders statuses along the forward-only delivery walk. Webhook
// updates never move a message to a lower rank.
var statusRank = map[string]int{
	StatusPending:         0,
	StatusRetrying:        1,
	StatusCancelled:       2,
	StatusFailed:          2,
	StatusSent:            2,
	StatusDeliveryDelayed: 3,
	StatusDelivered:       4,
	StatusBounced:         4,
}

// StatusForProviderEvent maps a provider webhook event type to a message
// status. Events that only set side flags (opened, complained, clicked)
// return ok = false.
func StatusForProviderEvent(eventType string) (string, bool) {
	switch eventType {
	case "email.sent":
		return StatusSent, true
	case "email.delivered":
		return StatusDelivered, true
	case "email.delivery_delayed":
		return StatusDeliveryDelayed, true
	case "email.bounced":
		return StatusBounced, true
	case "email.failed":
		return StatusFailed, true
	}
	return "", false
}

// ApplyProviderStatus advances the message to status if that is a forward
// move, stamping FinalizedAt on entry to a terminal status. It reports
// whether anything changed; a replayed or stale event changes nothing.
func (m *Message) ApplyProviderStatus(status string, now time.Time) bool {
	if IsTerminal(m.Status) {
		return false
	}
	if statusRank[status] <= statusRank[m.Status] {
		return false
	}
	m.Status = status
	if IsTerminal(status) && m.FinalizedAt == nil {
		m.FinalizedAt = &now
	}
	return true
}

// Backoff returns the delay before the next send attempt after attempt
// failures: base, 2*base, 4*base and so on.
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return base * (1 << (attempt - 1))
}
