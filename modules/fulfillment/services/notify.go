package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sampledesk/sampledesk/modules/fulfillment/domain/directory"
	"github.com/sampledesk/sampledesk/modules/fulfillment/domain/order"
	"github.com/sampledesk/sampledesk/modules/fulfillment/domain/request"
	"github.com/sampledesk/sampledesk/modules/notifications/domain/message"
	"github.com/sampledesk/sampledesk/pkg/composables"
)

// Notifier enqueues an outbound message. Implemented by the notifications
// module; delivery happens asynchronously.
type Notifier interface {
	QueueEmail(ctx context.Context, m *message.Message) error
}

// enqueue is best-effort: a failed enqueue is logged and swallowed so the
// business transaction it rides in never fails on notification plumbing.
func enqueue(ctx context.Context, notifier Notifier, m *message.Message) {
	if notifier == nil || len(m.ToAddresses) == 0 {
		return
	}
	if err := notifier.QueueEmail(ctx, m); err != nil {
		composables.UseLogger(ctx).
			WithError(err).
			WithField("message_type", m.Type).
			Error("failed to enqueue notification")
	}
}

// roleEmails resolves every active account holding role. Lookup failures are
// logged and yield no recipients.
func roleEmails(ctx context.Context, dir directory.Directory, role string) []string {
	if dir == nil {
		return nil
	}
	accounts, err := dir.ListByRole(ctx, role)
	if err != nil {
		composables.UseLogger(ctx).
			WithError(err).
			WithField("role", role).
			Error("failed to resolve notification recipients")
		return nil
	}
	emails := make([]string, 0, len(accounts))
	for _, a := range accounts {
		if a.Active {
			emails = append(emails, a.Email)
		}
	}
	return emails
}

func requestMessage(msgType string, to []string, subject, body string, r *request.Request) *message.Message {
	id := r.ID
	return &message.Message{
		ID:          uuid.New(),
		Type:        msgType,
		ToAddresses: to,
		Subject:     subject,
		Body:        body,
		Status:      message.StatusPending,
		Related: message.Related{
			RequestID: &id,
			CompanyID: r.CompanyID,
		},
	}
}

func orderMessage(msgType string, to []string, subject, body string, o *order.Order, r *request.Request) *message.Message {
	orderID := o.ID
	m := requestMessage(msgType, to, subject, body, r)
	m.Related.OrderID = &orderID
	return m
}

func requestSubject(action string, r *request.Request) string {
	return fmt.Sprintf("[%s] Sample request %s %s", r.CompanyName, r.DisplayID, action)
}

func orderSubject(action string, o *order.Order, r *request.Request) string {
	return fmt.Sprintf("[%s] Order %s %s", r.CompanyName, o.DisplayID, action)
}
