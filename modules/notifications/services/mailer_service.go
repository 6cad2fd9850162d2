package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sampledesk/sampledesk/modules/notifications/domain/message"
	"github.com/sampledesk/sampledesk/pkg/composables"
	"github.com/sampledesk/sampledesk/pkg/eventbus"
	"github.com/sampledesk/sampledesk/pkg/serrors"
)

// Sender is the provider send API. Implementations must respect ctx
// cancellation; the service bounds every call with a timeout.
type Sender interface {
	Send(ctx context.Context, from string, to []string, subject, body string, headers map[string]string) (providerID string, err error)
}

// ProviderEvent is one webhook callback from the provider.
type ProviderEvent struct {
	Type       string
	ProviderID string
	Reason     string
}

type MailerServiceOptions struct {
	Messages    message.Repository
	Sender      Sender
	Publisher   eventbus.EventBus
	From        string
	MaxAttempts int
	BaseBackoff time.Duration
	SendTimeout time.Duration
}

// MailerService owns the outbox: enqueue, bounded-retry delivery and
// webhook-driven status reconciliation. Delivery is at-least-once; the
// pending -> retrying latch taken before the provider call narrows the
// double-send window between overlapping drain invocations.
type MailerService struct {
	repo        message.Repository
	sender      Sender
	publisher   eventbus.EventBus
	from        string
	maxAttempts int
	baseBackoff time.Duration
	sendTimeout time.Duration
	runTx       func(ctx context.Context, fn func(context.Context) error) error
}

func NewMailerService(opts MailerServiceOptions) *MailerService {
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	baseBackoff := opts.BaseBackoff
	if baseBackoff <= 0 {
		baseBackoff = 30 * time.Second
	}
	sendTimeout := opts.SendTimeout
	if sendTimeout <= 0 {
		sendTimeout = 15 * time.Second
	}
	return &MailerService{
		repo:        opts.Messages,
		sender:      opts.Sender,
		publisher:   opts.Publisher,
		from:        opts.From,
		maxAttempts: maxAttempts,
		baseBackoff: baseBackoff,
		sendTimeout: sendTimeout,
		runTx:       composables.InTx,
	}
}

// QueueEmail inserts m as pending with zero attempts. It runs on the caller's
// context so a surrounding business transaction carries the insert.
func (s *MailerService) QueueEmail(ctx context.Context, m *message.Message) error {
	if len(m.ToAddresses) == 0 {
		return serrors.NewFieldRequiredError("to_addresses")
	}
	if strings.TrimSpace(m.Subject) == "" {
		return serrors.NewFieldRequiredError("subject")
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.FromAddress == "" {
		m.FromAddress = s.from
	}
	now := time.Now()
	m.Status = message.StatusPending
	m.AttemptCount = 0
	m.NextAttemptAt = nil
	m.CreatedAt = now
	m.UpdatedAt = now
	return s.repo.Create(ctx, m)
}

// AttemptSend makes one delivery attempt. Messages the send loop is done
// with are a silent no-op, which makes re-processing after an overlap or a
// crashed drain safe. The latch and the outcome are committed in separate
// transactions so a provider call never runs inside an open transaction.
func (s *MailerService) AttemptSend(ctx context.Context, id uuid.UUID) error {
	var m *message.Message
	err := s.runTx(ctx, func(txCtx context.Context) error {
		cur, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if message.IsSendFinal(cur.Status) {
			return nil
		}
		cur.Status = message.StatusRetrying
		cur.UpdatedAt = time.Now()
		if err := s.repo.Update(txCtx, cur); err != nil {
			return err
		}
		m = cur
		return nil
	})
	if err != nil || m == nil {
		return err
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	providerID, sendErr := s.sender.Send(sendCtx, m.FromAddress, m.ToAddresses, m.Subject, m.Body, nil)
	cancel()

	previous := m.Status
	err = s.runTx(ctx, func(txCtx context.Context) error {
		cur, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		now := time.Now()
		if sendErr == nil {
			cur.Status = message.StatusSent
			cur.ProviderMessageID = &providerID
			cur.SentAt = &now
			cur.NextAttemptAt = nil
			cur.ErrorMessage = nil
		} else {
			cur.AttemptCount++
			errText := sendErr.Error()
			cur.ErrorMessage = &errText
			if cur.AttemptCount >= s.maxAttempts {
				cur.Status = message.StatusFailed
				cur.NextAttemptAt = nil
				cur.FinalizedAt = &now
			} else {
				cur.Status = message.StatusPending
				next := now.Add(message.Backoff(s.baseBackoff, cur.AttemptCount))
				cur.NextAttemptAt = &next
			}
		}
		cur.UpdatedAt = now
		if err := s.repo.Update(txCtx, cur); err != nil {
			return err
		}
		m = cur
		return nil
	})
	if err != nil {
		return err
	}
	if m.Status != previous {
		s.publish(&message.StatusChangedEvent{Previous: previous, Result: m})
	}
	if sendErr != nil {
		return fmt.Errorf("send attempt %d for message %s: %w", m.AttemptCount, m.ID, sendErr)
	}
	return nil
}

// RetryPending drains up to limit due pending messages. Per-message failures
// are logged and do not stop the batch; the count of successful sends is
// returned. Callers schedule this on an interval.
func (s *MailerService) RetryPending(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 50
	}
	due, err := s.repo.ListDue(ctx, time.Now(), limit)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, m := range due {
		if err := s.AttemptSend(ctx, m.ID); err != nil {
			composables.UseLogger(ctx).
				WithError(err).
				WithField("message_id", m.ID).
				Warn("outbox send attempt failed")
			continue
		}
		sent++
	}
	return sent, nil
}

// HandleProviderEvent reconciles one webhook callback. Unknown provider ids
// no-op silently: the provider retries webhooks and may deliver events for
// messages this system never sent. Status moves are monotonic, so replays
// and out-of-order deliveries cannot downgrade a terminal status.
func (s *MailerService) HandleProviderEvent(ctx context.Context, event ProviderEvent) error {
	if event.ProviderID == "" {
		return nil
	}

	var (
		m        *message.Message
		previous string
	)
	err := s.runTx(ctx, func(txCtx context.Context) error {
		cur, err := s.repo.GetByProviderID(txCtx, event.ProviderID)
		if err != nil {
			if errors.Is(err, serrors.ErrNotFound) {
				return nil
			}
			return err
		}

		previous = cur.Status
		changed := false
		now := time.Now()

		switch event.Type {
		case "email.opened":
			if !cur.Opened {
				cur.Opened = true
				changed = true
			}
		case "email.complained":
			if !cur.Complained {
				cur.Complained = true
				changed = true
			}
		}

		if status, ok := message.StatusForProviderEvent(event.Type); ok {
			if cur.ApplyProviderStatus(status, now) {
				changed = true
				if event.Reason != "" {
					reason := event.Reason
					cur.ErrorMessage = &reason
				}
			}
		}

		if !changed {
			return nil
		}
		cur.UpdatedAt = now
		if err := s.repo.Update(txCtx, cur); err != nil {
			return err
		}
		m = cur
		return nil
	})
	if err != nil {
		return err
	}
	if m != nil && m.Status != previous {
		s.publish(&message.StatusChangedEvent{Previous: previous, Result: m})
	}
	return nil
}

// Cancel withdraws a message before its next attempt. Only pending messages
// can be cancelled; anything already latched or final stays as it is.
func (s *MailerService) Cancel(ctx context.Context, id uuid.UUID) (*message.Message, error) {
	var result *message.Message
	err := s.runTx(ctx, func(txCtx context.Context) error {
		m, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if m.Status != message.StatusPending {
			return serrors.NewInvalidTransitionError("message", m.Status, "cancel")
		}
		now := time.Now()
		m.Status = message.StatusCancelled
		m.NextAttemptAt = nil
		m.FinalizedAt = &now
		m.UpdatedAt = now
		if err := s.repo.Update(txCtx, m); err != nil {
			return err
		}
		result = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(&message.StatusChangedEvent{Previous: message.StatusPending, Result: result})
	return result, nil
}

// Status returns the message for id.
func (s *MailerService) Status(ctx context.Context, id uuid.UUID) (*message.Message, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *MailerService) List(ctx context.Context, params *message.FindParams) ([]*message.Message, int64, error) {
	if params == nil {
		params = &message.FindParams{}
	}
	items, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	count, err := s.repo.Count(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return items, count, nil
}

// CountByStatus reports how many messages currently sit in status.
func (s *MailerService) CountByStatus(ctx context.Context, status string) (int64, error) {
	return s.repo.Count(ctx, &message.FindParams{Status: status})
}

// RequeueFailed puts every failed message back to pending with a fresh
// round of attempts. Operator action, surfaced through outboxctl.
func (s *MailerService) RequeueFailed(ctx context.Context) (int64, error) {
	return s.repo.RequeueFailed(ctx)
}

// ReclaimStale recovers messages stranded in retrying by a crash between the
// latch and the outcome write. The abandoned attempt counts, so a message
// that keeps dying mid-send still converges on failed.
func (s *MailerService) ReclaimStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	return s.repo.ReclaimStale(ctx, time.Now().Add(-olderThan), s.maxAttempts)
}

// PruneFinalized deletes terminal messages finalized longer than retention
// ago and returns how many rows went away.
func (s *MailerService) PruneFinalized(ctx context.Context, retention time.Duration) (int64, error) {
	return s.repo.DeleteFinalizedBefore(ctx, time.Now().Add(-retention))
}

func (s *MailerService) publish(event any) {
	if s.publisher != nil {
		s.publisher.Publish(event)
	}
}
