package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sampledesk/sampledesk/modules/fulfillment/domain/auditlog"
	"github.com/sampledesk/sampledesk/modules/fulfillment/domain/directory"
	"github.com/sampledesk/sampledesk/modules/fulfillment/domain/order"
	"github.com/sampledesk/sampledesk/modules/fulfillment/domain/request"
	"github.com/sampledesk/sampledesk/modules/fulfillment/domain/sequence"
	"github.com/sampledesk/sampledesk/modules/notifications/domain/message"
	"github.com/sampledesk/sampledesk/pkg/authz"
	"github.com/sampledesk/sampledesk/pkg/composables"
	"github.com/sampledesk/sampledesk/pkg/eventbus"
	"github.com/sampledesk/sampledesk/pkg/serrors"
)

type RequestServiceOptions struct {
	Requests  request.Repository
	Orders    order.Repository
	Audit     auditlog.Repository
	Sequences *SequenceService
	Authz     *authz.Service
	Directory directory.Directory
	Notifier  Notifier
	Publisher eventbus.EventBus
}

// RequestService owns the request lifecycle: intake with duplicate
// suppression, the screener claim, review decisions, and the product-line
// journal. Every mutation runs in one transaction covering the entity write,
// its audit entries and the outbox enqueue.
type RequestService struct {
	repo      request.Repository
	orders    order.Repository
	audit     *auditRecorder
	seq       *SequenceService
	authz     *authz.Service
	directory directory.Directory
	notifier  Notifier
	publisher eventbus.EventBus
	runTx     func(ctx context.Context, fn func(context.Context) error) error
}

func NewRequestService(opts RequestServiceOptions) *RequestService {
	return &RequestService{
		repo:      opts.Requests,
		orders:    opts.Orders,
		audit:     newAuditRecorder(opts.Audit),
		seq:       opts.Sequences,
		authz:     opts.Authz,
		directory: opts.Directory,
		notifier:  opts.Notifier,
		publisher: opts.Publisher,
		runTx:     composables.InTx,
	}
}

type CreateRequestInput struct {
	DisplayID    string
	CompanyID    string
	CompanyName  string
	CompanyVIP   bool
	ContactName  string
	ContactEmail string
	BriefText    string
	Lines        []request.ProductLine
}

func (in *CreateRequestInput) validate() error {
	if strings.TrimSpace(in.CompanyID) == "" {
		return serrors.NewFieldRequiredError("company_id")
	}
	if strings.TrimSpace(in.ContactEmail) == "" {
		return serrors.NewFieldRequiredError("contact_email")
	}
	if len(in.Lines) == 0 && strings.TrimSpace(in.BriefText) == "" {
		return fmt.Errorf("%w: either product lines or a brief is required", serrors.ErrValidation)
	}
	for i, line := range in.Lines {
		if strings.TrimSpace(line.ProductID) == "" {
			return fmt.Errorf("%w: line %d is missing a product id", serrors.ErrValidation, i)
		}
		if line.Quantity <= 0 {
			return fmt.Errorf("%w: line %d quantity must be positive", serrors.ErrValidation, i)
		}
	}
	return nil
}

// Create registers a new request in pending review. An identical active
// request (same company, same product set or brief, same UTC day) fails with
// DuplicateRequest. Callers may supply an explicit display id; otherwise one
// is allocated from the request counter.
func (s *RequestService) Create(ctx context.Context, input *CreateRequestInput) (*request.Request, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	if composables.UseActor(ctx) == "" {
		ctx = composables.WithActor(ctx, input.ContactEmail)
	}

	var created *request.Request
	err := s.runTx(ctx, func(txCtx context.Context) error {
		now := time.Now()
		hash := request.ComputeDuplicateHash(input.CompanyID, input.Lines, input.BriefText, now)
		if _, err := s.repo.GetActiveByHash(txCtx, hash); err == nil {
			return fmt.Errorf("%w: company %s already submitted this request today", serrors.ErrDuplicateRequest, input.CompanyID)
		} else if !errors.Is(err, serrors.ErrNotFound) {
			return err
		}

		displayID := strings.TrimSpace(input.DisplayID)
		if displayID != "" {
			exists, err := s.repo.ExistsDisplayID(txCtx, displayID)
			if err != nil {
				return err
			}
			if exists {
				return fmt.Errorf("%w: display id %q is already in use", serrors.ErrValidation, displayID)
			}
		} else {
			var err error
			displayID, err = s.seq.NextDisplayID(txCtx, sequence.ScopeRequest, request.DisplayIDPrefix)
			if err != nil {
				return err
			}
		}

		r := &request.Request{
			ID:            uuid.New(),
			DisplayID:     displayID,
			CompanyID:     input.CompanyID,
			CompanyName:   input.CompanyName,
			CompanyVIP:    input.CompanyVIP,
			ContactName:   input.ContactName,
			ContactEmail:  input.ContactEmail,
			BriefText:     input.BriefText,
			Lines:         input.Lines,
			Status:        request.StatusPendingReview,
			DuplicateHash: hash,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.repo.Create(txCtx, r); err != nil {
			return err
		}
		if err := s.audit.record(txCtx, "createRequest", "requests", r.ID, nil, r); err != nil {
			return err
		}

		enqueue(txCtx, s.notifier, requestMessage(
			message.TypeRequestReceived,
			roleEmails(txCtx, s.directory, directory.RoleScreener),
			requestSubject("received", r),
			fmt.Sprintf("Request %s from %s is awaiting review.", r.DisplayID, r.CompanyName),
			r,
		))
		enqueue(txCtx, s.notifier, requestMessage(
			message.TypeRequestReceived,
			[]string{r.ContactEmail},
			requestSubject("received", r),
			fmt.Sprintf("We received your request %s and will review it shortly.", r.DisplayID),
			r,
		))

		created = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(&request.CreatedEvent{Actor: composables.UseActor(ctx), Result: created})
	return created, nil
}

// Claim takes the advisory single-owner lock on a pending request. Re-claim
// by the current holder succeeds without a write; a claim held by anyone else
// fails with AlreadyClaimed.
func (s *RequestService) Claim(ctx context.Context, id uuid.UUID) (*request.Request, error) {
	actor, err := s.requireScreener(ctx)
	if err != nil {
		return nil, err
	}

	var result *request.Request
	var claimed bool
	err = s.runTx(ctx, func(txCtx context.Context) error {
		r, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if r.ClaimedByActor(actor) {
			result = r
			return nil
		}
		if !r.IsPending() {
			return serrors.NewInvalidTransitionError("request", r.Status, "claim")
		}
		if r.ClaimedByOther(actor) {
			return fmt.Errorf("%w: held by %s", serrors.ErrAlreadyClaimed, *r.ClaimedBy)
		}

		before := *r
		now := time.Now()
		r.ClaimedBy = &actor
		r.ClaimedAt = &now
		r.UpdatedAt = now
		if err := s.repo.Update(txCtx, r); err != nil {
			return err
		}
		if err := s.audit.record(txCtx, "claimRequest", "requests", r.ID, &before, r); err != nil {
			return err
		}
		result = r
		claimed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if claimed {
		s.publish(&request.ClaimedEvent{Actor: actor, Result: result})
	}
	return result, nil
}

// Approve moves a pending-review request to approved and spawns its order in
// ready. Exactly one order ever exists per request; a second approve fails on
// the status guard.
func (s *RequestService) Approve(ctx context.Context, id uuid.UUID, notes string) (*request.Request, *order.Order, error) {
	actor, err := s.requireScreener(ctx)
	if err != nil {
		return nil, nil, err
	}

	var (
		result  *request.Request
		spawned *order.Order
	)
	err = s.runTx(ctx, func(txCtx context.Context) error {
		r, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if err := reviewGuard(r, actor, "approve"); err != nil {
			return err
		}

		before := *r
		now := time.Now()
		r.Status = request.StatusApproved
		r.ReviewedBy = &actor
		r.ReviewedAt = &now
		if strings.TrimSpace(notes) != "" {
			r.ReviewNotes = &notes
		}
		r.UpdatedAt = now
		if err := s.repo.Update(txCtx, r); err != nil {
			return err
		}
		if err := s.audit.record(txCtx, "approveRequest", "requests", r.ID, &before, r); err != nil {
			return err
		}

		displayID, err := s.seq.NextDisplayID(txCtx, sequence.ScopeOrder, order.DisplayIDPrefix)
		if err != nil {
			return err
		}
		o := &order.Order{
			ID:        uuid.New(),
			DisplayID: displayID,
			RequestID: r.ID,
			Status:    order.StatusReady,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.orders.Create(txCtx, o); err != nil {
			return err
		}
		if err := s.audit.record(txCtx, "createOrder", "orders", o.ID, nil, o); err != nil {
			return err
		}

		enqueue(txCtx, s.notifier, requestMessage(
			message.TypeRequestApproved,
			[]string{r.ContactEmail},
			requestSubject("approved", r),
			fmt.Sprintf("Your request %s was approved. Order %s has been created.", r.DisplayID, o.DisplayID),
			r,
		))
		enqueue(txCtx, s.notifier, orderMessage(
			message.TypeOrderReady,
			roleEmails(txCtx, s.directory, directory.RolePacker),
			orderSubject("ready for packing", o, r),
			fmt.Sprintf("Order %s (request %s) is ready for packing.", o.DisplayID, r.DisplayID),
			o, r,
		))

		result = r
		spawned = o
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.publish(&request.ApprovedEvent{Actor: actor, Result: result})
	s.publish(&order.CreatedEvent{Actor: actor, Result: spawned})
	return result, spawned, nil
}

// Reject records a rejection with a mandatory reason.
func (s *RequestService) Reject(ctx context.Context, id uuid.UUID, reason string) (*request.Request, error) {
	actor, err := s.requireScreener(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		return nil, serrors.NewFieldRequiredError("reason")
	}

	var result *request.Request
	err = s.runTx(ctx, func(txCtx context.Context) error {
		r, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if err := reviewGuard(r, actor, "reject"); err != nil {
			return err
		}

		before := *r
		now := time.Now()
		r.Status = request.StatusRejected
		r.ReviewedBy = &actor
		r.ReviewedAt = &now
		r.RejectionReason = &reason
		r.UpdatedAt = now
		if err := s.repo.Update(txCtx, r); err != nil {
			return err
		}
		if err := s.audit.record(txCtx, "rejectRequest", "requests", r.ID, &before, r); err != nil {
			return err
		}

		enqueue(txCtx, s.notifier, requestMessage(
			message.TypeRequestRejected,
			[]string{r.ContactEmail},
			requestSubject("rejected", r),
			fmt.Sprintf("Your request %s was rejected: %s", r.DisplayID, reason),
			r,
		))

		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(&request.RejectedEvent{Actor: actor, Reason: reason, Result: result})
	return result, nil
}

// RequestInfo parks a pending-review request in pending info and asks the
// contact for clarification.
func (s *RequestService) RequestInfo(ctx context.Context, id uuid.UUID, msg string) (*request.Request, error) {
	actor, err := s.requireScreener(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(msg) == "" {
		return nil, serrors.NewFieldRequiredError("message")
	}

	var result *request.Request
	err = s.runTx(ctx, func(txCtx context.Context) error {
		r, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if err := reviewGuard(r, actor, "requestInfo"); err != nil {
			return err
		}

		before := *r
		now := time.Now()
		r.Status = request.StatusPendingInfo
		r.InfoRequestMessage = &msg
		r.InfoRequestedBy = &actor
		r.InfoRequestedAt = &now
		r.UpdatedAt = now
		if err := s.repo.Update(txCtx, r); err != nil {
			return err
		}
		if err := s.audit.record(txCtx, "requestInfo", "requests", r.ID, &before, r); err != nil {
			return err
		}

		enqueue(txCtx, s.notifier, requestMessage(
			message.TypeRequestInfoRequested,
			[]string{r.ContactEmail},
			requestSubject("needs more information", r),
			fmt.Sprintf("A screener asked about request %s: %s", r.DisplayID, msg),
			r,
		))

		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(&request.InfoRequestedEvent{Actor: actor, Result: result})
	return result, nil
}

// RespondInfo records the contact's answer and returns the request to pending
// review. Only the request's own contact may respond.
func (s *RequestService) RespondInfo(ctx context.Context, id uuid.UUID, msg string) (*request.Request, error) {
	actor := composables.UseActor(ctx)
	if strings.TrimSpace(msg) == "" {
		return nil, serrors.NewFieldRequiredError("message")
	}

	var result *request.Request
	err := s.runTx(ctx, func(txCtx context.Context) error {
		r, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if r.Status != request.StatusPendingInfo {
			return serrors.NewInvalidTransitionError("request", r.Status, "respondInfo")
		}
		if actor == "" || actor != r.ContactEmail {
			return fmt.Errorf("%w: only the request contact may respond", serrors.ErrUnauthorized)
		}

		before := *r
		now := time.Now()
		r.Status = request.StatusPendingReview
		r.InfoResponseMessage = &msg
		r.InfoRespondedAt = &now
		r.UpdatedAt = now
		if err := s.repo.Update(txCtx, r); err != nil {
			return err
		}
		if err := s.audit.record(txCtx, "respondInfo", "requests", r.ID, &before, r); err != nil {
			return err
		}

		to := roleEmails(txCtx, s.directory, directory.RoleScreener)
		if r.ClaimedBy != nil {
			to = []string{*r.ClaimedBy}
		}
		enqueue(txCtx, s.notifier, requestMessage(
			message.TypeRequestInfoResponded,
			to,
			requestSubject("information received", r),
			fmt.Sprintf("The contact answered on request %s: %s", r.DisplayID, msg),
			r,
		))

		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(&request.InfoRespondedEvent{Actor: actor, Result: result})
	return result, nil
}

// AddProductLine appends a line with a journal entry carrying the reason.
func (s *RequestService) AddProductLine(ctx context.Context, id uuid.UUID, line request.ProductLine, reason string) (*request.Request, error) {
	return s.changeLines(ctx, id, "addProductLine", reason, func(r *request.Request, actor string, now time.Time) (request.ProductChange, error) {
		if strings.TrimSpace(line.ProductID) == "" {
			return request.ProductChange{}, serrors.NewFieldRequiredError("product_id")
		}
		if line.Quantity <= 0 {
			return request.ProductChange{}, fmt.Errorf("%w: quantity must be positive", serrors.ErrValidation)
		}
		r.Lines = append(r.Lines, line)
		added := line
		return request.ProductChange{
			Type:      request.ChangeAdd,
			LineIndex: len(r.Lines) - 1,
			To:        &added,
			Reason:    reason,
			ChangedBy: actor,
			ChangedAt: now,
		}, nil
	})
}

// EditProductLine replaces the line at index, journaling before and after.
func (s *RequestService) EditProductLine(ctx context.Context, id uuid.UUID, index int, to request.ProductLine, reason string) (*request.Request, error) {
	return s.changeLines(ctx, id, "editProductLine", reason, func(r *request.Request, actor string, now time.Time) (request.ProductChange, error) {
		if index < 0 || index >= len(r.Lines) {
			return request.ProductChange{}, fmt.Errorf("%w: line index %d out of range", serrors.ErrValidation, index)
		}
		if strings.TrimSpace(to.ProductID) == "" {
			return request.ProductChange{}, serrors.NewFieldRequiredError("product_id")
		}
		if to.Quantity <= 0 {
			return request.ProductChange{}, fmt.Errorf("%w: quantity must be positive", serrors.ErrValidation)
		}
		from := r.Lines[index]
		r.Lines[index] = to
		replaced := to
		return request.ProductChange{
			Type:      request.ChangeEdit,
			LineIndex: index,
			From:      &from,
			To:        &replaced,
			Reason:    reason,
			ChangedBy: actor,
			ChangedAt: now,
		}, nil
	})
}

// RemoveProductLine drops the line at index, journaling what was removed.
func (s *RequestService) RemoveProductLine(ctx context.Context, id uuid.UUID, index int, reason string) (*request.Request, error) {
	return s.changeLines(ctx, id, "removeProductLine", reason, func(r *request.Request, actor string, now time.Time) (request.ProductChange, error) {
		if index < 0 || index >= len(r.Lines) {
			return request.ProductChange{}, fmt.Errorf("%w: line index %d out of range", serrors.ErrValidation, index)
		}
		from := r.Lines[index]
		r.Lines = append(r.Lines[:index], r.Lines[index+1:]...)
		return request.ProductChange{
			Type:      request.ChangeRemove,
			LineIndex: index,
			From:      &from,
			Reason:    reason,
			ChangedBy: actor,
			ChangedAt: now,
		}, nil
	})
}

// changeLines applies one product-line mutation under the edit guard: the
// request must be pending and claimed by the acting screener, and the reason
// is mandatory.
func (s *RequestService) changeLines(
	ctx context.Context,
	id uuid.UUID,
	action string,
	reason string,
	apply func(r *request.Request, actor string, now time.Time) (request.ProductChange, error),
) (*request.Request, error) {
	actor := composables.UseActor(ctx)
	if err := s.authz.Require(ctx, actor, "requests", "edit_lines"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		return nil, serrors.NewFieldRequiredError("reason")
	}

	var (
		result *request.Request
		change request.ProductChange
	)
	err := s.runTx(ctx, func(txCtx context.Context) error {
		r, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if !r.IsPending() {
			return serrors.NewInvalidTransitionError("request", r.Status, action)
		}
		if r.ClaimedByOther(actor) {
			return fmt.Errorf("%w: request is claimed by %s", serrors.ErrUnauthorized, *r.ClaimedBy)
		}
		if !r.ClaimedByActor(actor) {
			return fmt.Errorf("%w: request must be claimed before editing lines", serrors.ErrInvalidState)
		}

		before := *r
		before.Lines = append([]request.ProductLine(nil), r.Lines...)
		now := time.Now()
		change, err = apply(r, actor, now)
		if err != nil {
			return err
		}
		r.ProductChanges = append(r.ProductChanges, change)
		r.UpdatedAt = now
		if err := s.repo.Update(txCtx, r); err != nil {
			return err
		}
		if err := s.audit.record(txCtx, action, "requests", r.ID, &before, r); err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(&request.LinesChangedEvent{Actor: actor, Change: change, Result: result})
	return result, nil
}

type UpdateRequestInput struct {
	CompanyName  *string
	ContactName  *string
	ContactEmail *string
	BriefText    *string
}

// Update changes contact metadata only. Blocked once the request is reviewed
// or has an order.
func (s *RequestService) Update(ctx context.Context, id uuid.UUID, input *UpdateRequestInput) (*request.Request, error) {
	actor, err := s.requireScreener(ctx)
	if err != nil {
		return nil, err
	}

	var result *request.Request
	err = s.runTx(ctx, func(txCtx context.Context) error {
		r, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if err := s.immutabilityGuard(txCtx, r, "update"); err != nil {
			return err
		}
		if r.ClaimedByOther(actor) {
			return fmt.Errorf("%w: request is claimed by %s", serrors.ErrUnauthorized, *r.ClaimedBy)
		}

		before := *r
		if input.CompanyName != nil {
			r.CompanyName = *input.CompanyName
		}
		if input.ContactName != nil {
			r.ContactName = *input.ContactName
		}
		if input.ContactEmail != nil {
			if strings.TrimSpace(*input.ContactEmail) == "" {
				return serrors.NewFieldRequiredError("contact_email")
			}
			r.ContactEmail = *input.ContactEmail
		}
		if input.BriefText != nil {
			r.BriefText = *input.BriefText
		}
		r.UpdatedAt = time.Now()
		if err := s.repo.Update(txCtx, r); err != nil {
			return err
		}
		if err := s.audit.record(txCtx, "updateRequest", "requests", r.ID, &before, r); err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(&request.UpdatedEvent{Actor: actor, Result: result})
	return result, nil
}

// Delete soft-deletes a request. Blocked once reviewed or ordered; a deleted
// request disappears from reads and from duplicate suppression.
func (s *RequestService) Delete(ctx context.Context, id uuid.UUID) error {
	actor, err := s.requireScreener(ctx)
	if err != nil {
		return err
	}

	var result *request.Request
	err = s.runTx(ctx, func(txCtx context.Context) error {
		r, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if err := s.immutabilityGuard(txCtx, r, "delete"); err != nil {
			return err
		}
		if r.ClaimedByOther(actor) {
			return fmt.Errorf("%w: request is claimed by %s", serrors.ErrUnauthorized, *r.ClaimedBy)
		}

		before := *r
		now := time.Now()
		r.DeletedAt = &now
		r.UpdatedAt = now
		if err := s.repo.Update(txCtx, r); err != nil {
			return err
		}
		if err := s.audit.record(txCtx, "deleteRequest", "requests", r.ID, &before, r); err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(&request.DeletedEvent{Actor: actor, Result: result})
	return nil
}

func (s *RequestService) GetByID(ctx context.Context, id uuid.UUID) (*request.Request, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *RequestService) GetByDisplayID(ctx context.Context, displayID string) (*request.Request, error) {
	return s.repo.GetByDisplayID(ctx, displayID)
}

func (s *RequestService) List(ctx context.Context, params *request.FindParams) ([]*request.Request, int64, error) {
	if params == nil {
		params = &request.FindParams{}
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

func (s *RequestService) requireScreener(ctx context.Context) (string, error) {
	actor := composables.UseActor(ctx)
	if err := s.authz.Require(ctx, actor, "requests", "review"); err != nil {
		return "", err
	}
	return actor, nil
}

// immutabilityGuard blocks update/delete once a decision was recorded or an
// order exists.
func (s *RequestService) immutabilityGuard(ctx context.Context, r *request.Request, action string) error {
	if r.IsReviewed() {
		return serrors.NewInvalidTransitionError("request", r.Status, action)
	}
	ordered, err := s.orders.ExistsForRequest(ctx, r.ID)
	if err != nil {
		return err
	}
	if ordered {
		return fmt.Errorf("%w: request %s already has an order", serrors.ErrInvalidState, r.DisplayID)
	}
	return nil
}

// reviewGuard gates approve/reject/requestInfo: the request must sit in
// pending review and must not be claimed by someone else.
func reviewGuard(r *request.Request, actor, action string) error {
	if r.Status != request.StatusPendingReview {
		return serrors.NewInvalidTransitionError("request", r.Status, action)
	}
	if r.ClaimedByOther(actor) {
		return fmt.Errorf("%w: request is claimed by %s", serrors.ErrUnauthorized, *r.ClaimedBy)
	}
	return nil
}

func (s *RequestService) publish(event any) {
	if s.publisher != nil {
		s.publisher.Publish(event)
	}
}
