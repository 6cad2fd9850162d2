package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sampledesk/sampledesk/modules/fulfillment/domain/auditlog"
	"github.com/sampledesk/sampledesk/modules/fulfillment/domain/directory"
	"github.com/sampledesk/sampledesk/modules/fulfillment/domain/order"
	"github.com/sampledesk/sampledesk/modules/fulfillment/domain/request"
	"github.com/sampledesk/sampledesk/modules/notifications/domain/message"
	"github.com/sampledesk/sampledesk/pkg/authz"
	"github.com/sampledesk/sampledesk/pkg/composables"
	"github.com/sampledesk/sampledesk/pkg/eventbus"
	"github.com/sampledesk/sampledesk/pkg/serrors"
)

type OrderServiceOptions struct {
	Orders    order.Repository
	Requests  request.Repository
	Audit     auditlog.Repository
	Authz     *authz.Service
	Directory directory.Directory
	Notifier  Notifier
	Publisher eventbus.EventBus
}

// OrderService walks an order through ready -> packed -> shipped. Both
// transitions are one-way; there is no un-pack or un-ship.
type OrderService struct {
	repo      order.Repository
	requests  request.Repository
	audit     *auditRecorder
	authz     *authz.Service
	directory directory.Directory
	notifier  Notifier
	publisher eventbus.EventBus
	runTx     func(ctx context.Context, fn func(context.Context) error) error
}

func NewOrderService(opts OrderServiceOptions) *OrderService {
	return &OrderService{
		repo:      opts.Orders,
		requests:  opts.Requests,
		audit:     newAuditRecorder(opts.Audit),
		authz:     opts.Authz,
		directory: opts.Directory,
		notifier:  opts.Notifier,
		publisher: opts.Publisher,
		runTx:     composables.InTx,
	}
}

// MarkPacked records packing. Requires the packer capability, a ready order,
// one non-blank lot number per requested line and a fully ticked checklist.
func (s *OrderService) MarkPacked(ctx context.Context, id uuid.UUID, lotNumbers []string, checklist order.PackingChecklist) (*order.Order, error) {
	actor := composables.UseActor(ctx)
	if err := s.authz.Require(ctx, actor, "orders", "pack"); err != nil {
		return nil, err
	}
	if !checklist.Complete() {
		return nil, fmt.Errorf("%w: packing checklist is not complete", serrors.ErrValidation)
	}

	var result *order.Order
	err := s.runTx(ctx, func(txCtx context.Context) error {
		o, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if o.Status != order.StatusReady {
			return serrors.NewInvalidTransitionError("order", o.Status, "pack")
		}
		r, err := s.requests.GetByID(txCtx, o.RequestID)
		if err != nil {
			return err
		}
		if len(lotNumbers) != len(r.Lines) {
			return fmt.Errorf("%w: expected %d lot numbers, got %d", serrors.ErrValidation, len(r.Lines), len(lotNumbers))
		}
		for i, lot := range lotNumbers {
			if strings.TrimSpace(lot) == "" {
				return fmt.Errorf("%w: lot number %d is blank", serrors.ErrValidation, i)
			}
		}

		before := *o
		now := time.Now()
		list := checklist
		o.Status = order.StatusPacked
		o.Checklist = &list
		o.LotNumbers = lotNumbers
		o.PackedBy = &actor
		o.PackedAt = &now
		o.DocumentsConfirmed = checklist.DocumentsIncluded
		o.UpdatedAt = now
		if err := s.repo.Update(txCtx, o); err != nil {
			return err
		}
		if err := s.audit.record(txCtx, "markPacked", "orders", o.ID, &before, o); err != nil {
			return err
		}

		enqueue(txCtx, s.notifier, orderMessage(
			message.TypeOrderPacked,
			roleEmails(txCtx, s.directory, directory.RoleShipper),
			orderSubject("packed, awaiting shipment", o, r),
			fmt.Sprintf("Order %s (request %s) is packed and ready to ship.", o.DisplayID, r.DisplayID),
			o, r,
		))

		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(&order.PackedEvent{Actor: actor, Result: result})
	return result, nil
}

// MarkShipped records shipment metadata. Requires the shipper capability, a
// packed order, a non-blank tracking number and an attached label. When
// notifyCustomer is set, the request contact is emailed the tracking number.
func (s *OrderService) MarkShipped(ctx context.Context, id uuid.UUID, details order.ShipmentDetails, notifyCustomer bool) (*order.Order, error) {
	actor := composables.UseActor(ctx)
	if err := s.authz.Require(ctx, actor, "orders", "ship"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(details.TrackingNumber) == "" {
		return nil, serrors.NewFieldRequiredError("tracking_number")
	}
	if !details.LabelAttached {
		return nil, fmt.Errorf("%w: shipping label must be attached", serrors.ErrValidation)
	}

	var result *order.Order
	err := s.runTx(ctx, func(txCtx context.Context) error {
		o, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if o.Status != order.StatusPacked {
			return serrors.NewInvalidTransitionError("order", o.Status, "ship")
		}
		r, err := s.requests.GetByID(txCtx, o.RequestID)
		if err != nil {
			return err
		}

		before := *o
		now := time.Now()
		shipment := details
		o.Status = order.StatusShipped
		o.Shipment = &shipment
		o.ShippedBy = &actor
		o.ShippedAt = &now
		o.UpdatedAt = now
		if err := s.repo.Update(txCtx, o); err != nil {
			return err
		}
		if err := s.audit.record(txCtx, "markShipped", "orders", o.ID, &before, o); err != nil {
			return err
		}

		if notifyCustomer {
			enqueue(txCtx, s.notifier, orderMessage(
				message.TypeOrderShipped,
				[]string{r.ContactEmail},
				orderSubject("shipped", o, r),
				fmt.Sprintf("Order %s shipped via %s, tracking %s.", o.DisplayID, details.Carrier, details.TrackingNumber),
				o, r,
			))
		}

		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(&order.ShippedEvent{Actor: actor, Result: result})
	return result, nil
}

func (s *OrderService) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *OrderService) GetByDisplayID(ctx context.Context, displayID string) (*order.Order, error) {
	return s.repo.GetByDisplayID(ctx, displayID)
}

// Priority computes the queue-ordering priority of o from its request's VIP
// flag and the order's age. Never persisted.
func (s *OrderService) Priority(ctx context.Context, o *order.Order) (string, error) {
	r, err := s.requests.GetByID(ctx, o.RequestID)
	if err != nil {
		return "", err
	}
	return o.PriorityFor(r.CompanyVIP, time.Now()), nil
}

func (s *OrderService) List(ctx context.Context, params order.FindParams) ([]*order.Order, int64, error) {
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

func (s *OrderService) publish(event any) {
	if s.publisher != nil {
		s.publisher.Publish(event)
	}
}
