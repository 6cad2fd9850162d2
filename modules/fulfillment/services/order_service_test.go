package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/sampledesk/sampledesk/modules/fulfillment/domain/order"
	"github.com/sampledesk/sampledesk/modules/notifications/domain/message"
	"github.com/sampledesk/sampledesk/pkg/serrors"
)

func fullChecklist() order.PackingChecklist {
	return order.PackingChecklist{
		ContentsVerified:   true,
		LotNumbersRecorded: true,
		PackagingSealed:    true,
		DocumentsIncluded:  true,
	}
}

func (f *fixture) approvedOrder(t *testing.T) *order.Order {
	t.Helper()
	r := f.mustCreate(t, sampleInput())
	f.mustClaim(t, r.ID, screenerEmail)
	_, o, err := f.reqSvc.Approve(asActor(screenerEmail), r.ID, "")
	require.NoError(t, err)
	return o
}

func TestMarkPacked(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	o := f.approvedOrder(t)

	packed, err := f.ordSvc.MarkPacked(asActor(packerEmail), o.ID, []string{"LOT-1", "LOT-2"}, fullChecklist())
	require.NoError(t, err)
	requireStatus(t, order.StatusPacked, packed.Status)
	require.Equal(t, packerEmail, *packed.PackedBy)
	require.True(t, packed.DocumentsConfirmed)
	require.Equal(t, []string{"LOT-1", "LOT-2"}, packed.LotNumbers)

	// Shippers are notified.
	require.Len(t, f.notifier.byType(message.TypeOrderPacked), 1)

	// Packing is one-way.
	_, err = f.ordSvc.MarkPacked(asActor(packerEmail), o.ID, []string{"LOT-1", "LOT-2"}, fullChecklist())
	require.ErrorIs(t, err, serrors.ErrInvalidState)
}

func TestMarkPackedValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	o := f.approvedOrder(t)

	// One lot number per requested line.
	_, err := f.ordSvc.MarkPacked(asActor(packerEmail), o.ID, []string{"LOT-1"}, fullChecklist())
	require.ErrorIs(t, err, serrors.ErrValidation)

	_, err = f.ordSvc.MarkPacked(asActor(packerEmail), o.ID, []string{"LOT-1", "  "}, fullChecklist())
	require.ErrorIs(t, err, serrors.ErrValidation)

	incomplete := fullChecklist()
	incomplete.PackagingSealed = false
	_, err = f.ordSvc.MarkPacked(asActor(packerEmail), o.ID, []string{"LOT-1", "LOT-2"}, incomplete)
	require.ErrorIs(t, err, serrors.ErrValidation)

	// Nothing moved.
	current, err := f.ordSvc.GetByID(asActor(packerEmail), o.ID)
	require.NoError(t, err)
	requireStatus(t, order.StatusReady, current.Status)
}

func TestMarkPackedRequiresPackerRole(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	o := f.approvedOrder(t)

	_, err := f.ordSvc.MarkPacked(asActor(screenerEmail), o.ID, []string{"LOT-1", "LOT-2"}, fullChecklist())
	require.ErrorIs(t, err, serrors.ErrUnauthorized)
}

func TestMarkShipped(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	o := f.approvedOrder(t)
	_, err := f.ordSvc.MarkPacked(asActor(packerEmail), o.ID, []string{"LOT-1", "LOT-2"}, fullChecklist())
	require.NoError(t, err)

	details := order.ShipmentDetails{
		Carrier:        "UPS",
		TrackingNumber: "1Z999AA10123456784",
		PackageCount:   1,
		WeightKg:       2.4,
		LabelAttached:  true,
		DocsAttached:   true,
	}
	shipped, err := f.ordSvc.MarkShipped(asActor(shipperEmail), o.ID, details, true)
	require.NoError(t, err)
	requireStatus(t, order.StatusShipped, shipped.Status)
	require.Equal(t, shipperEmail, *shipped.ShippedBy)
	require.Equal(t, "1Z999AA10123456784", shipped.Shipment.TrackingNumber)

	// notifyCustomer routed the tracking number to the contact.
	msgs := f.notifier.byType(message.TypeOrderShipped)
	require.Len(t, msgs, 1)
	require.Equal(t, []string{contactEmail}, msgs[0].ToAddresses)

	// Shipping is one-way.
	_, err = f.ordSvc.MarkShipped(asActor(shipperEmail), o.ID, details, false)
	require.ErrorIs(t, err, serrors.ErrInvalidState)
}

func TestMarkShippedValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	o := f.approvedOrder(t)
	_, err := f.ordSvc.MarkPacked(asActor(packerEmail), o.ID, []string{"LOT-1", "LOT-2"}, fullChecklist())
	require.NoError(t, err)

	// Blank tracking number.
	_, err = f.ordSvc.MarkShipped(asActor(shipperEmail), o.ID, order.ShipmentDetails{
		Carrier: "UPS", TrackingNumber: "  ", LabelAttached: true,
	}, false)
	require.ErrorIs(t, err, serrors.ErrValidation)

	// Label must be attached.
	_, err = f.ordSvc.MarkShipped(asActor(shipperEmail), o.ID, order.ShipmentDetails{
		Carrier: "UPS", TrackingNumber: "1Z", LabelAttached: false,
	}, false)
	require.ErrorIs(t, err, serrors.ErrValidation)

	// The order stayed packed.
	current, err := f.ordSvc.GetByID(asActor(shipperEmail), o.ID)
	require.NoError(t, err)
	requireStatus(t, order.StatusPacked, current.Status)
}

func TestMarkShippedSkipsReady(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	o := f.approvedOrder(t)

	_, err := f.ordSvc.MarkShipped(asActor(shipperEmail), o.ID, order.ShipmentDetails{
		TrackingNumber: "1Z", LabelAttached: true,
	}, false)
	require.ErrorIs(t, err, serrors.ErrInvalidState)
}

func TestOrderPriority(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	in := sampleInput()
	in.CompanyVIP = true
	r := f.mustCreate(t, in)
	_, o, err := f.reqSvc.Approve(asActor(screenerEmail), r.ID, "")
	require.NoError(t, err)

	priority, err := f.ordSvc.Priority(asActor(packerEmail), o)
	require.NoError(t, err)
	require.Equal(t, order.PriorityHigh, priority)
}

// Full walk: intake through shipment, with one audit entry per transition
// plus one for the order spawned at approval.
func TestFulfillmentScenario(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	r := f.mustCreate(t, sampleInput())
	require.Equal(t, "REQ-00001", r.DisplayID)

	approved, o, err := f.reqSvc.Approve(asActor(screenerEmail), r.ID, "")
	require.NoError(t, err)
	requireStatus(t, "approved", approved.Status)
	require.Equal(t, "ORD-00001", o.DisplayID)
	requireStatus(t, order.StatusReady, o.Status)

	packed, err := f.ordSvc.MarkPacked(asActor(packerEmail), o.ID, []string{"LOT-A", "LOT-B"}, fullChecklist())
	require.NoError(t, err)
	requireStatus(t, order.StatusPacked, packed.Status)

	shipped, err := f.ordSvc.MarkShipped(asActor(shipperEmail), o.ID, order.ShipmentDetails{
		Carrier:        "UPS",
		TrackingNumber: "1Z999AA10123456784",
		PackageCount:   2,
		LabelAttached:  true,
	}, false)
	require.NoError(t, err)
	requireStatus(t, order.StatusShipped, shipped.Status)

	require.Equal(t, []string{
		"createRequest",
		"approveRequest",
		"createOrder",
		"markPacked",
		"markShipped",
	}, f.audit.actions())
}

func TestOrderNotFound(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.ordSvc.MarkPacked(asActor(packerEmail), uuid.New(), []string{"LOT-1"}, fullChecklist())
	require.ErrorIs(t, err, serrors.ErrNotFound)
}
