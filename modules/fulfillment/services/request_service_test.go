package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sampledesk/sampledesk/modules/fulfillment/domain/order"
	"github.com/sampledesk/sampledesk/modules/fulfillment/domain/request"
	"github.com/sampledesk/sampledesk/modules/notifications/domain/message"
	"github.com/sampledesk/sampledesk/pkg/serrors"
)

func TestCreateRequest(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	r := f.mustCreate(t, sampleInput())
	require.Equal(t, "REQ-00001", r.DisplayID)
	requireStatus(t, request.StatusPendingReview, r.Status)
	require.NotEmpty(t, r.DuplicateHash)
	require.Nil(t, r.ClaimedBy)

	// Screeners and the contact are both notified.
	received := f.notifier.byType(message.TypeRequestReceived)
	require.Len(t, received, 2)

	require.Equal(t, []string{"createRequest"}, f.audit.actions())
}

func TestCreateRequestValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	in := sampleInput()
	in.CompanyID = ""
	_, err := f.reqSvc.Create(context.Background(), in)
	require.ErrorIs(t, err, serrors.ErrValidation)

	in = sampleInput()
	in.Lines[0].Quantity = 0
	_, err = f.reqSvc.Create(context.Background(), in)
	require.ErrorIs(t, err, serrors.ErrValidation)

	in = sampleInput()
	in.Lines = nil
	in.BriefText = "   "
	_, err = f.reqSvc.Create(context.Background(), in)
	require.ErrorIs(t, err, serrors.ErrValidation)
}

func TestCreateRequestDuplicateSameDay(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.mustCreate(t, sampleInput())

	// Same company, same products, same day: suppressed even with the
	// lines in a different order.
	in := sampleInput()
	in.Lines = []request.ProductLine{
		{ProductID: "prod-b", Quantity: 1},
		{ProductID: "prod-a", Quantity: 2},
	}
	_, err := f.reqSvc.Create(context.Background(), in)
	require.ErrorIs(t, err, serrors.ErrDuplicateRequest)

	// A different product set passes.
	in = sampleInput()
	in.Lines = []request.ProductLine{{ProductID: "prod-c", Quantity: 1}}
	_, err = f.reqSvc.Create(context.Background(), in)
	require.NoError(t, err)
}

func TestCreateRequestDuplicateIgnoresDeleted(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	r := f.mustCreate(t, sampleInput())
	require.NoError(t, f.reqSvc.Delete(asActor(screenerEmail), r.ID))

	_, err := f.reqSvc.Create(context.Background(), sampleInput())
	require.NoError(t, err)
}

func TestCreateRequestExplicitDisplayID(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	in := sampleInput()
	in.DisplayID = "REQ-90001"
	r := f.mustCreate(t, in)
	require.Equal(t, "REQ-90001", r.DisplayID)

	in2 := sampleInput()
	in2.CompanyID = "other-co"
	in2.DisplayID = "REQ-90001"
	_, err := f.reqSvc.Create(context.Background(), in2)
	require.ErrorIs(t, err, serrors.ErrValidation)
}

func TestCreateRequestEnqueueFailureDoesNotFail(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.notifier.err = errors.New("outbox unavailable")

	r, err := f.reqSvc.Create(context.Background(), sampleInput())
	require.NoError(t, err)
	requireStatus(t, request.StatusPendingReview, r.Status)
}

func TestClaim(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	r := f.mustCreate(t, sampleInput())

	claimed := f.mustClaim(t, r.ID, screenerEmail)
	require.NotNil(t, claimed.ClaimedBy)
	require.Equal(t, screenerEmail, *claimed.ClaimedBy)

	// Re-claim by the holder is idempotent.
	again := f.mustClaim(t, r.ID, screenerEmail)
	require.Equal(t, screenerEmail, *again.ClaimedBy)

	// A second screener is rejected.
	_, err := f.reqSvc.Claim(asActor(screener2Email), r.ID)
	require.ErrorIs(t, err, serrors.ErrAlreadyClaimed)
}

func TestClaimRequiresScreenerRole(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	r := f.mustCreate(t, sampleInput())

	_, err := f.reqSvc.Claim(asActor(packerEmail), r.ID)
	require.ErrorIs(t, err, serrors.ErrUnauthorized)

	_, err = f.reqSvc.Claim(asActor("nobody@sampledesk.test"), r.ID)
	require.ErrorIs(t, err, serrors.ErrUnauthorized)
}

func TestApprove(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	r := f.mustCreate(t, sampleInput())
	f.mustClaim(t, r.ID, screenerEmail)

	approved, o, err := f.reqSvc.Approve(asActor(screenerEmail), r.ID, "looks good")
	require.NoError(t, err)
	requireStatus(t, request.StatusApproved, approved.Status)
	require.Equal(t, screenerEmail, *approved.ReviewedBy)
	require.Equal(t, "ORD-00001", o.DisplayID)
	requireStatus(t, order.StatusReady, o.Status)
	require.Equal(t, r.ID, o.RequestID)

	// Exactly one order exists and a second approve is rejected.
	_, _, err = f.reqSvc.Approve(asActor(screenerEmail), r.ID, "")
	require.ErrorIs(t, err, serrors.ErrInvalidState)
	count, err := f.orders.Count(context.Background(), order.FindParams{})
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	// Packers learn about the new order; the contact gets the decision.
	require.Len(t, f.notifier.byType(message.TypeOrderReady), 1)
	require.Len(t, f.notifier.byType(message.TypeRequestApproved), 1)
}

func TestApproveClaimedByOther(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	r := f.mustCreate(t, sampleInput())
	f.mustClaim(t, r.ID, screener2Email)

	_, _, err := f.reqSvc.Approve(asActor(screenerEmail), r.ID, "")
	require.ErrorIs(t, err, serrors.ErrUnauthorized)
}

func TestApproveUnclaimedSucceeds(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	r := f.mustCreate(t, sampleInput())

	_, _, err := f.reqSvc.Approve(asActor(screenerEmail), r.ID, "")
	require.NoError(t, err)
}

func TestReject(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	r := f.mustCreate(t, sampleInput())

	_, err := f.reqSvc.Reject(asActor(screenerEmail), r.ID, "  ")
	require.ErrorIs(t, err, serrors.ErrValidation)

	rejected, err := f.reqSvc.Reject(asActor(screenerEmail), r.ID, "out of stock")
	require.NoError(t, err)
	requireStatus(t, request.StatusRejected, rejected.Status)
	require.Equal(t, "out of stock", *rejected.RejectionReason)
	require.Len(t, f.notifier.byType(message.TypeRequestRejected), 1)
}

func TestInfoRoundTrip(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	r := f.mustCreate(t, sampleInput())
	f.mustClaim(t, r.ID, screenerEmail)

	parked, err := f.reqSvc.RequestInfo(asActor(screenerEmail), r.ID, "which lot size?")
	require.NoError(t, err)
	requireStatus(t, request.StatusPendingInfo, parked.Status)

	// Approve is not legal while waiting for info.
	_, _, err = f.reqSvc.Approve(asActor(screenerEmail), r.ID, "")
	require.ErrorIs(t, err, serrors.ErrInvalidState)

	// Only the request contact may respond.
	_, err = f.reqSvc.RespondInfo(asActor(screenerEmail), r.ID, "500ml")
	require.ErrorIs(t, err, serrors.ErrUnauthorized)

	back, err := f.reqSvc.RespondInfo(asActor(contactEmail), r.ID, "500ml")
	require.NoError(t, err)
	requireStatus(t, request.StatusPendingReview, back.Status)
	require.NotNil(t, back.InfoRespondedAt)

	// The claim survived the round trip; approval proceeds.
	_, _, err = f.reqSvc.Approve(asActor(screenerEmail), r.ID, "")
	require.NoError(t, err)
}

func TestProductLineJournal(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	r := f.mustCreate(t, sampleInput())

	// Edits require a claim held by the acting screener.
	_, err := f.reqSvc.AddProductLine(asActor(screenerEmail), r.ID, request.ProductLine{ProductID: "prod-c", Quantity: 1}, "customer asked")
	require.ErrorIs(t, err, serrors.ErrInvalidState)

	f.mustClaim(t, r.ID, screenerEmail)

	// Reason is mandatory.
	_, err = f.reqSvc.AddProductLine(asActor(screenerEmail), r.ID, request.ProductLine{ProductID: "prod-c", Quantity: 1}, "")
	require.ErrorIs(t, err, serrors.ErrValidation)

	afterAdd, err := f.reqSvc.AddProductLine(asActor(screenerEmail), r.ID, request.ProductLine{ProductID: "prod-c", Quantity: 1}, "customer asked")
	require.NoError(t, err)
	require.Len(t, afterAdd.Lines, 3)

	afterEdit, err := f.reqSvc.EditProductLine(asActor(screenerEmail), r.ID, 0, request.ProductLine{ProductID: "prod-a", Quantity: 5}, "stock allows more")
	require.NoError(t, err)
	require.Equal(t, 5, afterEdit.Lines[0].Quantity)

	afterRemove, err := f.reqSvc.RemoveProductLine(asActor(screenerEmail), r.ID, 2, "discontinued")
	require.NoError(t, err)
	require.Len(t, afterRemove.Lines, 2)

	journal := afterRemove.ProductChanges
	require.Len(t, journal, 3)
	require.Equal(t, request.ChangeAdd, journal[0].Type)
	require.Equal(t, request.ChangeEdit, journal[1].Type)
	require.Equal(t, request.ChangeRemove, journal[2].Type)
	require.Equal(t, "discontinued", journal[2].Reason)
	require.Equal(t, "prod-c", journal[2].From.ProductID)

	// Another screener cannot edit a claimed request.
	_, err = f.reqSvc.EditProductLine(asActor(screener2Email), r.ID, 0, request.ProductLine{ProductID: "prod-a", Quantity: 1}, "nope")
	require.ErrorIs(t, err, serrors.ErrUnauthorized)

	// Index bounds are validated.
	_, err = f.reqSvc.RemoveProductLine(asActor(screenerEmail), r.ID, 9, "oops")
	require.ErrorIs(t, err, serrors.ErrValidation)
}

func TestReviewedRequestIsImmutable(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	r := f.mustCreate(t, sampleInput())
	f.mustClaim(t, r.ID, screenerEmail)
	_, _, err := f.reqSvc.Approve(asActor(screenerEmail), r.ID, "")
	require.NoError(t, err)

	name := "New Name"
	_, err = f.reqSvc.Update(asActor(screenerEmail), r.ID, &UpdateRequestInput{CompanyName: &name})
	require.ErrorIs(t, err, serrors.ErrInvalidState)

	_, err = f.reqSvc.AddProductLine(asActor(screenerEmail), r.ID, request.ProductLine{ProductID: "prod-z", Quantity: 1}, "late add")
	require.ErrorIs(t, err, serrors.ErrInvalidState)

	err = f.reqSvc.Delete(asActor(screenerEmail), r.ID)
	require.ErrorIs(t, err, serrors.ErrInvalidState)
}

func TestUpdateMetadata(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	r := f.mustCreate(t, sampleInput())

	name := "Acme GmbH"
	updated, err := f.reqSvc.Update(asActor(screenerEmail), r.ID, &UpdateRequestInput{CompanyName: &name})
	require.NoError(t, err)
	require.Equal(t, "Acme GmbH", updated.CompanyName)
	// Untouched fields survive.
	require.Equal(t, contactEmail, updated.ContactEmail)
}

func TestDeleteSoft(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	r := f.mustCreate(t, sampleInput())
	require.NoError(t, f.reqSvc.Delete(asActor(screenerEmail), r.ID))

	_, err := f.reqSvc.GetByID(context.Background(), r.ID)
	require.ErrorIs(t, err, serrors.ErrNotFound)
}
