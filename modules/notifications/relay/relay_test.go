package relay

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	drains    int32
	sent      int32
	reclaims  int32
	reclaimed int64
}

func (f *fakeMailer) RetryPending(_ context.Context, _ int) (int, error) {
	atomic.AddInt32(&f.drains, 1)
	atomic.AddInt32(&f.sent, 2)
	return 2, nil
}

func (f *fakeMailer) ReclaimStale(_ context.Context, _ time.Duration) (int64, error) {
	atomic.AddInt32(&f.reclaims, 1)
	return atomic.LoadInt64(&f.reclaimed), nil
}

func (f *fakeMailer) CountByStatus(_ context.Context, _ string) (int64, error) {
	return 0, nil
}

type fakePruner struct {
	calls int32
}

func (f *fakePruner) PruneFinalized(_ context.Context, _ time.Duration) (int64, error) {
	atomic.AddInt32(&f.calls, 1)
	return 1, nil
}

func TestRelayDrainsOnInterval(t *testing.T) {
	t.Parallel()

	mailer := &fakeMailer{}
	r, err := New(nil, mailer, Options{PollInterval: 10 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	err = r.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.GreaterOrEqual(t, atomic.LoadInt32(&mailer.drains), int32(3))
}

func TestRelayReclaimsBeforeDraining(t *testing.T) {
	t.Parallel()

	mailer := &fakeMailer{}
	atomic.StoreInt64(&mailer.reclaimed, 1)
	r, err := New(nil, mailer, Options{PollInterval: 10 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	err = r.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.GreaterOrEqual(t, atomic.LoadInt32(&mailer.reclaims), int32(3))
}

func TestRelaySingleActiveNeedsPool(t *testing.T) {
	t.Parallel()

	_, err := New(nil, &fakeMailer{}, Options{SingleActive: true})
	require.Error(t, err)
}

func TestCleanerDisabled(t *testing.T) {
	t.Parallel()

	pruner := &fakePruner{}
	c, err := NewCleaner(pruner, CleanerOptions{Enabled: false})
	require.NoError(t, err)
	require.NoError(t, c.Run(context.Background()))
	require.EqualValues(t, 0, atomic.LoadInt32(&pruner.calls))
}

func TestCleanerPrunes(t *testing.T) {
	t.Parallel()

	pruner := &fakePruner{}
	c, err := NewCleaner(pruner, CleanerOptions{Enabled: true, Interval: 10 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err = c.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.GreaterOrEqual(t, atomic.LoadInt32(&pruner.calls), int32(2))
}
