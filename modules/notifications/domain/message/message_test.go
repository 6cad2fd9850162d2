package message

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackoff(t *testing.T) {
	t.Parallel()

	base := 30 * time.Second
	require.Equal(t, 30*time.Second, Backoff(base, 1))
	require.Equal(t, 60*time.Second, Backoff(base, 2))
	require.Equal(t, 120*time.Second, Backoff(base, 3))
	require.Equal(t, 30*time.Second, Backoff(base, 0))
}

func TestApplyProviderStatusForwardOnly(t *testing.T) {
	t.Parallel()

	now := time.Now()

	m := &Message{Status: StatusSent}
	require.True(t, m.ApplyProviderStatus(StatusDelivered, now))
	require.Equal(t, StatusDelivered, m.Status)
	require.NotNil(t, m.FinalizedAt)

	// Replaying the same event is a no-op.
	require.False(t, m.ApplyProviderStatus(StatusDelivered, now))
	require.Equal(t, StatusDelivered, m.Status)

	// Terminal statuses never downgrade.
	require.False(t, m.ApplyProviderStatus(StatusDeliveryDelayed, now))
	require.Equal(t, StatusDelivered, m.Status)
}

func TestApplyProviderStatusDelayedThenDelivered(t *testing.T) {
	t.Parallel()

	now := time.Now()
	m := &Message{Status: StatusSent}

	require.True(t, m.ApplyProviderStatus(StatusDeliveryDelayed, now))
	require.Nil(t, m.FinalizedAt)
	require.True(t, m.ApplyProviderStatus(StatusDelivered, now))
	require.NotNil(t, m.FinalizedAt)
}

func TestStatusForProviderEvent(t *testing.T) {
	t.Parallel()

	status, ok := StatusForProviderEvent("email.bounced")
	require.True(t, ok)
	require.Equal(t, StatusBounced, status)

	_, ok = StatusForProviderEvent("email.opened")
	require.False(t, ok)

	_, ok = StatusForProviderEvent("contact.created")
	require.False(t, ok)
}

func TestIsSendFinal(t *testing.T) {
	t.Parallel()

	require.False(t, IsSendFinal(StatusPending))
	require.False(t, IsSendFinal(StatusRetrying))
	require.True(t, IsSendFinal(StatusSent))
	require.True(t, IsSendFinal(StatusCancelled))
	require.True(t, IsSendFinal(StatusFailed))
}
