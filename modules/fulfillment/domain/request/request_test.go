package request

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestComputeDuplicateHash_ProductOrderIrrelevant(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	a := ComputeDuplicateHash("acme", []ProductLine{{ProductID: "p1"}, {ProductID: "p2"}}, "", day)
	b := ComputeDuplicateHash("acme", []ProductLine{{ProductID: "p2"}, {ProductID: "p1"}}, "", day)
	require.Equal(t, a, b)
}

func TestComputeDuplicateHash_DifferentDayDiffers(t *testing.T) {
	t.Parallel()

	lines := []ProductLine{{ProductID: "p1"}}
	a := ComputeDuplicateHash("acme", lines, "", time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC))
	b := ComputeDuplicateHash("acme", lines, "", time.Date(2026, 3, 15, 1, 0, 0, 0, time.UTC))
	require.NotEqual(t, a, b)
}

func TestComputeDuplicateHash_SameDayDifferentHours(t *testing.T) {
	t.Parallel()

	lines := []ProductLine{{ProductID: "p1"}}
	a := ComputeDuplicateHash("acme", lines, "", time.Date(2026, 3, 14, 0, 5, 0, 0, time.UTC))
	b := ComputeDuplicateHash("acme", lines, "", time.Date(2026, 3, 14, 23, 55, 0, 0, time.UTC))
	require.Equal(t, a, b)
}

func TestComputeDuplicateHash_BriefFallback(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	a := ComputeDuplicateHash("acme", nil, "  Sample kit for Q2 launch ", day)
	b := ComputeDuplicateHash("acme", nil, "sample kit for q2 launch", day)
	require.Equal(t, a, b)

	c := ComputeDuplicateHash("acme", nil, "another brief", day)
	require.NotEqual(t, a, c)
}

func TestComputeDuplicateHash_CompanyScoped(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	lines := []ProductLine{{ProductID: "p1"}}

	require.NotEqual(t,
		ComputeDuplicateHash("acme", lines, "", day),
		ComputeDuplicateHash("globex", lines, "", day),
	)
}

func TestClaimHelpers(t *testing.T) {
	t.Parallel()

	r := &Request{Status: StatusPendingReview}
	require.False(t, r.ClaimedByOther("sam@acme.test"))
	require.False(t, r.ClaimedByActor("sam@acme.test"))

	owner := "sam@acme.test"
	r.ClaimedBy = &owner
	require.True(t, r.ClaimedByActor("sam@acme.test"))
	require.True(t, r.ClaimedByOther("kim@acme.test"))
	require.False(t, r.ClaimedByOther("sam@acme.test"))
}
