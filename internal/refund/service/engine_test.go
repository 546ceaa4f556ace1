package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tourdesk/internal/localdate"
	refunddomain "github.com/smallbiznis/tourdesk/internal/refund/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var art = time.FixedZone("ART", -3*60*60)

func TestRefundCliff(t *testing.T) {
	scheduled := localdate.MustParse("2026-12-10")
	midnight := scheduled.In(art)
	amount := decimal.NewFromInt(100000)
	policy := refunddomain.Policy{ThresholdHours: 72, Location: art}

	cases := []struct {
		name       string
		hours      int
		amount     string
		percentage int
		reason     string
	}{
		{"73 hours before", 73, "100000", 100, "full refund (early cancellation)"},
		{"exactly at threshold", 72, "50000", 50, "50% refund (cancellation within 72h notice window)"},
		{"past due", -5, "50000", 50, "50% refund (cancellation within 72h notice window)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			now := midnight.Add(-time.Duration(tc.hours) * time.Hour)
			out, err := ComputeRefund(scheduled, amount, policy, now)
			require.NoError(t, err)
			assert.True(t, out.Amount.Equal(decimal.RequireFromString(tc.amount)), out.Amount.String())
			assert.Equal(t, tc.percentage, out.Percentage)
			assert.Equal(t, tc.reason, out.Reason)
			assert.InDelta(t, float64(tc.hours), out.HoursUntilScheduled, 1e-9)
		})
	}
}

func TestRefundUsesLocalMidnight(t *testing.T) {
	scheduled := localdate.MustParse("2026-12-10")
	policy := refunddomain.Policy{ThresholdHours: 72, Location: art}

	// 2026-12-07 01:00 UTC is 2026-12-06 22:00 in ART, 74h before local midnight.
	now := time.Date(2026, 12, 7, 1, 0, 0, 0, time.UTC)
	out, err := ComputeRefund(scheduled, decimal.NewFromInt(10), policy, now)
	require.NoError(t, err)
	assert.Equal(t, 100, out.Percentage)
	assert.InDelta(t, 74.0, out.HoursUntilScheduled, 1e-9)
}

func TestRefundJustOverThreshold(t *testing.T) {
	scheduled := localdate.MustParse("2026-12-10")
	policy := refunddomain.Policy{ThresholdHours: 72, Location: art}
	now := scheduled.In(art).Add(-72*time.Hour - time.Second)

	out, err := ComputeRefund(scheduled, decimal.NewFromInt(1), policy, now)
	require.NoError(t, err)
	assert.Equal(t, 100, out.Percentage)
}

func TestRefundErrors(t *testing.T) {
	scheduled := localdate.MustParse("2026-12-10")
	now := time.Now()

	_, err := ComputeRefund(scheduled, decimal.NewFromInt(-1), refunddomain.Policy{ThresholdHours: 72}, now)
	assert.ErrorIs(t, err, refunddomain.ErrInvalidAmount)

	_, err = ComputeRefund(scheduled, decimal.NewFromInt(1), refunddomain.Policy{ThresholdHours: -1}, now)
	assert.ErrorIs(t, err, refunddomain.ErrInvalidThreshold)

	_, err = ComputeRefund(localdate.Date{}, decimal.NewFromInt(1), refunddomain.Policy{ThresholdHours: 72}, now)
	assert.ErrorIs(t, err, localdate.ErrInvalidDate)
}
