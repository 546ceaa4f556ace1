package service

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tourdesk/internal/localdate"
	refunddomain "github.com/smallbiznis/tourdesk/internal/refund/domain"
)

const (
	reasonFull    = "full refund (early cancellation)"
	reasonPartial = "50%% refund (cancellation within %dh notice window)"
)

var half = decimal.RequireFromString("0.5")

// ComputeRefund applies the binary cancellation rule: strictly more than the
// notice threshold before local midnight of the scheduled day refunds
// everything, anything later (including after the date) refunds half.
func ComputeRefund(scheduled localdate.Date, amountPaid decimal.Decimal, policy refunddomain.Policy, now time.Time) (refunddomain.Decision, error) {
	if amountPaid.IsNegative() {
		return refunddomain.Decision{}, refunddomain.ErrInvalidAmount
	}
	if policy.ThresholdHours < 0 {
		return refunddomain.Decision{}, refunddomain.ErrInvalidThreshold
	}
	if scheduled.IsZero() {
		return refunddomain.Decision{}, localdate.ErrInvalidDate
	}

	until := scheduled.In(policy.Location).Sub(now)
	threshold := time.Duration(policy.ThresholdHours) * time.Hour

	out := refunddomain.Decision{
		HoursUntilScheduled: until.Hours(),
		ThresholdHours:      policy.ThresholdHours,
	}
	if until > threshold {
		out.Percentage = refunddomain.FullPercentage
		out.Amount = amountPaid
		out.Reason = reasonFull
		return out, nil
	}

	out.Percentage = refunddomain.PartialPercentage
	out.Amount = amountPaid.Mul(half)
	out.Reason = fmt.Sprintf(reasonPartial, policy.ThresholdHours)
	return out, nil
}
