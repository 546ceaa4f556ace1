package service

import (
	"fmt"

	"github.com/shopspring/decimal"
	membershipdomain "github.com/smallbiznis/tourdesk/internal/membership/domain"
	pricingdomain "github.com/smallbiznis/tourdesk/internal/pricing/domain"
)

const (
	ReasonNoBenefits      = "not a member or plan has no benefits"
	reasonQuotaCovered    = "covered by monthly quota (%d km available)"
	reasonQuotaExceeded   = "exceeds your available monthly quota (%d km remaining)"
	reasonSpaceApplied    = "space benefit applied (%d uses available this month)"
	reasonSpaceExhausted  = "monthly space benefit used up (%d uses remaining)"
	reasonSpaceNoDiscount = "plan includes no space discount"
	reasonSpaceNoUses     = "plan includes no space uses"
)

var (
	hundred                 = decimal.NewFromInt(100)
	defaultLogisticsPercent = decimal.NewFromInt(80)
	defaultTicketPercent    = decimal.NewFromInt(20)
)

// ComputeTourBreakdown prices a tour for member. The discount is all or
// nothing: the whole trip must fit in what is left of the monthly km quota.
func ComputeTourBreakdown(tour pricingdomain.Tour, member membershipdomain.Member, table membershipdomain.TierTable) (pricingdomain.TourBreakdown, error) {
	if tour.LogisticsCost.IsNegative() || tour.ServiceFee.IsNegative() {
		return pricingdomain.TourBreakdown{}, pricingdomain.ErrInvalidAmount
	}
	if tour.Km < 0 {
		return pricingdomain.TourBreakdown{}, pricingdomain.ErrInvalidDistance
	}

	base := tour.LogisticsCost.Add(tour.ServiceFee)
	out := pricingdomain.TourBreakdown{
		BasePrice:        base,
		LogisticsCost:    tour.LogisticsCost,
		ServiceFee:       tour.ServiceFee,
		DiscountAmount:   decimal.Zero,
		Tier:             membershipdomain.TierNone,
		DiscountFraction: decimal.Zero,
		Reason:           ReasonNoBenefits,
		TierTableVersion: table.Version(),
	}
	out.LogisticsPercentage, out.TicketPercentage = shares(tour.LogisticsCost, tour.ServiceFee, base)

	enrolled, ok := member.(membershipdomain.Enrolled)
	if ok && enrolled.Tier != "" && enrolled.Tier != membershipdomain.TierNone {
		if enrolled.UsedThisMonthKm < 0 {
			return pricingdomain.TourBreakdown{}, pricingdomain.ErrInvalidUsage
		}
		cfg, found := table.Lookup(enrolled.Tier)
		if !found {
			return pricingdomain.TourBreakdown{}, fmt.Errorf("%w: %s", membershipdomain.ErrUnknownTier, enrolled.Tier)
		}

		out.Tier = enrolled.Tier
		out.UsedThisMonthAfterKm = enrolled.UsedThisMonthKm
		remaining := cfg.KmLimit - enrolled.UsedThisMonthKm
		out.RemainingKm = remaining

		if tour.Km <= remaining {
			out.DiscountFraction = cfg.DiscountFraction
			out.DiscountAmount = tour.ServiceFee.Mul(cfg.DiscountFraction)
			out.DiscountApplied = true
			out.QuotaConsumedKm = tour.Km
			out.UsedThisMonthAfterKm = enrolled.UsedThisMonthKm + tour.Km
			out.Reason = fmt.Sprintf(reasonQuotaCovered, remaining)
		} else {
			out.Reason = fmt.Sprintf(reasonQuotaExceeded, remaining)
		}
	}

	out.FinalServiceFee = tour.ServiceFee.Sub(out.DiscountAmount)
	out.FinalTotal = tour.LogisticsCost.Add(out.FinalServiceFee)
	return out, nil
}

// ComputeSpaceBreakdown prices a space rental. Eligibility counts bookings
// this month against the tier's use limit; the decoration perk is reported
// whether or not money is discounted.
func ComputeSpaceBreakdown(space pricingdomain.Space, member membershipdomain.Member, table membershipdomain.TierTable) (pricingdomain.SpaceBreakdown, error) {
	if space.Price.IsNegative() {
		return pricingdomain.SpaceBreakdown{}, pricingdomain.ErrInvalidAmount
	}

	out := pricingdomain.SpaceBreakdown{
		BasePrice:        space.Price,
		DiscountAmount:   decimal.Zero,
		FinalPrice:       space.Price,
		Tier:             membershipdomain.TierNone,
		DiscountFraction: decimal.Zero,
		Reason:           ReasonNoBenefits,
		TierTableVersion: table.Version(),
	}

	enrolled, ok := member.(membershipdomain.Enrolled)
	if !ok || enrolled.Tier == "" || enrolled.Tier == membershipdomain.TierNone {
		return out, nil
	}
	if enrolled.SpaceBookingsThisMonth < 0 {
		return pricingdomain.SpaceBreakdown{}, pricingdomain.ErrInvalidUsage
	}
	cfg, found := table.Lookup(enrolled.Tier)
	if !found {
		return pricingdomain.SpaceBreakdown{}, fmt.Errorf("%w: %s", membershipdomain.ErrUnknownTier, enrolled.Tier)
	}

	benefit := cfg.Space
	out.Tier = enrolled.Tier
	out.DecorationLabel = benefit.DecorationLabel
	out.RemainingUses = max(0, benefit.MonthlyUseLimit-enrolled.SpaceBookingsThisMonth)

	switch {
	case benefit.MonthlyUseLimit == 0:
		out.Reason = reasonSpaceNoUses
	case enrolled.SpaceBookingsThisMonth >= benefit.MonthlyUseLimit:
		out.Reason = fmt.Sprintf(reasonSpaceExhausted, out.RemainingUses)
	case !benefit.DiscountFraction.IsPositive():
		out.Reason = reasonSpaceNoDiscount
	default:
		out.DiscountFraction = benefit.DiscountFraction
		out.DiscountAmount = space.Price.Mul(benefit.DiscountFraction)
		out.FinalPrice = space.Price.Sub(out.DiscountAmount)
		out.DiscountApplied = true
		out.UsesConsumed = 1
		out.Reason = fmt.Sprintf(reasonSpaceApplied, out.RemainingUses)
	}
	return out, nil
}

func shares(logistics, serviceFee, base decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	if base.IsZero() {
		return defaultLogisticsPercent, defaultTicketPercent
	}
	return logistics.Div(base).Mul(hundred).Round(2), serviceFee.Div(base).Mul(hundred).Round(2)
}
