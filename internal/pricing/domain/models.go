// Package domain describes priced items and the breakdowns the pricing engine
// produces for them. Breakdowns are never persisted.
package domain

import (
	"github.com/shopspring/decimal"
	membershipdomain "github.com/smallbiznis/tourdesk/internal/membership/domain"
)

// Tour is a bookable trip. The membership discount applies to ServiceFee only.
type Tour struct {
	LogisticsCost decimal.Decimal
	ServiceFee    decimal.Decimal
	Km            int64
}

var (
	legacyLogisticsShare = decimal.RequireFromString("0.8")
	legacyServiceShare   = decimal.RequireFromString("0.2")
)

// TourFromLegacyPrice splits a single all-in price 80/20 between logistics and
// service fee, for tours listed before the two components were priced separately.
func TourFromLegacyPrice(price decimal.Decimal, km int64) Tour {
	return Tour{
		LogisticsCost: price.Mul(legacyLogisticsShare),
		ServiceFee:    price.Mul(legacyServiceShare),
		Km:            km,
	}
}

// Space is a rentable venue priced per date.
type Space struct {
	Price decimal.Decimal
}

type TourBreakdown struct {
	BasePrice           decimal.Decimal       `json:"base_price"`
	LogisticsCost       decimal.Decimal       `json:"logistics_cost"`
	ServiceFee          decimal.Decimal       `json:"service_fee"`
	DiscountAmount      decimal.Decimal       `json:"discount_amount"`
	FinalServiceFee     decimal.Decimal       `json:"final_service_fee"`
	FinalTotal          decimal.Decimal       `json:"final_total"`
	DiscountApplied     bool                  `json:"discount_applied"`
	Tier                membershipdomain.Tier `json:"tier"`
	DiscountFraction    decimal.Decimal       `json:"discount_fraction"`
	LogisticsPercentage decimal.Decimal       `json:"logistics_percentage"`
	TicketPercentage    decimal.Decimal       `json:"ticket_percentage"`
	RemainingKm         int64                 `json:"remaining_km"`
	Reason              string                `json:"reason"`

	// QuotaConsumedKm is what the caller adds to the member's monthly usage
	// when the booking is committed.
	QuotaConsumedKm      int64 `json:"quota_consumed_km"`
	UsedThisMonthAfterKm int64 `json:"used_this_month_after_km"`
	TierTableVersion     int64 `json:"tier_table_version"`
}

type SpaceBreakdown struct {
	BasePrice        decimal.Decimal       `json:"base_price"`
	DiscountAmount   decimal.Decimal       `json:"discount_amount"`
	FinalPrice       decimal.Decimal       `json:"final_price"`
	DiscountApplied  bool                  `json:"discount_applied"`
	Tier             membershipdomain.Tier `json:"tier"`
	DiscountFraction decimal.Decimal       `json:"discount_fraction"`
	RemainingUses    int                   `json:"remaining_uses"`
	DecorationLabel  string                `json:"decoration_label,omitempty"`
	Reason           string                `json:"reason"`
	UsesConsumed     int                   `json:"uses_consumed"`
	TierTableVersion int64                 `json:"tier_table_version"`
}
