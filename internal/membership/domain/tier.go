// Package domain holds the membership tier reference data and member snapshots.
package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Tier names a membership level.
type Tier string

const (
	TierNone       Tier = "NONE"
	TierBasico     Tier = "BASICO"
	TierIntermedio Tier = "INTERMEDIO"
	TierPlus       Tier = "PLUS"
	TierElite      Tier = "ELITE"
)

// ParseTier normalizes user input into a Tier. Empty input is TierNone.
func ParseTier(raw string) Tier {
	value := strings.ToUpper(strings.TrimSpace(raw))
	if value == "" {
		return TierNone
	}
	return Tier(value)
}

var (
	ErrInvalidTier             = errors.New("invalid_tier")
	ErrDuplicateTier           = errors.New("duplicate_tier")
	ErrInvalidDiscountFraction = errors.New("invalid_discount_fraction")
	ErrInvalidKmLimit          = errors.New("invalid_km_limit")
	ErrInvalidPrice            = errors.New("invalid_price")
	ErrInvalidUseLimit         = errors.New("invalid_use_limit")
	ErrUnknownTier             = errors.New("unknown_tier")
)

// SpaceBenefit is the space-rental perk bundled with a tier.
type SpaceBenefit struct {
	DiscountFraction decimal.Decimal `json:"discount_fraction"`
	MonthlyUseLimit  int             `json:"monthly_use_limit"`
	DecorationLabel  string          `json:"decoration_label,omitempty"`
}

// TierConfig is the immutable configuration of one tier.
type TierConfig struct {
	Tier             Tier            `json:"tier"`
	MonthlyPrice     decimal.Decimal `json:"monthly_price"`
	DiscountFraction decimal.Decimal `json:"discount_fraction"`
	KmLimit          int64           `json:"km_limit"`
	Priority         int             `json:"priority"`
	Benefits         []string        `json:"benefits"`
	Space            SpaceBenefit    `json:"space"`
}

var one = decimal.NewFromInt(1)

// Validate enforces the reference-data invariants. Values are never clamped.
func (c TierConfig) Validate() error {
	if c.Tier == "" || c.Tier == TierNone {
		return fmt.Errorf("%w: %q", ErrInvalidTier, c.Tier)
	}
	if c.MonthlyPrice.IsNegative() {
		return fmt.Errorf("%w: tier %s monthly price %s", ErrInvalidPrice, c.Tier, c.MonthlyPrice)
	}
	if !fractionInRange(c.DiscountFraction) {
		return fmt.Errorf("%w: tier %s discount %s", ErrInvalidDiscountFraction, c.Tier, c.DiscountFraction)
	}
	if c.KmLimit < 0 {
		return fmt.Errorf("%w: tier %s km limit %d", ErrInvalidKmLimit, c.Tier, c.KmLimit)
	}
	if !fractionInRange(c.Space.DiscountFraction) {
		return fmt.Errorf("%w: tier %s space discount %s", ErrInvalidDiscountFraction, c.Tier, c.Space.DiscountFraction)
	}
	if c.Space.MonthlyUseLimit < 0 {
		return fmt.Errorf("%w: tier %s space use limit %d", ErrInvalidUseLimit, c.Tier, c.Space.MonthlyUseLimit)
	}
	return nil
}

func fractionInRange(v decimal.Decimal) bool {
	return !v.IsNegative() && v.LessThanOrEqual(one)
}

// TierTable is a versioned, read-only snapshot of all tier configurations.
// Engines receive it by value and never observe later reloads.
type TierTable struct {
	version int64
	tiers   map[Tier]TierConfig
}

// NewTierTable validates configs and builds a snapshot. The input slice is copied.
func NewTierTable(version int64, configs []TierConfig) (TierTable, error) {
	tiers := make(map[Tier]TierConfig, len(configs))
	for _, cfg := range configs {
		if err := cfg.Validate(); err != nil {
			return TierTable{}, err
		}
		if _, exists := tiers[cfg.Tier]; exists {
			return TierTable{}, fmt.Errorf("%w: %s", ErrDuplicateTier, cfg.Tier)
		}
		cfg.Benefits = append([]string(nil), cfg.Benefits...)
		tiers[cfg.Tier] = cfg
	}
	return TierTable{version: version, tiers: tiers}, nil
}

func (t TierTable) Version() int64 {
	return t.version
}

// Lookup returns the configuration for tier.
func (t TierTable) Lookup(tier Tier) (TierConfig, bool) {
	cfg, ok := t.tiers[tier]
	return cfg, ok
}

func (t TierTable) Len() int {
	return len(t.tiers)
}

// Tiers lists configurations ordered by monthly price, then priority.
func (t TierTable) Tiers() []TierConfig {
	out := make([]TierConfig, 0, len(t.tiers))
	for _, cfg := range t.tiers {
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].MonthlyPrice.Equal(out[j].MonthlyPrice) {
			return out[i].MonthlyPrice.LessThan(out[j].MonthlyPrice)
		}
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].Tier < out[j].Tier
	})
	return out
}

// DefaultTierConfigs is the tier table the storefront launched with.
func DefaultTierConfigs() []TierConfig {
	return []TierConfig{
		{
			Tier:             TierBasico,
			MonthlyPrice:     decimal.NewFromInt(5000),
			DiscountFraction: decimal.RequireFromString("0.15"),
			KmLimit:          1000,
			Priority:         0,
			Benefits:         []string{"15% off up to 1000 km"},
			Space:            SpaceBenefit{DiscountFraction: decimal.Zero, MonthlyUseLimit: 0},
		},
		{
			Tier:             TierIntermedio,
			MonthlyPrice:     decimal.NewFromInt(10000),
			DiscountFraction: decimal.RequireFromString("0.20"),
			KmLimit:          2000,
			Priority:         0,
			Benefits:         []string{"20% off up to 2000 km", "10% off spaces (1 per month)"},
			Space:            SpaceBenefit{DiscountFraction: decimal.RequireFromString("0.10"), MonthlyUseLimit: 1},
		},
		{
			Tier:             TierPlus,
			MonthlyPrice:     decimal.NewFromInt(15000),
			DiscountFraction: decimal.RequireFromString("0.25"),
			KmLimit:          3000,
			Priority:         1,
			Benefits:         []string{"25% off up to 3000 km", "15% off spaces (2 per month)", "Basic decoration included"},
			Space:            SpaceBenefit{DiscountFraction: decimal.RequireFromString("0.15"), MonthlyUseLimit: 2, DecorationLabel: "Basic decoration"},
		},
		{
			Tier:             TierElite,
			MonthlyPrice:     decimal.NewFromInt(20000),
			DiscountFraction: decimal.RequireFromString("0.30"),
			KmLimit:          4500,
			Priority:         2,
			Benefits:         []string{"30% off up to 4500 km", "15% off spaces (3 per month)", "Premium decoration included"},
			Space:            SpaceBenefit{DiscountFraction: decimal.RequireFromString("0.15"), MonthlyUseLimit: 3, DecorationLabel: "Premium decoration"},
		},
	}
}
