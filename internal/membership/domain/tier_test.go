package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTierTable(t *testing.T) {
	table, err := NewTierTable(1, DefaultTierConfigs())
	require.NoError(t, err)
	assert.Equal(t, 4, table.Len())

	plus, ok := table.Lookup(TierPlus)
	require.True(t, ok)
	assert.True(t, plus.DiscountFraction.Equal(decimal.RequireFromString("0.25")))
	assert.Equal(t, int64(3000), plus.KmLimit)
	assert.Equal(t, 2, plus.Space.MonthlyUseLimit)

	_, ok = table.Lookup(TierNone)
	assert.False(t, ok)

	tiers := table.Tiers()
	require.Len(t, tiers, 4)
	assert.Equal(t, TierBasico, tiers[0].Tier)
	assert.Equal(t, TierElite, tiers[3].Tier)
}

func TestTierConfigValidation(t *testing.T) {
	valid := DefaultTierConfigs()[1]

	cases := []struct {
		name   string
		mutate func(c *TierConfig)
		err    error
	}{
		{"none tier", func(c *TierConfig) { c.Tier = TierNone }, ErrInvalidTier},
		{"empty tier", func(c *TierConfig) { c.Tier = "" }, ErrInvalidTier},
		{"negative price", func(c *TierConfig) { c.MonthlyPrice = decimal.NewFromInt(-1) }, ErrInvalidPrice},
		{"discount above one", func(c *TierConfig) { c.DiscountFraction = decimal.RequireFromString("1.01") }, ErrInvalidDiscountFraction},
		{"negative discount", func(c *TierConfig) { c.DiscountFraction = decimal.RequireFromString("-0.1") }, ErrInvalidDiscountFraction},
		{"negative km", func(c *TierConfig) { c.KmLimit = -5 }, ErrInvalidKmLimit},
		{"space discount", func(c *TierConfig) { c.Space.DiscountFraction = decimal.NewFromInt(2) }, ErrInvalidDiscountFraction},
		{"space uses", func(c *TierConfig) { c.Space.MonthlyUseLimit = -1 }, ErrInvalidUseLimit},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), tc.err)
		})
	}

	edge := valid
	edge.DiscountFraction = decimal.NewFromInt(1)
	edge.KmLimit = 0
	assert.NoError(t, edge.Validate())
}

func TestNewTierTableRejectsDuplicates(t *testing.T) {
	configs := DefaultTierConfigs()
	configs = append(configs, configs[0])
	_, err := NewTierTable(1, configs)
	assert.ErrorIs(t, err, ErrDuplicateTier)
}

func TestTierTableIsolatedFromInput(t *testing.T) {
	configs := DefaultTierConfigs()
	table, err := NewTierTable(3, configs)
	require.NoError(t, err)

	configs[0].Benefits[0] = "changed"
	cfg, _ := table.Lookup(TierBasico)
	assert.NotEqual(t, "changed", cfg.Benefits[0])
	assert.Equal(t, int64(3), table.Version())
}

func TestAccountSnapshot(t *testing.T) {
	account := Account{Tier: TierPlus, UsedThisMonthKm: 1200, SpaceBookingsThisMonth: 1, UsagePeriod: "2026-10"}

	assert.Equal(t, Enrolled{Tier: TierPlus, UsedThisMonthKm: 1200, SpaceBookingsThisMonth: 1}, account.Snapshot("2026-10"))
	assert.Equal(t, Enrolled{Tier: TierPlus}, account.Snapshot("2026-11"))

	assert.Equal(t, TierNone, TierOf(Anonymous{}))
	assert.Equal(t, TierNone, TierOf(nil))
	assert.Equal(t, TierPlus, TierOf(account.Snapshot("2026-10")))

	account.RollPeriod("2026-11")
	assert.Equal(t, int64(0), account.UsedThisMonthKm)
	assert.Equal(t, "2026-11", account.UsagePeriod)
}

func TestParseTier(t *testing.T) {
	assert.Equal(t, TierElite, ParseTier(" elite "))
	assert.Equal(t, TierNone, ParseTier(""))
}
