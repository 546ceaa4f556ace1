package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	membershipdomain "github.com/smallbiznis/tourdesk/internal/membership/domain"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// TierFile is the on-disk shape of one tier in membership.yml.
type TierFile struct {
	Tier             string   `mapstructure:"tier"`
	MonthlyPrice     string   `mapstructure:"monthlyPrice"`
	DiscountFraction string   `mapstructure:"discountFraction"`
	KmLimit          int64    `mapstructure:"kmLimit"`
	Priority         int      `mapstructure:"priority"`
	Benefits         []string `mapstructure:"benefits"`
	Space            struct {
		DiscountFraction string `mapstructure:"discountFraction"`
		MonthlyUseLimit  int    `mapstructure:"monthlyUseLimit"`
		DecorationLabel  string `mapstructure:"decorationLabel"`
	} `mapstructure:"space"`
}

// MembershipConfigHolder serves the current tier table and swaps it when
// membership.yml changes. Every accepted reload gets the next version.
type MembershipConfigHolder struct {
	current atomic.Value // holds membershipdomain.TierTable
	mu      sync.Mutex
	version int64
	log     *zap.Logger
}

func NewMembershipConfigHolder(cfg Config, log *zap.Logger) (*MembershipConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("membership")
	v.SetConfigType("yml")
	if dir := strings.TrimSpace(cfg.Membership.ConfigDir); dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("TOURDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	holder := &MembershipConfigHolder{log: log.Named("config.membership")}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		holder.log.Info("membership.yml not found, using built-in tier table")
		if _, err := holder.Replace(membershipdomain.DefaultTierConfigs()); err != nil {
			return nil, err
		}
		return holder, nil
	}

	configs, err := decodeTiers(v)
	if err != nil {
		return nil, err
	}
	if _, err := holder.Replace(configs); err != nil {
		return nil, err
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeTiers(v)
		if err != nil {
			holder.log.Warn("membership config reload failed", zap.Error(err))
			return
		}
		table, err := holder.Replace(updated)
		if err != nil {
			holder.log.Warn("invalid membership config ignored", zap.Error(err))
			return
		}
		holder.log.Info("membership config reloaded",
			zap.String("file", e.Name),
			zap.Int64("version", table.Version()),
		)
	})

	return holder, nil
}

// Current returns the active snapshot.
func (h *MembershipConfigHolder) Current() membershipdomain.TierTable {
	return h.current.Load().(membershipdomain.TierTable)
}

// Replace validates configs and publishes them as a new snapshot. The
// previous snapshot stays active when validation fails.
func (h *MembershipConfigHolder) Replace(configs []membershipdomain.TierConfig) (membershipdomain.TierTable, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(configs) == 0 {
		return membershipdomain.TierTable{}, errors.New("membership.tiers cannot be empty")
	}
	table, err := membershipdomain.NewTierTable(h.version+1, configs)
	if err != nil {
		return membershipdomain.TierTable{}, err
	}
	h.version++
	h.current.Store(table)
	return table, nil
}

func decodeTiers(v *viper.Viper) ([]membershipdomain.TierConfig, error) {
	var files []TierFile
	if err := v.UnmarshalKey("membership.tiers", &files); err != nil {
		return nil, err
	}
	configs := make([]membershipdomain.TierConfig, 0, len(files))
	for _, f := range files {
		cfg, err := f.toDomain()
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

func (f TierFile) toDomain() (membershipdomain.TierConfig, error) {
	tier := membershipdomain.ParseTier(f.Tier)
	price, err := parseDecimal(f.MonthlyPrice)
	if err != nil {
		return membershipdomain.TierConfig{}, fmt.Errorf("%w: tier %s monthly price: %v", membershipdomain.ErrInvalidPrice, tier, err)
	}
	discount, err := parseDecimal(f.DiscountFraction)
	if err != nil {
		return membershipdomain.TierConfig{}, fmt.Errorf("%w: tier %s: %v", membershipdomain.ErrInvalidDiscountFraction, tier, err)
	}
	spaceDiscount, err := parseDecimal(f.Space.DiscountFraction)
	if err != nil {
		return membershipdomain.TierConfig{}, fmt.Errorf("%w: tier %s space: %v", membershipdomain.ErrInvalidDiscountFraction, tier, err)
	}
	return membershipdomain.TierConfig{
		Tier:             tier,
		MonthlyPrice:     price,
		DiscountFraction: discount,
		KmLimit:          f.KmLimit,
		Priority:         f.Priority,
		Benefits:         f.Benefits,
		Space: membershipdomain.SpaceBenefit{
			DiscountFraction: spaceDiscount,
			MonthlyUseLimit:  f.Space.MonthlyUseLimit,
			DecorationLabel:  strings.TrimSpace(f.Space.DecorationLabel),
		},
	}, nil
}

func parseDecimal(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}
