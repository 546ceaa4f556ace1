package config

import (
	membershipdomain "github.com/smallbiznis/tourdesk/internal/membership/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(LoadLocation),
	fx.Provide(NewMembershipConfigHolder),
	fx.Provide(func(h *MembershipConfigHolder) membershipdomain.TierSource { return h }),
)
