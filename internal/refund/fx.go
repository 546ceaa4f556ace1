package refund

import (
	"github.com/smallbiznis/tourdesk/internal/refund/service"
	"go.uber.org/fx"
)

var Module = fx.Module("refund.service",
	fx.Provide(service.New),
)
