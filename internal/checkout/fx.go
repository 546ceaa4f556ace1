package checkout

import (
	"github.com/smallbiznis/tourdesk/internal/checkout/repository"
	"github.com/smallbiznis/tourdesk/internal/checkout/service"
	"go.uber.org/fx"
)

var Module = fx.Module("checkout.service",
	fx.Provide(repository.Provide),
	fx.Provide(repository.ProvideLedger),
	fx.Provide(service.New),
)
