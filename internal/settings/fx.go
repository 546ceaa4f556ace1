package settings

import (
	refunddomain "github.com/smallbiznis/tourdesk/internal/refund/domain"
	settingsdomain "github.com/smallbiznis/tourdesk/internal/settings/domain"
	"github.com/smallbiznis/tourdesk/internal/settings/repository"
	"github.com/smallbiznis/tourdesk/internal/settings/service"
	"go.uber.org/fx"
)

var Module = fx.Module("settings.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(func(svc settingsdomain.Service) refunddomain.PolicySource { return svc }),
)
