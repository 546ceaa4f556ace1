package notification

import (
	notificationdomain "github.com/smallbiznis/tourdesk/internal/notification/domain"
	"github.com/smallbiznis/tourdesk/internal/notification/repository"
	"github.com/smallbiznis/tourdesk/internal/notification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notification.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(func(svc notificationdomain.Service) notificationdomain.Publisher { return svc }),
)
