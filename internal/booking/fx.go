package booking

import (
	"github.com/smallbiznis/tourdesk/internal/booking/repository"
	"github.com/smallbiznis/tourdesk/internal/booking/service"
	"go.uber.org/fx"
)

var Module = fx.Module("booking.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
