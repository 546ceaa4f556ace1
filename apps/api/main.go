package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tourdesk/internal/booking"
	"github.com/smallbiznis/tourdesk/internal/catalog"
	"github.com/smallbiznis/tourdesk/internal/checkout"
	"github.com/smallbiznis/tourdesk/internal/clock"
	"github.com/smallbiznis/tourdesk/internal/config"
	"github.com/smallbiznis/tourdesk/internal/lock"
	"github.com/smallbiznis/tourdesk/internal/membership"
	"github.com/smallbiznis/tourdesk/internal/migration"
	"github.com/smallbiznis/tourdesk/internal/notification"
	"github.com/smallbiznis/tourdesk/internal/observability"
	"github.com/smallbiznis/tourdesk/internal/pricing"
	"github.com/smallbiznis/tourdesk/internal/providers"
	"github.com/smallbiznis/tourdesk/internal/refund"
	"github.com/smallbiznis/tourdesk/internal/server"
	"github.com/smallbiznis/tourdesk/internal/settings"
	"github.com/smallbiznis/tourdesk/pkg/db"
	"go.uber.org/fx"
)

// api serves HTTP only. /admin/scheduler/run answers 404 here; jobs belong
// to the scheduler app.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		lock.Module,
		providers.Module,

		membership.Module,
		catalog.Module,
		pricing.Module,
		refund.Module,
		settings.Module,
		notification.Module,
		booking.Module,
		checkout.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
