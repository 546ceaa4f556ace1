package gateway

import (
	"github.com/smallbiznis/tourdesk/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.gateway",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config, log *zap.Logger) (Gateway, error) {
	registry := NewRegistry(NewSimulatedFactory())
	gw, err := registry.NewGateway(cfg.Gateway.Provider, Config{
		CheckoutBaseURL: cfg.Gateway.CheckoutBaseURL,
		WebhookSecret:   cfg.Gateway.WebhookSecret,
	})
	if err != nil {
		return nil, err
	}
	if cfg.Gateway.WebhookSecret == "" {
		log.Named("providers.gateway").Warn("gateway webhook secret not set, callbacks are not verified")
	}
	return gw, nil
}
