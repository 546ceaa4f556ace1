package gateway

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrProviderNotFound = errors.New("gateway_provider_not_found")
	ErrInvalidConfig    = errors.New("invalid_gateway_config")
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrInvalidPayload   = errors.New("invalid_payload")
)

// CheckoutRequest describes a hosted checkout session for one payment.
type CheckoutRequest struct {
	Reference   string
	Description string
	Amount      decimal.Decimal
	Email       string
}

type Session struct {
	ExternalID  string
	RedirectURL string
}

// Confirmation is the canonical result of a verified gateway callback.
type Confirmation struct {
	Reference  string
	ExternalID string
	Approved   bool
}

type Gateway interface {
	Provider() string
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Session, error)
	// ParseConfirmation verifies the callback signature before decoding it.
	ParseConfirmation(ctx context.Context, payload []byte, headers http.Header) (*Confirmation, error)
}

type Config struct {
	CheckoutBaseURL string
	WebhookSecret   string
}

type Factory interface {
	Provider() string
	NewGateway(cfg Config) (Gateway, error)
}

type Registry struct {
	factories map[string]Factory
}

func NewRegistry(factories ...Factory) *Registry {
	registry := &Registry{factories: map[string]Factory{}}
	for _, factory := range factories {
		if factory == nil {
			continue
		}
		provider := strings.ToLower(strings.TrimSpace(factory.Provider()))
		if provider == "" {
			continue
		}
		registry.factories[provider] = factory
	}
	return registry
}

func (r *Registry) ProviderExists(provider string) bool {
	if r == nil {
		return false
	}
	_, ok := r.factories[strings.ToLower(strings.TrimSpace(provider))]
	return ok
}

func (r *Registry) NewGateway(provider string, cfg Config) (Gateway, error) {
	if r == nil {
		return nil, ErrProviderNotFound
	}
	factory, ok := r.factories[strings.ToLower(strings.TrimSpace(provider))]
	if !ok {
		return nil, ErrProviderNotFound
	}
	return factory.NewGateway(cfg)
}
