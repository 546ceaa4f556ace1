package gateway

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	registry := NewRegistry(NewSimulatedFactory(), nil)
	assert.True(t, registry.ProviderExists(" Simulated "))
	assert.False(t, registry.ProviderExists("mercadopago"))

	_, err := registry.NewGateway("mercadopago", Config{})
	assert.ErrorIs(t, err, ErrProviderNotFound)
	_, err = registry.NewGateway("simulated", Config{})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	var nilRegistry *Registry
	_, err = nilRegistry.NewGateway("simulated", Config{})
	assert.ErrorIs(t, err, ErrProviderNotFound)
}

func TestSimulatedCheckout(t *testing.T) {
	gw, err := NewSimulatedFactory().NewGateway(Config{CheckoutBaseURL: "https://pay.example.com/checkout/"})
	require.NoError(t, err)

	session, err := gw.CreateCheckout(context.Background(), CheckoutRequest{
		Reference: "123",
		Amount:    decimal.NewFromInt(96000),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(session.RedirectURL, "https://pay.example.com/checkout?"))
	assert.True(t, strings.HasSuffix(session.RedirectURL, "#mp_simulation_success"))
	assert.Contains(t, session.RedirectURL, "amount=96000.00")
	assert.True(t, strings.HasPrefix(session.ExternalID, "sim_"))

	_, err = gw.CreateCheckout(context.Background(), CheckoutRequest{Reference: "123", Amount: decimal.Zero})
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestSimulatedConfirmationSignature(t *testing.T) {
	secret := []byte("s3cret")
	gw, err := NewSimulatedFactory().NewGateway(Config{CheckoutBaseURL: "https://pay.example.com", WebhookSecret: string(secret)})
	require.NoError(t, err)

	payload := []byte(`{"reference":"123","external_id":"sim_1","status":"APPROVED"}`)
	headers := http.Header{}
	headers.Set(SignatureHeader, Sign(secret, payload))

	got, err := gw.ParseConfirmation(context.Background(), payload, headers)
	require.NoError(t, err)
	assert.Equal(t, "123", got.Reference)
	assert.True(t, got.Approved)

	headers.Set(SignatureHeader, Sign([]byte("other"), payload))
	_, err = gw.ParseConfirmation(context.Background(), payload, headers)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = gw.ParseConfirmation(context.Background(), payload, http.Header{})
	assert.ErrorIs(t, err, ErrInvalidSignature)

	bad := []byte(`{"status":"approved"}`)
	headers.Set(SignatureHeader, Sign(secret, bad))
	_, err = gw.ParseConfirmation(context.Background(), bad, headers)
	assert.ErrorIs(t, err, ErrInvalidPayload)
}
