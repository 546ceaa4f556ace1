package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

const (
	SimulatedProvider = "simulated"
	SignatureHeader   = "X-Gateway-Signature"
	simulationAnchor  = "mp_simulation_success"
)

type SimulatedFactory struct{}

func NewSimulatedFactory() *SimulatedFactory {
	return &SimulatedFactory{}
}

func (f *SimulatedFactory) Provider() string {
	return SimulatedProvider
}

func (f *SimulatedFactory) NewGateway(cfg Config) (Gateway, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.CheckoutBaseURL), "/")
	if base == "" {
		return nil, ErrInvalidConfig
	}
	if _, err := url.Parse(base); err != nil {
		return nil, ErrInvalidConfig
	}
	return &Simulated{baseURL: base, secret: []byte(cfg.WebhookSecret)}, nil
}

// Simulated stands in for a hosted checkout. Sessions redirect straight to the
// success anchor and callbacks are signed with a shared HMAC secret.
type Simulated struct {
	baseURL string
	secret  []byte
}

func (g *Simulated) Provider() string { return SimulatedProvider }

func (g *Simulated) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Session, error) {
	if strings.TrimSpace(req.Reference) == "" || !req.Amount.IsPositive() {
		return nil, ErrInvalidPayload
	}
	externalID := "sim_" + uuid.NewString()
	q := url.Values{}
	q.Set("ref", req.Reference)
	q.Set("session", externalID)
	q.Set("amount", req.Amount.StringFixed(2))
	return &Session{
		ExternalID:  externalID,
		RedirectURL: g.baseURL + "?" + q.Encode() + "#" + simulationAnchor,
	}, nil
}

type confirmationPayload struct {
	Reference  string `json:"reference"`
	ExternalID string `json:"external_id"`
	Status     string `json:"status"`
}

func (g *Simulated) ParseConfirmation(ctx context.Context, payload []byte, headers http.Header) (*Confirmation, error) {
	if len(g.secret) > 0 {
		got := strings.TrimSpace(headers.Get(SignatureHeader))
		if got == "" || !hmac.Equal([]byte(got), []byte(Sign(g.secret, payload))) {
			return nil, ErrInvalidSignature
		}
	}

	var body confirmationPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, ErrInvalidPayload
	}
	if strings.TrimSpace(body.Reference) == "" {
		return nil, ErrInvalidPayload
	}
	return &Confirmation{
		Reference:  strings.TrimSpace(body.Reference),
		ExternalID: strings.TrimSpace(body.ExternalID),
		Approved:   strings.EqualFold(body.Status, "approved"),
	}, nil
}

// Sign returns the hex HMAC-SHA256 of payload.
func Sign(secret, payload []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
