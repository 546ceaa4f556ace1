package domain

import (
	"context"
	"errors"
	"time"

	refunddomain "github.com/smallbiznis/tourdesk/internal/refund/domain"
)

type Service interface {
	refunddomain.PolicySource
	Get(ctx context.Context) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
}

// UpdateRequest carries a partial update. Nil fields keep their stored value.
type UpdateRequest struct {
	Owner             *string           `json:"owner"`
	TaxID             *string           `json:"tax_id"`
	Bank              *string           `json:"bank"`
	CBU               *string           `json:"cbu"`
	Alias             *string           `json:"alias"`
	CancellationHours *int              `json:"cancellation_hours"`
	SubscriptionLinks map[string]string `json:"subscription_links"`
}

type BankDetails struct {
	Owner string `json:"owner"`
	TaxID string `json:"tax_id"`
	Bank  string `json:"bank"`
	CBU   string `json:"cbu"`
	Alias string `json:"alias"`
}

type Response struct {
	BankDetails       BankDetails       `json:"bank_details"`
	CancellationHours int               `json:"cancellation_hours"`
	SubscriptionLinks map[string]string `json:"subscription_links"`
	Version           int64             `json:"version"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

var (
	ErrInvalidCancellationHours = errors.New("invalid_cancellation_hours")
	ErrInvalidCBU               = errors.New("invalid_cbu")
	ErrConcurrentUpdate         = errors.New("concurrent_update")
)
