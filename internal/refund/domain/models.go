package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tourdesk/internal/localdate"
)

const (
	FullPercentage    = 100
	PartialPercentage = 50
)

// Policy is the cancellation rule in force when a refund is computed.
type Policy struct {
	ThresholdHours int
	Location       *time.Location
}

type Decision struct {
	Amount              decimal.Decimal `json:"amount"`
	Percentage          int             `json:"percentage"`
	Reason              string          `json:"reason"`
	HoursUntilScheduled float64         `json:"hours_until_scheduled"`
	ThresholdHours      int             `json:"threshold_hours"`
}

// PolicySource resolves the current cancellation policy.
type PolicySource interface {
	RefundPolicy(ctx context.Context) (Policy, error)
}

type Service interface {
	Quote(ctx context.Context, req QuoteRequest) (*Decision, error)
	Decide(ctx context.Context, scheduled localdate.Date, amountPaid decimal.Decimal) (*Decision, error)
}

type QuoteRequest struct {
	ScheduledDate string `json:"scheduled_date"`
	AmountPaid    string `json:"amount_paid"`
}

var (
	ErrInvalidAmount    = errors.New("invalid_amount")
	ErrInvalidThreshold = errors.New("invalid_threshold")
)
