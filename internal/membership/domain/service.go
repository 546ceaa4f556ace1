package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tourdesk/internal/localdate"
)

// TierSource hands out the current tier table snapshot.
type TierSource interface {
	Current() TierTable
}

type Service interface {
	ListPlans(ctx context.Context) (*PlansResponse, error)
	Register(ctx context.Context, req RegisterRequest) (*AccountResponse, error)
	Get(ctx context.Context, id string) (*AccountResponse, error)
	// Snapshot resolves the pricing view of a member. An empty id is Anonymous.
	Snapshot(ctx context.Context, id string) (Member, error)
	Activate(ctx context.Context, req ActivateRequest) (*AccountResponse, error)
	CancelSubscription(ctx context.Context, id string) (*AccountResponse, error)
	ResetMonthlyUsage(ctx context.Context) (int64, error)
}

type RegisterRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type ActivateRequest struct {
	AccountID string `json:"account_id"`
	Tier      string `json:"tier"`
}

type PlanResponse struct {
	Tier                  Tier            `json:"tier"`
	MonthlyPrice          decimal.Decimal `json:"monthly_price"`
	DiscountFraction      decimal.Decimal `json:"discount_fraction"`
	KmLimit               int64           `json:"km_limit"`
	Priority              int             `json:"priority"`
	Benefits              []string        `json:"benefits"`
	SpaceDiscountFraction decimal.Decimal `json:"space_discount_fraction"`
	SpaceMonthlyUseLimit  int             `json:"space_monthly_use_limit"`
	DecorationLabel       string          `json:"decoration_label,omitempty"`
}

type PlansResponse struct {
	Version int64          `json:"version"`
	Plans   []PlanResponse `json:"plans"`
}

type AccountResponse struct {
	ID                     string         `json:"id"`
	Email                  string         `json:"email"`
	Name                   string         `json:"name"`
	Role                   Role           `json:"role"`
	Tier                   Tier           `json:"tier"`
	ValidUntil             localdate.Date `json:"valid_until"`
	UsedThisMonthKm        int64          `json:"used_this_month_km"`
	RemainingKm            int64          `json:"remaining_km"`
	SpaceBookingsThisMonth int            `json:"space_bookings_this_month"`
	TripsCount             int            `json:"trips_count"`
	CreatedAt              time.Time      `json:"created_at"`
	UpdatedAt              time.Time      `json:"updated_at"`
}

var (
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidEmail     = errors.New("invalid_email")
	ErrInvalidName      = errors.New("invalid_name")
	ErrEmailTaken       = errors.New("email_taken")
	ErrNotFound         = errors.New("not_found")
	ErrConcurrentUpdate = errors.New("concurrent_update")
	ErrNoActivePlan     = errors.New("no_active_plan")
)
