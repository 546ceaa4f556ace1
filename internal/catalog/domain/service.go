package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tourdesk/internal/localdate"
)

type Service interface {
	ListTours(ctx context.Context) ([]TourResponse, error)
	GetTour(ctx context.Context, ref string) (*TourResponse, error)
	CreateTour(ctx context.Context, req TourRequest) (*TourResponse, error)
	UpdateTour(ctx context.Context, id string, req TourRequest) (*TourResponse, error)
	DeleteTour(ctx context.Context, id string) error

	ListSpaces(ctx context.Context) ([]SpaceResponse, error)
	GetSpace(ctx context.Context, ref string) (*SpaceResponse, error)
	CreateSpace(ctx context.Context, req SpaceRequest) (*SpaceResponse, error)
	UpdateSpace(ctx context.Context, id string, req SpaceRequest) (*SpaceResponse, error)
	DeleteSpace(ctx context.Context, id string) error
	Availability(ctx context.Context, spaceID string) (*AvailabilityResponse, error)
}

type TourRequest struct {
	Destination   string          `json:"destination"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	LogisticsCost decimal.Decimal `json:"logistics_cost"`
	ServiceFee    decimal.Decimal `json:"service_fee"`
	Km            int64           `json:"km"`
	StartDate     localdate.Date  `json:"start_date"`
	EndDate       localdate.Date  `json:"end_date"`
	Deadline      localdate.Date  `json:"deadline"`
	OpenAtMembers localdate.Date  `json:"open_at_members"`
	OpenAtPublic  localdate.Date  `json:"open_at_public"`
	Capacity      int             `json:"capacity"`
	MinCapacity   int             `json:"min_capacity"`
	Status        TourStatus      `json:"status"`
	Images        []string        `json:"images"`
	Itinerary     []string        `json:"itinerary"`
}

type SpaceRequest struct {
	Name          string          `json:"name"`
	Type          SpaceType       `json:"type"`
	Price         decimal.Decimal `json:"price"`
	Capacity      int             `json:"capacity"`
	Description   string          `json:"description"`
	DamageDeposit decimal.Decimal `json:"damage_deposit"`
	CleaningFee   decimal.Decimal `json:"cleaning_fee"`
	Rules         []string        `json:"rules"`
	Images        []string        `json:"images"`
}

type TourResponse struct {
	Tour
	// Effective split after the legacy fallback.
	EffectiveLogisticsCost decimal.Decimal `json:"effective_logistics_cost"`
	EffectiveServiceFee    decimal.Decimal `json:"effective_service_fee"`
}

type SpaceResponse struct {
	Space
}

type AvailabilityResponse struct {
	SpaceID  string           `json:"space_id"`
	Occupied []localdate.Date `json:"occupied"`
}

var (
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidDestination = errors.New("invalid_destination")
	ErrInvalidName        = errors.New("invalid_name")
	ErrInvalidPrice       = errors.New("invalid_price")
	ErrInvalidDistance    = errors.New("invalid_distance")
	ErrInvalidCapacity    = errors.New("invalid_capacity")
	ErrInvalidStatus      = errors.New("invalid_status")
	ErrInvalidSpaceType   = errors.New("invalid_space_type")
	ErrInvalidDateRange   = errors.New("invalid_date_range")
	ErrNotFound           = errors.New("not_found")
)
