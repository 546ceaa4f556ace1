package domain

import (
	"context"
	"errors"
)

// Service quotes catalog items for a member without committing anything.
type Service interface {
	QuoteTour(ctx context.Context, req QuoteTourRequest) (*TourQuote, error)
	QuoteSpace(ctx context.Context, req QuoteSpaceRequest) (*SpaceQuote, error)
}

type QuoteTourRequest struct {
	TourID   string `json:"tour_id"`
	MemberID string `json:"member_id"`
}

type QuoteSpaceRequest struct {
	SpaceID  string `json:"space_id"`
	MemberID string `json:"member_id"`
}

type TourQuote struct {
	TourID    string        `json:"tour_id"`
	Title     string        `json:"title"`
	Breakdown TourBreakdown `json:"breakdown"`
}

type SpaceQuote struct {
	SpaceID   string         `json:"space_id"`
	Name      string         `json:"name"`
	Breakdown SpaceBreakdown `json:"breakdown"`
}

var (
	ErrInvalidAmount   = errors.New("invalid_amount")
	ErrInvalidDistance = errors.New("invalid_distance")
	ErrInvalidUsage    = errors.New("invalid_usage")
	ErrInvalidTour     = errors.New("invalid_tour")
	ErrInvalidSpace    = errors.New("invalid_space")
	ErrNotFound        = errors.New("not_found")
)
