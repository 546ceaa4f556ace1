package service

import (
	"context"
	"errors"

	catalogdomain "github.com/smallbiznis/tourdesk/internal/catalog/domain"
	membershipdomain "github.com/smallbiznis/tourdesk/internal/membership/domain"
	obsmetrics "github.com/smallbiznis/tourdesk/internal/observability/metrics"
	pricingdomain "github.com/smallbiznis/tourdesk/internal/pricing/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	Catalog    catalogdomain.Service
	Membership membershipdomain.Service
	Tiers      membershipdomain.TierSource
	Metrics    *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	catalog    catalogdomain.Service
	membership membershipdomain.Service
	tiers      membershipdomain.TierSource
	metrics    *obsmetrics.Metrics
}

func New(p Params) pricingdomain.Service {
	return &Service{
		log:        p.Log.Named("pricing.service"),
		catalog:    p.Catalog,
		membership: p.Membership,
		tiers:      p.Tiers,
		metrics:    p.Metrics,
	}
}

func (s *Service) QuoteTour(ctx context.Context, req pricingdomain.QuoteTourRequest) (*pricingdomain.TourQuote, error) {
	tour, err := s.catalog.GetTour(ctx, req.TourID)
	if err != nil {
		return nil, mapCatalogErr(err, pricingdomain.ErrInvalidTour)
	}
	member, err := s.membership.Snapshot(ctx, req.MemberID)
	if err != nil {
		return nil, err
	}

	breakdown, err := ComputeTourBreakdown(tour.Priced(), member, s.tiers.Current())
	if err != nil {
		return nil, err
	}

	s.metrics.RecordQuote(ctx, "tour", string(breakdown.Tier), breakdown.DiscountApplied)
	s.log.Debug("tour quoted",
		zap.String("tour_id", tour.ID.String()),
		zap.String("tier", string(breakdown.Tier)),
		zap.Bool("discount_applied", breakdown.DiscountApplied),
		zap.Int64("tier_table_version", breakdown.TierTableVersion),
	)
	return &pricingdomain.TourQuote{
		TourID:    tour.ID.String(),
		Title:     tour.Destination,
		Breakdown: breakdown,
	}, nil
}

func (s *Service) QuoteSpace(ctx context.Context, req pricingdomain.QuoteSpaceRequest) (*pricingdomain.SpaceQuote, error) {
	space, err := s.catalog.GetSpace(ctx, req.SpaceID)
	if err != nil {
		return nil, mapCatalogErr(err, pricingdomain.ErrInvalidSpace)
	}
	member, err := s.membership.Snapshot(ctx, req.MemberID)
	if err != nil {
		return nil, err
	}

	breakdown, err := ComputeSpaceBreakdown(space.Priced(), member, s.tiers.Current())
	if err != nil {
		return nil, err
	}

	s.metrics.RecordQuote(ctx, "space", string(breakdown.Tier), breakdown.DiscountApplied)
	s.log.Debug("space quoted",
		zap.String("space_id", space.ID.String()),
		zap.String("tier", string(breakdown.Tier)),
		zap.Bool("discount_applied", breakdown.DiscountApplied),
	)
	return &pricingdomain.SpaceQuote{
		SpaceID:   space.ID.String(),
		Name:      space.Name,
		Breakdown: breakdown,
	}, nil
}

func mapCatalogErr(err error, invalid error) error {
	switch {
	case errors.Is(err, catalogdomain.ErrNotFound):
		return pricingdomain.ErrNotFound
	case errors.Is(err, catalogdomain.ErrInvalidID):
		return invalid
	default:
		return err
	}
}
