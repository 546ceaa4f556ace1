package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/tourdesk/internal/catalog/domain"
	"github.com/smallbiznis/tourdesk/internal/clock"
	"github.com/smallbiznis/tourdesk/internal/localdate"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Location *time.Location
	Repo     catalogdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	loc   *time.Location
	repo  catalogdomain.Repository
}

func New(p Params) catalogdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("catalog.service"),
		genID: p.GenID,
		clock: p.Clock,
		loc:   p.Location,
		repo:  p.Repo,
	}
}

const maxSlugAttempts = 50

func (s *Service) ListTours(ctx context.Context) ([]catalogdomain.TourResponse, error) {
	items, err := s.repo.ListTours(ctx, s.db)
	if err != nil {
		return nil, err
	}
	resp := make([]catalogdomain.TourResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, toTourResponse(item))
	}
	return resp, nil
}

// GetTour accepts either the numeric id or the slug.
func (s *Service) GetTour(ctx context.Context, ref string) (*catalogdomain.TourResponse, error) {
	tour, err := s.lookupTour(ctx, ref)
	if err != nil {
		return nil, err
	}
	resp := toTourResponse(*tour)
	return &resp, nil
}

func (s *Service) CreateTour(ctx context.Context, req catalogdomain.TourRequest) (*catalogdomain.TourResponse, error) {
	now := s.clock.Now().UTC()
	tour := &catalogdomain.Tour{
		ID:        s.genID.Generate(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := applyTourRequest(tour, req); err != nil {
		return nil, err
	}

	base := slug.Make(tour.Destination + " " + tour.StartDate.String())
	tourSlug, err := s.uniqueSlug(ctx, base, func(candidate string) (bool, error) {
		found, err := s.repo.FindTourBySlug(ctx, s.db, candidate)
		return found != nil, err
	})
	if err != nil {
		return nil, err
	}
	tour.Slug = tourSlug

	if err := s.repo.InsertTour(ctx, s.db, tour); err != nil {
		return nil, err
	}
	s.log.Info("tour created",
		zap.String("tour_id", tour.ID.String()),
		zap.String("slug", tour.Slug),
	)
	resp := toTourResponse(*tour)
	return &resp, nil
}

func (s *Service) UpdateTour(ctx context.Context, id string, req catalogdomain.TourRequest) (*catalogdomain.TourResponse, error) {
	tourID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	tour, err := s.repo.FindTour(ctx, s.db, tourID)
	if err != nil {
		return nil, err
	}
	if tour == nil {
		return nil, catalogdomain.ErrNotFound
	}

	if err := applyTourRequest(tour, req); err != nil {
		return nil, err
	}
	tour.UpdatedAt = s.clock.Now().UTC()
	if err := s.repo.UpdateTour(ctx, s.db, tour); err != nil {
		return nil, err
	}
	resp := toTourResponse(*tour)
	return &resp, nil
}

func (s *Service) DeleteTour(ctx context.Context, id string) error {
	tourID, err := parseID(id)
	if err != nil {
		return err
	}
	deleted, err := s.repo.DeleteTour(ctx, s.db, tourID)
	if err != nil {
		return err
	}
	if !deleted {
		return catalogdomain.ErrNotFound
	}
	s.log.Info("tour deleted", zap.String("tour_id", tourID.String()))
	return nil
}

func (s *Service) ListSpaces(ctx context.Context) ([]catalogdomain.SpaceResponse, error) {
	items, err := s.repo.ListSpaces(ctx, s.db)
	if err != nil {
		return nil, err
	}
	resp := make([]catalogdomain.SpaceResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, catalogdomain.SpaceResponse{Space: item})
	}
	return resp, nil
}

func (s *Service) GetSpace(ctx context.Context, ref string) (*catalogdomain.SpaceResponse, error) {
	space, err := s.lookupSpace(ctx, ref)
	if err != nil {
		return nil, err
	}
	return &catalogdomain.SpaceResponse{Space: *space}, nil
}

func (s *Service) CreateSpace(ctx context.Context, req catalogdomain.SpaceRequest) (*catalogdomain.SpaceResponse, error) {
	now := s.clock.Now().UTC()
	space := &catalogdomain.Space{
		ID:        s.genID.Generate(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := applySpaceRequest(space, req); err != nil {
		return nil, err
	}

	spaceSlug, err := s.uniqueSlug(ctx, slug.Make(space.Name), func(candidate string) (bool, error) {
		found, err := s.repo.FindSpaceBySlug(ctx, s.db, candidate)
		return found != nil, err
	})
	if err != nil {
		return nil, err
	}
	space.Slug = spaceSlug

	if err := s.repo.InsertSpace(ctx, s.db, space); err != nil {
		return nil, err
	}
	s.log.Info("space created",
		zap.String("space_id", space.ID.String()),
		zap.String("slug", space.Slug),
	)
	return &catalogdomain.SpaceResponse{Space: *space}, nil
}

func (s *Service) UpdateSpace(ctx context.Context, id string, req catalogdomain.SpaceRequest) (*catalogdomain.SpaceResponse, error) {
	spaceID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	space, err := s.repo.FindSpace(ctx, s.db, spaceID)
	if err != nil {
		return nil, err
	}
	if space == nil {
		return nil, catalogdomain.ErrNotFound
	}

	if err := applySpaceRequest(space, req); err != nil {
		return nil, err
	}
	space.UpdatedAt = s.clock.Now().UTC()
	if err := s.repo.UpdateSpace(ctx, s.db, space); err != nil {
		return nil, err
	}
	return &catalogdomain.SpaceResponse{Space: *space}, nil
}

func (s *Service) DeleteSpace(ctx context.Context, id string) error {
	spaceID, err := parseID(id)
	if err != nil {
		return err
	}
	deleted, err := s.repo.DeleteSpace(ctx, s.db, spaceID)
	if err != nil {
		return err
	}
	if !deleted {
		return catalogdomain.ErrNotFound
	}
	s.log.Info("space deleted", zap.String("space_id", spaceID.String()))
	return nil
}

// Availability lists the reserved dates from today onwards.
func (s *Service) Availability(ctx context.Context, spaceID string) (*catalogdomain.AvailabilityResponse, error) {
	space, err := s.lookupSpace(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	today := localdate.FromTime(s.clock.Now(), s.loc)
	dates, err := s.repo.ReservedDates(ctx, s.db, space.ID, today)
	if err != nil {
		return nil, err
	}
	return &catalogdomain.AvailabilityResponse{
		SpaceID:  space.ID.String(),
		Occupied: dates,
	}, nil
}

func (s *Service) lookupTour(ctx context.Context, ref string) (*catalogdomain.Tour, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, catalogdomain.ErrInvalidID
	}

	var (
		tour *catalogdomain.Tour
		err  error
	)
	if id, parseErr := parseID(ref); parseErr == nil {
		tour, err = s.repo.FindTour(ctx, s.db, id)
	} else {
		tour, err = s.repo.FindTourBySlug(ctx, s.db, ref)
	}
	if err != nil {
		return nil, err
	}
	if tour == nil {
		return nil, catalogdomain.ErrNotFound
	}
	return tour, nil
}

func (s *Service) lookupSpace(ctx context.Context, ref string) (*catalogdomain.Space, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, catalogdomain.ErrInvalidID
	}

	var (
		space *catalogdomain.Space
		err   error
	)
	if id, parseErr := parseID(ref); parseErr == nil {
		space, err = s.repo.FindSpace(ctx, s.db, id)
	} else {
		space, err = s.repo.FindSpaceBySlug(ctx, s.db, ref)
	}
	if err != nil {
		return nil, err
	}
	if space == nil {
		return nil, catalogdomain.ErrNotFound
	}
	return space, nil
}

func (s *Service) uniqueSlug(ctx context.Context, base string, exists func(string) (bool, error)) (string, error) {
	if base == "" {
		base = "item"
	}
	candidate := base
	for i := 2; i <= maxSlugAttempts; i++ {
		taken, err := exists(candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", fmt.Errorf("no free slug for %q", base)
}

func applyTourRequest(tour *catalogdomain.Tour, req catalogdomain.TourRequest) error {
	destination := strings.TrimSpace(req.Destination)
	if destination == "" {
		return catalogdomain.ErrInvalidDestination
	}
	for _, amount := range []decimal.Decimal{req.Price, req.LogisticsCost, req.ServiceFee} {
		if amount.IsNegative() {
			return catalogdomain.ErrInvalidPrice
		}
	}
	if req.Price.IsZero() && req.LogisticsCost.IsZero() && req.ServiceFee.IsZero() {
		return catalogdomain.ErrInvalidPrice
	}
	if req.Km < 0 {
		return catalogdomain.ErrInvalidDistance
	}
	if req.Capacity < 0 || req.MinCapacity < 0 || (req.Capacity > 0 && req.MinCapacity > req.Capacity) {
		return catalogdomain.ErrInvalidCapacity
	}
	if req.StartDate.IsZero() {
		return catalogdomain.ErrInvalidDateRange
	}
	if !req.EndDate.IsZero() && req.EndDate.Before(req.StartDate) {
		return catalogdomain.ErrInvalidDateRange
	}
	if !req.Deadline.IsZero() && req.Deadline.After(req.StartDate) {
		return catalogdomain.ErrInvalidDateRange
	}
	status := catalogdomain.TourStatus(strings.ToUpper(strings.TrimSpace(string(req.Status))))
	if status == "" {
		status = catalogdomain.TourStatusOpen
	}
	if !status.Valid() {
		return catalogdomain.ErrInvalidStatus
	}

	tour.Destination = destination
	tour.Description = strings.TrimSpace(req.Description)
	tour.Price = req.Price
	tour.LogisticsCost = req.LogisticsCost
	tour.ServiceFee = req.ServiceFee
	tour.Km = req.Km
	tour.StartDate = req.StartDate
	tour.EndDate = req.EndDate
	tour.Deadline = req.Deadline
	tour.OpenAtMembers = req.OpenAtMembers
	tour.OpenAtPublic = req.OpenAtPublic
	tour.Capacity = req.Capacity
	tour.MinCapacity = req.MinCapacity
	tour.Status = status
	tour.Images = datatypes.JSONSlice[string](cleanList(req.Images))
	tour.Itinerary = datatypes.JSONSlice[string](cleanList(req.Itinerary))
	return nil
}

func applySpaceRequest(space *catalogdomain.Space, req catalogdomain.SpaceRequest) error {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return catalogdomain.ErrInvalidName
	}
	spaceType := catalogdomain.SpaceType(strings.ToUpper(strings.TrimSpace(string(req.Type))))
	if spaceType != catalogdomain.SpaceTypeDepto && spaceType != catalogdomain.SpaceTypeQuincho {
		return catalogdomain.ErrInvalidSpaceType
	}
	if !req.Price.IsPositive() || req.DamageDeposit.IsNegative() || req.CleaningFee.IsNegative() {
		return catalogdomain.ErrInvalidPrice
	}
	if req.Capacity < 0 {
		return catalogdomain.ErrInvalidCapacity
	}

	space.Name = name
	space.Type = spaceType
	space.Price = req.Price
	space.Capacity = req.Capacity
	space.Description = strings.TrimSpace(req.Description)
	space.DamageDeposit = req.DamageDeposit
	space.CleaningFee = req.CleaningFee
	space.Rules = datatypes.JSONSlice[string](cleanList(req.Rules))
	space.Images = datatypes.JSONSlice[string](cleanList(req.Images))
	return nil
}

func toTourResponse(tour catalogdomain.Tour) catalogdomain.TourResponse {
	priced := tour.Priced()
	return catalogdomain.TourResponse{
		Tour:                   tour,
		EffectiveLogisticsCost: priced.LogisticsCost,
		EffectiveServiceFee:    priced.ServiceFee,
	}
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil {
		return 0, catalogdomain.ErrInvalidID
	}
	if id <= 0 {
		return 0, fmt.Errorf("%w: %w", catalogdomain.ErrInvalidID, strconv.ErrRange)
	}
	return id, nil
}
