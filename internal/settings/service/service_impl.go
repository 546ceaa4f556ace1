package service

import (
	"context"
	"strings"
	"time"

	"github.com/smallbiznis/tourdesk/internal/clock"
	"github.com/smallbiznis/tourdesk/internal/config"
	refunddomain "github.com/smallbiznis/tourdesk/internal/refund/domain"
	settingsdomain "github.com/smallbiznis/tourdesk/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	maxCancellationHours = 24 * 30
	cbuLength            = 22
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Location *time.Location
	Config   config.Config
	Repo     settingsdomain.Repository
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	loc      *time.Location
	defaults int
	repo     settingsdomain.Repository
}

func New(p Params) settingsdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("settings.service"),
		clock:    p.Clock,
		loc:      p.Location,
		defaults: p.Config.Booking.DefaultCancellationHours,
		repo:     p.Repo,
	}
}

func (s *Service) Get(ctx context.Context) (*settingsdomain.Response, error) {
	row, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	return toResponse(row), nil
}

// RefundPolicy returns the cancellation rule in force right now.
func (s *Service) RefundPolicy(ctx context.Context) (refunddomain.Policy, error) {
	row, err := s.current(ctx)
	if err != nil {
		return refunddomain.Policy{}, err
	}
	return refunddomain.Policy{ThresholdHours: row.CancellationHours, Location: s.loc}, nil
}

func (s *Service) Update(ctx context.Context, req settingsdomain.UpdateRequest) (*settingsdomain.Response, error) {
	if req.CancellationHours != nil && (*req.CancellationHours < 0 || *req.CancellationHours > maxCancellationHours) {
		return nil, settingsdomain.ErrInvalidCancellationHours
	}
	if req.CBU != nil {
		if cbu := strings.TrimSpace(*req.CBU); cbu != "" && !validCBU(cbu) {
			return nil, settingsdomain.ErrInvalidCBU
		}
	}

	var out *settingsdomain.Settings
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.Find(ctx, tx, settingsdomain.SettingsID)
		if err != nil {
			return err
		}

		row := existing
		if row == nil {
			row = s.defaultRow()
		}
		applyUpdate(row, req)
		row.UpdatedAt = s.clock.Now().UTC()

		if existing == nil {
			row.Version = 1
			if err := s.repo.Insert(ctx, tx, row); err != nil {
				return err
			}
			out = row
			return nil
		}

		expected := row.Version
		row.Version = expected + 1
		ok, err := s.repo.Update(ctx, tx, row, expected)
		if err != nil {
			return err
		}
		if !ok {
			return settingsdomain.ErrConcurrentUpdate
		}
		out = row
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("settings updated",
		zap.Int64("version", out.Version),
		zap.Int("cancellation_hours", out.CancellationHours),
	)
	return toResponse(out), nil
}

func (s *Service) current(ctx context.Context) (*settingsdomain.Settings, error) {
	row, err := s.repo.Find(ctx, s.db, settingsdomain.SettingsID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return s.defaultRow(), nil
	}
	return row, nil
}

func (s *Service) defaultRow() *settingsdomain.Settings {
	return &settingsdomain.Settings{
		ID:                settingsdomain.SettingsID,
		CancellationHours: s.defaults,
		SubscriptionLinks: datatypes.JSONMap{},
	}
}

func applyUpdate(row *settingsdomain.Settings, req settingsdomain.UpdateRequest) {
	if req.Owner != nil {
		row.Owner = strings.TrimSpace(*req.Owner)
	}
	if req.TaxID != nil {
		row.TaxID = strings.TrimSpace(*req.TaxID)
	}
	if req.Bank != nil {
		row.Bank = strings.TrimSpace(*req.Bank)
	}
	if req.CBU != nil {
		row.CBU = strings.TrimSpace(*req.CBU)
	}
	if req.Alias != nil {
		row.Alias = strings.ToUpper(strings.TrimSpace(*req.Alias))
	}
	if req.CancellationHours != nil {
		row.CancellationHours = *req.CancellationHours
	}
	if req.SubscriptionLinks != nil {
		links := datatypes.JSONMap{}
		for tier, link := range req.SubscriptionLinks {
			link = strings.TrimSpace(link)
			if link == "" {
				continue
			}
			links[strings.ToUpper(strings.TrimSpace(tier))] = link
		}
		row.SubscriptionLinks = links
	}
}

func validCBU(cbu string) bool {
	if len(cbu) != cbuLength {
		return false
	}
	for _, r := range cbu {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func toResponse(row *settingsdomain.Settings) *settingsdomain.Response {
	links := make(map[string]string, len(row.SubscriptionLinks))
	for tier, value := range row.SubscriptionLinks {
		if link, ok := value.(string); ok {
			links[tier] = link
		}
	}
	return &settingsdomain.Response{
		BankDetails: settingsdomain.BankDetails{
			Owner: row.Owner,
			TaxID: row.TaxID,
			Bank:  row.Bank,
			CBU:   row.CBU,
			Alias: row.Alias,
		},
		CancellationHours: row.CancellationHours,
		SubscriptionLinks: links,
		Version:           row.Version,
		UpdatedAt:         row.UpdatedAt,
	}
}
