package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tourdesk/internal/clock"
	"github.com/smallbiznis/tourdesk/internal/config"
	"github.com/smallbiznis/tourdesk/internal/localdate"
	"github.com/smallbiznis/tourdesk/internal/lock"
	membershipdomain "github.com/smallbiznis/tourdesk/internal/membership/domain"
	notificationdomain "github.com/smallbiznis/tourdesk/internal/notification/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Location *time.Location
	Config   config.Config
	Tiers    membershipdomain.TierSource
	Repo     membershipdomain.Repository
	Locker   lock.Locker
	LockOpts lock.Options
	Notifier notificationdomain.Publisher
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	loc      *time.Location
	cfg      config.Config
	tiers    membershipdomain.TierSource
	repo     membershipdomain.Repository
	locker   lock.Locker
	lockOpts lock.Options
	notifier notificationdomain.Publisher
}

func New(p Params) membershipdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("membership.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		loc:      p.Location,
		cfg:      p.Config,
		tiers:    p.Tiers,
		repo:     p.Repo,
		locker:   p.Locker,
		lockOpts: p.LockOpts,
		notifier: p.Notifier,
	}
}

func (s *Service) ListPlans(ctx context.Context) (*membershipdomain.PlansResponse, error) {
	table := s.tiers.Current()
	resp := &membershipdomain.PlansResponse{
		Version: table.Version(),
		Plans:   make([]membershipdomain.PlanResponse, 0, table.Len()),
	}
	for _, cfg := range table.Tiers() {
		resp.Plans = append(resp.Plans, membershipdomain.PlanResponse{
			Tier:                  cfg.Tier,
			MonthlyPrice:          cfg.MonthlyPrice,
			DiscountFraction:      cfg.DiscountFraction,
			KmLimit:               cfg.KmLimit,
			Priority:              cfg.Priority,
			Benefits:              cfg.Benefits,
			SpaceDiscountFraction: cfg.Space.DiscountFraction,
			SpaceMonthlyUseLimit:  cfg.Space.MonthlyUseLimit,
			DecorationLabel:       cfg.Space.DecorationLabel,
		})
	}
	return resp, nil
}

func (s *Service) Register(ctx context.Context, req membershipdomain.RegisterRequest) (*membershipdomain.AccountResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, membershipdomain.ErrInvalidEmail
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, membershipdomain.ErrInvalidName
	}

	existing, err := s.repo.FindByEmail(ctx, s.db, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, membershipdomain.ErrEmailTaken
	}

	role := membershipdomain.RoleUser
	if s.cfg.IsAdminEmail(email) {
		role = membershipdomain.RoleAdmin
	}

	now := s.clock.Now().UTC()
	account := &membershipdomain.Account{
		ID:          s.genID.Generate(),
		Email:       email,
		Name:        name,
		Role:        role,
		Tier:        membershipdomain.TierNone,
		UsagePeriod: s.period(),
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, s.db, account); err != nil {
		return nil, err
	}

	s.log.Info("member registered", zap.String("member_id", account.ID.String()), zap.String("role", string(role)))
	return s.toResponse(account), nil
}

func (s *Service) Get(ctx context.Context, id string) (*membershipdomain.AccountResponse, error) {
	account, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	account.RollPeriod(s.period())
	return s.toResponse(account), nil
}

func (s *Service) Snapshot(ctx context.Context, id string) (membershipdomain.Member, error) {
	if strings.TrimSpace(id) == "" {
		return membershipdomain.Anonymous{}, nil
	}
	memberID, err := parseID(id)
	if err != nil {
		return nil, membershipdomain.ErrInvalidID
	}
	account, err := s.repo.FindByID(ctx, s.db, memberID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return membershipdomain.Anonymous{}, nil
	}
	return account.Snapshot(s.period()), nil
}

// Activate puts the member on tier and starts a fresh monthly allowance.
func (s *Service) Activate(ctx context.Context, req membershipdomain.ActivateRequest) (*membershipdomain.AccountResponse, error) {
	tier := membershipdomain.ParseTier(req.Tier)
	plan, ok := s.tiers.Current().Lookup(tier)
	if !ok {
		return nil, fmt.Errorf("%w: %s", membershipdomain.ErrUnknownTier, tier)
	}

	var account *membershipdomain.Account
	err := lock.WithLock(ctx, s.locker, s.lockOpts, []string{lock.MemberKey(req.AccountID)}, func(ctx context.Context) error {
		var err error
		account, err = s.load(ctx, req.AccountID)
		if err != nil {
			return err
		}

		today := localdate.FromTime(s.clock.Now(), s.loc)
		expected := account.Version
		account.Tier = plan.Tier
		account.ValidUntil = today.AddMonths(1)
		account.UsagePeriod = today.Period()
		account.UsedThisMonthKm = 0
		account.SpaceBookingsThisMonth = 0
		return s.save(ctx, account, expected)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("membership activated",
		zap.String("member_id", account.ID.String()),
		zap.String("tier", string(account.Tier)),
		zap.String("valid_until", account.ValidUntil.String()),
	)
	s.publish(ctx, account, "Membership activated",
		fmt.Sprintf("Your %s plan is active until %s.", account.Tier, account.ValidUntil),
		[]string{
			fmt.Sprintf("Monthly price: %s", plan.MonthlyPrice.StringFixed(2)),
			fmt.Sprintf("Discounted km per month: %d", plan.KmLimit),
		},
	)
	return s.toResponse(account), nil
}

func (s *Service) CancelSubscription(ctx context.Context, id string) (*membershipdomain.AccountResponse, error) {
	var account *membershipdomain.Account
	err := lock.WithLock(ctx, s.locker, s.lockOpts, []string{lock.MemberKey(id)}, func(ctx context.Context) error {
		var err error
		account, err = s.load(ctx, id)
		if err != nil {
			return err
		}
		if account.Tier == membershipdomain.TierNone {
			return membershipdomain.ErrNoActivePlan
		}

		expected := account.Version
		account.Tier = membershipdomain.TierNone
		account.ValidUntil = localdate.Date{}
		return s.save(ctx, account, expected)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("membership cancelled", zap.String("member_id", account.ID.String()))
	s.publish(ctx, account, "Membership cancelled", "Your membership has been cancelled.", nil)
	return s.toResponse(account), nil
}

// ResetMonthlyUsage zeroes usage counters for every account still on an older period.
func (s *Service) ResetMonthlyUsage(ctx context.Context) (int64, error) {
	period := s.period()
	affected, err := s.repo.ResetUsage(ctx, s.db, period, s.clock.Now().UTC())
	if err != nil {
		return 0, err
	}
	if affected > 0 {
		s.log.Info("monthly usage reset", zap.String("period", period), zap.Int64("accounts", affected))
	}
	return affected, nil
}

func (s *Service) load(ctx context.Context, id string) (*membershipdomain.Account, error) {
	memberID, err := parseID(id)
	if err != nil {
		return nil, membershipdomain.ErrInvalidID
	}
	account, err := s.repo.FindByID(ctx, s.db, memberID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, membershipdomain.ErrNotFound
	}
	return account, nil
}

func (s *Service) save(ctx context.Context, account *membershipdomain.Account, expected int64) error {
	account.Version = expected + 1
	account.UpdatedAt = s.clock.Now().UTC()
	ok, err := s.repo.Update(ctx, s.db, account, expected)
	if err != nil {
		return err
	}
	if !ok {
		return membershipdomain.ErrConcurrentUpdate
	}
	return nil
}

func (s *Service) publish(ctx context.Context, account *membershipdomain.Account, title, body string, lines []string) {
	err := s.notifier.Publish(ctx, notificationdomain.Message{
		MemberID: account.ID,
		Email:    account.Email,
		Name:     account.Name,
		Kind:     notificationdomain.KindMembership,
		Title:    title,
		Body:     body,
		Lines:    lines,
		Payload:  map[string]any{"tier": string(account.Tier)},
	})
	if err != nil {
		s.log.Warn("failed to publish membership notification", zap.String("member_id", account.ID.String()), zap.Error(err))
	}
}

func (s *Service) period() string {
	return localdate.FromTime(s.clock.Now(), s.loc).Period()
}

func (s *Service) toResponse(a *membershipdomain.Account) *membershipdomain.AccountResponse {
	resp := &membershipdomain.AccountResponse{
		ID:                     a.ID.String(),
		Email:                  a.Email,
		Name:                   a.Name,
		Role:                   a.Role,
		Tier:                   a.Tier,
		ValidUntil:             a.ValidUntil,
		UsedThisMonthKm:        a.UsedThisMonthKm,
		SpaceBookingsThisMonth: a.SpaceBookingsThisMonth,
		TripsCount:             a.TripsCount,
		CreatedAt:              a.CreatedAt,
		UpdatedAt:              a.UpdatedAt,
	}
	if plan, ok := s.tiers.Current().Lookup(a.Tier); ok {
		resp.RemainingKm = plan.KmLimit - a.UsedThisMonthKm
	}
	return resp
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, strconv.ErrRange
	}
	return id, nil
}
