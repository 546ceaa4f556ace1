package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tourdesk/internal/clock"
	"github.com/smallbiznis/tourdesk/internal/localdate"
	refunddomain "github.com/smallbiznis/tourdesk/internal/refund/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Clock    clock.Clock
	Policies refunddomain.PolicySource
}

type Service struct {
	log      *zap.Logger
	clock    clock.Clock
	policies refunddomain.PolicySource
}

func New(p Params) refunddomain.Service {
	return &Service{
		log:      p.Log.Named("refund.service"),
		clock:    p.Clock,
		policies: p.Policies,
	}
}

func (s *Service) Quote(ctx context.Context, req refunddomain.QuoteRequest) (*refunddomain.Decision, error) {
	scheduled, err := localdate.Parse(req.ScheduledDate)
	if err != nil {
		return nil, err
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.AmountPaid))
	if err != nil {
		return nil, refunddomain.ErrInvalidAmount
	}
	return s.Decide(ctx, scheduled, amount)
}

// Decide evaluates the cancellation policy in force right now.
func (s *Service) Decide(ctx context.Context, scheduled localdate.Date, amountPaid decimal.Decimal) (*refunddomain.Decision, error) {
	policy, err := s.policies.RefundPolicy(ctx)
	if err != nil {
		return nil, err
	}

	decision, err := ComputeRefund(scheduled, amountPaid, policy, s.clock.Now())
	if err != nil {
		return nil, err
	}

	s.log.Debug("refund decided",
		zap.String("scheduled_date", scheduled.String()),
		zap.Int("percentage", decision.Percentage),
		zap.Int("threshold_hours", decision.ThresholdHours),
	)
	return &decision, nil
}
