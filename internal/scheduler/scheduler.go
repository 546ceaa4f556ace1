package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	bookingdomain "github.com/smallbiznis/tourdesk/internal/booking/domain"
	"github.com/smallbiznis/tourdesk/internal/clock"
	"github.com/smallbiznis/tourdesk/internal/lock"
	membershipdomain "github.com/smallbiznis/tourdesk/internal/membership/domain"
	obsmetrics "github.com/smallbiznis/tourdesk/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	JobResetUsage       = "reset_usage"
	JobCompleteBookings = "complete_bookings"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Config     Config `optional:"true"`
	Membership membershipdomain.Service
	Bookings   bookingdomain.Service
	Locker     lock.Locker                   `optional:"true"`
	Metrics    *obsmetrics.SchedulerMetrics `optional:"true"`
}

type Scheduler struct {
	log        *zap.Logger
	cfg        Config
	genID      *snowflake.Node
	clock      clock.Clock
	membership membershipdomain.Service
	bookings   bookingdomain.Service
	locker     lock.Locker
	metrics    *obsmetrics.SchedulerMetrics
}

type job struct {
	name     string
	resource string
	run      func(ctx context.Context) (int64, error)
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.Membership == nil || p.Bookings == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:        p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:        p.Config.withDefaults(),
		genID:      p.GenID,
		clock:      p.Clock,
		membership: p.Membership,
		bookings:   p.Bookings,
		locker:     p.Locker,
		metrics:    p.Metrics,
	}, nil
}

func (s *Scheduler) jobs() []job {
	return []job{
		{name: JobResetUsage, resource: "members", run: s.membership.ResetMonthlyUsage},
		{name: JobCompleteBookings, resource: "bookings", run: s.bookings.CompletePast},
	}
}

func (s *Scheduler) runJob(parent context.Context, j job, timeout time.Duration) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run := s.startRun(ctx, j.name)
	log := s.logger(ctx).With(zap.String("job", j.name), zap.String("run_id", run.runID))

	release, acquired, err := s.lease(ctx, j.name, timeout)
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	if !acquired {
		log.Debug("job held by another instance")
		return nil
	}
	defer release()

	s.logJobStart(ctx, run)
	s.metrics.IncJobRun(j.name)

	processed, err := j.run(ctx)
	run.AddProcessed(processed)
	s.metrics.AddBatchProcessed(j.name, j.resource, processed)
	s.metrics.ObserveJobDuration(j.name, s.clock.Now().Sub(start))
	if err != nil {
		run.IncError()
	}
	s.logJobFinish(ctx, run)
	if err == nil {
		return nil
	}

	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	s.metrics.IncJobError(j.name, err)
	if isTimeout {
		s.metrics.IncJobTimeout(j.name)
		log.Warn("job timed out", zap.Duration("timeout", timeout), zap.Error(err))
		return nil
	}
	return fmt.Errorf("%s: %w", j.name, err)
}

// lease keeps two instances from running the same job at once. Without a
// locker every instance runs every job.
func (s *Scheduler) lease(ctx context.Context, name string, ttl time.Duration) (func(), bool, error) {
	if s.locker == nil {
		return func() {}, true, nil
	}
	key := lock.JobKey(name)
	token, ok, err := s.locker.TryLock(ctx, key, ttl)
	if err != nil || !ok {
		return nil, false, err
	}
	return func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
			s.log.Warn("failed to release job lease", zap.String("job", name), zap.Error(err))
		}
	}, true, nil
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error
	for _, j := range s.jobs() {
		if !s.isJobEnabled(j.name) {
			continue
		}
		err = errors.Join(err, s.runJob(parent, j, s.cfg.JobTimeout))
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)

	for {
		if lag := s.clock.Now().Sub(nextRun); lag > 0 {
			s.metrics.ObserveRunLoopLag(lag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(name string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(strings.TrimSpace(enabled), name) {
			return true
		}
	}
	return false
}
