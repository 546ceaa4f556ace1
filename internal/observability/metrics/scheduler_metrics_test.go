package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"
)

func TestClassifySchedulerJobReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: SchedulerJobReasonDeadlineExceeded},
		{name: "wrapped_deadline", err: fmt.Errorf("reset_usage: %w", context.DeadlineExceeded), want: SchedulerJobReasonDeadlineExceeded},
		{name: "db_lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: SchedulerJobReasonDBLockTimeout},
		{name: "serialization_failure", err: &pgconn.PgError{Code: "40001"}, want: SchedulerJobReasonSerializationFailure},
		{name: "unique_violation", err: gorm.ErrDuplicatedKey, want: SchedulerJobReasonUniqueViolation},
		{name: "other_pg", err: &pgconn.PgError{Code: "42P01"}, want: SchedulerJobReasonDB},
		{name: "unknown", err: errors.New("boom"), want: SchedulerJobReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifySchedulerJobReason(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestAddBatchProcessed(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := newSchedulerMetrics(registry, Config{
		ServiceName: "tourdesk",
		Environment: "test",
	})

	metrics.AddBatchProcessed("reset_usage", "members", 3)
	metrics.AddBatchProcessed("reset_usage", "members", 0)

	got := testutil.ToFloat64(metrics.batchProcessed.WithLabelValues("reset_usage", "members"))
	if got != 3 {
		t.Fatalf("expected processed count 3, got %v", got)
	}
}

func TestNilSchedulerMetricsIsSafe(t *testing.T) {
	var metrics *SchedulerMetrics
	metrics.IncJobRun("noop")
	metrics.IncJobError("noop", errors.New("boom"))
	metrics.ObserveRunLoopLag(-1)
}
