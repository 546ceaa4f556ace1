package service

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/tourdesk/internal/clock"
	"github.com/smallbiznis/tourdesk/internal/config"
	settingsdomain "github.com/smallbiznis/tourdesk/internal/settings/domain"
	"github.com/smallbiznis/tourdesk/internal/settings/repository"
	"github.com/smallbiznis/tourdesk/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db := dbtest.Open(t, &settingsdomain.Settings{})

	cfg := config.Config{Booking: config.BookingConfig{DefaultCancellationHours: 72}}
	return New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		Clock:    clock.NewFakeClock(time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)),
		Location: time.UTC,
		Config:   cfg,
		Repo:     repository.Provide(),
	}).(*Service)
}

func strPtr(v string) *string { return &v }
func intPtr(v int) *int       { return &v }

func TestGetDefaultsBeforeFirstSave(t *testing.T) {
	svc := newTestService(t)

	resp, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 72, resp.CancellationHours)
	assert.Equal(t, int64(0), resp.Version)

	policy, err := svc.RefundPolicy(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 72, policy.ThresholdHours)
	assert.Equal(t, time.UTC, policy.Location)
}

func TestUpdateBumpsVersion(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.Update(ctx, settingsdomain.UpdateRequest{
		Owner:             strPtr(" Tour Owner "),
		CBU:               strPtr("0940001000123456789012"),
		Alias:             strPtr("gnm.tour.arg"),
		SubscriptionLinks: map[string]string{"plus": "https://pay.example/plus", "elite": " "},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Version)
	assert.Equal(t, "Tour Owner", first.BankDetails.Owner)
	assert.Equal(t, "GNM.TOUR.ARG", first.BankDetails.Alias)
	assert.Equal(t, map[string]string{"PLUS": "https://pay.example/plus"}, first.SubscriptionLinks)
	assert.Equal(t, 72, first.CancellationHours)

	second, err := svc.Update(ctx, settingsdomain.UpdateRequest{CancellationHours: intPtr(48)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Version)
	assert.Equal(t, 48, second.CancellationHours)
	assert.Equal(t, "Tour Owner", second.BankDetails.Owner)

	policy, err := svc.RefundPolicy(ctx)
	require.NoError(t, err)
	assert.Equal(t, 48, policy.ThresholdHours)
}

func TestUpdateValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Update(ctx, settingsdomain.UpdateRequest{CancellationHours: intPtr(-1)})
	assert.ErrorIs(t, err, settingsdomain.ErrInvalidCancellationHours)

	_, err = svc.Update(ctx, settingsdomain.UpdateRequest{CBU: strPtr("12AB")})
	assert.ErrorIs(t, err, settingsdomain.ErrInvalidCBU)
}
