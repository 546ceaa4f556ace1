package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tourdesk/internal/clock"
	"github.com/smallbiznis/tourdesk/internal/config"
	"github.com/smallbiznis/tourdesk/internal/localdate"
	"github.com/smallbiznis/tourdesk/internal/lock"
	membershipdomain "github.com/smallbiznis/tourdesk/internal/membership/domain"
	"github.com/smallbiznis/tourdesk/internal/membership/repository"
	notificationdomain "github.com/smallbiznis/tourdesk/internal/notification/domain"
	"github.com/smallbiznis/tourdesk/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type staticTiers struct {
	table membershipdomain.TierTable
}

func (s staticTiers) Current() membershipdomain.TierTable { return s.table }

type recordingPublisher struct {
	mu       sync.Mutex
	messages []notificationdomain.Message
}

func (p *recordingPublisher) Publish(ctx context.Context, msg notificationdomain.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return nil
}

type fixture struct {
	svc   *Service
	db    *gorm.DB
	clock *clock.FakeClock
	pub   *recordingPublisher
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := dbtest.Open(t, &membershipdomain.Account{})

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	table, err := membershipdomain.NewTierTable(1, membershipdomain.DefaultTierConfigs())
	require.NoError(t, err)

	loc := time.FixedZone("ART", -3*60*60)
	fake := clock.NewFakeClock(time.Date(2026, 10, 15, 12, 0, 0, 0, loc))
	pub := &recordingPublisher{}

	svc := New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    fake,
		Location: loc,
		Config:   config.Config{AdminEmails: []string{"admin@tourdesk.test"}},
		Tiers:    staticTiers{table: table},
		Repo:     repository.Provide(),
		Locker:   lock.NewLocalLocker(),
		LockOpts: lock.DefaultOptions(),
		Notifier: pub,
	}).(*Service)
	return fixture{svc: svc, db: db, clock: fake, pub: pub}
}

func TestRegisterAndGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Register(ctx, membershipdomain.RegisterRequest{Email: " Ana@Example.com ", Name: "Ana"})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", created.Email)
	assert.Equal(t, membershipdomain.RoleUser, created.Role)
	assert.Equal(t, membershipdomain.TierNone, created.Tier)

	_, err = f.svc.Register(ctx, membershipdomain.RegisterRequest{Email: "ana@example.com", Name: "Other"})
	assert.ErrorIs(t, err, membershipdomain.ErrEmailTaken)

	admin, err := f.svc.Register(ctx, membershipdomain.RegisterRequest{Email: "admin@tourdesk.test", Name: "Ops"})
	require.NoError(t, err)
	assert.Equal(t, membershipdomain.RoleAdmin, admin.Role)

	got, err := f.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = f.svc.Get(ctx, "123")
	assert.ErrorIs(t, err, membershipdomain.ErrNotFound)
	_, err = f.svc.Get(ctx, "abc")
	assert.ErrorIs(t, err, membershipdomain.ErrInvalidID)

	_, err = f.svc.Register(ctx, membershipdomain.RegisterRequest{Email: "nope", Name: "x"})
	assert.ErrorIs(t, err, membershipdomain.ErrInvalidEmail)
}

func TestActivateResetsUsageAndNotifies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Register(ctx, membershipdomain.RegisterRequest{Email: "bo@example.com", Name: "Bo"})
	require.NoError(t, err)
	require.NoError(t, f.db.Exec(`UPDATE members SET used_this_month_km = 900, space_bookings_this_month = 2 WHERE email = ?`, "bo@example.com").Error)

	account, err := f.svc.Activate(ctx, membershipdomain.ActivateRequest{AccountID: created.ID, Tier: "plus"})
	require.NoError(t, err)
	assert.Equal(t, membershipdomain.TierPlus, account.Tier)
	assert.Equal(t, localdate.MustParse("2026-11-15"), account.ValidUntil)
	assert.Equal(t, int64(0), account.UsedThisMonthKm)
	assert.Equal(t, 0, account.SpaceBookingsThisMonth)
	assert.Equal(t, int64(3000), account.RemainingKm)

	require.Len(t, f.pub.messages, 1)
	assert.Equal(t, notificationdomain.KindMembership, f.pub.messages[0].Kind)

	snapshot, err := f.svc.Snapshot(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, membershipdomain.Enrolled{Tier: membershipdomain.TierPlus}, snapshot)

	_, err = f.svc.Activate(ctx, membershipdomain.ActivateRequest{AccountID: created.ID, Tier: "GOLD"})
	assert.ErrorIs(t, err, membershipdomain.ErrUnknownTier)
}

func TestCancelSubscription(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Register(ctx, membershipdomain.RegisterRequest{Email: "cy@example.com", Name: "Cy"})
	require.NoError(t, err)

	_, err = f.svc.CancelSubscription(ctx, created.ID)
	assert.ErrorIs(t, err, membershipdomain.ErrNoActivePlan)

	_, err = f.svc.Activate(ctx, membershipdomain.ActivateRequest{AccountID: created.ID, Tier: "ELITE"})
	require.NoError(t, err)

	account, err := f.svc.CancelSubscription(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, membershipdomain.TierNone, account.Tier)
	assert.True(t, account.ValidUntil.IsZero())
}

func TestSnapshotAnonymous(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m, err := f.svc.Snapshot(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, membershipdomain.Anonymous{}, m)

	m, err = f.svc.Snapshot(ctx, "999")
	require.NoError(t, err)
	assert.Equal(t, membershipdomain.Anonymous{}, m)
}

func TestResetMonthlyUsage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Register(ctx, membershipdomain.RegisterRequest{Email: "di@example.com", Name: "Di"})
	require.NoError(t, err)
	require.NoError(t, f.db.Exec(`UPDATE members SET used_this_month_km = 1500 WHERE email = ?`, "di@example.com").Error)

	affected, err := f.svc.ResetMonthlyUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)

	f.clock.Advance(20 * 24 * time.Hour)
	affected, err = f.svc.ResetMonthlyUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	got, err := f.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.UsedThisMonthKm)
}

func TestListPlans(t *testing.T) {
	f := newFixture(t)
	plans, err := f.svc.ListPlans(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), plans.Version)
	require.Len(t, plans.Plans, 4)
	assert.Equal(t, membershipdomain.TierBasico, plans.Plans[0].Tier)
	assert.Equal(t, "Premium decoration", plans.Plans[3].DecorationLabel)
}
