package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	bookingdomain "github.com/smallbiznis/tourdesk/internal/booking/domain"
	"github.com/smallbiznis/tourdesk/internal/booking/repository"
	catalogdomain "github.com/smallbiznis/tourdesk/internal/catalog/domain"
	catalogrepository "github.com/smallbiznis/tourdesk/internal/catalog/repository"
	checkoutdomain "github.com/smallbiznis/tourdesk/internal/checkout/domain"
	checkoutrepository "github.com/smallbiznis/tourdesk/internal/checkout/repository"
	"github.com/smallbiznis/tourdesk/internal/clock"
	"github.com/smallbiznis/tourdesk/internal/localdate"
	"github.com/smallbiznis/tourdesk/internal/lock"
	membershipdomain "github.com/smallbiznis/tourdesk/internal/membership/domain"
	membershiprepository "github.com/smallbiznis/tourdesk/internal/membership/repository"
	notificationdomain "github.com/smallbiznis/tourdesk/internal/notification/domain"
	obscontext "github.com/smallbiznis/tourdesk/internal/observability/context"
	refunddomain "github.com/smallbiznis/tourdesk/internal/refund/domain"
	refundservice "github.com/smallbiznis/tourdesk/internal/refund/service"
	"github.com/smallbiznis/tourdesk/pkg/db/dbtest"
	"github.com/smallbiznis/tourdesk/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type staticTiers struct {
	table membershipdomain.TierTable
}

func (s staticTiers) Current() membershipdomain.TierTable { return s.table }

type staticPolicy struct {
	policy refunddomain.Policy
}

func (s staticPolicy) RefundPolicy(context.Context) (refunddomain.Policy, error) {
	return s.policy, nil
}

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

func (p *recordingPublisher) kinds() []notificationdomain.Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]notificationdomain.Kind, 0, len(p.messages))
	for _, m := range p.messages {
		out = append(out, m.Kind)
	}
	return out
}

type fixture struct {
	svc   *Service
	db    *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
	pub   *recordingPublisher
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := dbtest.Open(t,
		&membershipdomain.Account{},
		&catalogdomain.Tour{},
		&catalogdomain.Space{},
		&catalogdomain.SpaceReservation{},
		&bookingdomain.Booking{},
		&checkoutdomain.Payment{},
	)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	table, err := membershipdomain.NewTierTable(1, membershipdomain.DefaultTierConfigs())
	require.NoError(t, err)

	loc := time.FixedZone("ART", -3*60*60)
	fake := clock.NewFakeClock(time.Date(2026, 10, 15, 12, 0, 0, 0, loc))
	pub := &recordingPublisher{}
	refunds := refundservice.New(refundservice.Params{
		Log:      zap.NewNop(),
		Clock:    fake,
		Policies: staticPolicy{policy: refunddomain.Policy{ThresholdHours: 72, Location: loc}},
	})

	svc := New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    fake,
		Location: loc,
		Repo:     repository.Provide(),
		Catalog:  catalogrepository.Provide(),
		Members:  membershiprepository.Provide(),
		Tiers:    staticTiers{table: table},
		Refunds:  refunds,
		Payments: checkoutrepository.ProvideLedger(),
		Locker:   lock.NewLocalLocker(),
		LockOpts: lock.DefaultOptions(),
		Notifier: pub,
	}).(*Service)
	return fixture{svc: svc, db: db, node: node, clock: fake, pub: pub}
}

func (f fixture) member(t *testing.T, email string, tier membershipdomain.Tier) *membershipdomain.Account {
	t.Helper()
	account := &membershipdomain.Account{
		ID:          f.node.Generate(),
		Email:       email,
		Name:        email,
		Role:        membershipdomain.RoleUser,
		Tier:        tier,
		UsagePeriod: "2026-10",
	}
	require.NoError(t, f.db.Create(account).Error)
	return account
}

func (f fixture) tour(t *testing.T, slug string, capacity int) *catalogdomain.Tour {
	t.Helper()
	tour := &catalogdomain.Tour{
		ID:            f.node.Generate(),
		Slug:          slug,
		Destination:   "Bariloche",
		LogisticsCost: decimal.NewFromInt(80000),
		ServiceFee:    decimal.NewFromInt(20000),
		Km:            1500,
		StartDate:     localdate.MustParse("2026-11-20"),
		Capacity:      capacity,
		Status:        catalogdomain.TourStatusOpen,
	}
	require.NoError(t, f.db.Create(tour).Error)
	return tour
}

func (f fixture) space(t *testing.T) *catalogdomain.Space {
	t.Helper()
	space := &catalogdomain.Space{
		ID:    f.node.Generate(),
		Slug:  "quincho-los-alamos",
		Name:  "Quincho Los Alamos",
		Type:  catalogdomain.SpaceTypeQuincho,
		Price: decimal.NewFromInt(50000),
	}
	require.NoError(t, f.db.Create(space).Error)
	return space
}

func (f fixture) reload(t *testing.T, id snowflake.ID) membershipdomain.Account {
	t.Helper()
	var account membershipdomain.Account
	require.NoError(t, f.db.First(&account, "id = ?", id).Error)
	return account
}

func (f fixture) pay(t *testing.T, b *bookingdomain.Response, status checkoutdomain.Status) *checkoutdomain.Payment {
	t.Helper()
	now := f.clock.Now().UTC()
	payment := &checkoutdomain.Payment{
		ID:        f.node.Generate(),
		MemberID:  b.MemberID,
		Purpose:   checkoutdomain.PurposeBooking,
		BookingID: b.ID,
		Amount:    b.AmountPaid,
		Method:    checkoutdomain.MethodTransfer,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if status == checkoutdomain.StatusPaid {
		payment.PaidAt = &now
	}
	require.NoError(t, f.db.Create(payment).Error)
	return payment
}

func (f fixture) paymentStatus(t *testing.T, id snowflake.ID) checkoutdomain.Status {
	t.Helper()
	var payment checkoutdomain.Payment
	require.NoError(t, f.db.First(&payment, "id = ?", id).Error)
	return payment.Status
}

func actor(account *membershipdomain.Account) context.Context {
	return obscontext.WithActor(context.Background(), account.ID.String(), string(account.Role))
}

func TestBookTourConsumesQuota(t *testing.T) {
	f := newFixture(t)
	ana := f.member(t, "ana@example.com", membershipdomain.TierIntermedio)
	tour := f.tour(t, "bariloche", 0)

	resp, err := f.svc.BookTour(actor(ana), bookingdomain.BookTourRequest{MemberID: ana.ID.String(), TourID: tour.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, bookingdomain.StatusConfirmed, resp.Status)
	assert.True(t, resp.DiscountApplied)
	assert.True(t, decimal.NewFromInt(96000).Equal(resp.AmountPaid), resp.AmountPaid.String())
	assert.True(t, decimal.NewFromInt(4000).Equal(resp.DiscountAmount))
	assert.Equal(t, int64(1500), resp.QuotaConsumedKm)
	assert.Equal(t, int64(500), resp.RemainingKm)
	assert.NotEmpty(t, resp.Breakdown)

	stored := f.reload(t, ana.ID)
	assert.Equal(t, int64(1500), stored.UsedThisMonthKm)
	assert.Equal(t, 1, stored.TripsCount)
	assert.Equal(t, ana.Version+1, stored.Version)
	assert.Equal(t, []notificationdomain.Kind{notificationdomain.KindBooking}, f.pub.kinds())

	_, err = f.svc.BookTour(actor(ana), bookingdomain.BookTourRequest{MemberID: ana.ID.String(), TourID: tour.ID.String()})
	assert.ErrorIs(t, err, bookingdomain.ErrAlreadyBooked)
}

func TestBookTourOverQuotaPaysFullPrice(t *testing.T) {
	f := newFixture(t)
	ana := f.member(t, "ana@example.com", membershipdomain.TierBasico)
	tour := f.tour(t, "bariloche", 0)

	resp, err := f.svc.BookTour(actor(ana), bookingdomain.BookTourRequest{MemberID: ana.ID.String(), TourID: tour.ID.String()})
	require.NoError(t, err)
	assert.False(t, resp.DiscountApplied)
	assert.True(t, decimal.NewFromInt(100000).Equal(resp.AmountPaid))
	assert.Zero(t, resp.QuotaConsumedKm)
	assert.Equal(t, int64(1000), resp.RemainingKm)
	assert.Equal(t, int64(0), f.reload(t, ana.ID).UsedThisMonthKm)
}

func TestBookTourRules(t *testing.T) {
	f := newFixture(t)
	ana := f.member(t, "ana@example.com", membershipdomain.TierNone)
	beto := f.member(t, "beto@example.com", membershipdomain.TierNone)
	tour := f.tour(t, "bariloche", 1)

	_, err := f.svc.BookTour(actor(ana), bookingdomain.BookTourRequest{MemberID: ana.ID.String(), TourID: tour.ID.String()})
	require.NoError(t, err)
	_, err = f.svc.BookTour(actor(beto), bookingdomain.BookTourRequest{MemberID: beto.ID.String(), TourID: tour.ID.String()})
	assert.ErrorIs(t, err, bookingdomain.ErrTourFull)

	later := f.tour(t, "mendoza", 0)
	require.NoError(t, f.db.Model(later).Update("open_at_public", "2026-10-20").Error)
	_, err = f.svc.BookTour(actor(beto), bookingdomain.BookTourRequest{MemberID: beto.ID.String(), TourID: later.ID.String()})
	assert.ErrorIs(t, err, bookingdomain.ErrTourNotOpenYet)

	closed := f.tour(t, "salta", 0)
	require.NoError(t, f.db.Model(closed).Update("status", catalogdomain.TourStatusCancelled).Error)
	_, err = f.svc.BookTour(actor(beto), bookingdomain.BookTourRequest{MemberID: beto.ID.String(), TourID: closed.ID.String()})
	assert.ErrorIs(t, err, bookingdomain.ErrTourNotBookable)

	_, err = f.svc.BookTour(actor(beto), bookingdomain.BookTourRequest{MemberID: beto.ID.String(), TourID: "123"})
	assert.ErrorIs(t, err, bookingdomain.ErrNotFound)
	_, err = f.svc.BookTour(actor(beto), bookingdomain.BookTourRequest{MemberID: "x", TourID: tour.ID.String()})
	assert.ErrorIs(t, err, bookingdomain.ErrInvalidMember)
}

func TestCancelTourBookingRefundsAndReturnsQuota(t *testing.T) {
	f := newFixture(t)
	ana := f.member(t, "ana@example.com", membershipdomain.TierIntermedio)
	other := f.member(t, "beto@example.com", membershipdomain.TierNone)
	tour := f.tour(t, "bariloche", 0)

	booked, err := f.svc.BookTour(actor(ana), bookingdomain.BookTourRequest{MemberID: ana.ID.String(), TourID: tour.ID.String()})
	require.NoError(t, err)
	f.pay(t, booked, checkoutdomain.StatusPaid)

	req := bookingdomain.CancelRequest{BookingID: booked.ID.String(), Reason: "change of plans"}
	_, err = f.svc.CancelTourBooking(actor(other), req)
	assert.ErrorIs(t, err, bookingdomain.ErrForbidden)
	_, err = f.svc.CancelSpaceBooking(actor(ana), req)
	assert.ErrorIs(t, err, bookingdomain.ErrWrongKind)

	resp, err := f.svc.CancelTourBooking(actor(ana), req)
	require.NoError(t, err)
	assert.Equal(t, bookingdomain.StatusCancelled, resp.Booking.Status)
	assert.Equal(t, refunddomain.FullPercentage, resp.Refund.Percentage)
	assert.True(t, decimal.NewFromInt(96000).Equal(resp.Refund.Amount))
	assert.Equal(t, int64(1500), resp.ReturnedKm)
	assert.Contains(t, resp.RefundInstruction, "96000.00")

	stored := f.reload(t, ana.ID)
	assert.Zero(t, stored.UsedThisMonthKm)
	assert.Zero(t, stored.TripsCount)

	_, err = f.svc.CancelTourBooking(actor(ana), req)
	assert.ErrorIs(t, err, bookingdomain.ErrNotCancellable)

	assert.Equal(t, []notificationdomain.Kind{
		notificationdomain.KindBooking,
		notificationdomain.KindCancellation,
	}, f.pub.kinds())
}

func TestCancelInsideNoticeWindowRefundsHalf(t *testing.T) {
	f := newFixture(t)
	ana := f.member(t, "ana@example.com", membershipdomain.TierNone)
	tour := f.tour(t, "bariloche", 0)

	booked, err := f.svc.BookTour(actor(ana), bookingdomain.BookTourRequest{MemberID: ana.ID.String(), TourID: tour.ID.String()})
	require.NoError(t, err)
	f.pay(t, booked, checkoutdomain.StatusPaid)

	f.clock.Set(time.Date(2026, 11, 18, 12, 0, 0, 0, time.FixedZone("ART", -3*60*60)))
	admin := obscontext.WithActor(context.Background(), "1", string(membershipdomain.RoleAdmin))
	resp, err := f.svc.CancelTourBooking(admin, bookingdomain.CancelRequest{BookingID: booked.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, refunddomain.PartialPercentage, resp.Refund.Percentage)
	assert.True(t, decimal.NewFromInt(50000).Equal(resp.Refund.Amount))
}

func TestCancelUnpaidBookingOwesNothing(t *testing.T) {
	f := newFixture(t)
	ana := f.member(t, "ana@example.com", membershipdomain.TierNone)
	tour := f.tour(t, "bariloche", 0)

	booked, err := f.svc.BookTour(actor(ana), bookingdomain.BookTourRequest{MemberID: ana.ID.String(), TourID: tour.ID.String()})
	require.NoError(t, err)
	pending := f.pay(t, booked, checkoutdomain.StatusPending)

	resp, err := f.svc.CancelTourBooking(actor(ana), bookingdomain.CancelRequest{BookingID: booked.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, refunddomain.FullPercentage, resp.Refund.Percentage)
	assert.True(t, resp.Refund.Amount.IsZero(), resp.Refund.Amount.String())
	assert.True(t, resp.Booking.RefundAmount.IsZero())
	assert.Equal(t, "No refund due.", resp.RefundInstruction)
	assert.Equal(t, checkoutdomain.StatusFailed, f.paymentStatus(t, pending.ID))
}

func TestCancelRefundsOnlyWhatWasCollected(t *testing.T) {
	f := newFixture(t)
	ana := f.member(t, "ana@example.com", membershipdomain.TierNone)
	tour := f.tour(t, "bariloche", 0)

	booked, err := f.svc.BookTour(actor(ana), bookingdomain.BookTourRequest{MemberID: ana.ID.String(), TourID: tour.ID.String()})
	require.NoError(t, err)
	paid := f.pay(t, booked, checkoutdomain.StatusPaid)
	declined := f.pay(t, booked, checkoutdomain.StatusFailed)

	f.clock.Set(time.Date(2026, 11, 19, 8, 0, 0, 0, time.FixedZone("ART", -3*60*60)))
	resp, err := f.svc.CancelTourBooking(actor(ana), bookingdomain.CancelRequest{BookingID: booked.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, refunddomain.PartialPercentage, resp.Refund.Percentage)
	assert.True(t, decimal.NewFromInt(50000).Equal(resp.Refund.Amount), resp.Refund.Amount.String())
	assert.Contains(t, resp.RefundInstruction, "Transfer $50000.00 (50%)")
	assert.Equal(t, checkoutdomain.StatusPaid, f.paymentStatus(t, paid.ID))
	assert.Equal(t, checkoutdomain.StatusFailed, f.paymentStatus(t, declined.ID))
}

func TestConcurrentTourBookingsShareOneQuota(t *testing.T) {
	f := newFixture(t)
	ana := f.member(t, "ana@example.com", membershipdomain.TierIntermedio)
	tours := []*catalogdomain.Tour{f.tour(t, "bariloche", 0), f.tour(t, "mendoza", 0)}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		responses []*bookingdomain.Response
	)
	start := make(chan struct{})
	for _, tour := range tours {
		wg.Add(1)
		go func(tourID string) {
			defer wg.Done()
			<-start
			resp, err := f.svc.BookTour(actor(ana), bookingdomain.BookTourRequest{MemberID: ana.ID.String(), TourID: tourID})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			responses = append(responses, resp)
			mu.Unlock()
		}(tour.ID.String())
	}
	close(start)
	wg.Wait()

	require.Len(t, responses, 2)
	discounted := 0
	for _, resp := range responses {
		if resp.DiscountApplied {
			discounted++
		}
	}
	assert.Equal(t, 1, discounted)

	stored := f.reload(t, ana.ID)
	assert.Equal(t, int64(1500), stored.UsedThisMonthKm)
	assert.Equal(t, 2, stored.TripsCount)
}

func TestConcurrentSpaceBookingsSameDate(t *testing.T) {
	f := newFixture(t)
	ana := f.member(t, "ana@example.com", membershipdomain.TierNone)
	beto := f.member(t, "beto@example.com", membershipdomain.TierNone)
	space := f.space(t)

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	start := make(chan struct{})
	for i, member := range []*membershipdomain.Account{ana, beto} {
		wg.Add(1)
		go func(i int, member *membershipdomain.Account) {
			defer wg.Done()
			<-start
			_, errs[i] = f.svc.BookSpace(actor(member), bookingdomain.BookSpaceRequest{
				MemberID: member.ID.String(),
				SpaceID:  space.ID.String(),
				Date:     "2026-10-24",
			})
		}(i, member)
	}
	close(start)
	wg.Wait()

	succeeded, unavailable := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, bookingdomain.ErrDateUnavailable):
			unavailable++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, unavailable)

	var reservations int64
	require.NoError(t, f.db.Model(&catalogdomain.SpaceReservation{}).Count(&reservations).Error)
	assert.Equal(t, int64(1), reservations)
}

func TestBookSpaceAndRelease(t *testing.T) {
	f := newFixture(t)
	ana := f.member(t, "ana@example.com", membershipdomain.TierIntermedio)
	beto := f.member(t, "beto@example.com", membershipdomain.TierNone)
	space := f.space(t)

	resp, err := f.svc.BookSpace(actor(ana), bookingdomain.BookSpaceRequest{MemberID: ana.ID.String(), SpaceID: space.ID.String(), Date: "2026-10-20"})
	require.NoError(t, err)
	assert.True(t, resp.DiscountApplied)
	assert.True(t, decimal.NewFromInt(45000).Equal(resp.AmountPaid))
	assert.Equal(t, 1, resp.UsesConsumed)
	assert.Zero(t, resp.RemainingUses)
	assert.Equal(t, 1, f.reload(t, ana.ID).SpaceBookingsThisMonth)

	_, err = f.svc.BookSpace(actor(beto), bookingdomain.BookSpaceRequest{MemberID: beto.ID.String(), SpaceID: space.ID.String(), Date: "2026-10-20"})
	assert.ErrorIs(t, err, bookingdomain.ErrDateUnavailable)
	_, err = f.svc.BookSpace(actor(beto), bookingdomain.BookSpaceRequest{MemberID: beto.ID.String(), SpaceID: space.ID.String(), Date: "2026-10-14"})
	assert.ErrorIs(t, err, bookingdomain.ErrDateInPast)
	_, err = f.svc.BookSpace(actor(beto), bookingdomain.BookSpaceRequest{MemberID: beto.ID.String(), SpaceID: space.ID.String(), Date: "2026/10/21"})
	assert.ErrorIs(t, err, localdate.ErrInvalidDate)

	cancelled, err := f.svc.CancelSpaceBooking(actor(ana), bookingdomain.CancelRequest{BookingID: resp.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, 1, cancelled.ReturnedUses)
	assert.Zero(t, f.reload(t, ana.ID).SpaceBookingsThisMonth)

	rebooked, err := f.svc.BookSpace(actor(beto), bookingdomain.BookSpaceRequest{MemberID: beto.ID.String(), SpaceID: space.ID.String(), Date: "2026-10-20"})
	require.NoError(t, err)
	assert.False(t, rebooked.DiscountApplied)
	assert.True(t, decimal.NewFromInt(50000).Equal(rebooked.AmountPaid))
}

func TestListByMemberPaginates(t *testing.T) {
	f := newFixture(t)
	ana := f.member(t, "ana@example.com", membershipdomain.TierNone)
	for _, slug := range []string{"bariloche", "mendoza", "salta"} {
		tour := f.tour(t, slug, 0)
		_, err := f.svc.BookTour(actor(ana), bookingdomain.BookTourRequest{MemberID: ana.ID.String(), TourID: tour.ID.String()})
		require.NoError(t, err)
	}

	first, err := f.svc.ListByMember(actor(ana), ana.ID.String(), pagination.Pagination{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.True(t, first.PageInfo.HasMore)
	assert.True(t, first.Items[0].ID > first.Items[1].ID)

	second, err := f.svc.ListByMember(actor(ana), ana.ID.String(), pagination.Pagination{PageSize: 2, PageToken: first.PageInfo.NextPageToken})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.False(t, second.PageInfo.HasMore)

	_, err = f.svc.ListByMember(context.Background(), ana.ID.String(), pagination.Pagination{})
	assert.ErrorIs(t, err, bookingdomain.ErrForbidden)
}

func TestCompletePast(t *testing.T) {
	f := newFixture(t)
	ana := f.member(t, "ana@example.com", membershipdomain.TierNone)
	tour := f.tour(t, "bariloche", 0)
	booked, err := f.svc.BookTour(actor(ana), bookingdomain.BookTourRequest{MemberID: ana.ID.String(), TourID: tour.ID.String()})
	require.NoError(t, err)

	n, err := f.svc.CompletePast(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	f.clock.Set(time.Date(2026, 11, 21, 9, 0, 0, 0, time.UTC))
	n, err = f.svc.CompletePast(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := f.svc.Get(actor(ana), booked.ID.String())
	require.NoError(t, err)
	assert.Equal(t, bookingdomain.StatusCompleted, got.Status)
	assert.NotNil(t, got.CompletedAt)

	_, err = f.svc.CancelTourBooking(actor(ana), bookingdomain.CancelRequest{BookingID: booked.ID.String()})
	assert.ErrorIs(t, err, bookingdomain.ErrNotCancellable)
}
