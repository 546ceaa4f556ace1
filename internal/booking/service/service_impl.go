package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	bookingdomain "github.com/smallbiznis/tourdesk/internal/booking/domain"
	catalogdomain "github.com/smallbiznis/tourdesk/internal/catalog/domain"
	"github.com/smallbiznis/tourdesk/internal/clock"
	"github.com/smallbiznis/tourdesk/internal/localdate"
	"github.com/smallbiznis/tourdesk/internal/lock"
	membershipdomain "github.com/smallbiznis/tourdesk/internal/membership/domain"
	notificationdomain "github.com/smallbiznis/tourdesk/internal/notification/domain"
	obscontext "github.com/smallbiznis/tourdesk/internal/observability/context"
	obsmetrics "github.com/smallbiznis/tourdesk/internal/observability/metrics"
	pricingservice "github.com/smallbiznis/tourdesk/internal/pricing/service"
	refunddomain "github.com/smallbiznis/tourdesk/internal/refund/domain"
	"github.com/smallbiznis/tourdesk/pkg/db"
	"github.com/smallbiznis/tourdesk/pkg/db/pagination"
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
	Repo     bookingdomain.Repository
	Catalog  catalogdomain.Repository
	Members  membershipdomain.Repository
	Tiers    membershipdomain.TierSource
	Refunds  refunddomain.Service
	Payments bookingdomain.PaymentLedger
	Locker   lock.Locker
	LockOpts lock.Options
	Notifier notificationdomain.Publisher
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	loc      *time.Location
	repo     bookingdomain.Repository
	catalog  catalogdomain.Repository
	members  membershipdomain.Repository
	tiers    membershipdomain.TierSource
	refunds  refunddomain.Service
	payments bookingdomain.PaymentLedger
	locker   lock.Locker
	lockOpts lock.Options
	notifier notificationdomain.Publisher
	metrics  *obsmetrics.Metrics
}

func New(p Params) bookingdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("booking.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		loc:      p.Location,
		repo:     p.Repo,
		catalog:  p.Catalog,
		members:  p.Members,
		tiers:    p.Tiers,
		refunds:  p.Refunds,
		payments: p.Payments,
		locker:   p.Locker,
		lockOpts: p.LockOpts,
		notifier: p.Notifier,
		metrics:  p.Metrics,
	}
}

func (s *Service) BookTour(ctx context.Context, req bookingdomain.BookTourRequest) (*bookingdomain.Response, error) {
	memberID, err := parseID(req.MemberID)
	if err != nil {
		return nil, bookingdomain.ErrInvalidMember
	}
	tourID, err := parseID(req.TourID)
	if err != nil {
		return nil, bookingdomain.ErrInvalidItem
	}

	tour, err := s.catalog.FindTour(ctx, s.db, tourID)
	if err != nil {
		return nil, err
	}
	if tour == nil {
		return nil, bookingdomain.ErrNotFound
	}

	today := s.today()
	if !tour.Status.Bookable() || !today.Before(tour.StartDate) {
		return nil, bookingdomain.ErrTourNotBookable
	}
	if !tour.Deadline.IsZero() && today.After(tour.Deadline) {
		return nil, bookingdomain.ErrTourNotBookable
	}

	var (
		booking *bookingdomain.Booking
		account *membershipdomain.Account
	)
	keys := []string{lock.MemberKey(memberID.String()), lock.TourKey(tourID.String())}
	err = lock.WithLock(ctx, s.locker, s.lockOpts, keys, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			acct, err := s.loadAccount(ctx, tx, memberID)
			if err != nil {
				return err
			}
			opens := tour.OpensFor(acct.Tier != membershipdomain.TierNone && acct.Tier != "")
			if !opens.IsZero() && today.Before(opens) {
				return bookingdomain.ErrTourNotOpenYet
			}

			existing, err := s.repo.FindActive(ctx, tx, memberID, bookingdomain.KindTour, tourID)
			if err != nil {
				return err
			}
			if existing != nil {
				return bookingdomain.ErrAlreadyBooked
			}
			if tour.Capacity > 0 {
				taken, err := s.repo.CountActiveForItem(ctx, tx, bookingdomain.KindTour, tourID)
				if err != nil {
					return err
				}
				if taken >= int64(tour.Capacity) {
					return bookingdomain.ErrTourFull
				}
			}

			period := today.Period()
			breakdown, err := pricingservice.ComputeTourBreakdown(tour.Priced(), acct.Snapshot(period), s.tiers.Current())
			if err != nil {
				return err
			}
			raw, err := json.Marshal(breakdown)
			if err != nil {
				return err
			}

			now := s.clock.Now().UTC()
			b := &bookingdomain.Booking{
				ID:               s.genID.Generate(),
				MemberID:         memberID,
				Kind:             bookingdomain.KindTour,
				ItemID:           tourID,
				Title:            tour.Destination,
				ScheduledDate:    tour.StartDate,
				Status:           bookingdomain.StatusConfirmed,
				Tier:             breakdown.Tier,
				Km:               tour.Km,
				BaseAmount:       breakdown.BasePrice,
				DiscountAmount:   breakdown.DiscountAmount,
				AmountPaid:       breakdown.FinalTotal,
				DiscountApplied:  breakdown.DiscountApplied,
				DiscountReason:   breakdown.Reason,
				QuotaConsumedKm:  breakdown.QuotaConsumedKm,
				UsagePeriod:      period,
				TierTableVersion: breakdown.TierTableVersion,
				Breakdown:        raw,
				CreatedAt:        now,
				UpdatedAt:        now,
			}

			expected := acct.Version
			acct.RollPeriod(period)
			acct.UsedThisMonthKm += breakdown.QuotaConsumedKm
			acct.TripsCount++
			if err := s.saveAccount(ctx, tx, acct, expected); err != nil {
				return err
			}
			if err := s.repo.Insert(ctx, tx, b); err != nil {
				return err
			}
			booking, account = b, acct
			return nil
		})
	})
	if err != nil {
		return nil, s.lockErr(ctx, string(bookingdomain.KindTour), err)
	}

	s.log.Info("tour booked",
		zap.String("booking_id", booking.ID.String()),
		zap.String("member_id", memberID.String()),
		zap.String("tour_id", tourID.String()),
		zap.String("tier", string(booking.Tier)),
		zap.Bool("discount_applied", booking.DiscountApplied),
		zap.String("amount_paid", booking.AmountPaid.StringFixed(2)),
	)
	s.metrics.RecordBooking(ctx, string(bookingdomain.KindTour), string(booking.Tier), booking.DiscountApplied)
	s.publish(ctx, account, notificationdomain.KindBooking,
		"Booking confirmed",
		fmt.Sprintf("Your trip to %s on %s is confirmed.", booking.Title, booking.ScheduledDate),
		[]string{
			fmt.Sprintf("Total: $%s", booking.AmountPaid.StringFixed(2)),
			booking.DiscountReason,
		},
		bookingPayload(booking),
	)

	return s.toResponse(booking, account), nil
}

func (s *Service) BookSpace(ctx context.Context, req bookingdomain.BookSpaceRequest) (*bookingdomain.Response, error) {
	memberID, err := parseID(req.MemberID)
	if err != nil {
		return nil, bookingdomain.ErrInvalidMember
	}
	spaceID, err := parseID(req.SpaceID)
	if err != nil {
		return nil, bookingdomain.ErrInvalidItem
	}
	date, err := localdate.Parse(req.Date)
	if err != nil {
		return nil, err
	}
	if date.Before(s.today()) {
		return nil, bookingdomain.ErrDateInPast
	}

	space, err := s.catalog.FindSpace(ctx, s.db, spaceID)
	if err != nil {
		return nil, err
	}
	if space == nil {
		return nil, bookingdomain.ErrNotFound
	}

	var (
		booking *bookingdomain.Booking
		account *membershipdomain.Account
	)
	keys := []string{lock.MemberKey(memberID.String()), lock.SpaceKey(spaceID.String(), date.String())}
	err = lock.WithLock(ctx, s.locker, s.lockOpts, keys, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			acct, err := s.loadAccount(ctx, tx, memberID)
			if err != nil {
				return err
			}

			period := s.today().Period()
			breakdown, err := pricingservice.ComputeSpaceBreakdown(space.Priced(), acct.Snapshot(period), s.tiers.Current())
			if err != nil {
				return err
			}
			raw, err := json.Marshal(breakdown)
			if err != nil {
				return err
			}

			now := s.clock.Now().UTC()
			b := &bookingdomain.Booking{
				ID:               s.genID.Generate(),
				MemberID:         memberID,
				Kind:             bookingdomain.KindSpace,
				ItemID:           spaceID,
				Title:            space.Name,
				ScheduledDate:    date,
				Status:           bookingdomain.StatusConfirmed,
				Tier:             breakdown.Tier,
				BaseAmount:       breakdown.BasePrice,
				DiscountAmount:   breakdown.DiscountAmount,
				AmountPaid:       breakdown.FinalPrice,
				DiscountApplied:  breakdown.DiscountApplied,
				DiscountReason:   breakdown.Reason,
				UsesConsumed:     breakdown.UsesConsumed,
				UsagePeriod:      period,
				TierTableVersion: breakdown.TierTableVersion,
				Breakdown:        raw,
				CreatedAt:        now,
				UpdatedAt:        now,
			}

			err = s.catalog.ReserveDate(ctx, tx, &catalogdomain.SpaceReservation{
				SpaceID:   spaceID,
				Date:      date,
				BookingID: b.ID,
				CreatedAt: now,
			})
			if err != nil {
				if db.IsDuplicateKeyErr(err) {
					return bookingdomain.ErrDateUnavailable
				}
				return err
			}

			expected := acct.Version
			acct.RollPeriod(period)
			acct.SpaceBookingsThisMonth += breakdown.UsesConsumed
			if err := s.saveAccount(ctx, tx, acct, expected); err != nil {
				return err
			}
			if err := s.repo.Insert(ctx, tx, b); err != nil {
				return err
			}
			booking, account = b, acct
			return nil
		})
	})
	if err != nil {
		return nil, s.lockErr(ctx, string(bookingdomain.KindSpace), err)
	}

	s.log.Info("space booked",
		zap.String("booking_id", booking.ID.String()),
		zap.String("member_id", memberID.String()),
		zap.String("space_id", spaceID.String()),
		zap.String("date", date.String()),
		zap.Bool("discount_applied", booking.DiscountApplied),
	)
	s.metrics.RecordBooking(ctx, string(bookingdomain.KindSpace), string(booking.Tier), booking.DiscountApplied)
	lines := []string{fmt.Sprintf("Total: $%s", booking.AmountPaid.StringFixed(2)), booking.DiscountReason}
	if space.DamageDeposit.IsPositive() {
		lines = append(lines, fmt.Sprintf("Damage deposit (refundable): $%s", space.DamageDeposit.StringFixed(2)))
	}
	s.publish(ctx, account, notificationdomain.KindSpaceBooking,
		"Space reserved",
		fmt.Sprintf("%s is reserved for you on %s.", booking.Title, booking.ScheduledDate),
		lines,
		bookingPayload(booking),
	)

	return s.toResponse(booking, account), nil
}

func (s *Service) CancelTourBooking(ctx context.Context, req bookingdomain.CancelRequest) (*bookingdomain.CancelResponse, error) {
	return s.cancel(ctx, bookingdomain.KindTour, req)
}

func (s *Service) CancelSpaceBooking(ctx context.Context, req bookingdomain.CancelRequest) (*bookingdomain.CancelResponse, error) {
	return s.cancel(ctx, bookingdomain.KindSpace, req)
}

func (s *Service) cancel(ctx context.Context, kind bookingdomain.Kind, req bookingdomain.CancelRequest) (*bookingdomain.CancelResponse, error) {
	bookingID, err := parseID(req.BookingID)
	if err != nil {
		return nil, bookingdomain.ErrInvalidID
	}
	current, err := s.repo.FindByID(ctx, s.db, bookingID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, bookingdomain.ErrNotFound
	}
	if err := authorize(ctx, current.MemberID); err != nil {
		return nil, err
	}
	if current.Kind != kind {
		return nil, bookingdomain.ErrWrongKind
	}
	if current.Status != bookingdomain.StatusConfirmed {
		return nil, bookingdomain.ErrNotCancellable
	}

	// The policy fixes the percentage; the amount follows what was collected.
	decision, err := s.refunds.Decide(ctx, current.ScheduledDate, current.AmountPaid)
	if err != nil {
		return nil, err
	}

	keys := []string{lock.MemberKey(current.MemberID.String())}
	if kind == bookingdomain.KindSpace {
		keys = append(keys, lock.SpaceKey(current.ItemID.String(), current.ScheduledDate.String()))
	} else {
		keys = append(keys, lock.TourKey(current.ItemID.String()))
	}

	var (
		booking        *bookingdomain.Booking
		account        *membershipdomain.Account
		returnedKm     int64
		returnedUses   int
		failedPayments int64
	)
	err = lock.WithLock(ctx, s.locker, s.lockOpts, keys, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			b, err := s.repo.FindByID(ctx, tx, bookingID)
			if err != nil {
				return err
			}
			if b == nil {
				return bookingdomain.ErrNotFound
			}
			acct, err := s.loadAccount(ctx, tx, b.MemberID)
			if err != nil {
				return err
			}

			now := s.clock.Now().UTC()
			failed, err := s.payments.FailPendingForBooking(ctx, tx, b.ID, now)
			if err != nil {
				return err
			}
			paid, err := s.payments.PaidForBooking(ctx, tx, b.ID)
			if err != nil {
				return err
			}
			decision.Amount = refundShare(paid, decision.Percentage)
			failedPayments = failed

			b.Status = bookingdomain.StatusCancelled
			b.RefundAmount = decision.Amount
			b.RefundPercentage = decision.Percentage
			b.CancellationReason = strings.TrimSpace(req.Reason)
			b.CancelledAt = &now
			b.UpdatedAt = now
			ok, err := s.repo.MarkCancelled(ctx, tx, b)
			if err != nil {
				return err
			}
			if !ok {
				return bookingdomain.ErrNotCancellable
			}

			expected := acct.Version
			samePeriod := acct.UsagePeriod == b.UsagePeriod
			switch b.Kind {
			case bookingdomain.KindTour:
				if samePeriod && b.QuotaConsumedKm > 0 {
					returnedKm = min(b.QuotaConsumedKm, acct.UsedThisMonthKm)
					acct.UsedThisMonthKm -= returnedKm
				}
				if acct.TripsCount > 0 {
					acct.TripsCount--
				}
			case bookingdomain.KindSpace:
				if err := s.catalog.ReleaseDate(ctx, tx, b.ItemID, b.ScheduledDate, b.ID); err != nil {
					return err
				}
				if samePeriod && b.UsesConsumed > 0 {
					returnedUses = min(b.UsesConsumed, acct.SpaceBookingsThisMonth)
					acct.SpaceBookingsThisMonth -= returnedUses
				}
			}
			if err := s.saveAccount(ctx, tx, acct, expected); err != nil {
				return err
			}
			booking, account = b, acct
			return nil
		})
	})
	if err != nil {
		return nil, s.lockErr(ctx, string(kind), err)
	}

	instruction := refundInstruction(decision, account)
	s.log.Info("booking cancelled",
		zap.String("booking_id", booking.ID.String()),
		zap.String("member_id", booking.MemberID.String()),
		zap.String("kind", string(booking.Kind)),
		zap.Int("refund_percentage", decision.Percentage),
		zap.String("refund_amount", decision.Amount.StringFixed(2)),
		zap.Int64("returned_km", returnedKm),
		zap.Int("returned_uses", returnedUses),
		zap.Int64("failed_payments", failedPayments),
	)
	s.metrics.RecordCancellation(ctx, string(booking.Kind), decision.Percentage, decision.Amount.InexactFloat64())
	payload := bookingPayload(booking)
	payload["refund_amount"] = decision.Amount.StringFixed(2)
	payload["refund_percentage"] = decision.Percentage
	s.publish(ctx, account, notificationdomain.KindCancellation,
		"Booking cancelled",
		fmt.Sprintf("Your booking for %s on %s was cancelled.", booking.Title, booking.ScheduledDate),
		[]string{decision.Reason, fmt.Sprintf("Refund: $%s", decision.Amount.StringFixed(2))},
		payload,
	)

	return &bookingdomain.CancelResponse{
		Booking:           *booking,
		Refund:            *decision,
		RefundInstruction: instruction,
		ReturnedKm:        returnedKm,
		ReturnedUses:      returnedUses,
	}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*bookingdomain.Response, error) {
	bookingID, err := parseID(id)
	if err != nil {
		return nil, bookingdomain.ErrInvalidID
	}
	booking, err := s.repo.FindByID(ctx, s.db, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, bookingdomain.ErrNotFound
	}
	if err := authorize(ctx, booking.MemberID); err != nil {
		return nil, err
	}
	account, err := s.members.FindByID(ctx, s.db, booking.MemberID)
	if err != nil {
		return nil, err
	}
	return s.toResponse(booking, account), nil
}

func (s *Service) ListByMember(ctx context.Context, memberID string, page pagination.Pagination) (*bookingdomain.ListResponse, error) {
	id, err := parseID(memberID)
	if err != nil {
		return nil, bookingdomain.ErrInvalidMember
	}
	if err := authorize(ctx, id); err != nil {
		return nil, err
	}

	cursor, err := pagination.DecodeCursor(page.PageToken)
	if err != nil {
		return nil, err
	}
	var before snowflake.ID
	if cursor != nil {
		before, err = parseID(cursor.ID)
		if err != nil {
			return nil, pagination.ErrInvalidPageToken
		}
	}

	limit := page.Limit()
	rows, err := s.repo.ListByMember(ctx, s.db, id, before, limit+1)
	if err != nil {
		return nil, err
	}
	items, info, err := pagination.BuildCursorPageInfo(rows, limit, func(b bookingdomain.Booking) string {
		return b.ID.String()
	})
	if err != nil {
		return nil, err
	}
	return &bookingdomain.ListResponse{Items: items, PageInfo: info}, nil
}

func (s *Service) CompletePast(ctx context.Context) (int64, error) {
	today := s.today()
	n, err := s.repo.CompletePast(ctx, s.db, today, s.clock.Now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("bookings completed", zap.Int64("count", n), zap.String("before", today.String()))
	}
	return n, nil
}

func (s *Service) loadAccount(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*membershipdomain.Account, error) {
	account, err := s.members.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, bookingdomain.ErrInvalidMember
	}
	return account, nil
}

func (s *Service) saveAccount(ctx context.Context, tx *gorm.DB, account *membershipdomain.Account, expected int64) error {
	account.Version = expected + 1
	account.UpdatedAt = s.clock.Now().UTC()
	ok, err := s.members.Update(ctx, tx, account, expected)
	if err != nil {
		return err
	}
	if !ok {
		return bookingdomain.ErrConcurrentUpdate
	}
	return nil
}

func (s *Service) lockErr(ctx context.Context, resource string, err error) error {
	if errors.Is(err, lock.ErrNotAcquired) {
		s.metrics.RecordLockContended(ctx, resource)
		return bookingdomain.ErrConcurrentUpdate
	}
	return err
}

func (s *Service) publish(ctx context.Context, account *membershipdomain.Account, kind notificationdomain.Kind, title, body string, lines []string, payload map[string]any) {
	if account == nil || s.notifier == nil {
		return
	}
	err := s.notifier.Publish(ctx, notificationdomain.Message{
		MemberID: account.ID,
		Email:    account.Email,
		Name:     account.Name,
		Kind:     kind,
		Title:    title,
		Body:     body,
		Lines:    lines,
		Payload:  payload,
	})
	if err != nil {
		s.log.Warn("failed to publish booking notification", zap.String("member_id", account.ID.String()), zap.Error(err))
	}
}

func (s *Service) toResponse(b *bookingdomain.Booking, account *membershipdomain.Account) *bookingdomain.Response {
	resp := &bookingdomain.Response{Booking: *b}
	if account == nil {
		return resp
	}
	plan, ok := s.tiers.Current().Lookup(account.Tier)
	if !ok {
		return resp
	}
	used, uses := account.UsedThisMonthKm, account.SpaceBookingsThisMonth
	if account.UsagePeriod != s.today().Period() {
		used, uses = 0, 0
	}
	resp.RemainingKm = max(plan.KmLimit-used, 0)
	resp.RemainingUses = max(plan.Space.MonthlyUseLimit-uses, 0)
	return resp
}

func (s *Service) today() localdate.Date {
	return localdate.FromTime(s.clock.Now(), s.loc)
}

// authorize lets the booking owner or an admin through.
func authorize(ctx context.Context, owner snowflake.ID) error {
	actorID, role := obscontext.ActorFromContext(ctx)
	if role == string(membershipdomain.RoleAdmin) {
		return nil
	}
	if actorID != "" && actorID == owner.String() {
		return nil
	}
	return bookingdomain.ErrForbidden
}

func refundInstruction(decision *refunddomain.Decision, account *membershipdomain.Account) string {
	if !decision.Amount.IsPositive() {
		return "No refund due."
	}
	return fmt.Sprintf("Transfer $%s (%d%%) to %s <%s> within 5 business days.",
		decision.Amount.StringFixed(2), decision.Percentage, account.Name, account.Email)
}

// refundShare applies a refund percentage to the amount actually collected.
func refundShare(paid decimal.Decimal, percentage int) decimal.Decimal {
	if !paid.IsPositive() {
		return decimal.Zero
	}
	return paid.Mul(decimal.NewFromInt(int64(percentage))).Div(decimal.NewFromInt(100))
}

func bookingPayload(b *bookingdomain.Booking) map[string]any {
	return map[string]any{
		"booking_id":     b.ID.String(),
		"kind":           string(b.Kind),
		"item_id":        b.ItemID.String(),
		"scheduled_date": b.ScheduledDate.String(),
		"amount_paid":    b.AmountPaid.StringFixed(2),
	}
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("invalid id %q", value)
	}
	return id, nil
}
