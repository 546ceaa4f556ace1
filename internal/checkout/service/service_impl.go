package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	bookingdomain "github.com/smallbiznis/tourdesk/internal/booking/domain"
	checkoutdomain "github.com/smallbiznis/tourdesk/internal/checkout/domain"
	"github.com/smallbiznis/tourdesk/internal/clock"
	"github.com/smallbiznis/tourdesk/internal/config"
	membershipdomain "github.com/smallbiznis/tourdesk/internal/membership/domain"
	notificationdomain "github.com/smallbiznis/tourdesk/internal/notification/domain"
	obscontext "github.com/smallbiznis/tourdesk/internal/observability/context"
	pricingdomain "github.com/smallbiznis/tourdesk/internal/pricing/domain"
	"github.com/smallbiznis/tourdesk/internal/providers/gateway"
	"github.com/smallbiznis/tourdesk/internal/providers/pdf"
	settingsdomain "github.com/smallbiznis/tourdesk/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Location    *time.Location
	Config      config.Config
	Repo        checkoutdomain.Repository
	Bookings    bookingdomain.Service
	BookingRepo bookingdomain.Repository
	Members     membershipdomain.Service
	Tiers       membershipdomain.TierSource
	Settings    settingsdomain.Service
	Gateway     gateway.Gateway
	PDF         pdf.Provider
	Notifier    notificationdomain.Publisher
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	loc         *time.Location
	cfg         config.Config
	repo        checkoutdomain.Repository
	bookings    bookingdomain.Service
	bookingRepo bookingdomain.Repository
	members     membershipdomain.Service
	tiers       membershipdomain.TierSource
	settings    settingsdomain.Service
	gateway     gateway.Gateway
	pdf         pdf.Provider
	notifier    notificationdomain.Publisher
}

func New(p Params) checkoutdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("checkout.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		loc:         p.Location,
		cfg:         p.Config,
		repo:        p.Repo,
		bookings:    p.Bookings,
		bookingRepo: p.BookingRepo,
		members:     p.Members,
		tiers:       p.Tiers,
		settings:    p.Settings,
		gateway:     p.Gateway,
		pdf:         p.PDF,
		notifier:    p.Notifier,
	}
}

func (s *Service) CheckoutBooking(ctx context.Context, req checkoutdomain.BookingCheckoutRequest) (*checkoutdomain.Response, error) {
	method, err := parseMethod(req.Method)
	if err != nil {
		return nil, err
	}
	booking, err := s.bookings.Get(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != bookingdomain.StatusConfirmed {
		return nil, checkoutdomain.ErrNotPayable
	}
	if !booking.AmountPaid.IsPositive() {
		return nil, checkoutdomain.ErrNothingToPay
	}

	existing, err := s.repo.FindOpenForBooking(ctx, s.db, booking.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		switch {
		case existing.Status == checkoutdomain.StatusPaid:
			return nil, checkoutdomain.ErrAlreadyPaid
		case existing.Method == method:
			return &checkoutdomain.Response{Payment: *existing}, nil
		default:
			// Switching methods abandons the earlier attempt.
			if _, err := s.repo.Transition(ctx, s.db, existing.ID, checkoutdomain.StatusPending, checkoutdomain.StatusFailed, "", nil, s.clock.Now().UTC()); err != nil {
				return nil, err
			}
		}
	}

	account, err := s.members.Get(ctx, booking.MemberID.String())
	if err != nil {
		return nil, err
	}

	payment := s.newPayment(booking.MemberID, checkoutdomain.PurposeBooking, booking.AmountPaid, method)
	payment.BookingID = booking.ID
	description := fmt.Sprintf("%s %s", booking.Title, booking.ScheduledDate)
	return s.open(ctx, payment, account.Email, description)
}

func (s *Service) CheckoutSubscription(ctx context.Context, req checkoutdomain.SubscriptionCheckoutRequest) (*checkoutdomain.Response, error) {
	method, err := parseMethod(req.Method)
	if err != nil {
		return nil, err
	}
	memberID, err := parseID(req.MemberID)
	if err != nil {
		return nil, checkoutdomain.ErrInvalidID
	}
	if err := authorize(ctx, memberID); err != nil {
		return nil, err
	}

	plan, ok := s.tiers.Current().Lookup(membershipdomain.ParseTier(req.Tier))
	if !ok {
		return nil, checkoutdomain.ErrInvalidTier
	}
	if !plan.MonthlyPrice.IsPositive() {
		return nil, checkoutdomain.ErrNothingToPay
	}

	account, err := s.members.Get(ctx, memberID.String())
	if err != nil {
		return nil, err
	}

	payment := s.newPayment(memberID, checkoutdomain.PurposeSubscription, plan.MonthlyPrice, method)
	payment.Tier = plan.Tier
	return s.open(ctx, payment, account.Email, fmt.Sprintf("%s membership", plan.Tier))
}

func (s *Service) Confirm(ctx context.Context, req checkoutdomain.ConfirmRequest) (*checkoutdomain.Response, error) {
	if _, role := obscontext.ActorFromContext(ctx); role != string(membershipdomain.RoleAdmin) {
		return nil, checkoutdomain.ErrForbidden
	}
	payment, err := s.load(ctx, req.PaymentID)
	if err != nil {
		return nil, err
	}
	return s.settle(ctx, payment, strings.TrimSpace(req.ExternalID))
}

func (s *Service) HandleGatewayCallback(ctx context.Context, payload []byte, headers http.Header) (*checkoutdomain.Response, error) {
	confirmation, err := s.gateway.ParseConfirmation(ctx, payload, headers)
	if err != nil {
		return nil, err
	}
	payment, err := s.load(ctx, confirmation.Reference)
	if err != nil {
		return nil, err
	}

	if !confirmation.Approved {
		now := s.clock.Now().UTC()
		ok, err := s.repo.Transition(ctx, s.db, payment.ID, checkoutdomain.StatusPending, checkoutdomain.StatusFailed, confirmation.ExternalID, nil, now)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, checkoutdomain.ErrNotPayable
		}
		s.log.Info("gateway payment declined", zap.String("payment_id", payment.ID.String()))
		return nil, checkoutdomain.ErrPaymentDeclined
	}
	return s.settle(ctx, payment, confirmation.ExternalID)
}

func (s *Service) Get(ctx context.Context, id string) (*checkoutdomain.Response, error) {
	payment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, payment.MemberID); err != nil {
		return nil, err
	}
	return &checkoutdomain.Response{Payment: *payment}, nil
}

func (s *Service) Voucher(ctx context.Context, bookingID string) (io.Reader, error) {
	booking, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	account, err := s.members.Get(ctx, booking.MemberID.String())
	if err != nil {
		return nil, err
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	paymentStatus := "NOT STARTED"
	payment, err := s.repo.FindOpenForBooking(ctx, s.db, booking.ID)
	if err != nil {
		return nil, err
	}
	if payment != nil {
		paymentStatus = string(payment.Status)
	}

	data := pdf.VoucherData{
		CompanyName:   s.cfg.AppName,
		Reference:     booking.ID.String(),
		IssuedAt:      s.clock.Now().In(s.loc).Format("2006-01-02 15:04"),
		MemberName:    account.Name,
		MemberEmail:   account.Email,
		Tier:          string(booking.Tier),
		Title:         booking.Title,
		ScheduledDate: booking.ScheduledDate.String(),
		Status:        string(booking.Status),
		PaymentStatus: paymentStatus,
		Lines:         voucherLines(&booking.Booking),
		Total:         money(booking.AmountPaid),
		Reason:        booking.DiscountReason,
	}
	if booking.DiscountAmount.IsPositive() {
		data.Discount = "-" + money(booking.DiscountAmount)
	}
	if payment == nil || payment.Status != checkoutdomain.StatusPaid {
		data.BankDetails = bankLines(settings.BankDetails, booking.ID.String())
	}
	if booking.Status == bookingdomain.StatusCancelled {
		data.Notes = append(data.Notes, fmt.Sprintf("Cancelled. Refund: %s (%d%%).", money(booking.RefundAmount), booking.RefundPercentage))
	}
	return s.pdf.GenerateVoucher(ctx, data)
}

func (s *Service) newPayment(memberID snowflake.ID, purpose checkoutdomain.Purpose, amount decimal.Decimal, method checkoutdomain.Method) *checkoutdomain.Payment {
	now := s.clock.Now().UTC()
	return &checkoutdomain.Payment{
		ID:        s.genID.Generate(),
		MemberID:  memberID,
		Purpose:   purpose,
		Amount:    amount,
		Method:    method,
		Status:    checkoutdomain.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *Service) open(ctx context.Context, payment *checkoutdomain.Payment, email, description string) (*checkoutdomain.Response, error) {
	switch payment.Method {
	case checkoutdomain.MethodGateway:
		session, err := s.gateway.CreateCheckout(ctx, gateway.CheckoutRequest{
			Reference:   payment.ID.String(),
			Description: description,
			Amount:      payment.Amount,
			Email:       email,
		})
		if err != nil {
			return nil, err
		}
		payment.Provider = s.gateway.Provider()
		payment.ExternalID = session.ExternalID
		payment.RedirectURL = session.RedirectURL
	case checkoutdomain.MethodTransfer:
		settings, err := s.settings.Get(ctx)
		if err != nil {
			return nil, err
		}
		payment.Instructions = bankLines(settings.BankDetails, payment.ID.String())
	}

	if err := s.repo.Insert(ctx, s.db, payment); err != nil {
		return nil, err
	}

	s.log.Info("checkout opened",
		zap.String("payment_id", payment.ID.String()),
		zap.String("member_id", payment.MemberID.String()),
		zap.String("purpose", string(payment.Purpose)),
		zap.String("method", string(payment.Method)),
		zap.String("amount", payment.Amount.StringFixed(2)),
	)
	return &checkoutdomain.Response{Payment: *payment}, nil
}

func (s *Service) settle(ctx context.Context, payment *checkoutdomain.Payment, externalID string) (*checkoutdomain.Response, error) {
	now := s.clock.Now().UTC()
	var ok bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payable, err := s.bookingPayable(ctx, tx, payment)
		if err != nil {
			return err
		}
		if !payable {
			s.log.Warn("booking no longer payable, failing payment",
				zap.String("payment_id", payment.ID.String()),
				zap.String("booking_id", payment.BookingID.String()),
			)
			_, err = s.repo.Transition(ctx, tx, payment.ID, checkoutdomain.StatusPending, checkoutdomain.StatusFailed, externalID, nil, now)
			return err
		}
		ok, err = s.repo.Transition(ctx, tx, payment.ID, checkoutdomain.StatusPending, checkoutdomain.StatusPaid, externalID, &now, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		current, err := s.repo.FindByID(ctx, s.db, payment.ID)
		if err != nil {
			return nil, err
		}
		if current != nil && current.Status == checkoutdomain.StatusPaid {
			return &checkoutdomain.Response{Payment: *current}, nil
		}
		return nil, checkoutdomain.ErrNotPayable
	}

	payment.Status = checkoutdomain.StatusPaid
	payment.PaidAt = &now
	payment.UpdatedAt = now
	if externalID != "" {
		payment.ExternalID = externalID
	}

	switch payment.Purpose {
	case checkoutdomain.PurposeSubscription:
		_, err := s.members.Activate(ctx, membershipdomain.ActivateRequest{
			AccountID: payment.MemberID.String(),
			Tier:      string(payment.Tier),
		})
		if err != nil {
			s.log.Error("membership activation failed, reopening payment",
				zap.String("payment_id", payment.ID.String()),
				zap.Error(err),
			)
			if _, rerr := s.repo.Transition(ctx, s.db, payment.ID, checkoutdomain.StatusPaid, checkoutdomain.StatusPending, "", nil, s.clock.Now().UTC()); rerr != nil {
				s.log.Error("failed to reopen payment", zap.String("payment_id", payment.ID.String()), zap.Error(rerr))
			}
			return nil, err
		}
	case checkoutdomain.PurposeBooking:
		s.publishPaid(ctx, payment)
	}

	s.log.Info("payment settled",
		zap.String("payment_id", payment.ID.String()),
		zap.String("purpose", string(payment.Purpose)),
		zap.String("amount", payment.Amount.StringFixed(2)),
	)
	return &checkoutdomain.Response{Payment: *payment}, nil
}

// bookingPayable reports whether money may still be collected for the
// payment. Booking payments require the booking to be CONFIRMED.
func (s *Service) bookingPayable(ctx context.Context, tx *gorm.DB, payment *checkoutdomain.Payment) (bool, error) {
	if payment.Purpose != checkoutdomain.PurposeBooking {
		return true, nil
	}
	booking, err := s.bookingRepo.FindByID(ctx, tx, payment.BookingID)
	if err != nil {
		return false, err
	}
	return booking != nil && booking.Status == bookingdomain.StatusConfirmed, nil
}

func (s *Service) publishPaid(ctx context.Context, payment *checkoutdomain.Payment) {
	if s.notifier == nil {
		return
	}
	account, err := s.members.Get(ctx, payment.MemberID.String())
	if err != nil {
		s.log.Warn("failed to load member for payment notification", zap.Error(err))
		return
	}
	err = s.notifier.Publish(ctx, notificationdomain.Message{
		MemberID: payment.MemberID,
		Email:    account.Email,
		Name:     account.Name,
		Kind:     notificationdomain.KindBooking,
		Title:    "Payment received",
		Body:     fmt.Sprintf("We received %s for booking %s.", money(payment.Amount), payment.BookingID),
		Payload: map[string]any{
			"payment_id": payment.ID.String(),
			"booking_id": payment.BookingID.String(),
			"amount":     payment.Amount.StringFixed(2),
		},
	})
	if err != nil {
		s.log.Warn("failed to publish payment notification", zap.String("payment_id", payment.ID.String()), zap.Error(err))
	}
}

func (s *Service) load(ctx context.Context, id string) (*checkoutdomain.Payment, error) {
	paymentID, err := parseID(id)
	if err != nil {
		return nil, checkoutdomain.ErrInvalidID
	}
	payment, err := s.repo.FindByID(ctx, s.db, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, checkoutdomain.ErrNotFound
	}
	return payment, nil
}

func authorize(ctx context.Context, owner snowflake.ID) error {
	actorID, role := obscontext.ActorFromContext(ctx)
	if role == string(membershipdomain.RoleAdmin) {
		return nil
	}
	if actorID != "" && actorID == owner.String() {
		return nil
	}
	return checkoutdomain.ErrForbidden
}

func voucherLines(b *bookingdomain.Booking) []pdf.VoucherLine {
	if b.Kind == bookingdomain.KindTour && len(b.Breakdown) > 0 {
		var breakdown pricingdomain.TourBreakdown
		if err := json.Unmarshal(b.Breakdown, &breakdown); err == nil {
			return []pdf.VoucherLine{
				{Description: "Logistics", Amount: money(breakdown.LogisticsCost)},
				{Description: "Service fee", Amount: money(breakdown.ServiceFee)},
			}
		}
	}
	if b.Kind == bookingdomain.KindSpace && len(b.Breakdown) > 0 {
		var breakdown pricingdomain.SpaceBreakdown
		if err := json.Unmarshal(b.Breakdown, &breakdown); err == nil {
			lines := []pdf.VoucherLine{{Description: "Space rental", Amount: money(breakdown.BasePrice)}}
			if breakdown.DecorationLabel != "" {
				lines = append(lines, pdf.VoucherLine{Description: breakdown.DecorationLabel, Amount: "included"})
			}
			return lines
		}
	}
	return []pdf.VoucherLine{{Description: b.Title, Amount: money(b.BaseAmount)}}
}

func bankLines(bank settingsdomain.BankDetails, reference string) []string {
	lines := make([]string, 0, 6)
	add := func(label, value string) {
		if value = strings.TrimSpace(value); value != "" {
			lines = append(lines, label+": "+value)
		}
	}
	add("Account holder", bank.Owner)
	add("Tax ID", bank.TaxID)
	add("Bank", bank.Bank)
	add("CBU", bank.CBU)
	add("Alias", bank.Alias)
	add("Reference", reference)
	return lines
}

func money(v decimal.Decimal) string {
	return "$" + v.StringFixed(2)
}

func parseMethod(raw string) (checkoutdomain.Method, error) {
	method := checkoutdomain.Method(strings.ToUpper(strings.TrimSpace(raw)))
	if method == "" {
		method = checkoutdomain.MethodGateway
	}
	if !method.Valid() {
		return "", checkoutdomain.ErrInvalidMethod
	}
	return method, nil
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
