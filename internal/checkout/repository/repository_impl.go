package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	bookingdomain "github.com/smallbiznis/tourdesk/internal/booking/domain"
	checkoutdomain "github.com/smallbiznis/tourdesk/internal/checkout/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() checkoutdomain.Repository {
	return &repo{}
}

// ProvideLedger exposes booking payments to the booking service.
func ProvideLedger() bookingdomain.PaymentLedger {
	return &repo{}
}

const paymentColumns = `id, member_id, purpose, booking_id, tier, amount, method, status, provider,
	 external_id, redirect_url, instructions, paid_at, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, p *checkoutdomain.Payment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payments (`+paymentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.MemberID,
		p.Purpose,
		p.BookingID,
		p.Tier,
		p.Amount,
		p.Method,
		p.Status,
		p.Provider,
		p.ExternalID,
		p.RedirectURL,
		p.Instructions,
		p.PaidAt,
		p.CreatedAt,
		p.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*checkoutdomain.Payment, error) {
	var p checkoutdomain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+` FROM payments WHERE id = ?`,
		id,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) FindOpenForBooking(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) (*checkoutdomain.Payment, error) {
	var p checkoutdomain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+` FROM payments
		WHERE booking_id = ? AND status IN (?, ?)
		ORDER BY id DESC
		LIMIT 1`,
		bookingID,
		checkoutdomain.StatusPending,
		checkoutdomain.StatusPaid,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) Transition(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to checkoutdomain.Status, externalID string, paidAt *time.Time, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE payments SET
			status = ?,
			external_id = CASE WHEN ? = '' THEN external_id ELSE ? END,
			paid_at = ?,
			updated_at = ?
		WHERE id = ? AND status = ?`,
		to,
		externalID,
		externalID,
		paidAt,
		now,
		id,
		from,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) PaidForBooking(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) (decimal.Decimal, error) {
	var rows []struct {
		Amount decimal.Decimal
	}
	err := db.WithContext(ctx).Raw(
		`SELECT amount FROM payments WHERE booking_id = ? AND status = ?`,
		bookingID,
		checkoutdomain.StatusPaid,
	).Scan(&rows).Error
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.Amount)
	}
	return total, nil
}

func (r *repo) FailPendingForBooking(ctx context.Context, db *gorm.DB, bookingID snowflake.ID, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE payments SET status = ?, updated_at = ?
		WHERE booking_id = ? AND status = ?`,
		checkoutdomain.StatusFailed,
		now,
		bookingID,
		checkoutdomain.StatusPending,
	)
	return result.RowsAffected, result.Error
}
