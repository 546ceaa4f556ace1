package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	bookingdomain "github.com/smallbiznis/tourdesk/internal/booking/domain"
	"github.com/smallbiznis/tourdesk/internal/localdate"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() bookingdomain.Repository {
	return &repo{}
}

const bookingColumns = `id, member_id, kind, item_id, title, scheduled_date, status, tier, km,
	 base_amount, discount_amount, amount_paid, discount_applied, discount_reason,
	 quota_consumed_km, uses_consumed, usage_period, tier_table_version, breakdown,
	 refund_amount, refund_percentage, cancellation_reason, cancelled_at, completed_at,
	 created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, b *bookingdomain.Booking) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO bookings (`+bookingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID,
		b.MemberID,
		b.Kind,
		b.ItemID,
		b.Title,
		b.ScheduledDate,
		b.Status,
		b.Tier,
		b.Km,
		b.BaseAmount,
		b.DiscountAmount,
		b.AmountPaid,
		b.DiscountApplied,
		b.DiscountReason,
		b.QuotaConsumedKm,
		b.UsesConsumed,
		b.UsagePeriod,
		b.TierTableVersion,
		b.Breakdown,
		b.RefundAmount,
		b.RefundPercentage,
		b.CancellationReason,
		b.CancelledAt,
		b.CompletedAt,
		b.CreatedAt,
		b.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*bookingdomain.Booking, error) {
	var b bookingdomain.Booking
	err := db.WithContext(ctx).Raw(
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`,
		id,
	).Scan(&b).Error
	if err != nil {
		return nil, err
	}
	if b.ID == 0 {
		return nil, nil
	}
	return &b, nil
}

func (r *repo) FindActive(ctx context.Context, db *gorm.DB, memberID snowflake.ID, kind bookingdomain.Kind, itemID snowflake.ID) (*bookingdomain.Booking, error) {
	var b bookingdomain.Booking
	err := db.WithContext(ctx).Raw(
		`SELECT `+bookingColumns+` FROM bookings
		WHERE member_id = ? AND kind = ? AND item_id = ? AND status = ?
		LIMIT 1`,
		memberID,
		kind,
		itemID,
		bookingdomain.StatusConfirmed,
	).Scan(&b).Error
	if err != nil {
		return nil, err
	}
	if b.ID == 0 {
		return nil, nil
	}
	return &b, nil
}

func (r *repo) CountActiveForItem(ctx context.Context, db *gorm.DB, kind bookingdomain.Kind, itemID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM bookings WHERE kind = ? AND item_id = ? AND status = ?`,
		kind,
		itemID,
		bookingdomain.StatusConfirmed,
	).Scan(&count).Error
	return count, err
}

func (r *repo) ListByMember(ctx context.Context, db *gorm.DB, memberID snowflake.ID, before snowflake.ID, limit int) ([]bookingdomain.Booking, error) {
	stmt := `SELECT ` + bookingColumns + ` FROM bookings WHERE member_id = ?`
	args := []any{memberID}
	if before > 0 {
		stmt += ` AND id < ?`
		args = append(args, before)
	}
	stmt += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	var items []bookingdomain.Booking
	if err := db.WithContext(ctx).Raw(stmt, args...).Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) MarkCancelled(ctx context.Context, db *gorm.DB, b *bookingdomain.Booking) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE bookings SET
			status = ?, refund_amount = ?, refund_percentage = ?, cancellation_reason = ?,
			cancelled_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		bookingdomain.StatusCancelled,
		b.RefundAmount,
		b.RefundPercentage,
		b.CancellationReason,
		b.CancelledAt,
		b.UpdatedAt,
		b.ID,
		bookingdomain.StatusConfirmed,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) CompletePast(ctx context.Context, db *gorm.DB, today localdate.Date, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE bookings SET status = ?, completed_at = ?, updated_at = ?
		WHERE status = ? AND scheduled_date < ?`,
		bookingdomain.StatusCompleted,
		now,
		now,
		bookingdomain.StatusConfirmed,
		today,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
