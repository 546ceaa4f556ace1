package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tourdesk/internal/localdate"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, booking *Booking) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Booking, error)
	FindActive(ctx context.Context, db *gorm.DB, memberID snowflake.ID, kind Kind, itemID snowflake.ID) (*Booking, error)
	CountActiveForItem(ctx context.Context, db *gorm.DB, kind Kind, itemID snowflake.ID) (int64, error)
	// ListByMember returns up to limit rows with id below before (0 means from the newest).
	ListByMember(ctx context.Context, db *gorm.DB, memberID snowflake.ID, before snowflake.ID, limit int) ([]Booking, error)
	// MarkCancelled only transitions CONFIRMED rows and reports whether it did.
	MarkCancelled(ctx context.Context, db *gorm.DB, booking *Booking) (bool, error)
	CompletePast(ctx context.Context, db *gorm.DB, today localdate.Date, now time.Time) (int64, error)
}

// PaymentLedger reports what was collected against a booking. Checkout owns
// the payments table and provides the implementation.
type PaymentLedger interface {
	// PaidForBooking sums the PAID payments of a booking.
	PaidForBooking(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) (decimal.Decimal, error)
	// FailPendingForBooking moves every PENDING payment of a booking to FAILED.
	FailPendingForBooking(ctx context.Context, db *gorm.DB, bookingID snowflake.ID, now time.Time) (int64, error)
}
