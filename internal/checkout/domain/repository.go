package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)
	// FindOpenForBooking returns the newest PENDING or PAID payment of a booking.
	FindOpenForBooking(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) (*Payment, error)
	// Transition moves a payment out of from and reports whether a row changed.
	Transition(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to Status, externalID string, paidAt *time.Time, now time.Time) (bool, error)
}
