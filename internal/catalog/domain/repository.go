package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tourdesk/internal/localdate"
	"gorm.io/gorm"
)

type Repository interface {
	InsertTour(ctx context.Context, db *gorm.DB, tour *Tour) error
	UpdateTour(ctx context.Context, db *gorm.DB, tour *Tour) error
	DeleteTour(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	FindTour(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Tour, error)
	FindTourBySlug(ctx context.Context, db *gorm.DB, slug string) (*Tour, error)
	ListTours(ctx context.Context, db *gorm.DB) ([]Tour, error)

	InsertSpace(ctx context.Context, db *gorm.DB, space *Space) error
	UpdateSpace(ctx context.Context, db *gorm.DB, space *Space) error
	DeleteSpace(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	FindSpace(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Space, error)
	FindSpaceBySlug(ctx context.Context, db *gorm.DB, slug string) (*Space, error)
	ListSpaces(ctx context.Context, db *gorm.DB) ([]Space, error)

	// ReserveDate fails with a duplicate key error when the date is taken.
	ReserveDate(ctx context.Context, db *gorm.DB, reservation *SpaceReservation) error
	ReleaseDate(ctx context.Context, db *gorm.DB, spaceID snowflake.ID, date localdate.Date, bookingID snowflake.ID) error
	ReservedDates(ctx context.Context, db *gorm.DB, spaceID snowflake.ID, from localdate.Date) ([]localdate.Date, error)
}
