package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, account *Account) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Account, error)
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*Account, error)
	// Update persists account only if the stored version still equals
	// expectedVersion. It reports false when another writer got there first.
	Update(ctx context.Context, db *gorm.DB, account *Account, expectedVersion int64) (bool, error)
	ResetUsage(ctx context.Context, db *gorm.DB, period string, now time.Time) (int64, error)
}
