package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Find(ctx context.Context, db *gorm.DB, id string) (*Settings, error)
	Insert(ctx context.Context, db *gorm.DB, settings *Settings) error
	Update(ctx context.Context, db *gorm.DB, settings *Settings, expectedVersion int64) (bool, error)
}
