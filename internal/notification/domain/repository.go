package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, n *Notification) error
	ListByMember(ctx context.Context, db *gorm.DB, memberID snowflake.ID, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, db *gorm.DB, memberID snowflake.ID, id string, at time.Time) (bool, error)
}
