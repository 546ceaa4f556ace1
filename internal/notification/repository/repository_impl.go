package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	notificationdomain "github.com/smallbiznis/tourdesk/internal/notification/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() notificationdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, n *notificationdomain.Notification) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO notifications (id, member_id, kind, title, body, payload, read_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID,
		n.MemberID,
		n.Kind,
		n.Title,
		n.Body,
		n.Payload,
		n.ReadAt,
		n.CreatedAt,
	).Error
}

func (r *repo) ListByMember(ctx context.Context, db *gorm.DB, memberID snowflake.ID, limit int) ([]notificationdomain.Notification, error) {
	var items []notificationdomain.Notification
	err := db.WithContext(ctx).Raw(
		`SELECT id, member_id, kind, title, body, payload, read_at, created_at
		 FROM notifications WHERE member_id = ? ORDER BY id DESC LIMIT ?`,
		memberID,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) MarkRead(ctx context.Context, db *gorm.DB, memberID snowflake.ID, id string, at time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE notifications SET read_at = COALESCE(read_at, ?) WHERE member_id = ? AND id = ?`,
		at,
		memberID,
		id,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
