package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Kind string

const (
	KindBooking      Kind = "BOOKING"
	KindSpaceBooking Kind = "SPACE_BOOKING"
	KindCancellation Kind = "CANCELLATION"
	KindMembership   Kind = "MEMBERSHIP"
)

type Notification struct {
	ID        string            `json:"id" gorm:"primaryKey;type:text"`
	MemberID  snowflake.ID      `json:"member_id" gorm:"column:member_id;not null;index"`
	Kind      Kind              `json:"kind" gorm:"type:text;not null"`
	Title     string            `json:"title" gorm:"type:text;not null"`
	Body      string            `json:"body" gorm:"type:text;not null"`
	Payload   datatypes.JSONMap `json:"payload,omitempty"`
	ReadAt    *time.Time        `json:"read_at,omitempty"`
	CreatedAt time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Notification) TableName() string { return "notifications" }
