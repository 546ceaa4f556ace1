package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tourdesk/internal/localdate"
	membershipdomain "github.com/smallbiznis/tourdesk/internal/membership/domain"
	"gorm.io/datatypes"
)

type Kind string

const (
	KindTour  Kind = "TOUR"
	KindSpace Kind = "SPACE"
)

type Status string

const (
	StatusConfirmed Status = "CONFIRMED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Booking is a committed reservation of a tour seat or a space day. Amounts
// and quota figures are frozen from the breakdown at booking time.
type Booking struct {
	ID                 snowflake.ID          `json:"id" gorm:"primaryKey"`
	MemberID           snowflake.ID          `json:"member_id" gorm:"not null;index"`
	Kind               Kind                  `json:"kind" gorm:"type:text;not null"`
	ItemID             snowflake.ID          `json:"item_id" gorm:"not null;index"`
	Title              string                `json:"title" gorm:"type:text;not null"`
	ScheduledDate      localdate.Date        `json:"scheduled_date" gorm:"type:text;not null;index"`
	Status             Status                `json:"status" gorm:"type:text;not null"`
	Tier               membershipdomain.Tier `json:"tier" gorm:"type:text;not null"`
	Km                 int64                 `json:"km" gorm:"not null;default:0"`
	BaseAmount         decimal.Decimal       `json:"base_amount" gorm:"type:numeric(14,2);not null"`
	DiscountAmount     decimal.Decimal       `json:"discount_amount" gorm:"type:numeric(14,2);not null"`
	AmountPaid         decimal.Decimal       `json:"amount_paid" gorm:"type:numeric(14,2);not null"`
	DiscountApplied    bool                  `json:"discount_applied" gorm:"not null;default:false"`
	DiscountReason     string                `json:"discount_reason" gorm:"type:text;not null;default:''"`
	QuotaConsumedKm    int64                 `json:"quota_consumed_km" gorm:"not null;default:0"`
	UsesConsumed       int                   `json:"uses_consumed" gorm:"not null;default:0"`
	UsagePeriod        string                `json:"usage_period" gorm:"type:text;not null"`
	TierTableVersion   int64                 `json:"tier_table_version" gorm:"not null;default:0"`
	Breakdown          datatypes.JSON        `json:"breakdown"`
	RefundAmount       decimal.Decimal       `json:"refund_amount" gorm:"type:numeric(14,2);not null;default:0"`
	RefundPercentage   int                   `json:"refund_percentage" gorm:"not null;default:0"`
	CancellationReason string                `json:"cancellation_reason,omitempty" gorm:"type:text;not null;default:''"`
	CancelledAt        *time.Time            `json:"cancelled_at,omitempty"`
	CompletedAt        *time.Time            `json:"completed_at,omitempty"`
	CreatedAt          time.Time             `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt          time.Time             `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Booking) TableName() string { return "bookings" }
