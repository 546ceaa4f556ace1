package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	membershipdomain "github.com/smallbiznis/tourdesk/internal/membership/domain"
	"gorm.io/datatypes"
)

type Purpose string

const (
	PurposeBooking      Purpose = "BOOKING"
	PurposeSubscription Purpose = "SUBSCRIPTION"
)

type Method string

const (
	MethodGateway  Method = "GATEWAY"
	MethodTransfer Method = "TRANSFER"
)

func (m Method) Valid() bool {
	return m == MethodGateway || m == MethodTransfer
}

type Status string

const (
	StatusPending Status = "PENDING"
	StatusPaid    Status = "PAID"
	StatusFailed  Status = "FAILED"
)

// Payment is one attempt to collect money for a booking or a plan.
type Payment struct {
	ID           snowflake.ID                `json:"id" gorm:"primaryKey"`
	MemberID     snowflake.ID                `json:"member_id" gorm:"not null;index"`
	Purpose      Purpose                     `json:"purpose" gorm:"type:text;not null"`
	BookingID    snowflake.ID                `json:"booking_id,omitempty" gorm:"not null;default:0;index"`
	Tier         membershipdomain.Tier       `json:"tier,omitempty" gorm:"type:text;not null;default:''"`
	Amount       decimal.Decimal             `json:"amount" gorm:"type:numeric(14,2);not null"`
	Method       Method                      `json:"method" gorm:"type:text;not null"`
	Status       Status                      `json:"status" gorm:"type:text;not null"`
	Provider     string                      `json:"provider,omitempty" gorm:"type:text;not null;default:''"`
	ExternalID   string                      `json:"external_id,omitempty" gorm:"type:text;not null;default:''"`
	RedirectURL  string                      `json:"redirect_url,omitempty" gorm:"type:text;not null;default:''"`
	Instructions datatypes.JSONSlice[string] `json:"instructions,omitempty"`
	PaidAt       *time.Time                  `json:"paid_at,omitempty"`
	CreatedAt    time.Time                   `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time                   `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Payment) TableName() string { return "payments" }
