package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tourdesk/internal/localdate"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Account is the persisted customer record. Usage counters belong to
// UsagePeriod ("YYYY-MM"); a stale period means nothing was used yet this month.
type Account struct {
	ID                     snowflake.ID   `json:"id" gorm:"primaryKey"`
	Email                  string         `json:"email" gorm:"type:text;not null;uniqueIndex"`
	Name                   string         `json:"name" gorm:"type:text;not null"`
	Role                   Role           `json:"role" gorm:"type:text;not null;default:'USER'"`
	Tier                   Tier           `json:"tier" gorm:"type:text;not null;default:'NONE'"`
	ValidUntil             localdate.Date `json:"valid_until" gorm:"type:text"`
	UsedThisMonthKm        int64          `json:"used_this_month_km" gorm:"not null;default:0"`
	SpaceBookingsThisMonth int            `json:"space_bookings_this_month" gorm:"not null;default:0"`
	UsagePeriod            string         `json:"usage_period" gorm:"type:text;not null;default:''"`
	TripsCount             int            `json:"trips_count" gorm:"not null;default:0"`
	Version                int64          `json:"version" gorm:"not null;default:0"`
	CreatedAt              time.Time      `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt              time.Time      `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Account) TableName() string { return "members" }

// Snapshot returns the pricing view of the account for the given usage period.
func (a Account) Snapshot(period string) Member {
	member := Enrolled{Tier: a.Tier}
	if member.Tier == "" {
		member.Tier = TierNone
	}
	if a.UsagePeriod == period {
		member.UsedThisMonthKm = a.UsedThisMonthKm
		member.SpaceBookingsThisMonth = a.SpaceBookingsThisMonth
	}
	return member
}

// RollPeriod zeroes the usage counters when the account still carries an older period.
func (a *Account) RollPeriod(period string) {
	if a.UsagePeriod == period {
		return
	}
	a.UsagePeriod = period
	a.UsedThisMonthKm = 0
	a.SpaceBookingsThisMonth = 0
}
