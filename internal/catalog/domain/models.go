package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tourdesk/internal/localdate"
	pricingdomain "github.com/smallbiznis/tourdesk/internal/pricing/domain"
	"gorm.io/datatypes"
)

type TourStatus string

const (
	TourStatusOpen         TourStatus = "OPEN"
	TourStatusConfirmed    TourStatus = "CONFIRMED"
	TourStatusReprogrammed TourStatus = "REPROGRAMMED"
	TourStatusCancelled    TourStatus = "CANCELLED"
)

func (s TourStatus) Valid() bool {
	switch s {
	case TourStatusOpen, TourStatusConfirmed, TourStatusReprogrammed, TourStatusCancelled:
		return true
	default:
		return false
	}
}

// Bookable reports whether new seats may be sold.
func (s TourStatus) Bookable() bool {
	return s == TourStatusOpen || s == TourStatusConfirmed
}

type SpaceType string

const (
	SpaceTypeDepto   SpaceType = "DEPTO"
	SpaceTypeQuincho SpaceType = "QUINCHO"
)

// Tour is a scheduled trip. Price is the legacy all-in price and is only
// consulted when neither component cost is set.
type Tour struct {
	ID            snowflake.ID                `json:"id" gorm:"primaryKey"`
	Slug          string                      `json:"slug" gorm:"type:text;not null;uniqueIndex"`
	Destination   string                      `json:"destination" gorm:"type:text;not null"`
	Description   string                      `json:"description" gorm:"type:text;not null;default:''"`
	Price         decimal.Decimal             `json:"price" gorm:"type:numeric(14,2);not null;default:0"`
	LogisticsCost decimal.Decimal             `json:"logistics_cost" gorm:"type:numeric(14,2);not null;default:0"`
	ServiceFee    decimal.Decimal             `json:"service_fee" gorm:"type:numeric(14,2);not null;default:0"`
	Km            int64                       `json:"km" gorm:"not null;default:0"`
	StartDate     localdate.Date              `json:"start_date" gorm:"type:text;not null"`
	EndDate       localdate.Date              `json:"end_date" gorm:"type:text"`
	Deadline      localdate.Date              `json:"deadline" gorm:"type:text"`
	OpenAtMembers localdate.Date              `json:"open_at_members" gorm:"type:text"`
	OpenAtPublic  localdate.Date              `json:"open_at_public" gorm:"type:text"`
	Capacity      int                         `json:"capacity" gorm:"not null;default:0"`
	MinCapacity   int                         `json:"min_capacity" gorm:"not null;default:0"`
	Status        TourStatus                  `json:"status" gorm:"type:text;not null;default:'OPEN'"`
	Images        datatypes.JSONSlice[string] `json:"images"`
	Itinerary     datatypes.JSONSlice[string] `json:"itinerary"`
	CreatedAt     time.Time                   `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time                   `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Tour) TableName() string { return "tours" }

// Priced returns the cost components the pricing engine works on.
func (t Tour) Priced() pricingdomain.Tour {
	if t.LogisticsCost.IsZero() && t.ServiceFee.IsZero() && t.Price.IsPositive() {
		return pricingdomain.TourFromLegacyPrice(t.Price, t.Km)
	}
	return pricingdomain.Tour{
		LogisticsCost: t.LogisticsCost,
		ServiceFee:    t.ServiceFee,
		Km:            t.Km,
	}
}

// OpensFor returns the first day the tour can be booked. Members may get an
// earlier window than the public.
func (t Tour) OpensFor(member bool) localdate.Date {
	if member && !t.OpenAtMembers.IsZero() {
		return t.OpenAtMembers
	}
	return t.OpenAtPublic
}

type Space struct {
	ID            snowflake.ID                `json:"id" gorm:"primaryKey"`
	Slug          string                      `json:"slug" gorm:"type:text;not null;uniqueIndex"`
	Name          string                      `json:"name" gorm:"type:text;not null"`
	Type          SpaceType                   `json:"type" gorm:"type:text;not null"`
	Price         decimal.Decimal             `json:"price" gorm:"type:numeric(14,2);not null;default:0"`
	Capacity      int                         `json:"capacity" gorm:"not null;default:0"`
	Description   string                      `json:"description" gorm:"type:text;not null;default:''"`
	DamageDeposit decimal.Decimal             `json:"damage_deposit" gorm:"type:numeric(14,2);not null;default:0"`
	CleaningFee   decimal.Decimal             `json:"cleaning_fee" gorm:"type:numeric(14,2);not null;default:0"`
	Rules         datatypes.JSONSlice[string] `json:"rules"`
	Images        datatypes.JSONSlice[string] `json:"images"`
	CreatedAt     time.Time                   `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time                   `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Space) TableName() string { return "spaces" }

func (s Space) Priced() pricingdomain.Space {
	return pricingdomain.Space{Price: s.Price}
}

// SpaceReservation holds a space for one local date. The (space_id, date)
// pair is unique so two bookings can never share a day.
type SpaceReservation struct {
	SpaceID   snowflake.ID   `json:"space_id" gorm:"primaryKey;autoIncrement:false"`
	Date      localdate.Date `json:"date" gorm:"primaryKey;type:text"`
	BookingID snowflake.ID   `json:"booking_id" gorm:"not null;index"`
	CreatedAt time.Time      `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (SpaceReservation) TableName() string { return "space_reservations" }
