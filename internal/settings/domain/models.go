package domain

import (
	"time"

	"gorm.io/datatypes"
)

// SettingsID is the key of the single settings row.
const SettingsID = "config_v1"

type Settings struct {
	ID                string            `json:"id" gorm:"primaryKey;type:text"`
	Owner             string            `json:"owner" gorm:"type:text;not null;default:''"`
	TaxID             string            `json:"tax_id" gorm:"column:tax_id;type:text;not null;default:''"`
	Bank              string            `json:"bank" gorm:"type:text;not null;default:''"`
	CBU               string            `json:"cbu" gorm:"column:cbu;type:text;not null;default:''"`
	Alias             string            `json:"alias" gorm:"type:text;not null;default:''"`
	CancellationHours int               `json:"cancellation_hours" gorm:"not null;default:72"`
	SubscriptionLinks datatypes.JSONMap `json:"subscription_links,omitempty"`
	Version           int64             `json:"version" gorm:"not null;default:1"`
	UpdatedAt         time.Time         `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Settings) TableName() string { return "settings" }
