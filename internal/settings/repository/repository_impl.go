package repository

import (
	"context"

	settingsdomain "github.com/smallbiznis/tourdesk/internal/settings/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() settingsdomain.Repository {
	return &repo{}
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, id string) (*settingsdomain.Settings, error) {
	var row settingsdomain.Settings
	err := db.WithContext(ctx).Raw(
		`SELECT id, owner, tax_id, bank, cbu, alias, cancellation_hours, subscription_links, version, updated_at
		 FROM settings WHERE id = ?`,
		id,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == "" {
		return nil, nil
	}
	return &row, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, s *settingsdomain.Settings) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO settings (id, owner, tax_id, bank, cbu, alias, cancellation_hours, subscription_links, version, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID,
		s.Owner,
		s.TaxID,
		s.Bank,
		s.CBU,
		s.Alias,
		s.CancellationHours,
		s.SubscriptionLinks,
		s.Version,
		s.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, s *settingsdomain.Settings, expectedVersion int64) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE settings SET
			owner = ?, tax_id = ?, bank = ?, cbu = ?, alias = ?, cancellation_hours = ?,
			subscription_links = ?, version = ?, updated_at = ?
		WHERE id = ? AND version = ?`,
		s.Owner,
		s.TaxID,
		s.Bank,
		s.CBU,
		s.Alias,
		s.CancellationHours,
		s.SubscriptionLinks,
		s.Version,
		s.UpdatedAt,
		s.ID,
		expectedVersion,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
