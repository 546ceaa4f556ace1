package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	membershipdomain "github.com/smallbiznis/tourdesk/internal/membership/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() membershipdomain.Repository {
	return &repo{}
}

const accountColumns = `id, email, name, role, tier, valid_until, used_this_month_km,
	 space_bookings_this_month, usage_period, trips_count, version, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, account *membershipdomain.Account) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO members (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		account.ID,
		account.Email,
		account.Name,
		account.Role,
		account.Tier,
		account.ValidUntil,
		account.UsedThisMonthKm,
		account.SpaceBookingsThisMonth,
		account.UsagePeriod,
		account.TripsCount,
		account.Version,
		account.CreatedAt,
		account.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*membershipdomain.Account, error) {
	var account membershipdomain.Account
	err := db.WithContext(ctx).Raw(
		`SELECT `+accountColumns+` FROM members WHERE id = ?`,
		id,
	).Scan(&account).Error
	if err != nil {
		return nil, err
	}
	if account.ID == 0 {
		return nil, nil
	}
	return &account, nil
}

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*membershipdomain.Account, error) {
	var account membershipdomain.Account
	err := db.WithContext(ctx).Raw(
		`SELECT `+accountColumns+` FROM members WHERE email = ?`,
		email,
	).Scan(&account).Error
	if err != nil {
		return nil, err
	}
	if account.ID == 0 {
		return nil, nil
	}
	return &account, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, account *membershipdomain.Account, expectedVersion int64) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE members SET
			name = ?, role = ?, tier = ?, valid_until = ?, used_this_month_km = ?,
			space_bookings_this_month = ?, usage_period = ?, trips_count = ?,
			version = ?, updated_at = ?
		WHERE id = ? AND version = ?`,
		account.Name,
		account.Role,
		account.Tier,
		account.ValidUntil,
		account.UsedThisMonthKm,
		account.SpaceBookingsThisMonth,
		account.UsagePeriod,
		account.TripsCount,
		account.Version,
		account.UpdatedAt,
		account.ID,
		expectedVersion,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) ResetUsage(ctx context.Context, db *gorm.DB, period string, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE members SET
			used_this_month_km = 0, space_bookings_this_month = 0,
			usage_period = ?, version = version + 1, updated_at = ?
		WHERE usage_period <> ?`,
		period,
		now,
		period,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
