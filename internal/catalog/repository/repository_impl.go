package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/tourdesk/internal/catalog/domain"
	"github.com/smallbiznis/tourdesk/internal/localdate"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() catalogdomain.Repository {
	return &repo{}
}

const tourColumns = `id, slug, destination, description, price, logistics_cost, service_fee, km,
	 start_date, end_date, deadline, open_at_members, open_at_public, capacity, min_capacity,
	 status, images, itinerary, created_at, updated_at`

const spaceColumns = `id, slug, name, type, price, capacity, description, damage_deposit,
	 cleaning_fee, rules, images, created_at, updated_at`

func (r *repo) InsertTour(ctx context.Context, db *gorm.DB, tour *catalogdomain.Tour) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO tours (`+tourColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tour.ID,
		tour.Slug,
		tour.Destination,
		tour.Description,
		tour.Price,
		tour.LogisticsCost,
		tour.ServiceFee,
		tour.Km,
		tour.StartDate,
		tour.EndDate,
		tour.Deadline,
		tour.OpenAtMembers,
		tour.OpenAtPublic,
		tour.Capacity,
		tour.MinCapacity,
		tour.Status,
		tour.Images,
		tour.Itinerary,
		tour.CreatedAt,
		tour.UpdatedAt,
	).Error
}

func (r *repo) UpdateTour(ctx context.Context, db *gorm.DB, tour *catalogdomain.Tour) error {
	if tour == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE tours SET
			destination = ?, description = ?, price = ?, logistics_cost = ?, service_fee = ?, km = ?,
			start_date = ?, end_date = ?, deadline = ?, open_at_members = ?, open_at_public = ?,
			capacity = ?, min_capacity = ?, status = ?, images = ?, itinerary = ?, updated_at = ?
		WHERE id = ?`,
		tour.Destination,
		tour.Description,
		tour.Price,
		tour.LogisticsCost,
		tour.ServiceFee,
		tour.Km,
		tour.StartDate,
		tour.EndDate,
		tour.Deadline,
		tour.OpenAtMembers,
		tour.OpenAtPublic,
		tour.Capacity,
		tour.MinCapacity,
		tour.Status,
		tour.Images,
		tour.Itinerary,
		tour.UpdatedAt,
		tour.ID,
	).Error
}

func (r *repo) DeleteTour(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	result := db.WithContext(ctx).Exec(`DELETE FROM tours WHERE id = ?`, id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) FindTour(ctx context.Context, db *gorm.DB, id snowflake.ID) (*catalogdomain.Tour, error) {
	return r.findTour(ctx, db, `id = ?`, id)
}

func (r *repo) FindTourBySlug(ctx context.Context, db *gorm.DB, slug string) (*catalogdomain.Tour, error) {
	return r.findTour(ctx, db, `slug = ?`, slug)
}

func (r *repo) findTour(ctx context.Context, db *gorm.DB, where string, arg any) (*catalogdomain.Tour, error) {
	var tour catalogdomain.Tour
	err := db.WithContext(ctx).Raw(
		`SELECT `+tourColumns+` FROM tours WHERE `+where,
		arg,
	).Scan(&tour).Error
	if err != nil {
		return nil, err
	}
	if tour.ID == 0 {
		return nil, nil
	}
	return &tour, nil
}

func (r *repo) ListTours(ctx context.Context, db *gorm.DB) ([]catalogdomain.Tour, error) {
	var items []catalogdomain.Tour
	err := db.WithContext(ctx).Raw(
		`SELECT ` + tourColumns + ` FROM tours ORDER BY start_date ASC, id ASC`,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) InsertSpace(ctx context.Context, db *gorm.DB, space *catalogdomain.Space) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO spaces (`+spaceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		space.ID,
		space.Slug,
		space.Name,
		space.Type,
		space.Price,
		space.Capacity,
		space.Description,
		space.DamageDeposit,
		space.CleaningFee,
		space.Rules,
		space.Images,
		space.CreatedAt,
		space.UpdatedAt,
	).Error
}

func (r *repo) UpdateSpace(ctx context.Context, db *gorm.DB, space *catalogdomain.Space) error {
	if space == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE spaces SET
			name = ?, type = ?, price = ?, capacity = ?, description = ?, damage_deposit = ?,
			cleaning_fee = ?, rules = ?, images = ?, updated_at = ?
		WHERE id = ?`,
		space.Name,
		space.Type,
		space.Price,
		space.Capacity,
		space.Description,
		space.DamageDeposit,
		space.CleaningFee,
		space.Rules,
		space.Images,
		space.UpdatedAt,
		space.ID,
	).Error
}

func (r *repo) DeleteSpace(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	result := db.WithContext(ctx).Exec(`DELETE FROM spaces WHERE id = ?`, id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) FindSpace(ctx context.Context, db *gorm.DB, id snowflake.ID) (*catalogdomain.Space, error) {
	return r.findSpace(ctx, db, `id = ?`, id)
}

func (r *repo) FindSpaceBySlug(ctx context.Context, db *gorm.DB, slug string) (*catalogdomain.Space, error) {
	return r.findSpace(ctx, db, `slug = ?`, slug)
}

func (r *repo) findSpace(ctx context.Context, db *gorm.DB, where string, arg any) (*catalogdomain.Space, error) {
	var space catalogdomain.Space
	err := db.WithContext(ctx).Raw(
		`SELECT `+spaceColumns+` FROM spaces WHERE `+where,
		arg,
	).Scan(&space).Error
	if err != nil {
		return nil, err
	}
	if space.ID == 0 {
		return nil, nil
	}
	return &space, nil
}

func (r *repo) ListSpaces(ctx context.Context, db *gorm.DB) ([]catalogdomain.Space, error) {
	var items []catalogdomain.Space
	err := db.WithContext(ctx).Raw(
		`SELECT ` + spaceColumns + ` FROM spaces ORDER BY name ASC, id ASC`,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ReserveDate(ctx context.Context, db *gorm.DB, reservation *catalogdomain.SpaceReservation) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO space_reservations (space_id, date, booking_id, created_at) VALUES (?, ?, ?, ?)`,
		reservation.SpaceID,
		reservation.Date,
		reservation.BookingID,
		reservation.CreatedAt,
	).Error
}

func (r *repo) ReleaseDate(ctx context.Context, db *gorm.DB, spaceID snowflake.ID, date localdate.Date, bookingID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM space_reservations WHERE space_id = ? AND date = ? AND booking_id = ?`,
		spaceID,
		date,
		bookingID,
	).Error
}

func (r *repo) ReservedDates(ctx context.Context, db *gorm.DB, spaceID snowflake.ID, from localdate.Date) ([]localdate.Date, error) {
	var rows []string
	err := db.WithContext(ctx).Raw(
		`SELECT date FROM space_reservations WHERE space_id = ? AND date >= ? ORDER BY date ASC`,
		spaceID,
		from,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	dates := make([]localdate.Date, 0, len(rows))
	for _, row := range rows {
		var d localdate.Date
		if err := d.Scan(row); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, nil
}
