package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	bookingdomain "github.com/smallbiznis/tourdesk/internal/booking/domain"
	catalogdomain "github.com/smallbiznis/tourdesk/internal/catalog/domain"
	checkoutdomain "github.com/smallbiznis/tourdesk/internal/checkout/domain"
	membershipdomain "github.com/smallbiznis/tourdesk/internal/membership/domain"
	notificationdomain "github.com/smallbiznis/tourdesk/internal/notification/domain"
	settingsdomain "github.com/smallbiznis/tourdesk/internal/settings/domain"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Models lists every table the service owns, in creation order.
func Models() []any {
	return []any{
		&membershipdomain.Account{},
		&catalogdomain.Tour{},
		&catalogdomain.Space{},
		&catalogdomain.SpaceReservation{},
		&bookingdomain.Booking{},
		&checkoutdomain.Payment{},
		&settingsdomain.Settings{},
		&notificationdomain.Notification{},
	}
}

// AutoMigrate creates the schema from the models. Used for the dialects
// the embedded SQL does not target.
func AutoMigrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// RunMigrations applies the embedded postgres migrations.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}
