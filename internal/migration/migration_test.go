package migration

import (
	"io/fs"
	"testing"

	"github.com/smallbiznis/tourdesk/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	up, err := fs.Glob(embeddedMigrations, migrationsDir+"/*.up.sql")
	require.NoError(t, err)
	down, err := fs.Glob(embeddedMigrations, migrationsDir+"/*.down.sql")
	require.NoError(t, err)

	require.NotEmpty(t, up)
	assert.Len(t, down, len(up))
}

func TestAutoMigrateCreatesEveryTable(t *testing.T) {
	conn := dbtest.Open(t)
	require.NoError(t, AutoMigrate(conn))

	for _, table := range []string{
		"members", "tours", "spaces", "space_reservations",
		"bookings", "payments", "settings", "notifications",
	} {
		assert.True(t, conn.Migrator().HasTable(table), table)
	}
}

func TestRunMigrationsRequiresHandle(t *testing.T) {
	assert.Error(t, RunMigrations(nil))
}
