package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSqliteDSN(t *testing.T) {
	assert.Equal(t, "app.db?_pragma=foreign_keys(1)", sqliteDSN("app.db"))
	assert.Equal(t, "file::memory:?cache=private&_pragma=foreign_keys(1)", sqliteDSN("file::memory:?cache=private"))
	assert.Equal(t, "x.db?_pragma=foreign_keys(0)", sqliteDSN("x.db?_pragma=foreign_keys(0)"))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("oracle", "dsn", nil)
	assert.Error(t, err)
}

func TestMigrate_CreatesTablesAndResets(t *testing.T) {
	gdb, err := Open("sqlite", "file::memory:", nil)
	require.NoError(t, err)
	defer Close(gdb)

	require.NoError(t, Migrate(gdb, false))
	for _, table := range []string{"user", "period", "symptom"} {
		assert.True(t, gdb.Migrator().HasTable(table), table)
	}

	require.NoError(t, gdb.Exec(`INSERT INTO "user" (id, email, first_name, last_name, hashed_password, is_active, is_superuser, created_at, updated_at) VALUES ('00000000-0000-0000-0000-000000000001', 'a@example.com', 'A', 'B', 'h', 1, 0, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`).Error)

	require.NoError(t, Migrate(gdb, true))
	var count int64
	require.NoError(t, gdb.Table("user").Count(&count).Error)
	assert.Zero(t, count)
}
