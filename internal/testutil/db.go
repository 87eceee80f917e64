// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"cycletracker/internal/db"
)

// NewDB returns a migrated in-memory SQLite database private to t.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := db.Open("sqlite", "file::memory:", nil)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb, false))

	t.Cleanup(func() {
		_ = db.Close(gdb)
	})
	return gdb
}
