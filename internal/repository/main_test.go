package repository

import (
	"fmt"
	"strings"
	"testing"

	"feedhub/internal/database"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// openTestDB opens an isolated in-memory sqlite database with the
// application schema applied.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Shared cache keeps the database alive across pooled connections.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: database.NewGormLogger(),
	})
	require.NoError(t, err)

	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}
