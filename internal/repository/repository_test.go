package repository

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"findash/internal/db"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.NewSQLiteMemory(nil)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() { _ = db.Close(gdb) })
	return gdb
}
