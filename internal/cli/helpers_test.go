package cli

import (
	"path/filepath"
	"testing"

	"github.com/terraincognita07/boardkeeper/internal/db"
)

func newCLITestStore(t *testing.T) *db.Store {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "boardkeeper-cli.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("open sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db.NewStore(database)
}
