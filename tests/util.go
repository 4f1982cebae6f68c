package testutil

import (
	"os"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/homeroom/storage/database"
)

// PrepareDB connects to TEST_DATABASE_URL, migrates it and empties every table.
// The test is skipped when the variable is not set.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := database.OpenURL(dsn)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db.DB); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	if _, err = db.Exec("TRUNCATE push_subscriptions, notification, tkb, btvn, events, free_notices RESTART IDENTITY"); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}
