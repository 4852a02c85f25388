// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-ratecard-go/internal/ratecard/repo"
	"github.com/ovaphlow/pitchfork/service-ratecard-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-ratecard-go/pkg/utilities"
)

// OpenDB returns a private in-memory SQLite database with the rate_card_requests
// table created. It is closed when the test finishes.
func OpenDB(t testing.TB) *sqlx.DB {
	t.Helper()

	// shared cache keeps the in-memory database alive across pool reconnects
	dsn := fmt.Sprintf("file:test_%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)", utilities.NewKSUID())
	db, err := database.ConnectX(database.Config{Driver: database.DriverSQLite, DSN: dsn, MaxConns: 1})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := repo.NewRequestRepo(db).EnsureTable(context.Background()); err != nil {
		db.Close()
		t.Fatalf("ensure table: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
