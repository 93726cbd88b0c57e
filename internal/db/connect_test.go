package db_test

import (
	"context"
	"testing"

	"github.com/mind-engage/fitness-records/internal/db"
)

func TestOpenSQLiteCreatesSchema(t *testing.T) {
	ctx := context.Background()
	dbh, err := db.Open(ctx, db.DriverSQLite, "file:schema_test?mode=memory&cache=shared")
	if err != nil {
		t.Fatal(err)
	}
	defer dbh.Close()

	for _, table := range []string{"students", "test_scores", "import_history"} {
		var n int
		err := dbh.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=$1`, table).Scan(&n)
		if err != nil || n != 1 {
			t.Fatalf("table %s: n=%d err=%v", table, n, err)
		}
	}

	// schema creation is idempotent
	again, err := db.Open(ctx, db.DriverSQLite, "file:schema_test?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	again.Close()
}

func TestOpenUnsupportedDriver(t *testing.T) {
	if _, err := db.Open(context.Background(), db.Driver("oracle"), ""); err == nil {
		t.Fatal("expected error")
	}
}
