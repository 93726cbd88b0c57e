package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:fitness.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/fitness?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// one writer; avoids SQLITE_BUSY during bulk imports
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS students (
  id TEXT PRIMARY KEY,
  school_code TEXT NOT NULL DEFAULT '',
  student_no TEXT NOT NULL,
  name TEXT NOT NULL,
  gender TEXT NOT NULL,
  grade TEXT NOT NULL,
  class TEXT NOT NULL,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL,
  UNIQUE (school_code, student_no)
);

CREATE TABLE IF NOT EXISTS test_scores (
  id TEXT PRIMARY KEY,
  student_id TEXT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
  academic_year TEXT NOT NULL,
  height REAL NOT NULL,
  weight REAL NOT NULL,
  vital_capacity REAL NOT NULL,
  run_50m REAL NOT NULL,
  rope_skipping REAL NOT NULL,
  sit_ups REAL,                       -- female students only
  sit_and_reach REAL NOT NULL,
  standing_jump REAL NOT NULL,
  total_score REAL NOT NULL,
  grade_level TEXT NOT NULL,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL,
  modify_count INTEGER NOT NULL DEFAULT 0,
  UNIQUE (student_id, academic_year)
);

CREATE INDEX IF NOT EXISTS idx_test_scores_year ON test_scores(academic_year);

CREATE TABLE IF NOT EXISTS import_history (
  id TEXT PRIMARY KEY,
  academic_year TEXT NOT NULL,
  file_name TEXT NOT NULL,
  file_key TEXT NOT NULL DEFAULT '',
  overwrite INTEGER NOT NULL DEFAULT 0,
  success_count INTEGER NOT NULL,
  fail_count INTEGER NOT NULL,
  created_at INTEGER NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS students (
  id TEXT PRIMARY KEY,
  school_code TEXT NOT NULL DEFAULT '',
  student_no TEXT NOT NULL,
  name TEXT NOT NULL,
  gender TEXT NOT NULL,
  grade TEXT NOT NULL,
  class TEXT NOT NULL,
  created_at BIGINT NOT NULL,
  updated_at BIGINT NOT NULL,
  UNIQUE (school_code, student_no)
);

CREATE TABLE IF NOT EXISTS test_scores (
  id TEXT PRIMARY KEY,
  student_id TEXT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
  academic_year TEXT NOT NULL,
  height DOUBLE PRECISION NOT NULL,
  weight DOUBLE PRECISION NOT NULL,
  vital_capacity DOUBLE PRECISION NOT NULL,
  run_50m DOUBLE PRECISION NOT NULL,
  rope_skipping DOUBLE PRECISION NOT NULL,
  sit_ups DOUBLE PRECISION,
  sit_and_reach DOUBLE PRECISION NOT NULL,
  standing_jump DOUBLE PRECISION NOT NULL,
  total_score DOUBLE PRECISION NOT NULL,
  grade_level TEXT NOT NULL,
  created_at BIGINT NOT NULL,
  updated_at BIGINT NOT NULL,
  modify_count INTEGER NOT NULL DEFAULT 0,
  UNIQUE (student_id, academic_year)
);

CREATE INDEX IF NOT EXISTS idx_test_scores_year ON test_scores(academic_year);

CREATE TABLE IF NOT EXISTS import_history (
  id TEXT PRIMARY KEY,
  academic_year TEXT NOT NULL,
  file_name TEXT NOT NULL,
  file_key TEXT NOT NULL DEFAULT '',
  overwrite INTEGER NOT NULL DEFAULT 0,
  success_count INTEGER NOT NULL,
  fail_count INTEGER NOT NULL,
  created_at BIGINT NOT NULL
);
`
