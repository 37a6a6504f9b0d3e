package db

import (
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported driver names, as registered with database/sql.
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// InitDB opens the database, applies the dialect's pragmas and ensures tables exist.
func InitDB(driver, dsn string) (*sql.DB, error) {
	schema, ok := schemas[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s at %q: %w", driver, dsn, err)
	}

	if driver == DriverSQLite {
		// single writer
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)

		for _, pragma := range []string{
			"PRAGMA journal_mode = WAL;",
			"PRAGMA foreign_keys = ON;",
			"PRAGMA busy_timeout = 5000;",
		} {
			if _, err := db.Exec(pragma); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("set %s: %w", pragma, err)
			}
		}
	}

	if err := ensureSchema(db, schema); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	return db, nil
}

var schemas = map[string][]string{
	DriverSQLite: {
		`CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    occurred_at BIGINT NOT NULL,
    message TEXT NOT NULL,
    severity TEXT NOT NULL,
    event_type TEXT NOT NULL,
    source_name TEXT NOT NULL,
    source_ip TEXT NOT NULL,
    location_country TEXT NOT NULL,
    location_city TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS idx_events_occurred_at ON events (occurred_at);`,
		`CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL
);`,
	},
	DriverMySQL: {
		`CREATE TABLE IF NOT EXISTS events (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    occurred_at BIGINT NOT NULL,
    message TEXT NOT NULL,
    severity VARCHAR(64) NOT NULL,
    event_type VARCHAR(64) NOT NULL,
    source_name VARCHAR(255) NOT NULL,
    source_ip VARCHAR(64) NOT NULL,
    location_country VARCHAR(128) NOT NULL,
    location_city VARCHAR(128) NOT NULL,
    INDEX idx_events_occurred_at (occurred_at)
);`,
		`CREATE TABLE IF NOT EXISTS users (
    id INT AUTO_INCREMENT PRIMARY KEY,
    username VARCHAR(255) UNIQUE NOT NULL,
    password_hash VARCHAR(255) NOT NULL
);`,
	},
	DriverPostgres: {
		`CREATE TABLE IF NOT EXISTS events (
    id BIGSERIAL PRIMARY KEY,
    occurred_at BIGINT NOT NULL,
    message TEXT NOT NULL,
    severity TEXT NOT NULL,
    event_type TEXT NOT NULL,
    source_name TEXT NOT NULL,
    source_ip TEXT NOT NULL,
    location_country TEXT NOT NULL,
    location_city TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS idx_events_occurred_at ON events (occurred_at);`,
		`CREATE TABLE IF NOT EXISTS users (
    id SERIAL PRIMARY KEY,
    username TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL
);`,
	},
}

func ensureSchema(db *sql.DB, stmts []string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema transaction: %w", err)
	}
	return nil
}
