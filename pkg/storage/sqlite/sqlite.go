// Package sqlite provides a SQLite-backed storage driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/recall/pkg/storage/sqldriver"
)

// Driver implements storage.Driver using SQLite via the shared SQL driver.
type Driver struct {
	*sqldriver.SQLDriver
}

// NewDriver creates a new SQLite-backed store.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewDriver(ctx context.Context, dbPath string) (*Driver, error) {
	// Open the database using the github.com/mattn/go-sqlite3 driver (registered as "sqlite3")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to ":memory:" is a distinct database, and SQLite
	// serializes writers anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	sd, err := sqldriver.New(ctx, db, sqldriver.SQLite)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Driver{SQLDriver: sd}, nil
}
