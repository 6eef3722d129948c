// Package db persists QC metric records in SQLite for longitudinal trend
// reporting across scan dates and scanners.
package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the metrics database connection.
type DB struct {
	*sql.DB
}

// New opens (creating if necessary) the metrics database at path and
// applies any pending schema migrations.
func New(path string) (*DB, error) {
	sqldb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open metrics db %s: %w", path, err)
	}

	db := &DB{sqldb}
	if err := db.MigrateUp(); err != nil {
		sqldb.Close()
		return nil, err
	}
	return db, nil
}

// Open opens the database without applying migrations, for migration
// tooling that manages the schema version explicitly.
func Open(path string) (*DB, error) {
	sqldb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open metrics db %s: %w", path, err)
	}
	return &DB{sqldb}, nil
}
