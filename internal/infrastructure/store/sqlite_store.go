package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// NewSQLiteStore stores aggregates in a SQLite database file.
func NewSQLiteStore[T Aggregate](db *sql.DB, aggregateType string) *SQLStore[T] {
	return newSQLStore[T](db, sqliteDialect, aggregateType)
}

// OpenSQLite opens (or creates) the database at path. SQLite allows a single
// writer, so the pool is kept to one connection.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open sqlite %s: %w", path, err)
	}

	configurePool(db, 1)
	return db, nil
}
