package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// NewPostgresStore stores aggregates in PostgreSQL.
func NewPostgresStore[T Aggregate](db *sql.DB, aggregateType string) *SQLStore[T] {
	return newSQLStore[T](db, postgresDialect, aggregateType)
}

// ConnectPostgres establishes a connection to PostgreSQL
func ConnectPostgres(ctx context.Context, connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}

	configurePool(db, 25)
	return db, nil
}
