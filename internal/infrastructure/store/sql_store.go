package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// dialect holds the statements that differ between SQL backends.
type dialect struct {
	name   string
	schema string
	get    string
	upsert string
}

var postgresDialect = dialect{
	name: "postgres",
	schema: `CREATE TABLE IF NOT EXISTS rooms (
		id TEXT PRIMARY KEY,
		aggregate_type TEXT NOT NULL,
		version INTEGER NOT NULL,
		state JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	get: `SELECT aggregate_type, version, state, updated_at FROM rooms WHERE id = $1`,
	upsert: `INSERT INTO rooms (id, aggregate_type, version, state, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			version = EXCLUDED.version,
			state = EXCLUDED.state,
			updated_at = EXCLUDED.updated_at
		WHERE rooms.version <= EXCLUDED.version`,
}

var sqliteDialect = dialect{
	name: "sqlite",
	schema: `CREATE TABLE IF NOT EXISTS rooms (
		id TEXT PRIMARY KEY,
		aggregate_type TEXT NOT NULL,
		version INTEGER NOT NULL,
		state TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	get: `SELECT aggregate_type, version, state, updated_at FROM rooms WHERE id = ?`,
	upsert: `INSERT INTO rooms (id, aggregate_type, version, state, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			version = excluded.version,
			state = excluded.state,
			updated_at = excluded.updated_at
		WHERE rooms.version <= excluded.version`,
}

// SQLStore keeps one snapshot row per aggregate in a "rooms" table.
type SQLStore[T Aggregate] struct {
	db      *sql.DB
	dialect dialect
	codec   Codec[T]
}

func newSQLStore[T Aggregate](db *sql.DB, d dialect, aggregateType string) *SQLStore[T] {
	return &SQLStore[T]{db: db, dialect: d, codec: NewCodec[T](aggregateType)}
}

// EnsureSchema creates the rooms table if it does not exist yet.
func (s *SQLStore[T]) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.schema); err != nil {
		return fmt.Errorf("failed to create %s schema: %w", s.dialect.name, err)
	}
	return nil
}

func (s *SQLStore[T]) GetByID(ctx context.Context, id string) (T, bool, error) {
	var (
		zero  T
		snap  = Snapshot{AggregateID: id}
		state []byte
	)
	err := s.db.QueryRowContext(ctx, s.dialect.get, id).
		Scan(&snap.AggregateType, &snap.Version, &state, &snap.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("failed to load %s: %w", id, err)
	}
	snap.State = state

	agg, err := s.codec.Restore(snap)
	if err != nil {
		return zero, false, err
	}
	return agg, true, nil
}

func (s *SQLStore[T]) Save(ctx context.Context, agg T) error {
	snap, err := s.codec.Snapshot(agg)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, s.dialect.upsert,
		snap.AggregateID,
		snap.AggregateType,
		snap.Version,
		string(snap.State),
		snap.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", snap.AggregateID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", snap.AggregateID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s version %d", ErrStaleVersion, snap.AggregateID, snap.Version)
	}
	return nil
}

// configurePool applies the pool limits used for every SQL backend.
func configurePool(db *sql.DB, maxOpen int) {
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(min(maxOpen, 5))
	db.SetConnMaxLifetime(5 * time.Minute)
}
