package store

import (
	"context"
	"errors"
)

var (
	// ErrStaleVersion is returned when a save would replace a newer stored version.
	ErrStaleVersion = errors.New("stored aggregate has a newer version")
	// ErrNoID is returned when an aggregate without id is saved.
	ErrNoID = errors.New("aggregate has no id")
)

// Aggregate is anything that can be stored as a versioned snapshot.
type Aggregate interface {
	GetID() string
	GetVersion() int
}

// Store loads and saves aggregates by id. GetByID reports false when no
// aggregate is stored under id. Save is atomic with respect to concurrent
// reads of the same id.
type Store[T Aggregate] interface {
	GetByID(ctx context.Context, id string) (T, bool, error)
	Save(ctx context.Context, agg T) error
}
