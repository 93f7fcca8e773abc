package store

import (
	"encoding/json"
	"fmt"
	"time"
)

// Snapshot represents a point-in-time state of an aggregate
type Snapshot struct {
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	Version       int             `json:"version"`
	State         json.RawMessage `json:"state"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Codec converts aggregates to snapshots and back. Every backend stores
// the snapshot, never the live value, so a loaded aggregate never shares
// memory with a saved one.
type Codec[T Aggregate] struct {
	AggregateType string
	Now           func() time.Time
}

func NewCodec[T Aggregate](aggregateType string) Codec[T] {
	return Codec[T]{AggregateType: aggregateType, Now: time.Now}
}

// Snapshot captures agg.
func (c Codec[T]) Snapshot(agg T) (Snapshot, error) {
	if agg.GetID() == "" {
		return Snapshot{}, ErrNoID
	}
	state, err := json.Marshal(agg)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to encode %s %s: %w", c.AggregateType, agg.GetID(), err)
	}
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return Snapshot{
		AggregateID:   agg.GetID(),
		AggregateType: c.AggregateType,
		Version:       agg.GetVersion(),
		State:         state,
		CreatedAt:     now().UTC(),
	}, nil
}

// Restore rebuilds the aggregate held by s.
func (c Codec[T]) Restore(s Snapshot) (T, error) {
	var agg T
	if err := json.Unmarshal(s.State, &agg); err != nil {
		return agg, fmt.Errorf("failed to decode %s %s: %w", c.AggregateType, s.AggregateID, err)
	}
	return agg, nil
}

// Marshal encodes agg as a snapshot document for key/value backends.
func (c Codec[T]) Marshal(agg T) ([]byte, error) {
	s, err := c.Snapshot(agg)
	if err != nil {
		return nil, err
	}
	return json.Marshal(s)
}

// Unmarshal decodes a snapshot document written by Marshal.
func (c Codec[T]) Unmarshal(data []byte) (T, Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		var zero T
		return zero, s, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	agg, err := c.Restore(s)
	return agg, s, err
}

// checkVersion rejects saves that would move a stored aggregate backwards.
func checkVersion(stored, next int) error {
	if stored > next {
		return fmt.Errorf("%w: stored %d, saving %d", ErrStaleVersion, stored, next)
	}
	return nil
}
