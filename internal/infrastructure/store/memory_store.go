package store

import (
	"context"
	"sync"
)

type memoryRecord struct {
	version int
	data    []byte
}

// MemoryStore keeps snapshots in process memory.
type MemoryStore[T Aggregate] struct {
	mu      sync.RWMutex
	records map[string]memoryRecord
	codec   Codec[T]
}

func NewMemoryStore[T Aggregate](aggregateType string) *MemoryStore[T] {
	return &MemoryStore[T]{
		records: make(map[string]memoryRecord),
		codec:   NewCodec[T](aggregateType),
	}
}

func (s *MemoryStore[T]) GetByID(ctx context.Context, id string) (T, bool, error) {
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()

	if !ok {
		var zero T
		return zero, false, nil
	}
	agg, _, err := s.codec.Unmarshal(rec.data)
	if err != nil {
		return agg, false, err
	}
	return agg, true, nil
}

func (s *MemoryStore[T]) Save(ctx context.Context, agg T) error {
	data, err := s.codec.Marshal(agg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[agg.GetID()]; ok {
		if err := checkVersion(existing.version, agg.GetVersion()); err != nil {
			return err
		}
	}
	s.records[agg.GetID()] = memoryRecord{version: agg.GetVersion(), data: data}
	return nil
}

// Len returns the number of stored aggregates.
func (s *MemoryStore[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
