package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"mercator-hq/vaultgate/pkg/audit"
)

// MemoryStorage keeps records in process memory. Records are lost on
// restart; use it when the audit trail only needs to back metrics and
// debugging.
type MemoryStorage struct {
	mu      sync.RWMutex
	records []*audit.Record
	limits  Limits
	closed  bool
}

// NewMemoryStorage creates an empty in-memory backend.
func NewMemoryStorage(limits Limits) *MemoryStorage {
	return &MemoryStorage{limits: limits}
}

// Store appends a copy of the record.
func (s *MemoryStorage) Store(_ context.Context, record *audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return audit.NewStorageError("memory", "store", audit.ErrClosed)
	}
	s.records = append(s.records, clone(record))
	return nil
}

// Query returns matching records, newest first.
func (s *MemoryStorage) Query(ctx context.Context, query *audit.Query) ([]*audit.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, audit.NewStorageError("memory", "query", err)
	}
	if query == nil {
		query = &audit.Query{}
	}

	s.mu.RLock()
	var matched []*audit.Record
	for _, record := range s.records {
		if matches(record, query) {
			matched = append(matched, clone(record))
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	if query.Offset >= len(matched) {
		return []*audit.Record{}, nil
	}
	matched = matched[query.Offset:]

	if limit := s.limits.apply(query.Limit); limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

// Count returns the number of matching records, ignoring limit and offset.
func (s *MemoryStorage) Count(_ context.Context, query *audit.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, record := range s.records {
		if matches(record, query) {
			n++
		}
	}
	return n, nil
}

// DeleteOlderThan removes records with a timestamp before cutoff.
func (s *MemoryStorage) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	var deleted int64
	for _, record := range s.records {
		if record.Timestamp.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, record)
	}
	// Drop references held past the new length.
	for i := len(kept); i < len(s.records); i++ {
		s.records[i] = nil
	}
	s.records = kept
	return deleted, nil
}

// Close discards every record. Later writes fail with audit.ErrClosed.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	s.closed = true
	return nil
}

// Size returns the number of stored records.
func (s *MemoryStorage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func matches(record *audit.Record, query *audit.Query) bool {
	if query == nil {
		return true
	}
	if query.Service != "" && record.Service != query.Service {
		return false
	}
	if query.Outcome != "" && record.Outcome != query.Outcome {
		return false
	}
	if query.Since != nil && record.Timestamp.Before(*query.Since) {
		return false
	}
	if query.Until != nil && !record.Timestamp.Before(*query.Until) {
		return false
	}
	return true
}

func clone(record *audit.Record) *audit.Record {
	c := *record
	if record.SecretKeys != nil {
		c.SecretKeys = append([]string(nil), record.SecretKeys...)
	}
	return &c
}
