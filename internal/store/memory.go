package store

import (
	"context"
	"sync"

	"corral/internal/fleet"
)

// MemoryStore is an in-process FleetStore for single-node deployments and
// tests. Revision semantics match PostgresStore exactly.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*StatusRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*StatusRecord)}
}

func (s *MemoryStore) Get(_ context.Context, clusterName string) (*StatusRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[clusterName]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) Put(_ context.Context, clusterName string, status fleet.Status, priorRevision int64) (*StatusRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.records[clusterName]
	switch {
	case cur == nil && priorRevision != 0:
		return nil, ErrStaleWrite
	case cur != nil && cur.Revision != priorRevision:
		return nil, ErrStaleWrite
	}

	ts := now()
	if cur != nil && ts.Before(cur.LastUpdatedAt) {
		// Clock skew must not regress the timestamp.
		ts = cur.LastUpdatedAt
	}

	rec := &StatusRecord{
		ClusterName:   clusterName,
		Status:        status,
		LastUpdatedAt: ts,
		Revision:      priorRevision + 1,
	}
	s.records[clusterName] = rec
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) Delete(_ context.Context, clusterName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, clusterName)
	return nil
}

func (s *MemoryStore) Close() {}
