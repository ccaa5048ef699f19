package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/tether/pkg/domain"
)

// Store implements ports.TableStore and ports.SnapshotStore in memory.
// Safe for concurrent use.
type Store struct {
	tables    map[string]domain.TableContent
	snapshots map[string]domain.Snapshot
	mu        sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		tables:    make(map[string]domain.TableContent),
		snapshots: make(map[string]domain.Snapshot),
	}
}

// SaveTable stores a copy of table.
func (s *Store) SaveTable(ctx context.Context, instanceID string, table domain.TableContent) error {
	copied := table.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[instanceID] = copied
	return nil
}

// LoadTable returns a copy so callers can't mutate the stored table.
func (s *Store) LoadTable(ctx context.Context, instanceID string) (domain.TableContent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	table, ok := s.tables[instanceID]
	if !ok {
		return domain.TableContent{}, domain.ErrTableNotFound
	}
	return table.Clone(), nil
}

// DeleteTable removes the table.
func (s *Store) DeleteTable(ctx context.Context, instanceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tables, instanceID)
	return nil
}

// SaveSnapshot stores a copy of snap.
func (s *Store) SaveSnapshot(ctx context.Context, instanceID string, snap domain.Snapshot) error {
	copied := snap.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[instanceID] = copied
	return nil
}

// LoadSnapshot returns a copy of the stored snapshot.
func (s *Store) LoadSnapshot(ctx context.Context, instanceID string) (domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[instanceID]
	if !ok {
		return domain.Snapshot{}, domain.ErrSnapshotNotFound
	}
	return snap.Clone(), nil
}

// DeleteSnapshot removes the snapshot.
func (s *Store) DeleteSnapshot(ctx context.Context, instanceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, instanceID)
	return nil
}

// ListSnapshots returns the stored instance IDs, sorted.
func (s *Store) ListSnapshots(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.snapshots))
	for id := range s.snapshots {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
