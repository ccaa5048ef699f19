package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/tether/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "tether:"

// Store implements ports.TableStore and ports.SnapshotStore using Redis.
// Snapshots are indexed in a sorted set scored by expiry so ListSnapshots can
// prune lazily.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for snapshots and tables.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Client returns the underlying client, for sharing with a Locker.
func (s *Store) Client() *backend.Client {
	return s.client
}

func (s *Store) snapshotKey(instanceID string) string {
	return s.prefix + "snapshot:" + instanceID
}

func (s *Store) tableKey(instanceID string) string {
	return s.prefix + "table:" + instanceID
}

func (s *Store) indexKey() string {
	return s.prefix + "snapshot:index"
}

// SaveTable persists the table as JSON.
func (s *Store) SaveTable(ctx context.Context, instanceID string, table domain.TableContent) error {
	data, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("failed to marshal table: %w", err)
	}
	if err := s.client.Set(ctx, s.tableKey(instanceID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save table to redis: %w", err)
	}
	return nil
}

// LoadTable retrieves the table.
func (s *Store) LoadTable(ctx context.Context, instanceID string) (domain.TableContent, error) {
	val, err := s.client.Get(ctx, s.tableKey(instanceID)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return domain.TableContent{}, domain.ErrTableNotFound
		}
		return domain.TableContent{}, fmt.Errorf("failed to get table from redis: %w", err)
	}

	table, err := domain.DecodeTableContent(val)
	if err != nil {
		return domain.TableContent{}, fmt.Errorf("failed to unmarshal table: %w", err)
	}
	return table, nil
}

// DeleteTable removes the table.
func (s *Store) DeleteTable(ctx context.Context, instanceID string) error {
	return s.client.Del(ctx, s.tableKey(instanceID)).Err()
}

// SaveSnapshot persists the snapshot and records it in the index.
func (s *Store) SaveSnapshot(ctx context.Context, instanceID string, snap domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.snapshotKey(instanceID), data, s.ttl)

	// Score = expiry. Without a TTL entries never age out of the index.
	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = 4102444800 // 2100-01-01
	}
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  score,
		Member: instanceID,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save snapshot to redis: %w", err)
	}
	return nil
}

// LoadSnapshot retrieves the snapshot.
func (s *Store) LoadSnapshot(ctx context.Context, instanceID string) (domain.Snapshot, error) {
	val, err := s.client.Get(ctx, s.snapshotKey(instanceID)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return domain.Snapshot{}, domain.ErrSnapshotNotFound
		}
		return domain.Snapshot{}, fmt.Errorf("failed to get snapshot from redis: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal([]byte(val), &snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return snap, nil
}

// DeleteSnapshot removes the snapshot and its index entry.
func (s *Store) DeleteSnapshot(ctx context.Context, instanceID string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.snapshotKey(instanceID))
	pipe.ZRem(ctx, s.indexKey(), instanceID)
	_, err := pipe.Exec(ctx)
	return err
}

// ListSnapshots returns the instances with a live snapshot, pruning expired index
// entries first.
func (s *Store) ListSnapshots(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired snapshots: %w", err)
	}

	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	return ids, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
