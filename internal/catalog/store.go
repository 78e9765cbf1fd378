package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the hash holding runtime-added destinations.
const DefaultRedisKey = "tripfund:destinations"

// MemoryStore keeps entries in process memory. Useful for tests and single-instance runs.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
	order   []string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

// AddIfAbsent implements Store.
func (s *MemoryStore) AddIfAbsent(_ context.Context, entry Entry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[entry.Profile.Name]; ok {
		return false, nil
	}
	s.entries[entry.Profile.Name] = entry
	s.order = append(s.order, entry.Profile.Name)
	return true, nil
}

// LoadAll implements Store.
func (s *MemoryStore) LoadAll(_ context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.entries[name])
	}
	return out, nil
}

// RedisStore shares runtime-added destinations between bot instances through a Redis hash.
// HSETNX makes the append-if-absent atomic without any client-side locking.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore creates a store backed by the given client.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("unable to ping redis: %w", err)
	}
	return client, nil
}

// AddIfAbsent implements Store.
func (s *RedisStore) AddIfAbsent(ctx context.Context, entry Entry) (bool, error) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return false, fmt.Errorf("failed to encode destination: %w", err)
	}
	written, err := s.client.HSetNX(ctx, s.key, entry.Profile.Name, payload).Result()
	if err != nil {
		return false, fmt.Errorf("failed to store destination: %w", err)
	}
	return written, nil
}

// LoadAll implements Store. Entries that fail to decode are skipped.
func (s *RedisStore) LoadAll(ctx context.Context) ([]Entry, error) {
	raw, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load destinations: %w", err)
	}
	entries := make([]Entry, 0, len(raw))
	for name, value := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(value), &e); err != nil {
			continue
		}
		e.Profile.Name = name
		entries = append(entries, e)
	}
	slices.SortFunc(entries, func(a, b Entry) int { return strings.Compare(a.Profile.Name, b.Profile.Name) })
	return entries, nil
}
