package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/docledger/document-registry-backend/interfaces"
)

// RedisStore keeps the history in Redis so multiple service instances share
// one recent-activity view. The value under the key is the same JSON array
// the file store writes; the cooperative single-writer model makes a plain
// read-modify-write sufficient.
type RedisStore struct {
	client *redis.Client
	key    string
	cap    int
	log    *slog.Logger
}

// NewRedisStore creates a history store on the given Redis connection. key
// namespaces the history so several deployments can share one Redis.
func NewRedisStore(client *redis.Client, key string, log *slog.Logger) *RedisStore {
	return &RedisStore{client: client, key: key, cap: DefaultCap, log: log}
}

func (s *RedisStore) Remember(ctx context.Context, entry interfaces.HistoryEntry) error {
	entries, err := s.load(ctx)
	if err != nil {
		return err
	}
	return s.save(ctx, prepend(entries, entry, s.cap))
}

func (s *RedisStore) List(ctx context.Context) ([]interfaces.HistoryEntry, error) {
	return s.load(ctx)
}

func (s *RedisStore) Remove(ctx context.Context, docID string, digest interfaces.Digest) error {
	entries, err := s.load(ctx)
	if err != nil {
		return err
	}
	return s.save(ctx, withoutPair(entries, docID, digest))
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	return nil
}

func (s *RedisStore) load(ctx context.Context) ([]interfaces.HistoryEntry, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}

	var entries []interfaces.HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.log.Warn("discarding unreadable history key", "err", err, "key", s.key)
		return nil, nil
	}
	return entries, nil
}

func (s *RedisStore) save(ctx context.Context, entries []interfaces.HistoryEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("writing history: %w", err)
	}
	return nil
}
