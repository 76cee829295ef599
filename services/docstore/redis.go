package docstore

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/upb/retrieval-plane/models"
	"github.com/upb/retrieval-plane/services"
)

// HashClient is the subset of *redis.Client the redis store needs.
type HashClient interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	HKeys(ctx context.Context, key string) *redis.StringSliceCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// RedisStore keeps a collection in one Redis hash: field is the entry id,
// value is the JSON encoded {doc, embedding} record.
type RedisStore struct {
	client HashClient
	key    string
	logger *zap.Logger
}

// NewRedisStore creates a store over the hash at key.
func NewRedisStore(client HashClient, key string, logger *zap.Logger) *RedisStore {
	return &RedisStore{client: client, key: key, logger: logger}
}

// Load fetches the hash with a single HGETALL. A hash that does not exist
// is an empty collection.
func (s *RedisStore) Load(ctx context.Context) (map[string]models.StoredEntry, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, services.NewStoreUnavailableError("failed to read redis hash", err).
			WithDetail("key", s.key)
	}

	entries := make(map[string]models.StoredEntry, len(fields))
	for id, value := range fields {
		entry, err := DecodeEntry(id, []byte(value))
		if err != nil {
			s.logger.Error("redis hash holds a corrupt entry", zap.String("key", s.key), zap.String("id", id), zap.Error(err))
			return nil, err
		}
		entries[id] = entry
	}
	return entries, nil
}

func (s *RedisStore) Keys(ctx context.Context) (map[string]struct{}, error) {
	ids, err := s.client.HKeys(ctx, s.key).Result()
	if err != nil {
		return nil, services.NewStoreUnavailableError("failed to list redis hash fields", err).
			WithDetail("key", s.key)
	}
	keys := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		keys[id] = struct{}{}
	}
	return keys, nil
}

// Put writes all entries with one HSET.
func (s *RedisStore) Put(ctx context.Context, entries map[string]models.StoredEntry) error {
	if len(entries) == 0 {
		return nil
	}

	values := make([]interface{}, 0, 2*len(entries))
	for id, entry := range entries {
		raw, err := EncodeEntry(entry)
		if err != nil {
			return services.WrapInternal("failed to encode entry", err)
		}
		values = append(values, id, string(raw))
	}

	if err := s.client.HSet(ctx, s.key, values...).Err(); err != nil {
		return services.NewStoreUnavailableError("failed to write redis hash", err).
			WithDetail("key", s.key)
	}
	return nil
}
