package provider

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	coreredis "github.com/artdesignbySF/MadameSatoshi/db/redis"
	"github.com/artdesignbySF/MadameSatoshi/pkg/providers"
)

// RedisStore implements providers.LedgerStore on Redis. Values are
// stored as plain strings; integers and booleans are formatted with
// strconv so the keys stay readable in redis-cli.
type RedisStore struct {
	redis  *coreredis.Client
	prefix string
	logger zerolog.Logger
}

// NewRedisStore creates a ledger store. prefix namespaces every key so
// several deployments can share one Redis database.
func NewRedisStore(redisClient *coreredis.Client, prefix string, logger zerolog.Logger) *RedisStore {
	return &RedisStore{
		redis:  redisClient,
		prefix: prefix,
		logger: logger.With().Str("component", "redis_store").Logger(),
	}
}

func (s *RedisStore) key(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}

// GetInt64 reads an integer value. A missing key reads as 0 with
// found=false.
func (s *RedisStore) GetInt64(ctx context.Context, key string) (int64, bool, error) {
	data, err := s.redis.Get(ctx, s.key(key))
	if err != nil {
		if errors.Is(err, coreredis.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to read %s: %w", key, err)
	}

	value, err := strconv.ParseInt(data, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt integer at %s: %w", key, err)
	}
	return value, true, nil
}

// SetInt64 writes an integer value without expiry.
func (s *RedisStore) SetInt64(ctx context.Context, key string, value int64) error {
	if err := s.redis.Set(ctx, s.key(key), strconv.FormatInt(value, 10), 0); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// GetBool reads a flag. A missing key reads as false.
func (s *RedisStore) GetBool(ctx context.Context, key string) (bool, error) {
	data, err := s.redis.Get(ctx, s.key(key))
	if err != nil {
		if errors.Is(err, coreredis.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data == "true" || data == "1", nil
}

// SetBool writes a flag without expiry.
func (s *RedisStore) SetBool(ctx context.Context, key string, value bool) error {
	if err := s.redis.Set(ctx, s.key(key), strconv.FormatBool(value), 0); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// GetString reads a string value. A missing key reads as "" with
// found=false.
func (s *RedisStore) GetString(ctx context.Context, key string) (string, bool, error) {
	data, err := s.redis.Get(ctx, s.key(key))
	if err != nil {
		if errors.Is(err, coreredis.ErrNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, true, nil
}

// SetString writes a string value without expiry.
func (s *RedisStore) SetString(ctx context.Context, key string, value string) error {
	if err := s.redis.Set(ctx, s.key(key), value, 0); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Delete removes a key. Deleting a missing key is not an error.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.redis.Delete(ctx, s.key(key)); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

var _ providers.LedgerStore = (*RedisStore)(nil)
