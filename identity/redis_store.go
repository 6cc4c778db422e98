package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound is returned by Persister.Load when nothing is stored for the key.
	ErrNotFound = errors.New("identity profile not found")
	// ErrRedisUnavailable wraps Redis transport failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// Persister stores profiles between process restarts. Implementations must treat
// Delete of a missing key as success.
type Persister interface {
	Save(ctx context.Context, clientKey string, id *Identity) error
	Load(ctx context.Context, clientKey string) (*Identity, error)
	Delete(ctx context.Context, clientKey string) error
}

// RedisStore is a [Persister] backed by Redis. One key per client:
// <prefix>:identity:<clientKey>.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStore creates a store. A ttl of zero keeps profiles until deleted.
func NewRedisStore(rdb redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "gg"
	}
	return &RedisStore{
		redis:  rdb,
		prefix: prefix,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *RedisStore) key(clientKey string) string {
	return s.prefix + ":identity:" + clientKey
}

// Save writes the profile with the configured TTL.
//
//	Performance: 1 Redis SET.
func (s *RedisStore) Save(ctx context.Context, clientKey string, id *Identity) error {
	data, err := Encode(id, s.now().Unix())
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(clientKey), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Load returns the stored profile, [ErrNotFound] when absent, or [ErrCorruptProfile]
// when the blob cannot be decoded. Corrupt blobs are deleted.
//
//	Performance: 1 Redis GET (+1 DEL on corruption).
func (s *RedisStore) Load(ctx context.Context, clientKey string) (*Identity, error) {
	key := s.key(clientKey)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	id, _, err := Decode(data)
	if err != nil {
		s.redis.Del(ctx, key)
		return nil, err
	}
	return id, nil
}

// Delete removes the stored profile. Missing keys are not an error.
//
//	Performance: 1 Redis DEL.
func (s *RedisStore) Delete(ctx context.Context, clientKey string) error {
	if err := s.redis.Del(ctx, s.key(clientKey)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *RedisStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
