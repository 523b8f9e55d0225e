package mappingcache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/score"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisTier is the optional shared cache tier. Every failure is treated as
// a cache miss; mapping proceeds uncached when Redis is down.
type RedisTier struct {
	client    *redis.Client
	keyPrefix string
	log       zerolog.Logger
}

// NewRedisTier connects to Redis and verifies the connection.
func NewRedisTier(addr, password string, db int, keyPrefix string, log zerolog.Logger) (*RedisTier, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	if keyPrefix == "" {
		keyPrefix = "ivrmap"
	}

	return &RedisTier{
		client:    client,
		keyPrefix: keyPrefix,
		log:       log.With().Str("component", "mapping_cache_redis").Logger(),
	}, nil
}

func (t *RedisTier) key(hash string) string {
	return t.keyPrefix + ":mapping:" + hash
}

// Get fetches a cached result set. Any error is a miss.
func (t *RedisTier) Get(ctx context.Context, hash string) ([]score.ScoredMapping, bool) {
	data, err := t.client.Get(ctx, t.key(hash)).Bytes()
	if err != nil {
		if err != redis.Nil {
			t.log.Debug().Err(err).Msg("Redis cache read failed, treating as miss")
		}
		return nil, false
	}

	var result []score.ScoredMapping
	if err := json.Unmarshal(data, &result); err != nil {
		t.log.Warn().Err(err).Msg("Corrupt cache entry in Redis, treating as miss")
		return nil, false
	}
	return result, true
}

// Put stores a result set with TTL. Failures are logged and dropped.
func (t *RedisTier) Put(ctx context.Context, hash string, result []score.ScoredMapping, ttl time.Duration) {
	data, err := json.Marshal(result)
	if err != nil {
		t.log.Warn().Err(err).Msg("Failed to marshal cache entry for Redis")
		return
	}
	if err := t.client.Set(ctx, t.key(hash), data, ttl).Err(); err != nil {
		t.log.Debug().Err(err).Msg("Redis cache write failed, entry dropped")
	}
}

// Delete removes a cached entry.
func (t *RedisTier) Delete(ctx context.Context, hash string) {
	if err := t.client.Del(ctx, t.key(hash)).Err(); err != nil {
		t.log.Debug().Err(err).Msg("Redis cache delete failed")
	}
}

// Close releases the Redis connection.
func (t *RedisTier) Close() error {
	return t.client.Close()
}
