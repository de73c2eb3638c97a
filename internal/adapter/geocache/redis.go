package geocache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/couchcryptid/outage-alert-service/internal/domain"
)

// RedisOptions configures the shared cache connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Timeout  time.Duration
}

// RedisBackend shares cached responses between service replicas.
type RedisBackend struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisClient opens a client with the given options. It does not dial.
func NewRedisClient(o RedisOptions) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         o.Addr,
		Password:     o.Password,
		DB:           o.DB,
		DialTimeout:  o.Timeout,
		ReadTimeout:  o.Timeout,
		WriteTimeout: o.Timeout,
	})
}

// NewRedisBackend stores entries in rdb, expiring them after ttl.
func NewRedisBackend(rdb *redis.Client, ttl time.Duration) *RedisBackend {
	return &RedisBackend{rdb: rdb, ttl: ttl}
}

func (r *RedisBackend) Name() string { return "redis" }

// redisEntry keeps the raw provider body, which GeocodeResponse does not marshal.
type redisEntry struct {
	Status  string                 `json:"status"`
	Results []domain.GeocodeResult `json:"results"`
	Raw     json.RawMessage        `json:"raw,omitempty"`
}

func (r *RedisBackend) Get(ctx context.Context, key string) (domain.GeocodeResponse, bool, error) {
	val, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.GeocodeResponse{}, false, nil
	}
	if err != nil {
		return domain.GeocodeResponse{}, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	var e redisEntry
	if err := json.Unmarshal(val, &e); err != nil {
		return domain.GeocodeResponse{}, false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return domain.GeocodeResponse{Status: e.Status, Results: e.Results, Raw: e.Raw}, true, nil
}

func (r *RedisBackend) Set(ctx context.Context, key string, resp domain.GeocodeResponse) error {
	b, err := json.Marshal(redisEntry{Status: resp.Status, Results: resp.Results, Raw: resp.Raw})
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.rdb.Set(ctx, key, b, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Ping reports whether the Redis server is reachable.
func (r *RedisBackend) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}
