package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Client wraps redis.Client but fails safe by swallowing connectivity errors.
// A nil *Client is a valid, always-missing cache.
type Client struct {
	client *redis.Client
	log    zerolog.Logger
}

// New creates a new Redis client.
func New(addr, password string, db int, log zerolog.Logger) *Client {
	opts := &redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}
	return NewFromClient(redis.NewClient(opts), log)
}

// NewFromClient wraps an existing redis client.
func NewFromClient(rdb *redis.Client, log zerolog.Logger) *Client {
	return &Client{client: rdb, log: log.With().Str("component", "cache").Logger()}
}

// Ping checks connectivity. Unlike the other methods it reports the error.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// Get returns value or nil if missing or redis unavailable.
func (c *Client) Get(ctx context.Context, key string) []byte {
	if c == nil || c.client == nil {
		return nil
	}
	res, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		c.log.Debug().Err(err).Str("key", key).Msg("cache get failed")
		return nil
	}
	return res
}

// Set stores value with TTL, ignoring redis errors.
func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.log.Debug().Err(err).Str("key", key).Msg("cache set failed")
	}
}

// Delete removes keys, ignoring redis errors.
func (c *Client) Delete(ctx context.Context, keys ...string) {
	if c == nil || c.client == nil || len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log.Debug().Err(err).Strs("keys", keys).Msg("cache delete failed")
	}
}

// GetJSON decodes the cached value into dest and reports whether it was found.
// Undecodable entries are evicted and reported as misses.
func (c *Client) GetJSON(ctx context.Context, key string, dest interface{}) bool {
	raw := c.Get(ctx, key)
	if raw == nil {
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.Delete(ctx, key)
		return false
	}
	return true
}

// versionTTL bounds how long an invalidation counter outlives its last bump.
const versionTTL = 24 * time.Hour

var errStaleVersion = errors.New("cache version moved")

func versionKey(key string) string {
	return key + ":version"
}

// Version returns the invalidation counter for key. Read it before loading
// the value from the source of truth and hand it to SetJSONIfVersion.
func (c *Client) Version(ctx context.Context, key string) int64 {
	if c == nil || c.client == nil {
		return 0
	}
	v, err := c.client.Get(ctx, versionKey(key)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.log.Debug().Err(err).Str("key", key).Msg("cache version read failed")
		return -1
	}
	return v
}

// SetJSONIfVersion stores value under key only while key's counter still
// equals version, so a load that raced an Invalidate is dropped. It reports
// whether the value was stored.
func (c *Client) SetJSONIfVersion(ctx context.Context, key string, version int64, value interface{}, ttl time.Duration) bool {
	if c == nil || c.client == nil || version < 0 {
		return false
	}
	raw, err := json.Marshal(value)
	if err != nil {
		c.log.Debug().Err(err).Str("key", key).Msg("cache encode failed")
		return false
	}

	vkey := versionKey(key)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, vkey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return errStaleVersion
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, ttl)
			return nil
		})
		return err
	}, vkey)
	switch {
	case err == nil:
		return true
	case errors.Is(err, errStaleVersion), errors.Is(err, redis.TxFailedErr):
		return false
	default:
		c.log.Debug().Err(err).Str("key", key).Msg("cache set failed")
		return false
	}
}

// Invalidate bumps the counter of every key and removes the keys in one
// transaction.
func (c *Client) Invalidate(ctx context.Context, keys ...string) {
	if c == nil || c.client == nil || len(keys) == 0 {
		return
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range keys {
			pipe.Incr(ctx, versionKey(key))
			pipe.Expire(ctx, versionKey(key), versionTTL)
		}
		pipe.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		c.log.Debug().Err(err).Strs("keys", keys).Msg("cache invalidate failed")
	}
}

// Close releases the connection pool.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
