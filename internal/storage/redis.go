package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// defaultRedisTimeout bounds every Redis round trip.
const defaultRedisTimeout = 5 * time.Second

// RedisOptions configures a RedisDB.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Timeout  time.Duration
}

// RedisDB implements DB on top of a Redis server. Keys are stored verbatim;
// use a Folder to namespace them.
type RedisDB struct {
	client  *goredis.Client
	timeout time.Duration
}

// NewRedis connects to Redis and verifies connectivity.
func NewRedis(opts RedisOptions) (*RedisDB, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	db := NewRedisFromClient(client, opts.Timeout)

	ctx, cancel := db.ctx()
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", opts.Addr, err)
	}
	return db, nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *goredis.Client, timeout time.Duration) *RedisDB {
	if timeout <= 0 {
		timeout = defaultRedisTimeout
	}
	return &RedisDB{client: client, timeout: timeout}
}

func (r *RedisDB) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.timeout)
}

// Get retrieves a value by key. Returns ErrNotFound if the key does not exist.
func (r *RedisDB) Get(key []byte) ([]byte, error) {
	ctx, cancel := r.ctx()
	defer cancel()
	val, err := r.client.Get(ctx, string(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return val, nil
}

// Put stores a key-value pair. SET replaces the value atomically.
func (r *RedisDB) Put(key, value []byte) error {
	ctx, cancel := r.ctx()
	defer cancel()
	if err := r.client.Set(ctx, string(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis put: %w", err)
	}
	return nil
}

// Delete removes a key.
func (r *RedisDB) Delete(key []byte) error {
	ctx, cancel := r.ctx()
	defer cancel()
	if err := r.client.Del(ctx, string(key)).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

// Has checks if a key exists.
func (r *RedisDB) Has(key []byte) (bool, error) {
	ctx, cancel := r.ctx()
	defer cancel()
	n, err := r.client.Exists(ctx, string(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

// ForEach iterates over all keys with the given prefix in key order.
func (r *RedisDB) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	ctx, cancel := r.ctx()
	defer cancel()

	var keys []string
	iter := r.client.Scan(ctx, 0, escapeGlob(string(prefix))+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	sort.Strings(keys)

	for _, k := range keys {
		val, err := r.client.Get(ctx, k).Bytes()
		if errors.Is(err, goredis.Nil) {
			continue // Deleted since the scan.
		}
		if err != nil {
			return fmt.Errorf("redis get: %w", err)
		}
		if err := fn([]byte(k), val); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the client.
func (r *RedisDB) Close() error {
	return r.client.Close()
}

// escapeGlob escapes Redis glob metacharacters in a literal prefix.
func escapeGlob(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', ']', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
