package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options selects the Redis server. URL wins over Addr.
type Options struct {
	URL      string
	Addr     string
	Username string
	Password string
}

// Enabled reports whether any Redis location is configured.
func (o Options) Enabled() bool {
	return o.URL != "" || o.Addr != ""
}

// Store is a thin byte cache over a Redis client.
type Store struct {
	client *redis.Client
	prefix string
}

// Connect creates the client and pings it:
// - URL (redis:// or rediss:// for TLS)
// - or a plain host:port Addr
func Connect(ctx context.Context, o Options, prefix string) (*Store, error) {
	var client *redis.Client
	switch {
	case o.URL != "":
		opt, err := redis.ParseURL(o.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
		}
		client = redis.NewClient(opt)
	case o.Addr != "":
		client = redis.NewClient(&redis.Options{
			Addr:     o.Addr,
			Username: o.Username,
			Password: o.Password,
		})
	default:
		return nil, errors.New("redis is not configured")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Store{client: client, prefix: prefix}, nil
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

// Get returns the cached value; ok is false on a miss.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, s.key(key), value, ttl).Err()
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}
