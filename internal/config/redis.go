package config

// Redis backs the rate limiter on the auth and admin route groups. The
// client parameters come from environment variables; when the connection
// cannot be established the constructor returns nil and callers degrade by
// disabling rate limiting.

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient builds a Redis client from REDIS_ADDR (or REDIS_HOST and
// REDIS_PORT), REDIS_PASSWORD and REDIS_DB. Returns nil when the server is
// unreachable.
func NewRedisClient() *redis.Client {
	addr := getenv("REDIS_ADDR", "")
	if host := getenv("REDIS_HOST", ""); host != "" {
		addr = host + ":" + getenv("REDIS_PORT", "6379")
	}
	if addr == "" {
		addr = "localhost:6379"
	}
	db := 0
	if s := getenv("REDIS_DB", ""); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			db = n
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: getenv("REDIS_PASSWORD", ""),
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil
	}
	return client
}
