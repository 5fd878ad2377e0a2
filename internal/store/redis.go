package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis keeps the list as a JSON string under one key.
type Redis struct {
	client *redis.Client
	key    string
}

// NewRedis parses url, connects and pings before returning.
func NewRedis(ctx context.Context, url, key string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("store: parsing redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("store: pinging redis: %w", err)
	}
	return NewRedisClient(client, key), nil
}

// NewRedisClient wraps an existing client.
func NewRedisClient(client *redis.Client, key string) *Redis {
	if key == "" {
		key = "customHolidays"
	}
	return &Redis{client: client, key: key}
}

func (r *Redis) Load(ctx context.Context) ([]Holiday, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: redis get %s: %w", r.key, err)
	}
	return decode("redis", data), nil
}

func (r *Redis) Save(ctx context.Context, list []Holiday) error {
	data, err := encode(list)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("store: redis set %s: %w", r.key, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
