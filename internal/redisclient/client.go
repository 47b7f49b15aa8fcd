package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// sessionTTL bounds how long a cached access token skips the remote
// session check. Tokens can be invalidated remotely at any time, so the
// cache is only a fast path, never an authority.
const sessionTTL = 10 * time.Minute

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func sessionKey(phoneNumber string) string {
	return fmt.Sprintf("session:%s", phoneNumber)
}

// CacheSessionToken stores an access token for a target number with a
// bounded TTL.
func (c *Client) CacheSessionToken(ctx context.Context, phoneNumber, accessToken string) error {
	return c.rdb.Set(ctx, sessionKey(phoneNumber), accessToken, sessionTTL).Err()
}

// GetSessionToken retrieves a cached access token. Returns "" without
// error on a cache miss.
func (c *Client) GetSessionToken(ctx context.Context, phoneNumber string) (string, error) {
	token, err := c.rdb.Get(ctx, sessionKey(phoneNumber)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

// DropSessionToken evicts a cached access token, used when the remote side
// rejects the token mid-purchase.
func (c *Client) DropSessionToken(ctx context.Context, phoneNumber string) error {
	return c.rdb.Del(ctx, sessionKey(phoneNumber)).Err()
}
