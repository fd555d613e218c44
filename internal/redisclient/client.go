package redisclient

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"time"

	"vending-service/internal/models"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/drain_coins.lua
var drainCoinsScript string

// bufferKey is the hash holding the coins the current customer has inserted.
// The machine serves one customer at a time, so a single key is enough.
const bufferKey = "vending:inserted"

type Client struct {
	rdb         *redis.Client
	drainScript *redis.Script
}

// NewClient creates a new Redis client with the drain script loaded
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

	return &Client{
		rdb:         rdb,
		drainScript: redis.NewScript(drainCoinsScript),
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// InsertCoin adds one coin of the given denomination to the buffer
func (c *Client) InsertCoin(ctx context.Context, d models.Denomination) error {
	if err := c.rdb.HIncrBy(ctx, bufferKey, d.String(), 1).Err(); err != nil {
		return fmt.Errorf("failed to buffer coin %s: %w", d, err)
	}
	return nil
}

// DrainCoins atomically returns the buffered coins and clears the buffer.
// It must be called exactly once per purchase or cancel attempt; the Lua
// script makes the read-and-clear a single Redis operation.
func (c *Client) DrainCoins(ctx context.Context) (map[models.Denomination]int, error) {
	result, err := c.drainScript.Run(ctx, c.rdb, []string{bufferKey}).Result()
	if err != nil {
		return nil, fmt.Errorf("drain coins script failed: %w", err)
	}

	pairs, ok := result.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected script result type %T", result)
	}

	coins := make(map[models.Denomination]int)
	for i := 0; i+1 < len(pairs); i += 2 {
		name, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("unexpected hash field type %T", pairs[i])
		}
		d, err := models.ParseDenomination(name)
		if err != nil {
			return nil, err
		}
		raw, ok := pairs[i+1].(string)
		if !ok {
			return nil, fmt.Errorf("unexpected hash value type %T", pairs[i+1])
		}
		count, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("bad coin count for %s: %w", name, err)
		}
		if count > 0 {
			coins[d] = count
		}
	}
	return coins, nil
}
