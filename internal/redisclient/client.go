package redisclient

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/reserve_stock.lua
var reserveStockScript string

//go:embed scripts/release_stock.lua
var releaseStockScript string

//go:embed scripts/commit_stock.lua
var commitStockScript string

type Client struct {
	rdb           *redis.Client
	reserveScript *redis.Script
	releaseScript *redis.Script
	commitScript  *redis.Script
	cartTTL       time.Duration
}

// NewClient creates a new Redis client with Lua scripts loaded. cartTTL
// bounds how long an untouched cart survives.
func NewClient(addr, password string, db int, cartTTL time.Duration) (*Client, error) {
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
		rdb:           rdb,
		reserveScript: redis.NewScript(reserveStockScript),
		releaseScript: redis.NewScript(releaseStockScript),
		commitScript:  redis.NewScript(commitStockScript),
		cartTTL:       cartTTL,
	}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func inventoryKey(productID string) string {
	return fmt.Sprintf("inventory:%s", productID)
}

func cartKey(customerID string) string {
	return fmt.Sprintf("cart:%s", customerID)
}

func cartPromoKey(customerID string) string {
	return fmt.Sprintf("cart:%s:promo", customerID)
}

// ReserveStock atomically reserves stock using Lua script
// Returns true if reservation successful, false if insufficient stock
func (c *Client) ReserveStock(ctx context.Context, productID string, quantity int) (bool, error) {
	result, err := c.reserveScript.Run(ctx, c.rdb, []string{inventoryKey(productID)}, quantity).Result()
	if err != nil {
		return false, fmt.Errorf("reserve stock script failed: %w", err)
	}

	success, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected script result type")
	}

	return success == 1, nil
}

// ReleaseStock atomically releases reserved stock (compensation)
func (c *Client) ReleaseStock(ctx context.Context, productID string, quantity int) error {
	_, err := c.releaseScript.Run(ctx, c.rdb, []string{inventoryKey(productID)}, quantity).Result()
	if err != nil {
		return fmt.Errorf("release stock script failed: %w", err)
	}

	return nil
}

// CommitStock atomically commits reserved stock (final deduction)
func (c *Client) CommitStock(ctx context.Context, productID string, quantity int) error {
	_, err := c.commitScript.Run(ctx, c.rdb, []string{inventoryKey(productID)}, quantity).Result()
	if err != nil {
		return fmt.Errorf("commit stock script failed: %w", err)
	}

	return nil
}

// InitInventory initializes inventory counts in Redis
func (c *Client) InitInventory(ctx context.Context, productID string, available, reserved int) error {
	key := inventoryKey(productID)

	pipe := c.rdb.Pipeline()
	pipe.HSet(ctx, key, "available", available)
	pipe.HSet(ctx, key, "reserved", reserved)

	_, err := pipe.Exec(ctx)
	return err
}

// GetInventory retrieves current inventory counts
func (c *Client) GetInventory(ctx context.Context, productID string) (available, reserved int, err error) {
	result, err := c.rdb.HGetAll(ctx, inventoryKey(productID)).Result()
	if err != nil {
		return 0, 0, err
	}

	if len(result) == 0 {
		return 0, 0, fmt.Errorf("inventory not found for product %s", productID)
	}

	available, _ = strconv.Atoi(result["available"])
	reserved, _ = strconv.Atoi(result["reserved"])
	return available, reserved, nil
}

// AddCartItem stages qty more units of a product in the customer's cart hash.
// Quantities sum; the cart TTL is refreshed on every touch.
func (c *Client) AddCartItem(ctx context.Context, customerID, productID string, qty int) error {
	key := cartKey(customerID)

	pipe := c.rdb.Pipeline()
	pipe.HIncrBy(ctx, key, productID, int64(qty))
	pipe.Expire(ctx, key, c.cartTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// RemoveCartItem drops a product from the cart entirely; no-op if absent
func (c *Client) RemoveCartItem(ctx context.Context, customerID, productID string) error {
	return c.rdb.HDel(ctx, cartKey(customerID), productID).Err()
}

// GetCart returns the cart's product -> quantity mapping
func (c *Client) GetCart(ctx context.Context, customerID string) (map[string]int, error) {
	result, err := c.rdb.HGetAll(ctx, cartKey(customerID)).Result()
	if err != nil {
		return nil, err
	}

	items := make(map[string]int, len(result))
	for productID, qtyStr := range result {
		qty, err := strconv.Atoi(qtyStr)
		if err != nil {
			return nil, fmt.Errorf("corrupt cart quantity for product %s: %w", productID, err)
		}
		if qty > 0 {
			items[productID] = qty
		}
	}
	return items, nil
}

// ClearCart deletes the cart and its promo; called after checkout so the
// customer starts with a fresh cart
func (c *Client) ClearCart(ctx context.Context, customerID string) error {
	return c.rdb.Del(ctx, cartKey(customerID), cartPromoKey(customerID)).Err()
}

// SetCartPromo attaches a promo code to the cart
func (c *Client) SetCartPromo(ctx context.Context, customerID, code string) error {
	return c.rdb.Set(ctx, cartPromoKey(customerID), code, c.cartTTL).Err()
}

// GetCartPromo returns the attached promo code, empty if none
func (c *Client) GetCartPromo(ctx context.Context, customerID string) (string, error) {
	code, err := c.rdb.Get(ctx, cartPromoKey(customerID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return code, err
}

// AcquireLock acquires a distributed lock; pay serializes per-order with it
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), "1", ttl).Result()
}

// ReleaseLock releases a distributed lock
func (c *Client) ReleaseLock(ctx context.Context, lockKey string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:%s", lockKey)).Err()
}
