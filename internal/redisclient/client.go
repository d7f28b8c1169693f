package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const lowStockQueueKey = "notifications:lowstock"

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

// LowStockNotification is one queued dashboard alert.
type LowStockNotification struct {
	ProductID   string    `json:"product_id"`
	ProductName string    `json:"product_name,omitempty"`
	Stock       string    `json:"stock"`
	MinStock    string    `json:"min_stock"`
	StoreID     string    `json:"store_id,omitempty"`
	QueuedAt    time.Time `json:"queued_at"`
}

// QueueLowStockNotification pushes a notification onto the dashboard queue.
func (c *Client) QueueLowStockNotification(ctx context.Context, n *LowStockNotification) error {
	raw, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	return c.rdb.LPush(ctx, lowStockQueueKey, raw).Err()
}

// PopLowStockNotification pops the oldest queued notification. Returns nil
// when the queue is empty.
func (c *Client) PopLowStockNotification(ctx context.Context) (*LowStockNotification, error) {
	raw, err := c.rdb.RPop(ctx, lowStockQueueKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var n LowStockNotification
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("failed to unmarshal notification: %w", err)
	}
	return &n, nil
}

// PeekLowStockNotifications returns up to limit queued notifications without
// consuming them, newest first.
func (c *Client) PeekLowStockNotifications(ctx context.Context, limit int64) ([]LowStockNotification, error) {
	raws, err := c.rdb.LRange(ctx, lowStockQueueKey, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}

	notifications := make([]LowStockNotification, 0, len(raws))
	for _, raw := range raws {
		var n LowStockNotification
		if err := json.Unmarshal([]byte(raw), &n); err != nil {
			continue
		}
		notifications = append(notifications, n)
	}
	return notifications, nil
}

// SetOrderSnapshot caches the aggregator's merged order snapshot for a store.
func (c *Client) SetOrderSnapshot(ctx context.Context, storeID string, snapshot interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return c.rdb.Set(ctx, snapshotKey(storeID), raw, ttl).Err()
}

// GetOrderSnapshot loads a cached snapshot into out. Returns false on a miss.
func (c *Client) GetOrderSnapshot(ctx context.Context, storeID string, out interface{}) (bool, error) {
	raw, err := c.rdb.Get(ctx, snapshotKey(storeID)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return true, nil
}

// InvalidateOrderSnapshot drops a store's cached snapshot after a write.
func (c *Client) InvalidateOrderSnapshot(ctx context.Context, storeID string) error {
	return c.rdb.Del(ctx, snapshotKey(storeID)).Err()
}

func snapshotKey(storeID string) string {
	return fmt.Sprintf("orders:snapshot:%s", storeID)
}
