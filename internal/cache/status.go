package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mkotelnikov/storefront/internal/models"
)

// order_status:{order_id} -> status string
const keyOrderStatus = "order_status:%s"

var TTLStatus = 5 * time.Minute

// StatusCache is the explicit replacement for annotation-driven caching:
// written on every transition, invalidated manually. A nil *StatusCache
// is a no-op, so wiring it is optional.
type StatusCache struct {
	R   *redis.Client
	TTL time.Duration
}

func NewStatusCache(addr string) *StatusCache {
	if addr == "" {
		return nil
	}
	r := redis.NewClient(&redis.Options{Addr: addr})
	return &StatusCache{R: r, TTL: TTLStatus}
}

func (c *StatusCache) Get(ctx context.Context, orderID uuid.UUID) (models.OrderStatus, bool) {
	if c == nil || c.R == nil {
		return "", false
	}
	v, err := c.R.Get(ctx, fmt.Sprintf(keyOrderStatus, orderID)).Result()
	if err != nil {
		return "", false
	}
	return models.OrderStatus(v), true
}

func (c *StatusCache) Set(ctx context.Context, orderID uuid.UUID, status models.OrderStatus) {
	if c == nil || c.R == nil {
		return
	}
	_ = c.R.Set(ctx, fmt.Sprintf(keyOrderStatus, orderID), string(status), c.TTL).Err()
}

func (c *StatusCache) Invalidate(ctx context.Context, orderID uuid.UUID) {
	if c == nil || c.R == nil {
		return
	}
	_ = c.R.Del(ctx, fmt.Sprintf(keyOrderStatus, orderID)).Err()
}

func (c *StatusCache) Close() error {
	if c == nil || c.R == nil {
		return nil
	}
	return c.R.Close()
}
