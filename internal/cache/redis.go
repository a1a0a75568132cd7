package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Domenick1991/flatstay/config"
	"github.com/Domenick1991/flatstay/internal/domain"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client   *redis.Client
	unitsTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, unitsTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:   redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		unitsTTL: unitsTTL,
	}
}

func (c *RedisCache) GetUnits(ctx context.Context) ([]domain.Unit, error) {
	data, err := c.client.Get(ctx, unitsKey()).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var units []domain.Unit
	if err := json.Unmarshal(data, &units); err != nil {
		return nil, err
	}
	return units, nil
}

func (c *RedisCache) SetUnits(ctx context.Context, units []domain.Unit) error {
	payload, err := json.Marshal(units)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, unitsKey(), payload, c.unitsTTL).Err()
}

// AcquireUnitLock serializes check-then-insert for one unit across processes.
func (c *RedisCache) AcquireUnitLock(ctx context.Context, kind domain.UnitKind, unitID int64, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, unitLockKey(kind, unitID), "locked", ttl).Result()
}

func (c *RedisCache) ReleaseUnitLock(ctx context.Context, kind domain.UnitKind, unitID int64) error {
	return c.client.Del(ctx, unitLockKey(kind, unitID)).Err()
}

func unitsKey() string {
	return "cache:units"
}

func unitLockKey(kind domain.UnitKind, unitID int64) string {
	return fmt.Sprintf("lock:unit:%s:%d", kind, unitID)
}
