package stamps

import (
	"context"
	"fmt"
	"time"

	conf "github.com/glkeru/loyalty/stamps/internal/config"
	model "github.com/glkeru/loyalty/stamps/internal/models"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Локальное хранилище в Redis (общий кэш для нескольких процессов)
type CacheService struct {
	client *redis.Client
	logger *zap.Logger
}

func NewCacheService(cfg conf.RedisConfig, logger *zap.Logger) (serv *CacheService, err error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("env STAMPS_CACHE_URL is not set")
	}
	db := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		Username:    cfg.User,
		DB:          0,
		MaxRetries:  5,
		DialTimeout: 10 * time.Second,
	})
	err = db.Ping(context.Background()).Err()
	if err != nil {
		return nil, err
	}
	return &CacheService{db, logger}, nil
}

func (c *CacheService) Load(ctx context.Context, key string) (model.PartialSnapshot, bool) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return model.PartialSnapshot{}, false
	} else if err != nil {
		c.logger.Error("cache load error", zap.Error(err), zap.String("key", key))
		return model.PartialSnapshot{}, false
	}
	snap, err := decodeSnapshot([]byte(val))
	if err != nil {
		c.logger.Warn("local load ignored", zap.Error(err), zap.String("key", key))
		return model.PartialSnapshot{}, false
	}
	return snap, true
}

func (c *CacheService) Save(ctx context.Context, key string, snap model.Snapshot) error {
	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	// без TTL
	return c.client.Set(ctx, key, data, 0).Err()
}

func (c *CacheService) GetMeta(ctx context.Context, key string) (string, bool) {
	val, err := c.client.Get(ctx, "meta:"+key).Result()
	if err == redis.Nil {
		return "", false
	} else if err != nil {
		c.logger.Error("cache meta error", zap.Error(err), zap.String("key", key))
		return "", false
	}
	return val, true
}

func (c *CacheService) SetMeta(ctx context.Context, key string, value string) error {
	return c.client.Set(ctx, "meta:"+key, value, 0).Err()
}

func (c *CacheService) Close() error {
	return c.client.Close()
}
