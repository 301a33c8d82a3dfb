package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kapu/noaa-fisheries-web-go/internal/domain"
	"github.com/kapu/noaa-fisheries-web-go/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type RedisRecordCache struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisRecordCache(cfg RedisConfig, logger *zap.Logger) (*RedisRecordCache, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.NewCacheError("failed to connect to Redis", "ping", "", err)
	}

	logger.Info("Redis connected",
		zap.String("addr", addr),
		zap.Int("db", cfg.DB),
	)

	return &RedisRecordCache{
		client: client,
		logger: logger,
	}, nil
}

func (c *RedisRecordCache) GetRecords(ctx context.Context) ([]domain.FishRecord, bool, error) {
	var records []domain.FishRecord
	found, err := c.get(ctx, recordsKey, &records)
	if err != nil || !found {
		return nil, false, err
	}
	return records, true, nil
}

func (c *RedisRecordCache) SetRecords(ctx context.Context, records []domain.FishRecord, ttl time.Duration) error {
	return c.set(ctx, recordsKey, records, ttl)
}

func (c *RedisRecordCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, recordsKey).Err(); err != nil {
		c.logger.Error("Cache delete failed", zap.String("key", recordsKey), zap.Error(err))
		return errors.NewCacheError("delete failed", "del", recordsKey, err)
	}
	return nil
}

func (c *RedisRecordCache) get(ctx context.Context, key string, dest any) (bool, error) {
	value, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		c.logger.Error("Cache get failed", zap.String("key", key), zap.Error(err))
		return false, errors.NewCacheError("get failed", "get", key, err)
	}

	if err := json.Unmarshal(value, dest); err != nil {
		c.logger.Error("Cache unmarshal failed", zap.String("key", key), zap.Error(err))
		return false, errors.NewCacheError("unmarshal failed", "get", key, err)
	}
	return true, nil
}

func (c *RedisRecordCache) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	jsonData, err := json.Marshal(value)
	if err != nil {
		return errors.NewCacheError("marshal failed", "set", key, err)
	}

	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, key, jsonData, ttl).Err(); err != nil {
		c.logger.Error("Cache set failed", zap.String("key", key), zap.Error(err))
		return errors.NewCacheError("set failed", "set", key, err)
	}
	return nil
}

func (c *RedisRecordCache) Close() error {
	if err := c.client.Close(); err != nil {
		c.logger.Error("Failed to close Redis connection", zap.Error(err))
		return err
	}
	c.logger.Info("Redis disconnected")
	return nil
}
