package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/config"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/models"
	"go.uber.org/zap"
)

// ErrCacheMiss 缓存未命中
var ErrCacheMiss = errors.New("cache miss")

// CacheManager Redis 缓存管理器（每台设备的最新读数）
type CacheManager struct {
	config      *config.Config
	redisClient *redis.Client
	logger      *zap.Logger
}

// NewCacheManager 创建缓存管理器
func NewCacheManager(
	cfg *config.Config,
	redisClient *redis.Client,
	logger *zap.Logger,
) *CacheManager {
	return &CacheManager{
		config:      cfg,
		redisClient: redisClient,
		logger:      logger,
	}
}

func (c *CacheManager) latestKey(deviceID string) string {
	return c.config.Alarm.LatestKeyPrefix + deviceID
}

// SetLatest 写入设备最新读数（带 TTL）
func (c *CacheManager) SetLatest(ctx context.Context, reading *models.VitalReading) error {
	jsonData, err := json.Marshal(reading)
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %w", err)
	}

	key := c.latestKey(reading.DeviceID)
	if err := c.redisClient.Set(ctx, key, jsonData, c.config.Alarm.LatestTTL).Err(); err != nil {
		return fmt.Errorf("failed to set latest reading: %w", err)
	}

	c.logger.Debug("Updated latest reading cache",
		zap.String("device_id", reading.DeviceID),
		zap.String("key", key),
	)
	return nil
}

// GetLatest 读取设备最新读数，不存在返回 ErrCacheMiss
func (c *CacheManager) GetLatest(ctx context.Context, deviceID string) (*models.VitalReading, error) {
	val, err := c.redisClient.Get(ctx, c.latestKey(deviceID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get cache: %w", err)
	}

	var reading models.VitalReading
	if err := json.Unmarshal(val, &reading); err != nil {
		return nil, fmt.Errorf("failed to unmarshal latest reading: %w", err)
	}
	return &reading, nil
}

// GetDeviceIDs 扫描缓存中有最新读数的设备
func (c *CacheManager) GetDeviceIDs(ctx context.Context) ([]string, error) {
	prefix := c.config.Alarm.LatestKeyPrefix

	var deviceIDs []string
	iter := c.redisClient.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		deviceIDs = append(deviceIDs, iter.Val()[len(prefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan keys: %w", err)
	}
	return deviceIDs, nil
}
