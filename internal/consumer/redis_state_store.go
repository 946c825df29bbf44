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

// maxCASRetries WATCH 冲突时的最大重试次数
const maxCASRetries = 10

// RedisStateStore 基于 Redis 的告警状态存储
// 状态永不过期，只会被重置
type RedisStateStore struct {
	config      *config.Config
	redisClient *redis.Client
	logger      *zap.Logger
}

// NewRedisStateStore 创建 Redis 状态存储
func NewRedisStateStore(
	cfg *config.Config,
	redisClient *redis.Client,
	logger *zap.Logger,
) *RedisStateStore {
	return &RedisStateStore{
		config:      cfg,
		redisClient: redisClient,
		logger:      logger,
	}
}

// GetStateKey 构建状态键，如 "alarm:state:esp32-01_heartRate"
func (s *RedisStateStore) GetStateKey(deviceID, metric string) string {
	return s.config.Alarm.StateKeyPrefix + models.StateKey(deviceID, metric)
}

// Get 获取状态
func (s *RedisStateStore) Get(ctx context.Context, deviceID, metric string) (*models.AlertState, error) {
	key := s.GetStateKey(deviceID, metric)
	val, err := s.redisClient.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrStateNotFound
		}
		return nil, fmt.Errorf("failed to get state: %w", err)
	}
	return decodeState(val)
}

// Set 写入状态
func (s *RedisStateStore) Set(ctx context.Context, deviceID, metric string, state *models.AlertState) error {
	jsonData, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := s.redisClient.Set(ctx, s.GetStateKey(deviceID, metric), jsonData, 0).Err(); err != nil {
		return fmt.Errorf("failed to set state: %w", err)
	}
	return nil
}

// Update WATCH/MULTI 乐观锁读改写，键被其他进程修改时重试
func (s *RedisStateStore) Update(ctx context.Context, deviceID, metric string, fn UpdateFunc) error {
	key := s.GetStateKey(deviceID, metric)

	txf := func(tx *redis.Tx) error {
		var current *models.AlertState
		val, err := tx.Get(ctx, key).Bytes()
		switch {
		case err == redis.Nil:
		case err != nil:
			return fmt.Errorf("failed to get state: %w", err)
		default:
			current, err = decodeState(val)
			if err != nil {
				s.logger.Warn("Discarding corrupt alert state",
					zap.String("key", key),
					zap.Error(err),
				)
				current = nil
			}
		}

		next, err := fn(current)
		if err != nil || next == nil {
			return err
		}

		jsonData, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to marshal state: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, jsonData, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxCASRetries; i++ {
		err := s.redisClient.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			s.logger.Debug("Alert state changed concurrently, retrying",
				zap.String("key", key),
				zap.Int("attempt", i+1),
			)
			continue
		}
		return err
	}

	return fmt.Errorf("%w: %s", ErrConflict, key)
}
