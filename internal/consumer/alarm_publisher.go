package consumer

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	rediscommon "github.com/pramodacn2005/Micro-Labs-Project-sub000/common/redis"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/config"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/models"
	"go.uber.org/zap"
)

// AlarmPublisher 把触发的告警事件写入 vitals:alarms，供下游订阅
type AlarmPublisher struct {
	config      *config.Config
	redisClient *redis.Client
	logger      *zap.Logger
}

// NewAlarmPublisher 创建告警发布器
func NewAlarmPublisher(cfg *config.Config, redisClient *redis.Client, logger *zap.Logger) *AlarmPublisher {
	return &AlarmPublisher{
		config:      cfg,
		redisClient: redisClient,
		logger:      logger,
	}
}

// PublishAlarm 发布告警事件
func (p *AlarmPublisher) PublishAlarm(ctx context.Context, alarm *models.AlarmEvent) error {
	id, err := rediscommon.PublishJSONToStream(ctx, p.redisClient, p.config.Alarm.AlarmStream, alarm)
	if err != nil {
		return fmt.Errorf("failed to publish alarm: %w", err)
	}

	p.logger.Debug("Published alarm event",
		zap.String("event_id", alarm.EventID),
		zap.String("stream", p.config.Alarm.AlarmStream),
		zap.String("stream_id", id),
	)
	return nil
}
