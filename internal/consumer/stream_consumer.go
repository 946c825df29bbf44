package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	rediscommon "github.com/pramodacn2005/Micro-Labs-Project-sub000/common/redis"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/config"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/models"
	"go.uber.org/zap"
)

// ReadingHandler 读数处理（入库、缓存、告警评估）
type ReadingHandler interface {
	HandleReading(ctx context.Context, reading *models.VitalReading) error
}

// ErrMissingDeviceID 读数缺少 deviceId
var ErrMissingDeviceID = errors.New("reading has no deviceId")

// ParseReading 解析读数 JSON，fallbackDeviceID 用于 payload 中未带 deviceId 的情况
func ParseReading(data []byte, fallbackDeviceID string) (*models.VitalReading, error) {
	var reading models.VitalReading
	if err := json.Unmarshal(data, &reading); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reading: %w", err)
	}
	if reading.DeviceID == "" {
		reading.DeviceID = fallbackDeviceID
	}
	if reading.DeviceID == "" {
		return nil, ErrMissingDeviceID
	}
	return &reading, nil
}

// Metrics 消费指标
type Metrics struct {
	mu sync.RWMutex

	MessagesProcessed int64
	MessagesSucceeded int64
	MessagesFailed    int64
	ErrorsParse       int64

	TotalProcessingTime time.Duration
	StartTime           time.Time
}

// GetSnapshot 获取指标快照（线程安全）
func (m *Metrics) GetSnapshot() Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Metrics{
		MessagesProcessed:   m.MessagesProcessed,
		MessagesSucceeded:   m.MessagesSucceeded,
		MessagesFailed:      m.MessagesFailed,
		ErrorsParse:         m.ErrorsParse,
		TotalProcessingTime: m.TotalProcessingTime,
		StartTime:           m.StartTime,
	}
}

func (m *Metrics) record(duration time.Duration, err error, parse bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MessagesProcessed++
	switch {
	case err == nil:
		m.MessagesSucceeded++
		m.TotalProcessingTime += duration
	case parse:
		m.MessagesFailed++
		m.ErrorsParse++
	default:
		m.MessagesFailed++
	}
}

// StreamConsumer Redis Streams 读数消费者
type StreamConsumer struct {
	config      *config.Config
	redisClient *redis.Client
	handler     ReadingHandler
	logger      *zap.Logger
	metrics     *Metrics
	block       time.Duration
}

// NewStreamConsumer 创建 Streams 消费者
func NewStreamConsumer(
	cfg *config.Config,
	redisClient *redis.Client,
	handler ReadingHandler,
	logger *zap.Logger,
) *StreamConsumer {
	return &StreamConsumer{
		config:      cfg,
		redisClient: redisClient,
		handler:     handler,
		logger:      logger,
		metrics:     &Metrics{StartTime: time.Now()},
		block:       2 * time.Second,
	}
}

// Metrics 返回指标快照
func (c *StreamConsumer) Metrics() Metrics {
	return c.metrics.GetSnapshot()
}

// Start 启动消费循环，直到 ctx 取消
func (c *StreamConsumer) Start(ctx context.Context) error {
	stream := c.config.Ingest.Stream
	group := c.config.Ingest.ConsumerGroup

	if err := rediscommon.CreateConsumerGroup(ctx, c.redisClient, stream, group); err != nil {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	c.logger.Info("Stream consumer started",
		zap.String("stream", stream),
		zap.String("consumer_group", group),
		zap.String("consumer_name", c.config.Ingest.ConsumerName),
	)

	backoffDuration := time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Stream consumer stopped")
			return nil
		default:
		}

		if _, err := c.ConsumeOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("Failed to consume stream",
				zap.Error(err),
				zap.Duration("backoff", backoffDuration),
			)

			// 指数退避
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoffDuration):
				backoffDuration *= 2
				if backoffDuration > maxBackoff {
					backoffDuration = maxBackoff
				}
			}
			continue
		}
		backoffDuration = time.Second
	}
}

// ConsumeOnce 读取并处理一批消息，返回处理条数
// 处理失败的消息同样 ack，避免坏消息阻塞消费组
func (c *StreamConsumer) ConsumeOnce(ctx context.Context) (int, error) {
	messages, err := rediscommon.ReadFromStream(
		ctx,
		c.redisClient,
		c.config.Ingest.Stream,
		c.config.Ingest.ConsumerGroup,
		c.config.Ingest.ConsumerName,
		c.config.Ingest.BatchSize,
		c.block,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to read from stream: %w", err)
	}

	for _, msg := range messages {
		if err := c.processMessage(ctx, msg); err != nil {
			c.logger.Error("Failed to process message",
				zap.String("stream_id", msg.ID),
				zap.Error(err),
			)
		}
		if err := rediscommon.AckMessage(ctx, c.redisClient, msg.Stream, c.config.Ingest.ConsumerGroup, msg.ID); err != nil {
			c.logger.Warn("Failed to ack message",
				zap.String("stream_id", msg.ID),
				zap.Error(err),
			)
		}
	}

	return len(messages), nil
}

func (c *StreamConsumer) processMessage(ctx context.Context, msg rediscommon.StreamMessage) error {
	start := time.Now()

	data, ok := msg.Data()
	if !ok {
		err := fmt.Errorf("missing data field in message")
		c.metrics.record(0, err, true)
		return err
	}

	fallback, _ := msg.Values["device_id"].(string)
	reading, err := ParseReading([]byte(data), fallback)
	if err != nil {
		c.metrics.record(0, err, true)
		return err
	}

	err = c.handler.HandleReading(ctx, reading)
	c.metrics.record(time.Since(start), err, false)
	if err != nil {
		return fmt.Errorf("failed to handle reading: %w", err)
	}

	c.logger.Debug("Processed stream reading",
		zap.String("stream_id", msg.ID),
		zap.String("device_id", reading.DeviceID),
		zap.Duration("processing_time", time.Since(start)),
	)
	return nil
}
