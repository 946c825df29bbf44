package consumer

import (
	"context"
	"fmt"
	"strings"

	mqttcommon "github.com/pramodacn2005/Micro-Labs-Project-sub000/common/mqtt"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/config"
	"go.uber.org/zap"
)

// Subscriber MQTT 订阅接口（*mqttcommon.Client 实现）
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqttcommon.MessageHandler) error
	Unsubscribe(topics ...string) error
}

// MQTTConsumer 订阅 vitals/{deviceId}/reading 的读数消费者
type MQTTConsumer struct {
	config     *config.Config
	subscriber Subscriber
	handler    ReadingHandler
	logger     *zap.Logger
}

// NewMQTTConsumer 创建 MQTT 消费者
func NewMQTTConsumer(
	cfg *config.Config,
	subscriber Subscriber,
	handler ReadingHandler,
	logger *zap.Logger,
) *MQTTConsumer {
	return &MQTTConsumer{
		config:     cfg,
		subscriber: subscriber,
		handler:    handler,
		logger:     logger,
	}
}

// DeviceIDFromTopic 从主题中取出设备 ID，如 vitals/esp32-01/reading -> esp32-01
func DeviceIDFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) == 3 && parts[0] == "vitals" && parts[2] == "reading" {
		return parts[1]
	}
	return ""
}

// Start 订阅主题并阻塞到 ctx 取消
func (c *MQTTConsumer) Start(ctx context.Context) error {
	topic := c.config.Ingest.MQTTTopic
	qos := byte(c.config.MQTT.QoS)

	if err := c.subscriber.Subscribe(topic, qos, func(topic string, payload []byte) error {
		return c.HandleMessage(ctx, topic, payload)
	}); err != nil {
		return fmt.Errorf("failed to subscribe %s: %w", topic, err)
	}

	c.logger.Info("MQTT consumer started", zap.String("topic", topic))

	<-ctx.Done()

	if err := c.subscriber.Unsubscribe(topic); err != nil {
		c.logger.Warn("Failed to unsubscribe", zap.String("topic", topic), zap.Error(err))
	}
	c.logger.Info("MQTT consumer stopped")
	return nil
}

// HandleMessage 处理单条 MQTT 消息
func (c *MQTTConsumer) HandleMessage(ctx context.Context, topic string, payload []byte) error {
	reading, err := ParseReading(payload, DeviceIDFromTopic(topic))
	if err != nil {
		c.logger.Warn("Dropping malformed reading",
			zap.String("topic", topic),
			zap.Int("payload_size", len(payload)),
			zap.Error(err),
		)
		return err
	}

	if err := c.handler.HandleReading(ctx, reading); err != nil {
		return fmt.Errorf("failed to handle reading from %s: %w", topic, err)
	}
	return nil
}
