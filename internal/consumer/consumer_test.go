package consumer

import (
	"context"
	"errors"
	"sync"
	"testing"

	mqttcommon "github.com/pramodacn2005/Micro-Labs-Project-sub000/common/mqtt"
	rediscommon "github.com/pramodacn2005/Micro-Labs-Project-sub000/common/redis"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingHandler struct {
	mu       sync.Mutex
	readings []*models.VitalReading
	err      error
}

func (h *recordingHandler) HandleReading(ctx context.Context, reading *models.VitalReading) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readings = append(h.readings, reading)
	return h.err
}

func TestParseReading(t *testing.T) {
	r, err := ParseReading([]byte(`{"deviceId":"esp32-01","heartRate":"72","spo2":null,"fallDetected":true}`), "")
	require.NoError(t, err)
	assert.Equal(t, "esp32-01", r.DeviceID)
	assert.Equal(t, 72.0, r.HeartRate.Value)
	assert.True(t, r.FallDetected)

	r, err = ParseReading([]byte(`{"heartRate":80}`), "from-topic")
	require.NoError(t, err)
	assert.Equal(t, "from-topic", r.DeviceID)

	_, err = ParseReading([]byte(`{"heartRate":80}`), "")
	assert.ErrorIs(t, err, ErrMissingDeviceID)

	_, err = ParseReading([]byte(`not json`), "x")
	assert.Error(t, err)
}

func TestDeviceIDFromTopic(t *testing.T) {
	assert.Equal(t, "esp32-01", DeviceIDFromTopic("vitals/esp32-01/reading"))
	assert.Equal(t, "", DeviceIDFromTopic("vitals/esp32-01"))
	assert.Equal(t, "", DeviceIDFromTopic("other/esp32-01/reading"))
}

func TestStreamConsumer_ConsumeOnce(t *testing.T) {
	_, redisClient, _ := setupTestRedis(t)
	cfg := testConfig()
	handler := &recordingHandler{}
	c := NewStreamConsumer(cfg, redisClient, handler, zap.NewNop())
	c.block = -1
	ctx := context.Background()

	require.NoError(t, rediscommon.CreateConsumerGroup(ctx, redisClient, cfg.Ingest.Stream, cfg.Ingest.ConsumerGroup))

	_, err := rediscommon.PublishJSONToStream(ctx, redisClient, cfg.Ingest.Stream, map[string]interface{}{
		"deviceId":  "esp32-01",
		"heartRate": 130,
	})
	require.NoError(t, err)
	_, err = rediscommon.PublishToStream(ctx, redisClient, cfg.Ingest.Stream, map[string]interface{}{"data": "{broken"})
	require.NoError(t, err)
	_, err = rediscommon.PublishToStream(ctx, redisClient, cfg.Ingest.Stream, map[string]interface{}{"other": "x"})
	require.NoError(t, err)

	n, err := c.ConsumeOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.Len(t, handler.readings, 1)
	assert.Equal(t, "esp32-01", handler.readings[0].DeviceID)
	assert.Equal(t, 130.0, handler.readings[0].HeartRate.Value)

	m := c.Metrics()
	assert.Equal(t, int64(3), m.MessagesProcessed)
	assert.Equal(t, int64(1), m.MessagesSucceeded)
	assert.Equal(t, int64(2), m.ErrorsParse)

	// 全部已 ack
	pending, err := redisClient.XPending(ctx, cfg.Ingest.Stream, cfg.Ingest.ConsumerGroup).Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count)

	n, err = c.ConsumeOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStreamConsumer_HandlerErrorStillAcks(t *testing.T) {
	_, redisClient, _ := setupTestRedis(t)
	cfg := testConfig()
	handler := &recordingHandler{err: errors.New("database down")}
	c := NewStreamConsumer(cfg, redisClient, handler, zap.NewNop())
	c.block = -1
	ctx := context.Background()

	require.NoError(t, rediscommon.CreateConsumerGroup(ctx, redisClient, cfg.Ingest.Stream, cfg.Ingest.ConsumerGroup))
	_, err := rediscommon.PublishJSONToStream(ctx, redisClient, cfg.Ingest.Stream, map[string]interface{}{"deviceId": "esp32-01"})
	require.NoError(t, err)

	n, err := c.ConsumeOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, int64(1), c.Metrics().MessagesFailed)
}

type fakeSubscriber struct {
	topic        string
	qos          byte
	handler      mqttcommon.MessageHandler
	unsubscribed []string
	subscribed   chan struct{}
}

func (f *fakeSubscriber) Subscribe(topic string, qos byte, handler mqttcommon.MessageHandler) error {
	f.topic, f.qos, f.handler = topic, qos, handler
	close(f.subscribed)
	return nil
}

func (f *fakeSubscriber) Unsubscribe(topics ...string) error {
	f.unsubscribed = append(f.unsubscribed, topics...)
	return nil
}

func TestMQTTConsumer_SubscribesAndDispatches(t *testing.T) {
	sub := &fakeSubscriber{subscribed: make(chan struct{})}
	handler := &recordingHandler{}
	c := NewMQTTConsumer(testConfig(), sub, handler, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	<-sub.subscribed
	assert.Equal(t, "vitals/+/reading", sub.topic)
	assert.Equal(t, byte(1), sub.qos)

	require.NoError(t, sub.handler("vitals/esp32-07/reading", []byte(`{"spo2":91}`)))
	assert.Error(t, sub.handler("vitals/esp32-07/reading", []byte(`garbage`)))

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, []string{"vitals/+/reading"}, sub.unsubscribed)

	require.Len(t, handler.readings, 1)
	assert.Equal(t, "esp32-07", handler.readings[0].DeviceID)
	assert.Equal(t, 91.0, handler.readings[0].SpO2.Value)
}

func TestAlarmPublisher_PublishAlarm(t *testing.T) {
	_, redisClient, _ := setupTestRedis(t)
	p := NewAlarmPublisher(testConfig(), redisClient, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, p.PublishAlarm(ctx, &models.AlarmEvent{EventID: "evt-1", DeviceID: "esp32-01", Metric: models.MetricHeartRate}))

	msgs, err := redisClient.XRange(ctx, "vitals:alarms", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Values["data"], `"event_id":"evt-1"`)
}
