package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	rediscommon "github.com/pramodacn2005/Micro-Labs-Project-sub000/common/redis"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/config"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/consumer"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testAlarmConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Alarm.ConsecutiveThreshold = 3
	cfg.Alarm.Cooldown = 10 * time.Minute
	cfg.Alarm.FallCooldown = 10 * time.Minute
	cfg.Alarm.StateStore = config.StateStoreRedis
	cfg.Alarm.StateKeyPrefix = "alarm:state:"
	cfg.Alarm.LatestKeyPrefix = "vitals:latest:"
	cfg.Alarm.LatestTTL = 5 * time.Minute
	cfg.Alarm.AlarmStream = "vitals:alarms"
	cfg.Ingest.StreamEnabled = true
	cfg.Ingest.Stream = "vitals:readings"
	cfg.Ingest.ConsumerGroup = "medisense-alarm-group"
	cfg.Ingest.ConsumerName = "test-consumer"
	cfg.Ingest.BatchSize = 10
	return cfg
}

func setupAlarmService(t *testing.T, cfg *config.Config) (*AlarmService, *redis.Client) {
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	store, err := NewStateStore(context.Background(), cfg, redisClient, zap.NewNop())
	require.NoError(t, err)

	s, err := NewAlarmServiceWithClients(cfg, nil, redisClient, store, zap.NewNop())
	require.NoError(t, err)
	return s, redisClient
}

func TestAlarmService_StreamPipeline(t *testing.T) {
	cfg := testAlarmConfig()
	s, redisClient := setupAlarmService(t, cfg)
	ctx := context.Background()

	require.NotNil(t, s.streamConsumer)
	require.Nil(t, s.mqttConsumer)
	require.NoError(t, rediscommon.CreateConsumerGroup(ctx, redisClient, cfg.Ingest.Stream, cfg.Ingest.ConsumerGroup))

	// 同一个异常值连续三次，只在第三次告警
	for i := 0; i < 4; i++ {
		_, err := rediscommon.PublishJSONToStream(ctx, redisClient, cfg.Ingest.Stream, map[string]interface{}{
			"deviceId":    "esp32-01",
			"patientName": "Asha",
			"heartRate":   130,
		})
		require.NoError(t, err)
	}

	n, err := s.streamConsumer.ConsumeOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	alarms, err := redisClient.XRange(ctx, cfg.Alarm.AlarmStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, alarms, 1)

	data, ok := alarms[0].Values["data"].(string)
	require.True(t, ok)
	var alarm models.AlarmEvent
	require.NoError(t, json.Unmarshal([]byte(data), &alarm))
	assert.Equal(t, "esp32-01", alarm.DeviceID)
	assert.Equal(t, models.MetricHeartRate, alarm.Metric)
	assert.Equal(t, models.AlarmLevelCritical, alarm.AlarmLevel)

	latest, err := s.cacheManager.GetLatest(ctx, "esp32-01")
	require.NoError(t, err)
	assert.Equal(t, 130.0, latest.HeartRate.Value)
	assert.NotZero(t, latest.Timestamp)

	state, err := s.stateStore.Get(ctx, "esp32-01", models.MetricHeartRate)
	require.NoError(t, err)
	assert.True(t, state.Locked)
}

func TestAlarmService_Ingest(t *testing.T) {
	cfg := testAlarmConfig()
	cfg.Alarm.StateStore = config.StateStoreMemory
	s, _ := setupAlarmService(t, cfg)
	ctx := context.Background()

	var last []models.AlarmEvent
	for i := 0; i < 3; i++ {
		alarms, err := s.Readings().Ingest(ctx, &models.VitalReading{DeviceID: "esp32-02", SpO2: models.Num(85)})
		require.NoError(t, err)
		last = alarms
	}
	require.Len(t, last, 1)
	assert.Equal(t, models.MetricSpO2, last[0].Metric)

	var results []models.DeliveryResult
	require.NoError(t, json.Unmarshal([]byte(last[0].Delivery), &results))
	assert.NotEmpty(t, results)
}

func TestAlarmService_StartWithoutSources(t *testing.T) {
	cfg := testAlarmConfig()
	cfg.Ingest.StreamEnabled = false
	s, _ := setupAlarmService(t, cfg)

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no ingest source enabled")
}

func TestAlarmService_StartStopsOnCancel(t *testing.T) {
	s, _ := setupAlarmService(t, testAlarmConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("alarm service did not stop")
	}
}

func TestNewStateStore(t *testing.T) {
	cfg := testAlarmConfig()
	cfg.Alarm.StateStore = config.StateStoreMemory
	store, err := NewStateStore(context.Background(), cfg, nil, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &consumer.MemoryStateStore{}, store)

	cfg.Alarm.StateStore = "etcd"
	_, err = NewStateStore(context.Background(), cfg, nil, zap.NewNop())
	assert.Error(t, err)
}
