package evaluator

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/config"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/consumer"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/models"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/vitals"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeNotifier struct {
	mu     sync.Mutex
	alarms []*models.AlarmEvent
	names  []string
}

func (f *fakeNotifier) NotifyAlarm(ctx context.Context, alarm *models.AlarmEvent, patientName string) []models.DeliveryResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alarms = append(f.alarms, alarm)
	f.names = append(f.names, patientName)
	return []models.DeliveryResult{{Channel: "sms", Recipient: "+15550100", Status: models.DeliverySimulated}}
}

type fakeEventsRepo struct {
	mu     sync.Mutex
	events []models.AlarmEvent
	err    error
}

func (f *fakeEventsRepo) CreateAlarmEvent(ctx context.Context, event *models.AlarmEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, *event)
	return nil
}

type fakePublisher struct {
	published []string
}

func (f *fakePublisher) PublishAlarm(ctx context.Context, alarm *models.AlarmEvent) error {
	f.published = append(f.published, alarm.EventID)
	return nil
}

func evalConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Alarm.ConsecutiveThreshold = 3
	cfg.Alarm.Cooldown = 10 * time.Minute
	cfg.Alarm.FallCooldown = 10 * time.Minute
	return cfg
}

func newTestEvaluator(repo AlarmEventWriter) (*Evaluator, *fakeNotifier, *fakePublisher, *fakeClock) {
	clock := newFakeClock()
	notifier := &fakeNotifier{}
	publisher := &fakePublisher{}
	e := NewEvaluator(evalConfig(), vitals.NewThresholdTable(), consumer.NewMemoryStateStore(), notifier, repo, publisher, zap.NewNop())
	e.tracker.now = clock.Now
	e.fall.now = clock.Now
	return e, notifier, publisher, clock
}

func TestEvaluator_ThreeIdenticalAbnormalReadingsAlertOnce(t *testing.T) {
	repo := &fakeEventsRepo{}
	e, notifier, publisher, _ := newTestEvaluator(repo)
	ctx := context.Background()

	reading := func() *models.VitalReading {
		return &models.VitalReading{
			DeviceID:    "esp32-01",
			PatientID:   "p-1",
			PatientName: "Asha",
			HeartRate:   models.Num(130),
			SpO2:        models.Num(98),
			Timestamp:   1_700_000_000_000,
		}
	}

	for i := 0; i < 2; i++ {
		alarms, err := e.Evaluate(ctx, reading())
		require.NoError(t, err)
		assert.Empty(t, alarms)
	}

	alarms, err := e.Evaluate(ctx, reading())
	require.NoError(t, err)
	require.Len(t, alarms, 1)

	alarm := alarms[0]
	assert.Equal(t, models.EventVitalAbnormal, alarm.EventType)
	assert.Equal(t, models.MetricHeartRate, alarm.Metric)
	assert.Equal(t, "critical", alarm.Status)
	assert.Equal(t, models.AlarmLevelCritical, alarm.AlarmLevel)
	assert.Equal(t, models.AlarmStatusActive, alarm.AlarmStatus)
	assert.Equal(t, "p-1", alarm.PatientID)
	assert.Contains(t, alarm.Message, "heartRate is 130")
	assert.Contains(t, alarm.Message, "for 3 consecutive readings")

	var td models.TriggerData
	require.NoError(t, json.Unmarshal([]byte(alarm.TriggerData), &td))
	assert.Equal(t, 3, td.ConsecutiveCount)
	assert.Equal(t, int64(1_700_000_000_000), td.ReadingTimestamp)
	assert.Nil(t, td.Emergency)

	var delivery []models.DeliveryResult
	require.NoError(t, json.Unmarshal([]byte(alarm.Delivery), &delivery))
	require.Len(t, delivery, 1)
	assert.Equal(t, models.DeliverySimulated, delivery[0].Status)

	assert.Len(t, notifier.alarms, 1)
	assert.Equal(t, []string{"Asha"}, notifier.names)
	assert.Len(t, repo.events, 1)
	assert.Equal(t, []string{alarm.EventID}, publisher.published)

	// 锁定中，继续异常不再告警
	alarms, err = e.Evaluate(ctx, reading())
	require.NoError(t, err)
	assert.Empty(t, alarms)
}

func TestEvaluator_MissingValuesDoNotResetOthers(t *testing.T) {
	e, _, _, _ := newTestEvaluator(nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := e.Evaluate(ctx, &models.VitalReading{DeviceID: "esp32-01", SpO2: models.Num(88)})
		require.NoError(t, err)
	}
	// 该条读数缺 spo2，只带心率
	_, err := e.Evaluate(ctx, &models.VitalReading{DeviceID: "esp32-01", HeartRate: models.Num(72)})
	require.NoError(t, err)

	alarms, err := e.Evaluate(ctx, &models.VitalReading{DeviceID: "esp32-01", SpO2: models.Num(88)})
	require.NoError(t, err)
	require.Len(t, alarms, 1)
	assert.Equal(t, models.MetricSpO2, alarms[0].Metric)

	var td models.TriggerData
	require.NoError(t, json.Unmarshal([]byte(alarms[0].TriggerData), &td))
	require.NotNil(t, td.Emergency)
	assert.True(t, td.Emergency.IsEmergency)
}

func TestEvaluator_FallAlert(t *testing.T) {
	e, notifier, _, clock := newTestEvaluator(nil)
	ctx := context.Background()

	alarms, err := e.Evaluate(ctx, &models.VitalReading{DeviceID: "esp32-01", FallDetected: true})
	require.NoError(t, err)
	require.Len(t, alarms, 1)
	assert.Equal(t, models.EventFall, alarms[0].EventType)
	assert.Equal(t, models.AlarmLevelAlert, alarms[0].AlarmLevel)
	assert.Equal(t, "Fall detected on device esp32-01", alarms[0].Message)

	clock.Advance(time.Minute)
	alarms, err = e.Evaluate(ctx, &models.VitalReading{DeviceID: "esp32-01", FallDetected: true})
	require.NoError(t, err)
	assert.Empty(t, alarms)
	assert.Len(t, notifier.alarms, 1)
}

func TestEvaluator_PersistFailureStillReturnsAlarm(t *testing.T) {
	e, notifier, publisher, _ := newTestEvaluator(&fakeEventsRepo{err: errors.New("connection refused")})

	alarms, err := e.Evaluate(context.Background(), &models.VitalReading{DeviceID: "esp32-01", FallDetected: true})
	require.NoError(t, err)
	assert.Len(t, alarms, 1)
	assert.Len(t, notifier.alarms, 1)
	assert.Len(t, publisher.published, 1)
}

func TestEvaluator_AssignsTimestamp(t *testing.T) {
	e, _, _, _ := newTestEvaluator(nil)
	r := &models.VitalReading{DeviceID: "esp32-01", HeartRate: models.Num(72)}
	_, err := e.Evaluate(context.Background(), r)
	require.NoError(t, err)
	assert.NotZero(t, r.Timestamp)
}

func TestVitalsEmergency(t *testing.T) {
	em := VitalsEmergency(&models.VitalReading{BodyTemp: models.Num(40.3), SpO2: models.Num(97)})
	assert.True(t, em.IsEmergency)

	em = VitalsEmergency(&models.VitalReading{BodyTemp: &models.Number{}})
	assert.False(t, em.IsEmergency)
	assert.False(t, em.IsUrgent)
}
