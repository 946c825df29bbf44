package evaluator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/config"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/consumer"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/fever"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/models"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/vitals"
	"go.uber.org/zap"
)

// Notifier 告警通知（永不返回错误，结果写在投递记录里）
type Notifier interface {
	NotifyAlarm(ctx context.Context, alarm *models.AlarmEvent, patientName string) []models.DeliveryResult
}

// AlarmEventWriter 告警事件持久化
type AlarmEventWriter interface {
	CreateAlarmEvent(ctx context.Context, event *models.AlarmEvent) error
}

// AlarmPublisher 告警事件广播
type AlarmPublisher interface {
	PublishAlarm(ctx context.Context, alarm *models.AlarmEvent) error
}

// Evaluator 报警评估器：分级 -> 连续计数 -> 建事件 -> 通知 -> 入库 -> 广播
// 通知、入库、广播失败只记日志，不影响已经做出的告警判断
type Evaluator struct {
	config     *config.Config
	thresholds *vitals.ThresholdTable
	tracker    *ConsecutiveTracker
	fall       *FallDetector
	notifier   Notifier
	eventsRepo AlarmEventWriter
	publisher  AlarmPublisher
	logger     *zap.Logger
}

// NewEvaluator 创建评估器；notifier、eventsRepo、publisher 可以为 nil
func NewEvaluator(
	cfg *config.Config,
	thresholds *vitals.ThresholdTable,
	store consumer.StateStore,
	notifier Notifier,
	eventsRepo AlarmEventWriter,
	publisher AlarmPublisher,
	logger *zap.Logger,
) *Evaluator {
	return &Evaluator{
		config:     cfg,
		thresholds: thresholds,
		tracker:    NewConsecutiveTracker(store, cfg.Alarm.ConsecutiveThreshold, cfg.Alarm.Cooldown, logger),
		fall:       NewFallDetector(store, cfg.Alarm.FallCooldown, logger),
		notifier:   notifier,
		eventsRepo: eventsRepo,
		publisher:  publisher,
		logger:     logger,
	}
}

// Evaluate 评估一条读数，返回本次触发的报警事件
// 单个指标的状态存储失败只跳过该指标
func (e *Evaluator) Evaluate(ctx context.Context, reading *models.VitalReading) ([]models.AlarmEvent, error) {
	if reading.Timestamp == 0 {
		reading.Timestamp = time.Now().UnixMilli()
	}

	builder := NewAlarmEventBuilder(reading.DeviceID, reading.PatientID)
	emergency := VitalsEmergency(reading)

	var alarms []models.AlarmEvent

	for _, ms := range vitals.ClassifyReading(reading, e.thresholds) {
		if ms.Status == models.StatusUnknown {
			continue
		}

		obs, err := e.tracker.Observe(ctx, reading.DeviceID, ms.Metric, ms.Status, *ms.Value)
		if err != nil {
			e.logger.Error("Failed to track metric",
				zap.String("device_id", reading.DeviceID),
				zap.String("metric", ms.Metric),
				zap.Error(err),
			)
			continue
		}
		if !obs.Triggered {
			continue
		}

		td := BuildTriggerData(ms.Metric, *ms.Value, ms.Status, obs.Count, ms.Threshold, reading.Timestamp)
		if emergency.IsEmergency || emergency.IsUrgent {
			em := emergency
			td.Emergency = &em
		}
		alarm, err := builder.BuildAlarmEvent(td)
		if err != nil {
			e.logger.Error("Failed to build alarm event",
				zap.String("device_id", reading.DeviceID),
				zap.String("metric", ms.Metric),
				zap.Error(err),
			)
			continue
		}
		e.deliver(ctx, alarm, reading.PatientName)
		alarms = append(alarms, *alarm)
	}

	fell, err := e.fall.Observe(ctx, reading.DeviceID, reading.FallDetected)
	if err != nil {
		e.logger.Error("Failed to track fall",
			zap.String("device_id", reading.DeviceID),
			zap.Error(err),
		)
	} else if fell {
		alarm, err := builder.BuildAlarmEvent(&models.TriggerData{
			EventType:        models.EventFall,
			Metric:           models.MetricFall,
			ReadingTimestamp: reading.Timestamp,
		})
		if err == nil {
			e.deliver(ctx, alarm, reading.PatientName)
			alarms = append(alarms, *alarm)
		}
	}

	return alarms, nil
}

// deliver 通知、入库、广播
func (e *Evaluator) deliver(ctx context.Context, alarm *models.AlarmEvent, patientName string) {
	if e.notifier != nil {
		results := e.notifier.NotifyAlarm(ctx, alarm, patientName)
		if data, err := json.Marshal(results); err == nil {
			alarm.Delivery = string(data)
		}
	}

	if e.eventsRepo != nil {
		if err := e.eventsRepo.CreateAlarmEvent(ctx, alarm); err != nil {
			e.logger.Error("Failed to create alarm event",
				zap.String("event_id", alarm.EventID),
				zap.String("event_type", alarm.EventType),
				zap.Error(err),
			)
		}
	}

	if e.publisher != nil {
		if err := e.publisher.PublishAlarm(ctx, alarm); err != nil {
			e.logger.Warn("Failed to publish alarm event",
				zap.String("event_id", alarm.EventID),
				zap.Error(err),
			)
		}
	}

	e.logger.Info("Alarm event triggered",
		zap.String("event_id", alarm.EventID),
		zap.String("event_type", alarm.EventType),
		zap.String("device_id", alarm.DeviceID),
		zap.String("metric", alarm.Metric),
		zap.String("alarm_level", alarm.AlarmLevel),
	)
}

// VitalsEmergency 用读数中的体温、血氧、收缩压做急诊判断
func VitalsEmergency(reading *models.VitalReading) models.EmergencyStatus {
	b := &models.FeverBundle{
		TemperatureC: numberPtr(reading.BodyTemp),
		HeartRateBPM: numberPtr(reading.HeartRate),
		SpO2:         numberPtr(reading.SpO2),
		BPSystolic:   numberPtr(reading.BloodPressureSystolic),
		BPDiastolic:  numberPtr(reading.BloodPressureDiastolic),
	}
	return fever.Evaluate(b)
}

func numberPtr(n *models.Number) *float64 {
	if n == nil || !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}
