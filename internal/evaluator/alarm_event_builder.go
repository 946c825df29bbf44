package evaluator

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/models"
)

// AlarmEventBuilder 报警事件构建器
type AlarmEventBuilder struct {
	deviceID  string
	patientID string
	now       func() time.Time
}

// NewAlarmEventBuilder 创建报警事件构建器
func NewAlarmEventBuilder(deviceID, patientID string) *AlarmEventBuilder {
	return &AlarmEventBuilder{
		deviceID:  deviceID,
		patientID: patientID,
		now:       time.Now,
	}
}

// AlarmLevelFor 分级到报警级别的映射
func AlarmLevelFor(eventType string, status models.Status) string {
	if eventType == models.EventFall {
		return models.AlarmLevelAlert
	}
	if status == models.StatusCritical {
		return models.AlarmLevelCritical
	}
	return models.AlarmLevelWarning
}

// BuildAlarmEvent 构建报警事件
func (b *AlarmEventBuilder) BuildAlarmEvent(triggerData *models.TriggerData) (*models.AlarmEvent, error) {
	now := b.now()

	triggerDataJSON, err := json.Marshal(triggerData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal trigger data: %w", err)
	}

	status := models.Status(triggerData.Status)
	event := &models.AlarmEvent{
		EventID:     uuid.New().String(),
		DeviceID:    b.deviceID,
		PatientID:   b.patientID,
		EventType:   triggerData.EventType,
		Metric:      triggerData.Metric,
		Status:      triggerData.Status,
		Value:       triggerData.Value,
		Message:     DescribeAlarm(b.deviceID, triggerData),
		AlarmLevel:  AlarmLevelFor(triggerData.EventType, status),
		AlarmStatus: models.AlarmStatusActive,
		TriggerData: string(triggerDataJSON),
		Delivery:    "[]",
		TriggeredAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	return event, nil
}

// BuildTriggerData 构建指标异常的触发数据
func BuildTriggerData(
	metric string,
	value float64,
	status models.Status,
	consecutiveCount int,
	threshold models.MetricThreshold,
	readingTimestamp int64,
) *models.TriggerData {
	v := value
	th := threshold
	return &models.TriggerData{
		EventType:        models.EventVitalAbnormal,
		Metric:           metric,
		Value:            &v,
		Status:           string(status),
		ConsecutiveCount: consecutiveCount,
		Threshold:        &th,
		ReadingTimestamp: readingTimestamp,
	}
}

// DescribeAlarm 报警的一行描述
func DescribeAlarm(deviceID string, td *models.TriggerData) string {
	if td.EventType == models.EventFall {
		return fmt.Sprintf("Fall detected on device %s", deviceID)
	}

	value := "n/a"
	if td.Value != nil {
		value = strconv.FormatFloat(*td.Value, 'f', -1, 64)
	}
	msg := fmt.Sprintf("%s %s is %s on device %s", td.Status, td.Metric, value, deviceID)
	if td.Threshold != nil {
		msg += fmt.Sprintf(" (normal %s-%s)",
			strconv.FormatFloat(td.Threshold.Min, 'f', -1, 64),
			strconv.FormatFloat(td.Threshold.Max, 'f', -1, 64),
		)
	}
	if td.ConsecutiveCount > 0 {
		msg += fmt.Sprintf(" for %d consecutive readings", td.ConsecutiveCount)
	}
	return msg
}
