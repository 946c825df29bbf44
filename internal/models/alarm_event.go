package models

import (
	"time"
)

// 事件类型
const (
	EventVitalAbnormal = "VitalAbnormal"
	EventFall          = "Fall"
)

// 报警级别
const (
	AlarmLevelWarning  = "WARNING"
	AlarmLevelCritical = "CRITICAL"
	AlarmLevelAlert    = "ALERT"
)

// 报警状态
const (
	AlarmStatusActive       = "active"
	AlarmStatusAcknowledged = "acknowledged"
)

// AlarmEvent 报警事件（对应 alarm_events 表）
type AlarmEvent struct {
	EventID     string     `json:"event_id" db:"event_id"`
	DeviceID    string     `json:"device_id" db:"device_id"`
	PatientID   string     `json:"patient_id,omitempty" db:"patient_id"`
	EventType   string     `json:"event_type" db:"event_type"`
	Metric      string     `json:"metric" db:"metric"`
	Status      string     `json:"status" db:"status"` // warning, critical
	Value       *float64   `json:"value,omitempty" db:"value"`
	Message     string     `json:"message" db:"message"`
	AlarmLevel  string     `json:"alarm_level" db:"alarm_level"`
	AlarmStatus string     `json:"alarm_status" db:"alarm_status"`
	TriggerData string     `json:"trigger_data" db:"trigger_data"` // JSONB
	Delivery    string     `json:"delivery" db:"delivery"`         // JSONB，DeliveryResult 列表
	Handler     *string    `json:"handler,omitempty" db:"handler"`
	HandTime    *time.Time `json:"hand_time,omitempty" db:"hand_time"`
	TriggeredAt time.Time  `json:"triggered_at" db:"triggered_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// TriggerData 触发数据快照（JSONB 结构）
type TriggerData struct {
	EventType        string           `json:"event_type"`
	Metric           string           `json:"metric,omitempty"`
	Value            *float64         `json:"value,omitempty"`
	Status           string           `json:"status,omitempty"`
	ConsecutiveCount int              `json:"consecutive_count,omitempty"`
	Threshold        *MetricThreshold `json:"threshold,omitempty"`
	Emergency        *EmergencyStatus `json:"emergency,omitempty"`
	ReadingTimestamp int64            `json:"reading_timestamp"`
}

// 投递结果
const (
	DeliverySent      = "sent"
	DeliverySimulated = "simulated"
	DeliveryFallback  = "fallback"
	DeliveryFailed    = "failed"
)

// DeliveryResult 单个通道的投递结果
type DeliveryResult struct {
	Channel   string `json:"channel"`
	Recipient string `json:"recipient,omitempty"`
	Status    string `json:"status"`
	Detail    string `json:"detail,omitempty"`
}
