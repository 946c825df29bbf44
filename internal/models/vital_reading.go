package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// 指标名称（与前端/设备上报的 JSON 字段保持一致）
const (
	MetricHeartRate   = "heartRate"
	MetricSpO2        = "spo2"
	MetricBodyTemp    = "bodyTemp"
	MetricAmbientTemp = "ambientTemp"
	MetricAccMag      = "accMagnitude"
	MetricBloodSugar  = "bloodSugar"
	MetricSystolic    = "bloodPressureSystolic"
	MetricDiastolic   = "bloodPressureDiastolic"

	// MetricFall 跌倒事件不走阈值分级，只用于告警状态键
	MetricFall = "fall"
)

// Metrics 参与阈值分级的指标，顺序即评估顺序
var Metrics = []string{
	MetricHeartRate,
	MetricSpO2,
	MetricBodyTemp,
	MetricAmbientTemp,
	MetricAccMag,
	MetricBloodSugar,
	MetricSystolic,
	MetricDiastolic,
}

// Number 宽松的数值类型：非数值 JSON 解码为“缺失”而不是报错
type Number struct {
	Value float64
	Valid bool
}

// Num 构造有效数值
func Num(v float64) *Number {
	return &Number{Value: v, Valid: true}
}

// UnmarshalJSON 接受数字、数字字符串；其它类型（含 null）视为缺失
func (n *Number) UnmarshalJSON(data []byte) error {
	n.Value, n.Valid = 0, false
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		return nil
	}
	if s[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return nil
		}
		s = strings.TrimSpace(str)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	n.Value, n.Valid = v, true
	return nil
}

// MarshalJSON 缺失值输出 null
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(n.Value, 'f', -1, 64)), nil
}

// VitalReading 一次体征采样（写入后不可变）
type VitalReading struct {
	DeviceID               string  `json:"deviceId"`
	PatientID              string  `json:"patientId,omitempty"`
	PatientName            string  `json:"patientName,omitempty"`
	HeartRate              *Number `json:"heartRate,omitempty"`
	SpO2                   *Number `json:"spo2,omitempty"`
	BodyTemp               *Number `json:"bodyTemp,omitempty"`
	AmbientTemp            *Number `json:"ambientTemp,omitempty"`
	AccMagnitude           *Number `json:"accMagnitude,omitempty"`
	BloodSugar             *Number `json:"bloodSugar,omitempty"`
	BloodPressureSystolic  *Number `json:"bloodPressureSystolic,omitempty"`
	BloodPressureDiastolic *Number `json:"bloodPressureDiastolic,omitempty"`
	FallDetected           bool    `json:"fallDetected"`
	Timestamp              int64   `json:"timestamp"` // epoch ms，入库时赋值
}

// Value 取指标值；缺失或非有限数返回 NaN
func (r *VitalReading) Value(metric string) float64 {
	var n *Number
	switch metric {
	case MetricHeartRate:
		n = r.HeartRate
	case MetricSpO2:
		n = r.SpO2
	case MetricBodyTemp:
		n = r.BodyTemp
	case MetricAmbientTemp:
		n = r.AmbientTemp
	case MetricAccMag:
		n = r.AccMagnitude
	case MetricBloodSugar:
		n = r.BloodSugar
	case MetricSystolic:
		n = r.BloodPressureSystolic
	case MetricDiastolic:
		n = r.BloodPressureDiastolic
	}
	if n == nil || !n.Valid {
		return math.NaN()
	}
	return n.Value
}

// MetricThreshold 指标阈值
type MetricThreshold struct {
	Min         float64  `json:"min"`
	Max         float64  `json:"max"`
	CriticalMin *float64 `json:"criticalMin,omitempty"`
	CriticalMax *float64 `json:"criticalMax,omitempty"`
}

// Status 指标分级结果
type Status string

const (
	StatusNormal   Status = "normal"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
	StatusUnknown  Status = "unknown"
)

// IsAbnormal warning 或 critical
func (s Status) IsAbnormal() bool {
	return s == StatusWarning || s == StatusCritical
}
