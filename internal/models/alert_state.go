package models

// AlertState 每个 (deviceId, metric) 的连续异常状态
// 首次出现时惰性创建，只会被重置，不会被删除
type AlertState struct {
	ConsecutiveCount   int      `json:"consecutiveCount" dynamodbav:"consecutiveCount"`
	LastValue          *float64 `json:"lastValue" dynamodbav:"lastValue"`
	Locked             bool     `json:"locked" dynamodbav:"locked"`
	LastAlertTimestamp *int64   `json:"lastAlertTimestamp" dynamodbav:"lastAlertTimestamp"` // epoch ms
}

// StateKey 状态键：${deviceId}_${metric}
func StateKey(deviceID, metric string) string {
	return deviceID + "_" + metric
}
