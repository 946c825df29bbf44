package vitals

import (
	"math"

	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/models"
)

// Classify 单指标分级
// 低于 min：value < min*0.9 为 critical，否则 warning
// 高于 max：value > max*1.1 为 critical，否则 warning
// 10% 区间按比例计算，阈值跨零或为负时不成立，保持原样
func Classify(value float64, th models.MetricThreshold) models.Status {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return models.StatusUnknown
	}
	if value < th.Min {
		if value < th.Min*0.9 {
			return models.StatusCritical
		}
		return models.StatusWarning
	}
	if value > th.Max {
		if value > th.Max*1.1 {
			return models.StatusCritical
		}
		return models.StatusWarning
	}
	return models.StatusNormal
}

// MetricStatus 一个指标的分级结果
type MetricStatus struct {
	Metric    string                 `json:"metric"`
	Value     *float64               `json:"value"`
	Status    models.Status          `json:"status"`
	Threshold models.MetricThreshold `json:"threshold"`
}

// ClassifyReading 对读数中每个有阈值的指标分级；缺失值为 unknown
func ClassifyReading(r *models.VitalReading, table *ThresholdTable) []MetricStatus {
	results := make([]MetricStatus, 0, len(models.Metrics))
	for _, metric := range models.Metrics {
		th, ok := table.Get(metric)
		if !ok {
			continue
		}
		v := r.Value(metric)
		ms := MetricStatus{
			Metric:    metric,
			Status:    Classify(v, th),
			Threshold: th,
		}
		if ms.Status != models.StatusUnknown {
			ms.Value = &v
		}
		results = append(results, ms)
	}
	return results
}
