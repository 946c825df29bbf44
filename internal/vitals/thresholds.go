package vitals

import (
	"fmt"
	"sort"
	"sync"

	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/models"
)

func f64(v float64) *float64 { return &v }

// DefaultThresholds 默认阈值表
func DefaultThresholds() map[string]models.MetricThreshold {
	return map[string]models.MetricThreshold{
		models.MetricHeartRate:   {Min: 60, Max: 100, CriticalMin: f64(50), CriticalMax: f64(120)},
		models.MetricSpO2:        {Min: 95, Max: 100, CriticalMin: f64(90)},
		models.MetricBodyTemp:    {Min: 36.1, Max: 37.5, CriticalMin: f64(35), CriticalMax: f64(39.5)},
		models.MetricAmbientTemp: {Min: 18, Max: 30},
		models.MetricAccMag:      {Min: 0.5, Max: 2.0},
		models.MetricBloodSugar:  {Min: 70, Max: 140, CriticalMin: f64(54), CriticalMax: f64(250)},
		models.MetricSystolic:    {Min: 90, Max: 140, CriticalMin: f64(80), CriticalMax: f64(180)},
		models.MetricDiastolic:   {Min: 60, Max: 90, CriticalMin: f64(50), CriticalMax: f64(120)},
	}
}

// ThresholdTable 阈值表：启动时加载，运行期只允许管理员显式修改
type ThresholdTable struct {
	mu         sync.RWMutex
	thresholds map[string]models.MetricThreshold
}

// NewThresholdTable 使用默认阈值创建阈值表
func NewThresholdTable() *ThresholdTable {
	return &ThresholdTable{thresholds: DefaultThresholds()}
}

// Get 获取指标阈值
func (t *ThresholdTable) Get(metric string) (models.MetricThreshold, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	th, ok := t.thresholds[metric]
	return th, ok
}

// All 返回阈值表副本
func (t *ThresholdTable) All() map[string]models.MetricThreshold {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]models.MetricThreshold, len(t.thresholds))
	for k, v := range t.thresholds {
		out[k] = v
	}
	return out
}

// Metrics 已配置阈值的指标（按名称排序）
func (t *ThresholdTable) Metrics() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.thresholds))
	for k := range t.thresholds {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Set 覆盖某个指标的阈值（管理员操作）
func (t *ThresholdTable) Set(metric string, th models.MetricThreshold) error {
	if err := validateThreshold(metric, th); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.thresholds[metric]; !ok {
		return fmt.Errorf("unknown metric: %s", metric)
	}
	t.thresholds[metric] = th
	return nil
}

// ApplyOverride 按字段覆盖阈值，nil 字段保持原值
func (t *ThresholdTable) ApplyOverride(metric string, min, max, criticalMin, criticalMax *float64) error {
	current, ok := t.Get(metric)
	if !ok {
		return fmt.Errorf("unknown metric: %s", metric)
	}
	if min != nil {
		current.Min = *min
	}
	if max != nil {
		current.Max = *max
	}
	if criticalMin != nil {
		current.CriticalMin = f64(*criticalMin)
	}
	if criticalMax != nil {
		current.CriticalMax = f64(*criticalMax)
	}
	return t.Set(metric, current)
}

func validateThreshold(metric string, th models.MetricThreshold) error {
	if th.Min > th.Max {
		return fmt.Errorf("invalid threshold for %s: min %.2f > max %.2f", metric, th.Min, th.Max)
	}
	if th.CriticalMin != nil && *th.CriticalMin > th.Min {
		return fmt.Errorf("invalid threshold for %s: criticalMin %.2f > min %.2f", metric, *th.CriticalMin, th.Min)
	}
	if th.CriticalMax != nil && *th.CriticalMax < th.Max {
		return fmt.Errorf("invalid threshold for %s: criticalMax %.2f < max %.2f", metric, *th.CriticalMax, th.Max)
	}
	return nil
}
