package fever

import (
	"math"

	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/models"
)

// 体温分级标签（与症状模型的标签空间一致）
const (
	GradeNoFever       = "No Fever"
	GradeLowFever      = "Low Fever"
	GradeModerateFever = "Moderate Fever"
	GradeHighFever     = "High Fever"
)

// SeverityBucket 概率分桶，输出如 "Moderate probability"
func SeverityBucket(p float64) string {
	switch {
	case math.IsNaN(p):
		return "Unknown probability"
	case p < 0.2:
		return "Very Unlikely probability"
	case p < 0.5:
		return "Low probability"
	case p < 0.75:
		return "Moderate probability"
	default:
		return "High probability"
	}
}

// FeverGrade 按体温分级，分界与 PredictFromVitals 的概率区间一致（38.5 起为高热）
func FeverGrade(tempC float64) string {
	switch {
	case tempC >= 38.5:
		return GradeHighFever
	case tempC >= 38:
		return GradeModerateFever
	case tempC >= 37.5:
		return GradeLowFever
	default:
		return GradeNoFever
	}
}

// TachycardiaThreshold 按年龄的心动过速阈值（bpm）
func TachycardiaThreshold(age float64) float64 {
	switch {
	case age < 12:
		return 110
	case age < 60:
		return 100
	default:
		return 95
	}
}

// IsTachycardic 心率是否超过年龄对应阈值；缺少年龄按成人处理
func IsTachycardic(b *models.FeverBundle) bool {
	hr, ok := val(b.HeartRateBPM)
	if !ok {
		return false
	}
	age, ok := val(b.Age)
	if !ok {
		age = 30
	}
	return hr > TachycardiaThreshold(age)
}

// PredictFromVitals 症状模型不可用时的规则预测：按体温分级，概率随体温升高
// 没有体温时返回 nil
func PredictFromVitals(b *models.FeverBundle) *models.SymptomPrediction {
	if b == nil {
		return nil
	}
	temp, ok := val(b.TemperatureC)
	if !ok {
		return nil
	}

	var p float64
	switch {
	case temp >= 40:
		p = math.Min(0.98, 0.92+(temp-40)*0.03)
	case temp >= 39.5:
		p = 0.88 + (temp-39.5)*0.08
	case temp >= 39:
		p = 0.85 + (temp-39)*0.06
	case temp >= 38.5:
		p = 0.80 + (temp-38.5)*0.10
	case temp >= 38:
		p = 0.70 + (temp-38)*0.20
	case temp >= 37.5:
		p = 0.60
	default:
		p = 0.75
	}
	if IsTachycardic(b) && temp >= 37.5 {
		p = math.Min(0.98, p+0.03)
	}
	p = math.Round(p*10000) / 10000

	return &models.SymptomPrediction{
		Label:       FeverGrade(temp),
		Probability: p,
		Severity:    SeverityBucket(p),
	}
}
