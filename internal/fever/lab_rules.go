package fever

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/models"
)

// ErrNoLabPrediction 化验值不足以得出结论
var ErrNoLabPrediction = errors.New("no lab prediction")

// LabDefaults 化验缺失值的参考默认值（外部模型按此补齐输入）
var LabDefaults = map[string]float64{
	"wbc_count":      7200,
	"rbc_count":      4.5,
	"platelet_count": 240000,
	"hemoglobin":     13.5,
	"crp":            5.0,
	"esr":            18,
	"neutrophils":    55,
	"lymphocytes":    32,
	"temperature_c":  37.0,
	"spo2":           97,
	"heart_rate_bpm": 80,
}

// 化验模型的标签空间
const (
	LabLabelViral     = "Viral Fever"
	LabLabelBacterial = "Bacterial Fever"
	LabLabelDengue    = "Dengue"
	LabLabelTyphoid   = "Typhoid"
	LabLabelMalaria   = "Malaria"
)

// labLabelAliases 化验标签（去掉 " fever" 后小写）到病因分类
var labLabelAliases = map[string]models.FeverType{
	"viral":       models.FeverViral,
	"bacterial":   models.FeverBacterial,
	"dengue":      models.FeverDengue,
	"typhoid":     models.FeverTyphoid,
	"enteric":     models.FeverTyphoid,
	"malaria":     models.FeverMalaria,
	"covid":       models.FeverCovidFlu,
	"covid_flu":   models.FeverCovidFlu,
	"covid-19":    models.FeverCovidFlu,
	"flu":         models.FeverCovidFlu,
	"influenza":   models.FeverCovidFlu,
	"heat_stroke": models.FeverHeatStroke,
	"heat stroke": models.FeverHeatStroke,
}

// LabLabelFeverType 把化验标签（规则或外部模型输出）映射到病因分类
// 如 "Bacterial Fever" -> bacterial；无法识别返回 false
func LabLabelFeverType(label string) (models.FeverType, bool) {
	key := strings.ToLower(strings.TrimSpace(label))
	key = strings.TrimSpace(strings.TrimSuffix(key, " fever"))
	ft, ok := labLabelAliases[key]
	return ft, ok
}

type labRule struct {
	label      string
	confidence float64
	when       func(l *models.LabValues) bool
}

func has(p *float64, pred func(float64) bool) bool {
	return p != nil && pred(*p)
}

// labRules 按顺序匹配，第一条命中即返回
var labRules = []labRule{
	{LabLabelDengue, 0.78, func(l *models.LabValues) bool {
		return has(l.PlateletCount, func(v float64) bool { return v < 130000 }) &&
			has(l.WBCCount, func(v float64) bool { return v < 4500 })
	}},
	{LabLabelBacterial, 0.74, func(l *models.LabValues) bool {
		return has(l.WBCCount, func(v float64) bool { return v > 12000 }) &&
			has(l.CRP, func(v float64) bool { return v > 20 })
	}},
	{LabLabelTyphoid, 0.70, func(l *models.LabValues) bool {
		return has(l.ESR, func(v float64) bool { return v > 45 }) &&
			has(l.CRP, func(v float64) bool { return v > 12 })
	}},
	{LabLabelViral, 0.66, func(l *models.LabValues) bool {
		return has(l.Lymphocytes, func(v float64) bool { return v > 45 }) &&
			has(l.WBCCount, func(v float64) bool { return v < 9000 })
	}},
	{LabLabelBacterial, 0.62, func(l *models.LabValues) bool {
		return has(l.Neutrophils, func(v float64) bool { return v > 70 }) &&
			has(l.Lymphocytes, func(v float64) bool { return v < 20 })
	}},
	{LabLabelMalaria, 0.70, func(l *models.LabValues) bool {
		return has(l.RBCCount, func(v float64) bool { return v < 3.5 }) &&
			has(l.PlateletCount, func(v float64) bool { return v < 150000 })
	}},
}

// markerOverrides 报告中明确的检测阳性标记优先
var markerOverrides = []struct {
	keyword    string
	confidence float64
}{
	{"Dengue", 0.9},
	{"Malaria", 0.85},
	{"Typhoid", 0.82},
}

// PredictFromLabs 规则化验预测（外部模型不可用时的兜底）
func PredictFromLabs(lab *models.LabValues, markers []string, temperatureC *float64) (*models.LabPrediction, error) {
	var pred *models.LabPrediction

	if lab != nil {
		for _, r := range labRules {
			if r.when(lab) {
				pred = &models.LabPrediction{FeverType: r.label, Confidence: r.confidence}
				break
			}
		}
	}

	if label, conf, ok := markerOverride(markers); ok {
		pred = &models.LabPrediction{FeverType: label, Confidence: conf}
	}

	if pred == nil {
		return nil, ErrNoLabPrediction
	}
	pred.Explanation = LabExplanation(lab, temperatureC, pred.FeverType)
	return pred, nil
}

func markerOverride(markers []string) (string, float64, bool) {
	for _, o := range markerOverrides {
		for _, m := range markers {
			if strings.Contains(strings.ToLower(m), strings.ToLower(o.keyword)) {
				return o.keyword, o.confidence, true
			}
		}
	}
	return "", 0, false
}

// LabExplanation 化验结论说明
func LabExplanation(lab *models.LabValues, temperatureC *float64, label string) string {
	var reasons []string
	if lab != nil {
		if has(lab.WBCCount, func(v float64) bool { return v > 12000 }) {
			reasons = append(reasons, "Elevated WBC count suggests bacterial stress.")
		}
		if has(lab.PlateletCount, func(v float64) bool { return v < 150000 }) {
			reasons = append(reasons, "Low platelet count consistent with viral hemorrhagic fevers.")
		}
		if has(lab.CRP, func(v float64) bool { return v > 15 }) {
			reasons = append(reasons, "CRP above 15 mg/L indicates ongoing inflammation.")
		}
	}
	if has(temperatureC, func(v float64) bool { return v >= 39 }) {
		reasons = append(reasons, "High temperature observed in report.")
	}
	if len(reasons) == 0 {
		reasons = append(reasons, fmt.Sprintf("Pattern of labs aligned with %s.", label))
	}
	return strings.Join(reasons, " ")
}
