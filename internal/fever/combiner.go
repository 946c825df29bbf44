package fever

import (
	"math"
	"strings"

	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/models"
)

// LabOverrideConfidence 化验结果置信度达到该值时覆盖症状结果
const LabOverrideConfidence = 0.6

func validSymptom(p *models.SymptomPrediction) bool {
	if p == nil {
		return false
	}
	label := strings.TrimSpace(p.Label)
	return label != "" && !strings.EqualFold(label, "unknown")
}

func validLab(p *models.LabPrediction) bool {
	return p != nil && strings.TrimSpace(p.FeverType) != ""
}

// Combine 合并症状预测与化验预测
// 化验置信度 >= 0.6 时化验结论优先，概率取两者较大值；否则以症状为准，概率取平均
func Combine(symptom *models.SymptomPrediction, labPred *models.LabPrediction) models.FinalPrediction {
	hasSymptom := validSymptom(symptom)

	var out models.FinalPrediction
	switch {
	case !validLab(labPred):
		if symptom == nil {
			return models.FinalPrediction{Label: "Unknown", Probability: 0, Source: models.SourceNone, Severity: SeverityBucket(0)}
		}
		out = models.FinalPrediction{Label: symptom.Label, Probability: symptom.Probability, Source: models.SourceSymptoms}
	case !hasSymptom:
		out = models.FinalPrediction{Label: labPred.FeverType, Probability: labPred.Confidence, Source: models.SourceLab}
	case labPred.Confidence >= LabOverrideConfidence:
		out = models.FinalPrediction{
			Label:       labPred.FeverType,
			Probability: math.Max(labPred.Confidence, symptom.Probability),
			Source:      models.SourceLab,
		}
	default:
		out = models.FinalPrediction{
			Label:       symptom.Label,
			Probability: (labPred.Confidence + symptom.Probability) / 2,
			Source:      models.SourceCombined,
		}
	}
	out.Severity = SeverityBucket(out.Probability)
	return out
}
