package fever

import (
	"testing"

	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestCombine_LabOverridesAboveFloor(t *testing.T) {
	out := Combine(
		&models.SymptomPrediction{Label: "Viral", Probability: 0.5},
		&models.LabPrediction{FeverType: "Dengue", Confidence: 0.65},
	)
	assert.Equal(t, "Dengue", out.Label)
	assert.InDelta(t, 0.65, out.Probability, 1e-9)
	assert.Equal(t, models.SourceLab, out.Source)
	assert.Equal(t, "Moderate probability", out.Severity)
}

func TestCombine_LabBelowFloorAverages(t *testing.T) {
	out := Combine(
		&models.SymptomPrediction{Label: "Viral", Probability: 0.5},
		&models.LabPrediction{FeverType: "Dengue", Confidence: 0.4},
	)
	assert.Equal(t, "Viral", out.Label)
	assert.InDelta(t, 0.45, out.Probability, 1e-9)
	assert.Equal(t, models.SourceCombined, out.Source)
	assert.Equal(t, "Low probability", out.Severity)
}

func TestCombine_LabAtFloorWinsWithMax(t *testing.T) {
	out := Combine(
		&models.SymptomPrediction{Label: "High Fever", Probability: 0.9},
		&models.LabPrediction{FeverType: "Typhoid", Confidence: 0.6},
	)
	assert.Equal(t, "Typhoid", out.Label)
	assert.InDelta(t, 0.9, out.Probability, 1e-9)
	assert.Equal(t, models.SourceLab, out.Source)
}

func TestCombine_Passthrough(t *testing.T) {
	symptom := &models.SymptomPrediction{Label: "Moderate Fever", Probability: 0.72}

	out := Combine(symptom, nil)
	assert.Equal(t, "Moderate Fever", out.Label)
	assert.Equal(t, 0.72, out.Probability)
	assert.Equal(t, models.SourceSymptoms, out.Source)

	out = Combine(nil, &models.LabPrediction{FeverType: "Malaria", Confidence: 0.3})
	assert.Equal(t, "Malaria", out.Label)
	assert.Equal(t, 0.3, out.Probability)
	assert.Equal(t, models.SourceLab, out.Source)

	// "Unknown" 不算有效症状标签
	out = Combine(&models.SymptomPrediction{Label: "Unknown", Probability: 0.9}, &models.LabPrediction{FeverType: "Malaria", Confidence: 0.3})
	assert.Equal(t, "Malaria", out.Label)
	assert.Equal(t, models.SourceLab, out.Source)
}

func TestCombine_NothingAvailable(t *testing.T) {
	out := Combine(nil, nil)
	assert.Equal(t, "Unknown", out.Label)
	assert.Equal(t, 0.0, out.Probability)
	assert.Equal(t, models.SourceNone, out.Source)
}
