package fever

import (
	"testing"

	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverityBucket(t *testing.T) {
	assert.Equal(t, "Very Unlikely probability", SeverityBucket(0.1))
	assert.Equal(t, "Low probability", SeverityBucket(0.2))
	assert.Equal(t, "Low probability", SeverityBucket(0.49))
	assert.Equal(t, "Moderate probability", SeverityBucket(0.5))
	assert.Equal(t, "High probability", SeverityBucket(0.75))
	assert.Equal(t, "High probability", SeverityBucket(1))
}

func TestFeverGrade(t *testing.T) {
	assert.Equal(t, GradeNoFever, FeverGrade(37.4))
	assert.Equal(t, GradeLowFever, FeverGrade(37.5))
	assert.Equal(t, GradeModerateFever, FeverGrade(38))
	assert.Equal(t, GradeModerateFever, FeverGrade(38.49))
	assert.Equal(t, GradeHighFever, FeverGrade(38.5))
	assert.Equal(t, GradeHighFever, FeverGrade(38.9))
	assert.Equal(t, GradeHighFever, FeverGrade(39))
}

func TestTachycardia(t *testing.T) {
	assert.Equal(t, 110.0, TachycardiaThreshold(6))
	assert.Equal(t, 100.0, TachycardiaThreshold(35))
	assert.Equal(t, 95.0, TachycardiaThreshold(70))

	assert.True(t, IsTachycardic(&models.FeverBundle{Age: fp(70), HeartRateBPM: fp(98)}))
	assert.False(t, IsTachycardic(&models.FeverBundle{Age: fp(6), HeartRateBPM: fp(105)}))
	assert.False(t, IsTachycardic(&models.FeverBundle{Age: fp(30)}))
}

func TestPredictFromVitals(t *testing.T) {
	assert.Nil(t, PredictFromVitals(&models.FeverBundle{}))

	p := PredictFromVitals(&models.FeverBundle{TemperatureC: fp(40)})
	require.NotNil(t, p)
	assert.Equal(t, GradeHighFever, p.Label)
	assert.InDelta(t, 0.92, p.Probability, 1e-9)
	assert.Equal(t, "High probability", p.Severity)

	p = PredictFromVitals(&models.FeverBundle{TemperatureC: fp(38.0)})
	require.NotNil(t, p)
	assert.Equal(t, GradeModerateFever, p.Label)
	assert.InDelta(t, 0.70, p.Probability, 1e-9)

	// 38.5 以上标签与概率区间同为高热
	p = PredictFromVitals(&models.FeverBundle{TemperatureC: fp(38.7)})
	require.NotNil(t, p)
	assert.Equal(t, GradeHighFever, p.Label)
	assert.InDelta(t, 0.82, p.Probability, 1e-9)

	p = PredictFromVitals(&models.FeverBundle{TemperatureC: fp(36.8)})
	require.NotNil(t, p)
	assert.Equal(t, GradeNoFever, p.Label)

	// 心动过速略微提高概率
	tachy := PredictFromVitals(&models.FeverBundle{TemperatureC: fp(38.0), HeartRateBPM: fp(120), Age: fp(30)})
	require.NotNil(t, tachy)
	assert.InDelta(t, 0.73, tachy.Probability, 1e-9)
}

func TestMissingFields(t *testing.T) {
	assert.Equal(t, []string{"age", "gender", "temperature_c", "heart_rate_bpm"}, MissingFields(nil))
	assert.Equal(t, []string{"gender", "heart_rate_bpm"}, MissingFields(&models.FeverBundle{Age: fp(30), TemperatureC: fp(38)}))
	assert.Empty(t, MissingFields(&models.FeverBundle{Age: fp(30), Gender: "male", TemperatureC: fp(38), HeartRateBPM: fp(90)}))
}
