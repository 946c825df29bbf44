package fever

import (
	"testing"

	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_HighTemperatureIsEmergencyOnly(t *testing.T) {
	s := Evaluate(&models.FeverBundle{
		TemperatureC:        fp(40.2),
		SpO2:                fp(96),
		BPSystolic:          fp(110),
		RespiratoryRateBPM:  fp(18),
		BreathingDifficulty: models.SeverityNone,
	})

	assert.True(t, s.IsEmergency)
	assert.False(t, s.IsUrgent, "40.2 is outside the [39,40) urgent band")
	require.Len(t, s.Flags, 1)
	assert.Contains(t, s.Flags[0], "40.2")
	assert.Contains(t, s.Flags[0], "40°C")
}

func TestEvaluate_EmergencyAndUrgentTogether(t *testing.T) {
	s := Evaluate(&models.FeverBundle{
		TemperatureC:       fp(39.4),
		SpO2:               fp(90),
		RespiratoryRateBPM: fp(28),
	})

	assert.True(t, s.IsEmergency, "SpO2 below 92")
	assert.True(t, s.IsUrgent, "temperature in [39,40) and fast breathing")
	assert.Len(t, s.Flags, 3)
}

func TestEvaluate_Conditions(t *testing.T) {
	cases := []struct {
		name      string
		bundle    models.FeverBundle
		emergency bool
		urgent    bool
	}{
		{"normal", models.FeverBundle{TemperatureC: fp(37), SpO2: fp(98), BPSystolic: fp(120), RespiratoryRateBPM: fp(16)}, false, false},
		{"temp exactly 40", models.FeverBundle{TemperatureC: fp(40)}, true, false},
		{"temp exactly 39", models.FeverBundle{TemperatureC: fp(39)}, false, true},
		{"spo2 exactly 92", models.FeverBundle{SpO2: fp(92)}, false, true},
		{"spo2 exactly 94", models.FeverBundle{SpO2: fp(94)}, false, false},
		{"spo2 91", models.FeverBundle{SpO2: fp(91)}, true, false},
		{"systolic 89", models.FeverBundle{BPSystolic: fp(89)}, true, false},
		{"systolic 90", models.FeverBundle{BPSystolic: fp(90)}, false, false},
		{"severe breathing", models.FeverBundle{BreathingDifficulty: models.SeveritySevere}, true, false},
		{"moderate breathing", models.FeverBundle{BreathingDifficulty: models.SeverityModerate}, false, false},
		{"respiratory 24", models.FeverBundle{RespiratoryRateBPM: fp(24)}, false, false},
		{"respiratory 25", models.FeverBundle{RespiratoryRateBPM: fp(25)}, false, true},
		{"nothing measured", models.FeverBundle{}, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := Evaluate(&tc.bundle)
			assert.Equal(t, tc.emergency, s.IsEmergency)
			assert.Equal(t, tc.urgent, s.IsUrgent)
			assert.NotNil(t, s.Flags)
		})
	}
}
