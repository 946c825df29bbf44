package fever

import (
	"testing"

	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestGuidanceFor_SeverityAndType(t *testing.T) {
	g := GuidanceFor("High probability", models.FeverDengue, nil)
	assert.True(t, g.SeeDoctor)
	assert.Contains(t, g.Precautions, "Avoid ibuprofen and aspirin")
	for _, otc := range g.OTC {
		assert.NotContains(t, otc, "ibuprofen")
	}
	assert.NotEmpty(t, g.Diet)
}

func TestGuidanceFor_UnknownSeverityFallsBack(t *testing.T) {
	g := GuidanceFor("whatever", models.FeverViral, nil)
	assert.False(t, g.SeeDoctor)
	assert.Contains(t, g.Precautions, "Steam inhalation for congestion")
}

func TestGuidanceFor_EmergencyForcesDoctor(t *testing.T) {
	g := GuidanceFor("Very Unlikely probability", models.FeverViral, &models.EmergencyStatus{IsEmergency: true})
	assert.True(t, g.SeeDoctor)
	assert.Equal(t, "Seek emergency care immediately", g.Precautions[0])

	g = GuidanceFor("Very Unlikely probability", models.FeverViral, &models.EmergencyStatus{IsUrgent: true})
	assert.True(t, g.SeeDoctor)
	assert.NotEqual(t, "Seek emergency care immediately", g.Precautions[0])
}

func TestGuidanceFor_DoesNotShareTableSlices(t *testing.T) {
	g := GuidanceFor("Low probability", models.FeverViral, nil)
	g.OTC[0] = "changed"

	again := GuidanceFor("Low probability", models.FeverViral, nil)
	assert.NotEqual(t, "changed", again.OTC[0])
}
