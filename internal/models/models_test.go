package models

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVitalReading_LenientNumbers(t *testing.T) {
	raw := `{"deviceId":"d1","heartRate":"112","spo2":"abc","bodyTemp":38.2,"bloodSugar":null,"accMagnitude":{"x":1}}`

	var r VitalReading
	require.NoError(t, json.Unmarshal([]byte(raw), &r))

	assert.Equal(t, "d1", r.DeviceID)
	assert.Equal(t, 112.0, r.Value(MetricHeartRate))
	assert.True(t, math.IsNaN(r.Value(MetricSpO2)))
	assert.Equal(t, 38.2, r.Value(MetricBodyTemp))
	assert.True(t, math.IsNaN(r.Value(MetricBloodSugar)))
	assert.True(t, math.IsNaN(r.Value(MetricAccMag)))
	assert.True(t, math.IsNaN(r.Value(MetricDiastolic)))
}

func TestNumber_MarshalInvalidAsNull(t *testing.T) {
	b, err := json.Marshal(struct {
		A *Number `json:"a"`
		B *Number `json:"b"`
	}{A: Num(36.6), B: &Number{}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":36.6,"b":null}`, string(b))
}

func TestSession_AppendTurnKeepsLastTen(t *testing.T) {
	s := &Session{}
	for i := 0; i < 13; i++ {
		s.AppendTurn(ConversationTurn{Role: "user", Content: fmt.Sprintf("q%d", i)})
	}
	require.Len(t, s.Conversation, MaxConversationTurns)
	assert.Equal(t, "q3", s.Conversation[0].Content)
	assert.Equal(t, "q12", s.Conversation[9].Content)
}

func TestStateKey(t *testing.T) {
	assert.Equal(t, "esp32-01_heartRate", StateKey("esp32-01", MetricHeartRate))
}

func TestLabValues_IsEmpty(t *testing.T) {
	var nilLab *LabValues
	assert.True(t, nilLab.IsEmpty())
	assert.True(t, (&LabValues{}).IsEmpty())
	v := 7200.0
	assert.False(t, (&LabValues{WBCCount: &v}).IsEmpty())
}
