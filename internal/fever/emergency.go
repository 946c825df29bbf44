package fever

import (
	"fmt"

	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/models"
)

// Evaluate 急诊/紧急判断，两类独立判断，可以同时成立
func Evaluate(b *models.FeverBundle) models.EmergencyStatus {
	status := models.EmergencyStatus{Flags: []string{}}
	if b == nil {
		return status
	}

	temp, hasTemp := val(b.TemperatureC)
	spo2, hasSpO2 := val(b.SpO2)

	// 急诊
	if hasTemp && temp >= 40 {
		status.IsEmergency = true
		status.Flags = append(status.Flags, fmt.Sprintf("Emergency: temperature %.1f°C is at or above 40°C", temp))
	}
	if hasSpO2 && spo2 < 92 {
		status.IsEmergency = true
		status.Flags = append(status.Flags, fmt.Sprintf("Emergency: SpO2 %.0f%% is below 92%%", spo2))
	}
	if sys, ok := val(b.BPSystolic); ok && sys < 90 {
		status.IsEmergency = true
		status.Flags = append(status.Flags, fmt.Sprintf("Emergency: systolic blood pressure %.0f mmHg is below 90 mmHg", sys))
	}
	if b.BreathingDifficulty == models.SeveritySevere {
		status.IsEmergency = true
		status.Flags = append(status.Flags, "Emergency: severe breathing difficulty reported")
	}

	// 紧急
	if hasTemp && temp >= 39 && temp < 40 {
		status.IsUrgent = true
		status.Flags = append(status.Flags, fmt.Sprintf("Urgent: temperature %.1f°C is between 39°C and 40°C", temp))
	}
	if hasSpO2 && spo2 >= 92 && spo2 < 94 {
		status.IsUrgent = true
		status.Flags = append(status.Flags, fmt.Sprintf("Urgent: SpO2 %.0f%% is between 92%% and 94%%", spo2))
	}
	if rr, ok := val(b.RespiratoryRateBPM); ok && rr > 24 {
		status.IsUrgent = true
		status.Flags = append(status.Flags, fmt.Sprintf("Urgent: respiratory rate %.0f/min is above 24/min", rr))
	}

	return status
}
