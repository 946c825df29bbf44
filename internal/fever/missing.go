package fever

import (
	"strings"

	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/models"
)

// MissingFields 返回缺失的必填字段名；由调用方决定是否继续
func MissingFields(b *models.FeverBundle) []string {
	if b == nil {
		return []string{"age", "gender", "temperature_c", "heart_rate_bpm"}
	}
	var missing []string
	if b.Age == nil {
		missing = append(missing, "age")
	}
	if strings.TrimSpace(b.Gender) == "" {
		missing = append(missing, "gender")
	}
	if b.TemperatureC == nil {
		missing = append(missing, "temperature_c")
	}
	if b.HeartRateBPM == nil {
		missing = append(missing, "heart_rate_bpm")
	}
	return missing
}
