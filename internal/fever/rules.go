package fever

import (
	"fmt"

	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/models"
)

// Rule 一条评分规则：条件成立时给对应分类加分，并贡献一段说明
// 规则之间互不排斥，同一输入可以同时给多个分类加分
type Rule struct {
	Category models.FeverType
	Weight   int
	When     func(b *models.FeverBundle) bool
	Fragment func(b *models.FeverBundle) string
}

func text(s string) func(*models.FeverBundle) string {
	return func(*models.FeverBundle) string { return s }
}

func val(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

func tempIn(lo, hi float64) func(*models.FeverBundle) bool {
	return func(b *models.FeverBundle) bool {
		t, ok := val(b.TemperatureC)
		return ok && t >= lo && t < hi
	}
}

func tempAtLeast(lo float64) func(*models.FeverBundle) bool {
	return func(b *models.FeverBundle) bool {
		t, ok := val(b.TemperatureC)
		return ok && t >= lo
	}
}

func tempText(label string) func(*models.FeverBundle) string {
	return func(b *models.FeverBundle) string {
		t, _ := val(b.TemperatureC)
		return fmt.Sprintf("%s (%.1f°C)", label, t)
	}
}

func severityIn(get func(*models.FeverBundle) models.Severity, levels ...models.Severity) func(*models.FeverBundle) bool {
	return func(b *models.FeverBundle) bool {
		s := get(b)
		for _, l := range levels {
			if s == l {
				return true
			}
		}
		return false
	}
}

func lab(get func(*models.LabValues) *float64, pred func(float64) bool) func(*models.FeverBundle) bool {
	return func(b *models.FeverBundle) bool {
		if b.Lab == nil {
			return false
		}
		v, ok := val(get(b.Lab))
		return ok && pred(v)
	}
}

func flag(get func(*models.FeverBundle) bool) func(*models.FeverBundle) bool {
	return get
}

func cough(b *models.FeverBundle) models.Severity     { return b.Cough }
func aches(b *models.FeverBundle) models.Severity     { return b.BodyAches }
func headache(b *models.FeverBundle) models.Severity  { return b.Headache }
func fatigue(b *models.FeverBundle) models.Severity   { return b.Fatigue }
func breathing(b *models.FeverBundle) models.Severity { return b.BreathingDifficulty }

func wbc(l *models.LabValues) *float64         { return l.WBCCount }
func platelets(l *models.LabValues) *float64   { return l.PlateletCount }
func crp(l *models.LabValues) *float64         { return l.CRP }
func esr(l *models.LabValues) *float64         { return l.ESR }
func neutrophils(l *models.LabValues) *float64 { return l.Neutrophils }
func lymphocytes(l *models.LabValues) *float64 { return l.Lymphocytes }

func durationAtMost(days float64) func(*models.FeverBundle) bool {
	return func(b *models.FeverBundle) bool {
		d, ok := val(b.DurationDays)
		return ok && d <= days
	}
}

func durationOver(days float64) func(*models.FeverBundle) bool {
	return func(b *models.FeverBundle) bool {
		d, ok := val(b.DurationDays)
		return ok && d > days
	}
}

func patternIs(patterns ...string) func(*models.FeverBundle) bool {
	return func(b *models.FeverBundle) bool {
		for _, p := range patterns {
			if b.FeverPattern == p {
				return true
			}
		}
		return false
	}
}

// Rules 评分规则表（权重与临床校准保持一致，修改需同步更新校准）
var Rules = []Rule{
	// viral
	{models.FeverViral, 35, tempIn(38, 39), tempText("moderate fever")},
	{models.FeverViral, 15, tempIn(37.5, 38), tempText("low-grade fever")},
	{models.FeverViral, 15, flag(func(b *models.FeverBundle) bool { return b.SoreThroat }), text("sore throat")},
	{models.FeverViral, 15, flag(func(b *models.FeverBundle) bool { return b.RunnyNose }), text("runny nose")},
	{models.FeverViral, 10, flag(func(b *models.FeverBundle) bool { return b.NasalCongestion }), text("nasal congestion")},
	{models.FeverViral, 10, severityIn(aches, models.SeverityMild, models.SeverityModerate), text("mild to moderate body aches")},
	{models.FeverViral, 10, severityIn(cough, models.SeverityMild, models.SeverityModerate), text("cough present")},
	{models.FeverViral, 15, lab(lymphocytes, func(v float64) bool { return v > 40 }), text("lymphocyte predominance")},
	{models.FeverViral, 10, lab(wbc, func(v float64) bool { return v >= 4000 && v <= 11000 }), text("normal WBC count")},
	{models.FeverViral, 10, durationAtMost(5), text("short illness duration")},

	// bacterial
	{models.FeverBacterial, 25, tempAtLeast(39), tempText("high fever")},
	{models.FeverBacterial, 15, flag(func(b *models.FeverBundle) bool { return b.Chills }), text("chills")},
	{models.FeverBacterial, 30, lab(wbc, func(v float64) bool { return v > 11000 }), text("elevated WBC count")},
	{models.FeverBacterial, 20, lab(neutrophils, func(v float64) bool { return v > 70 }), text("neutrophilia")},
	{models.FeverBacterial, 20, lab(crp, func(v float64) bool { return v > 20 }), text("raised CRP")},
	{models.FeverBacterial, 10, durationOver(5), text("fever lasting more than 5 days")},
	{models.FeverBacterial, 5, flag(func(b *models.FeverBundle) bool { return b.MedicalHistory }), text("relevant medical history")},

	// dengue
	{models.FeverDengue, 25, func(b *models.FeverBundle) bool {
		t, okT := val(b.TemperatureC)
		hr, okH := val(b.HeartRateBPM)
		return okT && okH && t >= 39.5 && hr < 100
	}, text("pulse-temperature dissociation")},
	{models.FeverDengue, 15, tempAtLeast(39), tempText("high fever")},
	{models.FeverDengue, 15, severityIn(headache, models.SeveritySevere), text("severe headache")},
	{models.FeverDengue, 20, flag(func(b *models.FeverBundle) bool { return b.RetroOrbitalPain }), text("pain behind the eyes")},
	{models.FeverDengue, 15, func(b *models.FeverBundle) bool {
		return b.JointPain || b.BodyAches == models.SeveritySevere
	}, text("severe joint or muscle pain")},
	{models.FeverDengue, 15, flag(func(b *models.FeverBundle) bool { return b.Rash }), text("skin rash")},
	{models.FeverDengue, 20, flag(func(b *models.FeverBundle) bool { return b.Bleeding }), text("bleeding signs")},
	{models.FeverDengue, 25, lab(platelets, func(v float64) bool { return v < 150000 }), text("low platelet count")},
	{models.FeverDengue, 10, lab(platelets, func(v float64) bool { return v < 100000 }), text("platelets below 100,000")},
	{models.FeverDengue, 15, lab(wbc, func(v float64) bool { return v < 4000 }), text("leukopenia")},
	{models.FeverDengue, 5, flag(func(b *models.FeverBundle) bool { return b.Vomiting }), text("vomiting")},

	// typhoid
	{models.FeverTyphoid, 20, patternIs("step_ladder", "continuous"), text("sustained step-ladder fever pattern")},
	{models.FeverTyphoid, 10, tempIn(38.5, 40), tempText("persistent fever")},
	{models.FeverTyphoid, 20, flag(func(b *models.FeverBundle) bool { return b.AbdominalPain }), text("abdominal pain")},
	{models.FeverTyphoid, 10, func(b *models.FeverBundle) bool { return b.Constipation || b.Diarrhea }, text("bowel disturbance")},
	{models.FeverTyphoid, 10, flag(func(b *models.FeverBundle) bool { return b.LossOfAppetite }), text("loss of appetite")},
	{models.FeverTyphoid, 20, func(b *models.FeverBundle) bool {
		t, okT := val(b.TemperatureC)
		hr, okH := val(b.HeartRateBPM)
		return okT && okH && t >= 38.5 && hr < 90
	}, text("relative bradycardia")},
	{models.FeverTyphoid, 15, lab(esr, func(v float64) bool { return v > 30 }), text("raised ESR")},
	{models.FeverTyphoid, 15, func(b *models.FeverBundle) bool {
		d, ok := val(b.DurationDays)
		return ok && d >= 7
	}, text("fever for a week or more")},

	// malaria
	{models.FeverMalaria, 30, patternIs("cyclic", "intermittent"), text("cyclic fever with intervals")},
	{models.FeverMalaria, 20, flag(func(b *models.FeverBundle) bool { return b.Chills }), text("shaking chills")},
	{models.FeverMalaria, 20, flag(func(b *models.FeverBundle) bool { return b.Sweating }), text("profuse sweating")},
	{models.FeverMalaria, 5, severityIn(headache, models.SeverityMild, models.SeverityModerate, models.SeveritySevere), text("headache")},
	{models.FeverMalaria, 10, flag(func(b *models.FeverBundle) bool { return b.Vomiting }), text("vomiting")},
	{models.FeverMalaria, 10, lab(platelets, func(v float64) bool { return v < 150000 }), text("low platelet count")},
	{models.FeverMalaria, 10, tempAtLeast(39), tempText("high fever")},

	// covid_flu
	{models.FeverCovidFlu, 20, severityIn(cough, models.SeverityModerate, models.SeveritySevere), text("persistent cough")},
	{models.FeverCovidFlu, 15, severityIn(breathing, models.SeverityMild, models.SeverityModerate), text("breathing difficulty")},
	{models.FeverCovidFlu, 25, severityIn(breathing, models.SeveritySevere), text("severe breathing difficulty")},
	{models.FeverCovidFlu, 20, func(b *models.FeverBundle) bool {
		s, ok := val(b.SpO2)
		return ok && s < 95
	}, func(b *models.FeverBundle) string {
		return fmt.Sprintf("reduced oxygen saturation (%.0f%%)", *b.SpO2)
	}},
	{models.FeverCovidFlu, 25, flag(func(b *models.FeverBundle) bool { return b.LossOfTasteSmell }), text("loss of taste or smell")},
	{models.FeverCovidFlu, 10, severityIn(fatigue, models.SeverityModerate, models.SeveritySevere), text("marked fatigue")},
	{models.FeverCovidFlu, 5, flag(func(b *models.FeverBundle) bool { return b.SoreThroat }), text("sore throat")},
	{models.FeverCovidFlu, 10, severityIn(aches, models.SeverityMild, models.SeverityModerate, models.SeveritySevere), text("body aches")},
	{models.FeverCovidFlu, 10, func(b *models.FeverBundle) bool {
		rr, ok := val(b.RespiratoryRateBPM)
		return ok && rr > 20
	}, text("fast breathing")},

	// heat_stroke
	{models.FeverHeatStroke, 30, tempAtLeast(40), tempText("very high body temperature")},
	{models.FeverHeatStroke, 35, flag(func(b *models.FeverBundle) bool { return b.HeatExposure }), text("recent heat exposure")},
	{models.FeverHeatStroke, 25, flag(func(b *models.FeverBundle) bool { return b.Confusion }), text("confusion")},
	{models.FeverHeatStroke, 15, flag(func(b *models.FeverBundle) bool { return b.DrySkin }), text("hot dry skin")},
	{models.FeverHeatStroke, 10, func(b *models.FeverBundle) bool {
		hr, ok := val(b.HeartRateBPM)
		return ok && hr > 120
	}, text("racing pulse")},
}
