package fever

import (
	"strings"

	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/models"
)

type guidanceEntry struct {
	otc         []string
	precautions []string
	diet        []string
	seeDoctor   bool
}

// 按概率分桶的基础建议
var severityGuidance = map[string]guidanceEntry{
	"Very Unlikely probability": {
		otc:         []string{"No medication needed unless symptoms develop"},
		precautions: []string{"Rest and monitor temperature twice a day"},
		diet:        []string{"Regular balanced meals", "Adequate water intake"},
	},
	"Low probability": {
		otc:         []string{"Paracetamol 500 mg if temperature exceeds 38°C (max 4 doses a day)"},
		precautions: []string{"Rest and monitor temperature every 6 hours", "Avoid strenuous activity"},
		diet:        []string{"Warm fluids and soups", "Fresh fruit rich in vitamin C"},
	},
	"Moderate probability": {
		otc: []string{
			"Paracetamol 500-650 mg every 6 hours as needed",
			"Oral rehydration salts",
		},
		precautions: []string{"Monitor temperature every 4 hours", "Isolate from vulnerable family members"},
		diet:        []string{"Light, easily digestible food", "Coconut water and electrolyte drinks"},
		seeDoctor:   true,
	},
	"High probability": {
		otc: []string{
			"Paracetamol 650 mg every 6 hours as needed",
			"Oral rehydration salts",
		},
		precautions: []string{"Consult a doctor within 24 hours", "Monitor temperature and oxygen saturation every 4 hours"},
		diet:        []string{"Small frequent meals", "At least 3 litres of fluids a day"},
		seeDoctor:   true,
	},
}

// 按病因补充的注意事项
var feverTypePrecautions = map[models.FeverType][]string{
	models.FeverDengue:     {"Avoid ibuprofen and aspirin", "Get a platelet count checked"},
	models.FeverMalaria:    {"Get a malaria smear or rapid antigen test"},
	models.FeverTyphoid:    {"Get a Widal or blood culture test", "Drink only boiled or bottled water"},
	models.FeverBacterial:  {"Antibiotics only on prescription"},
	models.FeverCovidFlu:   {"Wear a mask and self-isolate", "Check oxygen saturation regularly"},
	models.FeverHeatStroke: {"Move to a cool place and sponge with cool water"},
	models.FeverViral:      {"Steam inhalation for congestion"},
}

// GuidanceFor 按概率分桶与病因查表给出建议；急诊时强制就医
func GuidanceFor(severity string, feverType models.FeverType, emergency *models.EmergencyStatus) models.Guidance {
	entry, ok := severityGuidance[severity]
	if !ok {
		entry = severityGuidance["Low probability"]
	}

	g := models.Guidance{
		OTC:         append([]string{}, entry.otc...),
		Precautions: append([]string{}, entry.precautions...),
		Diet:        append([]string{}, entry.diet...),
		SeeDoctor:   entry.seeDoctor,
	}
	g.Precautions = append(g.Precautions, feverTypePrecautions[feverType]...)

	if feverType == models.FeverDengue {
		// 登革热禁用 NSAID
		g.OTC = filterOut(g.OTC, "ibuprofen")
	}

	if emergency != nil && emergency.IsEmergency {
		g.SeeDoctor = true
		g.Precautions = append([]string{"Seek emergency care immediately"}, g.Precautions...)
	} else if emergency != nil && emergency.IsUrgent {
		g.SeeDoctor = true
	}

	return g
}

func filterOut(items []string, keyword string) []string {
	out := items[:0]
	for _, it := range items {
		if !strings.Contains(strings.ToLower(it), keyword) {
			out = append(out, it)
		}
	}
	return out
}
