package fever

import (
	"testing"

	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredictFromLabs_Rules(t *testing.T) {
	cases := []struct {
		name  string
		lab   models.LabValues
		label string
	}{
		{"dengue", models.LabValues{PlateletCount: fp(110000), WBCCount: fp(3800)}, "Dengue"},
		{"bacterial wbc crp", models.LabValues{WBCCount: fp(15000), CRP: fp(40)}, LabLabelBacterial},
		{"typhoid", models.LabValues{ESR: fp(50), CRP: fp(14)}, "Typhoid"},
		{"viral", models.LabValues{Lymphocytes: fp(50), WBCCount: fp(6000)}, LabLabelViral},
		{"bacterial neutrophils", models.LabValues{Neutrophils: fp(80), Lymphocytes: fp(15)}, LabLabelBacterial},
		{"malaria", models.LabValues{RBCCount: fp(3.1), PlateletCount: fp(140000)}, "Malaria"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := PredictFromLabs(&tc.lab, nil, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.label, p.FeverType)
			assert.Greater(t, p.Confidence, 0.0)
			assert.NotEmpty(t, p.Explanation)
		})
	}
}

func TestPredictFromLabs_NoMatch(t *testing.T) {
	_, err := PredictFromLabs(&models.LabValues{WBCCount: fp(7200), PlateletCount: fp(240000)}, nil, nil)
	assert.ErrorIs(t, err, ErrNoLabPrediction)

	_, err = PredictFromLabs(nil, nil, nil)
	assert.ErrorIs(t, err, ErrNoLabPrediction)
}

func TestPredictFromLabs_MarkerOverride(t *testing.T) {
	p, err := PredictFromLabs(&models.LabValues{WBCCount: fp(15000), CRP: fp(40)}, []string{"NS1 antigen: dengue positive"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Dengue", p.FeverType)
	assert.Equal(t, 0.9, p.Confidence)

	p, err = PredictFromLabs(nil, []string{"Typhoid IgM reactive", "Malaria smear positive"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Malaria", p.FeverType, "malaria marker outranks typhoid")
	assert.Equal(t, 0.85, p.Confidence)
}

func TestLabExplanation(t *testing.T) {
	exp := LabExplanation(&models.LabValues{WBCCount: fp(13000), CRP: fp(22)}, fp(39.2), LabLabelBacterial)
	assert.Equal(t, "Elevated WBC count suggests bacterial stress. CRP above 15 mg/L indicates ongoing inflammation. High temperature observed in report.", exp)

	assert.Equal(t, "Pattern of labs aligned with Viral Fever.", LabExplanation(&models.LabValues{}, nil, LabLabelViral))
}

func TestLabLabelFeverType(t *testing.T) {
	cases := []struct {
		label string
		want  models.FeverType
	}{
		{LabLabelBacterial, models.FeverBacterial},
		{LabLabelViral, models.FeverViral},
		{"Dengue", models.FeverDengue},
		{"  typhoid fever ", models.FeverTyphoid},
		{"Malaria", models.FeverMalaria},
		{"Influenza", models.FeverCovidFlu},
		{"COVID", models.FeverCovidFlu},
		{"Heat Stroke", models.FeverHeatStroke},
		{"heat_stroke", models.FeverHeatStroke},
	}
	for _, tc := range cases {
		got, ok := LabLabelFeverType(tc.label)
		assert.True(t, ok, tc.label)
		assert.Equal(t, tc.want, got, tc.label)
	}

	_, ok := LabLabelFeverType("Autoimmune-related fever")
	assert.False(t, ok)
	_, ok = LabLabelFeverType("")
	assert.False(t, ok)
}

func TestPredictFromLabs_LabelsMapToFeverTypes(t *testing.T) {
	for _, r := range labRules {
		_, ok := LabLabelFeverType(r.label)
		assert.True(t, ok, r.label)
	}
}
