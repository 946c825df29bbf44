package models

import "encoding/json"

// Severity 症状严重程度
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// FeverType 发热病因分类
type FeverType string

const (
	FeverViral      FeverType = "viral"
	FeverBacterial  FeverType = "bacterial"
	FeverDengue     FeverType = "dengue"
	FeverTyphoid    FeverType = "typhoid"
	FeverMalaria    FeverType = "malaria"
	FeverCovidFlu   FeverType = "covid_flu"
	FeverHeatStroke FeverType = "heat_stroke"
)

// FeverTypes 分类顺序（同分时按此顺序稳定排序）
var FeverTypes = []FeverType{
	FeverViral,
	FeverBacterial,
	FeverDengue,
	FeverTyphoid,
	FeverMalaria,
	FeverCovidFlu,
	FeverHeatStroke,
}

// LabValues 化验指标
type LabValues struct {
	WBCCount      *float64 `json:"wbc_count,omitempty"`
	RBCCount      *float64 `json:"rbc_count,omitempty"`
	PlateletCount *float64 `json:"platelet_count,omitempty"`
	Hemoglobin    *float64 `json:"hemoglobin,omitempty"`
	CRP           *float64 `json:"crp,omitempty"`
	ESR           *float64 `json:"esr,omitempty"`
	Neutrophils   *float64 `json:"neutrophils,omitempty"`
	Lymphocytes   *float64 `json:"lymphocytes,omitempty"`
}

// IsEmpty 没有任何化验值
func (l *LabValues) IsEmpty() bool {
	return l == nil || (l.WBCCount == nil && l.RBCCount == nil && l.PlateletCount == nil &&
		l.Hemoglobin == nil && l.CRP == nil && l.ESR == nil && l.Neutrophils == nil && l.Lymphocytes == nil)
}

// FeverBundle 发热评估输入（人口学 + 体征 + 症状 + 可选化验）
type FeverBundle struct {
	Age    *float64 `json:"age,omitempty"`
	Gender string   `json:"gender,omitempty"`

	TemperatureC       *float64 `json:"temperature_c,omitempty"`
	HeartRateBPM       *float64 `json:"heart_rate_bpm,omitempty"`
	RespiratoryRateBPM *float64 `json:"respiratory_rate_bpm,omitempty"`
	SpO2               *float64 `json:"spo2,omitempty"`
	BPSystolic         *float64 `json:"bp_systolic,omitempty"`
	BPDiastolic        *float64 `json:"bp_diastolic,omitempty"`
	BodyPainScale      *float64 `json:"body_pain_scale,omitempty"`

	Chills           bool `json:"chills,omitempty"`
	Sweating         bool `json:"sweating,omitempty"`
	LossOfAppetite   bool `json:"loss_of_appetite,omitempty"`
	SoreThroat       bool `json:"sore_throat,omitempty"`
	RunnyNose        bool `json:"runny_nose,omitempty"`
	NasalCongestion  bool `json:"nasal_congestion,omitempty"`
	Vomiting         bool `json:"vomiting,omitempty"`
	MedicalHistory   bool `json:"medical_history,omitempty"`
	Rash             bool `json:"rash,omitempty"`
	JointPain        bool `json:"joint_pain,omitempty"`
	RetroOrbitalPain bool `json:"retro_orbital_pain,omitempty"`
	AbdominalPain    bool `json:"abdominal_pain,omitempty"`
	Diarrhea         bool `json:"diarrhea,omitempty"`
	Constipation     bool `json:"constipation,omitempty"`
	LossOfTasteSmell bool `json:"loss_of_taste_smell,omitempty"`
	Bleeding         bool `json:"bleeding,omitempty"`
	HeatExposure     bool `json:"heat_exposure,omitempty"`
	Confusion        bool `json:"confusion,omitempty"`
	DrySkin          bool `json:"dry_skin,omitempty"`

	Fatigue             Severity `json:"fatigue,omitempty"`
	Headache            Severity `json:"headache,omitempty"`
	BodyAches           Severity `json:"body_aches,omitempty"`
	BreathingDifficulty Severity `json:"breathing_difficulty,omitempty"`
	Cough               Severity `json:"cough,omitempty"`

	FeverPattern string   `json:"fever_pattern,omitempty"` // continuous, intermittent, cyclic, step_ladder
	DurationDays *float64 `json:"duration_days,omitempty"`

	Lab     *LabValues `json:"lab,omitempty"`
	Markers []string   `json:"markers,omitempty"`
}

// FeverAssessment 病因评分结果（每次重新计算，嵌入 Session）
type FeverAssessment struct {
	FeverType           FeverType         `json:"feverType"`
	PrimaryConfidence   int               `json:"primaryConfidence"`
	SecondaryType       *FeverType        `json:"secondaryType,omitempty"`
	SecondaryConfidence *int              `json:"secondaryConfidence,omitempty"`
	AllConfidences      map[FeverType]int `json:"allConfidences"`
	Rationale           string            `json:"rationale"`
}

// EmergencyStatus 急诊/紧急标记
type EmergencyStatus struct {
	IsEmergency bool     `json:"isEmergency"`
	IsUrgent    bool     `json:"isUrgent"`
	Flags       []string `json:"flags"`
}

// SymptomPrediction 症状模型输出
type SymptomPrediction struct {
	Label       string          `json:"label"`
	Probability float64         `json:"probability"`
	Severity    string          `json:"severity,omitempty"`
	TopFeatures json.RawMessage `json:"topFeatures,omitempty"` // 模型给出的特征贡献，原样透传
}

// LabPrediction 化验模型输出
type LabPrediction struct {
	FeverType   string  `json:"fever_type"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation,omitempty"`
}

// 合并来源
const (
	SourceSymptoms = "symptoms"
	SourceLab      = "lab"
	SourceCombined = "combined"
	SourceNone     = "none"
)

// FinalPrediction 合并后的最终预测
type FinalPrediction struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
	Source      string  `json:"source"`
	Severity    string  `json:"severity,omitempty"`
}

// Guidance 用药/注意事项/饮食建议
type Guidance struct {
	OTC         []string `json:"otc"`
	Precautions []string `json:"precautions"`
	Diet        []string `json:"diet"`
	SeeDoctor   bool     `json:"seeDoctor"`
}
