package assistant

import (
	"fmt"
	"strings"

	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/fever"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/models"
)

// 问题主题
const (
	TopicEmergency   = "emergency"
	TopicMedicine    = "medicine"
	TopicDiet        = "diet"
	TopicPrecautions = "precautions"
	TopicFeverType   = "fever_type"
	TopicGeneral     = "general"
)

// topicKeywords 按优先级排列，先命中先返回
var topicKeywords = []struct {
	topic    string
	keywords []string
}{
	{TopicEmergency, []string{"emergency", "hospital", "ambulance", "urgent", "doctor", "worse", "breath"}},
	{TopicMedicine, []string{"medicine", "medication", "tablet", "paracetamol", "dose", "drug", "pill"}},
	{TopicDiet, []string{"diet", "eat", "food", "drink", "fluid", "water"}},
	{TopicPrecautions, []string{"precaution", "care", "rest", "avoid", "should i", "what to do"}},
	{TopicFeverType, []string{"type", "cause", "why", "dengue", "malaria", "typhoid", "viral", "bacterial", "result"}},
}

// DetectTopic 关键词匹配问题主题
func DetectTopic(question string) string {
	q := strings.ToLower(question)
	for _, t := range topicKeywords {
		for _, kw := range t.keywords {
			if strings.Contains(q, kw) {
				return t.topic
			}
		}
	}
	return TopicGeneral
}

// RuleResponder 基于会话结果的规则回复
type RuleResponder struct{}

// Respond 根据问题主题和会话内容生成回复
func (RuleResponder) Respond(session *models.Session, question string) string {
	g := guidanceOf(session)

	switch DetectTopic(question) {
	case TopicEmergency:
		if session != nil && session.Emergency != nil && session.Emergency.IsEmergency {
			return "Your readings meet emergency criteria (" + strings.Join(session.Emergency.Flags, "; ") +
				"). Please go to the nearest emergency department or call an ambulance now."
		}
		return "Seek emergency care if you have trouble breathing, confusion, a temperature of 40°C or higher, " +
			"bleeding, or if symptoms get worse. Otherwise see a doctor if the fever lasts more than 3 days."
	case TopicMedicine:
		if len(g.OTC) == 0 {
			return "No over-the-counter medicine is suggested for your current result. Ask a doctor before taking any medication."
		}
		return "Over-the-counter options: " + strings.Join(g.OTC, "; ") + ". Follow the label dose and ask a pharmacist if unsure."
	case TopicDiet:
		return "Diet advice: " + strings.Join(g.Diet, "; ") + "."
	case TopicPrecautions:
		advice := "Precautions: " + strings.Join(g.Precautions, "; ") + "."
		if g.SeeDoctor {
			advice += " A doctor visit is recommended."
		}
		return advice
	case TopicFeverType:
		return describeResult(session)
	default:
		return describeResult(session) + " You can ask about medicine, diet, precautions or when to seek emergency care."
	}
}

func guidanceOf(session *models.Session) models.Guidance {
	if session != nil && session.Guidance != nil {
		return *session.Guidance
	}
	var feverType models.FeverType
	var severity string
	var emergency *models.EmergencyStatus
	if session != nil {
		if session.Assessment != nil {
			feverType = session.Assessment.FeverType
		}
		if session.FinalPrediction != nil {
			severity = session.FinalPrediction.Severity
		}
		emergency = session.Emergency
	}
	return fever.GuidanceFor(severity, feverType, emergency)
}

func describeResult(session *models.Session) string {
	if session == nil || (session.Assessment == nil && session.FinalPrediction == nil) {
		return "There is no assessment for this session yet."
	}

	var parts []string
	if a := session.Assessment; a != nil {
		s := fmt.Sprintf("The most likely fever type is %s (%d%% confidence)", a.FeverType, a.PrimaryConfidence)
		if a.SecondaryType != nil && a.SecondaryConfidence != nil {
			s += fmt.Sprintf(", with %s also possible (%d%%)", *a.SecondaryType, *a.SecondaryConfidence)
		}
		s += "."
		if a.Rationale != "" {
			s += " Indicators: " + a.Rationale + "."
		}
		parts = append(parts, s)
	}
	if p := session.FinalPrediction; p != nil && p.Source != models.SourceNone {
		parts = append(parts, fmt.Sprintf("The prediction is %s with %.0f%% probability (%s).", p.Label, p.Probability*100, p.Severity))
	}
	return strings.Join(parts, " ")
}
