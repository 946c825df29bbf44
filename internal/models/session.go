package models

import (
	"time"
)

// 会话类型
const (
	SessionFeverCheck = "fever_check"
	SessionLabReport  = "lab_report"
)

// MaxConversationTurns 助手对话保留的最大轮数
const MaxConversationTurns = 10

// ConversationTurn 一轮助手对话
type ConversationTurn struct {
	Role    string    `json:"role"` // user, assistant
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Session 一次发热自查或化验单提交
type Session struct {
	SessionID         string             `json:"session_id" db:"session_id"`
	PatientID         string             `json:"patient_id,omitempty" db:"patient_id"`
	Kind              string             `json:"kind" db:"kind"`
	Inputs            *FeverBundle       `json:"inputs,omitempty"`
	MissingFields     []string           `json:"missing_fields,omitempty"`
	Assessment        *FeverAssessment   `json:"assessment,omitempty"`
	Emergency         *EmergencyStatus   `json:"emergency,omitempty"`
	SymptomPrediction *SymptomPrediction `json:"symptom_prediction,omitempty"`
	LabPrediction     *LabPrediction     `json:"lab_prediction,omitempty"`
	FinalPrediction   *FinalPrediction   `json:"final_prediction,omitempty"`
	Guidance          *Guidance          `json:"guidance,omitempty"`
	ReportRef         string             `json:"report_ref,omitempty" db:"report_ref"`
	Conversation      []ConversationTurn `json:"conversation"`
	CreatedAt         time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at" db:"updated_at"`
}

// AppendTurn 追加对话并只保留最近 MaxConversationTurns 轮
func (s *Session) AppendTurn(turn ConversationTurn) {
	s.Conversation = append(s.Conversation, turn)
	if n := len(s.Conversation); n > MaxConversationTurns {
		trimmed := make([]ConversationTurn, MaxConversationTurns)
		copy(trimmed, s.Conversation[n-MaxConversationTurns:])
		s.Conversation = trimmed
	}
}
