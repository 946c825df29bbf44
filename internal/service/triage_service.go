package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/fever"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/models"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/repository"
	"go.uber.org/zap"
)

// 发热自查结果状态
const (
	FeverCheckComplete   = "complete"
	FeverCheckIncomplete = "incomplete"
)

// SymptomPredictor 症状模型
type SymptomPredictor interface {
	Predict(ctx context.Context, b *models.FeverBundle) *models.SymptomPrediction
}

// LabPredictor 化验模型
type LabPredictor interface {
	Predict(ctx context.Context, b *models.FeverBundle) (*models.LabPrediction, error)
}

// Responder 会话追问回复
type Responder interface {
	Reply(ctx context.Context, session *models.Session, question string) string
}

// FeverCheckRequest 发热自查请求，体征与症状字段平铺在请求体中
type FeverCheckRequest struct {
	PatientID    string `json:"patient_id,omitempty"`
	AllowPartial bool   `json:"allow_partial,omitempty"`
	models.FeverBundle
}

// LabReportRequest 化验单提交请求；报告文件本身由外部存储，这里只记引用
type LabReportRequest struct {
	PatientID string `json:"patient_id,omitempty"`
	ReportRef string `json:"report_ref,omitempty"`
	models.FeverBundle
}

// FeverCheckResult 发热自查结果；缺字段时只返回缺失列表，不建会话
type FeverCheckResult struct {
	Status        string          `json:"status"`
	MissingFields []string        `json:"missing_fields,omitempty"`
	Session       *models.Session `json:"session,omitempty"`
}

// TriageService 发热分诊流程：评分 -> 急诊判断 -> 症状/化验预测 -> 合并 -> 建议 -> 存会话
type TriageService struct {
	sessions  repository.SessionStore
	symptoms  SymptomPredictor
	labs      LabPredictor
	assistant Responder
	logger    *zap.Logger
	now       func() time.Time
}

// NewTriageService 创建分诊服务
func NewTriageService(
	sessions repository.SessionStore,
	symptoms SymptomPredictor,
	labs LabPredictor,
	assistant Responder,
	logger *zap.Logger,
) *TriageService {
	return &TriageService{
		sessions:  sessions,
		symptoms:  symptoms,
		labs:      labs,
		assistant: assistant,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// FeverCheck 发热自查
func (s *TriageService) FeverCheck(ctx context.Context, req *FeverCheckRequest) (*FeverCheckResult, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	b := &req.FeverBundle

	missing := fever.MissingFields(b)
	if len(missing) > 0 && !req.AllowPartial {
		return &FeverCheckResult{Status: FeverCheckIncomplete, MissingFields: missing}, nil
	}

	session := s.assess(ctx, b, models.SessionFeverCheck, !b.Lab.IsEmpty() || len(b.Markers) > 0)
	session.PatientID = req.PatientID
	session.MissingFields = missing

	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.Info("Fever check completed",
		zap.String("session_id", session.SessionID),
		zap.String("fever_type", string(session.Assessment.FeverType)),
		zap.String("final_label", session.FinalPrediction.Label),
		zap.Bool("is_emergency", session.Emergency.IsEmergency),
		zap.Int("missing_fields", len(missing)),
	)

	return &FeverCheckResult{Status: FeverCheckComplete, MissingFields: missing, Session: session}, nil
}

// LabReport 化验单分析
func (s *TriageService) LabReport(ctx context.Context, req *LabReportRequest) (*models.Session, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	b := &req.FeverBundle
	if b.Lab.IsEmpty() && len(b.Markers) == 0 {
		return nil, fmt.Errorf("lab values or markers are required")
	}

	session := s.assess(ctx, b, models.SessionLabReport, true)
	session.PatientID = req.PatientID
	session.ReportRef = req.ReportRef

	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.Info("Lab report analysed",
		zap.String("session_id", session.SessionID),
		zap.Bool("lab_prediction", session.LabPrediction != nil),
		zap.String("final_label", session.FinalPrediction.Label),
	)

	return session, nil
}

// assess 对一份输入跑完整评估流程，返回未保存的会话
func (s *TriageService) assess(ctx context.Context, b *models.FeverBundle, kind string, withLab bool) *models.Session {
	assessment := fever.Score(b)
	emergency := fever.Evaluate(b)
	symptom := s.symptoms.Predict(ctx, b)

	var labPred *models.LabPrediction
	if withLab {
		var err error
		labPred, err = s.labs.Predict(ctx, b)
		if err != nil {
			labPred = nil
			if !errors.Is(err, fever.ErrNoLabPrediction) {
				s.logger.Warn("Lab prediction failed", zap.Error(err))
			}
		}
	}

	final := fever.Combine(symptom, labPred)
	guidance := fever.GuidanceFor(final.Severity, guidanceFeverType(final, assessment), &emergency)

	now := s.now()
	return &models.Session{
		SessionID:         uuid.New().String(),
		Kind:              kind,
		Inputs:            b,
		Assessment:        &assessment,
		Emergency:         &emergency,
		SymptomPrediction: symptom,
		LabPrediction:     labPred,
		FinalPrediction:   &final,
		Guidance:          &guidance,
		Conversation:      []models.ConversationTurn{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// guidanceFeverType 化验结论是已知病因时按化验结论给建议，否则按评分结果
func guidanceFeverType(final models.FinalPrediction, assessment models.FeverAssessment) models.FeverType {
	if final.Source == models.SourceLab {
		if ft, ok := fever.LabLabelFeverType(final.Label); ok {
			return ft
		}
	}
	return assessment.FeverType
}

// GetSession 读取会话
func (s *TriageService) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session_id is required")
	}
	return s.sessions.GetSession(ctx, sessionID)
}

// AddMessage 会话追问：记录问题和回复，只保留最近的对话
func (s *TriageService) AddMessage(ctx context.Context, sessionID, question string) (*models.Session, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("message is required")
	}

	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	answer := s.assistant.Reply(ctx, session, question)

	now := s.now()
	session.AppendTurn(models.ConversationTurn{Role: "user", Content: question, At: now})
	session.AppendTurn(models.ConversationTurn{Role: "assistant", Content: answer, At: now})
	session.UpdatedAt = now

	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return session, nil
}

// DeleteSession 删除会话
func (s *TriageService) DeleteSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	if err := s.sessions.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	s.logger.Info("Session deleted", zap.String("session_id", sessionID))
	return nil
}
