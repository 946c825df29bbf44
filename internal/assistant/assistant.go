package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/models"
	"go.uber.org/zap"
)

const systemPrompt = "You are a careful telehealth assistant helping a patient understand a fever check result. " +
	"Answer briefly in plain language, never prescribe doses beyond label instructions, and advise emergency care " +
	"when the session shows emergency flags. Session result as JSON: "

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Assistant 会话追问助手
// 配置了 chat completions 地址时优先调用模型，失败退回规则回复
type Assistant struct {
	httpClient *resty.Client
	model      string
	rules      RuleResponder
	logger     *zap.Logger
}

// New 创建助手，url 为空时只用规则回复
func New(url, apiKey, model string, timeout time.Duration, logger *zap.Logger) *Assistant {
	a := &Assistant{
		model:  model,
		logger: logger,
	}
	if url != "" {
		a.httpClient = resty.New().
			SetBaseURL(url).
			SetTimeout(timeout).
			SetRetryCount(1).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json")
		if apiKey != "" {
			a.httpClient.SetAuthToken(apiKey)
		}
	}
	return a
}

// Reply 回答一个问题（不修改会话，由调用方追加对话）
func (a *Assistant) Reply(ctx context.Context, session *models.Session, question string) string {
	if a.httpClient != nil {
		answer, err := a.chat(ctx, session, question)
		if err == nil {
			return answer
		}
		a.logger.Warn("Assistant model unavailable, using rule reply", zap.Error(err))
	}
	return a.rules.Respond(session, question)
}

func (a *Assistant) chat(ctx context.Context, session *models.Session, question string) (string, error) {
	summary, err := json.Marshal(sessionSummary(session))
	if err != nil {
		return "", fmt.Errorf("failed to marshal session summary: %w", err)
	}

	messages := []chatMessage{{Role: "system", Content: systemPrompt + string(summary)}}
	if session != nil {
		for _, turn := range session.Conversation {
			messages = append(messages, chatMessage{Role: turn.Role, Content: turn.Content})
		}
	}
	messages = append(messages, chatMessage{Role: "user", Content: question})

	var out chatResponse
	resp, err := a.httpClient.R().
		SetContext(ctx).
		SetBody(chatRequest{Model: a.model, Messages: messages, Temperature: 0.2, MaxTokens: 400}).
		SetResult(&out).
		SetError(&out).
		Post("")
	if err != nil {
		return "", fmt.Errorf("failed to call assistant model: %w", err)
	}
	if resp.IsError() {
		if out.Error != nil && out.Error.Message != "" {
			return "", fmt.Errorf("assistant model error: status %d: %s", resp.StatusCode(), out.Error.Message)
		}
		return "", fmt.Errorf("assistant model error: status %d", resp.StatusCode())
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("assistant model returned no choices")
	}
	answer := strings.TrimSpace(out.Choices[0].Message.Content)
	if answer == "" {
		return "", fmt.Errorf("assistant model returned empty content")
	}
	return answer, nil
}

// sessionSummary 发给模型的会话摘要（不含对话历史）
func sessionSummary(s *models.Session) interface{} {
	if s == nil {
		return struct{}{}
	}
	return struct {
		Kind       string                  `json:"kind"`
		Assessment *models.FeverAssessment `json:"assessment,omitempty"`
		Emergency  *models.EmergencyStatus `json:"emergency,omitempty"`
		Final      *models.FinalPrediction `json:"final_prediction,omitempty"`
		Guidance   *models.Guidance        `json:"guidance,omitempty"`
		Lab        *models.LabPrediction   `json:"lab_prediction,omitempty"`
	}{s.Kind, s.Assessment, s.Emergency, s.FinalPrediction, s.Guidance, s.LabPrediction}
}
