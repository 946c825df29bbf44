package predictor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/fever"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/models"
	"go.uber.org/zap"
)

// symptomResponse 症状模型输出
type symptomResponse struct {
	Prediction *struct {
		Label       string  `json:"label"`
		Probability float64 `json:"probability"`
		Severity    string  `json:"severity"`
	} `json:"prediction"`
	Explainability *struct {
		TopFeatures json.RawMessage `json:"top_features"`
	} `json:"explainability"`
	Error string `json:"error"`
}

// SymptomClient 症状模型客户端，模型不可用时按体温规则预测
type SymptomClient struct {
	runner Runner
	logger *zap.Logger
}

// NewSymptomClient 创建症状模型客户端，runner 可为 nil
func NewSymptomClient(runner Runner, logger *zap.Logger) *SymptomClient {
	return &SymptomClient{
		runner: runner,
		logger: logger,
	}
}

// Predict 症状预测；没有体温且模型不可用时返回 nil
func (c *SymptomClient) Predict(ctx context.Context, b *models.FeverBundle) *models.SymptomPrediction {
	if b == nil {
		return nil
	}

	if c.runner != nil {
		out, err := c.runner.Run(ctx, b)
		if err == nil {
			var pred *models.SymptomPrediction
			if pred, err = ParseSymptomPrediction(out); err == nil {
				return pred
			}
		}
		c.logger.Warn("Symptom model unavailable, using rule prediction", zap.Error(err))
	}

	return fever.PredictFromVitals(b)
}

// ParseSymptomPrediction 解析 {"prediction":{...},"explainability":{"top_features":[...]}}
func ParseSymptomPrediction(data []byte) (*models.SymptomPrediction, error) {
	var resp symptomResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("invalid symptom model output: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("symptom model error: %s", resp.Error)
	}
	if resp.Prediction == nil || strings.TrimSpace(resp.Prediction.Label) == "" {
		return nil, fmt.Errorf("symptom model returned no prediction")
	}
	p := resp.Prediction.Probability
	if p < 0 || p > 1 {
		return nil, fmt.Errorf("symptom model probability out of range: %v", p)
	}

	pred := &models.SymptomPrediction{
		Label:       resp.Prediction.Label,
		Probability: p,
		Severity:    resp.Prediction.Severity,
	}
	if pred.Severity == "" {
		pred.Severity = fever.SeverityBucket(p)
	}
	if resp.Explainability != nil && len(resp.Explainability.TopFeatures) > 0 {
		pred.TopFeatures = resp.Explainability.TopFeatures
	}
	return pred, nil
}
