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

// labValuesPayload 化验模型输入：化验值 + 报告中的体征
type labValuesPayload struct {
	*models.LabValues
	TemperatureC *float64 `json:"temperature_c,omitempty"`
	SpO2         *float64 `json:"spo2,omitempty"`
	HeartRateBPM *float64 `json:"heart_rate_bpm,omitempty"`
}

type labPayload struct {
	LabValues labValuesPayload `json:"lab_values"`
	Markers   []string         `json:"markers"`
}

// LabClient 化验模型客户端，模型不可用或输出无效时退回规则预测
type LabClient struct {
	runner Runner
	logger *zap.Logger
}

// NewLabClient 创建化验模型客户端，runner 可为 nil
func NewLabClient(runner Runner, logger *zap.Logger) *LabClient {
	return &LabClient{
		runner: runner,
		logger: logger,
	}
}

// Predict 化验预测，返回 fever.ErrNoLabPrediction 表示没有可用结论
func (c *LabClient) Predict(ctx context.Context, b *models.FeverBundle) (*models.LabPrediction, error) {
	if b == nil {
		return nil, fever.ErrNoLabPrediction
	}

	if c.runner != nil {
		pred, err := c.callModel(ctx, b)
		if err == nil {
			return pred, nil
		}
		c.logger.Warn("Lab model unavailable, using rule prediction", zap.Error(err))
	}

	return fever.PredictFromLabs(b.Lab, b.Markers, b.TemperatureC)
}

func (c *LabClient) callModel(ctx context.Context, b *models.FeverBundle) (*models.LabPrediction, error) {
	lab := b.Lab
	if lab == nil {
		lab = &models.LabValues{}
	}
	markers := b.Markers
	if markers == nil {
		markers = []string{}
	}

	out, err := c.runner.Run(ctx, labPayload{
		LabValues: labValuesPayload{
			LabValues:    lab,
			TemperatureC: b.TemperatureC,
			SpO2:         b.SpO2,
			HeartRateBPM: b.HeartRateBPM,
		},
		Markers: markers,
	})
	if err != nil {
		return nil, err
	}
	return ParseLabPrediction(out)
}

// ParseLabPrediction 解析化验模型输出 {"fever_type","confidence","explanation"}
func ParseLabPrediction(data []byte) (*models.LabPrediction, error) {
	var resp struct {
		models.LabPrediction
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("invalid lab model output: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("lab model error: %s", resp.Error)
	}
	if strings.TrimSpace(resp.FeverType) == "" {
		return nil, fmt.Errorf("lab model returned no fever_type")
	}
	if resp.Confidence < 0 || resp.Confidence > 1 {
		return nil, fmt.Errorf("lab model confidence out of range: %v", resp.Confidence)
	}
	pred := resp.LabPrediction
	return &pred, nil
}
