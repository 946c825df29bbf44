package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/config"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/models"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/vitals"
	"go.uber.org/zap"
)

// ReadingWriter 读数持久化
type ReadingWriter interface {
	InsertReading(ctx context.Context, reading *models.VitalReading) error
}

// LatestCache 最新读数缓存
type LatestCache interface {
	SetLatest(ctx context.Context, reading *models.VitalReading) error
}

// ReadingEvaluator 单条读数的报警评估
type ReadingEvaluator interface {
	Evaluate(ctx context.Context, reading *models.VitalReading) ([]models.AlarmEvent, error)
}

// ReadingService 读数处理流程：打时间戳 -> 入库 -> 更新缓存 -> 报警评估
// 入库、缓存失败只记日志，评估照常进行
type ReadingService struct {
	readingsRepo ReadingWriter
	cache        LatestCache
	evaluator    ReadingEvaluator
	logger       *zap.Logger
	now          func() time.Time
}

// NewReadingService 创建读数服务；readingsRepo、cache 可以为 nil
func NewReadingService(readingsRepo ReadingWriter, cache LatestCache, eval ReadingEvaluator, logger *zap.Logger) *ReadingService {
	return &ReadingService{
		readingsRepo: readingsRepo,
		cache:        cache,
		evaluator:    eval,
		logger:       logger,
		now:          time.Now,
	}
}

// HandleReading 实现 consumer.ReadingHandler
func (s *ReadingService) HandleReading(ctx context.Context, reading *models.VitalReading) error {
	_, err := s.Ingest(ctx, reading)
	return err
}

// Ingest 处理一条读数，返回本次触发的报警
func (s *ReadingService) Ingest(ctx context.Context, reading *models.VitalReading) ([]models.AlarmEvent, error) {
	if reading == nil {
		return nil, fmt.Errorf("reading is required")
	}
	if reading.DeviceID == "" {
		return nil, fmt.Errorf("deviceId is required")
	}

	// 时间戳以接入时刻为准
	reading.Timestamp = s.now().UnixMilli()

	if s.readingsRepo != nil {
		if err := s.readingsRepo.InsertReading(ctx, reading); err != nil {
			s.logger.Error("Failed to persist reading",
				zap.String("device_id", reading.DeviceID),
				zap.Error(err),
			)
		}
	}

	if s.cache != nil {
		if err := s.cache.SetLatest(ctx, reading); err != nil {
			s.logger.Warn("Failed to cache latest reading",
				zap.String("device_id", reading.DeviceID),
				zap.Error(err),
			)
		}
	}

	alarms, err := s.evaluator.Evaluate(ctx, reading)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate reading: %w", err)
	}
	return alarms, nil
}

// NewThresholdTable 默认阈值表叠加配置中的覆盖项
func NewThresholdTable(cfg *config.Config, logger *zap.Logger) (*vitals.ThresholdTable, error) {
	table := vitals.NewThresholdTable()
	for metric, o := range cfg.Thresholds {
		if err := table.ApplyOverride(metric, o.Min, o.Max, o.CriticalMin, o.CriticalMax); err != nil {
			return nil, fmt.Errorf("invalid threshold override for %s: %w", metric, err)
		}
		th, _ := table.Get(metric)
		logger.Info("Threshold overridden",
			zap.String("metric", metric),
			zap.Float64("min", th.Min),
			zap.Float64("max", th.Max),
		)
	}
	return table, nil
}
