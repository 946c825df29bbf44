package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/models"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/repository"
	"go.uber.org/zap"
)

// AlarmEventRepository 报警事件存储
type AlarmEventRepository interface {
	GetAlarmEvent(ctx context.Context, eventID string) (*models.AlarmEvent, error)
	ListAlarmEvents(ctx context.Context, filters repository.AlarmEventFilters, page, size int) ([]*models.AlarmEvent, int, error)
	AcknowledgeAlarmEvent(ctx context.Context, eventID, handlerID string, at time.Time) error
}

// AlarmEventService 报警事件服务层
// 职责：
// 1. 业务规则验证
// 2. 分页参数规整
// 3. 状态流转（active -> acknowledged）
type AlarmEventService struct {
	alarmEventsRepo AlarmEventRepository
	logger          *zap.Logger
	now             func() time.Time
}

// NewAlarmEventService 创建报警事件服务
func NewAlarmEventService(
	alarmEventsRepo AlarmEventRepository,
	logger *zap.Logger,
) *AlarmEventService {
	return &AlarmEventService{
		alarmEventsRepo: alarmEventsRepo,
		logger:          logger,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// ListAlarmEvents 查询报警事件列表（支持多条件过滤和分页）
// 业务规则：
// - page 和 size 必须 > 0，默认 1 / 20
// - size 最大 100
func (s *AlarmEventService) ListAlarmEvents(
	ctx context.Context,
	filters repository.AlarmEventFilters,
	page, size int,
) ([]*models.AlarmEvent, int, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20 // 默认每页 20 条
	}
	if size > 100 {
		size = 100 // 最大每页 100 条
	}

	events, total, err := s.alarmEventsRepo.ListAlarmEvents(ctx, filters, page, size)
	if err != nil {
		s.logger.Error("Failed to list alarm events",
			zap.Int("page", page),
			zap.Int("size", size),
			zap.Error(err),
		)
		return nil, 0, fmt.Errorf("failed to list alarm events: %w", err)
	}

	return events, total, nil
}

// GetAlarmEvent 获取单个报警事件
func (s *AlarmEventService) GetAlarmEvent(ctx context.Context, eventID string) (*models.AlarmEvent, error) {
	if eventID == "" {
		return nil, fmt.Errorf("event_id is required")
	}

	event, err := s.alarmEventsRepo.GetAlarmEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get alarm event: %w", err)
	}
	return event, nil
}

// AcknowledgeAlarmEvent 确认报警事件
// 业务规则：
// - event_id 和 handler_id 必填
// - 只能确认状态为 'active' 的报警
// - hand_time 取当前时间
func (s *AlarmEventService) AcknowledgeAlarmEvent(ctx context.Context, eventID, handlerID string) error {
	if eventID == "" {
		return fmt.Errorf("event_id is required")
	}
	if handlerID == "" {
		return fmt.Errorf("handler_id is required")
	}

	// 先获取报警事件，检查状态
	event, err := s.alarmEventsRepo.GetAlarmEvent(ctx, eventID)
	if err != nil {
		return fmt.Errorf("failed to get alarm event: %w", err)
	}
	if event.AlarmStatus != models.AlarmStatusActive {
		return fmt.Errorf("can only acknowledge active alarms, current status: %s", event.AlarmStatus)
	}

	if err := s.alarmEventsRepo.AcknowledgeAlarmEvent(ctx, eventID, handlerID, s.now()); err != nil {
		s.logger.Error("Failed to acknowledge alarm event",
			zap.String("event_id", eventID),
			zap.String("handler_id", handlerID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to acknowledge alarm event: %w", err)
	}

	s.logger.Info("Alarm event acknowledged",
		zap.String("event_id", eventID),
		zap.String("handler_id", handlerID),
	)
	return nil
}
