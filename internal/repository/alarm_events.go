package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/models"
	"go.uber.org/zap"
)

// ErrAlarmEventNotFound 报警事件不存在
var ErrAlarmEventNotFound = errors.New("alarm event not found")

// AlarmEventsRepository 报警事件仓库
type AlarmEventsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAlarmEventsRepository 创建报警事件仓库
func NewAlarmEventsRepository(db *sql.DB, logger *zap.Logger) *AlarmEventsRepository {
	return &AlarmEventsRepository{
		db:     db,
		logger: logger,
	}
}

// AlarmEventFilters 报警事件过滤条件
type AlarmEventFilters struct {
	StartTime   *time.Time // triggered_at >= StartTime
	EndTime     *time.Time // triggered_at <= EndTime
	DeviceID    *string
	PatientID   *string
	EventType   *string
	Metric      *string
	AlarmLevel  *string
	AlarmStatus *string
}

const alarmEventColumns = `
			event_id,
			device_id,
			patient_id,
			event_type,
			metric,
			status,
			value,
			message,
			alarm_level,
			alarm_status,
			trigger_data,
			delivery,
			handler,
			hand_time,
			triggered_at,
			created_at,
			updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAlarmEvent(row rowScanner) (*models.AlarmEvent, error) {
	var event models.AlarmEvent
	var patientID, metric, status, handler sql.NullString
	var value sql.NullFloat64
	var handTime sql.NullTime
	var triggerData, delivery []byte

	if err := row.Scan(
		&event.EventID,
		&event.DeviceID,
		&patientID,
		&event.EventType,
		&metric,
		&status,
		&value,
		&event.Message,
		&event.AlarmLevel,
		&event.AlarmStatus,
		&triggerData,
		&delivery,
		&handler,
		&handTime,
		&event.TriggeredAt,
		&event.CreatedAt,
		&event.UpdatedAt,
	); err != nil {
		return nil, err
	}

	// 处理可空字段
	event.PatientID = patientID.String
	event.Metric = metric.String
	event.Status = status.String
	if value.Valid {
		event.Value = &value.Float64
	}
	if handler.Valid {
		event.Handler = &handler.String
	}
	if handTime.Valid {
		event.HandTime = &handTime.Time
	}

	// 处理 JSONB 字段
	event.TriggerData = "{}"
	if len(triggerData) > 0 {
		event.TriggerData = string(triggerData)
	}
	event.Delivery = "[]"
	if len(delivery) > 0 {
		event.Delivery = string(delivery)
	}

	return &event, nil
}

// CreateAlarmEvent 写入报警事件
func (r *AlarmEventsRepository) CreateAlarmEvent(ctx context.Context, event *models.AlarmEvent) error {
	if event == nil {
		return fmt.Errorf("event is required")
	}
	if event.EventID == "" {
		return fmt.Errorf("event_id is required")
	}
	if event.DeviceID == "" {
		return fmt.Errorf("device_id is required")
	}

	now := time.Now()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	if event.UpdatedAt.IsZero() {
		event.UpdatedAt = event.CreatedAt
	}
	if event.TriggerData == "" {
		event.TriggerData = "{}"
	}
	if event.Delivery == "" {
		event.Delivery = "[]"
	}

	query := `
		INSERT INTO alarm_events (` + alarmEventColumns + `
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::jsonb, $12::jsonb, $13, $14, $15, $16, $17
		)
	`

	_, err := r.db.ExecContext(ctx,
		query,
		event.EventID,
		event.DeviceID,
		nullString(event.PatientID),
		event.EventType,
		nullString(event.Metric),
		nullString(event.Status),
		event.Value,
		event.Message,
		event.AlarmLevel,
		event.AlarmStatus,
		event.TriggerData,
		event.Delivery,
		event.Handler,
		event.HandTime,
		event.TriggeredAt,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create alarm event: %w", err)
	}
	return nil
}

// GetAlarmEvent 根据 event_id 获取报警事件
func (r *AlarmEventsRepository) GetAlarmEvent(ctx context.Context, eventID string) (*models.AlarmEvent, error) {
	if eventID == "" {
		return nil, fmt.Errorf("event_id is required")
	}

	query := `SELECT ` + alarmEventColumns + `
		FROM alarm_events
		WHERE event_id = $1
	`

	event, err := scanAlarmEvent(r.db.QueryRowContext(ctx, query, eventID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: event_id=%s", ErrAlarmEventNotFound, eventID)
		}
		return nil, fmt.Errorf("failed to get alarm event: %w", err)
	}
	return event, nil
}

func buildWhereClause(filters AlarmEventFilters, args *[]interface{}) []string {
	where := []string{}
	add := func(cond string, v interface{}) {
		*args = append(*args, v)
		where = append(where, fmt.Sprintf(cond, len(*args)))
	}

	if filters.StartTime != nil {
		add("triggered_at >= $%d", *filters.StartTime)
	}
	if filters.EndTime != nil {
		add("triggered_at <= $%d", *filters.EndTime)
	}
	if filters.DeviceID != nil {
		add("device_id = $%d", *filters.DeviceID)
	}
	if filters.PatientID != nil {
		add("patient_id = $%d", *filters.PatientID)
	}
	if filters.EventType != nil {
		add("event_type = $%d", *filters.EventType)
	}
	if filters.Metric != nil {
		add("metric = $%d", *filters.Metric)
	}
	if filters.AlarmLevel != nil {
		add("alarm_level = $%d", *filters.AlarmLevel)
	}
	if filters.AlarmStatus != nil {
		add("alarm_status = $%d", *filters.AlarmStatus)
	}
	return where
}

// ListAlarmEvents 列表查询（多条件过滤、分页），返回当前页和总数
func (r *AlarmEventsRepository) ListAlarmEvents(ctx context.Context, filters AlarmEventFilters, page, size int) ([]*models.AlarmEvent, int, error) {
	args := []interface{}{}
	where := buildWhereClause(filters, &args)

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM alarm_events "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count alarm events: %w", err)
	}

	// 分页处理
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s
		FROM alarm_events
		%s
		ORDER BY triggered_at DESC
		LIMIT $%d OFFSET $%d
	`, alarmEventColumns, whereClause, len(args)+1, len(args)+2)
	args = append(args, size, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query alarm events: %w", err)
	}
	defer rows.Close()

	events := []*models.AlarmEvent{}
	for rows.Next() {
		event, err := scanAlarmEvent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan alarm event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate alarm events: %w", err)
	}

	return events, total, nil
}

// AcknowledgeAlarmEvent 确认报警：只对 active 状态生效
func (r *AlarmEventsRepository) AcknowledgeAlarmEvent(ctx context.Context, eventID, handlerID string, at time.Time) error {
	if eventID == "" {
		return fmt.Errorf("event_id is required")
	}
	if handlerID == "" {
		return fmt.Errorf("handler_id is required")
	}

	query := `
		UPDATE alarm_events
		SET alarm_status = $1,
		    handler = $2,
		    hand_time = $3,
		    updated_at = CURRENT_TIMESTAMP
		WHERE event_id = $4
		  AND alarm_status = $5
	`

	result, err := r.db.ExecContext(ctx, query,
		models.AlarmStatusAcknowledged,
		handlerID,
		at,
		eventID,
		models.AlarmStatusActive,
	)
	if err != nil {
		return fmt.Errorf("failed to acknowledge alarm event: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w or not active: event_id=%s", ErrAlarmEventNotFound, eventID)
	}
	return nil
}
