package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/repository"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/service"
	"go.uber.org/zap"
)

const alarmEventsPrefix = "/api/v1/alarm-events/"

// AlarmEventHandler 报警事件 Handler
type AlarmEventHandler struct {
	alarmEventService *service.AlarmEventService
	logger            *zap.Logger
}

// NewAlarmEventHandler 创建报警事件 Handler
func NewAlarmEventHandler(alarmEventService *service.AlarmEventService, logger *zap.Logger) *AlarmEventHandler {
	return &AlarmEventHandler{
		alarmEventService: alarmEventService,
		logger:            logger,
	}
}

// ServeHTTP 实现 http.Handler 接口
func (h *AlarmEventHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/api/v1/alarm-events" && r.Method == http.MethodGet:
		h.ListAlarmEvents(w, r)
	case strings.HasSuffix(path, "/acknowledge") && r.Method == http.MethodPost:
		if eventID, ok := pathID(path, alarmEventsPrefix, "/acknowledge"); ok {
			h.AcknowledgeAlarmEvent(w, r, eventID)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	case strings.HasPrefix(path, alarmEventsPrefix) && r.Method == http.MethodGet:
		if eventID, ok := pathID(path, alarmEventsPrefix, ""); ok {
			h.GetAlarmEvent(w, r, eventID)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// parseEpochMillis 解析毫秒时间戳，非法值视为未传
func parseEpochMillis(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}

// ListAlarmEvents 查询报警事件列表
func (h *AlarmEventHandler) ListAlarmEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page := parseInt(q.Get("page"), 1)
	if page <= 0 {
		page = 1
	}
	size := parseInt(q.Get("size"), 20)
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}

	filters := repository.AlarmEventFilters{
		StartTime:   parseEpochMillis(q.Get("start_time")),
		EndTime:     parseEpochMillis(q.Get("end_time")),
		DeviceID:    optionalString(q.Get("device_id")),
		PatientID:   optionalString(q.Get("patient_id")),
		EventType:   optionalString(q.Get("event_type")),
		Metric:      optionalString(q.Get("metric")),
		AlarmLevel:  optionalString(q.Get("alarm_level")),
		AlarmStatus: optionalString(q.Get("alarm_status")),
	}

	events, total, err := h.alarmEventService.ListAlarmEvents(r.Context(), filters, page, size)
	if err != nil {
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	items := make([]any, 0, len(events))
	for _, e := range events {
		items = append(items, e)
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": items,
		"pagination": map[string]any{
			"size":  size,
			"page":  page,
			"count": len(items),
			"total": total,
		},
	}))
}

// GetAlarmEvent 查询单个报警事件
func (h *AlarmEventHandler) GetAlarmEvent(w http.ResponseWriter, r *http.Request, eventID string) {
	event, err := h.alarmEventService.GetAlarmEvent(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, repository.ErrAlarmEventNotFound) {
			writeJSON(w, http.StatusOK, Fail("alarm event not found"))
			return
		}
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(event))
}

// AcknowledgeAlarmEvent 确认报警事件
func (h *AlarmEventHandler) AcknowledgeAlarmEvent(w http.ResponseWriter, r *http.Request, eventID string) {
	var payload struct {
		HandlerID string `json:"handler_id"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &payload); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}

	if err := h.alarmEventService.AcknowledgeAlarmEvent(r.Context(), eventID, strings.TrimSpace(payload.HandlerID)); err != nil {
		if errors.Is(err, repository.ErrAlarmEventNotFound) {
			writeJSON(w, http.StatusOK, Fail("alarm event not found"))
			return
		}
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"event_id": eventID,
		"status":   "acknowledged",
	}))
}
