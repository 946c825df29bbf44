package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/consumer"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/models"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/repository"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/vitals"
	"go.uber.org/zap"
)

const vitalsPrefix = "/api/v1/vitals/"

// ReadingIngester 读数处理流程
type ReadingIngester interface {
	Ingest(ctx context.Context, reading *models.VitalReading) ([]models.AlarmEvent, error)
}

// LatestReader 最新读数缓存
type LatestReader interface {
	GetLatest(ctx context.Context, deviceID string) (*models.VitalReading, error)
}

// ReadingLister 历史读数
type ReadingLister interface {
	ListReadings(ctx context.Context, deviceID string, limit int) ([]models.VitalReading, error)
}

// VitalsHandler 读数接入、查询、导出
type VitalsHandler struct {
	ingester ReadingIngester
	latest   LatestReader
	history  ReadingLister
	logger   *zap.Logger
}

// NewVitalsHandler 创建读数 Handler；history 为 nil 时历史查询和导出不可用
func NewVitalsHandler(ingester ReadingIngester, latest LatestReader, history ReadingLister, logger *zap.Logger) *VitalsHandler {
	return &VitalsHandler{
		ingester: ingester,
		latest:   latest,
		history:  history,
		logger:   logger,
	}
}

// ServeHTTP 路由分发
func (h *VitalsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if path == "/api/v1/vitals" {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.IngestReading(w, r)
		return
	}

	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if id, ok := pathID(path, vitalsPrefix, "/latest"); ok {
		h.GetLatest(w, r, id)
		return
	}
	if id, ok := pathID(path, vitalsPrefix, "/readings"); ok {
		h.ListReadings(w, r, id)
		return
	}
	if id, ok := pathID(path, vitalsPrefix, "/export"); ok {
		h.ExportReadings(w, r, id)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

// IngestReading POST /api/v1/vitals
func (h *VitalsHandler) IngestReading(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}

	reading, err := consumer.ParseReading(body, "")
	if err != nil {
		if errors.Is(err, consumer.ErrMissingDeviceID) {
			writeJSON(w, http.StatusOK, Fail("deviceId is required"))
			return
		}
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}

	alarms, err := h.ingester.Ingest(r.Context(), reading)
	if err != nil {
		h.logger.Error("IngestReading failed",
			zap.String("device_id", reading.DeviceID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	if alarms == nil {
		alarms = []models.AlarmEvent{}
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"reading": reading,
		"alarms":  alarms,
	}))
}

// GetLatest GET /api/v1/vitals/{deviceId}/latest
func (h *VitalsHandler) GetLatest(w http.ResponseWriter, r *http.Request, deviceID string) {
	reading, err := h.latest.GetLatest(r.Context(), deviceID)
	if err != nil {
		if errors.Is(err, consumer.ErrCacheMiss) {
			writeJSON(w, http.StatusOK, Fail("no recent reading for device"))
			return
		}
		h.logger.Error("GetLatest failed", zap.String("device_id", deviceID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(reading))
}

// ListReadings GET /api/v1/vitals/{deviceId}/readings?limit=
func (h *VitalsHandler) ListReadings(w http.ResponseWriter, r *http.Request, deviceID string) {
	if h.history == nil {
		writeJSON(w, http.StatusOK, Fail("reading history is not available"))
		return
	}
	limit := parseInt(r.URL.Query().Get("limit"), repository.DefaultReadingsLimit)

	readings, err := h.history.ListReadings(r.Context(), deviceID, limit)
	if err != nil {
		h.logger.Error("ListReadings failed", zap.String("device_id", deviceID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": readings,
		"count": len(readings),
	}))
}

// ExportReadings GET /api/v1/vitals/{deviceId}/export
func (h *VitalsHandler) ExportReadings(w http.ResponseWriter, r *http.Request, deviceID string) {
	if h.history == nil {
		writeJSON(w, http.StatusOK, Fail("reading history is not available"))
		return
	}
	limit := parseInt(r.URL.Query().Get("limit"), repository.MaxReadingsLimit)

	readings, err := h.history.ListReadings(r.Context(), deviceID, limit)
	if err != nil {
		h.logger.Error("ExportReadings failed", zap.String("device_id", deviceID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	data, err := GenerateReadingsExport(readings)
	if err != nil {
		h.logger.Error("Failed to generate readings export", zap.String("device_id", deviceID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail("failed to generate export"))
		return
	}

	filename := fmt.Sprintf("vitals-%s-%s.xlsx", sanitizeFilename(deviceID), time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func sanitizeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}

// ThresholdsHandler 阈值表查询与管理员覆盖
type ThresholdsHandler struct {
	table  *vitals.ThresholdTable
	logger *zap.Logger
}

// NewThresholdsHandler 创建阈值 Handler
func NewThresholdsHandler(table *vitals.ThresholdTable, logger *zap.Logger) *ThresholdsHandler {
	return &ThresholdsHandler{table: table, logger: logger}
}

// ServeHTTP GET /api/v1/thresholds，PUT /api/v1/thresholds/{metric}
func (h *ThresholdsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/thresholds" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, Ok(h.table.All()))
	case strings.HasPrefix(r.URL.Path, "/api/v1/thresholds/") && r.Method == http.MethodPut:
		metric := strings.TrimPrefix(r.URL.Path, "/api/v1/thresholds/")
		if metric == "" || strings.Contains(metric, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.UpdateThreshold(w, r, metric)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// UpdateThreshold 覆盖某个指标的阈值，只影响本进程
func (h *ThresholdsHandler) UpdateThreshold(w http.ResponseWriter, r *http.Request, metric string) {
	var th models.MetricThreshold
	if err := readBodyJSON(r, maxBodyBytes, &th); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}
	if err := h.table.Set(metric, th); err != nil {
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	h.logger.Info("Threshold updated",
		zap.String("metric", metric),
		zap.Float64("min", th.Min),
		zap.Float64("max", th.Max),
	)
	writeJSON(w, http.StatusOK, Ok(th))
}
