package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/consumer"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/models"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/vitals"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type fakeIngester struct {
	got    *models.VitalReading
	alarms []models.AlarmEvent
	err    error
}

func (f *fakeIngester) Ingest(ctx context.Context, r *models.VitalReading) ([]models.AlarmEvent, error) {
	f.got = r
	r.Timestamp = 1700000000000
	return f.alarms, f.err
}

type fakeLatest struct {
	readings map[string]*models.VitalReading
}

func (f *fakeLatest) GetLatest(ctx context.Context, deviceID string) (*models.VitalReading, error) {
	r, ok := f.readings[deviceID]
	if !ok {
		return nil, consumer.ErrCacheMiss
	}
	return r, nil
}

type fakeHistory struct {
	limit    int
	readings []models.VitalReading
}

func (f *fakeHistory) ListReadings(ctx context.Context, deviceID string, limit int) ([]models.VitalReading, error) {
	f.limit = limit
	return f.readings, nil
}

func decodeResult(t *testing.T, rr *httptest.ResponseRecorder) Result[json.RawMessage] {
	t.Helper()
	require.Equal(t, http.StatusOK, rr.Code)
	var res Result[json.RawMessage]
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	return res
}

func newVitalsRouter(ing ReadingIngester, latest LatestReader, history ReadingLister) *Router {
	r := NewRouter(zap.NewNop())
	r.RegisterVitalsRoutes(NewVitalsHandler(ing, latest, history, zap.NewNop()))
	return r
}

func TestIngestReading_ReturnsReadingAndAlarms(t *testing.T) {
	ing := &fakeIngester{alarms: []models.AlarmEvent{{EventID: "e1", Metric: models.MetricHeartRate}}}
	r := newVitalsRouter(ing, &fakeLatest{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/vitals", strings.NewReader(`{"deviceId":"esp32-01","heartRate":"130"}`))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	res := decodeResult(t, rr)
	require.Equal(t, ResultSuccess, res.Code, res.Message)
	require.NotNil(t, ing.got)
	assert.Equal(t, "esp32-01", ing.got.DeviceID)
	assert.Equal(t, 130.0, ing.got.HeartRate.Value)

	var body struct {
		Reading models.VitalReading `json:"reading"`
		Alarms  []models.AlarmEvent `json:"alarms"`
	}
	require.NoError(t, json.Unmarshal(res.Result, &body))
	assert.Equal(t, int64(1700000000000), body.Reading.Timestamp)
	require.Len(t, body.Alarms, 1)
	assert.Equal(t, "e1", body.Alarms[0].EventID)
}

func TestIngestReading_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
		want string
	}{
		{name: "missing device", body: `{"heartRate":80}`, want: "deviceId is required"},
		{name: "bad json", body: `{`, want: "invalid body"},
		{name: "pipeline error", body: `{"deviceId":"d1"}`, err: errors.New("boom"), want: "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newVitalsRouter(&fakeIngester{err: tt.err}, &fakeLatest{}, nil)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/vitals", strings.NewReader(tt.body)))

			res := decodeResult(t, rr)
			assert.Equal(t, ResultError, res.Code)
			assert.Equal(t, tt.want, res.Message)
		})
	}
}

func TestIngestReading_MethodNotAllowed(t *testing.T) {
	r := newVitalsRouter(&fakeIngester{}, &fakeLatest{}, nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/vitals", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestGetLatest(t *testing.T) {
	latest := &fakeLatest{readings: map[string]*models.VitalReading{
		"esp32-01": {DeviceID: "esp32-01", SpO2: models.Num(97), Timestamp: 1},
	}}
	r := newVitalsRouter(&fakeIngester{}, latest, nil)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/vitals/esp32-01/latest", nil))
	res := decodeResult(t, rr)
	require.Equal(t, ResultSuccess, res.Code)
	var got models.VitalReading
	require.NoError(t, json.Unmarshal(res.Result, &got))
	assert.Equal(t, 97.0, got.SpO2.Value)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/vitals/unknown/latest", nil))
	res = decodeResult(t, rr)
	assert.Equal(t, ResultError, res.Code)
	assert.Equal(t, "no recent reading for device", res.Message)
}

func TestListReadings(t *testing.T) {
	history := &fakeHistory{readings: []models.VitalReading{{DeviceID: "d1"}, {DeviceID: "d1"}}}
	r := newVitalsRouter(&fakeIngester{}, &fakeLatest{}, history)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/vitals/d1/readings?limit=5", nil))
	res := decodeResult(t, rr)
	require.Equal(t, ResultSuccess, res.Code)
	assert.Equal(t, 5, history.limit)

	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(res.Result, &body))
	assert.Equal(t, 2, body.Count)
}

func TestListReadings_WithoutHistory(t *testing.T) {
	r := newVitalsRouter(&fakeIngester{}, &fakeLatest{}, nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/vitals/d1/readings", nil))
	res := decodeResult(t, rr)
	assert.Equal(t, "reading history is not available", res.Message)
}

func TestExportReadings(t *testing.T) {
	history := &fakeHistory{readings: []models.VitalReading{
		{DeviceID: "esp32-01", PatientName: "Asha", HeartRate: models.Num(72), FallDetected: true, Timestamp: 1700000000000},
		{DeviceID: "esp32-01", SpO2: models.Num(93), Timestamp: 1700000060000},
	}}
	r := newVitalsRouter(&fakeIngester{}, &fakeLatest{}, history)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/vitals/esp32-01/export", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "vitals-esp32-01-")

	f, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(readingsSheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Time (UTC)", rows[0][0])
	assert.Equal(t, "2023-11-14 22:13:20", rows[1][0])
	assert.Equal(t, "Asha", rows[1][3])
	assert.Equal(t, "72", rows[1][4])
	assert.Equal(t, "Yes", rows[1][12])
	assert.Equal(t, "", rows[2][4])
	assert.Equal(t, "93", rows[2][5])
}

func TestThresholdsHandler(t *testing.T) {
	table := vitals.NewThresholdTable()
	r := NewRouter(zap.NewNop())
	r.RegisterThresholdRoutes(NewThresholdsHandler(table, zap.NewNop()))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/thresholds", nil))
	res := decodeResult(t, rr)
	require.Equal(t, ResultSuccess, res.Code)
	var all map[string]models.MetricThreshold
	require.NoError(t, json.Unmarshal(res.Result, &all))
	assert.Equal(t, 100.0, all[models.MetricHeartRate].Max)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/api/v1/thresholds/"+models.MetricHeartRate,
		strings.NewReader(`{"min":55,"max":110,"criticalMin":45,"criticalMax":130}`)))
	res = decodeResult(t, rr)
	require.Equal(t, ResultSuccess, res.Code, res.Message)
	th, ok := table.Get(models.MetricHeartRate)
	require.True(t, ok)
	assert.Equal(t, 110.0, th.Max)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/api/v1/thresholds/"+models.MetricHeartRate,
		strings.NewReader(`{"min":120,"max":110}`)))
	res = decodeResult(t, rr)
	assert.Equal(t, ResultError, res.Code)
	th, _ = table.Get(models.MetricHeartRate)
	assert.Equal(t, 110.0, th.Max)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/v1/thresholds/"+models.MetricHeartRate, nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHealth(t *testing.T) {
	r := NewRouter(zap.NewNop())
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	res := decodeResult(t, rr)
	assert.Equal(t, ResultSuccess, res.Code)
}
