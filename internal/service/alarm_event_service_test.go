package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/models"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAlarmEventRepo struct {
	events   map[string]*models.AlarmEvent
	listErr  error
	lastPage int
	lastSize int
	ackAt    time.Time
}

func newFakeAlarmEventRepo(events ...*models.AlarmEvent) *fakeAlarmEventRepo {
	r := &fakeAlarmEventRepo{events: make(map[string]*models.AlarmEvent)}
	for _, e := range events {
		r.events[e.EventID] = e
	}
	return r
}

func (r *fakeAlarmEventRepo) GetAlarmEvent(ctx context.Context, eventID string) (*models.AlarmEvent, error) {
	e, ok := r.events[eventID]
	if !ok {
		return nil, repository.ErrAlarmEventNotFound
	}
	return e, nil
}

func (r *fakeAlarmEventRepo) ListAlarmEvents(ctx context.Context, filters repository.AlarmEventFilters, page, size int) ([]*models.AlarmEvent, int, error) {
	r.lastPage, r.lastSize = page, size
	if r.listErr != nil {
		return nil, 0, r.listErr
	}
	var out []*models.AlarmEvent
	for _, e := range r.events {
		if filters.DeviceID != nil && e.DeviceID != *filters.DeviceID {
			continue
		}
		out = append(out, e)
	}
	return out, len(out), nil
}

func (r *fakeAlarmEventRepo) AcknowledgeAlarmEvent(ctx context.Context, eventID, handlerID string, at time.Time) error {
	e := r.events[eventID]
	e.AlarmStatus = models.AlarmStatusAcknowledged
	e.Handler = &handlerID
	e.HandTime = &at
	r.ackAt = at
	return nil
}

func TestAlarmEventService_ListPagination(t *testing.T) {
	repo := newFakeAlarmEventRepo(
		&models.AlarmEvent{EventID: "e-1", DeviceID: "esp32-01"},
		&models.AlarmEvent{EventID: "e-2", DeviceID: "esp32-02"},
	)
	svc := NewAlarmEventService(repo, zap.NewNop())
	ctx := context.Background()

	_, _, err := svc.ListAlarmEvents(ctx, repository.AlarmEventFilters{}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.lastPage)
	assert.Equal(t, 20, repo.lastSize)

	_, _, err = svc.ListAlarmEvents(ctx, repository.AlarmEventFilters{}, 3, 500)
	require.NoError(t, err)
	assert.Equal(t, 3, repo.lastPage)
	assert.Equal(t, 100, repo.lastSize)

	device := "esp32-02"
	events, total, err := svc.ListAlarmEvents(ctx, repository.AlarmEventFilters{DeviceID: &device}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "e-2", events[0].EventID)

	repo.listErr = errors.New("db down")
	_, _, err = svc.ListAlarmEvents(ctx, repository.AlarmEventFilters{}, 1, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list alarm events")
}

func TestAlarmEventService_Acknowledge(t *testing.T) {
	repo := newFakeAlarmEventRepo(
		&models.AlarmEvent{EventID: "e-1", AlarmStatus: models.AlarmStatusActive},
		&models.AlarmEvent{EventID: "e-2", AlarmStatus: models.AlarmStatusAcknowledged},
	)
	svc := NewAlarmEventService(repo, zap.NewNop())
	fixed := time.Date(2026, 10, 18, 8, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	ctx := context.Background()

	err := svc.AcknowledgeAlarmEvent(ctx, "e-1", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handler_id is required")

	require.Error(t, svc.AcknowledgeAlarmEvent(ctx, "", "nurse-1"))

	require.NoError(t, svc.AcknowledgeAlarmEvent(ctx, "e-1", "nurse-1"))
	assert.Equal(t, models.AlarmStatusAcknowledged, repo.events["e-1"].AlarmStatus)
	assert.Equal(t, fixed, repo.ackAt)

	err = svc.AcknowledgeAlarmEvent(ctx, "e-2", "nurse-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "can only acknowledge active alarms, current status: acknowledged")

	err = svc.AcknowledgeAlarmEvent(ctx, "missing", "nurse-1")
	assert.ErrorIs(t, err, repository.ErrAlarmEventNotFound)
}

func TestAlarmEventService_Get(t *testing.T) {
	svc := NewAlarmEventService(newFakeAlarmEventRepo(&models.AlarmEvent{EventID: "e-1"}), zap.NewNop())

	event, err := svc.GetAlarmEvent(context.Background(), "e-1")
	require.NoError(t, err)
	assert.Equal(t, "e-1", event.EventID)

	_, err = svc.GetAlarmEvent(context.Background(), "")
	assert.Error(t, err)
}
