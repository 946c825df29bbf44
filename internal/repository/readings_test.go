package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var readingColumns = []string{
	"device_id", "patient_id", "patient_name", "heart_rate", "spo2", "body_temp",
	"ambient_temp", "acc_magnitude", "blood_sugar", "bp_systolic", "bp_diastolic",
	"fall_detected", "ts",
}

func TestInsertReading_Success(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReadingsRepository(db, zap.NewNop())

	reading := &models.VitalReading{
		DeviceID:  "esp32-01",
		PatientID: "p-1",
		HeartRate: models.Num(88),
		SpO2:      &models.Number{}, // 非数值上报，按缺失入库
		Timestamp: 1_700_000_000_000,
	}

	mock.ExpectExec(`INSERT INTO vital_readings`).
		WithArgs(
			"esp32-01", "p-1", nil, 88.0, nil, nil,
			nil, nil, nil, nil, nil,
			false, int64(1_700_000_000_000),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.InsertReading(context.Background(), reading))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertReading_Validation(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReadingsRepository(db, zap.NewNop())

	err := repo.InsertReading(context.Background(), &models.VitalReading{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "device_id is required")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListReadings_Success(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReadingsRepository(db, zap.NewNop())

	rows := sqlmock.NewRows(readingColumns).
		AddRow("esp32-01", "p-1", "Asha", 101.0, 95.0, nil, nil, nil, nil, nil, nil, false, int64(2000)).
		AddRow("esp32-01", nil, nil, nil, nil, 38.4, nil, nil, nil, nil, nil, true, int64(1000))

	mock.ExpectQuery(`SELECT`).
		WithArgs("esp32-01", 2).
		WillReturnRows(rows)

	readings, err := repo.ListReadings(context.Background(), "esp32-01", 2)
	require.NoError(t, err)
	require.Len(t, readings, 2)

	assert.Equal(t, "Asha", readings[0].PatientName)
	assert.Equal(t, 101.0, readings[0].Value(models.MetricHeartRate))
	assert.Nil(t, readings[0].BodyTemp)
	assert.Equal(t, int64(2000), readings[0].Timestamp)

	assert.Equal(t, "", readings[1].PatientID)
	assert.Equal(t, 38.4, readings[1].Value(models.MetricBodyTemp))
	assert.True(t, readings[1].FallDetected)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListReadings_LimitBounds(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReadingsRepository(db, zap.NewNop())

	mock.ExpectQuery(`SELECT`).WithArgs("d", DefaultReadingsLimit).WillReturnRows(sqlmock.NewRows(readingColumns))
	mock.ExpectQuery(`SELECT`).WithArgs("d", MaxReadingsLimit).WillReturnRows(sqlmock.NewRows(readingColumns))

	readings, err := repo.ListReadings(context.Background(), "d", 0)
	require.NoError(t, err)
	assert.Empty(t, readings)
	assert.NotNil(t, readings)

	_, err = repo.ListReadings(context.Background(), "d", 50000)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListReadings_QueryError(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReadingsRepository(db, zap.NewNop())

	mock.ExpectQuery(`SELECT`).WillReturnError(errors.New("connection reset"))

	_, err := repo.ListReadings(context.Background(), "d", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to query readings")
}
