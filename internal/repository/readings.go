package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/models"
	"go.uber.org/zap"
)

// 读数查询条数
const (
	DefaultReadingsLimit = 100
	MaxReadingsLimit     = 1000
)

// ReadingsRepository 体征读数仓库（只追加，不修改）
type ReadingsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReadingsRepository 创建读数仓库
func NewReadingsRepository(db *sql.DB, logger *zap.Logger) *ReadingsRepository {
	return &ReadingsRepository{
		db:     db,
		logger: logger,
	}
}

func nullable(n *models.Number) interface{} {
	if n == nil || !n.Valid {
		return nil
	}
	return n.Value
}

func fromNull(f sql.NullFloat64) *models.Number {
	if !f.Valid {
		return nil
	}
	return models.Num(f.Float64)
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// InsertReading 写入一条读数
func (r *ReadingsRepository) InsertReading(ctx context.Context, reading *models.VitalReading) error {
	if reading == nil {
		return fmt.Errorf("reading is required")
	}
	if reading.DeviceID == "" {
		return fmt.Errorf("device_id is required")
	}

	query := `
		INSERT INTO vital_readings (
			device_id,
			patient_id,
			patient_name,
			heart_rate,
			spo2,
			body_temp,
			ambient_temp,
			acc_magnitude,
			blood_sugar,
			bp_systolic,
			bp_diastolic,
			fall_detected,
			ts
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
	`

	_, err := r.db.ExecContext(ctx,
		query,
		reading.DeviceID,
		nullString(reading.PatientID),
		nullString(reading.PatientName),
		nullable(reading.HeartRate),
		nullable(reading.SpO2),
		nullable(reading.BodyTemp),
		nullable(reading.AmbientTemp),
		nullable(reading.AccMagnitude),
		nullable(reading.BloodSugar),
		nullable(reading.BloodPressureSystolic),
		nullable(reading.BloodPressureDiastolic),
		reading.FallDetected,
		reading.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}
	return nil
}

// ListReadings 按时间倒序返回设备最近的读数
func (r *ReadingsRepository) ListReadings(ctx context.Context, deviceID string, limit int) ([]models.VitalReading, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("device_id is required")
	}
	if limit <= 0 {
		limit = DefaultReadingsLimit
	}
	if limit > MaxReadingsLimit {
		limit = MaxReadingsLimit
	}

	query := `
		SELECT
			device_id,
			patient_id,
			patient_name,
			heart_rate,
			spo2,
			body_temp,
			ambient_temp,
			acc_magnitude,
			blood_sugar,
			bp_systolic,
			bp_diastolic,
			fall_detected,
			ts
		FROM vital_readings
		WHERE device_id = $1
		ORDER BY ts DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	readings := []models.VitalReading{}
	for rows.Next() {
		var reading models.VitalReading
		var patientID, patientName sql.NullString
		var hr, spo2, bodyTemp, ambientTemp, acc, sugar, sys, dia sql.NullFloat64

		if err := rows.Scan(
			&reading.DeviceID,
			&patientID,
			&patientName,
			&hr,
			&spo2,
			&bodyTemp,
			&ambientTemp,
			&acc,
			&sugar,
			&sys,
			&dia,
			&reading.FallDetected,
			&reading.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}

		reading.PatientID = patientID.String
		reading.PatientName = patientName.String
		reading.HeartRate = fromNull(hr)
		reading.SpO2 = fromNull(spo2)
		reading.BodyTemp = fromNull(bodyTemp)
		reading.AmbientTemp = fromNull(ambientTemp)
		reading.AccMagnitude = fromNull(acc)
		reading.BloodSugar = fromNull(sugar)
		reading.BloodPressureSystolic = fromNull(sys)
		reading.BloodPressureDiastolic = fromNull(dia)

		readings = append(readings, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate readings: %w", err)
	}

	return readings, nil
}
