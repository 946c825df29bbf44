package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresSchema medisense 表结构（幂等）
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS vital_readings (
	id             BIGSERIAL PRIMARY KEY,
	device_id      TEXT NOT NULL,
	patient_id     TEXT,
	patient_name   TEXT,
	heart_rate     DOUBLE PRECISION,
	spo2           DOUBLE PRECISION,
	body_temp      DOUBLE PRECISION,
	ambient_temp   DOUBLE PRECISION,
	acc_magnitude  DOUBLE PRECISION,
	blood_sugar    DOUBLE PRECISION,
	bp_systolic    DOUBLE PRECISION,
	bp_diastolic   DOUBLE PRECISION,
	fall_detected  BOOLEAN NOT NULL DEFAULT FALSE,
	ts             BIGINT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_vital_readings_device_ts ON vital_readings (device_id, ts DESC);

CREATE TABLE IF NOT EXISTS alarm_events (
	event_id      UUID PRIMARY KEY,
	device_id     TEXT NOT NULL,
	patient_id    TEXT,
	event_type    TEXT NOT NULL,
	metric        TEXT,
	status        TEXT,
	value         DOUBLE PRECISION,
	message       TEXT NOT NULL,
	alarm_level   TEXT NOT NULL,
	alarm_status  TEXT NOT NULL DEFAULT 'active',
	trigger_data  JSONB NOT NULL DEFAULT '{}',
	delivery      JSONB NOT NULL DEFAULT '[]',
	handler       TEXT,
	hand_time     TIMESTAMPTZ,
	triggered_at  TIMESTAMPTZ NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_alarm_events_device ON alarm_events (device_id, triggered_at DESC);
CREATE INDEX IF NOT EXISTS idx_alarm_events_status ON alarm_events (alarm_status, triggered_at DESC);

CREATE TABLE IF NOT EXISTS triage_sessions (
	session_id  UUID PRIMARY KEY,
	patient_id  TEXT,
	kind        TEXT NOT NULL,
	data        JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);
`

// InitPostgresSchema 建表
func InitPostgresSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, PostgresSchema); err != nil {
		return fmt.Errorf("failed to init postgres schema: %w", err)
	}
	return nil
}
