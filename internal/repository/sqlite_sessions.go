package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/models"
	"go.uber.org/zap"
)

const sqliteSessionSchema = `
CREATE TABLE IF NOT EXISTS triage_sessions (
	session_id TEXT PRIMARY KEY,
	patient_id TEXT,
	kind       TEXT NOT NULL,
	data       TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// SQLiteSessionStore 单机部署的会话存储
type SQLiteSessionStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteSessionStore 创建 SQLite 会话存储并建表
func NewSQLiteSessionStore(ctx context.Context, db *sql.DB, logger *zap.Logger) (*SQLiteSessionStore, error) {
	if _, err := db.ExecContext(ctx, sqliteSessionSchema); err != nil {
		return nil, fmt.Errorf("failed to init sqlite session schema: %w", err)
	}
	return &SQLiteSessionStore{
		db:     db,
		logger: logger,
	}, nil
}

// SaveSession 写入或覆盖会话
func (s *SQLiteSessionStore) SaveSession(ctx context.Context, session *models.Session) error {
	data, err := encodeSession(session)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO triage_sessions (session_id, patient_id, kind, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			patient_id = excluded.patient_id,
			kind = excluded.kind,
			data = excluded.data,
			updated_at = excluded.updated_at
	`,
		session.SessionID,
		nullString(session.PatientID),
		session.Kind,
		string(data),
		session.CreatedAt.UnixMilli(),
		session.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// GetSession 读取会话
func (s *SQLiteSessionStore) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM triage_sessions WHERE session_id = ?`, sessionID).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return decodeSession([]byte(data))
}

// DeleteSession 删除会话
func (s *SQLiteSessionStore) DeleteSession(ctx context.Context, sessionID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM triage_sessions WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}
