package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/models"
	"go.uber.org/zap"
)

// ErrSessionNotFound 会话不存在
var ErrSessionNotFound = errors.New("session not found")

// SessionStore 会话存储（会话只归存储所有，读写都是整份文档）
type SessionStore interface {
	SaveSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

func encodeSession(session *models.Session) ([]byte, error) {
	if session == nil {
		return nil, fmt.Errorf("session is required")
	}
	if session.SessionID == "" {
		return nil, fmt.Errorf("session_id is required")
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = session.CreatedAt
	}
	if session.Conversation == nil {
		session.Conversation = []models.ConversationTurn{}
	}
	data, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}
	return data, nil
}

func decodeSession(data []byte) (*models.Session, error) {
	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// PostgresSessionStore 会话存 JSONB 文档
type PostgresSessionStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresSessionStore 创建 Postgres 会话存储
func NewPostgresSessionStore(db *sql.DB, logger *zap.Logger) *PostgresSessionStore {
	return &PostgresSessionStore{
		db:     db,
		logger: logger,
	}
}

// SaveSession 写入或覆盖会话
func (s *PostgresSessionStore) SaveSession(ctx context.Context, session *models.Session) error {
	data, err := encodeSession(session)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO triage_sessions (session_id, patient_id, kind, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4::jsonb, $5, $6)
		ON CONFLICT (session_id) DO UPDATE
		SET patient_id = EXCLUDED.patient_id,
		    kind = EXCLUDED.kind,
		    data = EXCLUDED.data,
		    updated_at = EXCLUDED.updated_at
	`

	if _, err := s.db.ExecContext(ctx, query,
		session.SessionID,
		nullString(session.PatientID),
		session.Kind,
		string(data),
		session.CreatedAt,
		session.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// GetSession 读取会话
func (s *PostgresSessionStore) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM triage_sessions WHERE session_id = $1`,
		sessionID,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return decodeSession(data)
}

// DeleteSession 删除会话
func (s *PostgresSessionStore) DeleteSession(ctx context.Context, sessionID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM triage_sessions WHERE session_id = $1`, sessionID)
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

// MemorySessionStore 进程内会话存储（开发、测试用）
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
}

// NewMemorySessionStore 创建内存会话存储
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string][]byte)}
}

// SaveSession 保存序列化后的副本，调用方后续修改不影响已存数据
func (s *MemorySessionStore) SaveSession(ctx context.Context, session *models.Session) error {
	data, err := encodeSession(session)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.sessions[session.SessionID] = data
	s.mu.Unlock()
	return nil
}

// GetSession 读取会话
func (s *MemorySessionStore) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	s.mu.RLock()
	data, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return decodeSession(data)
}

// DeleteSession 删除会话
func (s *MemorySessionStore) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, sessionID)
	return nil
}
