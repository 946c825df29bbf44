package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pramodacn2005/Micro-Labs-Project-sub000/common/database"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/config"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/repository"
	"go.uber.org/zap"
)

// NewSessionStore 按 SESSION_STORE 创建会话存储；postgres 复用已连接的 db，sqlite 自己打开文件
// 返回的 close 只关闭本函数打开的连接
func NewSessionStore(ctx context.Context, cfg *config.Config, db *sql.DB, logger *zap.Logger) (repository.SessionStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Session.Store {
	case config.SessionStorePostgres:
		if db == nil {
			return nil, noop, fmt.Errorf("session store postgres requires a database connection")
		}
		return repository.NewPostgresSessionStore(db, logger), noop, nil
	case config.SessionStoreSQLite:
		sqliteDB, err := database.NewSQLiteDB(&cfg.SQLite)
		if err != nil {
			return nil, noop, err
		}
		store, err := repository.NewSQLiteSessionStore(ctx, sqliteDB, logger)
		if err != nil {
			sqliteDB.Close()
			return nil, noop, err
		}
		return store, sqliteDB.Close, nil
	case config.SessionStoreMemory:
		logger.Warn("Using in-memory session store, sessions are lost on restart")
		return repository.NewMemorySessionStore(), noop, nil
	default:
		return nil, noop, fmt.Errorf("unsupported session store: %s", cfg.Session.Store)
	}
}
