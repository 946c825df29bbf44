package database

import (
	"database/sql"
	"fmt"

	"github.com/pramodacn2005/Micro-Labs-Project-sub000/common/config"

	_ "modernc.org/sqlite"
)

// NewSQLiteDB 打开 SQLite 数据库（纯 Go 驱动，无需 cgo）
// SQLite 只允许单写者，连接数固定为 1
func NewSQLiteDB(cfg *config.SQLiteConfig) (*sql.DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure sqlite: %w", err)
	}

	return db, nil
}
