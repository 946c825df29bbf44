package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/config"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/models"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewSessionStore(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{}

	cfg.Session.Store = config.SessionStoreMemory
	store, closeFn, err := NewSessionStore(ctx, cfg, nil, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &repository.MemorySessionStore{}, store)
	assert.NoError(t, closeFn())

	cfg.Session.Store = config.SessionStorePostgres
	_, _, err = NewSessionStore(ctx, cfg, nil, zap.NewNop())
	assert.Error(t, err)

	cfg.Session.Store = "mongo"
	_, _, err = NewSessionStore(ctx, cfg, nil, zap.NewNop())
	assert.Error(t, err)
}

func TestNewSessionStore_SQLite(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{}
	cfg.Session.Store = config.SessionStoreSQLite
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "sessions.db")

	store, closeFn, err := NewSessionStore(ctx, cfg, nil, zap.NewNop())
	require.NoError(t, err)
	defer closeFn()

	require.NoError(t, store.SaveSession(ctx, &models.Session{SessionID: "s1", Kind: "fever_check"}))
	got, err := store.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "fever_check", got.Kind)
}
