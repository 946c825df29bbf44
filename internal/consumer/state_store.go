package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/models"
)

var (
	// ErrStateNotFound 状态不存在
	ErrStateNotFound = errors.New("alert state not found")
	// ErrCorruptState 存储中的状态无法解析，调用方按“无状态”处理
	ErrCorruptState = errors.New("alert state corrupt")
	// ErrConflict 并发更新重试次数耗尽
	ErrConflict = errors.New("alert state update conflict")
)

// UpdateFunc 读改写回调：current 为 nil 表示无状态（或状态损坏）
// 返回 nil 表示不写入
type UpdateFunc func(current *models.AlertState) (*models.AlertState, error)

// StateStore 告警状态存储（按 deviceId + metric 读写）
type StateStore interface {
	Get(ctx context.Context, deviceID, metric string) (*models.AlertState, error)
	Set(ctx context.Context, deviceID, metric string, state *models.AlertState) error
}

// AtomicStateStore 支持跨进程原子读改写的存储
type AtomicStateStore interface {
	StateStore
	Update(ctx context.Context, deviceID, metric string, fn UpdateFunc) error
}

func decodeState(data []byte) (*models.AlertState, error) {
	var st models.AlertState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	if st.ConsecutiveCount < 0 {
		return nil, fmt.Errorf("%w: negative consecutiveCount %d", ErrCorruptState, st.ConsecutiveCount)
	}
	return &st, nil
}

// MemoryStateStore 进程内状态存储（测试和单机部署）
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[string][]byte
}

// NewMemoryStateStore 创建内存状态存储
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[string][]byte)}
}

// Get 获取状态
func (m *MemoryStateStore) Get(ctx context.Context, deviceID, metric string) (*models.AlertState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(models.StateKey(deviceID, metric))
}

func (m *MemoryStateStore) getLocked(key string) (*models.AlertState, error) {
	data, ok := m.states[key]
	if !ok {
		return nil, ErrStateNotFound
	}
	return decodeState(data)
}

// Set 写入状态
func (m *MemoryStateStore) Set(ctx context.Context, deviceID, metric string, state *models.AlertState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[models.StateKey(deviceID, metric)] = data
	return nil
}

// SetRaw 直接写入原始字节（用于模拟损坏数据）
func (m *MemoryStateStore) SetRaw(deviceID, metric string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[models.StateKey(deviceID, metric)] = data
}

// Update 原子读改写
func (m *MemoryStateStore) Update(ctx context.Context, deviceID, metric string, fn UpdateFunc) error {
	key := models.StateKey(deviceID, metric)

	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.getLocked(key)
	if err != nil && !errors.Is(err, ErrStateNotFound) && !errors.Is(err, ErrCorruptState) {
		return err
	}

	next, err := fn(current)
	if err != nil || next == nil {
		return err
	}

	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	m.states[key] = data
	return nil
}
