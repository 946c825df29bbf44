package evaluator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/consumer"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/models"
	"go.uber.org/zap"
)

// Transition 一次状态转移的结果
type Transition struct {
	Next      models.AlertState
	Count     int  // 本次读数后的连续计数（触发前的值）
	Triggered bool
	Changed   bool // false 表示无需写回
}

// Step 单次读数的状态转移
//
//   - unknown：状态不变，不触发
//   - normal：计数清零、解锁，保留 lastAlertTimestamp
//   - warning/critical：值与上次相同则计数 +1，否则从 1 重新开始；
//     计数达到 threshold、未锁定且冷却已过时触发，触发后锁定并清零计数
func Step(prev models.AlertState, status models.Status, value float64, now time.Time, threshold int, cooldown time.Duration) Transition {
	v := value
	switch {
	case status == models.StatusUnknown:
		return Transition{Next: prev, Count: prev.ConsecutiveCount}

	case status == models.StatusNormal:
		return Transition{
			Next: models.AlertState{
				ConsecutiveCount:   0,
				LastValue:          &v,
				Locked:             false,
				LastAlertTimestamp: prev.LastAlertTimestamp,
			},
			Changed: true,
		}
	}

	next := prev
	if prev.LastValue == nil || *prev.LastValue != value {
		next.ConsecutiveCount = 1
	} else {
		next.ConsecutiveCount = prev.ConsecutiveCount + 1
	}
	next.LastValue = &v
	count := next.ConsecutiveCount

	if count >= threshold && !next.Locked && cooldownElapsed(prev.LastAlertTimestamp, now, cooldown) {
		ts := now.UnixMilli()
		next.Locked = true
		next.ConsecutiveCount = 0
		next.LastAlertTimestamp = &ts
		return Transition{Next: next, Count: count, Triggered: true, Changed: true}
	}
	return Transition{Next: next, Count: count, Changed: true}
}

func cooldownElapsed(lastAlert *int64, now time.Time, cooldown time.Duration) bool {
	if lastAlert == nil {
		return true
	}
	return now.UnixMilli()-*lastAlert >= cooldown.Milliseconds()
}

// keyedMutex 按键加锁，不同键互不阻塞；无人持有的键会被回收
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedEntry)}
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &keyedEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// Observation 一次观测的结果
type Observation struct {
	State     models.AlertState
	Count     int
	Triggered bool
}

// ConsecutiveTracker 连续异常跟踪器
// 同一 (deviceId, metric) 的读改写在进程内串行；存储实现 AtomicStateStore 时跨进程也是原子的
type ConsecutiveTracker struct {
	store     consumer.StateStore
	threshold int
	cooldown  time.Duration
	locks     *keyedMutex
	now       func() time.Time
	logger    *zap.Logger
}

// NewConsecutiveTracker 创建跟踪器
func NewConsecutiveTracker(store consumer.StateStore, threshold int, cooldown time.Duration, logger *zap.Logger) *ConsecutiveTracker {
	if threshold < 1 {
		threshold = 1
	}
	return &ConsecutiveTracker{
		store:     store,
		threshold: threshold,
		cooldown:  cooldown,
		locks:     newKeyedMutex(),
		now:       time.Now,
		logger:    logger,
	}
}

// Observe 处理一个指标读数，返回新状态以及是否应当告警
func (t *ConsecutiveTracker) Observe(ctx context.Context, deviceID, metric string, status models.Status, value float64) (Observation, error) {
	if status == models.StatusUnknown {
		return Observation{}, nil
	}

	unlock := t.locks.Lock(models.StateKey(deviceID, metric))
	defer unlock()

	now := t.now()

	if atomic, ok := t.store.(consumer.AtomicStateStore); ok {
		var obs Observation
		err := atomic.Update(ctx, deviceID, metric, func(current *models.AlertState) (*models.AlertState, error) {
			prev := models.AlertState{}
			if current != nil {
				prev = *current
			}
			tr := Step(prev, status, value, now, t.threshold, t.cooldown)
			obs = Observation{State: tr.Next, Count: tr.Count, Triggered: tr.Triggered}
			if !tr.Changed {
				return nil, nil
			}
			return &tr.Next, nil
		})
		if err != nil {
			return Observation{}, fmt.Errorf("failed to update alert state: %w", err)
		}
		return obs, nil
	}

	prev := models.AlertState{}
	current, err := t.store.Get(ctx, deviceID, metric)
	switch {
	case err == nil:
		prev = *current
	case errors.Is(err, consumer.ErrStateNotFound):
	case errors.Is(err, consumer.ErrCorruptState):
		t.logger.Warn("Discarding corrupt alert state",
			zap.String("device_id", deviceID),
			zap.String("metric", metric),
			zap.Error(err),
		)
	default:
		return Observation{}, fmt.Errorf("failed to get alert state: %w", err)
	}

	tr := Step(prev, status, value, now, t.threshold, t.cooldown)
	if tr.Changed {
		if err := t.store.Set(ctx, deviceID, metric, &tr.Next); err != nil {
			return Observation{}, fmt.Errorf("failed to set alert state: %w", err)
		}
	}
	return Observation{State: tr.Next, Count: tr.Count, Triggered: tr.Triggered}, nil
}

// FallDetector 跌倒告警：一次触发，只受冷却限制
// 状态与其他指标共用存储，指标名为 "fall"
type FallDetector struct {
	store    consumer.StateStore
	cooldown time.Duration
	locks    *keyedMutex
	now      func() time.Time
	logger   *zap.Logger
}

// NewFallDetector 创建跌倒检测器
func NewFallDetector(store consumer.StateStore, cooldown time.Duration, logger *zap.Logger) *FallDetector {
	return &FallDetector{
		store:    store,
		cooldown: cooldown,
		locks:    newKeyedMutex(),
		now:      time.Now,
		logger:   logger,
	}
}

func (f *FallDetector) step(prev models.AlertState, now time.Time) (models.AlertState, bool) {
	if !cooldownElapsed(prev.LastAlertTimestamp, now, f.cooldown) {
		return prev, false
	}
	ts := now.UnixMilli()
	return models.AlertState{LastAlertTimestamp: &ts}, true
}

// Observe fallDetected 为 true 且冷却已过时返回 true
func (f *FallDetector) Observe(ctx context.Context, deviceID string, fallDetected bool) (bool, error) {
	if !fallDetected {
		return false, nil
	}

	unlock := f.locks.Lock(models.StateKey(deviceID, models.MetricFall))
	defer unlock()

	now := f.now()

	if atomic, ok := f.store.(consumer.AtomicStateStore); ok {
		triggered := false
		err := atomic.Update(ctx, deviceID, models.MetricFall, func(current *models.AlertState) (*models.AlertState, error) {
			prev := models.AlertState{}
			if current != nil {
				prev = *current
			}
			next, fire := f.step(prev, now)
			triggered = fire
			if !fire {
				return nil, nil
			}
			return &next, nil
		})
		if err != nil {
			return false, fmt.Errorf("failed to update fall state: %w", err)
		}
		return triggered, nil
	}

	prev := models.AlertState{}
	current, err := f.store.Get(ctx, deviceID, models.MetricFall)
	switch {
	case err == nil:
		prev = *current
	case errors.Is(err, consumer.ErrStateNotFound), errors.Is(err, consumer.ErrCorruptState):
	default:
		return false, fmt.Errorf("failed to get fall state: %w", err)
	}

	next, fire := f.step(prev, now)
	if !fire {
		return false, nil
	}
	if err := f.store.Set(ctx, deviceID, models.MetricFall, &next); err != nil {
		return false, fmt.Errorf("failed to set fall state: %w", err)
	}
	return true, nil
}
