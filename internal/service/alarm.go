package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/common/database"
	mqttcommon "github.com/pramodacn2005/Micro-Labs-Project-sub000/common/mqtt"
	rediscommon "github.com/pramodacn2005/Micro-Labs-Project-sub000/common/redis"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/config"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/consumer"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/evaluator"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/notifier"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/repository"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/vitals"
	"go.uber.org/zap"
)

// AlarmService 报警服务（整合各层）
type AlarmService struct {
	config      *config.Config
	db          *sql.DB
	redisClient *redis.Client
	mqttClient  *mqttcommon.Client
	logger      *zap.Logger

	// 各层组件
	thresholds      *vitals.ThresholdTable
	stateStore      consumer.StateStore
	cacheManager    *consumer.CacheManager
	readingsRepo    *repository.ReadingsRepository
	alarmEventsRepo *repository.AlarmEventsRepository
	evaluator       *evaluator.Evaluator
	readings        *ReadingService
	mqttConsumer    *consumer.MQTTConsumer
	streamConsumer  *consumer.StreamConsumer
}

// NewAlarmService 创建报警服务：连接 Postgres、Redis、MQTT，按配置选择状态存储
func NewAlarmService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*AlarmService, error) {
	// 1. 连接数据库
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, err
	}

	// 2. 连接 Redis
	redisClient, err := rediscommon.Connect(ctx, &cfg.Redis)
	if err != nil {
		db.Close()
		return nil, err
	}

	// 3. 状态存储
	store, err := NewStateStore(ctx, cfg, redisClient, logger)
	if err != nil {
		db.Close()
		redisClient.Close()
		return nil, err
	}

	s, err := NewAlarmServiceWithClients(cfg, db, redisClient, store, logger)
	if err != nil {
		db.Close()
		redisClient.Close()
		return nil, err
	}

	// 4. MQTT 接入
	if cfg.Ingest.MQTTEnabled {
		mqttClient, err := mqttcommon.NewClient(&cfg.MQTT, logger)
		if err != nil {
			s.Stop()
			return nil, err
		}
		s.mqttClient = mqttClient
		s.mqttConsumer = consumer.NewMQTTConsumer(cfg, mqttClient, s.readings, logger)
	}

	return s, nil
}

// NewAlarmServiceWithClients 用已建立的连接组装各层，不创建 MQTT 接入；db 为 nil 时不入库
func NewAlarmServiceWithClients(
	cfg *config.Config,
	db *sql.DB,
	redisClient *redis.Client,
	store consumer.StateStore,
	logger *zap.Logger,
) (*AlarmService, error) {
	thresholds, err := NewThresholdTable(cfg, logger)
	if err != nil {
		return nil, err
	}

	s := &AlarmService{
		config:      cfg,
		db:          db,
		redisClient: redisClient,
		logger:      logger,
		thresholds:  thresholds,
		stateStore:  store,
	}

	// Repository 层
	var eventsWriter evaluator.AlarmEventWriter
	var readingWriter ReadingWriter
	if db != nil {
		s.readingsRepo = repository.NewReadingsRepository(db, logger)
		s.alarmEventsRepo = repository.NewAlarmEventsRepository(db, logger)
		eventsWriter = s.alarmEventsRepo
		readingWriter = s.readingsRepo
	}

	// Consumer 层
	s.cacheManager = consumer.NewCacheManager(cfg, redisClient, logger)
	publisher := consumer.NewAlarmPublisher(cfg, redisClient, logger)

	// Evaluator 层
	s.evaluator = evaluator.NewEvaluator(
		cfg,
		thresholds,
		store,
		notifier.NewDispatcher(cfg, logger),
		eventsWriter,
		publisher,
		logger,
	)

	s.readings = NewReadingService(readingWriter, s.cacheManager, s.evaluator, logger)

	if cfg.Ingest.StreamEnabled {
		s.streamConsumer = consumer.NewStreamConsumer(cfg, redisClient, s.readings, logger)
	}

	return s, nil
}

// NewStateStore 按 ALARM_STATE_STORE 创建告警状态存储
func NewStateStore(ctx context.Context, cfg *config.Config, redisClient *redis.Client, logger *zap.Logger) (consumer.StateStore, error) {
	switch cfg.Alarm.StateStore {
	case config.StateStoreRedis:
		return consumer.NewRedisStateStore(cfg, redisClient, logger), nil
	case config.StateStoreDynamoDB:
		client, err := consumer.NewDynamoClient(ctx, &cfg.Dynamo)
		if err != nil {
			return nil, err
		}
		return consumer.NewDynamoStateStore(client, cfg.Dynamo.TableName, logger), nil
	case config.StateStoreMemory:
		logger.Warn("Using in-memory alert state store, state is not shared between processes")
		return consumer.NewMemoryStateStore(), nil
	default:
		return nil, fmt.Errorf("unsupported state store: %s", cfg.Alarm.StateStore)
	}
}

// Readings 读数处理入口
func (s *AlarmService) Readings() *ReadingService {
	return s.readings
}

// Thresholds 运行中的阈值表
func (s *AlarmService) Thresholds() *vitals.ThresholdTable {
	return s.thresholds
}

// CacheManager 最新读数缓存
func (s *AlarmService) CacheManager() *consumer.CacheManager {
	return s.cacheManager
}

// ReadingsRepository 读数存储，db 为 nil 时返回 nil
func (s *AlarmService) ReadingsRepository() *repository.ReadingsRepository {
	return s.readingsRepo
}

// AlarmEventsRepository 报警事件存储，db 为 nil 时返回 nil
func (s *AlarmService) AlarmEventsRepository() *repository.AlarmEventsRepository {
	return s.alarmEventsRepo
}

// Start 启动已启用的接入源，阻塞到 ctx 取消或某个接入源出错
func (s *AlarmService) Start(ctx context.Context) error {
	s.logger.Info("Starting alarm service",
		zap.String("state_store", s.config.Alarm.StateStore),
		zap.Bool("mqtt", s.mqttConsumer != nil),
		zap.Bool("stream", s.streamConsumer != nil),
	)

	var starters []func(context.Context) error
	if s.mqttConsumer != nil {
		starters = append(starters, s.mqttConsumer.Start)
	}
	if s.streamConsumer != nil {
		starters = append(starters, s.streamConsumer.Start)
	}
	if len(starters) == 0 {
		return fmt.Errorf("no ingest source enabled")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, len(starters))
	var wg sync.WaitGroup
	for _, start := range starters {
		wg.Add(1)
		go func(start func(context.Context) error) {
			defer wg.Done()
			if err := start(ctx); err != nil {
				errCh <- err
				cancel()
			}
		}(start)
	}
	wg.Wait()
	close(errCh)

	if err := <-errCh; err != nil {
		return fmt.Errorf("ingest stopped: %w", err)
	}
	return nil
}

// Stop 停止服务
func (s *AlarmService) Stop() error {
	s.logger.Info("Stopping alarm service")

	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}

	// 关闭数据库连接
	if err := database.Close(s.db); err != nil {
		s.logger.Error("Failed to close database",
			zap.Error(err),
		)
	}

	// 关闭 Redis 连接
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.logger.Error("Failed to close redis",
				zap.Error(err),
			)
		}
	}

	return nil
}
