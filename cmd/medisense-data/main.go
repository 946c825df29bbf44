package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pramodacn2005/Micro-Labs-Project-sub000/common/database"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/common/logger"
	rediscommon "github.com/pramodacn2005/Micro-Labs-Project-sub000/common/redis"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/assistant"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/config"
	httpapi "github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/http"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/predictor"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/repository"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/service"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "medisense-data")
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Postgres 可选：连接失败时读数不入库，报警事件接口不注册
	var db *sql.DB
	if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
		if err := repository.InitPostgresSchema(ctx, d); err != nil {
			log.Fatal("Failed to init database schema", zap.Error(err))
		}
		db = d
		log.Info("DB enabled for medisense-data")
	} else {
		log.Warn("DB connection failed, running without persistence", zap.Error(err))
	}

	redisClient, err := rediscommon.Connect(ctx, &cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect redis", zap.Error(err))
	}

	stateStore, err := service.NewStateStore(ctx, cfg, redisClient, log)
	if err != nil {
		log.Fatal("Failed to create state store", zap.Error(err))
	}

	// 读数处理流程与 medisense-alarm 相同，只是入口换成 HTTP
	pipeline, err := service.NewAlarmServiceWithClients(cfg, db, redisClient, stateStore, log)
	if err != nil {
		log.Fatal("Failed to create reading pipeline", zap.Error(err))
	}
	defer pipeline.Stop()

	sessions, closeSessions, err := service.NewSessionStore(ctx, cfg, db, log)
	if err != nil {
		log.Fatal("Failed to create session store", zap.Error(err))
	}
	defer closeSessions()

	triage := service.NewTriageService(
		sessions,
		predictor.NewSymptomClient(predictor.NewRunner(cfg.Predictor.Symptom, log), log),
		predictor.NewLabClient(predictor.NewRunner(cfg.Predictor.Lab, log), log),
		assistant.New(cfg.Assistant.URL, cfg.Assistant.APIKey, cfg.Assistant.Model, cfg.Assistant.Timeout, log),
		log,
	)

	router := httpapi.NewRouter(log)

	// history 为 nil 接口时历史查询返回不可用
	var history httpapi.ReadingLister
	if repo := pipeline.ReadingsRepository(); repo != nil {
		history = repo
	}
	router.RegisterVitalsRoutes(httpapi.NewVitalsHandler(pipeline.Readings(), pipeline.CacheManager(), history, log))
	router.RegisterThresholdRoutes(httpapi.NewThresholdsHandler(pipeline.Thresholds(), log))
	router.RegisterFeverRoutes(httpapi.NewFeverHandler(triage, log))
	if repo := pipeline.AlarmEventsRepository(); repo != nil {
		alarmEvents := service.NewAlarmEventService(repo, log)
		router.RegisterAlarmEventRoutes(httpapi.NewAlarmEventHandler(alarmEvents, log))
	}

	srv := service.NewServer("medisense-data", cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Error("HTTP server error", zap.Error(err))
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error("Failed to stop HTTP server", zap.Error(err))
	}
	log.Info("Data service stopped")
}
