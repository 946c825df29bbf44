package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Server HTTP 服务封装
type Server struct {
	name       string
	httpServer *http.Server
	logger     *zap.Logger
}

func NewServer(name, addr string, handler http.Handler, logger *zap.Logger) *Server {
	s := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		// 化验模型和助手调用可能较慢
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return &Server{name: name, httpServer: s, logger: logger}
}

// Start 阻塞监听；正常关闭时返回 nil
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", zap.String("server", s.name), zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server", zap.String("server", s.name))
	return s.httpServer.Shutdown(ctx)
}
