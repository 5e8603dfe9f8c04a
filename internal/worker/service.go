package worker

import (
	"context"
	"errors"
	"time"

	"github.com/dujiao-next/warehouse/internal/config"
	"github.com/dujiao-next/warehouse/internal/logger"
	"github.com/dujiao-next/warehouse/internal/queue"

	"github.com/hibiken/asynq"
)

// Service 异步队列服务；队列未启用时只运行定时状态刷新
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
	interval time.Duration
}

// NewService 创建异步队列服务
func NewService(cfg *config.Config, consumer *Consumer) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	s := &Service{
		name:     "worker",
		consumer: consumer,
		interval: time.Duration(cfg.Warehouse.StatusRefreshIntervalMinutes) * time.Minute,
	}
	if cfg.Queue.Enabled {
		opt, serverCfg := queue.BuildServerConfig(&cfg.Queue)
		s.server = asynq.NewServer(opt, serverCfg)
		s.mux = asynq.NewServeMux()
		consumer.Register(s.mux)
	}
	if s.server == nil && s.interval <= 0 {
		return nil, errors.New("queue disabled and status refresh interval not set")
	}
	return s, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.consumer == nil {
		return errors.New("worker not initialized")
	}
	if s.server == nil {
		s.runStatusRefreshLoop(ctx)
		return nil
	}
	if s.interval > 0 {
		go s.runStatusRefreshLoop(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

func (s *Service) runStatusRefreshLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.Container == nil || s.consumer.InventoryService == nil || s.interval <= 0 {
		return
	}
	runOnce := func() {
		result, err := s.consumer.InventoryService.RefreshStatus(ctx, nil)
		if err != nil {
			if ctx.Err() == nil {
				logger.Warnw("worker_status_refresh_loop_failed", "error", err)
			}
			return
		}
		logger.Debugw("worker_status_refresh_loop_done", "updated", result.Updated)
	}
	runOnce()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
