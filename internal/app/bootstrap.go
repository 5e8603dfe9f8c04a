package app

import (
	"errors"

	"github.com/dujiao-next/warehouse/internal/config"
	"github.com/dujiao-next/warehouse/internal/provider"
	"github.com/dujiao-next/warehouse/internal/router"
	"github.com/dujiao-next/warehouse/internal/service"
	"github.com/dujiao-next/warehouse/internal/worker"
)

// ErrStandaloneWorker 独立 worker 进程会与 API 进程并发整表写入同一数据目录，不再支持
var ErrStandaloneWorker = errors.New("worker mode is not supported with csv table storage, use all mode")

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	// 数据表只允许单进程写入：状态刷新任务只在 all 模式的同一进程内消费
	if mode == ModeWorker {
		return nil, ErrStandaloneWorker
	}

	container := provider.NewContainer(cfg)
	if mode == ModeAPI {
		// api 模式没有进程内 worker，状态刷新同步执行，不投递到队列
		container.StatusDispatcher = service.NewStatusRefreshDispatcher(container.InventoryService, nil)
	}

	var services []Service

	// 初始化 HTTP 服务
	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		httpService := NewHTTPService(addr, engine)
		services = append(services, httpService)
	}

	// 初始化 Worker 服务；队列与定时刷新都未配置时跳过
	if mode == ModeAll && workerConfigured(cfg) {
		consumer := worker.NewConsumer(container)
		workerService, err := worker.NewService(cfg, consumer)
		if err != nil {
			return nil, err
		}
		services = append(services, workerService)
	}

	// 如果没有服务被启动（例如模式错误或配置导致都没起），应该报错或至少打日志
	if len(services) == 0 {
		return nil, errors.New("no services initialized (check mode and config)")
	}

	return NewRunner(services...), nil
}

func workerConfigured(cfg *config.Config) bool {
	return cfg.Queue.Enabled || cfg.Warehouse.StatusRefreshIntervalMinutes > 0
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}

	addr := opts.Config.Server.Host + ":" + opts.Config.Server.Port
	opts.Logger.Infow("app_start", "addr", addr, "mode", opts.Mode)
	return RunWithOptions(runner, opts)
}
