package provider

import (
	"context"
	"time"

	"github.com/dujiao-next/warehouse/internal/authz"
	"github.com/dujiao-next/warehouse/internal/cache"
	"github.com/dujiao-next/warehouse/internal/config"
	"github.com/dujiao-next/warehouse/internal/logger"
	"github.com/dujiao-next/warehouse/internal/models"
	"github.com/dujiao-next/warehouse/internal/queue"
	"github.com/dujiao-next/warehouse/internal/repository"
	"github.com/dujiao-next/warehouse/internal/service"
	"github.com/dujiao-next/warehouse/internal/store"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Stores
	TableStore *store.FileStore
	ImageStore service.ImageStore

	// Repositories
	TableRepo    repository.TableRepository
	OperatorRepo repository.OperatorRepository

	// Services
	AuthzService     *authz.Service
	AuthService      *service.AuthService
	OperatorService  *service.OperatorService
	CaptchaService   *service.CaptchaService
	InventoryService *service.InventoryService
	ExportService    *service.ExportService
	ImageService     *service.ImageService
	StatusDispatcher *service.StatusRefreshDispatcher
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化存储与 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

// TableStoreOptions 仓库配置转为表存储选项
func TableStoreOptions(wh config.WarehouseConfig) store.Options {
	return store.Options{
		DataDir:        wh.DataDir,
		Floors:         wh.Floors,
		FloorCapacity:  wh.FloorCapacity,
		RequiredTables: wh.RequiredTables,
	}
}

func (c *Container) initRepositories() {
	wh := c.Config.Warehouse
	c.TableStore = store.NewFileStore(TableStoreOptions(wh))
	c.TableRepo = repository.NewFileTableRepository(c.TableStore, time.Duration(wh.CacheTTLSeconds)*time.Second)
	if status := c.TableStore.Status(); !status.Initialized {
		logger.Warnw("provider_tables_not_initialized", "data_dir", status.DataDir, "missing", status.Missing)
	}

	if models.DB != nil {
		c.OperatorRepo = repository.NewOperatorRepository(models.DB)
	}

	imageStore, err := service.NewImageStore(context.Background(), c.Config.Storage)
	if err != nil {
		logger.Errorw("provider_init_image_store_failed", "driver", c.Config.Storage.Driver, "error", err)
	} else {
		c.ImageStore = imageStore
	}
}

func (c *Container) initServices() {
	if models.DB != nil {
		authzService, err := authz.NewService(models.DB)
		if err != nil {
			logger.Errorw("provider_init_authz_failed", "error", err)
			panic(err)
		}
		c.AuthzService = authzService
		if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
			logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
			panic(err)
		}
		c.AuthService = service.NewAuthService(c.Config, c.OperatorRepo)
		c.OperatorService = service.NewOperatorService(c.OperatorRepo, c.AuthzService, c.AuthService)
	} else if c.Config.Auth.Enabled {
		logger.Errorw("provider_auth_enabled_without_database")
	}

	c.CaptchaService = service.NewCaptchaService(c.Config.Captcha)
	c.InventoryService = service.NewInventoryService(c.TableRepo, c.Config.Warehouse)
	c.ExportService = service.NewExportService(c.InventoryService)
	c.ImageService = service.NewImageService(c.ImageStore, c.InventoryService, c.Config.Upload)
	c.StatusDispatcher = service.NewStatusRefreshDispatcher(c.InventoryService, c.QueueClient)
}
