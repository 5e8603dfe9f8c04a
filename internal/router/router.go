package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dujiao-next/warehouse/internal/authz"
	"github.com/dujiao-next/warehouse/internal/cache"
	"github.com/dujiao-next/warehouse/internal/config"
	adminhandlers "github.com/dujiao-next/warehouse/internal/http/handlers/admin"
	publichandlers "github.com/dujiao-next/warehouse/internal/http/handlers/public"
	"github.com/dujiao-next/warehouse/internal/http/response"
	"github.com/dujiao-next/warehouse/internal/logger"
	"github.com/dujiao-next/warehouse/internal/provider"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

const warehouseRoutePrefix = "/api/v1/warehouse/"

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "wh"
	}
	redisClient := cache.Client()
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		Message:       "登录尝试过于频繁",
	}
	writeRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:write", redisPrefix),
		WindowSeconds: cfg.Security.WriteRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.WriteRateLimit.MaxRequests,
		Message:       "写入操作过于频繁",
	}
	writeLimit := RateLimitMiddleware(redisClient, writeRule, KeyByIP)

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/images/"})))

	// 商品特征图片
	if c.ImageService.Enabled() {
		r.GET("/images/*path", publicHandler.ServeImage)
	}

	apiV1 := r.Group("/api/v1")
	{
		apiV1.GET("/health", publicHandler.HealthCheck)
		meta := apiV1.Group("/meta")
		{
			meta.GET("/product-types", publicHandler.ListProductTypes)
			meta.GET("/floors", publicHandler.ListFloors)
		}

		if cfg.Auth.Enabled {
			auth := apiV1.Group("/auth")
			{
				auth.GET("/captcha", publicHandler.GetCaptcha)
				auth.POST("/login", RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("username")), publicHandler.Login)
			}
		}

		warehouse := apiV1.Group("/warehouse")
		if cfg.Auth.Enabled {
			warehouse.Use(JWTAuthMiddleware(c.AuthService), OperatorRBACMiddleware(c.AuthzService))
		}
		{
			// 库存查询与维护
			warehouse.GET("/inventory", adminHandler.ListInventory)
			warehouse.GET("/inventory/export", adminHandler.ExportInventory)
			warehouse.GET("/inventory/:id", adminHandler.GetInventoryDetail)
			warehouse.POST("/inventory/:id/edit", writeLimit, adminHandler.EditInventory)
			warehouse.DELETE("/inventory/:id", writeLimit, adminHandler.DeleteInventory)

			// 出入库与借还
			warehouse.POST("/stock-in", writeLimit, adminHandler.StockIn)
			warehouse.POST("/stock-out", writeLimit, adminHandler.StockOut)
			warehouse.POST("/lend", writeLimit, adminHandler.Lend)
			warehouse.POST("/return", writeLimit, adminHandler.Return)
			warehouse.POST("/undo", writeLimit, adminHandler.Undo)
			warehouse.POST("/status/refresh", adminHandler.RefreshStatus)
			warehouse.GET("/stock-check", adminHandler.CheckStock)

			// 查询与导出
			warehouse.GET("/last-address", adminHandler.GetLastAddress)
			warehouse.GET("/capacity", adminHandler.GetCapacity)
			warehouse.GET("/operation-records", adminHandler.ListOperationRecords)
			warehouse.GET("/operation-records/export", adminHandler.ExportOperationRecords)

			// 图片
			warehouse.POST("/images", writeLimit, adminHandler.UploadImage)
			warehouse.POST("/images/batch-delete", writeLimit, adminHandler.BatchDeleteImages)

			// 操作员与权限
			if cfg.Auth.Enabled && c.OperatorService != nil {
				warehouse.GET("/me", adminHandler.GetMe)
				warehouse.PUT("/me/password", adminHandler.ChangePassword)
				warehouse.GET("/operators", adminHandler.ListOperators)
				warehouse.POST("/operators", adminHandler.CreateOperator)
				warehouse.PUT("/operators/:id/roles", adminHandler.SetOperatorRoles)
				warehouse.DELETE("/operators/:id", adminHandler.DeleteOperator)
				warehouse.GET("/roles", adminHandler.ListRoles)
				warehouse.GET("/permissions/catalog", func(ctx *gin.Context) {
					response.Success(ctx, buildPermissionCatalog(r))
				})
			}
		}
	}

	return r
}

type permissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

func buildPermissionCatalog(engine *gin.Engine) []permissionCatalogItem {
	if engine == nil {
		return []permissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]permissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, warehouseRoutePrefix) {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, permissionCatalogItem{
			Module:     derivePermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func derivePermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 {
		return segments[0]
	}
	if segments[0] != "warehouse" {
		return segments[0]
	}
	return segments[1]
}
