package config

import (
	"fmt"
	"strings"

	"github.com/dujiao-next/warehouse/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Upload    UploadConfig    `mapstructure:"upload"`
	Storage   StorageConfig   `mapstructure:"storage"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Security  SecurityConfig  `mapstructure:"security"`
	Captcha   CaptchaConfig   `mapstructure:"captcha"`
	Warehouse WarehouseConfig `mapstructure:"warehouse"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 操作员账号库配置（库存数据仍存放于 CSV）
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // sqlite / postgres
	DSN    string             `mapstructure:"dsn"`
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// JWTConfig JWT 配置
type JWTConfig struct {
	SecretKey   string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// AuthConfig 操作员鉴权配置
type AuthConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	DefaultUsername string `mapstructure:"default_username"`
	DefaultPassword string `mapstructure:"default_password"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// UploadConfig 图片上传配置
type UploadConfig struct {
	MaxSize           int64    `mapstructure:"max_size"`
	AllowedTypes      []string `mapstructure:"allowed_types"`
	AllowedExtensions []string `mapstructure:"allowed_extensions"`
}

// StorageConfig 图片存储配置
type StorageConfig struct {
	Driver   string      `mapstructure:"driver"` // local / minio
	LocalDir string      `mapstructure:"local_dir"`
	Minio    MinioConfig `mapstructure:"minio"`
}

// MinioConfig MinIO 对象存储配置
type MinioConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	LoginRateLimit LoginRateLimitConfig `mapstructure:"login_rate_limit"`
	WriteRateLimit WriteRateLimitConfig `mapstructure:"write_rate_limit"`
	PasswordPolicy PasswordPolicyConfig `mapstructure:"password_policy"`
}

// LoginRateLimitConfig 登录限流配置
type LoginRateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxAttempts   int `mapstructure:"max_attempts"`
}

// WriteRateLimitConfig 写操作限流配置
type WriteRateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxRequests   int `mapstructure:"max_requests"`
}

// PasswordPolicyConfig 密码策略配置
type PasswordPolicyConfig struct {
	MinLength      int  `mapstructure:"min_length"`
	RequireUpper   bool `mapstructure:"require_upper"`
	RequireLower   bool `mapstructure:"require_lower"`
	RequireNumber  bool `mapstructure:"require_number"`
	RequireSpecial bool `mapstructure:"require_special"`
}

// CaptchaConfig 登录图片验证码配置
type CaptchaConfig struct {
	Enabled bool               `mapstructure:"enabled"`
	Image   CaptchaImageConfig `mapstructure:"image"`
}

// CaptchaImageConfig 图片验证码配置
type CaptchaImageConfig struct {
	Length        int `mapstructure:"length"`
	Width         int `mapstructure:"width"`
	Height        int `mapstructure:"height"`
	NoiseCount    int `mapstructure:"noise_count"`
	ShowLine      int `mapstructure:"show_line"`
	ExpireSeconds int `mapstructure:"expire_seconds"`
	MaxStore      int `mapstructure:"max_store"`
}

// WarehouseConfig 仓库业务配置
type WarehouseConfig struct {
	DataDir                      string   `mapstructure:"data_dir"`
	FloorCapacity                int      `mapstructure:"floor_capacity"`
	Floors                       []int    `mapstructure:"floors"`
	ProductTypes                 []string `mapstructure:"product_types"`
	CacheTTLSeconds              int      `mapstructure:"cache_ttl_seconds"`
	RequiredTables               []string `mapstructure:"required_tables"`
	DefaultPageSize              int      `mapstructure:"default_page_size"`
	MaxPageSize                  int      `mapstructure:"max_page_size"`
	MaxErrorDetails              int      `mapstructure:"max_error_details"`
	MaxSuccessDetails            int      `mapstructure:"max_success_details"`
	StatusRefreshIntervalMinutes int      `mapstructure:"status_refresh_interval_minutes"`
}

// HasFloor 判断楼层是否有效
func (c WarehouseConfig) HasFloor(floor int) bool {
	for _, f := range c.Floors {
		if f == floor {
			return true
		}
	}
	return false
}

// HasProductType 判断商品类型是否有效
func (c WarehouseConfig) HasProductType(productType string) bool {
	normalized := strings.TrimSpace(productType)
	for _, t := range c.ProductTypes {
		if t == normalized {
			return true
		}
	}
	return false
}

// DefaultWarehouseConfig 返回内置仓库配置
func DefaultWarehouseConfig() WarehouseConfig {
	return WarehouseConfig{
		DataDir:         "./csv",
		FloorCapacity:   100,
		Floors:          []int{1, 2, 3, 4, 5},
		ProductTypes:    []string{"样品", "原材料", "HB"},
		CacheTTLSeconds: 30,
		RequiredTables: []string{
			"capacity", "feature", "inventory", "location",
			"manufacturer", "operation_record", "product",
		},
		DefaultPageSize:              50,
		MaxPageSize:                  100,
		MaxErrorDetails:              20,
		MaxSuccessDetails:            10,
		StatusRefreshIntervalMinutes: 30,
	}
}

// Load 从 config.yml 加载配置
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		logger.Debugw("dotenv_not_loaded", "error", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./")
	viper.AddConfigPath("../")
	viper.AddConfigPath("./etc")

	setDefaults()

	// 环境变量支持（例如 warehouse.data_dir -> WAREHOUSE_DATA_DIR）
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", viper.ConfigFileUsed())
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}
	cfg.Warehouse = NormalizeWarehouse(cfg.Warehouse)

	return &cfg
}

// NormalizeWarehouse 补齐仓库配置缺省值并校正取值范围
func NormalizeWarehouse(c WarehouseConfig) WarehouseConfig {
	def := DefaultWarehouseConfig()
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = def.DataDir
	}
	if c.FloorCapacity <= 0 {
		c.FloorCapacity = def.FloorCapacity
	}
	if len(c.Floors) == 0 {
		c.Floors = def.Floors
	}
	if len(c.ProductTypes) == 0 {
		c.ProductTypes = def.ProductTypes
	}
	// 缓存有效期限定在 30~60 秒
	if c.CacheTTLSeconds < 30 {
		c.CacheTTLSeconds = 30
	}
	if c.CacheTTLSeconds > 60 {
		c.CacheTTLSeconds = 60
	}
	if len(c.RequiredTables) == 0 {
		c.RequiredTables = def.RequiredTables
	}
	if c.MaxPageSize <= 0 {
		c.MaxPageSize = def.MaxPageSize
	}
	if c.DefaultPageSize <= 0 || c.DefaultPageSize > c.MaxPageSize {
		c.DefaultPageSize = def.DefaultPageSize
		if c.DefaultPageSize > c.MaxPageSize {
			c.DefaultPageSize = c.MaxPageSize
		}
	}
	if c.MaxErrorDetails <= 0 {
		c.MaxErrorDetails = def.MaxErrorDetails
	}
	if c.MaxSuccessDetails <= 0 {
		c.MaxSuccessDetails = def.MaxSuccessDetails
	}
	if c.StatusRefreshIntervalMinutes <= 0 {
		c.StatusRefreshIntervalMinutes = def.StatusRefreshIntervalMinutes
	}
	return c
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "5000")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("log.dir", "")
	viper.SetDefault("log.filename", "warehouse.log")
	viper.SetDefault("log.max_size_mb", 100)
	viper.SetDefault("log.max_backups", 7)
	viper.SetDefault("log.max_age_days", 30)
	viper.SetDefault("log.compress", true)
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "./db/warehouse.db")
	viper.SetDefault("database.pool.max_open_conns", 1)
	viper.SetDefault("database.pool.max_idle_conns", 1)
	viper.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	viper.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expire_hours", 24)
	viper.SetDefault("auth.enabled", false)
	viper.SetDefault("auth.default_username", "admin")
	viper.SetDefault("auth.default_password", "")
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "127.0.0.1")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.prefix", "wh")
	viper.SetDefault("queue.enabled", false)
	viper.SetDefault("queue.host", "127.0.0.1")
	viper.SetDefault("queue.port", 6379)
	viper.SetDefault("queue.password", "")
	viper.SetDefault("queue.db", 1)
	viper.SetDefault("queue.concurrency", 2)
	viper.SetDefault("queue.queues", map[string]int{
		"default": 1,
	})
	viper.SetDefault("upload.max_size", 10485760)
	viper.SetDefault("upload.allowed_types", []string{
		"image/jpeg",
		"image/png",
		"image/gif",
		"image/webp",
		"image/bmp",
	})
	viper.SetDefault("upload.allowed_extensions", []string{
		".jpg",
		".jpeg",
		".png",
		".gif",
		".webp",
		".bmp",
	})
	viper.SetDefault("storage.driver", "local")
	viper.SetDefault("storage.local_dir", "./images")
	viper.SetDefault("storage.minio.endpoint", "")
	viper.SetDefault("storage.minio.access_key", "")
	viper.SetDefault("storage.minio.secret_key", "")
	viper.SetDefault("storage.minio.bucket", "warehouse-images")
	viper.SetDefault("storage.minio.use_ssl", false)
	viper.SetDefault("cors.allowed_origins", []string{"*"})
	viper.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	viper.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Authorization",
		"Cache-Control",
		"X-Requested-With",
		"X-Request-ID",
	})
	viper.SetDefault("cors.allow_credentials", true)
	viper.SetDefault("cors.max_age", 600)
	viper.SetDefault("security.login_rate_limit.window_seconds", 300)
	viper.SetDefault("security.login_rate_limit.max_attempts", 5)
	viper.SetDefault("security.write_rate_limit.window_seconds", 60)
	viper.SetDefault("security.write_rate_limit.max_requests", 120)
	viper.SetDefault("security.password_policy.min_length", 8)
	viper.SetDefault("security.password_policy.require_upper", false)
	viper.SetDefault("security.password_policy.require_lower", true)
	viper.SetDefault("security.password_policy.require_number", true)
	viper.SetDefault("security.password_policy.require_special", false)
	viper.SetDefault("captcha.enabled", false)
	viper.SetDefault("captcha.image.length", 4)
	viper.SetDefault("captcha.image.width", 240)
	viper.SetDefault("captcha.image.height", 80)
	viper.SetDefault("captcha.image.noise_count", 2)
	viper.SetDefault("captcha.image.show_line", 2)
	viper.SetDefault("captcha.image.expire_seconds", 300)
	viper.SetDefault("captcha.image.max_store", 10240)

	def := DefaultWarehouseConfig()
	viper.SetDefault("warehouse.data_dir", def.DataDir)
	viper.SetDefault("warehouse.floor_capacity", def.FloorCapacity)
	viper.SetDefault("warehouse.floors", def.Floors)
	viper.SetDefault("warehouse.product_types", def.ProductTypes)
	viper.SetDefault("warehouse.cache_ttl_seconds", def.CacheTTLSeconds)
	viper.SetDefault("warehouse.required_tables", def.RequiredTables)
	viper.SetDefault("warehouse.default_page_size", def.DefaultPageSize)
	viper.SetDefault("warehouse.max_page_size", def.MaxPageSize)
	viper.SetDefault("warehouse.max_error_details", def.MaxErrorDetails)
	viper.SetDefault("warehouse.max_success_details", def.MaxSuccessDetails)
	viper.SetDefault("warehouse.status_refresh_interval_minutes", def.StatusRefreshIntervalMinutes)
}
