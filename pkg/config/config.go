package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

var validate = validator.New()

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Media        MediaConfig
	Storage      StorageConfig
	Queue        QueueConfig
	Caption      CaptionConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"IMAGEVAULT_APP_ENV" default:"dev"`
	Port         string `envconfig:"IMAGEVAULT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"IMAGEVAULT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"IMAGEVAULT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"IMAGEVAULT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"IMAGEVAULT_DB_DSN"`
	Driver string `envconfig:"IMAGEVAULT_DB_DRIVER" default:"postgres"`

	MaxOpenConns    int           `envconfig:"IMAGEVAULT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"IMAGEVAULT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"IMAGEVAULT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"IMAGEVAULT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"IMAGEVAULT_REDIS_URL"`
	Address      string        `envconfig:"IMAGEVAULT_REDIS_ADDR" default:"localhost:6379"`
	Password     string        `envconfig:"IMAGEVAULT_REDIS_PASSWORD"`
	DB           int           `envconfig:"IMAGEVAULT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"IMAGEVAULT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"IMAGEVAULT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"IMAGEVAULT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"IMAGEVAULT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"IMAGEVAULT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type MediaConfig struct {
	MaxUploadMB      int `envconfig:"IMAGEVAULT_MAX_UPLOAD_MB" default:"100" validate:"min=1"`
	MaxPixels        int `envconfig:"IMAGEVAULT_MEDIA_MAX_PIXELS" default:"50000000" validate:"min=1"`
	ThumbSmallSize   int `envconfig:"IMAGEVAULT_MEDIA_THUMB_SMALL" default:"256" validate:"min=1"`
	ThumbMediumSize  int `envconfig:"IMAGEVAULT_MEDIA_THUMB_MEDIUM" default:"768" validate:"min=1"`
	ThumbJPEGQuality int `envconfig:"IMAGEVAULT_MEDIA_THUMB_QUALITY" default:"85" validate:"min=1,max=100"`
}

// MaxUploadBytes converts the configured megabyte ceiling to bytes.
func (m MediaConfig) MaxUploadBytes() int64 {
	return int64(m.MaxUploadMB) * 1024 * 1024
}

type StorageConfig struct {
	MediaDir string `envconfig:"IMAGEVAULT_MEDIA_DIR" default:"media"`
}

type QueueConfig struct {
	Name        string `envconfig:"IMAGEVAULT_QUEUE_NAME" default:"image-jobs" validate:"required"`
	Concurrency int    `envconfig:"IMAGEVAULT_QUEUE_CONCURRENCY" default:"5" validate:"min=1"`
	MaxRetry    int    `envconfig:"IMAGEVAULT_QUEUE_MAX_RETRY" default:"3" validate:"min=0"`
}

type CaptionConfig struct {
	EndpointURL  string        `envconfig:"IMAGEVAULT_CAPTION_ENDPOINT_URL"`
	APIToken     string        `envconfig:"IMAGEVAULT_CAPTION_API_TOKEN"`
	Timeout      time.Duration `envconfig:"IMAGEVAULT_CAPTION_TIMEOUT" default:"30s"`
	WarmupOnBoot bool          `envconfig:"IMAGEVAULT_CAPTION_WARMUP_ON_BOOT" default:"true"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"IMAGEVAULT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"IMAGEVAULT_AUTO_MIGRATE" default:"false"`
}
