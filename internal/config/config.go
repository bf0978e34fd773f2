// Package config holds the process configuration. Keys are flat environment
// variable names so a .env file or the environment can set any of them.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"

	"labstock/internal/blob"
	"labstock/internal/core"
	"labstock/internal/events"
	"labstock/internal/logger"
	"labstock/internal/report"
	"labstock/pkg/domain"
)

type GlobalConfig struct {
	Server    Server    `mapstructure:",squash"`
	Storage   Storage   `mapstructure:",squash"`
	Blob      Blob      `mapstructure:",squash"`
	Redis     Redis     `mapstructure:",squash"`
	Report    Report    `mapstructure:",squash"`
	Log       Log       `mapstructure:",squash"`
	Telemetry Telemetry `mapstructure:",squash"`
	Currency  Currency  `mapstructure:",squash"`
}

type Server struct {
	Platform     string        `mapstructure:"PLATFORM" default:"labstock"`
	Service      string        `mapstructure:"SERVICE" default:"api"`
	Env          string        `mapstructure:"ENV" default:"dev"`
	Port         int           `mapstructure:"WEB_PORT" default:"8080"`
	AllowOrigins []string      `mapstructure:"CORS_ALLOW_ORIGINS" default:"[\"*\"]"`
	ShutdownWait time.Duration `mapstructure:"SHUTDOWN_WAIT" default:"10s"`
}

type Storage struct {
	Driver      string `mapstructure:"STORAGE_DRIVER" default:"sqlite"`
	SQLitePath  string `mapstructure:"SQLITE_PATH" default:"./labstock.db"`
	PostgresDSN string `mapstructure:"POSTGRES_DSN" default:"postgres://localhost/labstock?sslmode=disable"`
}

type Blob struct {
	Driver      string `mapstructure:"BLOB_DRIVER" default:"fs"`
	FSRoot      string `mapstructure:"BLOB_FS_ROOT" default:"./reports"`
	S3Bucket    string `mapstructure:"BLOB_S3_BUCKET"`
	S3Region    string `mapstructure:"BLOB_S3_REGION" default:"us-east-1"`
	S3Endpoint  string `mapstructure:"BLOB_S3_ENDPOINT"`
	S3Prefix    string `mapstructure:"BLOB_S3_PREFIX"`
	S3PathStyle bool   `mapstructure:"BLOB_S3_PATH_STYLE"`
	S3AccessKey string `mapstructure:"BLOB_S3_ACCESS_KEY_ID"`
	S3SecretKey string `mapstructure:"BLOB_S3_SECRET_ACCESS_KEY"`
}

type Redis struct {
	Enabled  bool   `mapstructure:"REDIS_ENABLED"`
	Host     string `mapstructure:"REDIS_HOST" default:"127.0.0.1"`
	Port     int    `mapstructure:"REDIS_PORT" default:"6379"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB" default:"0"`
	Prefix   string `mapstructure:"REDIS_CHANNEL_PREFIX"`
}

type Report struct {
	Endpoint  string        `mapstructure:"REPORT_ENDPOINT"`
	Path      string        `mapstructure:"REPORT_PATH" default:"/v1/procurement-report"`
	APIKey    string        `mapstructure:"REPORT_API_KEY"`
	Timeout   time.Duration `mapstructure:"REPORT_TIMEOUT" default:"30s"`
	QueueSize int           `mapstructure:"REPORT_QUEUE_SIZE" default:"32"`
}

type Log struct {
	LogPath  string `mapstructure:"LOG_PATH" default:"./labstock.log"`
	LogLevel string `mapstructure:"LOG_LEVEL" default:"info"`
}

// Telemetry picks the operation metrics backend and the optional span file.
// METRICS_DRIVER is one of prometheus, expvar or none.
type Telemetry struct {
	MetricsDriver  string `mapstructure:"METRICS_DRIVER" default:"prometheus"`
	ExpvarName     string `mapstructure:"METRICS_EXPVAR_NAME" default:"labstock_service"`
	TraceFile      string `mapstructure:"TRACE_FILE"`
	TraceMaxSizeMB int    `mapstructure:"TRACE_MAX_SIZE_MB" default:"50"`
}

type Currency struct {
	Currency string `mapstructure:"CURRENCY" default:"TWD"`
	OrgName  string `mapstructure:"ORG_NAME" default:"化學實驗室 (Chem Lab)"`
}

var config = &GlobalConfig{}

func init() {
	if err := defaults.Set(config); err != nil {
		fmt.Printf("set default err: %+v", err)
		os.Exit(1)
	}
}

// Global returns the process configuration.
func Global() *GlobalConfig {
	return config
}

// New returns a fresh configuration with defaults applied.
func New() (*GlobalConfig, error) {
	c := &GlobalConfig{}
	if err := defaults.Set(c); err != nil {
		return nil, err
	}
	return c, nil
}

// StorageConfig maps the flat keys onto the store factory input.
func (c *GlobalConfig) StorageConfig() core.StorageConfig {
	return core.StorageConfig{
		Driver:      core.StorageDriver(c.Storage.Driver),
		SQLitePath:  c.Storage.SQLitePath,
		PostgresDSN: c.Storage.PostgresDSN,
	}
}

// BlobConfig maps the flat keys onto the artifact store factory input.
func (c *GlobalConfig) BlobConfig() blob.Config {
	return blob.Config{
		Driver: c.Blob.Driver,
		FSRoot: c.Blob.FSRoot,
		S3: blob.S3Config{
			Bucket:          c.Blob.S3Bucket,
			Region:          c.Blob.S3Region,
			Endpoint:        c.Blob.S3Endpoint,
			Prefix:          c.Blob.S3Prefix,
			PathStyle:       c.Blob.S3PathStyle,
			AccessKeyID:     c.Blob.S3AccessKey,
			SecretAccessKey: c.Blob.S3SecretKey,
		},
	}
}

// RedisConfig maps the flat keys onto the event publisher connection.
func (c *GlobalConfig) RedisConfig() events.RedisConfig {
	return events.RedisConfig{
		Addr:     fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port),
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
		Prefix:   c.Redis.Prefix,
	}
}

// ReportConfig maps the flat keys onto the remote generator client.
func (c *GlobalConfig) ReportConfig() report.HTTPConfig {
	return report.HTTPConfig{
		Endpoint: c.Report.Endpoint,
		Path:     c.Report.Path,
		APIKey:   c.Report.APIKey,
		Timeout:  c.Report.Timeout,
	}
}

// LogConfig maps the flat keys onto logger.Init input.
func (c *GlobalConfig) LogConfig() *logger.LogConfig {
	return &logger.LogConfig{
		Path:     c.Log.LogPath,
		LogLevel: c.Log.LogLevel,
		ServiceEnv: logger.ServiceEnv{
			Platform: c.Server.Platform,
			Service:  c.Server.Service,
			Env:      c.Server.Env,
		},
	}
}

// Settings returns the default reorder settings.
func (c *GlobalConfig) Settings() domain.AppSettings {
	return domain.AppSettings{Currency: domain.Currency(c.Currency.Currency), OrgName: c.Currency.OrgName}
}
