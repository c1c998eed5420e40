package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"buildops/internal/models"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

type Config struct {
	App         AppConfig         `yaml:"app"`
	Storage     StorageConfig     `yaml:"storage"`
	Persistence PersistenceConfig `yaml:"persistence"`
	API         APIConfig         `yaml:"api"`
	Monitoring  MonitoringConfig  `yaml:"monitoring"`
	Logging     LoggingConfig     `yaml:"logging"`
	Backup      BackupConfig      `yaml:"backup"`
	Exports     ExportConfig      `yaml:"exports"`
	Catalog     []CatalogEntry    `yaml:"catalog"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
	Timezone    string `yaml:"timezone"`
}

type StorageConfig struct {
	Backend   string         `yaml:"backend"`
	KeyPrefix string         `yaml:"key_prefix"`
	Failover  bool           `yaml:"failover"`
	Redis     RedisConfig    `yaml:"redis"`
	SQLite    SQLiteConfig   `yaml:"sqlite"`
	Postgres  PostgresConfig `yaml:"postgres"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	MaxConnections int32  `yaml:"max_connections"`
}

type PersistenceConfig struct {
	Async bool        `yaml:"async"`
	Retry RetryConfig `yaml:"retry"`
}

type RetryConfig struct {
	MaxRetries    int           `yaml:"max_retries"`
	InitialDelay  time.Duration `yaml:"initial_delay"`
	MaxDelay      time.Duration `yaml:"max_delay"`
	BackoffFactor float64       `yaml:"backoff_factor"`
}

type APIConfig struct {
	HTTP      APIHTTPConfig      `yaml:"http"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Port int `yaml:"port"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

// CatalogEntry overrides the seed service catalog.
type CatalogEntry struct {
	ID         int64   `yaml:"id"`
	Name       string  `yaml:"name"`
	HourlyRate float64 `yaml:"hourly_rate"`
}

func Load(configPath string) (*Config, error) {
	// .env необязателен
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Storage.Redis.Address == "" {
			return errors.New("storage.redis.address is required for redis backend")
		}
	case BackendSQLite:
		if c.Storage.SQLite.Path == "" {
			return errors.New("storage.sqlite.path is required for sqlite backend")
		}
	case BackendPostgres:
		if c.Storage.Postgres.DSN == "" {
			return errors.New("storage.postgres.dsn is required for postgres backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("invalid app.timezone: %w", err)
	}

	if c.Backup.Enabled && c.Storage.Backend != BackendSQLite {
		return errors.New("backup is only supported for sqlite backend")
	}

	return ValidateCatalog(c.Catalog)
}

func ValidateCatalog(entries []CatalogEntry) error {
	ids := make(map[int64]bool)
	for _, entry := range entries {
		if entry.ID == 0 {
			return fmt.Errorf("service '%s' has invalid ID 0", entry.Name)
		}
		if strings.TrimSpace(entry.Name) == "" {
			return fmt.Errorf("service %d has empty name", entry.ID)
		}
		if entry.HourlyRate < 0 {
			return fmt.Errorf("service '%s' has negative hourly rate", entry.Name)
		}
		if ids[entry.ID] {
			return fmt.Errorf("duplicate service ID found: %d", entry.ID)
		}
		ids[entry.ID] = true
	}
	return nil
}

// Location returns the zone used for calendar-day boundaries.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Services converts the catalog section; nil when the section is empty.
func (c *Config) Services() []models.Service {
	if len(c.Catalog) == 0 {
		return nil
	}
	out := make([]models.Service, 0, len(c.Catalog))
	for _, entry := range c.Catalog {
		out = append(out, models.Service{
			ID:         entry.ID,
			Name:       entry.Name,
			HourlyRate: decimal.NewFromFloat(entry.HourlyRate),
		})
	}
	return out
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "buildops"
	}
	if c.App.Timezone == "" {
		c.App.Timezone = "UTC"
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendMemory
	}
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "buildops:"
	}
	if c.Persistence.Retry.MaxRetries == 0 {
		c.Persistence.Retry.MaxRetries = 3
	}
	if c.Persistence.Retry.InitialDelay == 0 {
		c.Persistence.Retry.InitialDelay = 200 * time.Millisecond
	}
	if c.Persistence.Retry.MaxDelay == 0 {
		c.Persistence.Retry.MaxDelay = 5 * time.Second
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Backup.Schedule == "" {
		c.Backup.Schedule = "@daily"
	}
	if c.Backup.StoragePath == "" {
		c.Backup.StoragePath = "./data/backups"
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "./exports"
	}
}
