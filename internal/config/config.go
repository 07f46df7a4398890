// Package config loads settings from an optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/formicag/ACEReportHub/internal/backup"
	"github.com/formicag/ACEReportHub/internal/compare"
	"github.com/formicag/ACEReportHub/internal/ingest"
	"github.com/formicag/ACEReportHub/internal/models"
	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Store struct {
		Driver      string `yaml:"driver"`
		DatabaseURL string `yaml:"database_url"`
		SQLitePath  string `yaml:"sqlite_path"`
	} `yaml:"store"`

	Report struct {
		StaleThresholdDays int               `yaml:"stale_threshold_days"`
		MaxOpen            int               `yaml:"max_open"`
		ExcludedIDs        []string          `yaml:"excluded_ids"`
		Open               models.OpenPolicy `yaml:"open"`
	} `yaml:"report"`

	Backup struct {
		Dir   string             `yaml:"dir"`
		Minio backup.MinioConfig `yaml:"minio"`
	} `yaml:"backup"`

	Auth struct {
		AdminSecret   string        `yaml:"admin_secret"`
		ConfirmSecret string        `yaml:"confirm_secret"`
		ConfirmTTL    time.Duration `yaml:"confirm_ttl"`
	} `yaml:"auth"`

	AI struct {
		OllamaHost string `yaml:"ollama_host"`
		Model      string `yaml:"model"`
	} `yaml:"ai"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Port = 8081
	cfg.Store.Driver = DriverPostgres
	cfg.Store.SQLitePath = "ace_report_hub.db"
	cfg.Report.StaleThresholdDays = compare.DefaultStaleThreshold
	cfg.Report.MaxOpen = ingest.DefaultMaxOpen
	cfg.Report.ExcludedIDs = append([]string(nil), ingest.DefaultExcludedIDs...)
	cfg.Report.Open = models.DefaultOpenPolicy()
	cfg.Backup.Dir = "backups"
	cfg.Backup.Minio.Prefix = "ace-backups/"
	cfg.Auth.ConfirmTTL = 10 * time.Minute
	cfg.LogLevel = "info"
	return cfg
}

// Load reads path (skipped when empty), applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	return LoadWith(path, nil)
}

// LoadWith is Load with a final override step before validation, used by the CLI for its flags.
func LoadWith(path string, override func(*Config)) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if override != nil {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Store.DatabaseURL, "DATABASE_URL")
	setString(&c.Store.Driver, "STORE_DRIVER")
	setString(&c.Store.SQLitePath, "SQLITE_PATH")
	setString(&c.Backup.Dir, "BACKUP_DIR")
	setString(&c.Backup.Minio.Endpoint, "BACKUP_MINIO_ENDPOINT")
	setString(&c.Backup.Minio.Bucket, "BACKUP_MINIO_BUCKET")
	setString(&c.Backup.Minio.AccessKey, "BACKUP_MINIO_ACCESS_KEY")
	setString(&c.Backup.Minio.SecretKey, "BACKUP_MINIO_SECRET_KEY")
	setString(&c.Backup.Minio.Region, "BACKUP_MINIO_REGION")
	setString(&c.Auth.AdminSecret, "ADMIN_SECRET")
	setString(&c.Auth.ConfirmSecret, "CONFIRM_SECRET")
	setString(&c.AI.OllamaHost, "OLLAMA_HOST")
	setString(&c.AI.Model, "OLLAMA_MODEL")
	setString(&c.LogLevel, "LOG_LEVEL")

	if err := setInt(&c.Server.Port, "PORT"); err != nil {
		return err
	}
	if err := setInt(&c.Report.StaleThresholdDays, "STALE_THRESHOLD_DAYS"); err != nil {
		return err
	}
	if err := setInt(&c.Report.MaxOpen, "MAX_OPEN"); err != nil {
		return err
	}
	if v := os.Getenv("BACKUP_MINIO_USE_SSL"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid BACKUP_MINIO_USE_SSL: %w", err)
		}
		c.Backup.Minio.UseSSL = b
	}
	if v := os.Getenv("EXCLUDED_IDS"); v != "" {
		c.Report.ExcludedIDs = splitList(v)
	}
	return nil
}

// Validate rejects settings the application cannot run with.
func (c *Config) Validate() error {
	var errs []error
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	switch c.Store.Driver {
	case DriverPostgres:
		if c.Store.DatabaseURL == "" {
			errs = append(errs, errors.New("database_url is required for the postgres driver (env: DATABASE_URL)"))
		}
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("sqlite_path is required for the sqlite driver (env: SQLITE_PATH)"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", c.Server.Port))
	}
	if c.Report.StaleThresholdDays <= 0 {
		errs = append(errs, fmt.Errorf("stale_threshold_days must be positive, got %d", c.Report.StaleThresholdDays))
	}
	if c.Report.MaxOpen < 0 {
		errs = append(errs, fmt.Errorf("max_open must not be negative, got %d", c.Report.MaxOpen))
	}
	if len(c.Report.Open.Statuses) == 0 || len(c.Report.Open.Stages) == 0 {
		errs = append(errs, errors.New("open policy needs at least one status and one stage"))
	}
	if c.Auth.ConfirmTTL <= 0 {
		errs = append(errs, fmt.Errorf("confirm_ttl must be positive, got %s", c.Auth.ConfirmTTL))
	}
	m := c.Backup.Minio
	if m.Endpoint != "" && m.Bucket == "" {
		errs = append(errs, errors.New("backup.minio.bucket is required when an endpoint is set"))
	}
	return errors.Join(errs...)
}

// MinioEnabled reports whether archives also go to object storage.
func (c *Config) MinioEnabled() bool {
	return c.Backup.Minio.Endpoint != ""
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
