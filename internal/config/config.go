package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the risk engine.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Store      StoreConfig      `yaml:"store"`
	Retraining RetrainingConfig `yaml:"retraining"`
	RefData    RefDataConfig    `yaml:"refData"`
	Advisory   AdvisoryConfig   `yaml:"advisory"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig controls HTTP listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
	MaxUploadBytes  int64         `yaml:"maxUploadBytes"`
}

// StoreConfig locates the model store on disk.
type StoreConfig struct {
	Dir             string `yaml:"dir"`
	LegacyModelPath string `yaml:"legacyModelPath"`
	UploadsDir      string `yaml:"uploadsDir"`
}

// RetrainingConfig bounds the retraining pipeline and fixes forest hyperparameters.
type RetrainingConfig struct {
	MinRows         int           `yaml:"minRows"`
	TestFraction    float64       `yaml:"testFraction"`
	Trees           int           `yaml:"trees"`
	MaxDepth        int           `yaml:"maxDepth"`
	MinSamplesSplit int           `yaml:"minSamplesSplit"`
	Seed            int64         `yaml:"seed"`
	Timeout         time.Duration `yaml:"timeout"`
}

// RefDataConfig points at an optional reference-data override pack.
type RefDataConfig struct {
	Path string `yaml:"path"`
}

// AdvisoryConfig points at an optional advisory rule pack.
type AdvisoryConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("AFRICA_RISK_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8000",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
			MaxUploadBytes:  32 << 20,
		},
		Store: StoreConfig{
			Dir:             "data/models",
			LegacyModelPath: "data/conflict_model_final.json",
			UploadsDir:      "data/uploads",
		},
		Retraining: RetrainingConfig{
			MinRows:         10,
			TestFraction:    0.2,
			Trees:           150,
			MaxDepth:        12,
			MinSamplesSplit: 5,
			Seed:            42,
			Timeout:         2 * time.Minute,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AFRICA_RISK_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("AFRICA_RISK_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("AFRICA_RISK_MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.Server.MaxUploadBytes = n
		}
	}
	if v := os.Getenv("AFRICA_RISK_STORE_DIR"); v != "" {
		cfg.Store.Dir = v
	}
	if v := os.Getenv("AFRICA_RISK_LEGACY_MODEL_PATH"); v != "" {
		cfg.Store.LegacyModelPath = v
	}
	if v := os.Getenv("AFRICA_RISK_UPLOADS_DIR"); v != "" {
		cfg.Store.UploadsDir = v
	}
	if v := os.Getenv("AFRICA_RISK_RETRAIN_MIN_ROWS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Retraining.MinRows = n
		}
	}
	if v := os.Getenv("AFRICA_RISK_RETRAIN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Retraining.Timeout = d
		}
	}
	if v := os.Getenv("AFRICA_RISK_RETRAIN_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Retraining.Seed = n
		}
	}
	if v := os.Getenv("AFRICA_RISK_REFDATA_PATH"); v != "" {
		cfg.RefData.Path = v
	}
	if v := os.Getenv("AFRICA_RISK_ADVISORY_PATH"); v != "" {
		cfg.Advisory.Path = v
	}
	if v := os.Getenv("AFRICA_RISK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("AFRICA_RISK_LOG_FORMAT"); strings.EqualFold(v, "json") {
		cfg.Logging.JSON = true
	}
}
