package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is centralized process configuration.
// Values load from an optional YAML file (CONFIG_PATH) with ${VAR}
// expansion, then environment variables override individual fields.
type Config struct {
	ServiceName string  `yaml:"service_name"`
	HTTPPort    string  `yaml:"http_port"`
	OperatorID  string  `yaml:"operator_id"`
	Storage     Storage `yaml:"storage"`
	Logging     Logging `yaml:"logging"`
	Worker      Worker  `yaml:"worker"`

	EnableEventStream bool `yaml:"enable_event_stream"`
}

// Storage selects the listing registry backend.
// Drivers: memory (dev/tests), sqlite (local file), postgres.
type Storage struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	Path   string `yaml:"path"`
}

type Logging struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type Worker struct {
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`
	BatchSize           int `yaml:"batch_size"`
}

func Load() (Config, error) {
	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv("CONFIG_PATH")); path != "" {
		fileCfg, err := LoadFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg = merge(cfg, fileCfg)
	}

	applyEnv(&cfg)
	return cfg, nil
}

// LoadFile reads a YAML config file and expands ${VAR} environment
// variables before parsing.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config yaml: %w", err)
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		ServiceName: "bazaar",
		HTTPPort:    "8080",
		Storage:     Storage{Driver: "memory"},
		Logging:     Logging{Level: "info"},
		Worker: Worker{
			PollIntervalSeconds: 2,
			BatchSize:           100,
		},
		EnableEventStream: true,
	}
}

func merge(base, override Config) Config {
	if override.ServiceName != "" {
		base.ServiceName = override.ServiceName
	}
	if override.HTTPPort != "" {
		base.HTTPPort = override.HTTPPort
	}
	if override.OperatorID != "" {
		base.OperatorID = override.OperatorID
	}
	if override.Storage.Driver != "" {
		base.Storage.Driver = override.Storage.Driver
	}
	if override.Storage.DSN != "" {
		base.Storage.DSN = override.Storage.DSN
	}
	if override.Storage.Path != "" {
		base.Storage.Path = override.Storage.Path
	}
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.File != "" {
		base.Logging.File = override.Logging.File
	}
	if override.Worker.PollIntervalSeconds > 0 {
		base.Worker.PollIntervalSeconds = override.Worker.PollIntervalSeconds
	}
	if override.Worker.BatchSize > 0 {
		base.Worker.BatchSize = override.Worker.BatchSize
	}
	return base
}

func applyEnv(cfg *Config) {
	if service := os.Getenv("SERVICE_NAME"); service != "" {
		cfg.ServiceName = service
	}
	if port := os.Getenv("HTTP_PORT"); port != "" {
		cfg.HTTPPort = port
	}
	if operator := os.Getenv("OPERATOR_ID"); operator != "" {
		cfg.OperatorID = operator
	}
	if driver := os.Getenv("STORAGE_DRIVER"); driver != "" {
		cfg.Storage.Driver = driver
	}
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		cfg.Storage.DSN = dsn
	}
	if path := os.Getenv("SQLITE_PATH"); path != "" {
		cfg.Storage.Path = path
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if file := os.Getenv("LOG_FILE"); file != "" {
		cfg.Logging.File = file
	}
	if raw := os.Getenv("WORKER_POLL_INTERVAL_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.Worker.PollIntervalSeconds = value
		}
	}
	if raw := os.Getenv("WORKER_BATCH_SIZE"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.Worker.BatchSize = value
		}
	}
	cfg.EnableEventStream = envBool("ENABLE_EVENT_STREAM", cfg.EnableEventStream)
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}
