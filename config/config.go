package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Logger  LoggerConfig  `yaml:"logger"`
	Remote  RemoteConfig  `yaml:"remote"`
	Storage StorageConfig `yaml:"storage"`
	Sync    SyncConfig    `yaml:"sync"`
}

type ServerConfig struct {
	AppEnv      string `yaml:"app_env"`
	GRPCPort    string `yaml:"grpc_port"`
	MetricsAddr string `yaml:"metrics_addr"`
}

type LoggerConfig struct {
	Level             string `yaml:"level"`
	Encoding          string `yaml:"encoding"`
	DisableCaller     bool   `yaml:"disable_caller"`
	DisableStacktrace bool   `yaml:"disable_stacktrace"`
}

type RemoteConfig struct {
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
	DeviceID string        `yaml:"device_id"`
}

type StorageConfig struct {
	Path string `yaml:"path"`
}

type SyncConfig struct {
	// SettleDelay batches bursts of user actions before a replay tick.
	SettleDelay time.Duration `yaml:"settle_delay"`
	// RetryDelay is the cadence at which failed mutations are retried.
	RetryDelay   time.Duration `yaml:"retry_delay"`
	StartOffline bool          `yaml:"start_offline"`
}

func LoadEnv() *Config {
	settle := getEnvDuration("SYNC_SETTLE_DELAY", 1500*time.Millisecond)
	return &Config{
		Server: ServerConfig{
			AppEnv:      getEnv("APP_ENV", "dev"),
			GRPCPort:    getEnv("GRPC_PORT", ":8083"),
			MetricsAddr: getEnv("METRICS_ADDR", ":9090"),
		},
		Logger: LoggerConfig{
			Level:             getEnv("LOGGER_LEVEL", "debug"),
			Encoding:          getEnv("LOGGER_ENCODING", "console"),
			DisableCaller:     getEnvBool("LOGGER_DISABLE_CALLER", false),
			DisableStacktrace: getEnvBool("LOGGER_DISABLE_STACKTRACE", true),
		},
		Remote: RemoteConfig{
			BaseURL:  getEnv("REMOTE_BASE_URL", "http://localhost:8080/api/v1"),
			Timeout:  getEnvDuration("REMOTE_TIMEOUT", 15*time.Second),
			DeviceID: getEnv("DEVICE_ID", hostnameOr("stock-device-01")),
		},
		Storage: StorageConfig{
			Path: getEnv("STORAGE_PATH", "stockagent.db"),
		},
		Sync: SyncConfig{
			SettleDelay:  settle,
			RetryDelay:   getEnvDuration("SYNC_RETRY_DELAY", settle),
			StartOffline: getEnvBool("SYNC_START_OFFLINE", false),
		},
	}
}

// Load reads the environment and then overlays the YAML file named by
// STOCK_CONFIG_FILE, if set. Keys absent from the file keep their env values.
func Load() (*Config, error) {
	cfg := LoadEnv()
	path, ok := os.LookupEnv("STOCK_CONFIG_FILE")
	if !ok || path == "" {
		return cfg, nil
	}
	if err := cfg.MergeFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("2s") or bare milliseconds ("1500").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}

func hostnameOr(fallback string) string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return fallback
}
