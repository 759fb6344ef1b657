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

// Config captures the settings required to run the monitoring agent.
type Config struct {
	Monitor MonitorConfig `yaml:"monitor"`
	Dumps   DumpsConfig   `yaml:"dumps"`
	Runlog  RunlogConfig  `yaml:"runlog"`
	Tips    TipsConfig    `yaml:"tips"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// MonitorConfig controls the sampling loop and hang detection.
type MonitorConfig struct {
	Interval            time.Duration `yaml:"interval"`
	SessionDuration     time.Duration `yaml:"sessionDuration"`
	HistoryCapacity     int           `yaml:"historyCapacity"`
	LivenessThreshold   time.Duration `yaml:"livenessThreshold"`
	DeepThreshold       time.Duration `yaml:"deepThreshold"`
	InvestigationBudget time.Duration `yaml:"investigationBudget"`
	TopN                int           `yaml:"topN"`
	// NetworkSaturation is the per-direction byte rate scored as 100%
	// link utilisation.
	NetworkSaturation float64 `yaml:"networkSaturation"`
	// Privileged enables collection paths that need elevated rights
	// (kernel stacks in dumps, fd enumeration of foreign processes).
	Privileged bool `yaml:"privileged"`
}

// DumpsConfig controls freeze dump capture.
type DumpsConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Directory string        `yaml:"directory"`
	Threshold time.Duration `yaml:"threshold"`
	Denylist  []string      `yaml:"denylist"`
}

// RunlogConfig controls the per-run history database.
type RunlogConfig struct {
	Path string `yaml:"path"`
}

// TipsConfig controls tip-pack loading for event remediation hints.
type TipsConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig controls the HTTP status and metrics listeners.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("SENTINEL_AGENT_CONFIG")
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
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Monitor: MonitorConfig{
			Interval:            3 * time.Second,
			SessionDuration:     0, // run until interrupted
			HistoryCapacity:     60,
			LivenessThreshold:   time.Second,
			DeepThreshold:       5 * time.Second,
			InvestigationBudget: 200 * time.Millisecond,
			TopN:                5,
			NetworkSaturation:   125_000_000, // 1 Gbit/s
		},
		Dumps: DumpsConfig{
			Enabled:   true,
			Directory: "dumps",
			Threshold: 15 * time.Second,
		},
		Runlog:  RunlogConfig{Path: "sentinel-runs.db"},
		Tips:    TipsConfig{Path: "configs/tips/default.yaml"},
		Server:  ServerConfig{Address: ":8080", MetricsAddress: ":2112", GracefulTimeout: 10 * time.Second},
		Logging: LoggingConfig{Level: "info", JSON: false},
	}
}

func validate(cfg *Config) error {
	if cfg.Monitor.Interval <= 0 {
		return fmt.Errorf("monitor.interval must be positive")
	}
	if cfg.Monitor.HistoryCapacity <= 0 {
		return fmt.Errorf("monitor.historyCapacity must be positive")
	}
	if cfg.Monitor.DeepThreshold < cfg.Monitor.LivenessThreshold {
		return fmt.Errorf("monitor.deepThreshold must not be below monitor.livenessThreshold")
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SENTINEL_AGENT_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("SENTINEL_AGENT_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("SENTINEL_AGENT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SENTINEL_AGENT_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("SENTINEL_AGENT_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Monitor.Interval = d
		}
	}
	if v := os.Getenv("SENTINEL_AGENT_SESSION_DURATION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Monitor.SessionDuration = d
		}
	}
	if v := os.Getenv("SENTINEL_AGENT_HISTORY_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Monitor.HistoryCapacity = n
		}
	}
	if v := os.Getenv("SENTINEL_AGENT_TOP_N"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Monitor.TopN = n
		}
	}
	if v := os.Getenv("SENTINEL_AGENT_PRIVILEGED"); v != "" {
		cfg.Monitor.Privileged = strings.EqualFold(v, "true") || strings.EqualFold(v, "1")
	}
	if v := os.Getenv("SENTINEL_AGENT_DUMPS_ENABLED"); v != "" {
		cfg.Dumps.Enabled = strings.EqualFold(v, "true") || strings.EqualFold(v, "1")
	}
	if v := os.Getenv("SENTINEL_AGENT_DUMPS_DIR"); v != "" {
		cfg.Dumps.Directory = v
	}
	if v := os.Getenv("SENTINEL_AGENT_DUMPS_THRESHOLD"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Dumps.Threshold = d
		}
	}
	if v := os.Getenv("SENTINEL_AGENT_RUNLOG_PATH"); v != "" {
		cfg.Runlog.Path = v
	}
	if v := os.Getenv("SENTINEL_AGENT_TIPS_PATH"); v != "" {
		cfg.Tips.Path = v
	}
}
