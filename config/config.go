package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// FileTimeLayout is the timestamp layout embedded in derived output file names.
const FileTimeLayout = "2006_01_02-15_04_05"

type Config struct {
	Collector struct {
		Command      string         `yaml:"command"`
		Output       string         `yaml:"output"`
		OutputDir    string         `yaml:"output_dir"`
		FilePrefix   string         `yaml:"file_prefix"`
		Interval     *time.Duration `yaml:"interval"`
		ResetOnStart *bool          `yaml:"reset_on_start"`
		IncludeAll   bool           `yaml:"include_all"`
		JSON         *bool          `yaml:"json"`
		NoUpdate     *bool          `yaml:"no_update"`
	} `yaml:"collector"`

	Metrics struct {
		Enabled       bool   `yaml:"enabled"`
		ListenAddress string `yaml:"listen_address"`
		Path          string `yaml:"path"`
	} `yaml:"metrics"`

	System struct {
		EnableNetworkMetrics bool          `yaml:"enable_network_metrics"`
		EnableProcessMetrics bool          `yaml:"enable_process_metrics"`
		Interval             time.Duration `yaml:"interval"`
	} `yaml:"system"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		File   string `yaml:"file"`
	} `yaml:"logging"`
}

// LoadConfig reads the configuration file, applies NSTAT_* environment
// overrides and fills in defaults. An empty path means defaults only.
func LoadConfig(path string) (*Config, error) {
	var config Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	// A missing .env file is not an error
	_ = godotenv.Load()
	if err := config.applyEnv(); err != nil {
		return nil, fmt.Errorf("error reading environment: %w", err)
	}

	config.setDefaults()

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("NSTAT_OUTPUT"); v != "" {
		c.Collector.Output = v
	}
	if v := os.Getenv("NSTAT_OUTPUT_DIR"); v != "" {
		c.Collector.OutputDir = v
	}
	if v := os.Getenv("NSTAT_COMMAND"); v != "" {
		c.Collector.Command = v
	}
	if v := os.Getenv("NSTAT_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("NSTAT_INTERVAL: %w", err)
		}
		c.Collector.Interval = &d
	}
	if v := os.Getenv("NSTAT_RESET_ON_START"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("NSTAT_RESET_ON_START: %w", err)
		}
		c.Collector.ResetOnStart = &b
	}
	if v := os.Getenv("NSTAT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("NSTAT_METRICS_ADDRESS"); v != "" {
		c.Metrics.Enabled = true
		c.Metrics.ListenAddress = v
	}
	return nil
}

func (c *Config) setDefaults() {
	// Collector defaults
	if c.Collector.Command == "" {
		c.Collector.Command = "nstat"
	}
	if c.Collector.FilePrefix == "" {
		c.Collector.FilePrefix = "nstat"
	}
	// An explicit 0s means back-to-back samples
	if c.Collector.Interval == nil {
		interval := time.Second
		c.Collector.Interval = &interval
	}
	if c.Collector.ResetOnStart == nil {
		c.Collector.ResetOnStart = boolPtr(true)
	}
	if c.Collector.JSON == nil {
		c.Collector.JSON = boolPtr(true)
	}
	if c.Collector.NoUpdate == nil {
		c.Collector.NoUpdate = boolPtr(true)
	}

	// Metrics defaults
	if c.Metrics.ListenAddress == "" {
		c.Metrics.ListenAddress = ":9105"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}

	// System defaults
	if c.System.Interval == 0 {
		c.System.Interval = 15 * time.Second
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = "debug"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
}

func (c *Config) validate() error {
	if *c.Collector.Interval < 0 {
		return fmt.Errorf("collector interval must not be negative: %v", *c.Collector.Interval)
	}

	if c.System.Interval < 0 {
		return fmt.Errorf("system interval must not be negative: %v", c.System.Interval)
	}

	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Logging.Level, err)
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format: %q", c.Logging.Format)
	}

	return nil
}

// OutputPath returns the configured output file, or derives
// <output_dir>/<prefix>-<timestamp>.log from t.
func (c *Config) OutputPath(t time.Time) string {
	if c.Collector.Output != "" {
		return c.Collector.Output
	}
	name := fmt.Sprintf("%s-%s.log", c.Collector.FilePrefix, t.Format(FileTimeLayout))
	return filepath.Join(c.Collector.OutputDir, name)
}

func boolPtr(b bool) *bool {
	return &b
}
