package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pratikoai/chatstream"
	"github.com/pratikoai/chatstream/sse"
)

const (
	configDir  = ".chat"
	configFile = "config.yaml"
)

// Config is the resolved CLI configuration. Sources apply in order:
// defaults, YAML file, environment (including .env), flags.
type Config struct {
	BaseURL       string        `yaml:"base_url"`
	Path          string        `yaml:"path"`
	Token         string        `yaml:"token"`
	Timeout       time.Duration `yaml:"timeout"`
	SlowFrame     time.Duration `yaml:"slow_frame"`
	MaxRecordSize int           `yaml:"max_record_size"`
	Retries       int           `yaml:"retries"`
	DataDir       string        `yaml:"data_dir"`
	MetricsAddr   string        `yaml:"metrics_addr"`
	LogFile       string        `yaml:"log_file"`
	LogLevel      string        `yaml:"log_level"`
	LogFormat     string        `yaml:"log_format"`
}

// DefaultConfig returns a Config populated with defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:       "http://localhost:8000",
		Path:          "/api/v1/chatbot/chat/stream",
		Timeout:       chatstream.DefaultTimeout,
		SlowFrame:     chatstream.SlowFrameThreshold,
		MaxRecordSize: sse.DefaultMaxRecordSize,
		Retries:       2,
		DataDir:       filepath.Join(homeDir(), configDir, "conversations"),
		LogLevel:      "info",
		LogFormat:     "text",
	}
}

// defaultConfigPath is the YAML file read when --config is not given.
func defaultConfigPath() string {
	return filepath.Join(homeDir(), configDir, configFile)
}

// LoadConfig reads defaults, then the YAML file at path, then environment
// variables from lookup. A missing file is tolerated only when optional.
func LoadConfig(path string, optional bool, lookup func(string) (string, bool)) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && optional:
	default:
		return Config{}, fmt.Errorf("reading config: %w", err)
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
		return nil
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("CHAT_BASE_URL", &c.BaseURL)
	str("CHAT_PATH", &c.Path)
	str("CHAT_TOKEN", &c.Token)
	str("CHAT_DATA_DIR", &c.DataDir)
	str("CHAT_METRICS_ADDR", &c.MetricsAddr)
	str("CHAT_LOG_FILE", &c.LogFile)
	str("CHAT_LOG_LEVEL", &c.LogLevel)
	str("CHAT_LOG_FORMAT", &c.LogFormat)
	return errors.Join(
		dur("CHAT_TIMEOUT", &c.Timeout),
		dur("CHAT_SLOW_FRAME", &c.SlowFrame),
		num("CHAT_MAX_RECORD_SIZE", &c.MaxRecordSize),
		num("CHAT_RETRIES", &c.Retries),
	)
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base url cannot be empty")
	}
	if c.Path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0, got %s", c.Timeout)
	}
	if c.MaxRecordSize <= 0 {
		return fmt.Errorf("max record size must be > 0")
	}
	if c.Retries < 0 {
		return fmt.Errorf("retries must be >= 0")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data dir cannot be empty")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
