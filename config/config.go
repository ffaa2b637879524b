// Package config loads service settings from a YAML file, DATALAB_* environment
// variables and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

type Config struct {
	HTTP     HTTPConfig     `mapstructure:"http" yaml:"http"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	ML       MLConfig       `mapstructure:"ml" yaml:"ml"`
	Sessions SessionsConfig `mapstructure:"sessions" yaml:"sessions"`
	Charts   ChartsConfig   `mapstructure:"charts" yaml:"charts"`
}

type HTTPConfig struct {
	Port           int      `mapstructure:"port" yaml:"port"`
	Timeout        string   `mapstructure:"timeout" yaml:"timeout"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	MaxUploadMB    int      `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
}

// TimeoutDuration parses Timeout, falling back to five minutes.
func (h HTTPConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(h.Timeout)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	File       string `mapstructure:"file" yaml:"file"`
	Console    bool   `mapstructure:"console" yaml:"console"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
}

type MLConfig struct {
	ModelPath  string  `mapstructure:"model_path" yaml:"model_path"`
	Seed       int64   `mapstructure:"seed" yaml:"seed"`
	TestSize   float64 `mapstructure:"test_size" yaml:"test_size"`
	WatchModel bool    `mapstructure:"watch_model" yaml:"watch_model"`
}

type SessionsConfig struct {
	Capacity int `mapstructure:"capacity" yaml:"capacity"`
}

type ChartsConfig struct {
	PlotlyCDN string `mapstructure:"plotly_cdn" yaml:"plotly_cdn"`
}

var defaults = map[string]any{
	"http.port":            8080,
	"http.timeout":         "5m",
	"http.allowed_origins": []string{"*"},
	"http.max_upload_mb":   32,
	"database.path":        "data/datalab.db",
	"log.level":            "info",
	"log.file":             "",
	"log.console":          false,
	"log.max_size_mb":      50,
	"log.max_backups":      3,
	"log.max_age_days":     28,
	"ml.model_path":        "models/model.bundle",
	"ml.seed":              42,
	"ml.test_size":         0.2,
	"ml.watch_model":       false,
	"sessions.capacity":    64,
	"charts.plotly_cdn":    "",
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("DATALAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return v
}

// Default returns the built-in configuration.
func Default() *Config {
	var c Config
	// defaults always decode
	_ = newViper().Unmarshal(&c)
	return &c
}

// Load reads path when it exists. Precedence: env > config file > defaults.
func Load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if _, err := os.Stat(path); err == nil {
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("config: invalid http.port %d", c.HTTP.Port)
	}
	if !(c.ML.TestSize > 0 && c.ML.TestSize < 1) {
		return fmt.Errorf("config: ml.test_size %v must be in (0, 1)", c.ML.TestSize)
	}
	if c.Sessions.Capacity <= 0 {
		return fmt.Errorf("config: sessions.capacity must be positive")
	}
	return nil
}

// Save writes c as YAML, creating the parent directory.
func Save(c *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
