package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/l3aro/go-cflow/internal/log"
)

// Format is the output format of an analysis report
type Format string

const (
	FormatText    Format = "text"
	FormatJSON    Format = "json"
	FormatDOT     Format = "dot"
	FormatMsgpack Format = "msgpack"
)

// Formats lists every supported output format.
var Formats = []Format{FormatText, FormatJSON, FormatDOT, FormatMsgpack}

// Config holds all configuration for cflow
type Config struct {
	// Format is the default report format
	Format Format `yaml:"format" env:"CFLOW_FORMAT"`

	// Workers is the number of functions lowered concurrently
	Workers int `yaml:"workers" env:"CFLOW_WORKERS"`

	// CacheDir persists analysed forests between runs; empty keeps them in memory only
	CacheDir string `yaml:"cache_dir" env:"CFLOW_CACHE_DIR"`

	// CacheSize bounds the number of forests held in memory
	CacheSize int `yaml:"cache_size" env:"CFLOW_CACHE_SIZE"`

	// Logging
	LogLevel string `yaml:"log_level" env:"CFLOW_LOG_LEVEL"`
	JSONLogs bool   `yaml:"json_logs" env:"CFLOW_JSON_LOGS"`

	// OutputDir is where the dot command writes graph files
	OutputDir string `yaml:"output_dir" env:"CFLOW_OUTPUT_DIR"`

	// ShowCode includes block code lines in text reports
	ShowCode bool `yaml:"show_code" env:"CFLOW_SHOW_CODE"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Format:    FormatText,
		Workers:   4,
		CacheDir:  "",
		CacheSize: 64,
		LogLevel:  "info",
		JSONLogs:  false,
		OutputDir: ".",
		ShowCode:  true,
	}
}

// GlobalConfigFilePath returns the global config file path (~/.cflow/config.yaml)
func GlobalConfigFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".cflow", "config.yaml")
	}
	return filepath.Join(home, ".cflow", "config.yaml")
}

// ProjectConfigFilePath returns the project-level config file path (./.cflow/config.yaml)
func ProjectConfigFilePath() string {
	return filepath.Join(".cflow", "config.yaml")
}

// Load reads configuration with the following priority (highest to lowest):
// 1. Project-level config (./.cflow/config.yaml)
// 2. Environment variables
// 3. Global config (~/.cflow/config.yaml)
// 4. Defaults
func Load() (*Config, error) {
	return load(GlobalConfigFilePath(), ProjectConfigFilePath())
}

func load(globalPath, projectPath string) (*Config, error) {
	cfg := DefaultConfig()

	if err := mergeFile(cfg, globalPath); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)
	if err := mergeFile(cfg, projectPath); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFile overlays the YAML file at path onto cfg. A missing file is not an
// error.
func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// LoadFromFile reads configuration from a specific YAML file path
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	if data, err := os.ReadFile(path); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the specified YAML file path.
// It creates parent directories if they don't exist.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Unparseable numeric or boolean values are ignored.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CFLOW_FORMAT"); v != "" {
		cfg.Format = Format(v)
	}
	if v := os.Getenv("CFLOW_WORKERS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			cfg.Workers = i
		}
	}
	if v, ok := os.LookupEnv("CFLOW_CACHE_DIR"); ok {
		cfg.CacheDir = v
	}
	if v := os.Getenv("CFLOW_CACHE_SIZE"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			cfg.CacheSize = i
		}
	}
	if v := os.Getenv("CFLOW_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CFLOW_JSON_LOGS"); v != "" {
		cfg.JSONLogs = parseBool(v)
	}
	if v := os.Getenv("CFLOW_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv("CFLOW_SHOW_CODE"); v != "" {
		cfg.ShowCode = parseBool(v)
	}
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}

// Validate checks that the configuration has valid required fields
func (c *Config) Validate() error {
	if !c.Format.Valid() {
		return fmt.Errorf("invalid format: %s (must be one of text, json, dot, msgpack)", c.Format)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive")
	}
	if c.CacheSize < 1 {
		return fmt.Errorf("cache_size must be positive")
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	return nil
}

// Valid reports whether f is a supported format.
func (f Format) Valid() bool {
	for _, known := range Formats {
		if f == known {
			return true
		}
	}
	return false
}

// Level returns the configured log level.
func (c *Config) Level() log.Level {
	level, _ := log.ParseLevel(c.LogLevel)
	return level
}
