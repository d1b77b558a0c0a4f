package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/l3aro/go-cflow/internal/log"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"Format", cfg.Format, FormatText},
		{"Workers", cfg.Workers, 4},
		{"CacheDir", cfg.CacheDir, ""},
		{"CacheSize", cfg.CacheSize, 64},
		{"LogLevel", cfg.LogLevel, "info"},
		{"JSONLogs", cfg.JSONLogs, false},
		{"OutputDir", cfg.OutputDir, "."},
		{"ShowCode", cfg.ShowCode, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("DefaultConfig().%s = %v, want %v", tt.name, tt.got, tt.expected)
			}
		})
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v, want nil", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(*Config)
		wantErr     bool
		errContains string
	}{
		{name: "defaults", modify: func(*Config) {}},
		{name: "json format", modify: func(c *Config) { c.Format = FormatJSON }},
		{name: "msgpack format", modify: func(c *Config) { c.Format = FormatMsgpack }},
		{
			name:        "invalid format",
			modify:      func(c *Config) { c.Format = "xml" },
			wantErr:     true,
			errContains: "invalid format",
		},
		{
			name:        "zero workers",
			modify:      func(c *Config) { c.Workers = 0 },
			wantErr:     true,
			errContains: "workers must be positive",
		},
		{
			name:        "zero cache size",
			modify:      func(c *Config) { c.CacheSize = 0 },
			wantErr:     true,
			errContains: "cache_size must be positive",
		},
		{
			name:        "bad log level",
			modify:      func(c *Config) { c.LogLevel = "chatty" },
			wantErr:     true,
			errContains: "invalid log_level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("Validate() error = nil, want error")
				}
				if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("Validate() error = %v, want containing %q", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() error = %v, want nil", err)
			}
		})
	}
}

func TestSaveAndLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Format = FormatDOT
	cfg.Workers = 8
	cfg.CacheDir = "/tmp/cflow-cache"
	cfg.ShowCode = false

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("LoadFromFile() = %+v, want %+v", loaded, cfg)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("LoadFromFile() error = nil, want error")
	}
}

func TestLoadFromFileInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("workers: [1, 2"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Fatal("LoadFromFile() error = nil, want parse error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CFLOW_FORMAT", "json")
	t.Setenv("CFLOW_WORKERS", "2")
	t.Setenv("CFLOW_CACHE_SIZE", "not-a-number")
	t.Setenv("CFLOW_LOG_LEVEL", "debug")
	t.Setenv("CFLOW_JSON_LOGS", "yes")
	t.Setenv("CFLOW_SHOW_CODE", "false")

	cfg := DefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Format != FormatJSON {
		t.Errorf("Format = %v, want json", cfg.Format)
	}
	if cfg.Workers != 2 {
		t.Errorf("Workers = %d, want 2", cfg.Workers)
	}
	if cfg.CacheSize != 64 {
		t.Errorf("CacheSize = %d, want unchanged 64", cfg.CacheSize)
	}
	if cfg.Level() != log.DebugLevel {
		t.Errorf("Level() = %v, want DEBUG", cfg.Level())
	}
	if !cfg.JSONLogs {
		t.Error("JSONLogs = false, want true")
	}
	if cfg.ShowCode {
		t.Error("ShowCode = true, want false")
	}
}

func TestLoadPriority(t *testing.T) {
	dir := t.TempDir()
	globalPath := filepath.Join(dir, "global.yaml")
	projectPath := filepath.Join(dir, "project.yaml")

	writeFile(t, globalPath, "workers: 3\nformat: json\ncache_size: 10\n")
	writeFile(t, projectPath, "workers: 5\n")
	t.Setenv("CFLOW_FORMAT", "dot")
	t.Setenv("CFLOW_WORKERS", "7")

	cfg, err := load(globalPath, projectPath)
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}
	if cfg.Workers != 5 {
		t.Errorf("Workers = %d, want project value 5", cfg.Workers)
	}
	if cfg.Format != FormatDOT {
		t.Errorf("Format = %v, want env value dot", cfg.Format)
	}
	if cfg.CacheSize != 10 {
		t.Errorf("CacheSize = %d, want global value 10", cfg.CacheSize)
	}
}

func TestLoadWithoutFiles(t *testing.T) {
	dir := t.TempDir()
	cfg, err := load(filepath.Join(dir, "a.yaml"), filepath.Join(dir, "b.yaml"))
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}
	if *cfg != *DefaultConfig() {
		t.Errorf("load() = %+v, want defaults", cfg)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}
