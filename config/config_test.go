package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aluiziolira/go-bookbase/models"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "empty base url",
			mutate: func(cfg *Config) {
				cfg.BaseURL = ""
			},
			wantErr: "base URL",
		},
		{
			name: "invalid url format",
			mutate: func(cfg *Config) {
				cfg.BaseURL = "http://"
			},
			wantErr: "base URL",
		},
		{
			name: "max results above remote limit",
			mutate: func(cfg *Config) {
				cfg.MaxResults = MaxResultsLimit + 1
			},
			wantErr: "max results",
		},
		{
			name: "zero max results",
			mutate: func(cfg *Config) {
				cfg.MaxResults = 0
			},
			wantErr: "max results",
		},
		{
			name: "negative timeout",
			mutate: func(cfg *Config) {
				cfg.Timeout = -1 * time.Second
			},
			wantErr: "timeout",
		},
		{
			name: "negative in-flight",
			mutate: func(cfg *Config) {
				cfg.MaxInFlight = -1
			},
			wantErr: "in-flight",
		},
		{
			name: "unknown mode",
			mutate: func(cfg *Config) {
				cfg.Mode = "grid"
			},
			wantErr: "mode",
		},
		{
			name: "browse without categories",
			mutate: func(cfg *Config) {
				cfg.Categories = nil
			},
			wantErr: "category",
		},
		{
			name: "category without query",
			mutate: func(cfg *Config) {
				cfg.Categories = []models.CategoryQuery{{Label: "Fantasy", Query: " "}}
			},
			wantErr: "category 0",
		},
		{
			name: "search without default query",
			mutate: func(cfg *Config) {
				cfg.Mode = ModeSearch
				cfg.DefaultQuery = "  "
			},
			wantErr: "default query",
		},
		{
			name: "unknown driver",
			mutate: func(cfg *Config) {
				cfg.DatabaseDriver = "mysql"
			},
			wantErr: "database driver",
		},
		{
			name: "bad output format",
			mutate: func(cfg *Config) {
				cfg.OutputFormat = "xml"
			},
			wantErr: "output format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestFromViperReadsFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bookbase.yaml")
	content := `
mode: search
default_query: dune
max_in_flight: 3
database:
  driver: sqlite
  dsn: "file::memory:"
categories:
  - label: Poetry
    query: poetry
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("BOOKBASE_MAX_RESULTS", "12")

	v, err := NewViper(path)
	if err != nil {
		t.Fatalf("new viper: %v", err)
	}
	cfg, err := FromViper(v)
	if err != nil {
		t.Fatalf("from viper: %v", err)
	}

	if cfg.Mode != ModeSearch || cfg.DefaultQuery != "dune" {
		t.Fatalf("mode/query = %q/%q, want search/dune", cfg.Mode, cfg.DefaultQuery)
	}
	if cfg.MaxInFlight != 3 {
		t.Fatalf("max in-flight = %d, want 3", cfg.MaxInFlight)
	}
	if cfg.MaxResults != 12 {
		t.Fatalf("max results = %d, want 12 from env", cfg.MaxResults)
	}
	if cfg.DatabaseDSN != "file::memory:" {
		t.Fatalf("dsn = %q", cfg.DatabaseDSN)
	}
	if len(cfg.Categories) != 1 || cfg.Categories[0].Label != "Poetry" {
		t.Fatalf("categories = %+v", cfg.Categories)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("loaded config should validate: %v", err)
	}
}

func TestEnvInt(t *testing.T) {
	t.Setenv("BOOKBASE_TEST_INT", "42")
	value, ok, err := EnvInt("BOOKBASE_TEST_INT")
	if err != nil || !ok || value != 42 {
		t.Fatalf("EnvInt = %d, %v, %v", value, ok, err)
	}

	t.Setenv("BOOKBASE_TEST_INT", "forty")
	if _, _, err := EnvInt("BOOKBASE_TEST_INT"); err == nil {
		t.Fatalf("expected parse error")
	}

	if _, ok, _ := EnvInt("BOOKBASE_TEST_UNSET"); ok {
		t.Fatalf("unset variable should not be ok")
	}
}
