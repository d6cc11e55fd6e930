package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "negative max pages",
			mutate: func(cfg *Config) {
				cfg.MaxPages = -1
			},
			wantErr: "max pages",
		},
		{
			name: "empty start url",
			mutate: func(cfg *Config) {
				cfg.StartURL = ""
			},
			wantErr: "start URL",
		},
		{
			name: "invalid url format",
			mutate: func(cfg *Config) {
				cfg.StartURL = "http://"
			},
			wantErr: "start URL",
		},
		{
			name: "unsupported scheme",
			mutate: func(cfg *Config) {
				cfg.StartURL = "ftp://books.toscrape.com/"
			},
			wantErr: "http or https",
		},
		{
			name: "negative timeout",
			mutate: func(cfg *Config) {
				cfg.Timeout = -1 * time.Second
			},
			wantErr: "timeout",
		},
		{
			name: "backoff above max",
			mutate: func(cfg *Config) {
				cfg.RetryBackoff = 5 * time.Second
				cfg.RetryBackoffMax = time.Second
			},
			wantErr: "retry backoff",
		},
		{
			name: "unknown format",
			mutate: func(cfg *Config) {
				cfg.OutputFormat = "xml"
			},
			wantErr: "output format",
		},
		{
			name: "zero batch size",
			mutate: func(cfg *Config) {
				cfg.BatchSize = 0
			},
			wantErr: "batch size",
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
	if !cfg.RespectRobotsTxt {
		t.Fatalf("robots.txt should be respected by default")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookcrawl.yaml")
	content := "start_url: http://example.test/\nmax_pages: 3\ndelay: 250ms\noutput_format: jsonl\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StartURL != "http://example.test/" {
		t.Fatalf("start url = %q", cfg.StartURL)
	}
	if cfg.MaxPages != 3 {
		t.Fatalf("max pages = %d, want 3", cfg.MaxPages)
	}
	if cfg.Delay != 250*time.Millisecond {
		t.Fatalf("delay = %s, want 250ms", cfg.Delay)
	}
	if cfg.OutputFormat != "jsonl" {
		t.Fatalf("output format = %q, want jsonl", cfg.OutputFormat)
	}
	if cfg.UserAgent != DefaultConfig().UserAgent {
		t.Fatalf("unset keys should keep defaults")
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookcrawl.yaml")
	if err := os.WriteFile(path, []byte("max_pages: 3\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("BOOKCRAWL_MAX_PAGES", "7")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MaxPages != 7 {
		t.Fatalf("max pages = %d, want env override 7", cfg.MaxPages)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}
