package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Download.Concurrency != 4 {
		t.Errorf("Expected default concurrency 4, got %d", cfg.Download.Concurrency)
	}
	if cfg.Download.ConnectTimeout != 10*time.Second {
		t.Errorf("Expected connect timeout 10s, got %v", cfg.Download.ConnectTimeout)
	}
	if cfg.Download.ReadTimeout != 30*time.Second {
		t.Errorf("Expected read timeout 30s, got %v", cfg.Download.ReadTimeout)
	}
	if cfg.Discovery.ServiceType != "_smb._tcp" {
		t.Errorf("Expected service type _smb._tcp, got %s", cfg.Discovery.ServiceType)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config must validate: %v", err)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("download:\n  concurrency: 2\n  retries: 5\ndiscovery:\n  service_type: _webdav._tcp\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Download.Concurrency != 2 {
		t.Errorf("Expected concurrency 2, got %d", cfg.Download.Concurrency)
	}
	if cfg.Download.Retries != 5 {
		t.Errorf("Expected retries 5, got %d", cfg.Download.Retries)
	}
	if cfg.Discovery.ServiceType != "_webdav._tcp" {
		t.Errorf("Expected service type override, got %s", cfg.Discovery.ServiceType)
	}
	// Untouched keys keep defaults.
	if cfg.Download.ReadTimeout != 30*time.Second {
		t.Errorf("Expected default read timeout, got %v", cfg.Download.ReadTimeout)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(c *Config) {}, true},
		{"zero concurrency", func(c *Config) { c.Download.Concurrency = 0 }, false},
		{"negative retries", func(c *Config) { c.Download.Retries = -1 }, false},
		{"zero read timeout", func(c *Config) { c.Download.ReadTimeout = 0 }, false},
		{"empty service type", func(c *Config) { c.Discovery.ServiceType = "" }, false},
	}
	for _, tt := range tests {
		cfg := Default()
		tt.mutate(cfg)
		err := cfg.Validate()
		if tt.ok && err != nil {
			t.Errorf("%s: unexpected error %v", tt.name, err)
		}
		if !tt.ok && err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}
}
