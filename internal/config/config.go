// Package config loads application configuration from file, environment,
// and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/viper"

	"github.com/framefeed/framefeed/internal/pathutil"
)

// Config holds all application configuration
type Config struct {
	DataDir   string          `mapstructure:"data_dir"`
	CacheDir  string          `mapstructure:"cache_dir"`
	Download  DownloadConfig  `mapstructure:"download"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// DownloadConfig controls the download pipeline.
type DownloadConfig struct {
	// Concurrency is the number of simultaneous transfers per batch.
	// Kept low so a single share server is not overwhelmed.
	Concurrency    int           `mapstructure:"concurrency"`
	Retries        int           `mapstructure:"retries"`
	BackoffStep    time.Duration `mapstructure:"backoff_step"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
}

// DiscoveryConfig controls the DNS-SD browse session.
type DiscoveryConfig struct {
	ServiceType string        `mapstructure:"service_type"`
	Domain      string        `mapstructure:"domain"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		DataDir:  defaultDataDir(),
		CacheDir: defaultCacheDir(),
		Download: DownloadConfig{
			Concurrency:    4,
			Retries:        2,
			BackoffStep:    2 * time.Second,
			ConnectTimeout: 10 * time.Second,
			ReadTimeout:    30 * time.Second,
		},
		Discovery: DiscoveryConfig{
			ServiceType: "_smb._tcp",
			Domain:      "local.",
			Timeout:     10 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func defaultDataDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "framefeed")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "framefeed")
	}
}

func defaultCacheDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "framefeed", "photos")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".cache", "framefeed", "photos")
	}
}

func defaultConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "framefeed")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "framefeed")
	}
}

// Load reads configuration from cfgFile (or the default search path when
// empty), applies environment overrides, and fills in defaults.
func Load(cfgFile string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(defaultConfigDir())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("FRAMEFEED")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// An explicit file that is missing is an error; the default
			// search path falling through to defaults is not.
			if cfgFile != "" || !os.IsNotExist(err) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	// Directories may be written with ~ or relatively; resolve them once
	// here so every store sees the same absolute path.
	dataDir, err := pathutil.ResolveAbsolutePath(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("error resolving data_dir: %w", err)
	}
	cfg.DataDir = dataDir
	cacheDir, err := pathutil.ResolveAbsolutePath(cfg.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("error resolving cache_dir: %w", err)
	}
	cfg.CacheDir = cacheDir

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Download.Concurrency < 1 {
		return fmt.Errorf("download.concurrency must be at least 1, got %d", c.Download.Concurrency)
	}
	if c.Download.Retries < 0 {
		return fmt.Errorf("download.retries must not be negative, got %d", c.Download.Retries)
	}
	if c.Download.ConnectTimeout <= 0 || c.Download.ReadTimeout <= 0 {
		return fmt.Errorf("download timeouts must be positive")
	}
	if c.Discovery.ServiceType == "" {
		return fmt.Errorf("discovery.service_type must not be empty")
	}
	return nil
}
