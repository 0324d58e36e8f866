package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the non-secret application configuration. Credentials
// and account numbers never live here; they belong to the encrypted
// profile.
type Config struct {
	DataDir string `yaml:"data_dir"`
	API     struct {
		ListenAddr     string   `yaml:"listen_addr"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"api"`
	Schedule struct {
		MonthlyCron string `yaml:"monthly_cron"`
	} `yaml:"schedule"`
	Nisab struct {
		URLs        []string `yaml:"urls"`
		FallbackBAM string   `yaml:"fallback_bam"`
	} `yaml:"nisab"`
	Currency struct {
		Reference string            `yaml:"reference"`
		Rates     map[string]string `yaml:"rates"`
	} `yaml:"currency"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	LogLevel string `yaml:"log_level"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("ZAKAT_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("ZAKAT_LISTEN_ADDR"); v != "" {
		cfg.API.ListenAddr = v
	}
	if v := os.Getenv("ZAKAT_MONTHLY_CRON"); v != "" {
		cfg.Schedule.MonthlyCron = v
	}
	if v := os.Getenv("ZAKAT_NISAB_FALLBACK"); v != "" {
		cfg.Nisab.FallbackBAM = v
	}
	if v := os.Getenv("ZAKAT_SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("ZAKAT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	// Defaults
	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".zakatsentinel")
	}
	if cfg.API.ListenAddr == "" {
		cfg.API.ListenAddr = "127.0.0.1:8432"
	}
	if cfg.Schedule.MonthlyCron == "" {
		// 10:00 on the 1st of every month.
		cfg.Schedule.MonthlyCron = "0 0 10 1 * *"
	}
	if cfg.Nisab.FallbackBAM == "" {
		cfg.Nisab.FallbackBAM = "24624.0"
	}
	if cfg.Currency.Reference == "" {
		cfg.Currency.Reference = "BAM"
	}
	if cfg.Currency.Rates == nil {
		cfg.Currency.Rates = map[string]string{"EUR": "1.955830"}
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = filepath.Join(cfg.DataDir, "audit.db")
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.Currency.Reference == "" {
		return fmt.Errorf("currency.reference is required")
	}
	if c.Nisab.FallbackBAM == "" {
		return fmt.Errorf("nisab.fallback_bam is required")
	}
	return nil
}

// ProfilePath is the encrypted credentials profile location.
func (c *Config) ProfilePath() string {
	return filepath.Join(c.DataDir, "profile.enc")
}

// LedgerPath is the encrypted balance history location.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.DataDir, "history.enc")
}

// SchedulerStatePath is the plaintext last-run state file. It carries
// no financial data.
func (c *Config) SchedulerStatePath() string {
	return filepath.Join(c.DataDir, "scheduler_state.json")
}
