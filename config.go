/*
File: config.go
Version: 4.0.0
Description: Configuration structures and loading for training, inference and the
             prediction service. YAML file, optional .env file, PHISHGUARD_* overrides.
             The loaded *Config is passed explicitly to every harness component.
*/

package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// --- Configuration Structures ---

type Config struct {
	Paths    PathsConfig    `yaml:"paths"`
	Dataset  DatasetConfig  `yaml:"dataset"`
	Training TrainingConfig `yaml:"training"`
	Logging  LoggingConfig  `yaml:"logging"`
	Server   ServerConfig   `yaml:"server"`
}

type PathsConfig struct {
	Dataset          string `yaml:"dataset"`
	Model            string `yaml:"model"`
	SelectedFeatures string `yaml:"selected_features"`
	ReportDir        string `yaml:"report_dir"` // Empty disables the xlsx report
}

type DatasetConfig struct {
	LabelColumn string `yaml:"label_column"`
	Delimiter   string `yaml:"delimiter"`
	CacheDir    string `yaml:"cache_dir"` // Parsed dataset cache (gob), empty disables

	// PhishingLabel is the raw label value meaning "phishing" (PhiUSIIL: 1 = legitimate).
	PhishingLabel string `yaml:"phishing_label"`
}

type TrainingConfig struct {
	TopK     int        `yaml:"top_k"`
	TestSize float64    `yaml:"test_size"`
	Seed     uint64     `yaml:"seed"`
	CVFolds  int        `yaml:"cv_folds"`
	Workers  int        `yaml:"workers"` // Concurrent fits; 0 = NumCPU
	Grid     GridConfig `yaml:"grid"`
}

// GridConfig is the hyperparameter grid. A max_depth of 0 means unlimited.
type GridConfig struct {
	NEstimators     []int `yaml:"n_estimators"`
	MaxDepth        []int `yaml:"max_depth"`
	MinSamplesSplit []int `yaml:"min_samples_split"`
}

type LoggingConfig struct {
	Level   string   `yaml:"level"`
	Format  string   `yaml:"format"`
	Outputs []string `yaml:"outputs"`

	File struct {
		Path        string `yaml:"path"`
		Permissions uint32 `yaml:"permissions"`
	} `yaml:"file"`
}

type ServerConfig struct {
	ListenAddr     string          `yaml:"listen_addr"`
	Timeout        string          `yaml:"timeout"`
	MaxURLLength   int             `yaml:"max_url_length"`
	CacheSize      int             `yaml:"cache_size"`
	AllowedClients []string        `yaml:"allowed_clients"` // CIDRs; empty allows everyone
	RateLimit      RateLimitConfig `yaml:"rate_limit"`

	parsedTimeout time.Duration
}

type RateLimitConfig struct {
	Enabled           bool   `yaml:"enabled"`
	ClientQPS         int    `yaml:"client_qps"`
	ClientBurst       int    `yaml:"client_burst"`
	MaxGoroutines     int    `yaml:"max_goroutines"`
	HardMaxGoroutines int    `yaml:"hard_max_goroutines"`
	BaseDelay         string `yaml:"base_delay"`
	MaxDelay          string `yaml:"max_delay"`
	CleanupInterval   string `yaml:"cleanup_interval"`
	ClientExpiration  string `yaml:"client_expiration"`

	parsedBaseDelay        time.Duration
	parsedMaxDelay         time.Duration
	parsedCleanupInterval  time.Duration
	parsedClientExpiration time.Duration
}

// DefaultConfig mirrors the layout of the training project: processed dataset under
// data/, model under models/, reports under reports/.
func DefaultConfig() *Config {
	cfg := &Config{
		Paths: PathsConfig{
			Dataset:          "data/processed/PhiUSIIL_Phishing_URL_Dataset.csv",
			Model:            "models/random_forest_model.gob",
			SelectedFeatures: "selected_features.txt",
			ReportDir:        "reports/",
		},
		Dataset: DatasetConfig{
			LabelColumn:   "label",
			Delimiter:     ",",
			PhishingLabel: "0",
		},
		Training: TrainingConfig{
			TopK:     40,
			TestSize: 0.2,
			Seed:     42,
			CVFolds:  5,
			Grid: GridConfig{
				NEstimators:     []int{50, 100},
				MaxDepth:        []int{0, 10, 20},
				MinSamplesSplit: []int{2, 5, 10},
			},
		},
		Logging: LoggingConfig{
			Level:   "INFO",
			Format:  "text",
			Outputs: []string{"console"},
		},
		Server: ServerConfig{
			ListenAddr:   "127.0.0.1:8080",
			Timeout:      "5s",
			MaxURLLength: 8192,
			CacheSize:    65536,
			RateLimit: RateLimitConfig{
				ClientQPS:         50,
				ClientBurst:       100,
				MaxGoroutines:     2000,
				HardMaxGoroutines: 5000,
				BaseDelay:         "10ms",
				MaxDelay:          "500ms",
				CleanupInterval:   "1m",
				ClientExpiration:  "5m",
			},
		},
	}
	return cfg
}

// --- Configuration Loading ---

// LoadConfig builds the configuration from defaults, the YAML file at path (skipped
// when path is empty or the file does not exist), a .env file in the working
// directory and PHISHGUARD_* environment variables, in that order.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
			LogWarn("[CONFIG] %s not found, using defaults", path)
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			LogWarn("[CONFIG] Failed to load .env: %v", err)
		}
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	str := map[string]*string{
		"PHISHGUARD_DATASET":           &cfg.Paths.Dataset,
		"PHISHGUARD_MODEL":             &cfg.Paths.Model,
		"PHISHGUARD_SELECTED_FEATURES": &cfg.Paths.SelectedFeatures,
		"PHISHGUARD_REPORT_DIR":        &cfg.Paths.ReportDir,
		"PHISHGUARD_LABEL_COLUMN":      &cfg.Dataset.LabelColumn,
		"PHISHGUARD_CACHE_DIR":         &cfg.Dataset.CacheDir,
		"PHISHGUARD_PHISHING_LABEL":    &cfg.Dataset.PhishingLabel,
		"PHISHGUARD_LOG_LEVEL":         &cfg.Logging.Level,
		"PHISHGUARD_LISTEN_ADDR":       &cfg.Server.ListenAddr,
	}
	for key, dst := range str {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"PHISHGUARD_TOP_K":    &cfg.Training.TopK,
		"PHISHGUARD_CV_FOLDS": &cfg.Training.CVFolds,
		"PHISHGUARD_WORKERS":  &cfg.Training.Workers,
	}
	for key, dst := range ints {
		v, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s=%q: %w", key, v, err)
		}
		*dst = n
	}
	return nil
}

func (cfg *Config) fillDefaults() {
	if cfg.Dataset.LabelColumn == "" {
		cfg.Dataset.LabelColumn = "label"
	}
	if cfg.Dataset.Delimiter == "" {
		cfg.Dataset.Delimiter = ","
	}
	if cfg.Dataset.PhishingLabel == "" {
		cfg.Dataset.PhishingLabel = "0"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}
	if len(cfg.Logging.Outputs) == 0 {
		cfg.Logging.Outputs = []string{"console"}
	}
	if cfg.Server.MaxURLLength <= 0 {
		cfg.Server.MaxURLLength = 8192
	}

	cfg.Server.parsedTimeout = parseDurationOr("server.timeout", cfg.Server.Timeout, 5*time.Second)
	rl := &cfg.Server.RateLimit
	rl.parsedBaseDelay = parseDurationOr("rate_limit.base_delay", rl.BaseDelay, 10*time.Millisecond)
	rl.parsedMaxDelay = parseDurationOr("rate_limit.max_delay", rl.MaxDelay, 500*time.Millisecond)
	rl.parsedCleanupInterval = parseDurationOr("rate_limit.cleanup_interval", rl.CleanupInterval, time.Minute)
	rl.parsedClientExpiration = parseDurationOr("rate_limit.client_expiration", rl.ClientExpiration, 5*time.Minute)
	if rl.ClientBurst <= 0 {
		rl.ClientBurst = rl.ClientQPS
	}
	if rl.HardMaxGoroutines < rl.MaxGoroutines {
		rl.HardMaxGoroutines = rl.MaxGoroutines
	}
}

func parseDurationOr(field, value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		LogWarn("[CONFIG] Invalid %s '%s', defaulting to %v", field, value, def)
		return def
	}
	return d
}

// Validate checks the training parameters that would otherwise fail deep inside a run.
func (cfg *Config) Validate() error {
	t := cfg.Training
	if t.TopK < 1 {
		return fmt.Errorf("training.top_k must be >= 1, got %d", t.TopK)
	}
	if t.TestSize <= 0 || t.TestSize >= 1 {
		return fmt.Errorf("training.test_size must be in (0,1), got %v", t.TestSize)
	}
	if t.CVFolds < 2 {
		return fmt.Errorf("training.cv_folds must be >= 2, got %d", t.CVFolds)
	}
	if len(t.Grid.NEstimators) == 0 || len(t.Grid.MaxDepth) == 0 || len(t.Grid.MinSamplesSplit) == 0 {
		return fmt.Errorf("training.grid: every parameter needs at least one value")
	}
	for _, n := range t.Grid.NEstimators {
		if n < 1 {
			return fmt.Errorf("training.grid.n_estimators: %d is not positive", n)
		}
	}
	for _, d := range t.Grid.MaxDepth {
		if d < 0 {
			return fmt.Errorf("training.grid.max_depth: %d is negative", d)
		}
	}
	for _, m := range t.Grid.MinSamplesSplit {
		if m < 2 {
			return fmt.Errorf("training.grid.min_samples_split: %d is below 2", m)
		}
	}
	if cfg.Paths.Model == "" || cfg.Paths.SelectedFeatures == "" {
		return fmt.Errorf("paths.model and paths.selected_features are required")
	}
	return nil
}

// RequestTimeout is the per-request deadline of the prediction service.
func (cfg *Config) RequestTimeout() time.Duration {
	if cfg.Server.parsedTimeout == 0 {
		return 5 * time.Second
	}
	return cfg.Server.parsedTimeout
}
