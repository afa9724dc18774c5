package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Training.TopK != 40 || cfg.Training.TestSize != 0.2 || cfg.Training.Seed != 42 || cfg.Training.CVFolds != 5 {
		t.Errorf("training defaults = %+v", cfg.Training)
	}
	if cfg.Paths.SelectedFeatures != "selected_features.txt" {
		t.Errorf("selected features path = %s", cfg.Paths.SelectedFeatures)
	}
	want := GridConfig{
		NEstimators:     []int{50, 100},
		MaxDepth:        []int{0, 10, 20},
		MinSamplesSplit: []int{2, 5, 10},
	}
	if !reflect.DeepEqual(cfg.Training.Grid, want) {
		t.Errorf("grid = %+v", cfg.Training.Grid)
	}
	if cfg.Dataset.PhishingLabel != "0" {
		t.Errorf("phishing label = %q", cfg.Dataset.PhishingLabel)
	}
	if cfg.RequestTimeout() != 5*time.Second {
		t.Errorf("timeout = %v", cfg.RequestTimeout())
	}
}

func TestLoadConfigYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
paths:
  dataset: data/urls.csv
training:
  top_k: 10
  grid:
    n_estimators: [20]
    max_depth: [5]
    min_samples_split: [4]
server:
  timeout: 250ms
  allowed_clients: ["10.0.0.0/8"]
  rate_limit:
    enabled: true
    client_qps: 5
    base_delay: bogus
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Paths.Dataset != "data/urls.csv" || cfg.Training.TopK != 10 {
		t.Errorf("cfg = %+v", cfg)
	}
	// Unset sections keep their defaults.
	if cfg.Training.CVFolds != 5 || cfg.Paths.Model != "models/random_forest_model.gob" {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Training.Grid.NEstimators, []int{20}) {
		t.Errorf("grid = %+v", cfg.Training.Grid)
	}
	if cfg.RequestTimeout() != 250*time.Millisecond {
		t.Errorf("timeout = %v", cfg.RequestTimeout())
	}
	rl := cfg.Server.RateLimit
	if !rl.Enabled || rl.ClientQPS != 5 || rl.parsedBaseDelay != 10*time.Millisecond {
		t.Errorf("rate limit = %+v", rl)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("PHISHGUARD_TOP_K", "12")
	t.Setenv("PHISHGUARD_MODEL", "/tmp/m.gob")
	t.Setenv("PHISHGUARD_PHISHING_LABEL", "phish")
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Training.TopK != 12 || cfg.Paths.Model != "/tmp/m.gob" || cfg.Dataset.PhishingLabel != "phish" {
		t.Errorf("overrides not applied: %+v", cfg)
	}

	t.Setenv("PHISHGUARD_TOP_K", "many")
	if _, err := LoadConfig(""); err == nil {
		t.Error("non-numeric override accepted")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"top_k", func(c *Config) { c.Training.TopK = 0 }},
		{"test_size", func(c *Config) { c.Training.TestSize = 1 }},
		{"folds", func(c *Config) { c.Training.CVFolds = 1 }},
		{"empty grid", func(c *Config) { c.Training.Grid.MaxDepth = nil }},
		{"estimators", func(c *Config) { c.Training.Grid.NEstimators = []int{0} }},
		{"depth", func(c *Config) { c.Training.Grid.MaxDepth = []int{-1} }},
		{"split", func(c *Config) { c.Training.Grid.MinSamplesSplit = []int{1} }},
		{"paths", func(c *Config) { c.Paths.Model = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("invalid config accepted")
			}
		})
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config rejected: %v", err)
	}
}

func TestLoadConfigBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("training: [unclosed"), 0644)
	if _, err := LoadConfig(path); err == nil {
		t.Error("malformed YAML accepted")
	}
}
