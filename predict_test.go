package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestPredictorRoundTrip(t *testing.T) {
	cfg, res := trainFixture(t)
	p, err := NewPredictor(cfg)
	if err != nil {
		t.Fatalf("NewPredictor: %v", err)
	}
	if p.Model().RunID != res.Artifact.RunID {
		t.Errorf("loaded run %s, trained run %s", p.Model().RunID, res.Artifact.RunID)
	}

	legit, err := p.Predict(legitURL(4))
	if err != nil {
		t.Fatal(err)
	}
	if legit.Label != "1" || legit.Phishing {
		t.Errorf("legitimate URL classified as %+v", legit)
	}
	phish, err := p.Predict(phishURL(2))
	if err != nil {
		t.Fatal(err)
	}
	if phish.Label != "0" || !phish.Phishing {
		t.Errorf("phishing URL classified as %+v", phish)
	}
	if phish.Probability < 0.5 || phish.Probability > 1 {
		t.Errorf("probability = %v", phish.Probability)
	}

	// Inference must not depend on anything but the URL.
	again, _ := p.Predict(legitURL(4))
	if *again != *legit {
		t.Errorf("repeated prediction differs: %+v vs %+v", again, legit)
	}
}

func TestPredictorFeaturesMatchSelection(t *testing.T) {
	cfg, res := trainFixture(t)
	p, err := NewPredictor(cfg)
	if err != nil {
		t.Fatal(err)
	}
	row, err := p.Features("https://www.example.com/login?user=1")
	if err != nil {
		t.Fatal(err)
	}
	if len(row) != len(res.Artifact.Features) {
		t.Errorf("row has %d values, model expects %d", len(row), len(res.Artifact.Features))
	}
}

func TestPredictBatch(t *testing.T) {
	cfg, _ := trainFixture(t)
	p, err := NewPredictor(cfg)
	if err != nil {
		t.Fatal(err)
	}
	urls := []string{legitURL(0), "http://[broken", phishURL(1)}
	results, err := p.PredictBatch(context.Background(), urls)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d", len(results))
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Errorf("unexpected errors: %v, %v", results[0].Err, results[2].Err)
	}
	if !errors.Is(results[1].Err, ErrMalformedURL) {
		t.Errorf("malformed URL err = %v", results[1].Err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.PredictBatch(ctx, urls); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled batch err = %v", err)
	}
}

func TestNewPredictorMismatchedArtifacts(t *testing.T) {
	cfg, res := trainFixture(t)

	other := SelectedFeatures{FieldURLLength, FieldEntropy}
	if err := other.Save(cfg.Paths.SelectedFeatures); err != nil {
		t.Fatal(err)
	}
	if _, err := NewPredictor(cfg); !errors.Is(err, ErrSchema) {
		t.Errorf("mismatched feature list: err = %v", err)
	}

	unknown := SelectedFeatures{"NotAFeature"}
	unknown.Save(cfg.Paths.SelectedFeatures)
	if _, err := NewPredictor(cfg); !errors.Is(err, ErrSchema) {
		t.Errorf("unknown feature: err = %v", err)
	}

	SelectedFeatures(res.Artifact.Features).Save(cfg.Paths.SelectedFeatures)
	os.WriteFile(cfg.Paths.Model, []byte("not a model"), 0644)
	if _, err := NewPredictor(cfg); !errors.Is(err, ErrPersistence) {
		t.Errorf("corrupt model: err = %v", err)
	}
}

func TestNewPredictorMissingArtifacts(t *testing.T) {
	cfg := DefaultConfig()
	dir := t.TempDir()
	cfg.Paths.SelectedFeatures = filepath.Join(dir, "none.txt")
	cfg.Paths.Model = filepath.Join(dir, "none.gob")
	if _, err := NewPredictor(cfg); !errors.Is(err, ErrPersistence) {
		t.Errorf("err = %v", err)
	}
}

func TestRegisteredDomain(t *testing.T) {
	tests := []struct {
		netloc string
		want   string
	}{
		{"www.example.com", "example.com"},
		{"user:pw@Login.Example.co.uk:8443", "example.co.uk"},
		{"192.168.0.1", ""},
		{"[::1]:80", ""},
		{"com", ""},
		{"", ""},
		{"example.com.", "example.com"},
	}
	for _, tt := range tests {
		if got := registeredDomain(tt.netloc); got != tt.want {
			t.Errorf("registeredDomain(%q) = %q, want %q", tt.netloc, got, tt.want)
		}
	}
}

func TestModelArtifactRoundTrip(t *testing.T) {
	x, y := separable(10)
	forest, err := FitForest(context.Background(), x, y, 2, ForestParams{NEstimators: 3, Seed: 5}, 1)
	if err != nil {
		t.Fatal(err)
	}
	a := NewModelArtifact(forest, SelectedFeatures{"f0", "f1"}, []string{"0", "1"})
	a.TestAccuracy = 0.9
	path := filepath.Join(t.TempDir(), "m.gob")
	if err := a.Save(path); err != nil {
		t.Fatal(err)
	}
	b, err := LoadModel(path)
	if err != nil {
		t.Fatal(err)
	}
	if b.RunID != a.RunID || b.TestAccuracy != 0.9 || len(b.Forest.Trees) != 3 {
		t.Errorf("loaded %+v", b)
	}
	if got, want := b.Forest.PredictProba([]float64{1, 1}), a.Forest.PredictProba([]float64{1, 1}); got[0] != want[0] {
		t.Errorf("loaded forest predicts %v, saved %v", got, want)
	}

	a.Features = []string{"f0"}
	a.Save(path)
	if _, err := LoadModel(path); !errors.Is(err, ErrPersistence) {
		t.Errorf("shape mismatch: err = %v", err)
	}
}
