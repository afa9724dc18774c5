package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

var (
	legitHosts = []string{"www.example.com", "github.com", "docs.python.org", "news.ycombinator.com", "www.wikipedia.org"}
	phishHosts = []string{"secure-login.paypal.com.verify.xyz", "192.168.10.12", "account-update.bank.example.tk", "signin.microsoft.com.auth-check.ru"}
)

func legitURL(i int) string {
	return fmt.Sprintf("https://%s/page%d", legitHosts[i%len(legitHosts)], i%3)
}

func phishURL(i int) string {
	return fmt.Sprintf("http://%s/login.php?id=%d&session=%d@x", phishHosts[i%len(phishHosts)], 1000+i*37, 99887766+i)
}

// writeTrainingCSV writes a dataset in the layout of the training data: every
// lexical field followed by the label (1 legitimate, 0 phishing). Each name in extra
// adds a leading numeric column holding the row number.
func writeTrainingCSV(t *testing.T, path string, n int, extra ...string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	w := csv.NewWriter(f)

	header := append(append(append([]string(nil), extra...), LexicalSchema()...), "label")
	w.Write(header)

	rowNum := 0
	writeRow := func(url, label string) {
		tbl, err := ExtractFeatures(url)
		if err != nil {
			t.Fatalf("%s: %v", url, err)
		}
		row := make([]string, 0, len(header))
		rowNum++
		for range extra {
			row = append(row, strconv.Itoa(rowNum))
		}
		for _, c := range tbl.Columns {
			switch c.Kind {
			case KindText:
				row = append(row, c.Text[0])
			case KindBool:
				if c.Num[0] != 0 {
					row = append(row, "True")
				} else {
					row = append(row, "False")
				}
			default:
				row = append(row, strconv.FormatFloat(c.Num[0], 'g', -1, 64))
			}
		}
		w.Write(append(row, label))
	}
	for i := 0; i < n; i++ {
		writeRow(legitURL(i), "1")
		writeRow(phishURL(i), "0")
	}
	w.Flush()
	if err := w.Error(); err != nil {
		t.Fatal(err)
	}
}

// trainFixture trains a small model in a temp directory and returns its config.
func trainFixture(t *testing.T) (*Config, *TrainResult) {
	t.Helper()
	cfg := trainConfig(t)
	writeTrainingCSV(t, cfg.Paths.Dataset, 30)
	res, err := NewTrainer(cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return cfg, res
}

func trainConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Paths.Dataset = filepath.Join(dir, "data.csv")
	cfg.Paths.Model = filepath.Join(dir, "models", "model.gob")
	cfg.Paths.SelectedFeatures = filepath.Join(dir, "selected_features.txt")
	cfg.Paths.ReportDir = filepath.Join(dir, "reports")
	cfg.Training.TopK = 8
	cfg.Training.TestSize = 0.25
	cfg.Training.CVFolds = 3
	cfg.Training.Workers = 2
	cfg.Training.Grid = GridConfig{NEstimators: []int{5, 10}, MaxDepth: []int{0}, MinSamplesSplit: []int{2}}
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestTrainerRun(t *testing.T) {
	cfg, res := trainFixture(t)

	if res.Rows != 60 || res.TestRows != 15 || res.TrainRows != 45 {
		t.Errorf("rows = %d train %d test %d", res.Rows, res.TrainRows, res.TestRows)
	}
	if len(res.Artifact.Features) != 8 {
		t.Errorf("selected %d features, want 8", len(res.Artifact.Features))
	}
	if err := SelectedFeatures(res.Artifact.Features).Validate(AugmentedSchema()); err != nil {
		t.Errorf("selected features outside the schema: %v", err)
	}
	if len(res.Artifact.CVScores) != 3 {
		t.Errorf("CV scores = %v", res.Artifact.CVScores)
	}
	if len(res.Search.Candidates) != 2 {
		t.Errorf("candidates = %d", len(res.Search.Candidates))
	}
	if res.Report.Accuracy < 0.9 {
		t.Errorf("held-out accuracy = %v on separable data", res.Report.Accuracy)
	}

	for _, p := range []string{cfg.Paths.Model, cfg.Paths.SelectedFeatures, res.ReportPath} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("artifact %s: %v", p, err)
		}
	}
	saved, err := LoadSelectedFeatures(cfg.Paths.SelectedFeatures)
	if err != nil {
		t.Fatal(err)
	}
	if !saved.Equal(res.Artifact.Features) {
		t.Errorf("saved features %v, model features %v", saved, res.Artifact.Features)
	}
}

func TestTrainerMissingDataset(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Paths.Dataset = filepath.Join(t.TempDir(), "missing.csv")
	_, err := NewTrainer(cfg).Run(context.Background())
	if !errors.Is(err, ErrPersistence) {
		t.Errorf("err = %v", err)
	}
}

func TestTrainerNeedsURLColumns(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Paths.Dataset = filepath.Join(dir, "data.csv")
	os.WriteFile(cfg.Paths.Dataset, []byte("a,label\n1,0\n2,1\n"), 0644)
	_, err := NewTrainer(cfg).Run(context.Background())
	if !errors.Is(err, ErrSchema) {
		t.Errorf("err = %v", err)
	}
}

func TestTrainerIgnoresUnknownColumns(t *testing.T) {
	cfg := trainConfig(t)
	cfg.Training.TopK = 40
	// RowID is numeric and non-negative, so chi2 would score it like any feature.
	writeTrainingCSV(t, cfg.Paths.Dataset, 30, "RowID")

	res, err := NewTrainer(cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, name := range res.Artifact.Features {
		if name == "RowID" {
			t.Fatalf("selected features include RowID: %v", res.Artifact.Features)
		}
	}
	if _, ok := res.Scores["RowID"]; ok {
		t.Error("RowID was scored")
	}

	p, err := NewPredictor(cfg)
	if err != nil {
		t.Fatalf("NewPredictor after training: %v", err)
	}
	if _, err := p.Predict(legitURL(1)); err != nil {
		t.Fatal(err)
	}
}

func TestTrainerKeepsArtifactsOnFailedSave(t *testing.T) {
	cfg, _ := trainFixture(t)
	before, err := os.ReadFile(cfg.Paths.SelectedFeatures)
	if err != nil {
		t.Fatal(err)
	}

	// The model directory cannot be created under a regular file.
	cfg.Training.TopK = 3
	cfg.Paths.Model = filepath.Join(cfg.Paths.SelectedFeatures, "model.gob")
	if _, err := NewTrainer(cfg).Run(context.Background()); !errors.Is(err, ErrPersistence) {
		t.Fatalf("err = %v, want ErrPersistence", err)
	}

	after, err := os.ReadFile(cfg.Paths.SelectedFeatures)
	if err != nil {
		t.Fatal(err)
	}
	if string(after) != string(before) {
		t.Errorf("feature list replaced after a failed run:\n%s\nwas\n%s", after, before)
	}
	matches, _ := filepath.Glob(cfg.Paths.SelectedFeatures + ".*.tmp")
	if len(matches) != 0 {
		t.Errorf("temp files left behind: %v", matches)
	}
}
