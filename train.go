/*
File: train.go
Version: 1.3.0
Description: Training pipeline: dataset -> augmentation -> chi2 selection -> split ->
             grid search -> held-out evaluation -> cross-validation -> artifacts.
*/

package main

import (
	"context"
	"fmt"
	"time"
)

// Trainer runs the training pipeline described by a Config.
type Trainer struct {
	cfg *Config
}

func NewTrainer(cfg *Config) *Trainer {
	return &Trainer{cfg: cfg}
}

// TrainResult is everything a training run produced.
type TrainResult struct {
	Artifact  *ModelArtifact
	Search    *GridSearchResult
	Report    *ClassificationReport
	Scores    map[string]float64
	Dataset   string
	Rows      int
	TrainRows int
	TestRows  int

	ModelPath    string
	FeaturesPath string
	ReportPath   string
	Elapsed      time.Duration
}

// Run trains, evaluates and persists a model. Artifacts are written only after every
// step succeeded.
func (t *Trainer) Run(ctx context.Context) (*TrainResult, error) {
	start := time.Now()
	cfg := t.cfg
	tc := cfg.Training

	ds, err := LoadDataset(cfg.Paths.Dataset, cfg.Dataset)
	if err != nil {
		return nil, err
	}
	if err := AugmentFeatures(ds.Features); err != nil {
		return nil, fmt.Errorf("augment: %w", err)
	}

	// Only columns the extractor can rebuild from a URL are candidates.
	candidates, extra := schemaColumns(ds.Features, AugmentedSchema())
	if len(extra) > 0 {
		LogWarn("[TRAIN] Ignoring %d dataset columns inference cannot produce: %v", len(extra), extra)
	}
	sel, err := SelectKBest(candidates, ds.Labels, tc.TopK)
	if err != nil {
		return nil, err
	}

	le := FitLabelEncoder(ds.Labels)
	y, err := le.Transform(ds.Labels)
	if err != nil {
		return nil, err
	}
	if len(le.Classes) < 2 {
		return nil, fmt.Errorf("training needs at least 2 classes, dataset has %d", len(le.Classes))
	}
	x, err := sel.Table.Matrix()
	if err != nil {
		return nil, err
	}

	trainIdx, testIdx, err := TrainTestSplit(len(x), tc.TestSize, tc.Seed)
	if err != nil {
		return nil, err
	}
	xTrain, yTrain := subset(x, y, trainIdx)
	xTest, yTest := subset(x, y, testIdx)
	LogInfo("[TRAIN] Split %d rows into %d train / %d test", len(x), len(trainIdx), len(testIdx))

	grid := ExpandGrid(tc.Grid, tc.Seed)
	search, err := GridSearchCV(ctx, xTrain, yTrain, len(le.Classes), grid, tc.CVFolds, tc.Workers)
	if err != nil {
		return nil, err
	}

	yPred := search.Best.PredictAll(xTest)
	report := NewClassificationReport(yTest, yPred, le.Classes)
	LogInfo("[TRAIN] Model Accuracy: %.2f", report.Accuracy)

	cv, err := CrossValScore(ctx, xTrain, yTrain, len(le.Classes), search.BestParams(), tc.CVFolds, tc.Workers)
	if err != nil {
		return nil, fmt.Errorf("cross validation: %w", err)
	}
	LogInfo("[TRAIN] Cross-validation scores: %v", cv)

	artifact := NewModelArtifact(search.Best, sel.Features, le.Classes)
	artifact.TestAccuracy = report.Accuracy
	artifact.CVScores = cv

	result := &TrainResult{
		Artifact:     artifact,
		Search:       search,
		Report:       report,
		Scores:       sel.Scores,
		Dataset:      ds.Source,
		Rows:         ds.Len(),
		TrainRows:    len(trainIdx),
		TestRows:     len(testIdx),
		ModelPath:    cfg.Paths.Model,
		FeaturesPath: cfg.Paths.SelectedFeatures,
	}

	if err := sel.Features.Validate(AugmentedSchema()); err != nil {
		return nil, err
	}
	if err := SaveArtifacts(cfg.Paths.Model, cfg.Paths.SelectedFeatures, artifact, sel.Features); err != nil {
		return nil, err
	}
	LogInfo("[TRAIN] Saved model %s (run %s) and %d selected features to %s",
		cfg.Paths.Model, artifact.RunID, len(sel.Features), cfg.Paths.SelectedFeatures)

	if cfg.Paths.ReportDir != "" {
		path, err := WriteTrainingReport(cfg.Paths.ReportDir, result)
		if err != nil {
			LogWarn("[TRAIN] Failed to write training report: %v", err)
		} else {
			result.ReportPath = path
			LogInfo("[TRAIN] Training report written to %s", path)
		}
	}

	result.Elapsed = time.Since(start)
	return result, nil
}

// schemaColumns drops the columns of t that schema does not name and returns the
// dropped names.
func schemaColumns(t *Table, schema FeatureSchema) (*Table, []string) {
	var extra []string
	for _, name := range t.Names() {
		if !schema.Contains(name) {
			extra = append(extra, name)
		}
	}
	if len(extra) == 0 {
		return t, nil
	}
	return t.Drop(extra...), extra
}
