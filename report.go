/*
File: report.go
Version: 1.0.0
Description: Training report workbook (training_report.xlsx) with a summary, the held-out
             classification report, every grid search candidate and the selected features.
*/

package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"
)

const reportFilename = "training_report.xlsx"

// WriteTrainingReport writes the workbook for result into dir and returns its path.
func WriteTrainingReport(dir string, result *TrainResult) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "Summary"); err != nil {
		return "", err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return "", err
	}

	a := result.Artifact
	meanCV, stdCV := meanStd(a.CVScores)
	summary := [][]any{
		{"Field", "Value"},
		{"Run ID", a.RunID},
		{"Trained at", a.TrainedAt.Format(time.RFC3339)},
		{"Dataset", result.Dataset},
		{"Rows", result.Rows},
		{"Train rows", result.TrainRows},
		{"Test rows", result.TestRows},
		{"Selected features", len(a.Features)},
		{"Best params", a.Params.String()},
		{"Best CV accuracy", result.Search.BestScore()},
		{"Test accuracy", a.TestAccuracy},
		{"CV mean", meanCV},
		{"CV std", stdCV},
	}
	if err := writeRows(f, "Summary", summary, bold); err != nil {
		return "", err
	}

	rows := [][]any{{"Class", "Precision", "Recall", "F1", "Support"}}
	classRow := func(m ClassMetrics) []any {
		return []any{m.Label, m.Precision, m.Recall, m.F1, m.Support}
	}
	for _, c := range result.Report.Classes {
		rows = append(rows, classRow(c))
	}
	rows = append(rows,
		[]any{"accuracy", "", "", result.Report.Accuracy, result.Report.Support},
		classRow(result.Report.MacroAvg),
		classRow(result.Report.WeightedAvg),
	)
	if err := writeSheet(f, "Classification", rows, bold); err != nil {
		return "", err
	}

	rows = [][]any{{"Rank", "n_estimators", "max_depth", "min_samples_split", "Mean", "Std", "Folds"}}
	for i, c := range result.Search.Candidates {
		depth := any("None")
		if c.Params.MaxDepth > 0 {
			depth = c.Params.MaxDepth
		}
		rank := ""
		if i == result.Search.BestIndex {
			rank = "best"
		}
		rows = append(rows, []any{rank, c.Params.NEstimators, depth, c.Params.MinSamplesSplit, c.Mean, c.Std, fmt.Sprint(c.FoldScores)})
	}
	if err := writeSheet(f, "GridSearch", rows, bold); err != nil {
		return "", err
	}

	rows = [][]any{{"#", "Feature", "Chi2"}}
	for i, name := range a.Features {
		rows = append(rows, []any{i + 1, name, result.Scores[name]})
	}
	if err := writeSheet(f, "Features", rows, bold); err != nil {
		return "", err
	}

	path := filepath.Join(dir, reportFilename)
	if err := ensureDir(dir); err != nil {
		return "", &PersistenceError{Path: path, Err: err}
	}
	if err := f.SaveAs(path); err != nil {
		return "", &PersistenceError{Path: path, Err: err}
	}
	return path, nil
}

func writeSheet(f *excelize.File, name string, rows [][]any, header int) error {
	if _, err := f.NewSheet(name); err != nil {
		return err
	}
	return writeRows(f, name, rows, header)
}

// writeRows writes rows from A1 down and styles the first one as a header.
func writeRows(f *excelize.File, sheet string, rows [][]any, header int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("sheet %s row %d: %w", sheet, i+1, err)
		}
	}
	if len(rows) == 0 {
		return nil
	}
	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, header)
}
