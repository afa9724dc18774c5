/*
File: selector.go
Version: 1.3.0
Description: Chi-squared top-k feature selection over the numeric columns of a table.
             Deterministic: stable ranking, ties resolved towards later columns,
             kept columns emitted in their original order.
*/

package main

import (
	"fmt"
	"math"
	"sort"
	"strconv"
)

// LabelEncoder maps label strings onto 0..n-1 in sorted order.
type LabelEncoder struct {
	Classes []string
	index   map[string]int
}

// FitLabelEncoder sorts the distinct labels numerically when every label parses as
// a number and lexically otherwise.
func FitLabelEncoder(labels []string) *LabelEncoder {
	seen := make(map[string]struct{})
	var classes []string
	numeric := true
	for _, l := range labels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		classes = append(classes, l)
		if _, err := strconv.ParseFloat(l, 64); err != nil {
			numeric = false
		}
	}
	if numeric {
		sort.SliceStable(classes, func(i, j int) bool {
			a, _ := strconv.ParseFloat(classes[i], 64)
			b, _ := strconv.ParseFloat(classes[j], 64)
			return a < b
		})
	} else {
		sort.Strings(classes)
	}
	return newLabelEncoder(classes)
}

func newLabelEncoder(classes []string) *LabelEncoder {
	le := &LabelEncoder{Classes: classes, index: make(map[string]int, len(classes))}
	for i, c := range classes {
		le.index[c] = i
	}
	return le
}

func (le *LabelEncoder) Transform(labels []string) ([]int, error) {
	out := make([]int, len(labels))
	for i, l := range labels {
		idx, ok := le.index[l]
		if !ok {
			return nil, fmt.Errorf("unknown label %q", l)
		}
		out[i] = idx
	}
	return out, nil
}

// Chi2 scores every column of x (row-major) against the encoded labels.
// Columns with a zero expected count score NaN.
func Chi2(x [][]float64, y []int, nClasses int) ([]float64, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("chi2: %d rows but %d labels", len(x), len(y))
	}
	if len(x) == 0 {
		return nil, fmt.Errorf("chi2: empty input")
	}
	width := len(x[0])
	for _, row := range x {
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, ErrInvalidFeature
			}
			if v < 0 {
				return nil, ErrNegativeFeature
			}
		}
	}

	// A single class is scored against an empty complementary class.
	if nClasses < 2 {
		nClasses = 2
	}

	observed := make([][]float64, nClasses)
	for k := range observed {
		observed[k] = make([]float64, width)
	}
	featureTotal := make([]float64, width)
	classCount := make([]float64, nClasses)
	for i, row := range x {
		k := y[i]
		classCount[k]++
		for j, v := range row {
			observed[k][j] += v
			featureTotal[j] += v
		}
	}

	n := float64(len(x))
	scores := make([]float64, width)
	for j := 0; j < width; j++ {
		var score float64
		for k := 0; k < nClasses; k++ {
			expected := classCount[k] / n * featureTotal[j]
			diff := observed[k][j] - expected
			score += diff * diff / expected
		}
		scores[j] = score
	}
	return scores, nil
}

// topK returns the indices of the k best scores in ascending index order.
// NaN ranks lowest; equal scores keep later columns.
func topK(scores []float64, k int) []int {
	clean := make([]float64, len(scores))
	for i, s := range scores {
		if math.IsNaN(s) {
			s = -math.MaxFloat64
		}
		clean[i] = s
	}
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return clean[order[a]] < clean[order[b]]
	})
	kept := append([]int(nil), order[len(order)-k:]...)
	sort.Ints(kept)
	return kept
}

// Selection is the outcome of a chi-squared top-k selection.
type Selection struct {
	Table    *Table
	Features SelectedFeatures
	Scores   map[string]float64 // chi2 score of every numeric column
}

// SelectFeatures keeps the k numeric columns of x with the highest chi-squared
// score against labels. Bool and text columns never take part.
// When fewer than k numeric columns exist, all of them are kept.
func SelectFeatures(x *Table, labels []string, k int) (*Table, SelectedFeatures, error) {
	sel, err := SelectKBest(x, labels, k)
	if err != nil {
		return nil, nil, err
	}
	return sel.Table, sel.Features, nil
}

// SelectKBest is SelectFeatures returning the scores as well.
func SelectKBest(x *Table, labels []string, k int) (*Selection, error) {
	if k <= 0 {
		return nil, fmt.Errorf("select: k must be positive, got %d", k)
	}
	if x.Len() != len(labels) {
		return nil, &SchemaError{
			Op:     "select",
			Reason: fmt.Sprintf("%d rows but %d labels", x.Len(), len(labels)),
		}
	}

	numeric := x.NumericOnly()
	if numeric.Width() == 0 {
		return nil, ErrNoNumericFeatures
	}
	if k > numeric.Width() {
		LogWarn("[SELECT] k=%d exceeds %d numeric columns, keeping all", k, numeric.Width())
		k = numeric.Width()
	}

	le := FitLabelEncoder(labels)
	y, err := le.Transform(labels)
	if err != nil {
		return nil, err
	}

	matrix, err := numeric.Matrix()
	if err != nil {
		return nil, err
	}
	scores, err := Chi2(matrix, y, len(le.Classes))
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}

	names := numeric.Names()
	byName := make(map[string]float64, len(names))
	for j, name := range names {
		byName[name] = scores[j]
	}
	keep := topK(scores, k)
	selected := make(SelectedFeatures, len(keep))
	for i, j := range keep {
		selected[i] = names[j]
	}

	if IsDebugEnabled() {
		for _, j := range keep {
			LogDebug("[SELECT] %s chi2=%.4f", names[j], scores[j])
		}
	}
	LogInfo("[SELECT] Selected features: %v", []string(selected))

	reduced, err := numeric.Select("select", selected)
	if err != nil {
		return nil, err
	}
	return &Selection{Table: reduced, Features: selected, Scores: byName}, nil
}
