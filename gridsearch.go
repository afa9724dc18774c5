/*
File: gridsearch.go
Version: 1.1.0
Description: Exhaustive hyperparameter search with stratified k-fold cross-validation.
             Every (candidate, fold) fit is an independent job on a bounded errgroup.
*/

package main

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// ExpandGrid returns the cartesian product of the grid, n_estimators varying slowest.
func ExpandGrid(grid GridConfig, seed uint64) []ForestParams {
	var out []ForestParams
	for _, n := range grid.NEstimators {
		for _, d := range grid.MaxDepth {
			for _, m := range grid.MinSamplesSplit {
				out = append(out, ForestParams{
					NEstimators:     n,
					MaxDepth:        d,
					MinSamplesSplit: m,
					Seed:            seed,
				})
			}
		}
	}
	return out
}

// Fold is one train/test partition of row indices.
type Fold struct {
	Train []int
	Test  []int
}

// StratifiedKFold splits rows into nSplits folds without shuffling, spreading each
// class as evenly as possible over the folds. Classes are ordered by first
// appearance in y.
func StratifiedKFold(y []int, nSplits int) ([]Fold, error) {
	n := len(y)
	if nSplits < 2 {
		return nil, fmt.Errorf("kfold: need at least 2 splits, got %d", nSplits)
	}
	if nSplits > n {
		return nil, fmt.Errorf("kfold: cannot have %d splits with %d samples", nSplits, n)
	}

	encode := make(map[int]int)
	enc := make([]int, n)
	for i, label := range y {
		code, ok := encode[label]
		if !ok {
			code = len(encode)
			encode[label] = code
		}
		enc[i] = code
	}
	nClasses := len(encode)

	classCounts := make([]int, nClasses)
	for _, c := range enc {
		classCounts[c]++
	}
	for c, cnt := range classCounts {
		if cnt < nSplits {
			LogWarn("[CV] Least populated class %d has %d members, fewer than %d folds", c, cnt, nSplits)
			break
		}
	}

	sorted := append([]int(nil), enc...)
	sort.Ints(sorted)
	allocation := make([][]int, nSplits)
	for f := range allocation {
		allocation[f] = make([]int, nClasses)
		for i := f; i < n; i += nSplits {
			allocation[f][sorted[i]]++
		}
	}

	testFold := make([]int, n)
	for c := 0; c < nClasses; c++ {
		var assign []int
		for f := 0; f < nSplits; f++ {
			for j := 0; j < allocation[f][c]; j++ {
				assign = append(assign, f)
			}
		}
		next := 0
		for i, e := range enc {
			if e == c {
				testFold[i] = assign[next]
				next++
			}
		}
	}

	folds := make([]Fold, nSplits)
	for i, f := range testFold {
		for g := range folds {
			if g == f {
				folds[g].Test = append(folds[g].Test, i)
			} else {
				folds[g].Train = append(folds[g].Train, i)
			}
		}
	}
	return folds, nil
}

// CandidateScore is the cross-validated accuracy of one parameter set.
type CandidateScore struct {
	Params     ForestParams
	FoldScores []float64
	Mean       float64
	Std        float64
}

type GridSearchResult struct {
	Candidates []CandidateScore
	BestIndex  int
	Best       *RandomForest
}

func (r *GridSearchResult) BestParams() ForestParams {
	return r.Candidates[r.BestIndex].Params
}

func (r *GridSearchResult) BestScore() float64 {
	return r.Candidates[r.BestIndex].Mean
}

func subset(x [][]float64, y []int, idx []int) ([][]float64, []int) {
	xs := make([][]float64, len(idx))
	ys := make([]int, len(idx))
	for i, j := range idx {
		xs[i] = x[j]
		ys[i] = y[j]
	}
	return xs, ys
}

func foldAccuracy(ctx context.Context, x [][]float64, y []int, nClasses int, params ForestParams, fold Fold) (float64, error) {
	xTrain, yTrain := subset(x, y, fold.Train)
	forest, err := FitForest(ctx, xTrain, yTrain, nClasses, params, 1)
	if err != nil {
		return 0, err
	}
	xTest, yTest := subset(x, y, fold.Test)
	return AccuracyScore(yTest, forest.PredictAll(xTest)), nil
}

// GridSearchCV scores every candidate on the same folds, picks the highest mean
// accuracy (first candidate on ties) and refits it on all rows.
func GridSearchCV(ctx context.Context, x [][]float64, y []int, nClasses int, candidates []ForestParams, nFolds, workers int) (*GridSearchResult, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("grid search: no candidates")
	}
	folds, err := StratifiedKFold(y, nFolds)
	if err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	start := time.Now()
	LogInfo("[GRID] Fitting %d folds for each of %d candidates, totalling %d fits", nFolds, len(candidates), nFolds*len(candidates))

	scores := make([][]float64, len(candidates))
	for c := range scores {
		scores[c] = make([]float64, nFolds)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for c, params := range candidates {
		for f, fold := range folds {
			g.Go(func() error {
				acc, err := foldAccuracy(gctx, x, y, nClasses, params, fold)
				if err != nil {
					return err
				}
				scores[c][f] = acc
				if IsDebugEnabled() {
					LogDebug("[GRID] %s fold %d/%d accuracy=%.4f", params, f+1, nFolds, acc)
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("grid search: %w", err)
	}

	result := &GridSearchResult{Candidates: make([]CandidateScore, len(candidates))}
	for c, params := range candidates {
		mean, std := meanStd(scores[c])
		result.Candidates[c] = CandidateScore{Params: params, FoldScores: scores[c], Mean: mean, Std: std}
		if mean > result.Candidates[result.BestIndex].Mean {
			result.BestIndex = c
		}
	}

	best := result.BestParams()
	LogInfo("[GRID] Best params: %s (mean accuracy %.4f) in %v", best, result.BestScore(), time.Since(start))

	result.Best, err = FitForest(ctx, x, y, nClasses, best, workers)
	if err != nil {
		return nil, fmt.Errorf("grid search refit: %w", err)
	}
	return result, nil
}

// CrossValScore returns the per-fold accuracy of params.
func CrossValScore(ctx context.Context, x [][]float64, y []int, nClasses int, params ForestParams, nFolds, workers int) ([]float64, error) {
	folds, err := StratifiedKFold(y, nFolds)
	if err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	scores := make([]float64, nFolds)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for f, fold := range folds {
		g.Go(func() error {
			acc, err := foldAccuracy(gctx, x, y, nClasses, params, fold)
			if err != nil {
				return err
			}
			scores[f] = acc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}

func meanStd(v []float64) (float64, float64) {
	if len(v) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range v {
		sum += x
	}
	mean := sum / float64(len(v))
	var sq float64
	for _, x := range v {
		sq += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(sq / float64(len(v)))
}
