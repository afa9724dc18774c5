package main

import (
	"context"
	"math"
	"reflect"
	"testing"
)

// separable returns two well separated clusters on feature 0 plus a noise feature.
func separable(n int) ([][]float64, []int) {
	x := make([][]float64, 0, 2*n)
	y := make([]int, 0, 2*n)
	for i := 0; i < n; i++ {
		x = append(x, []float64{float64(i % 4), float64((i * 7) % 5)})
		y = append(y, 0)
	}
	for i := 0; i < n; i++ {
		x = append(x, []float64{float64(10 + i%4), float64((i * 3) % 5)})
		y = append(y, 1)
	}
	return x, y
}

func TestFitForestSeparable(t *testing.T) {
	x, y := separable(20)
	params := ForestParams{NEstimators: 25, MinSamplesSplit: 2, Seed: 42}
	forest, err := FitForest(context.Background(), x, y, 2, params, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(forest.Trees) != 25 || forest.NFeatures != 2 || forest.NClasses != 2 {
		t.Fatalf("forest shape = %d trees, %d features, %d classes", len(forest.Trees), forest.NFeatures, forest.NClasses)
	}
	if forest.Params.MaxFeatures != 1 {
		t.Errorf("MaxFeatures = %d, want floor(sqrt(2)) = 1", forest.Params.MaxFeatures)
	}
	if got := forest.Predict([]float64{1, 2}); got != 0 {
		t.Errorf("Predict(low) = %d", got)
	}
	if got := forest.Predict([]float64{12, 2}); got != 1 {
		t.Errorf("Predict(high) = %d", got)
	}
	if acc := AccuracyScore(y, forest.PredictAll(x)); acc < 0.99 {
		t.Errorf("training accuracy = %v", acc)
	}

	p := forest.PredictProba([]float64{5, 0})
	if math.Abs(p[0]+p[1]-1) > 1e-9 {
		t.Errorf("probabilities %v do not sum to 1", p)
	}
}

func TestFitForestDeterministic(t *testing.T) {
	x, y := separable(15)
	params := ForestParams{NEstimators: 8, MinSamplesSplit: 2, Seed: 7}
	a, err := FitForest(context.Background(), x, y, 2, params, 1)
	if err != nil {
		t.Fatal(err)
	}
	b, err := FitForest(context.Background(), x, y, 2, params, 4)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("same seed produced different forests with different worker counts")
	}
}

func TestFitForestMaxDepth(t *testing.T) {
	x, y := separable(20)
	forest, err := FitForest(context.Background(), x, y, 2, ForestParams{NEstimators: 5, MaxDepth: 1, MinSamplesSplit: 2, Seed: 1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	for i, tree := range forest.Trees {
		if len(tree.Nodes) > 3 {
			t.Errorf("tree %d has %d nodes at max_depth=1", i, len(tree.Nodes))
		}
	}
}

func TestFitForestErrors(t *testing.T) {
	x, y := separable(5)
	if _, err := FitForest(context.Background(), nil, nil, 2, ForestParams{NEstimators: 1}, 1); err == nil {
		t.Error("empty input accepted")
	}
	if _, err := FitForest(context.Background(), x, y, 2, ForestParams{}, 1); err == nil {
		t.Error("zero estimators accepted")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := FitForest(ctx, x, y, 2, ForestParams{NEstimators: 3}, 1); err == nil {
		t.Error("cancelled context ignored")
	}
}

func TestForestParamsString(t *testing.T) {
	tests := []struct {
		p    ForestParams
		want string
	}{
		{ForestParams{NEstimators: 50, MinSamplesSplit: 2}, "n_estimators=50 max_depth=None min_samples_split=2"},
		{ForestParams{NEstimators: 100, MaxDepth: 10, MinSamplesSplit: 5}, "n_estimators=100 max_depth=10 min_samples_split=5"},
	}
	for _, tt := range tests {
		if got := tt.p.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestGini(t *testing.T) {
	if g := gini([]float64{5, 0}, 5); g != 0 {
		t.Errorf("pure gini = %v", g)
	}
	if g := gini([]float64{2, 2}, 4); g != 0.5 {
		t.Errorf("balanced gini = %v", g)
	}
	if g := gini([]float64{0, 0}, 0); g != 0 {
		t.Errorf("empty gini = %v", g)
	}
}
