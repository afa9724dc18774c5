/*
File: forest.go
Version: 1.2.0
Description: Random forest of CART trees (Gini impurity, bootstrap sampling,
             sqrt(n_features) candidate features per split). Trees are fitted concurrently
             and stored as flat node arrays so the forest is gob-serialisable.
*/

package main

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// ForestParams are the tunable hyperparameters. MaxDepth 0 means unlimited and
// MaxFeatures 0 means floor(sqrt(n_features)).
type ForestParams struct {
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MaxFeatures     int
	Seed            uint64
}

func (p ForestParams) String() string {
	depth := "None"
	if p.MaxDepth > 0 {
		depth = fmt.Sprintf("%d", p.MaxDepth)
	}
	return fmt.Sprintf("n_estimators=%d max_depth=%s min_samples_split=%d", p.NEstimators, depth, p.MinSamplesSplit)
}

// TreeNode is a split node when Feature >= 0, otherwise a leaf holding the class
// distribution in Value.
type TreeNode struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     []float64
}

type DecisionTree struct {
	Nodes []TreeNode
}

type RandomForest struct {
	Params    ForestParams
	NClasses  int
	NFeatures int
	Trees     []*DecisionTree
}

// FitForest trains a forest on row-major x and encoded labels y.
func FitForest(ctx context.Context, x [][]float64, y []int, nClasses int, params ForestParams, workers int) (*RandomForest, error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, fmt.Errorf("forest: %d rows, %d labels", len(x), len(y))
	}
	if params.NEstimators < 1 {
		return nil, fmt.Errorf("forest: n_estimators must be positive")
	}
	if params.MinSamplesSplit < 2 {
		params.MinSamplesSplit = 2
	}
	nFeatures := len(x[0])
	if params.MaxFeatures <= 0 {
		params.MaxFeatures = int(math.Sqrt(float64(nFeatures)))
	}
	if params.MaxFeatures < 1 {
		params.MaxFeatures = 1
	}
	if params.MaxFeatures > nFeatures {
		params.MaxFeatures = nFeatures
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	forest := &RandomForest{
		Params:    params,
		NClasses:  nClasses,
		NFeatures: nFeatures,
		Trees:     make([]*DecisionTree, params.NEstimators),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < params.NEstimators; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(params.Seed, uint64(i)+1))
			b := &treeBuilder{x: x, y: y, nClasses: nClasses, params: params, rng: rng}
			forest.Trees[i] = b.build(bootstrap(len(x), rng))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return forest, nil
}

func bootstrap(n int, rng *rand.Rand) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = rng.IntN(n)
	}
	return idx
}

// PredictProba averages the leaf distributions of all trees.
func (f *RandomForest) PredictProba(row []float64) []float64 {
	proba := make([]float64, f.NClasses)
	for _, t := range f.Trees {
		for k, v := range t.leaf(row) {
			proba[k] += v
		}
	}
	n := float64(len(f.Trees))
	for k := range proba {
		proba[k] /= n
	}
	return proba
}

// Predict returns the most probable class, the lowest index on ties.
func (f *RandomForest) Predict(row []float64) int {
	return argmax(f.PredictProba(row))
}

func (f *RandomForest) PredictAll(rows [][]float64) []int {
	out := make([]int, len(rows))
	for i, r := range rows {
		out[i] = f.Predict(r)
	}
	return out
}

func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

func (t *DecisionTree) leaf(row []float64) []float64 {
	n := &t.Nodes[0]
	for n.Feature >= 0 {
		if row[n.Feature] <= n.Threshold {
			n = &t.Nodes[n.Left]
		} else {
			n = &t.Nodes[n.Right]
		}
	}
	return n.Value
}

// --- Tree construction ---

type treeBuilder struct {
	x        [][]float64
	y        []int
	nClasses int
	params   ForestParams
	rng      *rand.Rand
	nodes    []TreeNode
}

type split struct {
	feature   int
	threshold float64
	impurity  float64
}

func (b *treeBuilder) build(idx []int) *DecisionTree {
	b.nodes = make([]TreeNode, 0, 64)
	b.grow(idx, 0)
	return &DecisionTree{Nodes: b.nodes}
}

func (b *treeBuilder) classCounts(idx []int) []float64 {
	counts := make([]float64, b.nClasses)
	for _, i := range idx {
		counts[b.y[i]]++
	}
	return counts
}

func (b *treeBuilder) grow(idx []int, depth int) int {
	counts := b.classCounts(idx)
	node := len(b.nodes)
	b.nodes = append(b.nodes, TreeNode{Feature: -1})

	leaf := func() int {
		value := make([]float64, len(counts))
		for k, c := range counts {
			value[k] = c / float64(len(idx))
		}
		b.nodes[node].Value = value
		return node
	}

	if len(idx) < b.params.MinSamplesSplit ||
		(b.params.MaxDepth > 0 && depth >= b.params.MaxDepth) ||
		gini(counts, float64(len(idx))) == 0 {
		return leaf()
	}

	best, ok := b.bestSplit(idx, counts)
	if !ok {
		return leaf()
	}

	var leftIdx, rightIdx []int
	for _, i := range idx {
		if b.x[i][best.feature] <= best.threshold {
			leftIdx = append(leftIdx, i)
		} else {
			rightIdx = append(rightIdx, i)
		}
	}
	left := b.grow(leftIdx, depth+1)
	right := b.grow(rightIdx, depth+1)
	b.nodes[node].Feature = best.feature
	b.nodes[node].Threshold = best.threshold
	b.nodes[node].Left = left
	b.nodes[node].Right = right
	return node
}

// bestSplit draws candidate features in random order and keeps looking past
// constant features until MaxFeatures informative ones were evaluated.
func (b *treeBuilder) bestSplit(idx []int, parent []float64) (split, bool) {
	nFeatures := len(b.x[0])
	features := b.rng.Perm(nFeatures)
	best := split{impurity: math.Inf(1)}
	found := false
	visited := 0

	order := make([]int, len(idx))
	left := make([]float64, b.nClasses)
	right := make([]float64, b.nClasses)
	total := float64(len(idx))

	for _, f := range features {
		if visited >= b.params.MaxFeatures {
			break
		}
		copy(order, idx)
		sort.Slice(order, func(i, j int) bool { return b.x[order[i]][f] < b.x[order[j]][f] })
		if b.x[order[0]][f] == b.x[order[len(order)-1]][f] {
			continue
		}
		visited++

		for k := range left {
			left[k] = 0
			right[k] = parent[k]
		}
		for p := 1; p < len(order); p++ {
			c := b.y[order[p-1]]
			left[c]++
			right[c]--
			lo, hi := b.x[order[p-1]][f], b.x[order[p]][f]
			if lo == hi {
				continue
			}
			nl := float64(p)
			nr := total - nl
			imp := nl*gini(left, nl) + nr*gini(right, nr)
			if imp < best.impurity {
				threshold := lo/2 + hi/2
				if threshold == hi || math.IsInf(threshold, 0) || math.IsNaN(threshold) {
					threshold = lo
				}
				best = split{feature: f, threshold: threshold, impurity: imp}
				found = true
			}
		}
	}
	return best, found
}

func gini(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range counts {
		p := c / n
		sum += p * p
	}
	return 1 - sum
}
