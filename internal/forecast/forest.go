package forecast

import (
	"math/rand"
	"runtime"
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ForestParams configures the bagged regression-tree ensemble.
type ForestParams struct {
	Trees       int
	MaxDepth    int
	MinLeaf     int
	HoldoutFrac float64
	Seed        int64
}

func DefaultForestParams() ForestParams {
	return ForestParams{
		Trees:       120,
		MaxDepth:    12,
		MinLeaf:     3,
		HoldoutFrac: 0.15,
		Seed:        42,
	}
}

type node struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      int
	right     int
}

type tree struct {
	nodes []node
}

func (t *tree) predict(x []float64) float64 {
	i := 0
	for {
		n := t.nodes[i]
		if n.leaf {
			return n.value
		}
		if x[n.feature] <= n.threshold {
			i = n.left
		} else {
			i = n.right
		}
	}
}

type forest struct {
	trees       []tree
	importances []float64
}

func (f *forest) predict(x []float64) float64 {
	out := make([]float64, len(f.trees))
	for i := range f.trees {
		out[i] = f.trees[i].predict(x)
	}
	return stat.Mean(out, nil)
}

// fitForest grows p.Trees trees on bootstrap resamples. Every tree owns a
// random source derived from p.Seed, so the result does not depend on
// goroutine scheduling.
func fitForest(X [][]float64, y []float64, p ForestParams) *forest {
	nFeatures := len(X[0])
	trees := make([]tree, p.Trees)
	gains := make([][]float64, p.Trees)

	var wg sync.WaitGroup
	sem := make(chan struct{}, runtime.GOMAXPROCS(0))
	for t := 0; t < p.Trees; t++ {
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer func() {
				<-sem
				wg.Done()
			}()
			rng := rand.New(rand.NewSource(p.Seed + int64(t)*7919))
			idx := make([]int, len(y))
			for i := range idx {
				idx[i] = rng.Intn(len(y))
			}
			b := &builder{X: X, y: y, p: p, gain: make([]float64, nFeatures)}
			b.grow(idx, 0)
			trees[t] = tree{nodes: b.nodes}
			gains[t] = b.gain
		}()
	}
	wg.Wait()

	importances := make([]float64, nFeatures)
	for _, gain := range gains {
		floats.Add(importances, gain)
	}
	if total := floats.Sum(importances); total > 0 {
		floats.Scale(1/total, importances)
	}
	return &forest{trees: trees, importances: importances}
}

type builder struct {
	X     [][]float64
	y     []float64
	p     ForestParams
	nodes []node
	gain  []float64
}

func (b *builder) grow(idx []int, depth int) int {
	ys := make([]float64, len(idx))
	for i, j := range idx {
		ys[i] = b.y[j]
	}
	at := len(b.nodes)
	b.nodes = append(b.nodes, node{leaf: true, value: stat.Mean(ys, nil)})

	if depth >= b.p.MaxDepth || len(idx) < 2*b.p.MinLeaf {
		return at
	}
	parentSSE := sse(ys)
	if parentSSE <= 0 {
		return at
	}

	feature, threshold, childSSE, ok := b.bestSplit(idx)
	if !ok || childSSE >= parentSSE {
		return at
	}

	var left, right []int
	for _, j := range idx {
		if b.X[j][feature] <= threshold {
			left = append(left, j)
		} else {
			right = append(right, j)
		}
	}
	b.gain[feature] += parentSSE - childSSE

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[at] = node{feature: feature, threshold: threshold, left: l, right: r}
	return at
}

// bestSplit scans every feature for the threshold minimising the summed
// squared error of the two children.
func (b *builder) bestSplit(idx []int) (feature int, threshold, bestSSE float64, ok bool) {
	n := len(idx)
	sorted := make([]int, n)
	for f := range b.X[0] {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(i, j int) bool {
			return b.X[sorted[i]][f] < b.X[sorted[j]][f]
		})

		var totalSum, totalSq float64
		for _, j := range sorted {
			totalSum += b.y[j]
			totalSq += b.y[j] * b.y[j]
		}

		var leftSum, leftSq float64
		for k := 1; k < n; k++ {
			v := b.y[sorted[k-1]]
			leftSum += v
			leftSq += v * v
			if k < b.p.MinLeaf || n-k < b.p.MinLeaf {
				continue
			}
			lo, hi := b.X[sorted[k-1]][f], b.X[sorted[k]][f]
			if lo == hi {
				continue
			}
			nl, nr := float64(k), float64(n-k)
			rightSum, rightSq := totalSum-leftSum, totalSq-leftSq
			s := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)
			if !ok || s < bestSSE {
				feature, threshold, bestSSE, ok = f, (lo+hi)/2, s, true
			}
		}
	}
	return feature, threshold, bestSSE, ok
}

func sse(ys []float64) float64 {
	mean := stat.Mean(ys, nil)
	var s float64
	for _, v := range ys {
		d := v - mean
		s += d * d
	}
	return s
}
