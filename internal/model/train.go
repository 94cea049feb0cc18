package model

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// TrainForest fits a bagged ensemble on the supplied samples. Training is
// deterministic for a given seed: each tree derives its own generator from
// the seed and its index, so tree i does not depend on how tree i-1 consumed
// randomness. The context is checked between trees so a retraining deadline
// can interrupt a long fit.
func TrainForest(ctx context.Context, xs [][]float64, ys []int, params ForestParams) (*Forest, error) {
	if len(xs) == 0 || len(xs) != len(ys) {
		return nil, fmt.Errorf("train forest: %d samples, %d labels", len(xs), len(ys))
	}
	numFeatures := len(xs[0])
	if numFeatures == 0 {
		return nil, fmt.Errorf("train forest: empty feature vectors")
	}

	numClasses := 2
	for _, y := range ys {
		if y < 0 {
			return nil, fmt.Errorf("train forest: negative class label %d", y)
		}
		if y+1 > numClasses {
			numClasses = y + 1
		}
	}

	if params.Trees <= 0 {
		params.Trees = 100
	}
	if params.MaxDepth <= 0 {
		params.MaxDepth = 10
	}
	if params.MinSamplesSplit < 2 {
		params.MinSamplesSplit = 2
	}

	forest := &Forest{
		NumFeatures: numFeatures,
		NumClasses:  numClasses,
		Params:      params,
		Trees:       make([]Tree, 0, params.Trees),
	}

	for i := 0; i < params.Trees; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("train forest: interrupted after %d trees: %w", i, err)
		}
		rng := rand.New(rand.NewSource(params.Seed + int64(i)*7919))

		sample := make([]int, len(xs))
		for j := range sample {
			sample[j] = rng.Intn(len(xs))
		}

		builder := &treeBuilder{
			xs:         xs,
			ys:         ys,
			numClasses: numClasses,
			params:     params,
			rng:        rng,
			mtry:       int(math.Ceil(math.Sqrt(float64(numFeatures)))),
		}
		tree := Tree{}
		builder.grow(&tree, sample, 0)
		forest.Trees = append(forest.Trees, tree)
	}

	return forest, nil
}

type treeBuilder struct {
	xs         [][]float64
	ys         []int
	numClasses int
	params     ForestParams
	rng        *rand.Rand
	mtry       int
}

// grow appends the subtree for the given samples and returns its root index.
func (b *treeBuilder) grow(tree *Tree, samples []int, depth int) int {
	idx := len(tree.Nodes)
	tree.Nodes = append(tree.Nodes, TreeNode{Left: -1, Right: -1})

	dist := b.classDistribution(samples)
	if depth >= b.params.MaxDepth || len(samples) < b.params.MinSamplesSplit || isPure(dist) {
		tree.Nodes[idx].Dist = dist
		return idx
	}

	feature, threshold, ok := b.bestSplit(samples)
	if !ok {
		tree.Nodes[idx].Dist = dist
		return idx
	}

	left := make([]int, 0, len(samples))
	right := make([]int, 0, len(samples))
	for _, s := range samples {
		if b.xs[s][feature] <= threshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		tree.Nodes[idx].Dist = dist
		return idx
	}

	tree.Nodes[idx].Feature = feature
	tree.Nodes[idx].Threshold = threshold
	tree.Nodes[idx].Left = b.grow(tree, left, depth+1)
	tree.Nodes[idx].Right = b.grow(tree, right, depth+1)
	return idx
}

func (b *treeBuilder) classDistribution(samples []int) []float64 {
	dist := make([]float64, b.numClasses)
	for _, s := range samples {
		dist[b.ys[s]]++
	}
	total := float64(len(samples))
	if total > 0 {
		for i := range dist {
			dist[i] /= total
		}
	}
	return dist
}

func isPure(dist []float64) bool {
	for _, p := range dist {
		if p == 1 {
			return true
		}
	}
	return false
}

// bestSplit scans a random subset of features for the gini-optimal threshold.
func (b *treeBuilder) bestSplit(samples []int) (int, float64, bool) {
	numFeatures := len(b.xs[0])
	order := b.rng.Perm(numFeatures)
	candidates := order
	if b.mtry < len(candidates) {
		candidates = candidates[:b.mtry]
	}

	bestGini := math.Inf(1)
	bestFeature := -1
	bestThreshold := 0.0

	for _, feature := range candidates {
		values := make([]float64, 0, len(samples))
		for _, s := range samples {
			values = append(values, b.xs[s][feature])
		}
		sort.Float64s(values)

		for i := 1; i < len(values); i++ {
			if values[i] == values[i-1] {
				continue
			}
			threshold := (values[i] + values[i-1]) / 2
			gini := b.splitGini(samples, feature, threshold)
			if gini < bestGini {
				bestGini = gini
				bestFeature = feature
				bestThreshold = threshold
			}
		}
	}

	return bestFeature, bestThreshold, bestFeature >= 0
}

func (b *treeBuilder) splitGini(samples []int, feature int, threshold float64) float64 {
	leftCounts := make([]float64, b.numClasses)
	rightCounts := make([]float64, b.numClasses)
	leftTotal, rightTotal := 0.0, 0.0

	for _, s := range samples {
		if b.xs[s][feature] <= threshold {
			leftCounts[b.ys[s]]++
			leftTotal++
		} else {
			rightCounts[b.ys[s]]++
			rightTotal++
		}
	}

	total := leftTotal + rightTotal
	return leftTotal/total*gini(leftCounts, leftTotal) + rightTotal/total*gini(rightCounts, rightTotal)
}

func gini(counts []float64, total float64) float64 {
	if total == 0 {
		return 0
	}
	impurity := 1.0
	for _, c := range counts {
		p := c / total
		impurity -= p * p
	}
	return impurity
}
