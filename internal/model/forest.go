package model

// ForestParams fixes the ensemble hyperparameters and the training seed.
type ForestParams struct {
	Trees           int   `json:"trees"`
	MaxDepth        int   `json:"max_depth"`
	MinSamplesSplit int   `json:"min_samples_split"`
	Seed            int64 `json:"seed"`
}

// TreeNode is one node of a flattened decision tree. Internal nodes route on
// features[Feature] <= Threshold; leaves carry Left == -1 and a class
// distribution.
type TreeNode struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Left      int       `json:"left"`
	Right     int       `json:"right"`
	Dist      []float64 `json:"dist,omitempty"`
}

// Tree is a single decision tree stored as a node slice rooted at index 0.
type Tree struct {
	Nodes []TreeNode `json:"nodes"`
}

func (t *Tree) proba(features []float64, numClasses int) []float64 {
	if len(t.Nodes) == 0 {
		return uniformDist(numClasses)
	}
	idx := 0
	for {
		node := t.Nodes[idx]
		if node.Left < 0 {
			return node.Dist
		}
		feat := node.Feature
		if feat < 0 || feat >= len(features) {
			return uniformDist(numClasses)
		}
		if features[feat] <= node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}
}

// Forest is a bagged ensemble of gini-split decision trees.
type Forest struct {
	NumFeatures int          `json:"num_features"`
	NumClasses  int          `json:"num_classes"`
	Params      ForestParams `json:"params"`
	Trees       []Tree       `json:"trees"`
}

// Predict returns the class index with the highest averaged probability.
func (f *Forest) Predict(features []float64) int {
	proba := f.PredictProba(features)
	best := 0
	for i, p := range proba {
		if p > proba[best] {
			best = i
		}
	}
	return best
}

// PredictProba averages the per-tree leaf distributions.
func (f *Forest) PredictProba(features []float64) []float64 {
	if len(f.Trees) == 0 {
		return uniformDist(f.NumClasses)
	}
	sum := make([]float64, f.NumClasses)
	for i := range f.Trees {
		dist := f.Trees[i].proba(features, f.NumClasses)
		for c := 0; c < f.NumClasses && c < len(dist); c++ {
			sum[c] += dist[c]
		}
	}
	total := float64(len(f.Trees))
	for c := range sum {
		sum[c] /= total
	}
	return sum
}

func uniformDist(numClasses int) []float64 {
	if numClasses <= 0 {
		numClasses = 2
	}
	dist := make([]float64, numClasses)
	for i := range dist {
		dist[i] = 1.0 / float64(numClasses)
	}
	return dist
}
