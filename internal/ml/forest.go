package ml

import (
	"math"
	"math/rand"
	"sort"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"
)

// RandomForest is a bagged ensemble of CART trees with per-tree feature
// subsampling. Training is deterministic for a fixed seed: each tree draws
// from its own generator seeded from the base seed and its index.
type RandomForest struct {
	NumTrees   int
	MaxDepth   int
	MinSamples int
	Seed       int64

	trees        []*treeNode
	treeFeatures [][]int
	numFeatures  int
}

func NewRandomForest(numTrees, maxDepth int, seed int64) *RandomForest {
	if numTrees <= 0 {
		numTrees = 100
	}
	if maxDepth <= 0 {
		maxDepth = 10
	}
	return &RandomForest{
		NumTrees:   numTrees,
		MaxDepth:   maxDepth,
		MinSamples: 5,
		Seed:       seed,
	}
}

// Fit trains the forest on 0/1 labels. Trees train concurrently.
func (rf *RandomForest) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 {
		return eris.New("ml: forest: empty training data")
	}
	if len(X) != len(y) {
		return eris.New("ml: forest: feature and label counts differ")
	}
	rf.numFeatures = len(X[0])
	maxFeatures := int(math.Sqrt(float64(rf.numFeatures)))
	if maxFeatures < 1 {
		maxFeatures = 1
	}

	rf.trees = make([]*treeNode, rf.NumTrees)
	rf.treeFeatures = make([][]int, rf.NumTrees)
	params := treeParams{maxDepth: rf.MaxDepth, minSamples: rf.MinSamples, impurity: gini}

	var g errgroup.Group
	g.SetLimit(8)
	for t := 0; t < rf.NumTrees; t++ {
		t := t
		g.Go(func() error {
			rng := rand.New(rand.NewSource(rf.Seed + int64(t)))

			idx := make([]int, len(X))
			for i := range idx {
				idx[i] = rng.Intn(len(X))
			}
			features := samplePerm(rng, rf.numFeatures, maxFeatures)

			rf.trees[t] = buildTree(X, y, idx, features, 0, params)
			rf.treeFeatures[t] = features
			return nil
		})
	}
	return g.Wait()
}

// PredictProb returns the churn probability for one feature row, the mean
// of the tree leaf values.
func (rf *RandomForest) PredictProb(row []float64) float64 {
	if len(rf.trees) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range rf.trees {
		sum += t.predict(row)
	}
	return sum / float64(len(rf.trees))
}

// PredictProbs scores every row.
func (rf *RandomForest) PredictProbs(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, row := range X {
		out[i] = rf.PredictProb(row)
	}
	return out
}

func samplePerm(rng *rand.Rand, n, k int) []int {
	perm := rng.Perm(n)
	if k > n {
		k = n
	}
	features := perm[:k]
	sort.Ints(features)
	return features
}
