package ml

import (
	"math"
	"math/rand"

	"github.com/rotisserie/eris"
)

// GradientBoosting is a boosted ensemble of shallow regression trees fit to
// logistic residuals with shrinkage.
type GradientBoosting struct {
	NumTrees     int
	MaxDepth     int
	LearningRate float64
	Seed         int64

	trees    []*treeNode
	baseline float64
}

func NewGradientBoosting(numTrees int, learningRate float64, seed int64) *GradientBoosting {
	if numTrees <= 0 {
		numTrees = 100
	}
	if learningRate <= 0 {
		learningRate = 0.1
	}
	return &GradientBoosting{
		NumTrees:     numTrees,
		MaxDepth:     3,
		LearningRate: learningRate,
		Seed:         seed,
	}
}

// Fit trains the ensemble on 0/1 labels. Each round fits a variance-split
// tree to the residual y - sigmoid(F) and adds it with shrinkage. A random
// half of the features is considered per round.
func (gb *GradientBoosting) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 {
		return eris.New("ml: boosting: empty training data")
	}
	if len(X) != len(y) {
		return eris.New("ml: boosting: feature and label counts differ")
	}

	pos := 0.0
	for _, v := range y {
		pos += v
	}
	rate := pos / float64(len(y))
	// Log-odds of the base rate, clamped away from the degenerate cases.
	rate = math.Min(math.Max(rate, 1e-6), 1-1e-6)
	gb.baseline = math.Log(rate / (1 - rate))

	nFeat := len(X[0])
	half := nFeat / 2
	if half < 1 {
		half = 1
	}
	params := treeParams{maxDepth: gb.MaxDepth, minSamples: 5, impurity: variance}

	scores := make([]float64, len(X))
	for i := range scores {
		scores[i] = gb.baseline
	}
	all := make([]int, len(X))
	for i := range all {
		all[i] = i
	}

	residuals := make([]float64, len(X))
	gb.trees = make([]*treeNode, 0, gb.NumTrees)
	rng := rand.New(rand.NewSource(gb.Seed))
	for t := 0; t < gb.NumTrees; t++ {
		for i := range X {
			residuals[i] = y[i] - sigmoid(scores[i])
		}
		features := samplePerm(rng, nFeat, half)
		tree := buildTree(X, residuals, all, features, 0, params)
		gb.trees = append(gb.trees, tree)
		for i, row := range X {
			scores[i] += gb.LearningRate * tree.predict(row)
		}
	}
	return nil
}

// PredictProb returns the churn probability for one feature row.
func (gb *GradientBoosting) PredictProb(row []float64) float64 {
	score := gb.baseline
	for _, t := range gb.trees {
		score += gb.LearningRate * t.predict(row)
	}
	return sigmoid(score)
}

// PredictProbs scores every row.
func (gb *GradientBoosting) PredictProbs(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, row := range X {
		out[i] = gb.PredictProb(row)
	}
	return out
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
