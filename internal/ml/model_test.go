package ml

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syntheticDataset builds a linearly separable two-feature set: the label is
// 1 when the first feature exceeds 0.5, with the second feature as noise.
func syntheticDataset(n int, seed int64) ([][]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := range X {
		a, b := rng.Float64(), rng.Float64()
		X[i] = []float64{a, b}
		if a > 0.5 {
			y[i] = 1
		}
	}
	return X, y
}

func TestRandomForest_LearnsSeparableData(t *testing.T) {
	X, y := syntheticDataset(300, 1)
	forest := NewRandomForest(25, 6, 42)
	require.NoError(t, forest.Fit(X, y))

	holdX, holdY := syntheticDataset(100, 2)
	m := Evaluate(forest.PredictProbs(holdX), holdY)
	assert.Greater(t, m.Accuracy, 0.85)
}

func TestRandomForest_Deterministic(t *testing.T) {
	X, y := syntheticDataset(200, 3)

	a := NewRandomForest(10, 5, 42)
	require.NoError(t, a.Fit(X, y))
	b := NewRandomForest(10, 5, 42)
	require.NoError(t, b.Fit(X, y))

	probe, _ := syntheticDataset(20, 4)
	assert.Equal(t, a.PredictProbs(probe), b.PredictProbs(probe))
}

func TestRandomForest_EmptyData(t *testing.T) {
	err := NewRandomForest(5, 3, 42).Fit(nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty training data")
}

func TestGradientBoosting_LearnsSeparableData(t *testing.T) {
	X, y := syntheticDataset(300, 5)
	boosting := NewGradientBoosting(50, 0.1, 42)
	require.NoError(t, boosting.Fit(X, y))

	holdX, holdY := syntheticDataset(100, 6)
	m := Evaluate(boosting.PredictProbs(holdX), holdY)
	assert.Greater(t, m.Accuracy, 0.85)
}

func TestGradientBoosting_ProbabilitiesBounded(t *testing.T) {
	X, y := syntheticDataset(200, 7)
	boosting := NewGradientBoosting(30, 0.1, 42)
	require.NoError(t, boosting.Fit(X, y))

	for _, p := range boosting.PredictProbs(X) {
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
	}
}

func TestEvaluate_ConfusionMatrix(t *testing.T) {
	// 2 TP, 1 FP, 1 FN, 4 TN.
	probs := []float64{0.9, 0.8, 0.7, 0.2, 0.1, 0.1, 0.3, 0.4}
	labels := []float64{1, 1, 0, 1, 0, 0, 0, 0}

	m := Evaluate(probs, labels)
	assert.InDelta(t, 0.75, m.Accuracy, 0.001)
	assert.InDelta(t, 2.0/3.0, m.Precision, 0.001)
	assert.InDelta(t, 2.0/3.0, m.Recall, 0.001)
	assert.InDelta(t, 2.0/3.0, m.F1, 0.001)
}

func TestEvaluate_Empty(t *testing.T) {
	assert.Equal(t, Metrics{}, Evaluate(nil, nil))
}

// blobs builds two tight, well-separated clusters.
func blobs(n int, seed int64) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	truth := make([]int, n)
	for i := range X {
		center := 0.0
		if i%2 == 1 {
			center = 10
			truth[i] = 1
		}
		X[i] = []float64{center + rng.NormFloat64()*0.3, center + rng.NormFloat64()*0.3}
	}
	return X, truth
}

func TestKMeans_SeparatesBlobs(t *testing.T) {
	X, truth := blobs(60, 1)
	res, err := KMeans(X, 2, 42)
	require.NoError(t, err)
	assert.Greater(t, res.Silhouette, 0.8)

	// Each true blob must map to a single cluster label.
	seen := map[int]int{}
	for i, label := range res.Labels {
		if prev, ok := seen[truth[i]]; ok {
			assert.Equal(t, prev, label)
		} else {
			seen[truth[i]] = label
		}
	}
	assert.Len(t, seen, 2)
}

func TestKMeans_RejectsBadK(t *testing.T) {
	X, _ := blobs(10, 2)
	_, err := KMeans(X, 1, 42)
	require.Error(t, err)

	_, err = KMeans(X[:3], 5, 42)
	require.Error(t, err)
}

func TestSelectK_PrefersTwoBlobs(t *testing.T) {
	X, _ := blobs(60, 3)
	res, err := SelectK(X, 6, 42)
	require.NoError(t, err)
	assert.Equal(t, 2, res.K)
}

func TestKMeans_Deterministic(t *testing.T) {
	X, _ := blobs(40, 4)
	a, err := KMeans(X, 2, 42)
	require.NoError(t, err)
	b, err := KMeans(X, 2, 42)
	require.NoError(t, err)
	assert.Equal(t, a.Labels, b.Labels)
}
