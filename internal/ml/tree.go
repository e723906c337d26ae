package ml

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// treeNode is one node of a CART tree. Leaves carry the mean target of the
// samples that reached them, which doubles as a class probability when the
// targets are 0/1 labels.
type treeNode struct {
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
	value     float64
	leaf      bool
}

// impurityFunc scores a set of targets; lower is purer. Gini for
// classification, variance for regression on residuals.
type impurityFunc func([]float64) float64

func gini(labels []float64) float64 {
	if len(labels) == 0 {
		return 0
	}
	counts := map[float64]int{}
	for _, l := range labels {
		counts[l]++
	}
	impurity := 1.0
	total := float64(len(labels))
	for _, c := range counts {
		p := float64(c) / total
		impurity -= p * p
	}
	return impurity
}

func variance(targets []float64) float64 {
	if len(targets) < 2 {
		return 0
	}
	return stat.Variance(targets, nil)
}

type treeParams struct {
	maxDepth   int
	minSamples int
	impurity   impurityFunc
}

// buildTree grows a CART tree over the rows indexed by idx, considering only
// the columns in features for splits. Thresholds are the column median of the
// current node's rows.
func buildTree(X [][]float64, y []float64, idx []int, features []int, depth int, p treeParams) *treeNode {
	if depth >= p.maxDepth || len(idx) < p.minSamples || homogeneous(y, idx) {
		return &treeNode{leaf: true, value: meanAt(y, idx)}
	}

	feature, threshold, gain := bestSplit(X, y, idx, features, p.impurity)
	if gain <= 0 {
		return &treeNode{leaf: true, value: meanAt(y, idx)}
	}

	left, right := partition(X, idx, feature, threshold)
	if len(left) == 0 || len(right) == 0 {
		return &treeNode{leaf: true, value: meanAt(y, idx)}
	}

	return &treeNode{
		feature:   feature,
		threshold: threshold,
		left:      buildTree(X, y, left, features, depth+1, p),
		right:     buildTree(X, y, right, features, depth+1, p),
	}
}

func bestSplit(X [][]float64, y []float64, idx, features []int, impurity impurityFunc) (int, float64, float64) {
	parent := impurityAt(y, idx, impurity)
	total := float64(len(idx))

	bestFeature, bestThreshold, bestGain := 0, 0.0, 0.0
	values := make([]float64, len(idx))
	for _, f := range features {
		for i, row := range idx {
			values[i] = X[row][f]
		}
		threshold := stat.Quantile(0.5, stat.Empirical, sorted(values), nil)

		left, right := partition(X, idx, f, threshold)
		if len(left) == 0 || len(right) == 0 {
			continue
		}
		gain := parent -
			(float64(len(left))/total)*impurityAt(y, left, impurity) -
			(float64(len(right))/total)*impurityAt(y, right, impurity)
		if gain > bestGain {
			bestGain, bestFeature, bestThreshold = gain, f, threshold
		}
	}
	return bestFeature, bestThreshold, bestGain
}

func (n *treeNode) predict(row []float64) float64 {
	for !n.leaf {
		if row[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

func partition(X [][]float64, idx []int, feature int, threshold float64) (left, right []int) {
	for _, i := range idx {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return left, right
}

func homogeneous(y []float64, idx []int) bool {
	if len(idx) == 0 {
		return true
	}
	first := y[idx[0]]
	for _, i := range idx {
		if y[i] != first {
			return false
		}
	}
	return true
}

func meanAt(y []float64, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	sum := 0.0
	for _, i := range idx {
		sum += y[i]
	}
	return sum / float64(len(idx))
}

func impurityAt(y []float64, idx []int, impurity impurityFunc) float64 {
	vals := make([]float64, len(idx))
	for i, row := range idx {
		vals[i] = y[row]
	}
	return impurity(vals)
}

// sorted copies values into ascending order; stat.Quantile requires it.
func sorted(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	sort.Float64s(out)
	return out
}
