package ml

import (
	"math"
	"math/rand"

	"github.com/rotisserie/eris"
)

// KMeansResult is a converged clustering of the feature matrix.
type KMeansResult struct {
	K          int
	Labels     []int
	Centroids  [][]float64
	Silhouette float64
}

const kmeansMaxIter = 100

// KMeans clusters standardized rows into k groups with Lloyd's algorithm,
// centroids seeded from a deterministic sample of distinct rows.
func KMeans(X [][]float64, k int, seed int64) (*KMeansResult, error) {
	if k < 2 {
		return nil, eris.Errorf("ml: kmeans: k must be at least 2, got %d", k)
	}
	if len(X) < k {
		return nil, eris.Errorf("ml: kmeans: %d rows cannot form %d clusters", len(X), k)
	}

	rng := rand.New(rand.NewSource(seed))
	centroids := make([][]float64, k)
	for i, idx := range rng.Perm(len(X))[:k] {
		centroids[i] = append([]float64(nil), X[idx]...)
	}

	labels := make([]int, len(X))
	for iter := 0; iter < kmeansMaxIter; iter++ {
		changed := false
		for i, row := range X {
			best, bestDist := 0, math.Inf(1)
			for c, centroid := range centroids {
				if d := sqDist(row, centroid); d < bestDist {
					best, bestDist = c, d
				}
			}
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		counts := make([]int, k)
		next := make([][]float64, k)
		for c := range next {
			next[c] = make([]float64, len(X[0]))
		}
		for i, row := range X {
			c := labels[i]
			counts[c]++
			for j, v := range row {
				next[c][j] += v
			}
		}
		for c := range next {
			if counts[c] == 0 {
				// Re-seed an emptied cluster from a random row.
				next[c] = append([]float64(nil), X[rng.Intn(len(X))]...)
				continue
			}
			for j := range next[c] {
				next[c][j] /= float64(counts[c])
			}
		}
		centroids = next
	}

	return &KMeansResult{
		K:          k,
		Labels:     labels,
		Centroids:  centroids,
		Silhouette: silhouette(X, labels, k),
	}, nil
}

// SelectK runs k-means for each k in [2, maxK] and returns the clustering
// with the highest mean silhouette.
func SelectK(X [][]float64, maxK int, seed int64) (*KMeansResult, error) {
	if maxK < 2 {
		maxK = 2
	}
	if maxK >= len(X) {
		maxK = len(X) - 1
	}

	var best *KMeansResult
	for k := 2; k <= maxK; k++ {
		res, err := KMeans(X, k, seed)
		if err != nil {
			return nil, err
		}
		if best == nil || res.Silhouette > best.Silhouette {
			best = res
		}
	}
	if best == nil {
		return nil, eris.New("ml: kmeans: too few rows to cluster")
	}
	return best, nil
}

// silhouette is the mean silhouette coefficient over all rows. Singleton
// clusters contribute zero.
func silhouette(X [][]float64, labels []int, k int) float64 {
	n := len(X)
	if n == 0 {
		return 0
	}

	sum := 0.0
	for i := range X {
		intra, inter := clusterDistances(X, labels, k, i)
		a := intra
		b := math.Inf(1)
		for c, d := range inter {
			if c != labels[i] && d < b {
				b = d
			}
		}
		if math.IsInf(b, 1) || (a == 0 && b == 0) {
			continue
		}
		sum += (b - a) / math.Max(a, b)
	}
	return sum / float64(n)
}

// clusterDistances returns the mean distance from row i to its own cluster
// (excluding itself) and to each cluster overall.
func clusterDistances(X [][]float64, labels []int, k, i int) (float64, []float64) {
	sums := make([]float64, k)
	counts := make([]int, k)
	for j, row := range X {
		if j == i {
			continue
		}
		d := math.Sqrt(sqDist(X[i], row))
		sums[labels[j]] += d
		counts[labels[j]]++
	}

	own := labels[i]
	intra := 0.0
	if counts[own] > 0 {
		intra = sums[own] / float64(counts[own])
	}
	means := make([]float64, k)
	for c := range means {
		if counts[c] > 0 {
			means[c] = sums[c] / float64(counts[c])
		} else {
			means[c] = math.Inf(1)
		}
	}
	return intra, means
}

func sqDist(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
