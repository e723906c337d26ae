package ml

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/clearsight-analytics/churn-cli/internal/db"
)

// Model names persisted with each prediction row.
const (
	ModelRandomForest     = "random_forest"
	ModelGradientBoosting = "gradient_boosting"
)

// TrainOptions tunes the classifier run.
type TrainOptions struct {
	Seed         int64
	TestFrac     float64
	Trees        int
	MaxDepth     int
	LearningRate float64
}

// ModelReport carries holdout metrics for one trained model.
type ModelReport struct {
	Model   string
	Metrics Metrics
}

// TrainResult summarizes a full train-evaluate-predict run.
type TrainResult struct {
	Customers   int
	TrainSize   int
	TestSize    int
	Reports     []ModelReport
	Predictions int64
}

// Trainer trains the churn classifiers and writes their predictions back to
// the store.
type Trainer struct {
	pool db.Pool
	log  *zap.Logger
}

func NewTrainer(pool db.Pool) *Trainer {
	return &Trainer{
		pool: pool,
		log:  zap.L().With(zap.String("component", "ml.trainer")),
	}
}

// TrainAndPredict loads the full customer view, trains both ensembles on a
// deterministic split, evaluates them on the holdout, then scores every
// customer and upserts the predictions.
func (t *Trainer) TrainAndPredict(ctx context.Context, opts TrainOptions) (*TrainResult, error) {
	if opts.TestFrac <= 0 || opts.TestFrac >= 1 {
		opts.TestFrac = 0.2
	}

	ds, err := LoadDataset(ctx, t.pool)
	if err != nil {
		return nil, err
	}
	X, y := ds.Matrix()
	scaled, _, _ := Standardize(X)
	trainIdx, testIdx := Split(len(scaled), opts.TestFrac, opts.Seed)

	trainX, trainY := subset(scaled, y, trainIdx)
	testX, testY := subset(scaled, y, testIdx)
	t.log.Info("dataset split",
		zap.Int("train", len(trainIdx)), zap.Int("test", len(testIdx)))

	forest := NewRandomForest(opts.Trees, opts.MaxDepth, opts.Seed)
	if err := forest.Fit(trainX, trainY); err != nil {
		return nil, err
	}
	boosting := NewGradientBoosting(opts.Trees, opts.LearningRate, opts.Seed)
	if err := boosting.Fit(trainX, trainY); err != nil {
		return nil, err
	}

	result := &TrainResult{
		Customers: len(ds.Samples),
		TrainSize: len(trainIdx),
		TestSize:  len(testIdx),
	}

	now := time.Now().UTC()
	var rows [][]any
	for _, m := range []struct {
		name    string
		predict func([][]float64) []float64
	}{
		{ModelRandomForest, forest.PredictProbs},
		{ModelGradientBoosting, boosting.PredictProbs},
	} {
		metrics := Evaluate(m.predict(testX), testY)
		result.Reports = append(result.Reports, ModelReport{Model: m.name, Metrics: metrics})
		t.log.Info("model evaluated", zap.String("model", m.name),
			zap.Float64("accuracy", metrics.Accuracy),
			zap.Float64("f1", metrics.F1))

		for i, p := range m.predict(scaled) {
			rows = append(rows, []any{
				ds.Samples[i].CustomerID, m.name, p, p >= 0.5, now,
			})
		}
	}

	affected, err := db.BulkUpsert(ctx, t.pool, db.UpsertConfig{
		Table:        "churn.churn_predictions",
		Columns:      []string{"customer_id", "model", "probability", "predicted", "created_at"},
		ConflictKeys: []string{"customer_id", "model"},
	}, rows)
	if err != nil {
		return nil, err
	}
	result.Predictions = affected
	return result, nil
}

// ClusterProfile describes one discovered cluster.
type ClusterProfile struct {
	Cluster           int
	Customers         int
	ChurnRate         float64
	AvgMonthlyCharges float64
	AvgTenureMonths   float64
}

// ClusterResult summarizes a clustering run.
type ClusterResult struct {
	K          int
	Silhouette float64
	Profiles   []ClusterProfile
	Assigned   int64
}

// Cluster groups customers with k-means, picking k by silhouette over
// [2, maxK], and upserts the assignments.
func (t *Trainer) Cluster(ctx context.Context, maxK int, seed int64) (*ClusterResult, error) {
	ds, err := LoadDataset(ctx, t.pool)
	if err != nil {
		return nil, err
	}
	X, _ := ds.Matrix()
	scaled, _, _ := Standardize(X)

	res, err := SelectK(scaled, maxK, seed)
	if err != nil {
		return nil, err
	}
	t.log.Info("clusters selected",
		zap.Int("k", res.K), zap.Float64("silhouette", res.Silhouette))

	now := time.Now().UTC()
	rows := make([][]any, len(ds.Samples))
	for i, s := range ds.Samples {
		rows[i] = []any{s.CustomerID, res.Labels[i], now}
	}
	affected, err := db.BulkUpsert(ctx, t.pool, db.UpsertConfig{
		Table:        "churn.customer_clusters",
		Columns:      []string{"customer_id", "cluster", "created_at"},
		ConflictKeys: []string{"customer_id"},
	}, rows)
	if err != nil {
		return nil, err
	}

	return &ClusterResult{
		K:          res.K,
		Silhouette: res.Silhouette,
		Profiles:   profiles(ds, res),
		Assigned:   affected,
	}, nil
}

// profiles computes per-cluster averages from the unscaled features.
func profiles(ds *Dataset, res *KMeansResult) []ClusterProfile {
	out := make([]ClusterProfile, res.K)
	for c := range out {
		out[c].Cluster = c
	}

	var churned, monthly, tenure []float64
	for c := 0; c < res.K; c++ {
		churned, monthly, tenure = churned[:0], monthly[:0], tenure[:0]
		for i, s := range ds.Samples {
			if res.Labels[i] != c {
				continue
			}
			churned = append(churned, s.Label)
			monthly = append(monthly, s.Features[featureIndex("monthly_charges")])
			tenure = append(tenure, s.Features[featureIndex("tenure_months")])
		}
		out[c].Customers = len(churned)
		if len(churned) > 0 {
			out[c].ChurnRate = avg(churned) * 100
			out[c].AvgMonthlyCharges = avg(monthly)
			out[c].AvgTenureMonths = avg(tenure)
		}
	}
	return out
}

func featureIndex(name string) int {
	for i, f := range FeatureNames {
		if f == name {
			return i
		}
	}
	return 0
}

func avg(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func subset(X [][]float64, y []float64, idx []int) ([][]float64, []float64) {
	outX := make([][]float64, len(idx))
	outY := make([]float64, len(idx))
	for i, row := range idx {
		outX[i] = X[row]
		outY[i] = y[row]
	}
	return outX, outY
}
