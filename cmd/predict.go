package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clearsight-analytics/churn-cli/internal/ml"
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Train churn classifiers and score all customers",
	Long:  "Trains a random forest and a gradient boosting classifier on the loaded customers, reports holdout metrics, and upserts per-customer churn probabilities.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pool, err := storePool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		result, err := ml.NewTrainer(pool).TrainAndPredict(ctx, ml.TrainOptions{
			Seed:         cfg.ML.Seed,
			TestFrac:     cfg.ML.TestFrac,
			Trees:        cfg.ML.Trees,
			MaxDepth:     cfg.ML.MaxDepth,
			LearningRate: cfg.ML.LearningRate,
		})
		if err != nil {
			return eris.Wrap(err, "predict")
		}

		zap.L().Info("training complete",
			zap.Int("customers", result.Customers),
			zap.Int("train", result.TrainSize),
			zap.Int("test", result.TestSize),
		)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "MODEL\tACCURACY\tPRECISION\tRECALL\tF1")
		for _, r := range result.Reports {
			_, _ = fmt.Fprintf(w, "%s\t%.4f\t%.4f\t%.4f\t%.4f\n",
				r.Model, r.Metrics.Accuracy, r.Metrics.Precision, r.Metrics.Recall, r.Metrics.F1)
		}
		return w.Flush()
	},
}

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Cluster customers by behavior",
	Long:  "Runs k-means over the engineered customer features, picking k by silhouette score, and upserts per-customer cluster assignments.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pool, err := storePool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		result, err := ml.NewTrainer(pool).Cluster(ctx, cfg.ML.MaxClusters, cfg.ML.Seed)
		if err != nil {
			return eris.Wrap(err, "cluster")
		}

		zap.L().Info("clustering complete",
			zap.Int("k", result.K),
			zap.Float64("silhouette", result.Silhouette),
		)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "CLUSTER\tSIZE\tCHURN%\tAVG MONTHLY\tAVG TENURE")
		for _, p := range result.Profiles {
			_, _ = fmt.Fprintf(w, "%d\t%d\t%.1f\t%.2f\t%.1f\n",
				p.Cluster, p.Customers, p.ChurnRate, p.AvgMonthlyCharges, p.AvgTenureMonths)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(clusterCmd)
}
