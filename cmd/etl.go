package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clearsight-analytics/churn-cli/internal/etl"
	"github.com/clearsight-analytics/churn-cli/internal/model"
)

var etlCmd = &cobra.Command{
	Use:   "etl",
	Short: "Customer data pipeline",
	Long:  "Extracts the customer CSV, assigns segments, loads the churn.* Postgres tables, and validates the result.",
}

var etlSource string

var etlRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full ETL pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pool, err := storePool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := etl.Migrate(ctx, pool); err != nil {
			return eris.Wrap(err, "etl run: migrate")
		}

		rules, err := segmentRules()
		if err != nil {
			return err
		}

		opts := etl.PipelineOptions{
			Extract:    extractOptions(etlSource),
			Rules:      rules,
			MaxRetries: cfg.ETL.MaxRetries,
			RetryDelay: time.Duration(cfg.ETL.RetryDelay) * time.Second,
		}

		if cfg.ETL.SyncMirror {
			mirror, err := openMirror(pool)
			if err != nil {
				return err
			}
			defer mirror.Close() //nolint:errcheck
			if err := mirror.Migrate(ctx); err != nil {
				return eris.Wrap(err, "etl run: migrate warehouse")
			}
			opts.Mirror = mirror
		}

		result, err := etl.NewPipeline(pool, opts).Run(ctx)
		if err != nil {
			return eris.Wrap(err, "etl run")
		}

		zap.L().Info("etl complete",
			zap.String("run_id", result.RunID),
			zap.Int("extracted", result.Extracted),
			zap.Int64("rows_loaded", result.RowsLoaded),
			zap.Float64("churn_rate", result.Validation.ChurnRate),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result.Validation)
	},
}

var etlMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply churn schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pool, err := storePool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := etl.Migrate(ctx, pool); err != nil {
			return eris.Wrap(err, "etl migrate")
		}

		fmt.Println("Migrations applied")
		return nil
	},
}

var etlStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pipeline run history",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pool, err := storePool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		runs, err := etl.NewRunLog(pool).ListAll(ctx)
		if err != nil {
			return eris.Wrap(err, "etl status")
		}

		if len(runs) == 0 {
			zap.L().Info("no pipeline runs found, run 'etl run' to load customer data")
			return nil
		}

		formatRuns(os.Stdout, runs)
		return nil
	},
}

// formatRuns writes a tabular view of pipeline runs to out.
func formatRuns(out io.Writer, runs []model.PipelineRun) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSOURCE\tSTATUS\tSTARTED\tDURATION\tROWS\tERROR")
	_, _ = fmt.Fprintln(w, "--\t------\t------\t-------\t--------\t----\t-----")

	for _, r := range runs {
		dur := "-"
		if r.CompletedAt != nil {
			dur = r.CompletedAt.Sub(r.StartedAt).Round(time.Second).String()
		}

		errMsg := ""
		if r.Error != "" {
			errMsg = truncate(r.Error, 60)
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			r.ID[:8],
			truncate(r.Source, 40),
			r.Status,
			r.StartedAt.Format("2006-01-02 15:04"),
			dur,
			r.RowsLoaded,
			errMsg,
		)
	}
	_ = w.Flush()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func init() {
	etlRunCmd.Flags().StringVar(&etlSource, "source", "", "customer CSV path or URL (default from config)")
	etlCmd.AddCommand(etlRunCmd)
	etlCmd.AddCommand(etlMigrateCmd)
	etlCmd.AddCommand(etlStatusCmd)
	rootCmd.AddCommand(etlCmd)
}
