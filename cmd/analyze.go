package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clearsight-analytics/churn-cli/internal/analytics"
)

var analyzeDir string

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Generate churn analysis reports",
	Long:  "Writes markdown reports (churn summary, cohorts, segments, correlations) from the SQLite warehouse. Run 'warehouse sync' first.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mirror, err := openMirror(nil)
		if err != nil {
			return err
		}
		defer mirror.Close() //nolint:errcheck

		dir := analyzeDir
		if dir == "" {
			dir = cfg.Analytics.ReportDir
		}

		paths, err := analytics.NewAnalyzer(mirror.DB()).GenerateReports(ctx, dir)
		if err != nil {
			return eris.Wrap(err, "analyze")
		}

		zap.L().Info("reports generated", zap.Int("count", len(paths)))
		for _, p := range paths {
			fmt.Println(p)
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeDir, "dir", "", "report output directory (default from config)")
	rootCmd.AddCommand(analyzeCmd)
}
