package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var warehouseCmd = &cobra.Command{
	Use:   "warehouse",
	Short: "SQLite analytical mirror",
	Long:  "Maintains the SQLite warehouse that the analytics, export, and chat commands read.",
}

var warehouseSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Rebuild the warehouse from Postgres",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pool, err := storePool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		mirror, err := openMirror(pool)
		if err != nil {
			return err
		}
		defer mirror.Close() //nolint:errcheck

		if err := mirror.Migrate(ctx); err != nil {
			return eris.Wrap(err, "warehouse sync: migrate")
		}
		if err := mirror.Sync(ctx); err != nil {
			return eris.Wrap(err, "warehouse sync")
		}

		fmt.Println("Warehouse synced to", cfg.Warehouse.Path)
		return nil
	},
}

var warehouseCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Run warehouse quality checks",
	Long:  "Compares row counts and churn rate between Postgres and the SQLite mirror.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pool, err := storePool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		mirror, err := openMirror(pool)
		if err != nil {
			return err
		}
		defer mirror.Close() //nolint:errcheck

		report, err := mirror.RunQualityChecks(ctx)
		if err != nil {
			return eris.Wrap(err, "warehouse check")
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "CHECK\tRESULT\tDETAIL")
		for _, c := range report.Checks {
			result := "PASS"
			if !c.Passed {
				result = "FAIL"
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", c.Name, result, c.Detail)
		}
		_ = w.Flush()

		if !report.Passed() {
			return eris.New("warehouse check: quality checks failed")
		}

		zap.L().Info("quality checks passed", zap.Int("checks", len(report.Checks)))
		return nil
	},
}

func init() {
	warehouseCmd.AddCommand(warehouseSyncCmd)
	warehouseCmd.AddCommand(warehouseCheckCmd)
	rootCmd.AddCommand(warehouseCmd)
}
