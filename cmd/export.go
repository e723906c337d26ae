package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clearsight-analytics/churn-cli/internal/export"
)

var (
	exportFormat string
	exportDir    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export BI files from the warehouse",
	Long:  "Writes customer-level and aggregate CSV files and/or a multi-sheet XLSX workbook from the SQLite warehouse.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mirror, err := openMirror(nil)
		if err != nil {
			return err
		}
		defer mirror.Close() //nolint:errcheck

		dir := exportDir
		if dir == "" {
			dir = cfg.Export.Dir
		}

		exporter := export.NewExporter(mirror.DB())

		var paths []string
		switch exportFormat {
		case "csv":
			paths, err = exporter.ExportCSV(ctx, dir)
		case "xlsx":
			var p string
			p, err = exporter.ExportXLSX(ctx, dir)
			paths = []string{p}
		case "all":
			paths, err = exporter.ExportCSV(ctx, dir)
			if err == nil {
				var p string
				p, err = exporter.ExportXLSX(ctx, dir)
				paths = append(paths, p)
			}
		default:
			return eris.Errorf("export: unknown format %q (want csv, xlsx, or all)", exportFormat)
		}
		if err != nil {
			return eris.Wrap(err, "export")
		}

		zap.L().Info("export complete", zap.Int("files", len(paths)))
		for _, p := range paths {
			fmt.Println(p)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "all", "output format: csv, xlsx, or all")
	exportCmd.Flags().StringVar(&exportDir, "dir", "", "output directory (default from config)")
	rootCmd.AddCommand(exportCmd)
}
