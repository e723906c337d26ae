package export

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ExportCSV writes the customer extract and the per-dimension aggregate
// tables as CSV files under dir, returning the paths written.
func (e *Exporter) ExportCSV(ctx context.Context, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "export: create dir %s", dir)
	}
	log := zap.L().With(zap.String("component", "export"))

	customers, err := e.customers(ctx)
	if err != nil {
		return nil, err
	}

	files := []struct {
		name string
		rows any
	}{
		{"customers.csv", customers},
	}
	for _, dim := range []string{"contract_type", "payment_method", "internet_service"} {
		stats, err := e.analyzer.ChurnBy(ctx, dim)
		if err != nil {
			return nil, err
		}
		files = append(files, struct {
			name string
			rows any
		}{"churn_by_" + dim + ".csv", toGroupRows(stats)})
	}

	segments, err := e.analyzer.SegmentCLTVSummary(ctx)
	if err != nil {
		return nil, err
	}
	files = append(files, struct {
		name string
		rows any
	}{"segment_cltv.csv", toSegmentRows(segments)})

	var paths []string
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := writeCSV(path, f.rows); err != nil {
			return nil, err
		}
		log.Info("csv written", zap.String("path", path))
		paths = append(paths, path)
	}
	return paths, nil
}

func writeCSV(path string, rows any) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	enc := csvutil.NewEncoder(w)
	if err := enc.Encode(rows); err != nil {
		return eris.Wrapf(err, "export: encode %s", path)
	}
	w.Flush()
	return eris.Wrapf(w.Error(), "export: flush %s", path)
}
