package analytics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// GenerateReports renders the full Markdown report set into dir, one file
// per report, generated concurrently. Returns the paths written.
func (a *Analyzer) GenerateReports(ctx context.Context, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "analytics: create report dir %s", dir)
	}
	log := zap.L().With(zap.String("component", "analytics"))

	reports := []struct {
		file   string
		render func(context.Context) (string, error)
	}{
		{"churn_summary.md", a.renderChurnSummary},
		{"cohorts.md", a.renderCohorts},
		{"segments.md", a.renderSegments},
		{"correlations.md", a.renderCorrelations},
	}

	g, gctx := errgroup.WithContext(ctx)
	paths := make([]string, len(reports))
	for i, r := range reports {
		i, r := i, r
		g.Go(func() error {
			body, err := r.render(gctx)
			if err != nil {
				return err
			}
			path := filepath.Join(dir, r.file)
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				return eris.Wrapf(err, "analytics: write %s", r.file)
			}
			log.Info("report written", zap.String("path", path))
			paths[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

func (a *Analyzer) renderChurnSummary(ctx context.Context) (string, error) {
	overview, err := a.Overview(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Churn Summary\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", time.Now().UTC().Format(time.RFC3339))

	b.WriteString("## Overview\n")
	fmt.Fprintf(&b, "- Customers: %d\n", overview.TotalCustomers)
	fmt.Fprintf(&b, "- Churned: %d\n", overview.ChurnedCustomers)
	fmt.Fprintf(&b, "- Churn rate: %.2f%%\n", overview.ChurnRate)
	fmt.Fprintf(&b, "- Avg monthly charges: $%.2f\n", overview.AvgMonthlyCharges)
	fmt.Fprintf(&b, "- Avg tenure: %.2f months\n\n", overview.AvgTenureMonths)

	for _, dim := range []string{"contract_type", "payment_method", "internet_service", "gender", "senior_citizen", "partner", "dependents", "paperless_billing"} {
		stats, err := a.ChurnBy(ctx, dim)
		if err != nil {
			return "", err
		}
		writeGroupTable(&b, "Churn by "+strings.ReplaceAll(dim, "_", " "), stats)
	}

	addons, err := a.AddonChurn(ctx)
	if err != nil {
		return "", err
	}
	writeGroupTable(&b, "Churn among add-on subscribers", addons)

	return b.String(), nil
}

func (a *Analyzer) renderCohorts(ctx context.Context) (string, error) {
	var b strings.Builder
	b.WriteString("# Cohort Analysis\n\n")

	tenure, err := a.TenureBuckets(ctx)
	if err != nil {
		return "", err
	}
	writeGroupTable(&b, "Churn by tenure (months)", tenure)

	charges, err := a.ChargeBuckets(ctx)
	if err != nil {
		return "", err
	}
	writeGroupTable(&b, "Churn by monthly charges ($)", charges)

	risk, err := a.RiskBuckets(ctx)
	if err != nil {
		return "", err
	}
	writeGroupTable(&b, "Churn by risk score", risk)

	return b.String(), nil
}

func (a *Analyzer) renderSegments(ctx context.Context) (string, error) {
	summaries, err := a.SegmentCLTVSummary(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("# Segment Lifetime Value\n\n")
	b.WriteString("| Segment | Customers | Avg CLTV | Median CLTV | Total CLTV |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, s := range summaries {
		fmt.Fprintf(&b, "| %s | %d | $%.2f | $%.2f | $%.2f |\n",
			s.Segment, s.Customers, s.AvgCLTV, s.MedianCLTV, s.TotalCLTV)
	}
	b.WriteString("\n")
	return b.String(), nil
}

func (a *Analyzer) renderCorrelations(ctx context.Context) (string, error) {
	correlations, err := a.Correlations(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("# Feature Correlations with Churn\n\n")
	b.WriteString("Pearson correlation of each numeric feature against the churn label,\nstrongest first.\n\n")
	b.WriteString("| Feature | Pearson r |\n")
	b.WriteString("|---|---|\n")
	for _, c := range correlations {
		fmt.Fprintf(&b, "| %s | %+.4f |\n", c.Feature, c.Pearson)
	}
	b.WriteString("\n")
	return b.String(), nil
}

func writeGroupTable(b *strings.Builder, title string, stats []GroupStat) {
	fmt.Fprintf(b, "## %s\n", title)
	b.WriteString("| Group | Customers | Churned | Churn % | Avg Monthly | Avg Total | Avg Tenure |\n")
	b.WriteString("|---|---|---|---|---|---|---|\n")
	for _, s := range stats {
		fmt.Fprintf(b, "| %s | %d | %d | %.2f%% | $%.2f | $%.2f | %.1f |\n",
			s.Group, s.Customers, s.Churned, s.ChurnRate,
			s.AvgMonthlyCharges, s.AvgTotalCharges, s.AvgTenureMonths)
	}
	b.WriteString("\n")
}
