package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clearsight-analytics/churn-cli/internal/etl"
)

var (
	segContract string
	segPayment  string
	segInternet string
	segMonthly  float64
	segTenure   int
)

var segmentCmd = &cobra.Command{
	Use:   "segment",
	Short: "Preview segment assignment for a hypothetical customer",
	Long: `Scores a single customer profile against the effective segment rules
(defaults, then the rules file, then config overrides) and prints the
resulting segment, CLTV score, and risk score without touching the database.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rules, err := segmentRules()
		if err != nil {
			return err
		}

		if !etl.KnownCategoricals(segContract, segPayment, segInternet) {
			zap.L().Warn("unrecognized categorical value, scoring with zero risk contribution",
				zap.String("contract", segContract),
				zap.String("payment", segPayment),
				zap.String("internet", segInternet),
			)
		}

		assignment := rules.Assign("preview", segContract, segPayment, segInternet, segMonthly, segTenure)

		out := struct {
			Segment   string  `json:"segment"`
			SegmentID int     `json:"segment_id"`
			CLTVScore float64 `json:"cltv_score"`
			RiskScore float64 `json:"risk_score"`
		}{
			Segment:   assignment.Segment.String(),
			SegmentID: int(assignment.Segment),
			CLTVScore: assignment.CLTVScore,
			RiskScore: assignment.RiskScore,
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	segmentCmd.Flags().StringVar(&segContract, "contract", "Month-to-month", "contract type")
	segmentCmd.Flags().StringVar(&segPayment, "payment", "Electronic check", "payment method")
	segmentCmd.Flags().StringVar(&segInternet, "internet", "Fiber optic", "internet service")
	segmentCmd.Flags().Float64Var(&segMonthly, "monthly", 70, "monthly charges")
	segmentCmd.Flags().IntVar(&segTenure, "tenure", 12, "tenure in months")
	rootCmd.AddCommand(segmentCmd)
}
