package report

import (
	"github.com/headline-goat/funnel-goat/internal/stats"
)

// VariantComparison is one challenger measured against the control.
type VariantComparison struct {
	Variant             string  `json:"variant"`
	CTRUpliftPct        float64 `json:"ctrUpliftPct"`
	ConversionUpliftPct float64 `json:"conversionUpliftPct"`
	TimeChangePct       float64 `json:"timeChangePct"`
	PValue              float64 `json:"pValue"`
	Significant         bool    `json:"significant"`
}

// ConversionInterval is a variant's conversion rate with its intervals.
type ConversionInterval struct {
	Variant     string         `json:"variant"`
	Rate        float64        `json:"rate"`
	CI95        stats.Interval `json:"ci95"`
	WilsonLower float64        `json:"wilsonLower"`
	WilsonUpper float64        `json:"wilsonUpper"`
}

// Comparison is the pairwise verdict of a suite.
//
// Winner is the point-estimate leader by conversion rate, ties going to
// the earlier summary, and is not gated on significance. WinnerSignificant says whether the chi-square test backs
// it; callers wanting a stricter rule combine both.
type Comparison struct {
	ControlVariant    string               `json:"control"`
	Variants          []VariantComparison  `json:"perVariantUplift"`
	Intervals         []ConversionInterval `json:"intervals"`
	Winner            string               `json:"winner"`
	WinnerSignificant bool                 `json:"winnerSignificant"`
}

// Compare measures every summary against the named control. It returns nil
// with fewer than two summaries. The control must be one of the summaries.
func Compare(summaries []VariantSummary, control string) *Comparison {
	if len(summaries) < 2 {
		return nil
	}

	arms := make([]stats.Arm, len(summaries))
	for i, s := range summaries {
		arms[i] = stats.Arm{
			Name:      s.Variant,
			Successes: s.Metrics.FormCompletions,
			Trials:    s.Metrics.Impressions,
		}
	}
	analysis := stats.Analyze(arms, control)
	ctrl := summaries[analysis.Control]

	cmp := &Comparison{
		ControlVariant: ctrl.Variant,
		Winner:         summaries[analysis.Leading].Variant,
	}

	for i, arm := range analysis.Arms {
		cmp.Intervals = append(cmp.Intervals, ConversionInterval{
			Variant:     arm.Name,
			Rate:        arm.Rate,
			CI95:        arm.CI,
			WilsonLower: arm.Wilson.Lower,
			WilsonUpper: arm.Wilson.Upper,
		})

		if i == analysis.Control {
			continue
		}
		s := summaries[i]
		cmp.Variants = append(cmp.Variants, VariantComparison{
			Variant:             s.Variant,
			CTRUpliftPct:        stats.Uplift(ctrl.Metrics.CTR, s.Metrics.CTR),
			ConversionUpliftPct: stats.Uplift(ctrl.Metrics.ConversionRate, s.Metrics.ConversionRate),
			TimeChangePct:       stats.Uplift(ctrl.Metrics.AvgTimeToConversion, s.Metrics.AvgTimeToConversion),
			PValue:              arm.Significance.PValue,
			Significant:         arm.Significance.Significant,
		})
	}

	cmp.WinnerSignificant = winnerSignificant(cmp)
	return cmp
}

// winnerSignificant: a challenger winner must beat the control
// significantly; a control winner must beat every challenger significantly.
func winnerSignificant(cmp *Comparison) bool {
	if cmp.Winner == cmp.ControlVariant {
		for _, v := range cmp.Variants {
			if !v.Significant {
				return false
			}
		}
		return len(cmp.Variants) > 0
	}
	for _, v := range cmp.Variants {
		if v.Variant == cmp.Winner {
			return v.Significant
		}
	}
	return false
}
