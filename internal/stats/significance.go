package stats

import "math"

// SignificanceLevel is the p-value threshold below which a difference is
// flagged significant.
const SignificanceLevel = 0.05

// Significance is the outcome of a control/variant proportion test.
type Significance struct {
	PValue      float64 `json:"pValue"`
	Significant bool    `json:"significant"`
}

// ChiSquareTest compares two conversion proportions with one degree of
// freedom. The statistic is built from the success cells against their
// pooled expected counts, and the p-value is approximated as
// 1 - Φ(√χ²). This is a directional flag, not publication-grade
// inference.
//
// Degenerate input (an empty arm, or no successes at all) yields
// PValue 1 and not significant.
func ChiSquareTest(controlSuccess, controlTotal, variantSuccess, variantTotal int) Significance {
	n := float64(controlTotal + variantTotal)
	pooled := float64(controlSuccess + variantSuccess)
	if controlTotal <= 0 || variantTotal <= 0 || pooled == 0 {
		return Significance{PValue: 1}
	}

	expectedControl := float64(controlTotal) * pooled / n
	expectedVariant := float64(variantTotal) * pooled / n

	chiSquare := math.Pow(float64(controlSuccess)-expectedControl, 2)/expectedControl +
		math.Pow(float64(variantSuccess)-expectedVariant, 2)/expectedVariant

	pValue := 1 - normalCDF(math.Sqrt(chiSquare))

	return Significance{
		PValue:      pValue,
		Significant: pValue < SignificanceLevel,
	}
}

// normalCDF approximates the cumulative distribution function
// of the standard normal distribution
func normalCDF(x float64) float64 {
	// Zelen & Severo polynomial, Abramowitz and Stegun formula 26.2.17
	t := 1 / (1 + 0.2316419*math.Abs(x))
	d := 0.3989423 * math.Exp(-x*x/2)
	prob := d * t * (0.3193815 +
		t*(-0.3565638+t*(1.781478+t*(-1.821256+t*1.330274))))

	if x > 0 {
		return 1 - prob
	}
	return prob
}
