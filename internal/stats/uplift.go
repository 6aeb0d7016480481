package stats

import "math"

// Uplift returns the relative change from controlRate to variantRate in
// percent. A zero control rate returns 0, which also hides an "infinite"
// uplift from a zero baseline; check the raw counts before reading a 0.
func Uplift(controlRate, variantRate float64) float64 {
	if controlRate == 0 {
		return 0
	}
	return (variantRate - controlRate) / controlRate * 100
}

// RequiredSampleSize returns the per-variant sample size needed to detect a
// relative effect mde over baselineRate with the two-proportion formula.
//
// The z values are fixed at 1.96 and 0.84 (alpha 0.05 two-sided, power 0.8)
// whatever alpha and power are passed. That matches the numbers suites were
// planned with; use RequiredSampleSizeExact to honour the arguments.
// Non-positive rates or effects return 0.
func RequiredSampleSize(baselineRate, mde, alpha, power float64) int {
	const zAlpha = 1.96
	const zBeta = 0.84
	return sampleSize(baselineRate, mde, zAlpha, zBeta)
}

// RequiredSampleSizeExact is RequiredSampleSize with z values derived
// from alpha (two-sided) and power.
func RequiredSampleSizeExact(baselineRate, mde, alpha, power float64) int {
	if alpha <= 0 || alpha >= 1 || power <= 0 || power >= 1 {
		return 0
	}
	zAlpha := normalQuantile(1 - alpha/2)
	zBeta := normalQuantile(power)
	return sampleSize(baselineRate, mde, zAlpha, zBeta)
}

func sampleSize(baselineRate, mde, zAlpha, zBeta float64) int {
	if baselineRate <= 0 || mde <= 0 {
		return 0
	}

	p1 := baselineRate
	p2 := baselineRate * (1 + mde)
	pAvg := (p1 + p2) / 2

	n := math.Pow(zAlpha+zBeta, 2) * 2 * pAvg * (1 - pAvg) / math.Pow(p2-p1, 2)
	if math.IsNaN(n) || math.IsInf(n, 0) || n <= 0 {
		return 0
	}
	return int(math.Ceil(n))
}
