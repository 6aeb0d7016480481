package stats

import "math"

// Interval is a confidence interval for a binomial proportion.
type Interval struct {
	Lower  float64 `json:"lower"`
	Upper  float64 `json:"upper"`
	Margin float64 `json:"margin"`
}

// ConfidenceInterval uses the normal approximation to the binomial:
// p ± z·sqrt(p(1-p)/n), clamped to [0, 1]. Only 95% (z=1.96) and 99%
// (z=2.576) are supported; any level other than 0.95 uses the 99% z.
// Zero trials return the zero interval.
func ConfidenceInterval(successes, trials int, confidence float64) Interval {
	if trials == 0 {
		return Interval{}
	}

	p := float64(successes) / float64(trials)
	z := 2.576
	if confidence == 0.95 {
		z = 1.96
	}
	margin := z * math.Sqrt(p*(1-p)/float64(trials))
	lower := math.Max(0, p-margin)
	upper := math.Min(1, p+margin)

	// Margin is the half-width of the reported interval, so it shrinks when
	// a bound is clamped.
	return Interval{
		Lower:  lower,
		Upper:  upper,
		Margin: (upper - lower) / 2,
	}
}

// WilsonInterval is the Wilson score interval, which stays inside [0, 1]
// and keeps a non-zero width at 0% and 100% where the normal approximation
// collapses. Unlike ConfidenceInterval it accepts any level in (0, 1).
func WilsonInterval(successes, trials int, confidence float64) Interval {
	if trials == 0 {
		return Interval{}
	}

	z := ZScore(confidence)
	n := float64(trials)
	p := float64(successes) / n
	z2 := z * z

	denom := 1 + z2/n
	center := (p + z2/(2*n)) / denom
	spread := z / denom * math.Sqrt(p*(1-p)/n+z2/(4*n*n))

	lower := math.Max(0, center-spread)
	upper := math.Min(1, center+spread)
	return Interval{
		Lower:  lower,
		Upper:  upper,
		Margin: (upper - lower) / 2,
	}
}

// ZScore is the two-sided critical value for a confidence level, the
// standard normal quantile at (1+confidence)/2.
func ZScore(confidence float64) float64 {
	return normalQuantile((1 + confidence) / 2)
}

// Acklam's rational approximation to the inverse normal CDF, relative
// error below 1.15e-9.
var (
	quantileA = [6]float64{-3.969683028665376e+01, 2.209460984245205e+02, -2.759285104469687e+02, 1.383577518672690e+02, -3.066479806614716e+01, 2.506628277459239e+00}
	quantileB = [5]float64{-5.447609879822406e+01, 1.615858368580409e+02, -1.556989798598866e+02, 6.680131188771972e+01, -1.328068155288572e+01}
	quantileC = [6]float64{-7.784894002430293e-03, -3.223964580411365e-01, -2.400758277161838e+00, -2.549732539343734e+00, 4.374664141464968e+00, 2.938163982698783e+00}
	quantileD = [4]float64{7.784695709041462e-03, 3.224671290700398e-01, 2.445134137142996e+00, 3.754408661907416e+00}
)

const quantileTail = 0.02425

// normalQuantile returns x with Phi(x) = p. p outside (0, 1) gives ±Inf.
func normalQuantile(p float64) float64 {
	switch {
	case p <= 0:
		return math.Inf(-1)
	case p >= 1:
		return math.Inf(1)
	case p < quantileTail:
		return quantileTailValue(p)
	case p > 1-quantileTail:
		return -quantileTailValue(1 - p)
	}

	q := p - 0.5
	r := q * q
	a, b := quantileA, quantileB
	num := (((((a[0]*r+a[1])*r+a[2])*r+a[3])*r+a[4])*r + a[5]) * q
	den := ((((b[0]*r+b[1])*r+b[2])*r+b[3])*r+b[4])*r + 1
	return num / den
}

// quantileTailValue covers the lower tail; the upper tail is its mirror.
func quantileTailValue(p float64) float64 {
	q := math.Sqrt(-2 * math.Log(p))
	c, d := quantileC, quantileD
	num := ((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]
	den := (((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1
	return num / den
}
