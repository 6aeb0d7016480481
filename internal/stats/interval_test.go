package stats_test

import (
	"math"
	"testing"

	"github.com/headline-goat/funnel-goat/internal/stats"
)

func TestConfidenceInterval_ZeroTrials(t *testing.T) {
	for _, successes := range []int{0, 1, 50} {
		ci := stats.ConfidenceInterval(successes, 0, 0.95)
		if ci != (stats.Interval{}) {
			t.Errorf("ConfidenceInterval(%d, 0) = %+v, want zero interval", successes, ci)
		}
	}
}

func TestConfidenceInterval_Bounds(t *testing.T) {
	for _, level := range []float64{0.95, 0.99} {
		for total := 1; total <= 60; total++ {
			for success := 0; success <= total; success++ {
				ci := stats.ConfidenceInterval(success, total, level)

				if ci.Lower < 0 || ci.Lower > ci.Upper || ci.Upper > 1 {
					t.Fatalf("(%d/%d @%.2f): bounds out of order: %+v", success, total, level, ci)
				}
				if math.Abs((ci.Upper-ci.Lower)-2*ci.Margin) > 1e-12 {
					t.Fatalf("(%d/%d @%.2f): width %f != 2*margin %f", success, total, level, ci.Upper-ci.Lower, 2*ci.Margin)
				}
			}
		}
	}
}

func TestConfidenceInterval_50Percent(t *testing.T) {
	ci := stats.ConfidenceInterval(50, 100, 0.95)

	// p=0.5, margin = 1.96 * 0.05 = 0.098
	if math.Abs(ci.Margin-0.098) > 1e-9 {
		t.Errorf("got margin %f, want 0.098", ci.Margin)
	}
	if math.Abs(ci.Lower-0.402) > 1e-9 || math.Abs(ci.Upper-0.598) > 1e-9 {
		t.Errorf("got [%f, %f], want [0.402, 0.598]", ci.Lower, ci.Upper)
	}
}

func TestConfidenceInterval_99IsWider(t *testing.T) {
	ci95 := stats.ConfidenceInterval(30, 100, 0.95)
	ci99 := stats.ConfidenceInterval(30, 100, 0.99)

	if ci99.Margin <= ci95.Margin {
		t.Errorf("99%% margin %f should exceed 95%% margin %f", ci99.Margin, ci95.Margin)
	}
}

func TestWilsonInterval(t *testing.T) {
	tests := []struct {
		name               string
		successes, trials  int
		minLower, maxLower float64
		minUpper, maxUpper float64
	}{
		{"50 percent", 50, 100, 0.38, 0.42, 0.58, 0.62},
		{"low conversion", 5, 100, 0.01, 0.03, 0.09, 0.13},
		{"all successes", 100, 100, 0.95, 0.99, 0.99, 1.0},
		{"no successes", 0, 100, 0, 1e-9, 0.01, 0.05},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ci := stats.WilsonInterval(tt.successes, tt.trials, 0.95)
			if ci.Lower < tt.minLower || ci.Lower > tt.maxLower {
				t.Errorf("lower bound %f not in [%f, %f]", ci.Lower, tt.minLower, tt.maxLower)
			}
			if ci.Upper < tt.minUpper || ci.Upper > tt.maxUpper {
				t.Errorf("upper bound %f not in [%f, %f]", ci.Upper, tt.minUpper, tt.maxUpper)
			}
			if math.Abs((ci.Upper-ci.Lower)-2*ci.Margin) > 1e-12 {
				t.Errorf("width %f != 2*margin %f", ci.Upper-ci.Lower, 2*ci.Margin)
			}
		})
	}
}

func TestWilsonInterval_ZeroTrials(t *testing.T) {
	if ci := stats.WilsonInterval(0, 0, 0.95); ci != (stats.Interval{}) {
		t.Errorf("expected zero interval for zero trials, got %+v", ci)
	}
}

func TestWilsonInterval_WiderAtHigherConfidence(t *testing.T) {
	prev := 0.0
	for _, level := range []float64{0.80, 0.90, 0.95, 0.99} {
		ci := stats.WilsonInterval(30, 100, level)
		if ci.Margin <= prev {
			t.Errorf("margin at %.2f = %f, want more than %f", level, ci.Margin, prev)
		}
		prev = ci.Margin
	}
}

func TestZScore(t *testing.T) {
	tests := []struct {
		confidence float64
		expected   float64
	}{
		{0.60, 0.8416},
		{0.80, 1.2816},
		{0.85, 1.4395},
		{0.90, 1.6449},
		{0.95, 1.9600},
		{0.99, 2.5758},
		{0.999, 3.2905},
	}

	for _, tt := range tests {
		z := stats.ZScore(tt.confidence)
		if math.Abs(z-tt.expected) > 1e-3 {
			t.Errorf("ZScore(%f) = %f, want %f", tt.confidence, z, tt.expected)
		}
	}
}
