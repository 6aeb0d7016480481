// Package metrics holds the per-run instrumentation records: the funnel
// counters and timings a run body mutates, the ordered event log, and the
// JSON attachments both are serialized into at teardown.
package metrics

// Viewport is the browser viewport a run executed in.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// RunMetrics is the mutable record a run body increments directly.
//
// Counters only ever grow. Timings are milliseconds since run start, zero
// until set, and set at most once. Derived rates are written by Finalize
// and nowhere else.
type RunMetrics struct {
	// Engagement
	Impressions     int `json:"impressions"`
	Clicks          int `json:"clicks"`
	FormStarts      int `json:"formStarts"`
	FormCompletions int `json:"formCompletions"`

	// Conversion funnel, derived at finalize time
	CTR               float64 `json:"ctr"`
	StartRate         float64 `json:"startRate"`
	CompletionRate    float64 `json:"completionRate"`
	OverallConversion float64 `json:"overallConversion"`

	// Time metrics (ms)
	TimeToEngage    int64 `json:"timeToEngage"`
	TimeToFormStart int64 `json:"timeToFormStart"`
	TimeToSubmit    int64 `json:"timeToSubmit"`

	// Web vitals
	LCP  float64 `json:"lcp"`
	FID  float64 `json:"fid"`
	CLS  float64 `json:"cls"`
	TTFB float64 `json:"ttfb"`

	// UX signals
	Dismissals     int `json:"dismissals"`
	BackButtonUses int `json:"backButtonUses"`
	Errors         int `json:"errors"`
	FormRetries    int `json:"formRetries"`

	// Device info
	Viewport  *Viewport `json:"viewport,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
}

// Rate divides without ever failing: a zero denominator yields 0.
func Rate(numerator, denominator int) float64 {
	if denominator == 0 {
		return 0
	}
	return float64(numerator) / float64(denominator)
}

// deriveRates computes the funnel rates from the raw counters.
func (m *RunMetrics) deriveRates() {
	m.CTR = Rate(m.Clicks, m.Impressions)
	m.StartRate = Rate(m.FormStarts, m.Clicks)
	m.CompletionRate = Rate(m.FormCompletions, m.FormStarts)
	m.OverallConversion = Rate(m.FormCompletions, m.Impressions)
}

// Converted reports whether the run reached form completion.
func (m *RunMetrics) Converted() bool {
	return m.FormCompletions > 0
}
