package report

import (
	"time"

	"github.com/headline-goat/funnel-goat/internal/metrics"
)

// SummaryMetrics are a variant's pooled funnel counts and the rates
// recomputed from them.
type SummaryMetrics struct {
	Impressions         int     `json:"impressions"`
	Clicks              int     `json:"clicks"`
	FormStarts          int     `json:"formStarts"`
	FormCompletions     int     `json:"formCompletions"`
	CTR                 float64 `json:"ctr"`
	ConversionRate      float64 `json:"conversionRate"`
	AvgTimeToConversion float64 `json:"avgTimeToConversion"`
}

// VariantSummary is one variant's aggregate over every run filed under it.
type VariantSummary struct {
	Variant     string         `json:"variant"`
	Project     string         `json:"project"`
	TotalRuns   int            `json:"totalRuns"`
	Passed      int            `json:"passed"`
	Failed      int            `json:"failed"`
	AvgDuration float64        `json:"avgDuration"` // ms, runner-reported
	Metrics     SummaryMetrics `json:"metrics"`
}

// entry is one parsed run filed under a variant bucket.
type entry struct {
	run        RunInfo
	duration   time.Duration
	attachment *metrics.RunAttachment
}

// summarize pools a bucket. Rates come from the summed counters, never
// from per-run rates.
func summarize(variant string, entries []entry) VariantSummary {
	s := VariantSummary{Variant: variant, Project: "unknown"}
	if len(entries) == 0 {
		return s
	}

	s.TotalRuns = len(entries)

	var (
		project         string
		totalDuration   time.Duration
		timeToSubmitSum int64
		converted       int
	)

	for _, e := range entries {
		// Smallest name wins so arrival order never changes the pick.
		if p := e.attachment.Project; p != "" && (project == "" || p < project) {
			project = p
		}

		m := e.attachment.Metrics
		s.Metrics.Impressions += m.Impressions
		s.Metrics.Clicks += m.Clicks
		s.Metrics.FormStarts += m.FormStarts
		s.Metrics.FormCompletions += m.FormCompletions
		totalDuration += e.duration

		// Passed/failed follows the funnel, not the runner's verdict.
		if m.Converted() {
			converted++
			timeToSubmitSum += m.TimeToSubmit
		}
	}

	if project != "" {
		s.Project = project
	}
	s.Passed = converted
	s.Failed = s.TotalRuns - converted
	s.AvgDuration = float64(totalDuration) / float64(time.Millisecond) / float64(s.TotalRuns)

	s.Metrics.CTR = metrics.Rate(s.Metrics.Clicks, s.Metrics.Impressions)
	s.Metrics.ConversionRate = metrics.Rate(s.Metrics.FormCompletions, s.Metrics.Impressions)
	if converted > 0 {
		s.Metrics.AvgTimeToConversion = float64(timeToSubmitSum) / float64(converted)
	}

	return s
}
