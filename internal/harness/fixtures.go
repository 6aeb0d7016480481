// Package harness drives instrumented runs and reports them to the
// aggregator over its message queue.
package harness

import (
	"context"
	"log/slog"
	"time"

	"github.com/headline-goat/funnel-goat/internal/metrics"
	"github.com/headline-goat/funnel-goat/internal/variant"
	"github.com/headline-goat/funnel-goat/internal/vitals"
)

// Case is one scheduled run.
type Case struct {
	Title   string
	Project string   // also the variant resolution key
	Tags    []string // recorded as "tag" annotations on the result

	Viewport  *metrics.Viewport
	UserAgent string

	// Page is the browser side, used for vitals sampling. Nil disables it.
	Page vitals.Page

	Body func(ctx context.Context, fx *Fixtures) error
}

// resolutionKey is what the variant resolver classifies.
func (c Case) resolutionKey() string {
	if c.Project != "" {
		return c.Project
	}
	return c.Title
}

// Fixtures is what a run body gets: its variant, the mutable metrics record
// and the event log.
type Fixtures struct {
	Variant variant.Variant
	Metrics *metrics.RunMetrics

	collector *metrics.Collector
	tracker   *metrics.Tracker
	page      vitals.Page
	window    time.Duration
	logger    *slog.Logger
}

// Track appends to the run's event log.
func (fx *Fixtures) Track(name string, data map[string]any) {
	fx.tracker.Track(name, data)
}

// Elapsed returns ms since run start, for the Metrics timing fields.
func (fx *Fixtures) Elapsed() int64 {
	return fx.collector.Elapsed()
}

// Flag reports whether a feature flag is on for the run's variant.
func (fx *Fixtures) Flag(name string) bool {
	return fx.Variant.FeatureFlags[name]
}

// Vitals samples web vitals into Metrics. Without a page it is a no-op.
func (fx *Fixtures) Vitals(ctx context.Context) (vitals.Vitals, error) {
	if fx.page == nil {
		fx.logger.Debug("no page attached, skipping vitals")
		return vitals.Vitals{}, nil
	}
	v, err := vitals.NewSampler(fx.page, fx.window, fx.logger).Sample(ctx)
	v.Apply(fx.Metrics)
	return v, err
}
