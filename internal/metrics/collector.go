package metrics

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/headline-goat/funnel-goat/internal/variant"
)

// Collector owns one run's RunMetrics. The run body mutates Metrics
// directly; Finalize and Attach run once at teardown.
type Collector struct {
	Metrics *RunMetrics

	variant   variant.Variant
	title     string
	project   string
	start     time.Time
	now       func() time.Time
	finalized bool
}

// NewCollector starts the run clock for a run titled title in project.
func NewCollector(v variant.Variant, title, project string) *Collector {
	return newCollector(v, title, project, time.Now)
}

func newCollector(v variant.Variant, title, project string, now func() time.Time) *Collector {
	return &Collector{
		Metrics: &RunMetrics{},
		variant: v,
		title:   title,
		project: project,
		start:   now(),
		now:     now,
	}
}

// Variant returns the variant the run was resolved to.
func (c *Collector) Variant() variant.Variant {
	return c.variant
}

// Elapsed returns milliseconds since the run started, for the timing fields.
func (c *Collector) Elapsed() int64 {
	return c.now().Sub(c.start).Milliseconds()
}

// Finalize computes the derived rates. Later calls are no-ops so the rates
// cannot be rewritten after the first teardown.
func (c *Collector) Finalize() {
	if c.finalized {
		return
	}
	c.Metrics.deriveRates()
	c.finalized = true
}

// Snapshot finalizes and returns the attachment payload.
func (c *Collector) Snapshot() RunAttachment {
	c.Finalize()
	return RunAttachment{
		Variant:   c.variant.Name,
		Metrics:   *c.Metrics,
		Timestamp: c.now().UnixMilli(),
		RunTitle:  c.title,
		Project:   c.project,
	}
}

// Attach finalizes the metrics and attaches them to the run result.
func (c *Collector) Attach(sink AttachmentSink) error {
	body, err := json.MarshalIndent(c.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}
	sink.Attach(MetricsAttachment, ContentTypeJSON, body)
	return nil
}
