package metrics

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Attachment names carried on a run result.
const (
	MetricsAttachment = "ab-test-metrics"
	EventsAttachment  = "ab-test-events"
	ContentTypeJSON   = "application/json"
)

var ErrMissingAttachment = errors.New("attachment not found")

// AttachmentSink receives named payloads at run teardown. The harness
// result type implements it.
type AttachmentSink interface {
	Attach(name, contentType string, body []byte)
}

// RunAttachment is the metrics payload a finished run exposes to the
// aggregator. It carries everything needed to file the run.
type RunAttachment struct {
	Variant   string     `json:"variant"`
	Metrics   RunMetrics `json:"metrics"`
	Timestamp int64      `json:"timestamp"` // Unix ms at teardown
	RunTitle  string     `json:"runTitle"`
	Project   string     `json:"project"`
}

// UnmarshalJSON accepts the legacy "testTitle" key written by older suites.
func (a *RunAttachment) UnmarshalJSON(data []byte) error {
	type plain RunAttachment
	aux := struct {
		*plain
		TestTitle string `json:"testTitle"`
	}{plain: (*plain)(a)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if a.RunTitle == "" {
		a.RunTitle = aux.TestTitle
	}
	return nil
}

// ParseAttachment decodes a metrics attachment body.
func ParseAttachment(body []byte) (*RunAttachment, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("failed to parse %s: %w", MetricsAttachment, ErrMissingAttachment)
	}

	var a RunAttachment
	if err := json.Unmarshal(body, &a); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", MetricsAttachment, err)
	}
	if a.Variant == "" {
		return nil, fmt.Errorf("failed to parse %s: missing variant", MetricsAttachment)
	}
	if err := a.Metrics.validate(); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", MetricsAttachment, err)
	}

	return &a, nil
}

// ParseEvents decodes an events attachment body.
func ParseEvents(body []byte) ([]RunEvent, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("failed to parse %s: %w", EventsAttachment, ErrMissingAttachment)
	}

	var events []RunEvent
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", EventsAttachment, err)
	}
	return events, nil
}

func (m *RunMetrics) validate() error {
	counters := map[string]int{
		"impressions":     m.Impressions,
		"clicks":          m.Clicks,
		"formStarts":      m.FormStarts,
		"formCompletions": m.FormCompletions,
		"dismissals":      m.Dismissals,
		"backButtonUses":  m.BackButtonUses,
		"errors":          m.Errors,
		"formRetries":     m.FormRetries,
	}
	for name, v := range counters {
		if v < 0 {
			return fmt.Errorf("negative counter %s: %d", name, v)
		}
	}
	return nil
}
