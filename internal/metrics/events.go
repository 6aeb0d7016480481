package metrics

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// RunEvent is one entry of a run's event log.
type RunEvent struct {
	Name      string         `json:"name"`
	Timestamp int64          `json:"timestamp"` // ms since run start
	Duration  int64          `json:"duration,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Variant   string         `json:"variant"`
}

// Tracker is the append-only event log of a single run. A run body is
// single-threaded, so events are kept in call order without locking.
type Tracker struct {
	variant string
	start   time.Time
	now     func() time.Time
	events  []RunEvent
	logger  *slog.Logger
}

// NewTracker starts an empty log for a run of the named variant.
func NewTracker(variantName string, logger *slog.Logger) *Tracker {
	return newTracker(variantName, logger, time.Now)
}

func newTracker(variantName string, logger *slog.Logger, now func() time.Time) *Tracker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Tracker{
		variant: variantName,
		start:   now(),
		now:     now,
		logger:  logger,
	}
}

// Track appends an event stamped relative to run start.
func (t *Tracker) Track(name string, data map[string]any) {
	t.events = append(t.events, RunEvent{
		Name:      name,
		Timestamp: t.now().Sub(t.start).Milliseconds(),
		Data:      data,
		Variant:   t.variant,
	})
	t.logger.Debug("ab-test event", "variant", t.variant, "event", name)
}

// Events returns a copy of the log.
func (t *Tracker) Events() []RunEvent {
	out := make([]RunEvent, len(t.events))
	copy(out, t.events)
	return out
}

// Len returns the number of tracked events.
func (t *Tracker) Len() int {
	return len(t.events)
}

// Attach adds the event log to the run result. An empty log attaches nothing.
func (t *Tracker) Attach(sink AttachmentSink) error {
	if len(t.events) == 0 {
		return nil
	}
	body, err := json.MarshalIndent(t.events, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal events: %w", err)
	}
	sink.Attach(EventsAttachment, ContentTypeJSON, body)
	return nil
}
