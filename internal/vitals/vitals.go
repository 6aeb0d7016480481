// Package vitals takes one-shot web-vitals snapshots from a browser page.
//
// The snapshot is an approximation: observers run for a fixed window and a
// metric that never fired reads as 0. That is good enough to compare
// variants against each other, not to report absolute Web Vitals scores.
package vitals

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/headline-goat/funnel-goat/internal/metrics"
)

// DefaultWindow is how long observers collect before disconnecting.
const DefaultWindow = time.Second

// EntryType names a browser performance entry type.
type EntryType string

const (
	LargestContentfulPaint EntryType = "largest-contentful-paint"
	FirstInput             EntryType = "first-input"
	LayoutShift            EntryType = "layout-shift"
)

// Entry is the subset of a PerformanceEntry the sampler reads.
type Entry struct {
	StartTime       float64 `json:"startTime"`
	ProcessingStart float64 `json:"processingStart"`
	RenderTime      float64 `json:"renderTime"`
	LoadTime        float64 `json:"loadTime"`
	Value           float64 `json:"value"`
	HadRecentInput  bool    `json:"hadRecentInput"`
}

// NavigationTiming is the subset of the navigation entry the sampler reads.
type NavigationTiming struct {
	RequestStart  float64 `json:"requestStart"`
	ResponseStart float64 `json:"responseStart"`
}

// Observer is an installed performance observer.
type Observer interface {
	Disconnect()
}

// Page is the browser side of a run. The browser driver implements it;
// callbacks may arrive on any goroutine until Disconnect returns.
type Page interface {
	Observe(entryType EntryType, buffered bool, fn func([]Entry)) (Observer, error)
	NavigationTiming() (NavigationTiming, bool)
}

// Vitals is one snapshot.
type Vitals struct {
	LCP  float64 `json:"lcp"`
	FID  float64 `json:"fid"`
	CLS  float64 `json:"cls"`
	TTFB float64 `json:"ttfb"`
}

// Apply copies the snapshot into a run's metrics.
func (v Vitals) Apply(m *metrics.RunMetrics) {
	m.LCP = v.LCP
	m.FID = v.FID
	m.CLS = v.CLS
	m.TTFB = v.TTFB
}

// Sampler takes snapshots from one page.
type Sampler struct {
	page   Page
	window time.Duration
	logger *slog.Logger
}

// NewSampler creates a sampler. A non-positive window uses DefaultWindow.
func NewSampler(page Page, window time.Duration, logger *slog.Logger) *Sampler {
	if window <= 0 {
		window = DefaultWindow
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Sampler{page: page, window: window, logger: logger}
}

// Sample installs the three observers, reads navigation timing, waits for
// the collection window and disconnects every observer before returning.
// A cancelled context ends the window early; the partial snapshot is
// returned together with the context error.
func (s *Sampler) Sample(ctx context.Context) (Vitals, error) {
	var (
		mu  sync.Mutex
		v   Vitals
		cls float64
	)

	handlers := []struct {
		typ EntryType
		fn  func([]Entry)
	}{
		{LargestContentfulPaint, func(entries []Entry) {
			if len(entries) == 0 {
				return
			}
			last := entries[len(entries)-1]
			mu.Lock()
			v.LCP = last.RenderTime
			if v.LCP == 0 {
				v.LCP = last.LoadTime
			}
			mu.Unlock()
		}},
		{FirstInput, func(entries []Entry) {
			mu.Lock()
			for _, e := range entries {
				v.FID = e.ProcessingStart - e.StartTime
			}
			mu.Unlock()
		}},
		{LayoutShift, func(entries []Entry) {
			mu.Lock()
			for _, e := range entries {
				if !e.HadRecentInput {
					cls += e.Value
				}
			}
			v.CLS = cls
			mu.Unlock()
		}},
	}

	observers := make([]Observer, 0, len(handlers))
	defer func() {
		for _, o := range observers {
			o.Disconnect()
		}
	}()

	for _, h := range handlers {
		o, err := s.page.Observe(h.typ, true, h.fn)
		if err != nil {
			// Unsupported entry types leave their metric at 0.
			s.logger.Debug("performance observer unavailable", "type", string(h.typ), "error", err)
			continue
		}
		observers = append(observers, o)
	}

	if nav, ok := s.page.NavigationTiming(); ok {
		mu.Lock()
		v.TTFB = nav.ResponseStart - nav.RequestStart
		mu.Unlock()
	}

	timer := time.NewTimer(s.window)
	defer timer.Stop()

	var waitErr error
	select {
	case <-timer.C:
	case <-ctx.Done():
		waitErr = fmt.Errorf("vitals window interrupted: %w", ctx.Err())
	}

	for _, o := range observers {
		o.Disconnect()
	}
	observers = observers[:0]

	mu.Lock()
	defer mu.Unlock()
	return v, waitErr
}
