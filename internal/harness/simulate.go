package harness

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/headline-goat/funnel-goat/internal/metrics"
	"github.com/headline-goat/funnel-goat/internal/vitals"
)

// ErrAbandoned is returned by simulated runs that hit an error mid-funnel.
var ErrAbandoned = errors.New("simulated run failed mid-funnel")

// Funnel describes one synthetic arm: the project it runs under and the
// stage-to-stage probabilities of a simulated visitor.
type Funnel struct {
	Project      string  `koanf:"project" yaml:"project"`
	Runs         int     `koanf:"runs" yaml:"runs"`
	ClickRate    float64 `koanf:"click_rate" yaml:"click_rate"`
	StartRate    float64 `koanf:"start_rate" yaml:"start_rate"`
	CompleteRate float64 `koanf:"complete_rate" yaml:"complete_rate"`
	ErrorRate    float64 `koanf:"error_rate" yaml:"error_rate"`
}

// Simulation generates seeded synthetic runs.
type Simulation struct {
	Funnels []Funnel
	Seed    uint64
	Vitals  bool // attach a synthetic page so vitals are sampled
}

// DefaultFunnels is a widget arm that converts better than control.
func DefaultFunnels(runs int) []Funnel {
	return []Funnel{
		{Project: "chromium-control", Runs: runs, ClickRate: 0.35, StartRate: 0.6, CompleteRate: 0.5, ErrorRate: 0.02},
		{Project: "chromium-widget", Runs: runs, ClickRate: 0.45, StartRate: 0.7, CompleteRate: 0.6, ErrorRate: 0.02},
	}
}

// Cases expands the simulation into runnable cases. The same seed yields
// the same funnels regardless of worker scheduling.
func (s Simulation) Cases() []Case {
	var cases []Case
	for fi, f := range s.Funnels {
		for i := 0; i < f.Runs; i++ {
			rng := rand.New(rand.NewPCG(s.Seed, uint64(fi)<<32|uint64(i)))
			c := Case{
				Title:     fmt.Sprintf("%s visitor #%d", f.Project, i+1),
				Project:   f.Project,
				Tags:      []string{"@simulated"},
				Viewport:  &metrics.Viewport{Width: 1280, Height: 720},
				UserAgent: "funnel-goat-simulator",
				Body:      simulatedVisit(f, rng),
			}
			if s.Vitals {
				c.Page = newSimPage(rng.Float64())
			}
			cases = append(cases, c)
		}
	}
	return cases
}

func simulatedVisit(f Funnel, rng *rand.Rand) func(context.Context, *Fixtures) error {
	return func(ctx context.Context, fx *Fixtures) error {
		m := fx.Metrics
		m.Impressions++
		fx.Track("page_view", map[string]any{"project": f.Project})

		if fx.page != nil {
			if _, err := fx.Vitals(ctx); err != nil {
				return err
			}
		}

		elapsed := int64(300 + rng.IntN(700))
		if rng.Float64() >= f.ClickRate {
			if rng.Float64() < 0.5 {
				m.Dismissals++
				fx.Track("dismissed", nil)
			}
			return nil
		}
		m.Clicks++
		m.TimeToEngage = elapsed
		fx.Track("cta_clicked", nil)

		if rng.Float64() >= f.StartRate {
			m.BackButtonUses++
			return nil
		}
		elapsed += int64(200 + rng.IntN(800))
		m.FormStarts++
		m.TimeToFormStart = elapsed
		fx.Track("form_started", nil)

		if rng.Float64() < f.ErrorRate {
			m.Errors++
			fx.Track("form_error", nil)
			return ErrAbandoned
		}

		if rng.Float64() >= f.CompleteRate {
			if rng.Float64() < 0.3 {
				m.FormRetries++
			}
			return nil
		}
		elapsed += int64(1000 + rng.IntN(4000))
		m.FormCompletions++
		m.TimeToSubmit = elapsed
		fx.Track("form_submitted", map[string]any{"ms": elapsed})
		return nil
	}
}

// simPage plays back a fixed set of buffered entries.
type simPage struct {
	entries map[vitals.EntryType][]vitals.Entry
	ttfb    float64
}

func newSimPage(jitter float64) *simPage {
	lcp := 900 + 600*jitter
	return &simPage{
		entries: map[vitals.EntryType][]vitals.Entry{
			vitals.LargestContentfulPaint: {{RenderTime: lcp * 0.6}, {RenderTime: lcp}},
			vitals.FirstInput:             {{StartTime: 1200, ProcessingStart: 1200 + 8 + 40*jitter}},
			vitals.LayoutShift:            {{Value: 0.02 * jitter}, {Value: 0.5, HadRecentInput: true}},
		},
		ttfb: 80 + 120*jitter,
	}
}

type simObserver struct{}

func (simObserver) Disconnect() {}

func (p *simPage) Observe(typ vitals.EntryType, buffered bool, fn func([]vitals.Entry)) (vitals.Observer, error) {
	entries := p.entries[typ]
	if buffered && len(entries) > 0 {
		fn(entries)
	}
	return simObserver{}, nil
}

func (p *simPage) NavigationTiming() (vitals.NavigationTiming, bool) {
	return vitals.NavigationTiming{RequestStart: 10, ResponseStart: 10 + p.ttfb}, true
}
