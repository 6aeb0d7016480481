// Package report aggregates finished runs into per-variant summaries.
//
// A Reporter lives for exactly one suite: INIT on construction, COLLECTING
// after OnSuiteBegin, FINALIZED after OnSuiteEnd. Run-ended notifications may
// arrive in any order; each is self-contained and filed independently. The
// suite-end call is the only point where an aggregate exists.
package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/headline-goat/funnel-goat/internal/metrics"
	"github.com/headline-goat/funnel-goat/internal/variant"
)

var (
	ErrNotCollecting     = errors.New("reporter is not collecting")
	ErrAlreadyFinalized  = errors.New("reporter already finalized")
	ErrSuiteNeverStarted = errors.New("suite end before suite begin")
)

// State is the reporter lifecycle state.
type State int

const (
	StateInit State = iota
	StateCollecting
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateCollecting:
		return "collecting"
	case StateFinalized:
		return "finalized"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Emitter writes the finalized report somewhere, returning the paths written.
type Emitter interface {
	Emit(ctx context.Context, rep *Report) ([]string, error)
}

// Recorder persists a finalized report.
type Recorder interface {
	SaveReport(ctx context.Context, rep *Report) (string, error)
}

// Options configures a Reporter.
type Options struct {
	// ControlVariant is the baseline every other variant is compared to.
	// Empty means variant.DefaultName.
	ControlVariant string
	Emitter        Emitter
	Recorder       Recorder
	Out            io.Writer // operator console, stdout when nil
	Logger         *slog.Logger
}

// ProjectStats counts the runner's own verdicts per project.
type ProjectStats struct {
	Project string `json:"project"`
	Runs    int    `json:"runs"`
	Passed  int    `json:"passed"`
	Failed  int    `json:"failed"`
}

// RunEvents is one run's event log, kept for the human-readable artifacts.
type RunEvents struct {
	RunID   string             `json:"runId"`
	Title   string             `json:"title"`
	Variant string             `json:"variant"`
	Events  []metrics.RunEvent `json:"events"`
}

// Report is the immutable outcome of a suite.
type Report struct {
	Timestamp      time.Time        `json:"timestamp"`
	Suite          SuiteInfo        `json:"suite"`
	Status         Status           `json:"status"`
	Duration       time.Duration    `json:"duration"`
	ControlVariant string           `json:"controlVariant"`
	Variants       []VariantSummary `json:"variants"`
	Comparison     *Comparison      `json:"comparison"`
	Projects       []ProjectStats   `json:"projects"`
	ParseFailures  int              `json:"parseFailures"`
	MissingMetrics int              `json:"missingMetrics"`
	Events         []RunEvents      `json:"-"`
}

// Summary returns the named variant's summary.
func (r *Report) Summary(variant string) (VariantSummary, bool) {
	for _, s := range r.Variants {
		if s.Variant == variant {
			return s, true
		}
	}
	return VariantSummary{}, false
}

// Reporter collects one suite. It is not safe for concurrent use: feed it
// from a single goroutine, e.g. through Consume.
type Reporter struct {
	opts   Options
	out    io.Writer
	logger *slog.Logger
	now    func() time.Time

	state State
	suite SuiteInfo

	summariesByProject   map[string][]RunResult
	attachmentsByVariant map[string][]entry
	variantOrder         []string
	seenRuns             map[string]bool
	events               []RunEvents
	parseFailures        int
	missingMetrics       int

	final *Report
}

// New creates a reporter in the INIT state.
func New(opts Options) *Reporter {
	if opts.ControlVariant == "" {
		opts.ControlVariant = variant.DefaultName
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reporter{
		opts:   opts,
		out:    out,
		logger: logger,
		now:    time.Now,
		state:  StateInit,
	}
}

// State returns the current lifecycle state.
func (r *Reporter) State() State {
	return r.state
}

// OnSuiteBegin captures the suite and resets both maps.
func (r *Reporter) OnSuiteBegin(suite SuiteInfo) error {
	if r.state == StateFinalized {
		return ErrAlreadyFinalized
	}

	r.suite = suite
	r.summariesByProject = make(map[string][]RunResult)
	r.attachmentsByVariant = make(map[string][]entry)
	r.variantOrder = nil
	r.seenRuns = make(map[string]bool)
	r.events = nil
	r.parseFailures = 0
	r.missingMetrics = 0
	r.state = StateCollecting

	fmt.Fprintf(r.out, "\nStarting A/B test suite: %d runs\n\n", suite.RunCount)
	return nil
}

// OnRunEnd files one finished run. Malformed or missing metrics never fail
// the call: the run is dropped from aggregation and collection continues.
func (r *Reporter) OnRunEnd(run RunInfo, result RunResult) error {
	switch r.state {
	case StateInit:
		return ErrNotCollecting
	case StateFinalized:
		return ErrAlreadyFinalized
	}

	if run.ID != "" {
		if r.seenRuns[run.ID] {
			r.logger.Debug("duplicate run notification ignored", "run", run.ID, "title", run.Title)
			return nil
		}
		r.seenRuns[run.ID] = true
	}

	project := run.Project
	if project == "" {
		project = "unknown"
	}
	r.summariesByProject[project] = append(r.summariesByProject[project], result)

	r.collectEvents(run, result)

	att, ok := result.Attachment(metrics.MetricsAttachment)
	if !ok || len(att.Body) == 0 {
		// The run crashed before teardown; it contributes nothing.
		r.missingMetrics++
		r.logger.Debug("run has no metrics attachment", "run", run.ID, "title", run.Title, "status", string(result.Status))
		return nil
	}

	parsed, err := metrics.ParseAttachment(att.Body)
	if err != nil {
		r.parseFailures++
		r.logger.Error("failed to parse metrics", "run", run.ID, "title", run.Title, "error", err)
		return nil
	}

	if _, exists := r.attachmentsByVariant[parsed.Variant]; !exists {
		r.variantOrder = append(r.variantOrder, parsed.Variant)
	}
	r.attachmentsByVariant[parsed.Variant] = append(r.attachmentsByVariant[parsed.Variant], entry{
		run:        run,
		duration:   result.Duration,
		attachment: parsed,
	})

	r.printRun(run, result, parsed)
	return nil
}

func (r *Reporter) collectEvents(run RunInfo, result RunResult) {
	att, ok := result.Attachment(metrics.EventsAttachment)
	if !ok {
		return
	}
	events, err := metrics.ParseEvents(att.Body)
	if err != nil {
		r.logger.Warn("failed to parse events", "run", run.ID, "title", run.Title, "error", err)
		return
	}
	rv := RunEvents{RunID: run.ID, Title: run.Title, Events: events}
	if len(events) > 0 {
		rv.Variant = events[0].Variant
	}
	r.events = append(r.events, rv)
}

// OnSuiteEnd finalizes the suite: builds the summaries and comparison,
// prints them and hands the report to the emitter and recorder. Emitter
// and recorder failures are logged and returned joined, after both were
// attempted; the report is returned regardless.
func (r *Reporter) OnSuiteEnd(ctx context.Context, result SuiteResult) (*Report, error) {
	switch r.state {
	case StateInit:
		return nil, ErrSuiteNeverStarted
	case StateFinalized:
		return r.final, ErrAlreadyFinalized
	}

	rep := r.finalize(result)
	r.final = rep
	r.state = StateFinalized

	r.printSummary(rep)

	var errs []error
	if r.opts.Emitter != nil {
		paths, err := r.opts.Emitter.Emit(ctx, rep)
		for _, p := range paths {
			fmt.Fprintf(r.out, "Report: %s\n", p)
		}
		if err != nil {
			r.logger.Error("failed to write reports", "error", err)
			errs = append(errs, err)
		}
	}
	if r.opts.Recorder != nil {
		id, err := r.opts.Recorder.SaveReport(ctx, rep)
		if err != nil {
			r.logger.Error("failed to record suite", "error", err)
			errs = append(errs, err)
		} else {
			r.logger.Info("suite recorded", "suite", id)
		}
	}

	fmt.Fprintf(r.out, "\nFinal status: %s\n", rep.Status)
	fmt.Fprintf(r.out, "Total duration: %dms\n\n", rep.Duration.Milliseconds())

	return rep, errors.Join(errs...)
}

// Report returns the finalized report, or nil before suite end.
func (r *Reporter) Report() *Report {
	return r.final
}

func (r *Reporter) finalize(result SuiteResult) *Report {
	control := r.resolveControl()

	names := make([]string, 0, len(r.attachmentsByVariant))
	for name := range r.attachmentsByVariant {
		if name != control {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if _, ok := r.attachmentsByVariant[control]; ok {
		names = append([]string{control}, names...)
	}

	summaries := make([]VariantSummary, 0, len(names))
	for _, name := range names {
		summaries = append(summaries, summarize(name, r.attachmentsByVariant[name]))
	}

	projects := make([]ProjectStats, 0, len(r.summariesByProject))
	for name, results := range r.summariesByProject {
		ps := ProjectStats{Project: name, Runs: len(results)}
		for _, res := range results {
			if res.Status == StatusPassed {
				ps.Passed++
			} else {
				ps.Failed++
			}
		}
		projects = append(projects, ps)
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].Project < projects[j].Project })

	status := result.Status
	if status == "" {
		status = StatusPassed
	}

	return &Report{
		Timestamp:      r.now(),
		Suite:          r.suite,
		Status:         status,
		Duration:       result.Duration,
		ControlVariant: control,
		Variants:       summaries,
		Comparison:     Compare(summaries, control),
		Projects:       projects,
		ParseFailures:  r.parseFailures,
		MissingMetrics: r.missingMetrics,
		Events:         r.events,
	}
}

// resolveControl returns the configured control when it has runs, else the
// first variant observed, with a warning since arrival order is not stable.
func (r *Reporter) resolveControl() string {
	if _, ok := r.attachmentsByVariant[r.opts.ControlVariant]; ok || len(r.variantOrder) == 0 {
		return r.opts.ControlVariant
	}
	fallback := r.variantOrder[0]
	r.logger.Warn("control variant has no runs, using first observed variant",
		"configured", r.opts.ControlVariant, "fallback", fallback)
	return fallback
}
