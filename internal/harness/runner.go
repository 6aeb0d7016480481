package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/headline-goat/funnel-goat/internal/metrics"
	"github.com/headline-goat/funnel-goat/internal/report"
	"github.com/headline-goat/funnel-goat/internal/variant"
	"github.com/headline-goat/funnel-goat/internal/vitals"
)

// ErrPanic marks a run whose body panicked.
var ErrPanic = errors.New("run body panicked")

// Options configures a Runner.
type Options struct {
	Workers      int // concurrent runs, GOMAXPROCS when <= 0
	Resolver     *variant.Resolver
	VitalsWindow time.Duration
	RunTimeout   time.Duration // per run, none when 0
	Record       io.Writer     // optional JSON-lines copy of every result
	Logger       *slog.Logger
}

// Runner executes cases on a bounded worker pool.
type Runner struct {
	workers  int
	resolver *variant.Resolver
	window   time.Duration
	timeout  time.Duration
	logger   *slog.Logger

	recordMu sync.Mutex
	record   io.Writer
}

// New creates a runner.
func New(opts Options) *Runner {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	resolver := opts.Resolver
	if resolver == nil {
		resolver = variant.NewResolver(nil, nil)
	}
	window := opts.VitalsWindow
	if window <= 0 {
		window = vitals.DefaultWindow
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{
		workers:  workers,
		resolver: resolver,
		window:   window,
		timeout:  opts.RunTimeout,
		logger:   logger,
		record:   opts.Record,
	}
}

// Run posts SuiteBegin, executes every case and posts one RunEnd per case,
// then SuiteEnd once all workers are done. It only fails when ctx is
// cancelled before the queue accepted SuiteEnd; run failures are reported
// on the queue, not returned.
func (r *Runner) Run(ctx context.Context, suite string, cases []Case, queue chan<- report.Message) error {
	start := time.Now()

	if err := post(ctx, queue, report.SuiteBegin{Suite: report.SuiteInfo{Name: suite, RunCount: len(cases)}}); err != nil {
		return err
	}

	r.logger.Info("starting suite", "suite", suite, "runs", len(cases), "workers", r.workers)

	var (
		mu     sync.Mutex
		failed bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for _, c := range cases {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			info, result := r.runOne(gctx, c)
			if result.Status != report.StatusPassed && result.Status != report.StatusSkipped {
				mu.Lock()
				failed = true
				mu.Unlock()
			}
			r.writeRecord(info, result)
			return post(gctx, queue, report.RunEnd{Run: info, Result: result})
		})
	}
	waitErr := g.Wait()

	status := report.StatusPassed
	switch {
	case ctx.Err() != nil || waitErr != nil:
		status = report.StatusInterrupted
	case failed:
		status = report.StatusFailed
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	return post(ctx, queue, report.SuiteEnd{Result: report.SuiteResult{Status: status, Duration: time.Since(start)}})
}

// Execute runs the suite and consumes the queue into rep on the calling
// goroutine, returning the finalized report.
func (r *Runner) Execute(ctx context.Context, suite string, cases []Case, rep *report.Reporter) (*report.Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	queue := make(chan report.Message, r.workers)
	runErr := make(chan error, 1)
	go func() {
		runErr <- r.Run(ctx, suite, cases, queue)
	}()

	out, err := report.Consume(ctx, rep, queue)
	if out == nil {
		cancel()
		<-runErr
		return nil, err
	}
	return out, errors.Join(err, <-runErr)
}

func post(ctx context.Context, queue chan<- report.Message, msg report.Message) error {
	select {
	case queue <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runOne executes one case. Teardown runs on every exit path, so a failed
// or panicking run still attaches its partial funnel.
func (r *Runner) runOne(ctx context.Context, c Case) (info report.RunInfo, result report.RunResult) {
	info = report.RunInfo{ID: uuid.NewString(), Title: c.Title, Project: c.Project}

	v := r.resolver.Resolve(c.resolutionKey())
	logger := r.logger.With("run", info.ID, "variant", v.Name)

	collector := metrics.NewCollector(v, c.Title, c.Project)
	collector.Metrics.Viewport = c.Viewport
	collector.Metrics.UserAgent = c.UserAgent
	tracker := metrics.NewTracker(v.Name, logger)

	fx := &Fixtures{
		Variant:   v,
		Metrics:   collector.Metrics,
		collector: collector,
		tracker:   tracker,
		page:      c.Page,
		window:    r.window,
		logger:    logger,
	}

	result.Annotate("variant", v.Name)
	for _, tag := range c.Tags {
		result.Annotate("tag", tag)
	}

	start := time.Now()
	defer func() {
		result.Duration = time.Since(start)
		if err := collector.Attach(&result); err != nil {
			logger.Error("failed to attach metrics", "error", err)
		}
		if err := tracker.Attach(&result); err != nil {
			logger.Error("failed to attach events", "error", err)
		}
		logger.Debug("run finished", "status", string(result.Status), "events", tracker.Len())
	}()

	if c.Body == nil {
		result.Status = report.StatusSkipped
		return info, result
	}

	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	err := invoke(runCtx, c.Body, fx)
	switch {
	case err == nil:
		result.Status = report.StatusPassed
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		result.Status = report.StatusTimedOut
	case ctx.Err() != nil:
		result.Status = report.StatusInterrupted
	default:
		result.Status = report.StatusFailed
	}
	if err != nil {
		result.Error = err.Error()
		logger.Debug("run did not pass", "status", string(result.Status), "error", err)
	}

	return info, result
}

func invoke(ctx context.Context, body func(context.Context, *Fixtures) error, fx *Fixtures) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, p)
		}
	}()
	return body(ctx, fx)
}

func (r *Runner) writeRecord(info report.RunInfo, result report.RunResult) {
	if r.record == nil {
		return
	}
	r.recordMu.Lock()
	defer r.recordMu.Unlock()
	if err := WriteResult(r.record, info, result); err != nil {
		r.logger.Warn("failed to record run", "run", info.ID, "error", err)
	}
}
