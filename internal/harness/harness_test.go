package harness_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/headline-goat/funnel-goat/internal/harness"
	"github.com/headline-goat/funnel-goat/internal/metrics"
	"github.com/headline-goat/funnel-goat/internal/report"
	"github.com/headline-goat/funnel-goat/internal/testutil"
)

func newReporter(t *testing.T) *report.Reporter {
	t.Helper()
	return report.New(report.Options{
		ControlVariant: "control",
		Out:            &bytes.Buffer{},
		Logger:         testutil.NewTestLogger(t),
	})
}

func converting(ctx context.Context, fx *harness.Fixtures) error {
	fx.Metrics.Impressions++
	fx.Metrics.Clicks++
	fx.Metrics.FormStarts++
	fx.Metrics.FormCompletions++
	fx.Metrics.TimeToSubmit = 1000
	fx.Track("form_submitted", nil)
	return nil
}

func bouncing(ctx context.Context, fx *harness.Fixtures) error {
	fx.Metrics.Impressions++
	return nil
}

func TestExecute_WidgetBeatsControl(t *testing.T) {
	cases := []harness.Case{
		{Title: "w1", Project: "chromium-widget", Body: converting},
		{Title: "c1", Project: "chromium", Body: bouncing},
		{Title: "w2", Project: "chromium-widget", Body: converting},
		{Title: "c2", Project: "chromium", Body: bouncing},
		{Title: "w3", Project: "chromium-widget", Body: converting},
	}

	r := harness.New(harness.Options{Workers: 3, Logger: testutil.NewTestLogger(t)})
	rep, err := r.Execute(context.Background(), "e2e", cases, newReporter(t))
	require.NoError(t, err)

	widget, ok := rep.Summary("widget")
	require.True(t, ok)
	control, ok := rep.Summary("control")
	require.True(t, ok)

	assert.Equal(t, 3, widget.TotalRuns)
	assert.Equal(t, 1.0, widget.Metrics.ConversionRate)
	assert.Equal(t, 0.0, control.Metrics.ConversionRate)
	assert.Equal(t, "widget", rep.Comparison.Winner)
	assert.Equal(t, report.StatusPassed, rep.Status)
	assert.Equal(t, 5, rep.Suite.RunCount)
	assert.Len(t, rep.Events, 3, "only converting runs tracked events")
}

func TestExecute_FailingRunStillAttachesPartialFunnel(t *testing.T) {
	cases := []harness.Case{
		{Title: "abandons", Project: "widget", Body: func(ctx context.Context, fx *harness.Fixtures) error {
			fx.Metrics.Impressions++
			fx.Metrics.Clicks++
			return errors.New("form never rendered")
		}},
		{Title: "panics", Project: "widget", Body: func(ctx context.Context, fx *harness.Fixtures) error {
			fx.Metrics.Impressions++
			panic("selector exploded")
		}},
	}

	var record bytes.Buffer
	r := harness.New(harness.Options{Workers: 2, Record: &record})
	rep, err := r.Execute(context.Background(), "failures", cases, newReporter(t))
	require.NoError(t, err)

	widget, ok := rep.Summary("widget")
	require.True(t, ok)
	assert.Equal(t, 2, widget.TotalRuns)
	assert.Equal(t, 2, widget.Metrics.Impressions)
	assert.Equal(t, 1, widget.Metrics.Clicks)
	assert.Equal(t, 0, widget.Passed)
	assert.Equal(t, report.StatusFailed, rep.Status)

	records, err := harness.ReadResults(&record)
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, rec := range records {
		assert.Equal(t, report.StatusFailed, rec.Result.Status)
		if rec.Run.Title == "panics" {
			assert.Contains(t, rec.Result.Error, harness.ErrPanic.Error())
		}
	}
}

func TestExecute_RunTimeout(t *testing.T) {
	cases := []harness.Case{
		{Title: "slow", Body: func(ctx context.Context, fx *harness.Fixtures) error {
			fx.Metrics.Impressions++
			<-ctx.Done()
			return ctx.Err()
		}},
	}

	var record bytes.Buffer
	r := harness.New(harness.Options{Workers: 1, RunTimeout: 20 * time.Millisecond, Record: &record})
	_, err := r.Execute(context.Background(), "timeout", cases, newReporter(t))
	require.NoError(t, err)

	records, err := harness.ReadResults(&record)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, report.StatusTimedOut, records[0].Result.Status)
}

func TestRun_RespectsWorkerLimit(t *testing.T) {
	var running, peak atomic.Int32
	body := func(ctx context.Context, fx *harness.Fixtures) error {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		fx.Metrics.Impressions++
		return nil
	}

	cases := make([]harness.Case, 12)
	for i := range cases {
		cases[i] = harness.Case{Title: "run", Body: body}
	}

	r := harness.New(harness.Options{Workers: 2})
	rep, err := r.Execute(context.Background(), "limit", cases, newReporter(t))
	require.NoError(t, err)

	assert.LessOrEqual(t, peak.Load(), int32(2))
	control, _ := rep.Summary("control")
	assert.Equal(t, 12, control.TotalRuns)
}

func TestRun_AttachmentsAndAnnotation(t *testing.T) {
	queue := make(chan report.Message, 8)
	cases := []harness.Case{{
		Title:     "device info",
		Project:   "mobile-widget",
		Tags:      []string{"@mobile", "@checkout"},
		Viewport:  &metrics.Viewport{Width: 390, Height: 844},
		UserAgent: "iPhone",
		Body: func(ctx context.Context, fx *harness.Fixtures) error {
			assert.True(t, fx.Flag("useWidgetPattern"))
			fx.Metrics.Impressions++
			fx.Track("opened", map[string]any{"step": 1})
			return nil
		},
	}}

	require.NoError(t, harness.New(harness.Options{Workers: 1}).Run(context.Background(), "attach", cases, queue))
	close(queue)

	var runEnd report.RunEnd
	for msg := range queue {
		if m, ok := msg.(report.RunEnd); ok {
			runEnd = m
		}
	}

	assert.NotEmpty(t, runEnd.Run.ID)
	assert.Equal(t, []report.Annotation{
		{Type: "variant", Description: "widget"},
		{Type: "tag", Description: "@mobile"},
		{Type: "tag", Description: "@checkout"},
	}, runEnd.Result.Annotations)

	att, ok := runEnd.Result.Attachment(metrics.MetricsAttachment)
	require.True(t, ok)
	parsed, err := metrics.ParseAttachment(att.Body)
	require.NoError(t, err)
	assert.Equal(t, "widget", parsed.Variant)
	assert.Equal(t, "device info", parsed.RunTitle)
	assert.Equal(t, &metrics.Viewport{Width: 390, Height: 844}, parsed.Metrics.Viewport)
	assert.Equal(t, "iPhone", parsed.Metrics.UserAgent)

	ev, ok := runEnd.Result.Attachment(metrics.EventsAttachment)
	require.True(t, ok)
	events, err := metrics.ParseEvents(ev.Body)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "opened", events[0].Name)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := harness.New(harness.Options{}).Run(ctx, "cancelled", []harness.Case{{Title: "x", Body: bouncing}}, make(chan report.Message))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadResults_ReplayRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	r := harness.New(harness.Options{Workers: 2, Record: &buf})
	cases := []harness.Case{
		{Title: "w", Project: "widget", Body: converting},
		{Title: "c", Project: "control", Body: bouncing},
	}
	original, err := r.Execute(context.Background(), "recorded", cases, newReporter(t))
	require.NoError(t, err)

	records, err := harness.ReadResults(strings.NewReader(buf.String() + "\n\n"))
	require.NoError(t, err)
	require.Len(t, records, 2)

	replayed, err := harness.ReplayInto(context.Background(), "replayed", records, newReporter(t))
	require.NoError(t, err)

	require.Len(t, replayed.Variants, len(original.Variants))
	for i := range original.Variants {
		assert.Equal(t, original.Variants[i].Variant, replayed.Variants[i].Variant)
		assert.Equal(t, original.Variants[i].Metrics, replayed.Variants[i].Metrics)
		assert.InDelta(t, original.Variants[i].AvgDuration, replayed.Variants[i].AvgDuration, 1e-3)
	}
	assert.Equal(t, original.Comparison.Winner, replayed.Comparison.Winner)
}

func TestReadResults_BadLine(t *testing.T) {
	_, err := harness.ReadResults(strings.NewReader("{}\nnot json\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestSimulation_DeterministicForSeed(t *testing.T) {
	sim := harness.Simulation{Funnels: harness.DefaultFunnels(40), Seed: 7, Vitals: true}

	run := func() *report.Report {
		r := harness.New(harness.Options{Workers: 4, VitalsWindow: time.Millisecond})
		rep, err := r.Execute(context.Background(), "sim", sim.Cases(), newReporter(t))
		require.NoError(t, err)
		return rep
	}

	a, b := run(), run()
	require.Len(t, a.Variants, 2)
	for i := range a.Variants {
		assert.Equal(t, a.Variants[i].Metrics, b.Variants[i].Metrics)
	}

	control, _ := a.Summary("control")
	assert.Equal(t, 40, control.Metrics.Impressions)
	assert.LessOrEqual(t, control.Metrics.FormCompletions, control.Metrics.FormStarts)
	assert.LessOrEqual(t, control.Metrics.FormStarts, control.Metrics.Clicks)
}
