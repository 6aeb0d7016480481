package emitter_test

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/headline-goat/funnel-goat/internal/emitter"
	"github.com/headline-goat/funnel-goat/internal/metrics"
	"github.com/headline-goat/funnel-goat/internal/report"
	"github.com/headline-goat/funnel-goat/internal/testutil"
)

func sampleReport() *report.Report {
	summaries := []report.VariantSummary{
		{
			Variant: "control", Project: "chromium", TotalRuns: 2, Passed: 0, Failed: 2,
			Metrics: report.SummaryMetrics{Impressions: 2},
		},
		{
			Variant: "widget", Project: "chromium", TotalRuns: 3, Passed: 3,
			Metrics: report.SummaryMetrics{
				Impressions: 3, Clicks: 3, FormStarts: 3, FormCompletions: 3,
				CTR: 1, ConversionRate: 1, AvgTimeToConversion: 1000,
			},
		},
	}
	return &report.Report{
		Timestamp:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		ControlVariant: "control",
		Variants:       summaries,
		Comparison:     report.Compare(summaries, "control"),
		Events: []report.RunEvents{
			{RunID: "r1", Title: "widget converts", Variant: "widget", Events: []metrics.RunEvent{
				{Name: "widget_opened", Timestamp: 120, Variant: "widget"},
			}},
		},
	}
}

func TestEmit_WritesAllArtifacts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "playwright-report")
	e := emitter.New(dir, testutil.NewTestLogger(t))

	paths, err := e.Emit(context.Background(), sampleReport())
	require.NoError(t, err)
	require.Len(t, paths, 3)

	for _, name := range []string{emitter.SummaryFile, emitter.EventsFile, emitter.ComparisonFile} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
}

func TestEmit_SummaryJSON(t *testing.T) {
	dir := t.TempDir()
	_, err := emitter.New(dir, nil).Emit(context.Background(), sampleReport())
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, emitter.SummaryFile))
	require.NoError(t, err)

	var got struct {
		Timestamp      string `json:"timestamp"`
		ControlVariant string `json:"controlVariant"`
		Variants       []struct {
			Variant string `json:"variant"`
			Metrics struct {
				ConversionRate float64 `json:"conversionRate"`
			} `json:"metrics"`
		} `json:"variants"`
		Comparison struct {
			Control           string `json:"control"`
			Winner            string `json:"winner"`
			WinnerSignificant bool   `json:"winnerSignificant"`
			PerVariantUplift  []struct {
				Variant string `json:"variant"`
			} `json:"perVariantUplift"`
		} `json:"comparison"`
	}
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, "2026-03-01T12:00:00Z", got.Timestamp)
	assert.Equal(t, "control", got.ControlVariant)
	require.Len(t, got.Variants, 2)
	assert.Equal(t, 1.0, got.Variants[1].Metrics.ConversionRate)
	assert.Equal(t, "control", got.Comparison.Control)
	assert.Equal(t, "widget", got.Comparison.Winner)
	require.Len(t, got.Comparison.PerVariantUplift, 1)
	assert.Equal(t, "widget", got.Comparison.PerVariantUplift[0].Variant)
}

func TestEmit_SingleVariantHasNullComparison(t *testing.T) {
	dir := t.TempDir()
	rep := sampleReport()
	rep.Variants = rep.Variants[:1]
	rep.Comparison = report.Compare(rep.Variants, "control")

	_, err := emitter.New(dir, nil).Emit(context.Background(), rep)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, emitter.SummaryFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"comparison": null`)
}

func TestEmit_OverwritesPreviousSuite(t *testing.T) {
	dir := t.TempDir()
	e := emitter.New(dir, nil)

	_, err := e.Emit(context.Background(), sampleReport())
	require.NoError(t, err)

	second := sampleReport()
	second.ControlVariant = "widget"
	second.Events = nil
	_, err = e.Emit(context.Background(), second)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, emitter.SummaryFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"controlVariant": "widget"`)

	events, err := os.ReadFile(filepath.Join(dir, emitter.EventsFile))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestEmit_EventsJSONL(t *testing.T) {
	dir := t.TempDir()
	_, err := emitter.New(dir, nil).Emit(context.Background(), sampleReport())
	require.NoError(t, err)

	f, err := os.Open(filepath.Join(dir, emitter.EventsFile))
	require.NoError(t, err)
	defer f.Close()

	var lines []report.RunEvents
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rv report.RunEvents
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rv))
		lines = append(lines, rv)
	}
	require.Len(t, lines, 1)
	assert.Equal(t, "r1", lines[0].RunID)
	assert.Equal(t, "widget_opened", lines[0].Events[0].Name)
}

func TestEmit_HTMLRanksAndDeclaresWinner(t *testing.T) {
	dir := t.TempDir()
	_, err := emitter.New(dir, nil).Emit(context.Background(), sampleReport())
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, emitter.ComparisonFile))
	require.NoError(t, err)
	html := string(data)

	assert.Contains(t, html, "A/B Test Comparison Report")
	assert.Less(t, strings.Index(html, "<strong>widget</strong>"), strings.Index(html, "<strong>control</strong>"),
		"widget converts better and is ranked first")
	assert.Contains(t, html, "Winner: <strong>widget</strong>")
	assert.Contains(t, html, "(not significant)")
}

func TestEmit_UnwritableDirectory(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	paths, err := emitter.New(filepath.Join(blocker, "reports"), nil).Emit(context.Background(), sampleReport())
	assert.Error(t, err)
	assert.Empty(t, paths)
}
