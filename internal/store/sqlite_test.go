package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/headline-goat/funnel-goat/internal/report"
	"github.com/headline-goat/funnel-goat/internal/store"
	"github.com/headline-goat/funnel-goat/internal/testutil"
)

func sampleReport(ts time.Time) *report.Report {
	summaries := []report.VariantSummary{
		{
			Variant: "control", Project: "chromium", TotalRuns: 10, Passed: 2, Failed: 8, AvgDuration: 812.5,
			Metrics: report.SummaryMetrics{Impressions: 100, Clicks: 30, FormStarts: 10, FormCompletions: 5,
				CTR: 0.3, ConversionRate: 0.05, AvgTimeToConversion: 2400},
		},
		{
			Variant: "widget", Project: "chromium-widget", TotalRuns: 10, Passed: 6, Failed: 4, AvgDuration: 790,
			Metrics: report.SummaryMetrics{Impressions: 100, Clicks: 45, FormStarts: 20, FormCompletions: 15,
				CTR: 0.45, ConversionRate: 0.15, AvgTimeToConversion: 1800},
		},
	}
	return &report.Report{
		Timestamp:      ts,
		Suite:          report.SuiteInfo{Name: "nightly"},
		Status:         report.StatusPassed,
		Duration:       4 * time.Second,
		ControlVariant: "control",
		Variants:       summaries,
		Comparison:     report.Compare(summaries, "control"),
		ParseFailures:  1,
	}
}

func TestOpen(t *testing.T) {
	s := testutil.SetupTestStore(t)
	if s == nil {
		t.Fatal("expected non-nil store")
	}
}

func TestSaveReport(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	id, err := s.SaveReport(ctx, sampleReport(time.Now()))
	if err != nil {
		t.Fatalf("failed to save report: %v", err)
	}
	if len(id) != 36 {
		t.Errorf("got id %q, want a uuid", id)
	}

	suite, err := s.GetSuite(ctx, id)
	if err != nil {
		t.Fatalf("failed to get suite: %v", err)
	}

	if suite.Name != "nightly" {
		t.Errorf("got Name %s, want nightly", suite.Name)
	}
	if suite.Status != report.StatusPassed {
		t.Errorf("got Status %s, want passed", suite.Status)
	}
	if suite.Winner != "widget" {
		t.Errorf("got Winner %s, want widget", suite.Winner)
	}
	if !suite.WinnerSignificant {
		t.Error("expected 15% vs 5% on 100 impressions to be significant")
	}
	if suite.TotalRuns != 20 {
		t.Errorf("got TotalRuns %d, want 20", suite.TotalRuns)
	}
	if suite.ParseFailures != 1 {
		t.Errorf("got ParseFailures %d, want 1", suite.ParseFailures)
	}
	if suite.Duration != 4*time.Second {
		t.Errorf("got Duration %v, want 4s", suite.Duration)
	}
	if suite.Comparison == nil || len(suite.Comparison.Variants) != 1 {
		t.Fatalf("expected comparison with one challenger, got %+v", suite.Comparison)
	}
}

func TestSaveReport_SingleVariantHasNoWinner(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	rep := sampleReport(time.Now())
	rep.Variants = rep.Variants[:1]
	rep.Comparison = nil

	id, err := s.SaveReport(ctx, rep)
	if err != nil {
		t.Fatalf("failed to save report: %v", err)
	}

	suite, err := s.GetSuite(ctx, id)
	if err != nil {
		t.Fatalf("failed to get suite: %v", err)
	}
	if suite.Winner != "" || suite.Comparison != nil {
		t.Errorf("expected no winner and no comparison, got %q %+v", suite.Winner, suite.Comparison)
	}
}

func TestGetSummaries_PreservesOrderAndValues(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	rep := sampleReport(time.Now())
	id, err := s.SaveReport(ctx, rep)
	if err != nil {
		t.Fatalf("failed to save report: %v", err)
	}

	summaries, err := s.GetSummaries(ctx, id)
	if err != nil {
		t.Fatalf("failed to get summaries: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, want 2", len(summaries))
	}
	for i := range summaries {
		if summaries[i] != rep.Variants[i] {
			t.Errorf("summary %d: got %+v, want %+v", i, summaries[i], rep.Variants[i])
		}
	}
}

func TestGetSuite_NotFound(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	for _, ref := range []string{"", "deadbeef", "00000000-0000-0000-0000-000000000000", store.LatestRef} {
		_, err := s.GetSuite(ctx, ref)
		if err != store.ErrNotFound {
			t.Errorf("GetSuite(%q): expected ErrNotFound, got %v", ref, err)
		}
	}
}

func TestGetSuite_PrefixAndLatest(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	older, err := s.SaveReport(ctx, sampleReport(time.Now().Add(-time.Hour)))
	if err != nil {
		t.Fatalf("failed to save report: %v", err)
	}
	newer, err := s.SaveReport(ctx, sampleReport(time.Now()))
	if err != nil {
		t.Fatalf("failed to save report: %v", err)
	}

	latest, err := s.GetSuite(ctx, store.LatestRef)
	if err != nil {
		t.Fatalf("failed to get latest: %v", err)
	}
	if latest.ID != newer {
		t.Errorf("got latest %s, want %s", latest.ID, newer)
	}

	byPrefix, err := s.GetSuite(ctx, older[:8])
	if err != nil {
		t.Fatalf("failed to get by prefix: %v", err)
	}
	if byPrefix.ID != older {
		t.Errorf("got %s, want %s", byPrefix.ID, older)
	}

	if _, err := s.GetSuite(ctx, "%"); err != store.ErrNotFound {
		t.Errorf("wildcard prefix: expected ErrNotFound, got %v", err)
	}
}

func TestListSuites(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := s.SaveReport(ctx, sampleReport(time.Now().Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("failed to save report: %v", err)
		}
	}

	all, err := s.ListSuites(ctx, 0)
	if err != nil {
		t.Fatalf("failed to list suites: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d suites, want 3", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].CreatedAt.After(all[i-1].CreatedAt) {
			t.Errorf("suites not ordered newest first at %d", i)
		}
	}
	if all[0].VariantCount != 2 {
		t.Errorf("got VariantCount %d, want 2", all[0].VariantCount)
	}

	limited, err := s.ListSuites(ctx, 2)
	if err != nil {
		t.Fatalf("failed to list suites: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("got %d suites, want 2", len(limited))
	}
}

func TestLoadReport(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	rep := sampleReport(time.Unix(1767225600, 0))
	id, err := s.SaveReport(ctx, rep)
	if err != nil {
		t.Fatalf("failed to save report: %v", err)
	}

	loaded, err := s.LoadReport(ctx, id)
	if err != nil {
		t.Fatalf("failed to load report: %v", err)
	}

	if !loaded.Timestamp.Equal(rep.Timestamp) {
		t.Errorf("got Timestamp %v, want %v", loaded.Timestamp, rep.Timestamp)
	}
	if loaded.ControlVariant != "control" {
		t.Errorf("got ControlVariant %s, want control", loaded.ControlVariant)
	}
	if len(loaded.Variants) != 2 {
		t.Errorf("got %d variants, want 2", len(loaded.Variants))
	}
	if loaded.Comparison == nil || loaded.Comparison.Winner != "widget" {
		t.Errorf("expected comparison with winner widget, got %+v", loaded.Comparison)
	}
}

func TestDeleteSuite(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	id, err := s.SaveReport(ctx, sampleReport(time.Now()))
	if err != nil {
		t.Fatalf("failed to save report: %v", err)
	}

	if err := s.DeleteSuite(ctx, id); err != nil {
		t.Fatalf("failed to delete suite: %v", err)
	}

	if _, err := s.GetSuite(ctx, id); err != store.ErrNotFound {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	summaries, err := s.GetSummaries(ctx, id)
	if err != nil {
		t.Fatalf("failed to get summaries: %v", err)
	}
	if len(summaries) != 0 {
		t.Errorf("got %d summaries after delete, want 0", len(summaries))
	}

	if err := s.DeleteSuite(ctx, id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestSettings(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	if _, err := s.GetSetting(ctx, "server_url"); err != store.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := s.SetSetting(ctx, "server_url", "http://localhost:8080"); err != nil {
		t.Fatalf("failed to set setting: %v", err)
	}
	if err := s.SetSetting(ctx, "server_url", "https://ab.example.com"); err != nil {
		t.Fatalf("failed to update setting: %v", err)
	}

	value, err := s.GetSetting(ctx, "server_url")
	if err != nil {
		t.Fatalf("failed to get setting: %v", err)
	}
	if value != "https://ab.example.com" {
		t.Errorf("got %q, want %q", value, "https://ab.example.com")
	}
}
