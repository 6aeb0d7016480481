// Package emitter writes a finalized suite report to the report directory.
package emitter

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/headline-goat/funnel-goat/internal/dashboard"
	"github.com/headline-goat/funnel-goat/internal/report"
)

// Artifact file names inside the report directory.
const (
	SummaryFile    = "ab-test-summary.json"
	EventsFile     = "ab-test-events.jsonl"
	ComparisonFile = "ab-test-comparison.html"
)

// Summary is the machine-readable form of a suite.
type Summary struct {
	Timestamp      string                  `json:"timestamp"`
	ControlVariant string                  `json:"controlVariant"`
	Variants       []report.VariantSummary `json:"variants"`
	Comparison     *report.Comparison      `json:"comparison"`
}

// NewSummary converts a report into its JSON artifact form.
func NewSummary(rep *report.Report) Summary {
	variants := rep.Variants
	if variants == nil {
		variants = []report.VariantSummary{}
	}
	return Summary{
		Timestamp:      rep.Timestamp.UTC().Format(time.RFC3339Nano),
		ControlVariant: rep.ControlVariant,
		Variants:       variants,
		Comparison:     rep.Comparison,
	}
}

// Emitter writes the summary JSON, the events log and the comparison page.
// Every call overwrites the previous suite's files.
type Emitter struct {
	dir    string
	logger *slog.Logger
}

// New returns an emitter writing into dir.
func New(dir string, logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Emitter{dir: dir, logger: logger}
}

// Dir returns the report directory.
func (e *Emitter) Dir() string {
	return e.dir
}

// Emit writes every artifact, attempting each one even if an earlier one
// failed. It returns the paths written and the joined errors.
func (e *Emitter) Emit(ctx context.Context, rep *report.Report) ([]string, error) {
	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}

	writers := []struct {
		name  string
		write func(string, *report.Report) error
	}{
		{SummaryFile, writeJSON},
		{EventsFile, writeEvents},
		{ComparisonFile, writeHTML},
	}

	var (
		paths []string
		errs  []error
	)
	for _, w := range writers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		path := filepath.Join(e.dir, w.name)
		if err := w.write(path, rep); err != nil {
			e.logger.Error("failed to write artifact", "path", path, "error", err)
			errs = append(errs, fmt.Errorf("failed to write %s: %w", w.name, err))
			continue
		}
		e.logger.Debug("artifact written", "path", path)
		paths = append(paths, path)
	}

	return paths, errors.Join(errs...)
}

func writeJSON(path string, rep *report.Report) error {
	data, err := json.MarshalIndent(NewSummary(rep), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func writeEvents(path string, rep *report.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, ev := range rep.Events {
		if err := enc.Encode(ev); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}

func writeHTML(path string, rep *report.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := dashboard.Render(w, "A/B Test Comparison Report", "report.html", dashboard.NewReportView(rep)); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}

var _ report.Emitter = (*Emitter)(nil)
