package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/headline-goat/funnel-goat/internal/emitter"
	"github.com/headline-goat/funnel-goat/internal/report"
	"github.com/headline-goat/funnel-goat/internal/store"
)

// withStore opens the database, executes the function, and handles cleanup.
func (a *app) withStore(fn func(*store.SQLiteStore) error) error {
	s, err := store.Open(a.cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer s.Close()

	return fn(s)
}

// runSuite wires a reporter to the emitter and, when persisting, to the
// suite history, then hands it to drive.
func (a *app) runSuite(out io.Writer, drive func(*report.Reporter) (*report.Report, error)) error {
	opts := report.Options{
		ControlVariant: a.cfg.ControlVariant,
		Emitter:        emitter.New(a.cfg.ReportDir, a.logger),
		Out:            out,
		Logger:         a.logger,
	}

	run := func() error {
		rep, err := drive(report.New(opts))
		if rep == nil {
			return err
		}
		if err != nil {
			return fmt.Errorf("suite finished with errors: %w", err)
		}
		return nil
	}

	if !a.cfg.Persist {
		return run()
	}
	return a.withStore(func(s *store.SQLiteStore) error {
		opts.Recorder = s
		return run()
	})
}

// getTokenFilePath returns the path to the token file
func (a *app) getTokenFilePath() string {
	// Store token file alongside the database
	return filepath.Join(filepath.Dir(a.cfg.DB), ".funnel-goat-token")
}

// loadSuite resolves ref and loads its report.
func loadSuite(ctx context.Context, s *store.SQLiteStore, ref string) (*store.Suite, *report.Report, error) {
	suite, err := s.GetSuite(ctx, ref)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, fmt.Errorf("suite '%s' not found", ref)
		}
		return nil, nil, fmt.Errorf("failed to get suite: %w", err)
	}

	rep, err := s.LoadReport(ctx, suite.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load suite: %w", err)
	}
	return suite, rep, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
