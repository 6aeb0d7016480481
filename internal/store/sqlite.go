package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/headline-goat/funnel-goat/internal/report"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrAmbiguous = errors.New("ambiguous suite id prefix")
)

// LatestRef resolves to the most recently recorded suite.
const LatestRef = "latest"

type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS suites (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    status TEXT NOT NULL,
    control_variant TEXT NOT NULL,
    winner TEXT,
    winner_significant INTEGER NOT NULL DEFAULT 0,
    total_runs INTEGER NOT NULL DEFAULT 0,
    parse_failures INTEGER NOT NULL DEFAULT 0,
    missing_metrics INTEGER NOT NULL DEFAULT 0,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    comparison TEXT,
    created_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE INDEX IF NOT EXISTS idx_suites_created ON suites(created_at);

CREATE TABLE IF NOT EXISTS variant_summaries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    suite_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    variant TEXT NOT NULL,
    project TEXT NOT NULL,
    total_runs INTEGER NOT NULL,
    passed INTEGER NOT NULL,
    failed INTEGER NOT NULL,
    avg_duration REAL NOT NULL,
    impressions INTEGER NOT NULL,
    clicks INTEGER NOT NULL,
    form_starts INTEGER NOT NULL,
    form_completions INTEGER NOT NULL,
    ctr REAL NOT NULL,
    conversion_rate REAL NOT NULL,
    avg_time_to_conversion REAL NOT NULL,
    FOREIGN KEY (suite_id) REFERENCES suites(id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_summaries_suite_variant ON variant_summaries(suite_id, variant);

CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Apply schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveReport records a finalized suite and its variant summaries in one
// transaction, returning the new suite id.
func (s *SQLiteStore) SaveReport(ctx context.Context, rep *report.Report) (string, error) {
	id := uuid.NewString()

	var (
		comparisonJSON    []byte
		winner            string
		winnerSignificant bool
		err               error
	)
	if rep.Comparison != nil {
		comparisonJSON, err = json.Marshal(rep.Comparison)
		if err != nil {
			return "", fmt.Errorf("failed to marshal comparison: %w", err)
		}
		winner = rep.Comparison.Winner
		winnerSignificant = rep.Comparison.WinnerSignificant
	}

	totalRuns := 0
	for _, v := range rep.Variants {
		totalRuns += v.TotalRuns
	}

	createdAt := rep.Timestamp
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO suites (id, name, status, control_variant, winner, winner_significant, total_runs,
		                     parse_failures, missing_metrics, duration_ms, comparison, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, rep.Suite.Name, string(rep.Status), rep.ControlVariant, nullableString([]byte(winner)), boolToInt(winnerSignificant),
		totalRuns, rep.ParseFailures, rep.MissingMetrics, rep.Duration.Milliseconds(), nullableString(comparisonJSON), createdAt.Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert suite: %w", err)
	}

	for i, v := range rep.Variants {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO variant_summaries (suite_id, position, variant, project, total_runs, passed, failed, avg_duration,
			                                impressions, clicks, form_starts, form_completions, ctr, conversion_rate, avg_time_to_conversion)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, i, v.Variant, v.Project, v.TotalRuns, v.Passed, v.Failed, v.AvgDuration,
			v.Metrics.Impressions, v.Metrics.Clicks, v.Metrics.FormStarts, v.Metrics.FormCompletions,
			v.Metrics.CTR, v.Metrics.ConversionRate, v.Metrics.AvgTimeToConversion,
		)
		if err != nil {
			return "", fmt.Errorf("failed to insert summary for %s: %w", v.Variant, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit suite: %w", err)
	}

	return id, nil
}

const suiteColumns = `id, name, status, control_variant, winner, winner_significant, total_runs,
	parse_failures, missing_metrics, duration_ms, comparison, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSuite(row scanner) (*Suite, error) {
	var (
		suite          Suite
		status         string
		winner         sql.NullString
		winnerSig      int
		durationMs     int64
		comparisonJSON sql.NullString
		createdAt      int64
	)

	err := row.Scan(&suite.ID, &suite.Name, &status, &suite.ControlVariant, &winner, &winnerSig, &suite.TotalRuns,
		&suite.ParseFailures, &suite.MissingMetrics, &durationMs, &comparisonJSON, &createdAt)
	if err != nil {
		return nil, err
	}

	suite.Status = report.Status(status)
	suite.Winner = winner.String
	suite.WinnerSignificant = winnerSig != 0
	suite.Duration = time.Duration(durationMs) * time.Millisecond
	suite.CreatedAt = time.Unix(createdAt, 0)

	if comparisonJSON.Valid && comparisonJSON.String != "" {
		var cmp report.Comparison
		if err := json.Unmarshal([]byte(comparisonJSON.String), &cmp); err != nil {
			return nil, fmt.Errorf("failed to unmarshal comparison: %w", err)
		}
		suite.Comparison = &cmp
	}

	return &suite, nil
}

// GetSuite looks a suite up by full id, unique id prefix, or LatestRef.
func (s *SQLiteStore) GetSuite(ctx context.Context, ref string) (*Suite, error) {
	var row *sql.Row
	switch {
	case ref == LatestRef:
		row = s.db.QueryRowContext(ctx,
			`SELECT `+suiteColumns+` FROM suites ORDER BY created_at DESC, rowid DESC LIMIT 1`)
	case len(ref) < 36:
		id, err := s.resolvePrefix(ctx, ref)
		if err != nil {
			return nil, err
		}
		row = s.db.QueryRowContext(ctx, `SELECT `+suiteColumns+` FROM suites WHERE id = ?`, id)
	default:
		row = s.db.QueryRowContext(ctx, `SELECT `+suiteColumns+` FROM suites WHERE id = ?`, ref)
	}

	suite, err := scanSuite(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get suite: %w", err)
	}
	return suite, nil
}

func (s *SQLiteStore) resolvePrefix(ctx context.Context, prefix string) (string, error) {
	if prefix == "" || strings.ContainsAny(prefix, "%_") {
		return "", ErrNotFound
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM suites WHERE id LIKE ? LIMIT 2`, prefix+"%")
	if err != nil {
		return "", fmt.Errorf("failed to resolve suite id: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("failed to scan suite id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("failed to resolve suite id: %w", err)
	}

	switch len(ids) {
	case 0:
		return "", ErrNotFound
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%w: %q", ErrAmbiguous, prefix)
	}
}

// ListSuites returns the most recent suites first. A non-positive limit
// returns all of them.
func (s *SQLiteStore) ListSuites(ctx context.Context, limit int) ([]SuiteListing, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+suiteColumns+`,
		        (SELECT COUNT(*) FROM variant_summaries v WHERE v.suite_id = suites.id)
		 FROM suites ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list suites: %w", err)
	}
	defer rows.Close()

	var suites []SuiteListing
	for rows.Next() {
		var listing SuiteListing
		var count int
		suite, err := scanSuite(scanFunc(func(dest ...any) error {
			return rows.Scan(append(dest, &count)...)
		}))
		if err != nil {
			return nil, fmt.Errorf("failed to scan suite: %w", err)
		}
		listing.Suite = suite
		listing.VariantCount = count
		suites = append(suites, listing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list suites: %w", err)
	}

	return suites, nil
}

type scanFunc func(dest ...any) error

func (f scanFunc) Scan(dest ...any) error { return f(dest...) }

// GetSummaries returns a suite's variant summaries in recorded order.
func (s *SQLiteStore) GetSummaries(ctx context.Context, suiteID string) ([]report.VariantSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT variant, project, total_runs, passed, failed, avg_duration,
		       impressions, clicks, form_starts, form_completions, ctr, conversion_rate, avg_time_to_conversion
		FROM variant_summaries
		WHERE suite_id = ?
		ORDER BY position
	`, suiteID)
	if err != nil {
		return nil, fmt.Errorf("failed to get summaries: %w", err)
	}
	defer rows.Close()

	var summaries []report.VariantSummary
	for rows.Next() {
		var v report.VariantSummary
		err := rows.Scan(&v.Variant, &v.Project, &v.TotalRuns, &v.Passed, &v.Failed, &v.AvgDuration,
			&v.Metrics.Impressions, &v.Metrics.Clicks, &v.Metrics.FormStarts, &v.Metrics.FormCompletions,
			&v.Metrics.CTR, &v.Metrics.ConversionRate, &v.Metrics.AvgTimeToConversion)
		if err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		summaries = append(summaries, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get summaries: %w", err)
	}

	return summaries, nil
}

// LoadReport rebuilds a finalized report from history. Per-run events are
// not persisted, so Events is always empty.
func (s *SQLiteStore) LoadReport(ctx context.Context, ref string) (*report.Report, error) {
	suite, err := s.GetSuite(ctx, ref)
	if err != nil {
		return nil, err
	}

	summaries, err := s.GetSummaries(ctx, suite.ID)
	if err != nil {
		return nil, err
	}

	return &report.Report{
		Timestamp:      suite.CreatedAt,
		Suite:          report.SuiteInfo{Name: suite.Name, RunCount: suite.TotalRuns},
		Status:         suite.Status,
		Duration:       suite.Duration,
		ControlVariant: suite.ControlVariant,
		Variants:       summaries,
		Comparison:     suite.Comparison,
		ParseFailures:  suite.ParseFailures,
		MissingMetrics: suite.MissingMetrics,
	}, nil
}

func (s *SQLiteStore) DeleteSuite(ctx context.Context, id string) error {
	// First delete related summaries
	_, err := s.db.ExecContext(ctx, `DELETE FROM variant_summaries WHERE suite_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete summaries: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM suites WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete suite: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *SQLiteStore) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get setting: %w", err)
	}
	return value, nil
}

func (s *SQLiteStore) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set setting: %w", err)
	}
	return nil
}

// DB returns the underlying database connection for health checks
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func nullableString(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ Store = (*SQLiteStore)(nil)
