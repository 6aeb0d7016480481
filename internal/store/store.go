package store

import (
	"context"

	"github.com/headline-goat/funnel-goat/internal/report"
)

// Store defines the interface for suite history operations
type Store interface {
	// Suite operations
	SaveReport(ctx context.Context, rep *report.Report) (string, error)
	GetSuite(ctx context.Context, ref string) (*Suite, error)
	ListSuites(ctx context.Context, limit int) ([]SuiteListing, error)
	DeleteSuite(ctx context.Context, id string) error

	// Summary operations
	GetSummaries(ctx context.Context, suiteID string) ([]report.VariantSummary, error)
	LoadReport(ctx context.Context, ref string) (*report.Report, error)

	// Settings
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error

	// Lifecycle
	Close() error
}

var _ report.Recorder = (Store)(nil)
