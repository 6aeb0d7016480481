package store

import (
	"time"

	"github.com/headline-goat/funnel-goat/internal/report"
)

// Suite is one finalized suite as recorded in history.
type Suite struct {
	ID                string
	Name              string
	Status            report.Status
	ControlVariant    string
	Winner            string // empty with fewer than two variants
	WinnerSignificant bool
	TotalRuns         int
	ParseFailures     int
	MissingMetrics    int
	Duration          time.Duration
	Comparison        *report.Comparison // decoded from JSON
	CreatedAt         time.Time
}

// SuiteListing is a history row with its variant count.
type SuiteListing struct {
	*Suite
	VariantCount int
}
