// Package dashboard holds the embedded HTML templates shared by the report
// file emitter and the history server.
package dashboard

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/headline-goat/funnel-goat/internal/report"
)

//go:embed templates/*.html
var Templates embed.FS

//go:embed assets/*
var Assets embed.FS

type layoutData struct {
	Title   string
	CSS     template.CSS
	Content template.HTML
}

// Render executes a content template inside the layout.
func Render(w io.Writer, title, contentTemplate string, data any) error {
	css, err := Assets.ReadFile("assets/style.css")
	if err != nil {
		return fmt.Errorf("failed to load styles: %w", err)
	}

	contentTmpl, err := template.ParseFS(Templates, "templates/"+contentTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	var content bytes.Buffer
	if err := contentTmpl.Execute(&content, data); err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}

	layoutTmpl, err := template.ParseFS(Templates, "templates/layout.html")
	if err != nil {
		return fmt.Errorf("failed to parse layout: %w", err)
	}

	return layoutTmpl.Execute(w, layoutData{
		Title:   title,
		CSS:     template.CSS(css),
		Content: template.HTML(content.String()),
	})
}

// ReportView is the template data for report.html.
type ReportView struct {
	Nav               bool
	Suite             string
	Generated         string
	Control           string
	Rows              []ReportRow
	Comparisons       []ComparisonRow
	Winner            string
	WinnerSignificant bool
	Dropped           string
}

type ReportRow struct {
	Rank       int
	Variant    string
	IsControl  bool
	IsWinner   bool
	CTR        string
	Conversion string
	CI         string
	AvgTime    string
	Runs       int
	Passed     int
	Failed     int
}

type ComparisonRow struct {
	Variant         string
	CTR             string
	CTRClass        string
	Conversion      string
	ConversionClass string
	Time            string
	PValue          string
	Significant     bool
}

// NewReportView ranks the report's variants by conversion rate.
func NewReportView(rep *report.Report) ReportView {
	v := ReportView{
		Suite:     rep.Suite.Name,
		Generated: rep.Timestamp.Format("Jan 2, 2006 15:04:05 MST"),
		Control:   rep.ControlVariant,
	}

	cis := make(map[string]string)
	if cmp := rep.Comparison; cmp != nil {
		v.Winner = cmp.Winner
		v.WinnerSignificant = cmp.WinnerSignificant
		for _, ci := range cmp.Intervals {
			cis[ci.Variant] = fmt.Sprintf("[%.1f%%, %.1f%%]", ci.CI95.Lower*100, ci.CI95.Upper*100)
		}
		for _, c := range cmp.Variants {
			v.Comparisons = append(v.Comparisons, ComparisonRow{
				Variant:         c.Variant,
				CTR:             report.FormatUplift(c.CTRUpliftPct),
				CTRClass:        direction(c.CTRUpliftPct),
				Conversion:      report.FormatUplift(c.ConversionUpliftPct),
				ConversionClass: direction(c.ConversionUpliftPct),
				Time:            report.FormatTimeChange(c.TimeChangePct),
				PValue:          fmt.Sprintf("%.4f", c.PValue),
				Significant:     c.Significant,
			})
		}
	}

	for i, s := range report.Ranked(rep.Variants) {
		ci, ok := cis[s.Variant]
		if !ok {
			ci = "N/A"
		}
		v.Rows = append(v.Rows, ReportRow{
			Rank:       i + 1,
			Variant:    s.Variant,
			IsControl:  s.Variant == rep.ControlVariant,
			IsWinner:   s.Variant == v.Winner,
			CTR:        report.FormatPercent(s.Metrics.CTR),
			Conversion: report.FormatPercent(s.Metrics.ConversionRate),
			CI:         ci,
			AvgTime:    fmt.Sprintf("%.0fms", s.Metrics.AvgTimeToConversion),
			Runs:       s.TotalRuns,
			Passed:     s.Passed,
			Failed:     s.Failed,
		})
	}

	if rep.ParseFailures > 0 || rep.MissingMetrics > 0 {
		v.Dropped = fmt.Sprintf("Dropped runs: %d unparseable, %d without metrics", rep.ParseFailures, rep.MissingMetrics)
	}

	return v
}

func direction(pct float64) string {
	switch {
	case pct > 0:
		return "up"
	case pct < 0:
		return "down"
	}
	return ""
}
