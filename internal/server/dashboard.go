package server

import (
	"bytes"
	"net/http"

	"github.com/dustin/go-humanize"

	"github.com/headline-goat/funnel-goat/internal/dashboard"
	"github.com/headline-goat/funnel-goat/internal/report"
)

type listData struct {
	Suites []suiteListItem
}

type suiteListItem struct {
	ID                string
	Name              string
	CreatedAt         string
	Ago               string
	Status            report.Status
	Control           string
	VariantCount      int
	TotalRuns         int
	Winner            string
	WinnerSignificant bool
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("logout") == "1" {
		clearTokenCookie(w)
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}

	suites, err := s.store.ListSuites(r.Context(), 0)
	if err != nil {
		http.Error(w, "Failed to load suites", http.StatusInternalServerError)
		return
	}

	items := make([]suiteListItem, len(suites))
	for i, l := range suites {
		items[i] = suiteListItem{
			ID:                l.ID,
			Name:              l.Name,
			CreatedAt:         l.CreatedAt.Format("Jan 2, 2006 15:04"),
			Ago:               humanize.Time(l.CreatedAt),
			Status:            l.Status,
			Control:           l.ControlVariant,
			VariantCount:      l.VariantCount,
			TotalRuns:         l.TotalRuns,
			Winner:            l.Winner,
			WinnerSignificant: l.WinnerSignificant,
		}
	}

	s.renderDashboard(w, "Dashboard", "list.html", listData{Suites: items})
}

func (s *Server) handleDashboardSuite(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.loadReport(w, r)
	if !ok {
		return
	}

	view := dashboard.NewReportView(rep)
	view.Nav = true

	s.renderDashboard(w, rep.Suite.Name, "report.html", view)
}

// renderDashboard buffers the page so a template error still yields a
// clean 500 instead of a half-written body.
func (s *Server) renderDashboard(w http.ResponseWriter, title, contentTemplate string, data any) {
	var buf bytes.Buffer
	if err := dashboard.Render(&buf, title, contentTemplate, data); err != nil {
		s.logger.Error("failed to render dashboard", "template", contentTemplate, "error", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}
