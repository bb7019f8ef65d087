package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/and161185/health-dashboard/internal/charts"
	"github.com/and161185/health-dashboard/model"
)

//go:embed templates/dashboard.html
var templateFS embed.FS

var dashboardTemplate = template.Must(
	template.New("dashboard.html").Funcs(templateFuncs).ParseFS(templateFS, "templates/dashboard.html"),
)

var templateFuncs = template.FuncMap{
	"percent": func(v *float64) string {
		if v == nil {
			return "—"
		}
		return fmt.Sprintf("%.1f%%", *v)
	},
	"millis": func(v *float64) string {
		if v == nil {
			return "—"
		}
		return fmt.Sprintf("%.0f ms", *v)
	},
	"deref": func(v *bool) bool { return v != nil && *v },
	"online": func(v *bool) string {
		switch {
		case v == nil:
			return "—"
		case *v:
			return "Online"
		default:
			return "Offline"
		}
	},
}

type chartView struct {
	Title string
	Src   template.URL
}

type dashboardView struct {
	Summary     model.Summary
	Recent      []model.Snapshot
	Clients     []model.ClientRollup
	Charts      []chartView
	BaseURL     string
	GeneratedAt string
}

// DashboardHandler renders the HTML overview page.
func (srv *Server) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	d := srv.aggregator.Dashboard(r.Context())

	view := dashboardView{
		Summary:     d.Summary,
		Recent:      d.Recent,
		Clients:     d.Clients,
		BaseURL:     baseURL(r),
		GeneratedAt: time.Now().Format("2006-01-02 15:04:05"),
	}
	for _, c := range charts.InOrder(srv.charts.Build(d.ChartInput)) {
		view.Charts = append(view.Charts, chartView{
			Title: c.Title,
			// base64 from our own renderer, safe as a data URL
			Src: template.URL("data:image/png;base64," + c.Image),
		})
	}

	var buf bytes.Buffer
	if err := srv.dashboard.Execute(&buf, view); err != nil {
		srv.logger.Errorf("dashboard render failed: %v", err)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = fmt.Fprintf(w, "Dashboard Error: %v", err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		srv.logger.Errorf("failed to write dashboard: %v", err)
	}
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}
	return strings.TrimRight(scheme+"://"+r.Host, "/")
}
