package cli

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/mchmarny/riskview/pkg/metrics"
	"github.com/mchmarny/riskview/pkg/model"
)

const (
	pageParam    = "page"
	featureParam = "feature"
)

// page is one entry of the sidebar selector.
type page struct {
	Label  string
	Slug   string
	render func(r *http.Request) (any, error)
}

type chartData struct {
	Title      string `json:"title"`
	ValueLabel string `json:"value_label"`
	Legend     bool   `json:"legend"`
	Reverse    bool   `json:"reverse"`
	Series     any    `json:"series"`
}

type importancePage struct {
	View       *featureView
	IsSelected map[string]bool
	Chart      *chartData
}

type educationPage struct {
	View  *educationView
	Chart *chartData
}

// pages lists the views in selector order; the first one is the default.
func (d *dashboard) pages() []*page {
	return []*page{
		{Label: "Feature Importance", Slug: "importance", render: d.renderImportance},
		{Label: "EDA", Slug: "eda", render: d.renderEducation},
	}
}

func (d *dashboard) renderImportance(r *http.Request) (any, error) {
	selected := r.URL.Query()[featureParam]
	v, err := d.featureImportance(r.Context(), selected, model.DefaultTopN)
	if err != nil {
		return nil, err
	}

	isSelected := make(map[string]bool, len(selected))
	for _, s := range selected {
		isSelected[s] = true
	}

	return &importancePage{
		View:       v,
		IsSelected: isSelected,
		Chart: &chartData{
			ValueLabel: "Feature_importance",
			Series:     mapRankingToSeries(v.Shown),
		},
	}, nil
}

func (d *dashboard) renderEducation(r *http.Request) (any, error) {
	v, err := d.education(r.Context())
	if err != nil {
		return nil, err
	}
	return &educationPage{
		View: v,
		Chart: &chartData{
			Title:      "Education Type",
			ValueLabel: "Count",
			Legend:     true,
			Reverse:    true,
			Series:     mapEducationToSeries(v),
		},
	}, nil
}

func findPage(pages []*page, label string) (*page, bool) {
	if label == "" {
		return pages[0], true
	}
	for _, p := range pages {
		if p.Label == label {
			return p, true
		}
	}
	return nil, false
}

func faviconHandler(w http.ResponseWriter, r *http.Request) {
	file, err := embedFS.ReadFile("assets/img/favicon.svg")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	if _, err = w.Write(file); err != nil {
		slog.Error("failed to write favicon", "error", err)
	}
}

// viewHandler renders the selected page. Exactly one page renders per request.
func viewHandler(tmpl *template.Template, pages []*page) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := findPage(pages, r.URL.Query().Get(pageParam))
		d := map[string]any{
			"version":    version,
			"commit":     commit,
			"build_date": date,
			"pages":      pages,
			"page":       p,
		}

		if !ok {
			d["err"] = "unknown page: " + r.URL.Query().Get(pageParam)
			renderTemplate(w, tmpl, http.StatusNotFound, d)
			return
		}

		start := time.Now()
		v, err := p.render(r)
		metrics.RenderDuration.WithLabelValues(p.Label).Observe(time.Since(start).Seconds())

		if err != nil {
			metrics.PageRenders.WithLabelValues(p.Label, "error").Inc()
			slog.Error("page render failed", "page", p.Label, "error", err)
			d["err"] = err.Error()
			renderTemplate(w, tmpl, http.StatusInternalServerError, d)
			return
		}

		metrics.PageRenders.WithLabelValues(p.Label, "ok").Inc()
		d["view"] = v
		renderTemplate(w, tmpl, http.StatusOK, d)
	}
}

func renderTemplate(w http.ResponseWriter, tmpl *template.Template, status int, d map[string]any) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "home", d); err != nil {
		slog.Error("template render failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("failed to write page", "error", err)
	}
}
