package cli

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/mchmarny/riskview/pkg/model"
)

const (
	arraySelector = "|"
	topNMax       = 100
)

type SeriesData[T any] struct {
	Labels []string `json:"labels" yaml:"labels"`
	Data   []T      `json:"data" yaml:"data"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func mapRankingToSeries(r model.Ranking) *SeriesData[float64] {
	return &SeriesData[float64]{
		Labels: r.Features(),
		Data:   r.Scores(),
	}
}

func mapEducationToSeries(v *educationView) *SeriesData[int64] {
	d := &SeriesData[int64]{
		Labels: make([]string, 0, len(v.Counts)),
		Data:   make([]int64, 0, len(v.Counts)),
	}
	for _, c := range v.Counts {
		d.Labels = append(d.Labels, c.Category)
		d.Data = append(d.Data, c.Count)
	}
	return d
}

func featuresAPIHandler(d *dashboard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		selected := splitList(r.URL.Query().Get("f"))
		n := queryParamInt(r, "n", model.DefaultTopN)

		slog.Debug("feature importance query", "selected", selected, "n", n)

		v, err := d.featureImportance(r.Context(), selected, n)
		if err != nil {
			slog.Error("failed to rank features", "error", err)
			writeError(w, http.StatusInternalServerError, "error ranking features")
			return
		}
		writeJSON(w, http.StatusOK, mapRankingToSeries(v.Shown))
	}
}

func educationAPIHandler(d *dashboard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := d.education(r.Context())
		if err != nil {
			slog.Error("failed to count education types", "error", err)
			writeError(w, http.StatusInternalServerError, "error counting education types")
			return
		}
		writeJSON(w, http.StatusOK, mapEducationToSeries(v))
	}
}

func healthHandler(d *dashboard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := d.provider.Get(r.Context())
		if err == nil {
			err = s.DB().PingContext(r.Context())
		}
		if err != nil {
			slog.Error("health check failed", "error", err)
			writeError(w, http.StatusServiceUnavailable, "warehouse unavailable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func splitList(v string) []string {
	list := make([]string, 0)
	for _, s := range strings.Split(v, arraySelector) {
		if s = strings.TrimSpace(s); s != "" {
			list = append(list, s)
		}
	}
	return list
}

func queryParamInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}

	i, err := strconv.Atoi(v)
	if err != nil {
		slog.Error("error converting query string to int", "value", v, "error", err)
		return def
	}

	if i < 1 || i > topNMax {
		return def
	}

	return i
}
