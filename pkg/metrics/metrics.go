// Package metrics holds the Prometheus collectors of the dashboard on a
// private registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "riskview"

var (
	Registry = prometheus.NewRegistry()

	PageRenders = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "page_renders_total",
		Help:      "Page renders by page and outcome.",
	}, []string{"page", "outcome"})

	RenderDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "page_render_duration_seconds",
		Help:      "Page render latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"page"})

	WarehouseQueries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "warehouse_queries_total",
		Help:      "Queries issued against the warehouse by table.",
	}, []string{"table"})

	TableCacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "table_cache_hits_total",
		Help:      "Table loads served from the process cache.",
	}, []string{"table"})

	ArtifactFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "artifact_fetches_total",
		Help:      "Model artifact fetches by source (stage or cache).",
	}, []string{"source"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		PageRenders,
		RenderDuration,
		WarehouseQueries,
		TableCacheHits,
		ArtifactFetches,
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
