package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DatasetLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solardash_dataset_loads_total",
			Help: "Total dataset loads that reached the underlying source",
		},
		[]string{"country", "source", "status"},
	)

	DatasetLoadLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "solardash_dataset_load_latency_seconds",
			Help:    "Dataset load latency in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"country", "source"},
	)

	DatasetCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solardash_dataset_cache_hits_total",
			Help: "Dataset requests served from the load cache",
		},
		[]string{"country"},
	)

	DatasetRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "solardash_dataset_rows",
			Help: "Row count of the most recently loaded dataset",
		},
		[]string{"country"},
	)

	PageRendersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solardash_page_renders_total",
			Help: "Total dashboard views served",
		},
		[]string{"view", "status"},
	)

	ChartRenderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "solardash_chart_render_latency_seconds",
			Help:    "Time spent building and rendering a chart",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"chart", "format"},
	)

	RowsImported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solardash_rows_imported_total",
			Help: "Total dataset rows persisted by the importer",
		},
		[]string{"country"},
	)

	RowsFlagged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solardash_rows_flagged_total",
			Help: "Imported rows that failed a quality check",
		},
		[]string{"country", "flag"},
	)

	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solardash_fetches_total",
			Help: "Dataset downloads from the mirror",
		},
		[]string{"country", "scheme", "status"},
	)
)
