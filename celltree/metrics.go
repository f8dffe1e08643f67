package celltree

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	operationLabel = "operation"
)

var (
	buildLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "celltree_build_latency",
		Help: "The time to build a cell tree, in seconds.",
	})

	indexedCells = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "celltree_indexed_cells",
		Help: "The number of cells of the last built cell tree.",
	})

	queryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "celltree_query_latency",
		Help: "The time to run a batch query, in seconds.",
	}, []string{operationLabel})

	queryItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "celltree_query_items",
		Help: "The number of queried items.",
	}, []string{operationLabel})

	queryMatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "celltree_query_matches",
		Help: "The number of matches returned by queries.",
	}, []string{operationLabel})
)

func instrumentBuild(start time.Time, cells int) {
	buildLatency.Observe(time.Since(start).Seconds())
	indexedCells.Set(float64(cells))
}

func instrumentQuery(op string, start time.Time, items int, matches int) {
	labels := prometheus.Labels{operationLabel: op}

	queryLatency.With(labels).Observe(time.Since(start).Seconds())
	queryItems.With(labels).Add(float64(items))
	queryMatches.With(labels).Add(float64(matches))
}
