package models

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	operationLabel = "operation"
	errorTypeLabel = "error_type"
)

var (
	queryRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "celltree_query_rejections_total",
		Help: "The number of queries rejected before reaching the index.",
	}, []string{operationLabel, errorTypeLabel})

	queryRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "celltree_query_runs_total",
		Help: "The number of queries run against the index.",
	}, []string{operationLabel})
)

func instrumentQueryRun(op string, err error) {
	if err != nil {
		errType := errors.Type(err)
		if errType == "" {
			errType = "unknown"
		}

		if errType == ErrTypeUnknownOperation {
			op = "unknown"
		}

		queryRejections.
			With(prometheus.Labels{
				operationLabel: op,
				errorTypeLabel: errType,
			}).
			Inc()
		return
	}

	queryRuns.
		With(prometheus.Labels{operationLabel: op}).
		Inc()
}
