package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
)

// DefaultShutdownTimeout is the time given to in-flight queries to complete
// once the servers are asked to stop.
const DefaultShutdownTimeout = time.Second * 10

// ListenAndServe starts the given servers and blocks until they are all
// stopped. Servers are shut down when ctx is canceled, each of them waiting
// at most shutdownTimeout for its running requests.
func ListenAndServe(ctx context.Context, shutdownTimeout time.Duration, servers ...*http.Server) {
	go func() {
		<-ctx.Done()

		for _, s := range servers {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			if err := s.Shutdown(shutdownCtx); err != nil {
				logs.Warn(errors.New("shutting down the server failed").
					WithTag("addr", s.Addr).
					WithTag("timeout", shutdownTimeout).
					Wrap(err))
			}
			cancel()
		}
	}()

	var wg sync.WaitGroup

	for _, s := range servers {
		wg.Add(1)

		go func(s *http.Server) {
			defer wg.Done()

			logs.WithTag("addr", s.Addr).Info("starting server")

			switch err := s.ListenAndServe(); err {
			case nil, http.ErrServerClosed, context.Canceled:
				logs.WithTag("addr", s.Addr).Info("stopping server")

			default:
				logs.Warn(errors.New("server stopped").
					WithTag("addr", s.Addr).
					Wrap(err))
			}
		}(s)
	}

	wg.Wait()
}

var servicePaths = map[string]bool{
	"/index":      true,
	"/health":     true,
	"/ready":      true,
	"/version":    true,
	"/smoke-test": true,
	"/ws":         true,
	"/ping":       true,
}

// MetricsPathFormatter returns the path label of a request served by the
// query server. It returns an empty string on HTTP 301, 400, 404 or 405
// and for paths the server does not serve, which keeps the label set
// bounded.
func MetricsPathFormatter(statusCode int, path string) string {
	if statusCode == http.StatusMovedPermanently ||
		statusCode == http.StatusBadRequest ||
		statusCode == http.StatusNotFound ||
		statusCode == http.StatusMethodNotAllowed {
		return ""
	}

	path = strings.TrimSuffix(path, "/")
	if _, ok := QueryPaths[path]; ok || servicePaths[path] {
		return path
	}
	return ""
}
