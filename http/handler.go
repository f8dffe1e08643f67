package http

import (
	"io"
	"net/http"

	"github.com/aukilabs/celltree/celltree"
	"github.com/aukilabs/celltree/models"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/segmentio/encoding/json"
)

const (
	ErrTypeMethodNotAllowed = "method_not_allowed"
	ErrTypeBodyRead         = "body_read"

	maxBodySize = 64 << 20
)

// QueryPaths maps the HTTP path of each query to its operation.
var QueryPaths = map[string]string{
	"/locate/points":   celltree.OpLocatePoints,
	"/locate/boxes":    celltree.OpLocateBoxes,
	"/intersect/boxes": celltree.OpIntersectBoxes,
	"/intersect/edges": celltree.OpIntersectEdges,
	"/intersect/faces": celltree.OpIntersectFaces,
}

// ErrorResponse is the body of a failed request.
type ErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// HandleWithCORS allows cross origin requests on h.
func HandleWithCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+models.HeaderClientID)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}

func HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func HandleReadyCheck(readinessCheck func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !readinessCheck() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func HandleVersion(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(version))
	}
}

// HandleIndex responds with the description of the served index.
func HandleIndex(idx *celltree.Index) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r)
			return
		}
		writeJSON(w, http.StatusOK, models.DescribeIndex(idx))
	}
}

// HandleQuery runs the query op with the request body as payload.
func HandleQuery(runner models.QueryRunner, op string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r)
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
		if err != nil {
			writeError(w, r, http.StatusBadRequest, errors.New("reading body failed").
				WithType(ErrTypeBodyRead).
				Wrap(err))
			return
		}

		res, err := runner.Run(op, body)
		if err != nil {
			writeError(w, r, statusCode(err), err)
			return
		}
		writeJSON(w, http.StatusOK, res.Data)
	}
}

// RegisterQueryHandlers registers a query handler allowing cross origin
// requests on mux for each of the QueryPaths.
func RegisterQueryHandlers(mux *http.ServeMux, runner models.QueryRunner) {
	for path, op := range QueryPaths {
		mux.Handle(path, HandleWithCORS(HandleQuery(runner, op)))
	}
}

func statusCode(err error) int {
	switch errors.Type(err) {
	case models.ErrTypeShapeMismatch, models.ErrTypeInvalidRequest:
		return http.StatusBadRequest

	case models.ErrTypeOperationDisabled:
		return http.StatusForbidden

	case models.ErrTypeUnknownOperation:
		return http.StatusNotFound

	default:
		return http.StatusInternalServerError
	}
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusMethodNotAllowed, errors.New("method not allowed").
		WithType(ErrTypeMethodNotAllowed).
		WithTag("method", r.Method))
}

func writeError(w http.ResponseWriter, r *http.Request, code int, err error) {
	entry := logs.WithTag("path", r.URL.Path).
		WithTag("status", code).
		WithClientID(r.Header.Get(models.HeaderClientID))

	if code >= http.StatusInternalServerError {
		entry.Error(err)
	} else {
		entry.Debug(err)
	}

	writeJSON(w, code, ErrorResponse{
		Type:    errors.Type(err),
		Message: err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		logs.Error(errors.New("encoding response failed").Wrap(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(b)
}
