package smoketest

import (
	"context"
	"io"
	"math"
	"net/http"
	"slices"
	"time"

	"github.com/aukilabs/celltree/celltree"
	"github.com/aukilabs/celltree/geometry"
	"github.com/aukilabs/celltree/mesh"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/golang/geo/r2"
	"github.com/segmentio/encoding/json"
)

const (
	ErrTypeCheckFailed = "smoke_test_check_failed"
)

type Options struct {
	// The public endpoint reported with the results.
	Endpoint string

	// Sends the results to a remote collector. Optional.
	SendResult func(context.Context, Results) error
}

// Request is the optional body of a smoke test request. Zero values use the
// index defaults.
type Request struct {
	CellsPerLeaf int `json:"cells_per_leaf,omitempty"`
	Buckets      int `json:"buckets,omitempty"`
}

// Results holds the outcome of a smoke test run.
type Results struct {
	Endpoint string        `json:"endpoint"`
	Passed   bool          `json:"passed"`
	Duration time.Duration `json:"duration"`
	Checks   []Check       `json:"checks"`
}

// Check is the outcome of a single smoke test check.
type Check struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Error  string `json:"error,omitempty"`
}

func HandleSmokeTest(ctx context.Context, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		b, err := io.ReadAll(r.Body)
		if err != nil {
			logs.Warn(errors.New("reading body failed").Wrap(err))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		var req Request
		if len(b) != 0 {
			if err := json.Unmarshal(b, &req); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
		}

		var options []celltree.Option
		if req.CellsPerLeaf != 0 {
			options = append(options, celltree.WithCellsPerLeaf(req.CellsPerLeaf))
		}
		if req.Buckets != 0 {
			options = append(options, celltree.WithBuckets(req.Buckets))
		}

		res := Run(options...)
		res.Endpoint = opts.Endpoint

		if opts.SendResult != nil {
			if err := opts.SendResult(ctx, res); err != nil {
				logs.WithTag("endpoint", opts.Endpoint).
					Warn(errors.New("sending smoke test result failed").Wrap(err))
			}
		}

		if !res.Passed {
			logs.WithTag("endpoint", opts.Endpoint).
				WithTag("checks", res.Checks).
				Warn(errors.New("smoke test failed").WithType(ErrTypeCheckFailed))
		}

		body, err := json.Marshal(res)
		if err != nil {
			logs.Warn(errors.New("encoding smoke test result failed").Wrap(err))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	}
}

// Run builds an index over a 2x2 grid of 8 triangles and checks the results
// of a known set of queries.
func Run(options ...celltree.Option) Results {
	start := time.Now()
	res := Results{Passed: true}

	check := func(name string, f func() error) {
		c := Check{Name: name, Passed: true}
		if err := f(); err != nil {
			c.Passed = false
			c.Error = err.Error()
			res.Passed = false
		}
		res.Checks = append(res.Checks, c)
	}

	var idx *celltree.Index
	check("build", func() error {
		m, err := gridMesh(2)
		if err != nil {
			return err
		}

		idx, err = celltree.New(m, options...)
		return err
	})
	if idx == nil {
		res.Duration = time.Since(start)
		return res
	}

	check("full_box", func() error {
		cells := idx.LocateBox(geometry.NewBox(0, 0, 2, 2))
		return expectCells(cells, []int{0, 1, 2, 3, 4, 5, 6, 7})
	})

	check("points", func() error {
		cells := idx.LocatePoints([]r2.Point{
			{X: 0.75, Y: 0.25},
			{X: 0.25, Y: 0.75},
			{X: 1.75, Y: 0.25},
			{X: 1.25, Y: 1.75},
			{X: 3, Y: 3},
			{X: math.NaN(), Y: 1},
		})
		return expectCells(cells, []int{0, 1, 2, 7, celltree.NotFound, celltree.NotFound})
	})

	check("centre_vertex", func() error {
		c := idx.LocatePoint(r2.Point{X: 1, Y: 1})
		if !slices.Contains([]int{0, 1, 3, 4, 6, 7}, c) {
			return errors.New("centre vertex located in a non adjacent cell").
				WithType(ErrTypeCheckFailed).
				WithTag("cell", c)
		}
		if again := idx.LocatePoint(r2.Point{X: 1, Y: 1}); again != c {
			return errors.New("centre vertex location is not deterministic").
				WithType(ErrTypeCheckFailed).
				WithTag("first", c).
				WithTag("second", again)
		}
		return nil
	})

	check("cell_centroids", func() error {
		m := idx.Mesh()
		for c := 0; c < m.CellCount(); c++ {
			cell := m.Cell(c)
			centroid, ok := geometry.PolygonCentroid(cell)
			if !ok || !geometry.PointInPolygon(centroid, cell) {
				return errors.New("cell centroid is outside its cell").
					WithType(ErrTypeCheckFailed).
					WithTag("cell", c)
			}
			if got := idx.LocatePoint(centroid); got != c {
				return errors.New("cell centroid located in another cell").
					WithType(ErrTypeCheckFailed).
					WithTag("cell", c).
					WithTag("got", got)
			}
		}
		return nil
	})

	check("shared_edge", func() error {
		hits := idx.IntersectEdges([][2]r2.Point{{{X: 1, Y: 0.25}, {X: 1, Y: 0.75}}})

		cells := make([]int, len(hits))
		for i, h := range hits {
			cells[i] = h.Cell
		}
		return expectCells(cells, []int{0, 3})
	})

	check("far_edge", func() error {
		hits := idx.IntersectEdges([][2]r2.Point{{{X: -1e308, Y: 0.5}, {X: 1e308, Y: 0.5}}})

		cells := make([]int, len(hits))
		for i, h := range hits {
			if math.IsNaN(h.T0) || math.IsNaN(h.T1) || !geometry.IsFinite(h.Start) || !geometry.IsFinite(h.End) {
				return errors.New("far edge hit is not finite").
					WithType(ErrTypeCheckFailed).
					WithTag("cell", h.Cell)
			}
			cells[i] = h.Cell
		}
		return expectCells(cells, []int{0, 1, 2, 3})
	})

	check("covering_face", func() error {
		hits := idx.IntersectFaces([][]r2.Point{{
			{X: -1, Y: -1},
			{X: 3, Y: -1},
			{X: 3, Y: 3},
			{X: -1, Y: 3},
		}})

		var area float64
		for _, h := range hits {
			area += h.Area
		}
		if len(hits) != 8 || !geometry.EqualWithEpsilon(area, 4, 4e-9) {
			return errors.New("clipped areas do not sum to the mesh area").
				WithType(ErrTypeCheckFailed).
				WithTag("hits", len(hits)).
				WithTag("area", area)
		}
		return nil
	})

	check("empty_mesh", func() error {
		m, err := mesh.New(nil, nil)
		if err != nil {
			return err
		}

		empty, err := celltree.New(m, options...)
		if err != nil {
			return err
		}
		return expectCells([]int{empty.LocatePoint(r2.Point{X: 0.5, Y: 0.5})}, []int{celltree.NotFound})
	})

	res.Duration = time.Since(start)
	return res
}

func gridMesh(n int) (*mesh.Mesh, error) {
	var vertices []r2.Point
	for j := 0; j <= n; j++ {
		for i := 0; i <= n; i++ {
			vertices = append(vertices, r2.Point{X: float64(i), Y: float64(j)})
		}
	}

	var faces [][]int
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			v00 := j*(n+1) + i
			v10 := v00 + 1
			v01 := v00 + n + 1
			v11 := v01 + 1
			faces = append(faces, []int{v00, v10, v11}, []int{v00, v11, v01})
		}
	}

	return mesh.New(vertices, faces)
}

func expectCells(got []int, expected []int) error {
	if !slices.Equal(got, expected) {
		return errors.New("unexpected cells").
			WithType(ErrTypeCheckFailed).
			WithTag("expected", expected).
			WithTag("got", got)
	}
	return nil
}
