package celltree

import (
	"runtime"
	"time"

	"github.com/aukilabs/celltree/mesh"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/golang/geo/r2"
	"github.com/google/uuid"
)

const (
	// NotFound is the cell id returned for points outside every cell.
	NotFound = -1

	DefaultCellsPerLeaf = 2
	DefaultBuckets      = 4

	ErrTypeInvalidOption = "invalid_option"
)

// Query operations.
const (
	OpLocatePoints   = "locate_points"
	OpLocateBoxes    = "locate_boxes"
	OpIntersectBoxes = "intersect_boxes"
	OpIntersectEdges = "intersect_edges"
	OpIntersectFaces = "intersect_faces"
)

// Operations returns every query operation.
func Operations() []string {
	return []string{
		OpLocatePoints,
		OpLocateBoxes,
		OpIntersectBoxes,
		OpIntersectEdges,
		OpIntersectFaces,
	}
}

// Pair associates a query item with a cell.
type Pair struct {
	Query int `json:"query"`
	Cell  int `json:"cell"`
}

// EdgeHit is the part of a query edge that lies in a cell. T0 and T1 are
// the parameters of Start and End along the edge, between 0 and 1.
type EdgeHit struct {
	Pair
	T0    float64
	T1    float64
	Start r2.Point
	End   r2.Point
}

// FaceHit is the intersection polygon of a query face with a cell.
type FaceHit struct {
	Pair
	Polygon []r2.Point
	Area    float64
}

// Options configure the construction and the queries of an index.
type Options struct {
	CellsPerLeaf int
	Buckets      int
	Workers      int
}

// Option is a function that sets an index option.
type Option func(*Options)

// WithCellsPerLeaf sets the maximum number of cells of a leaf, unless its
// cells cannot be separated.
func WithCellsPerLeaf(n int) Option {
	return func(o *Options) {
		o.CellsPerLeaf = n
	}
}

// WithBuckets sets the number of buckets evaluated when splitting a node.
func WithBuckets(n int) Option {
	return func(o *Options) {
		o.Buckets = n
	}
}

// WithWorkers sets the number of goroutines that run a batch query. 1 runs
// queries serially.
func WithWorkers(n int) Option {
	return func(o *Options) {
		o.Workers = n
	}
}

func (o Options) validate() error {
	switch {
	case o.CellsPerLeaf < 1:
		return errors.New("cells per leaf must be positive").
			WithType(ErrTypeInvalidOption).
			WithTag("cells_per_leaf", o.CellsPerLeaf)

	case o.Buckets < 2:
		return errors.New("buckets must be at least 2").
			WithType(ErrTypeInvalidOption).
			WithTag("buckets", o.Buckets)

	case o.Workers < 1:
		return errors.New("workers must be positive").
			WithType(ErrTypeInvalidOption).
			WithTag("workers", o.Workers)

	default:
		return nil
	}
}

// Index is a static cell tree over the cells of a mesh. It is safe for
// concurrent use.
type Index struct {
	ID string

	mesh    *mesh.Mesh
	options Options
	bounds  []r2.Rect
	nodes   []Node
	cells   []int
}

// New builds the cell tree of m.
func New(m *mesh.Mesh, options ...Option) (*Index, error) {
	opts := Options{
		CellsPerLeaf: DefaultCellsPerLeaf,
		Buckets:      DefaultBuckets,
		Workers:      runtime.GOMAXPROCS(0),
	}
	for _, o := range options {
		o(&opts)
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	bounds := m.Bounds()
	nodes, cells := build(bounds, opts.CellsPerLeaf, opts.Buckets)

	idx := &Index{
		ID:      uuid.NewString(),
		mesh:    m,
		options: opts,
		bounds:  bounds,
		nodes:   nodes,
		cells:   cells,
	}
	instrumentBuild(start, len(cells))

	logs.WithTag("index_id", idx.ID).
		WithTag("cells", len(cells)).
		WithTag("nodes", len(nodes)).
		WithTag("duration", time.Since(start)).
		Debug("cell tree built")

	return idx, nil
}

// Mesh returns the indexed mesh.
func (idx *Index) Mesh() *mesh.Mesh {
	return idx.mesh
}

// Options returns the options the index was built with.
func (idx *Index) Options() Options {
	return idx.options
}

// Extent returns the bounding box of every indexed cell.
func (idx *Index) Extent() r2.Rect {
	return idx.nodes[0].Box
}

// Nodes returns a copy of the node array. The root is at index 0.
func (idx *Index) Nodes() []Node {
	return append([]Node(nil), idx.nodes...)
}

// LocatePoints returns, for every point, the id of a cell containing it or
// NotFound. Points on a boundary shared by several cells resolve to a single
// cell, the same one on every call.
func (idx *Index) LocatePoints(points []r2.Point) []int {
	start := time.Now()

	res := make([]int, len(points))
	runBatch(len(points), idx.options.Workers, func(s *scratch, i int) {
		res[i] = idx.locatePoint(s, points[i])
	})

	found := 0
	for _, c := range res {
		if c != NotFound {
			found++
		}
	}
	instrumentQuery(OpLocatePoints, start, len(points), found)
	return res
}

// LocatePoint returns the id of a cell containing p or NotFound.
func (idx *Index) LocatePoint(p r2.Point) int {
	return idx.locatePoint(newScratch(), p)
}

// LocateBoxes returns the cells whose bounding box overlaps each query box.
// Pairs are grouped by query and sorted by cell id within a query.
func (idx *Index) LocateBoxes(boxes []r2.Rect) []Pair {
	return idx.boxPairs(OpLocateBoxes, boxes)
}

// IntersectBoxes is LocateBoxes under the name of the intersection family of
// queries.
func (idx *Index) IntersectBoxes(boxes []r2.Rect) []Pair {
	return idx.boxPairs(OpIntersectBoxes, boxes)
}

// LocateBox returns the ids of the cells whose bounding box overlaps box, in
// ascending order.
func (idx *Index) LocateBox(box r2.Rect) []int {
	return idx.appendBoxCells([]int{}, newScratch(), box)
}

func (idx *Index) boxPairs(op string, boxes []r2.Rect) []Pair {
	start := time.Now()

	res := collect(len(boxes), idx.options.Workers, func(dst []Pair, s *scratch, i int) []Pair {
		cells := idx.appendBoxCells(s.cells[:0], s, boxes[i])
		s.cells = cells

		for _, c := range cells {
			dst = append(dst, Pair{Query: i, Cell: c})
		}
		return dst
	})

	instrumentQuery(op, start, len(boxes), len(res))
	return res
}

// IntersectEdges returns the part of each query edge inside each cell it
// crosses or touches. Zero-length and non-finite edges match nothing.
func (idx *Index) IntersectEdges(edges [][2]r2.Point) []EdgeHit {
	start := time.Now()

	res := collect(len(edges), idx.options.Workers, func(dst []EdgeHit, s *scratch, i int) []EdgeHit {
		return idx.appendEdgeHits(dst, s, i, edges[i])
	})

	instrumentQuery(OpIntersectEdges, start, len(edges), len(res))
	return res
}

// IntersectFaces clips each query face against the cells it overlaps.
// Intersections with a zero area are dropped, as are degenerate faces.
func (idx *Index) IntersectFaces(faces [][]r2.Point) []FaceHit {
	start := time.Now()

	res := collect(len(faces), idx.options.Workers, func(dst []FaceHit, s *scratch, i int) []FaceHit {
		return idx.appendFaceHits(dst, s, i, faces[i])
	})

	instrumentQuery(OpIntersectFaces, start, len(faces), len(res))
	return res
}
