package models

import (
	"github.com/aukilabs/celltree/celltree"
	"github.com/aukilabs/celltree/geometry"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/golang/geo/r2"
	"github.com/segmentio/encoding/json"
)

const (
	ErrTypeShapeMismatch     = "shape_mismatch"
	ErrTypeInvalidRequest    = "invalid_request"
	ErrTypeUnknownOperation  = "unknown_operation"
	ErrTypeOperationDisabled = "operation_disabled"
)

// PointsRequest is the payload of a locate_points query: a list of [x, y]
// coordinates.
type PointsRequest struct {
	Points [][]float64 `json:"points"`
}

// Decode validates the shape of the request and returns its points.
func (r PointsRequest) Decode() ([]r2.Point, error) {
	points := make([]r2.Point, len(r.Points))
	for i, p := range r.Points {
		if len(p) != 2 {
			return nil, shapeMismatch("points", i, 2, len(p))
		}
		points[i] = r2.Point{X: p[0], Y: p[1]}
	}
	return points, nil
}

// BoxesRequest is the payload of a box query: a list of
// [xmin, ymin, xmax, ymax] boxes.
type BoxesRequest struct {
	Boxes [][]float64 `json:"boxes"`
}

// Decode validates the shape of the request and returns its boxes.
func (r BoxesRequest) Decode() ([]r2.Rect, error) {
	boxes := make([]r2.Rect, len(r.Boxes))
	for i, b := range r.Boxes {
		if len(b) != 4 {
			return nil, shapeMismatch("boxes", i, 4, len(b))
		}
		boxes[i] = geometry.NewBox(b[0], b[1], b[2], b[3])
	}
	return boxes, nil
}

// EdgesRequest is the payload of an intersect_edges query: a list of
// [[x, y], [x, y]] segments.
type EdgesRequest struct {
	Edges [][][]float64 `json:"edges"`
}

// Decode validates the shape of the request and returns its edges.
func (r EdgesRequest) Decode() ([][2]r2.Point, error) {
	edges := make([][2]r2.Point, len(r.Edges))
	for i, e := range r.Edges {
		if len(e) != 2 {
			return nil, shapeMismatch("edges", i, 2, len(e))
		}

		for j, p := range e {
			if len(p) != 2 {
				return nil, pointShapeMismatch("edges", i, j, len(p))
			}
			edges[i][j] = r2.Point{X: p[0], Y: p[1]}
		}
	}
	return edges, nil
}

// FacesRequest is the payload of an intersect_faces query: a list of
// polygons made of [x, y] vertices.
type FacesRequest struct {
	Faces [][][]float64 `json:"faces"`
}

// Decode validates the shape of the request and returns its faces. Faces
// with less than 3 vertices are kept: they match nothing.
func (r FacesRequest) Decode() ([][]r2.Point, error) {
	faces := make([][]r2.Point, len(r.Faces))
	for i, f := range r.Faces {
		face := make([]r2.Point, len(f))
		for j, p := range f {
			if len(p) != 2 {
				return nil, pointShapeMismatch("faces", i, j, len(p))
			}
			face[j] = r2.Point{X: p[0], Y: p[1]}
		}
		faces[i] = face
	}
	return faces, nil
}

func shapeMismatch(field string, item int, expected int, got int) error {
	return errors.New("unexpected item shape").
		WithType(ErrTypeShapeMismatch).
		WithTag("field", field).
		WithTag("item", item).
		WithTag("expected", expected).
		WithTag("got", got)
}

func pointShapeMismatch(field string, item int, point int, got int) error {
	return errors.New("unexpected point shape").
		WithType(ErrTypeShapeMismatch).
		WithTag("field", field).
		WithTag("item", item).
		WithTag("point", point).
		WithTag("expected", 2).
		WithTag("got", got)
}

// CellsResponse holds one cell id per queried point, -1 when no cell
// contains the point.
type CellsResponse struct {
	Cells []int `json:"cells"`
}

// PairsResponse holds [query, cell] pairs.
type PairsResponse struct {
	Pairs [][2]int `json:"pairs"`
}

// EdgeHit is the wire representation of celltree.EdgeHit.
type EdgeHit struct {
	Query int        `json:"query"`
	Cell  int        `json:"cell"`
	T0    float64    `json:"t0"`
	T1    float64    `json:"t1"`
	Start [2]float64 `json:"start"`
	End   [2]float64 `json:"end"`
}

// EdgesResponse holds the hits of an intersect_edges query.
type EdgesResponse struct {
	Hits []EdgeHit `json:"hits"`
}

// FaceHit is the wire representation of celltree.FaceHit.
type FaceHit struct {
	Query   int          `json:"query"`
	Cell    int          `json:"cell"`
	Polygon [][2]float64 `json:"polygon"`
	Area    float64      `json:"area"`
}

// FacesResponse holds the hits of an intersect_faces query.
type FacesResponse struct {
	Hits []FaceHit `json:"hits"`
}

func toPairsResponse(pairs []celltree.Pair) PairsResponse {
	res := PairsResponse{Pairs: make([][2]int, len(pairs))}
	for i, p := range pairs {
		res.Pairs[i] = [2]int{p.Query, p.Cell}
	}
	return res
}

func toEdgesResponse(hits []celltree.EdgeHit) EdgesResponse {
	res := EdgesResponse{Hits: make([]EdgeHit, len(hits))}
	for i, h := range hits {
		res.Hits[i] = EdgeHit{
			Query: h.Query,
			Cell:  h.Cell,
			T0:    h.T0,
			T1:    h.T1,
			Start: toCoords(h.Start),
			End:   toCoords(h.End),
		}
	}
	return res
}

func toFacesResponse(hits []celltree.FaceHit) FacesResponse {
	res := FacesResponse{Hits: make([]FaceHit, len(hits))}
	for i, h := range hits {
		polygon := make([][2]float64, len(h.Polygon))
		for j, p := range h.Polygon {
			polygon[j] = toCoords(p)
		}

		res.Hits[i] = FaceHit{
			Query:   h.Query,
			Cell:    h.Cell,
			Polygon: polygon,
			Area:    h.Area,
		}
	}
	return res
}

func toCoords(p r2.Point) [2]float64 {
	return [2]float64{p.X, p.Y}
}

// IndexResponse describes the served index.
type IndexResponse struct {
	ID       string         `json:"id"`
	Vertices int            `json:"vertices"`
	Area     float64        `json:"area"`
	Extent   [4]float64     `json:"extent"`
	Options  IndexOptions   `json:"options"`
	Stats    celltree.Stats `json:"stats"`
}

// IndexOptions are the options an index was built with.
type IndexOptions struct {
	CellsPerLeaf int `json:"cells_per_leaf"`
	Buckets      int `json:"buckets"`
	Workers      int `json:"workers"`
}

// DescribeIndex returns the description of idx.
func DescribeIndex(idx *celltree.Index) IndexResponse {
	extent := idx.Extent()
	opts := idx.Options()

	res := IndexResponse{
		ID:       idx.ID,
		Vertices: idx.Mesh().VertexCount(),
		Area:     idx.Mesh().Area(),
		Options: IndexOptions{
			CellsPerLeaf: opts.CellsPerLeaf,
			Buckets:      opts.Buckets,
			Workers:      opts.Workers,
		},
		Stats: idx.Stats(),
	}
	if !extent.IsEmpty() {
		res.Extent = [4]float64{extent.X.Lo, extent.Y.Lo, extent.X.Hi, extent.Y.Hi}
	}
	return res
}

// QueryResult is the outcome of a query run.
type QueryResult struct {
	// The response payload.
	Data any

	// The number of queried items.
	Items int
}

// QueryRunner decodes query payloads, runs them against an index and
// returns their wire response.
type QueryRunner struct {
	Index *celltree.Index

	// Operations refused with an operation_disabled error.
	Disabled map[string]bool
}

// Run runs the query op with the given JSON payload.
func (r QueryRunner) Run(op string, data []byte) (QueryResult, error) {
	res, err := r.run(op, data)
	instrumentQueryRun(op, err)
	return res, err
}

func (r QueryRunner) run(op string, data []byte) (QueryResult, error) {
	if r.Disabled[op] {
		return QueryResult{}, errors.New("operation is disabled").
			WithType(ErrTypeOperationDisabled).
			WithTag("operation", op)
	}

	switch op {
	case celltree.OpLocatePoints:
		var req PointsRequest
		if err := decodePayload(data, &req); err != nil {
			return QueryResult{}, err
		}

		points, err := req.Decode()
		if err != nil {
			return QueryResult{}, err
		}

		return QueryResult{
			Data:  CellsResponse{Cells: r.Index.LocatePoints(points)},
			Items: len(points),
		}, nil

	case celltree.OpLocateBoxes, celltree.OpIntersectBoxes:
		var req BoxesRequest
		if err := decodePayload(data, &req); err != nil {
			return QueryResult{}, err
		}

		boxes, err := req.Decode()
		if err != nil {
			return QueryResult{}, err
		}

		var pairs []celltree.Pair
		if op == celltree.OpLocateBoxes {
			pairs = r.Index.LocateBoxes(boxes)
		} else {
			pairs = r.Index.IntersectBoxes(boxes)
		}

		return QueryResult{
			Data:  toPairsResponse(pairs),
			Items: len(boxes),
		}, nil

	case celltree.OpIntersectEdges:
		var req EdgesRequest
		if err := decodePayload(data, &req); err != nil {
			return QueryResult{}, err
		}

		edges, err := req.Decode()
		if err != nil {
			return QueryResult{}, err
		}

		return QueryResult{
			Data:  toEdgesResponse(r.Index.IntersectEdges(edges)),
			Items: len(edges),
		}, nil

	case celltree.OpIntersectFaces:
		var req FacesRequest
		if err := decodePayload(data, &req); err != nil {
			return QueryResult{}, err
		}

		faces, err := req.Decode()
		if err != nil {
			return QueryResult{}, err
		}

		return QueryResult{
			Data:  toFacesResponse(r.Index.IntersectFaces(faces)),
			Items: len(faces),
		}, nil

	default:
		return QueryResult{}, errors.New("unknown operation").
			WithType(ErrTypeUnknownOperation).
			WithTag("operation", op)
	}
}

func decodePayload(data []byte, v any) error {
	if len(data) == 0 {
		return errors.New("empty query payload").
			WithType(ErrTypeInvalidRequest)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return errors.New("decoding query payload failed").
			WithType(ErrTypeInvalidRequest).
			Wrap(err)
	}
	return nil
}
