package mesh

import (
	"math"

	"github.com/aukilabs/celltree/geometry"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/golang/geo/r2"
)

const (
	// FillValue pads the rows of cells with fewer vertices than the widest
	// cell of the mesh.
	FillValue = -1

	ErrTypeMalformedMesh = "malformed_mesh"
)

// Mesh is an immutable 2D mesh of convex cells. Each cell is a row of vertex
// indices, padded at its end with FillValue.
type Mesh struct {
	vertices []r2.Point
	faces    [][]int
	lengths  []int
	maxVerts int
}

// New validates the given vertices and faces and returns a mesh that owns a
// copy of them.
//
// Every row of faces must have the same length of at least 3. Indices must be
// in range or FillValue, and fill values may only trail. Each cell needs at
// least 3 valid vertices, a non-zero area and must be convex. Both winding
// orders are accepted.
func New(vertices []r2.Point, faces [][]int) (*Mesh, error) {
	m := &Mesh{
		vertices: make([]r2.Point, len(vertices)),
		faces:    make([][]int, len(faces)),
		lengths:  make([]int, len(faces)),
	}
	copy(m.vertices, vertices)

	if len(faces) != 0 {
		m.maxVerts = len(faces[0])
	}
	if len(faces) != 0 && m.maxVerts < 3 {
		return nil, errors.New("cells must have room for at least 3 vertices").
			WithType(ErrTypeMalformedMesh).
			WithTag("max_vertices", m.maxVerts)
	}

	var poly []r2.Point
	for i, row := range faces {
		if len(row) != m.maxVerts {
			return nil, errors.New("ragged face array").
				WithType(ErrTypeMalformedMesh).
				WithTag("cell", i).
				WithTag("length", len(row)).
				WithTag("expected_length", m.maxVerts)
		}

		n, err := validRowLength(row, len(vertices))
		if err != nil {
			return nil, errors.New("invalid cell").
				WithType(ErrTypeMalformedMesh).
				WithTag("cell", i).
				Wrap(err)
		}

		m.faces[i] = append([]int(nil), row...)
		m.lengths[i] = n

		poly = m.AppendCell(poly[:0], i)
		if err := validateCell(poly); err != nil {
			return nil, errors.New("invalid cell").
				WithType(ErrTypeMalformedMesh).
				WithTag("cell", i).
				Wrap(err)
		}
	}

	return m, nil
}

func validRowLength(row []int, vertexCount int) (int, error) {
	n := len(row)
	for j, idx := range row {
		switch {
		case idx == FillValue:
			if n == len(row) {
				n = j
			}

		case n != len(row):
			return 0, errors.New("fill value followed by a vertex index").
				WithTag("position", j)

		case idx < 0 || idx >= vertexCount:
			return 0, errors.New("vertex index out of range").
				WithTag("index", idx).
				WithTag("vertex_count", vertexCount)
		}
	}

	if n < 3 {
		return 0, errors.New("cell has less than 3 vertices").
			WithTag("vertices", n)
	}
	return n, nil
}

func validateCell(poly []r2.Point) error {
	for _, p := range poly {
		if !geometry.IsFinite(p) {
			return errors.New("non-finite vertex").
				WithTag("x", p.X).
				WithTag("y", p.Y)
		}
	}

	if geometry.PolygonArea(poly) == 0 {
		return errors.New("cell has zero area")
	}

	if !geometry.IsConvex(poly) {
		return errors.New("cell is not convex")
	}
	return nil
}

// CellCount returns the number of cells.
func (m *Mesh) CellCount() int {
	return len(m.faces)
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.vertices)
}

// MaxVerticesPerCell returns the row width of the face array.
func (m *Mesh) MaxVerticesPerCell() int {
	return m.maxVerts
}

// CellLength returns the number of valid vertices of cell i.
func (m *Mesh) CellLength(i int) int {
	return m.lengths[i]
}

// Cell returns a copy of the valid vertices of cell i.
func (m *Mesh) Cell(i int) []r2.Point {
	return m.AppendCell(make([]r2.Point, 0, m.lengths[i]), i)
}

// AppendCell appends the valid vertices of cell i to dst and returns the
// extended slice.
func (m *Mesh) AppendCell(dst []r2.Point, i int) []r2.Point {
	row := m.faces[i][:m.lengths[i]]
	for _, idx := range row {
		dst = append(dst, m.vertices[idx])
	}
	return dst
}

// CellBounds returns the bounding box of the valid vertices of cell i.
func (m *Mesh) CellBounds(i int) r2.Rect {
	row := m.faces[i][:m.lengths[i]]
	b := r2.RectFromPoints(m.vertices[row[0]])
	for _, idx := range row[1:] {
		b = b.AddPoint(m.vertices[idx])
	}
	return b
}

// Bounds returns the bounding box of every cell, indexed by cell id.
func (m *Mesh) Bounds() []r2.Rect {
	bounds := make([]r2.Rect, len(m.faces))
	for i := range m.faces {
		bounds[i] = m.CellBounds(i)
	}
	return bounds
}

// Extent returns the bounding box of all cells. It is empty when the mesh has
// no cells.
func (m *Mesh) Extent() r2.Rect {
	extent := r2.EmptyRect()
	for i := range m.faces {
		extent = extent.Union(m.CellBounds(i))
	}
	return extent
}

// CellArea returns the unsigned area of cell i.
func (m *Mesh) CellArea(i int) float64 {
	var buf [8]r2.Point
	return math.Abs(geometry.PolygonArea(m.AppendCell(buf[:0], i)))
}

// Area returns the sum of the unsigned cell areas.
func (m *Mesh) Area() float64 {
	var area float64
	for i := range m.faces {
		area += m.CellArea(i)
	}
	return area
}

// Vertices returns a copy of the vertex array.
func (m *Mesh) Vertices() []r2.Point {
	return append([]r2.Point(nil), m.vertices...)
}

// Faces returns a copy of the padded face array.
func (m *Mesh) Faces() [][]int {
	faces := make([][]int, len(m.faces))
	for i, row := range m.faces {
		faces[i] = append([]int(nil), row...)
	}
	return faces
}
