package celltree

import (
	"math"
	"slices"

	"github.com/aukilabs/celltree/geometry"
	"github.com/golang/geo/r2"
)

// scratch holds the buffers reused by the queries of a single goroutine.
type scratch struct {
	stack []int
	cells []int
	poly  []r2.Point
}

func newScratch() *scratch {
	return &scratch{
		stack: make([]int, 0, 64),
		poly:  make([]r2.Point, 0, 8),
	}
}

func (idx *Index) locatePoint(s *scratch, p r2.Point) int {
	if len(idx.cells) == 0 || !geometry.PointInBox(p, idx.nodes[0].Box) {
		return NotFound
	}

	stack := append(s.stack[:0], 0)
	defer func() { s.stack = stack }()

	for len(stack) != 0 {
		n := idx.nodes[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]

		if n.IsLeaf() {
			for _, c := range idx.cells[n.Ptr : n.Ptr+n.Size] {
				if !geometry.PointInBox(p, idx.bounds[c]) {
					continue
				}

				s.poly = idx.mesh.AppendCell(s.poly[:0], c)
				if geometry.PointInConvexPolygon(p, s.poly) {
					return c
				}
			}
			continue
		}

		x := geometry.Coord(p, n.Dim)
		left := x <= n.Lmax
		right := x >= n.Rmin

		switch {
		case left && right:
			// The side whose range reaches further past x is visited first.
			if n.Lmax-x < x-n.Rmin {
				stack = append(stack, n.left(), n.right())
			} else {
				stack = append(stack, n.right(), n.left())
			}

		case left:
			stack = append(stack, n.left())

		case right:
			stack = append(stack, n.right())
		}
	}
	return NotFound
}

// appendBoxCells appends the ids of the cells whose bounding box overlaps
// box, in ascending order.
func (idx *Index) appendBoxCells(dst []int, s *scratch, box r2.Rect) []int {
	start := len(dst)
	idx.visit(s, box, func(c int) {
		if geometry.BoxesOverlap(box, idx.bounds[c]) {
			dst = append(dst, c)
		}
	})
	slices.Sort(dst[start:])
	return dst
}

func (idx *Index) appendEdgeHits(dst []EdgeHit, s *scratch, query int, edge [2]r2.Point) []EdgeHit {
	a, b := edge[0], edge[1]
	if a == b || !geometry.IsFinite(a) || !geometry.IsFinite(b) || len(idx.cells) == 0 {
		return dst
	}

	// The narrow phase runs on the part of the edge inside the tree extent
	// and maps its parameters back onto a-b.
	ok, ca, cb := geometry.ClipSegmentToBox(a, b, idx.nodes[0].Box)
	if !ok {
		return dst
	}
	if ca == cb {
		// single point of contact with the extent
		ca, cb = a, b
	}
	ta := geometry.SegmentFraction(a, b, ca)
	tb := geometry.SegmentFraction(a, b, cb)

	start := len(dst)
	idx.visit(s, r2.RectFromPoints(ca, cb), func(c int) {
		if ok, _, _ := geometry.ClipSegmentToBox(ca, cb, idx.bounds[c]); !ok {
			return
		}

		s.poly = idx.mesh.AppendCell(s.poly[:0], c)
		ok, u0, u1 := geometry.ClipSegmentToPolygon(ca, cb, s.poly)
		if !ok {
			return
		}

		hit := EdgeHit{
			Pair:  Pair{Query: query, Cell: c},
			T0:    ta + u0*(tb-ta),
			T1:    ta + u1*(tb-ta),
			Start: geometry.Interpolate(ca, cb, u0),
			End:   geometry.Interpolate(ca, cb, u1),
		}
		if math.IsNaN(hit.T0) || math.IsNaN(hit.T1) ||
			!geometry.IsFinite(hit.Start) || !geometry.IsFinite(hit.End) {
			return
		}
		dst = append(dst, hit)
	})

	slices.SortFunc(dst[start:], func(x, y EdgeHit) int {
		return x.Cell - y.Cell
	})
	return dst
}

func (idx *Index) appendFaceHits(dst []FaceHit, s *scratch, query int, face []r2.Point) []FaceHit {
	if len(face) < 3 || len(idx.cells) == 0 {
		return dst
	}

	// Cells lie inside the tree extent, so clipping the face to it first
	// keeps the narrow phase on coordinates of the mesh's magnitude.
	face = geometry.ClipPolygonToBox(face, idx.nodes[0].Box)
	if !(math.Abs(geometry.PolygonArea(face)) > 0) {
		return dst
	}

	start := len(dst)
	box := geometry.BoundingBox(face)
	idx.visit(s, box, func(c int) {
		if !geometry.BoxesOverlap(box, idx.bounds[c]) {
			return
		}

		s.poly = idx.mesh.AppendCell(s.poly[:0], c)
		clipped := geometry.ClipPolygon(face, s.poly)
		area := math.Abs(geometry.PolygonArea(clipped))
		if !(area > 0) || math.IsInf(area, 0) || !geometry.AllFinite(clipped) {
			return
		}

		dst = append(dst, FaceHit{
			Pair:    Pair{Query: query, Cell: c},
			Polygon: clipped,
			Area:    area,
		})
	})

	slices.SortFunc(dst[start:], func(x, y FaceHit) int {
		return x.Cell - y.Cell
	})
	return dst
}

// visit calls fn for every cell stored in a leaf reachable by box. The
// callback runs the narrow phase.
func (idx *Index) visit(s *scratch, box r2.Rect, fn func(c int)) {
	if len(idx.cells) == 0 || !geometry.BoxesOverlap(box, idx.nodes[0].Box) {
		return
	}

	stack := append(s.stack[:0], 0)
	for len(stack) != 0 {
		n := idx.nodes[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]

		if n.IsLeaf() {
			for _, c := range idx.cells[n.Ptr : n.Ptr+n.Size] {
				fn(c)
			}
			continue
		}

		iv := geometry.BoxInterval(box, n.Dim)
		if iv.Hi >= n.Rmin {
			stack = append(stack, n.right())
		}
		if iv.Lo <= n.Lmax {
			stack = append(stack, n.left())
		}
	}
	s.stack = stack
}
