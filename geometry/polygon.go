package geometry

import (
	"math"
	"slices"

	"github.com/golang/geo/r2"
)

// PolygonArea returns the signed shoelace area of the polygon: positive for
// counter-clockwise winding, negative for clockwise. Polygons with fewer than
// three vertices have zero area.
func PolygonArea(poly []r2.Point) float64 {
	n := len(poly)
	if n < 3 {
		return 0
	}

	// Coordinates are taken relative to the first vertex to limit
	// cancellation for meshes far from the origin.
	origin := poly[0]
	area := 0.0
	prev := poly[1].Sub(origin)
	for i := 2; i < n; i++ {
		cur := poly[i].Sub(origin)
		area += prev.Cross(cur)
		prev = cur
	}
	return 0.5 * area
}

// PolygonCentroid returns the area centroid of a non-degenerate polygon.
func PolygonCentroid(poly []r2.Point) (r2.Point, bool) {
	area := PolygonArea(poly)
	if area == 0 || math.IsNaN(area) {
		return r2.Point{}, false
	}

	origin := poly[0]
	var c r2.Point
	prev := poly[1].Sub(origin)
	for i := 2; i < len(poly); i++ {
		cur := poly[i].Sub(origin)
		w := prev.Cross(cur)
		c = c.Add(prev.Add(cur).Mul(w))
		prev = cur
	}
	return origin.Add(c.Mul(1 / (6 * area))), true
}

// PointInConvexPolygon reports whether p lies inside or on the boundary of
// a convex polygon of either winding. Degenerate polygons and non-finite
// points never contain anything.
func PointInConvexPolygon(p r2.Point, poly []r2.Point) bool {
	n := len(poly)
	if n < 3 || !IsFinite(p) {
		return false
	}

	var left, right bool
	for i := 0; i < n; i++ {
		o := Orient(poly[i], poly[(i+1)%n], p)
		switch {
		case o > 0:
			left = true
		case o < 0:
			right = true
		case o != 0:
			// NaN from a non-finite vertex
			return false
		}

		if left && right {
			return false
		}
	}
	return left || right
}

// PointInPolygon runs the crossing number test for arbitrary simple
// polygons. Boundary points are classified so that a point on an edge shared
// by two polygons lands in exactly one of them.
func PointInPolygon(p r2.Point, poly []r2.Point) bool {
	n := len(poly)
	if n < 3 || !IsFinite(p) {
		return false
	}

	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		vi := poly[i]
		vj := poly[j]
		// The second test divides by (vi.Y - vj.Y); the first guarantees it
		// is non-zero.
		if (vi.Y > p.Y) != (vj.Y > p.Y) &&
			p.X < (vj.X-vi.X)*(p.Y-vi.Y)/(vj.Y-vi.Y)+vi.X {
			inside = !inside
		}
	}
	return inside
}

// IsConvex reports whether the polygon is simple, convex and has a non-zero
// area. Collinear consecutive vertices are accepted.
func IsConvex(poly []r2.Point) bool {
	n := len(poly)
	if n < 3 || !AllFinite(poly) {
		return false
	}

	sign := windingSign(poly)
	if sign == 0 {
		return false
	}

	for i := 0; i < n; i++ {
		if sign*Orient(poly[i], poly[(i+1)%n], poly[(i+2)%n]) < 0 {
			return false
		}
	}

	// A star polygon turns consistently but winds more than once: reject
	// crossings between non-adjacent edges.
	for i := 0; i < n; i++ {
		a, b := poly[i], poly[(i+1)%n]
		for j := i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				continue
			}
			if SegmentsIntersect(a, b, poly[j], poly[(j+1)%n]) {
				return false
			}
		}
	}
	return true
}

// ClipPolygon returns the intersection of subject with the convex polygon
// clip, computed with the Sutherland-Hodgman algorithm: subject is clipped
// successively against the half-plane of each edge of clip. The result keeps
// the winding of subject. It returns nil when the intersection is empty;
// touching polygons may return a degenerate polygon with zero area.
func ClipPolygon(subject []r2.Point, clip []r2.Point) []r2.Point {
	if len(subject) < 3 || len(clip) < 3 {
		return nil
	}

	sign := windingSign(clip)
	if sign == 0 {
		return nil
	}

	output := make([]r2.Point, len(subject), len(subject)+len(clip))
	copy(output, subject)
	input := make([]r2.Point, 0, len(subject)+len(clip))

	n := len(clip)
	for i := 0; i < n && len(output) != 0; i++ {
		c0 := clip[i]
		edge := clip[(i+1)%n].Sub(c0)
		if edge.X == 0 && edge.Y == 0 {
			continue
		}

		inside := func(p r2.Point) bool {
			return sign*edge.Cross(p.Sub(c0)) >= 0
		}

		input, output = output, input[:0]

		s := input[len(input)-1]
		sIn := inside(s)
		for _, e := range input {
			eIn := inside(e)
			if eIn {
				if !sIn {
					output = append(output, lineIntersection(s, e, c0, edge))
				}
				output = append(output, e)
			} else if sIn {
				output = append(output, lineIntersection(s, e, c0, edge))
			}
			s, sIn = e, eIn
		}
	}

	if len(output) < 3 {
		return nil
	}
	return output
}

// ClipPolygonToBox returns the part of subject inside the closed box,
// computed with the Sutherland-Hodgman algorithm against the four sides of
// the box. Intersections are interpolated so that subjects far larger than
// the box do not overflow. It returns nil when nothing of subject is left.
func ClipPolygonToBox(subject []r2.Point, box r2.Rect) []r2.Point {
	if len(subject) < 3 || isEmptyBox(box) || !AllFinite(subject) {
		return nil
	}

	sides := [4]boxSide{
		{dim: 0, bound: box.X.Lo},
		{dim: 0, bound: box.X.Hi, upper: true},
		{dim: 1, bound: box.Y.Lo},
		{dim: 1, bound: box.Y.Hi, upper: true},
	}

	output := slices.Clone(subject)
	input := make([]r2.Point, 0, len(subject)+len(sides))

	for _, side := range sides {
		if len(output) == 0 {
			break
		}
		input, output = output, input[:0]

		s := input[len(input)-1]
		sIn := side.contains(s)
		for _, e := range input {
			eIn := side.contains(e)
			if eIn != sIn {
				output = append(output, side.intersection(s, e))
			}
			if eIn {
				output = append(output, e)
			}
			s, sIn = e, eIn
		}
	}

	if len(output) < 3 {
		return nil
	}
	return output
}

type boxSide struct {
	dim   int
	bound float64
	upper bool
}

func (b boxSide) contains(p r2.Point) bool {
	if b.upper {
		return Coord(p, b.dim) <= b.bound
	}
	return Coord(p, b.dim) >= b.bound
}

// intersection returns the point where s-e crosses the side. One of s and e
// must be inside and the other outside.
func (b boxSide) intersection(s r2.Point, e r2.Point) r2.Point {
	t := min(max(fraction(Coord(s, b.dim), Coord(e, b.dim), b.bound), 0), 1)
	p := Interpolate(s, e, t)
	if b.dim == 0 {
		p.X = b.bound
	} else {
		p.Y = b.bound
	}
	return p
}

// lineIntersection returns the point where the segment s-e crosses the line
// through c with direction dir.
func lineIntersection(s r2.Point, e r2.Point, c r2.Point, dir r2.Point) r2.Point {
	d := e.Sub(s)
	den := dir.Cross(d)
	if den == 0 {
		return e
	}
	t := dir.Cross(c.Sub(s)) / den
	return s.Add(d.Mul(t))
}
