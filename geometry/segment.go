package geometry

import (
	"math"

	"github.com/golang/geo/r2"
)

// Outcodes of the Cohen-Sutherland line clipping algorithm.
const (
	outInside = 0
	outLeft   = 1
	outRight  = 2
	outLower  = 4
	outUpper  = 8
)

// Every clipping step moves one end point onto a box edge, which clears at
// least one outcode bit. Four steps suffice in exact arithmetic; the margin
// absorbs rounding.
const maxClipSteps = 8

func outcode(p r2.Point, box r2.Rect) int {
	code := outInside

	if p.X < box.X.Lo {
		code |= outLeft
	} else if p.X > box.X.Hi {
		code |= outRight
	}

	if p.Y < box.Y.Lo {
		code |= outLower
	} else if p.Y > box.Y.Hi {
		code |= outUpper
	}
	return code
}

// ClipSegmentToBox clips the segment a-b to the closed box using the
// Cohen-Sutherland algorithm. It returns false when the segment misses the
// box, otherwise the end points of the clipped segment.
func ClipSegmentToBox(a r2.Point, b r2.Point, box r2.Rect) (bool, r2.Point, r2.Point) {
	if isEmptyBox(box) || !IsFinite(a) || !IsFinite(b) {
		return false, a, b
	}

	k1 := outcode(a, box)
	k2 := outcode(b, box)

	for step := 0; k1|k2 != 0; step++ {
		if k1&k2 != 0 || step == maxClipSteps {
			return false, a, b
		}

		code := k1
		if code == outInside {
			code = k2
		}

		var p r2.Point
		switch {
		case code&outUpper != 0:
			p = r2.Point{X: lerp(a.X, b.X, fraction(a.Y, b.Y, box.Y.Hi)), Y: box.Y.Hi}
		case code&outLower != 0:
			p = r2.Point{X: lerp(a.X, b.X, fraction(a.Y, b.Y, box.Y.Lo)), Y: box.Y.Lo}
		case code&outRight != 0:
			p = r2.Point{X: box.X.Hi, Y: lerp(a.Y, b.Y, fraction(a.X, b.X, box.X.Hi))}
		default:
			p = r2.Point{X: box.X.Lo, Y: lerp(a.Y, b.Y, fraction(a.X, b.X, box.X.Lo))}
		}

		if code == k1 {
			a = p
			k1 = outcode(a, box)
		} else {
			b = p
			k2 = outcode(b, box)
		}
	}
	return true, a, b
}

// SegmentsIntersect reports whether the closed segments a-b and c-d share at
// least one point, collinear overlaps and touching end points included.
func SegmentsIntersect(a r2.Point, b r2.Point, c r2.Point, d r2.Point) bool {
	d1 := Orient(c, d, a)
	d2 := Orient(c, d, b)
	d3 := Orient(a, b, c)
	d4 := Orient(a, b, d)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	return (d1 == 0 && withinSegmentBox(c, d, a)) ||
		(d2 == 0 && withinSegmentBox(c, d, b)) ||
		(d3 == 0 && withinSegmentBox(a, b, c)) ||
		(d4 == 0 && withinSegmentBox(a, b, d))
}

// withinSegmentBox reports whether p, known to be collinear with a-b, lies
// between a and b.
func withinSegmentBox(a r2.Point, b r2.Point, p r2.Point) bool {
	return min(a.X, b.X) <= p.X && p.X <= max(a.X, b.X) &&
		min(a.Y, b.Y) <= p.Y && p.Y <= max(a.Y, b.Y)
}

// ClipSegmentToPolygon clips the segment a-b against a convex polygon with
// the Cyrus-Beck algorithm. On success t0 <= t1 delimit the part of the
// segment inside the polygon, as fractions of a->b. A segment lying entirely
// inside the polygon returns (true, 0, 1); touching the boundary counts as
// an intersection. Zero-length segments and degenerate polygons never
// intersect.
func ClipSegmentToPolygon(a r2.Point, b r2.Point, poly []r2.Point) (bool, float64, float64) {
	n := len(poly)
	if n < 3 || !IsFinite(a) || !IsFinite(b) {
		return false, 0, 0
	}

	v := b.Sub(a)
	if v.X == 0 && v.Y == 0 {
		return false, 0, 0
	}

	sign := windingSign(poly)
	if sign == 0 {
		return false, 0, 0
	}

	t0, t1 := 0.0, 1.0
	for i := 0; i < n; i++ {
		p0 := poly[i]
		p1 := poly[(i+1)%n]

		// inward pointing edge normal
		normal := p1.Sub(p0).Ortho().Mul(sign)
		num := normal.Dot(a.Sub(p0))
		den := normal.Dot(v)

		if den == 0 {
			// parallel to this edge: either fully inside its half-plane or
			// fully outside
			if num < 0 {
				return false, 0, 0
			}
			continue
		}

		t := -num / den
		if math.IsNaN(t) {
			return false, 0, 0
		}
		if den > 0 {
			t0 = max(t0, t)
		} else {
			t1 = min(t1, t)
		}

		if t0 > t1 {
			return false, 0, 0
		}
	}
	return true, t0, t1
}

// SegmentIntersectsPolygon reports whether the segment a-b touches or
// crosses the convex polygon, or lies inside it.
func SegmentIntersectsPolygon(a r2.Point, b r2.Point, poly []r2.Point) bool {
	ok, _, _ := ClipSegmentToPolygon(a, b, poly)
	return ok
}

// SegmentPolygonIntersection returns the points where the segment a-b enters
// and leaves the convex polygon. End points of the segment inside the polygon
// are returned as-is. A single point is returned when the segment only
// touches the polygon and nil when it misses it.
func SegmentPolygonIntersection(a r2.Point, b r2.Point, poly []r2.Point) []r2.Point {
	ok, t0, t1 := ClipSegmentToPolygon(a, b, poly)
	if !ok {
		return nil
	}

	start := Interpolate(a, b, t0)
	if t0 == t1 {
		return []r2.Point{start}
	}
	return []r2.Point{start, Interpolate(a, b, t1)}
}
