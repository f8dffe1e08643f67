package geometry

import (
	"math"

	"github.com/golang/geo/r2"
)

// EqualWithEpsilon reports whether a and b differ by at most epsilon.
func EqualWithEpsilon(a float64, b float64, epsilon float64) bool {
	return math.Abs(a-b) <= epsilon
}

// IsFinite reports whether both coordinates of p are neither NaN nor
// infinite.
func IsFinite(p r2.Point) bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Orient returns twice the signed area of the triangle abc: positive when c
// lies left of the directed line a->b, negative when right, zero when the
// three points are collinear.
func Orient(a r2.Point, b r2.Point, c r2.Point) float64 {
	return b.Sub(a).Cross(c.Sub(a))
}

// Coord returns the x (dim 0) or y (dim 1) coordinate of p.
func Coord(p r2.Point, dim int) float64 {
	if dim == 0 {
		return p.X
	}
	return p.Y
}

// AllFinite reports whether every point is finite.
func AllFinite(points []r2.Point) bool {
	for _, p := range points {
		if !IsFinite(p) {
			return false
		}
	}
	return true
}

// windingSign returns 1 for counter-clockwise polygons, -1 for clockwise ones
// and 0 for degenerate polygons.
func windingSign(poly []r2.Point) float64 {
	area := PolygonArea(poly)
	switch {
	case area > 0:
		return 1
	case area < 0:
		return -1
	default:
		// zero or NaN
		return 0
	}
}

// fraction returns t such that a + t(b-a) = x. Halved operands are used when
// the differences overflow.
func fraction(a float64, b float64, x float64) float64 {
	num, den := x-a, b-a
	if math.IsInf(num, 0) || math.IsInf(den, 0) {
		num, den = x/2-a/2, b/2-a/2
	}
	return num / den
}

// lerp returns a + t(b-a) for t in [0, 1] without overflowing when a and b
// are far apart.
func lerp(a float64, b float64, t float64) float64 {
	if d := b - a; !math.IsInf(d, 0) {
		return a + d*t
	}
	return a*(1-t) + b*t
}

// Interpolate returns the point a + t(b-a) of the segment a-b, t in [0, 1].
func Interpolate(a r2.Point, b r2.Point, t float64) r2.Point {
	return r2.Point{X: lerp(a.X, b.X, t), Y: lerp(a.Y, b.Y, t)}
}

// SegmentFraction returns the parameter t of the point p, known to lie on
// the segment a-b, such that p = a + t(b-a). It is measured along the axis
// where the segment is the longest.
func SegmentFraction(a r2.Point, b r2.Point, p r2.Point) float64 {
	if math.Abs(b.X/2-a.X/2) >= math.Abs(b.Y/2-a.Y/2) {
		return fraction(a.X, b.X, p.X)
	}
	return fraction(a.Y, b.Y, p.Y)
}
