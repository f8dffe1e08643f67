package geometry

import (
	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"
)

// NewBox returns the box spanning [xmin, xmax] x [ymin, ymax]. A box with
// xmin > xmax or ymin > ymax is empty.
func NewBox(xmin, ymin, xmax, ymax float64) r2.Rect {
	return r2.Rect{
		X: r1.Interval{Lo: xmin, Hi: xmax},
		Y: r1.Interval{Lo: ymin, Hi: ymax},
	}
}

// BoundingBox returns the smallest box containing all points, or the empty
// box when points is empty.
func BoundingBox(points []r2.Point) r2.Rect {
	if len(points) == 0 {
		return r2.EmptyRect()
	}
	return r2.RectFromPoints(points...)
}

// BoxesOverlap reports whether two closed boxes share at least one point.
// Boxes touching along an edge or at a corner overlap. Empty boxes and boxes
// with NaN bounds never overlap anything.
func BoxesOverlap(a r2.Rect, b r2.Rect) bool {
	if isEmptyBox(a) || isEmptyBox(b) {
		return false
	}
	return a.X.Lo <= b.X.Hi && b.X.Lo <= a.X.Hi &&
		a.Y.Lo <= b.Y.Hi && b.Y.Lo <= a.Y.Hi
}

// PointInBox reports whether p lies in the closed box b.
func PointInBox(p r2.Point, b r2.Rect) bool {
	return b.X.Lo <= p.X && p.X <= b.X.Hi &&
		b.Y.Lo <= p.Y && p.Y <= b.Y.Hi
}

// BoxInterval returns the extent of b along dim (0 = x, 1 = y).
func BoxInterval(b r2.Rect, dim int) r1.Interval {
	if dim == 0 {
		return b.X
	}
	return b.Y
}

func isEmptyBox(b r2.Rect) bool {
	return b.X.IsEmpty() || b.Y.IsEmpty()
}
