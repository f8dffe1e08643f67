package geometry

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/require"
)

func unitSquare() []r2.Point {
	return []r2.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}
}

func reversed(poly []r2.Point) []r2.Point {
	out := make([]r2.Point, len(poly))
	for i, p := range poly {
		out[len(poly)-1-i] = p
	}
	return out
}

func TestClipSegmentToBox(t *testing.T) {
	box := NewBox(0, 0, 1, 1)

	t.Run("crossing segment is clipped", func(t *testing.T) {
		ok, a, b := ClipSegmentToBox(r2.Point{X: -1, Y: 0.5}, r2.Point{X: 2, Y: 0.5}, box)
		require.True(t, ok)
		require.Equal(t, r2.Point{X: 0, Y: 0.5}, a)
		require.Equal(t, r2.Point{X: 1, Y: 0.5}, b)
	})

	t.Run("inside segment is unchanged", func(t *testing.T) {
		ok, a, b := ClipSegmentToBox(r2.Point{X: 0.2, Y: 0.2}, r2.Point{X: 0.8, Y: 0.7}, box)
		require.True(t, ok)
		require.Equal(t, r2.Point{X: 0.2, Y: 0.2}, a)
		require.Equal(t, r2.Point{X: 0.8, Y: 0.7}, b)
	})

	t.Run("diagonal through corner region", func(t *testing.T) {
		ok, a, b := ClipSegmentToBox(r2.Point{X: -1, Y: -1}, r2.Point{X: 2, Y: 2}, box)
		require.True(t, ok)
		require.True(t, pointsNear(r2.Point{X: 0, Y: 0}, a, 1e-12))
		require.True(t, pointsNear(r2.Point{X: 1, Y: 1}, b, 1e-12))
	})

	t.Run("segment outside on one side", func(t *testing.T) {
		ok, _, _ := ClipSegmentToBox(r2.Point{X: 2, Y: 0}, r2.Point{X: 3, Y: 1}, box)
		require.False(t, ok)
	})

	t.Run("segment passing a corner outside", func(t *testing.T) {
		ok, _, _ := ClipSegmentToBox(r2.Point{X: 0.5, Y: 2}, r2.Point{X: 2, Y: 0.5}, box)
		require.False(t, ok)
	})

	t.Run("far apart end points", func(t *testing.T) {
		ok, a, b := ClipSegmentToBox(r2.Point{X: -1e308, Y: 0.25}, r2.Point{X: 1e308, Y: 0.25}, box)
		require.True(t, ok)
		require.Equal(t, r2.Point{X: 0, Y: 0.25}, a)
		require.Equal(t, r2.Point{X: 1, Y: 0.25}, b)

		ok, a, b = ClipSegmentToBox(r2.Point{X: -1e308, Y: -1e308}, r2.Point{X: 1e308, Y: 1e308}, box)
		require.True(t, ok)
		require.True(t, pointsNear(r2.Point{X: 0, Y: 0}, a, 1e-9))
		require.True(t, pointsNear(r2.Point{X: 1, Y: 1}, b, 1e-9))
	})

	t.Run("nan segment", func(t *testing.T) {
		ok, _, _ := ClipSegmentToBox(r2.Point{X: math.NaN(), Y: 0}, r2.Point{X: 1, Y: 1}, box)
		require.False(t, ok)
	})
}

func TestSegmentsIntersect(t *testing.T) {
	p := func(x, y float64) r2.Point { return r2.Point{X: x, Y: y} }

	require.True(t, SegmentsIntersect(p(0, 0), p(1, 1), p(0, 1), p(1, 0)))
	require.True(t, SegmentsIntersect(p(0, 0), p(1, 0), p(1, 0), p(2, 1)))
	require.True(t, SegmentsIntersect(p(0, 0), p(2, 0), p(1, 0), p(3, 0)))
	require.False(t, SegmentsIntersect(p(0, 0), p(1, 0), p(2, 0), p(3, 0)))
	require.False(t, SegmentsIntersect(p(0, 0), p(1, 0), p(0, 1), p(1, 1)))
	require.False(t, SegmentsIntersect(p(0, 0), p(1, 1), p(math.NaN(), 0), p(1, 0)))
}

func TestClipSegmentToPolygon(t *testing.T) {
	square := unitSquare()

	for name, poly := range map[string][]r2.Point{
		"counter-clockwise": square,
		"clockwise":         reversed(square),
	} {
		t.Run(name, func(t *testing.T) {
			t.Run("crossing segment", func(t *testing.T) {
				ok, t0, t1 := ClipSegmentToPolygon(r2.Point{X: -1, Y: 0.5}, r2.Point{X: 3, Y: 0.5}, poly)
				require.True(t, ok)
				require.InDelta(t, 0.25, t0, 1e-12)
				require.InDelta(t, 0.5, t1, 1e-12)
			})

			t.Run("segment fully inside", func(t *testing.T) {
				ok, t0, t1 := ClipSegmentToPolygon(r2.Point{X: 0.2, Y: 0.2}, r2.Point{X: 0.4, Y: 0.6}, poly)
				require.True(t, ok)
				require.Equal(t, 0.0, t0)
				require.Equal(t, 1.0, t1)
			})

			t.Run("segment along an edge", func(t *testing.T) {
				require.True(t, SegmentIntersectsPolygon(r2.Point{X: 0, Y: 0}, r2.Point{X: 1, Y: 0}, poly))
				require.True(t, SegmentIntersectsPolygon(r2.Point{X: -1, Y: 1}, r2.Point{X: 2, Y: 1}, poly))
			})

			t.Run("segment touching a vertex", func(t *testing.T) {
				points := SegmentPolygonIntersection(r2.Point{X: 1, Y: 2}, r2.Point{X: 2, Y: 1}, poly)
				require.Nil(t, points)

				points = SegmentPolygonIntersection(r2.Point{X: 0, Y: 2}, r2.Point{X: 2, Y: 0}, poly)
				require.Len(t, points, 1)
				require.True(t, pointsNear(r2.Point{X: 1, Y: 1}, points[0], 1e-12))
			})

			t.Run("segment outside", func(t *testing.T) {
				require.False(t, SegmentIntersectsPolygon(r2.Point{X: 2, Y: 0}, r2.Point{X: 2, Y: 1}, poly))
				require.False(t, SegmentIntersectsPolygon(r2.Point{X: -0.5, Y: 0.2}, r2.Point{X: 0.2, Y: -0.5}, poly))
			})
		})
	}

	t.Run("zero length segment never intersects", func(t *testing.T) {
		p := r2.Point{X: 0.5, Y: 0.5}
		require.False(t, SegmentIntersectsPolygon(p, p, square))
	})

	t.Run("degenerate polygon never intersects", func(t *testing.T) {
		line := []r2.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}}
		require.False(t, SegmentIntersectsPolygon(r2.Point{X: 1, Y: -1}, r2.Point{X: 1, Y: 1}, line))
	})

	t.Run("intersection points", func(t *testing.T) {
		points := SegmentPolygonIntersection(r2.Point{X: 0.5, Y: -1}, r2.Point{X: 0.5, Y: 0.5}, square)
		require.Len(t, points, 2)
		require.True(t, pointsNear(r2.Point{X: 0.5, Y: 0}, points[0], 1e-12))
		require.True(t, pointsNear(r2.Point{X: 0.5, Y: 0.5}, points[1], 1e-12))
	})
}
