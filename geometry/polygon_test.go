package geometry

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/require"
)

func TestPolygonArea(t *testing.T) {
	square := unitSquare()

	require.Equal(t, 1.0, PolygonArea(square))
	require.Equal(t, -1.0, PolygonArea(reversed(square)))
	require.Equal(t, 0.5, PolygonArea([]r2.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}}))
	require.Zero(t, PolygonArea(square[:2]))
	require.Zero(t, PolygonArea([]r2.Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}}))

	far := []r2.Point{{X: 1e9, Y: 1e9}, {X: 1e9 + 1, Y: 1e9}, {X: 1e9 + 1, Y: 1e9 + 1}, {X: 1e9, Y: 1e9 + 1}}
	require.Equal(t, 1.0, PolygonArea(far))
}

func TestPolygonCentroid(t *testing.T) {
	c, ok := PolygonCentroid(unitSquare())
	require.True(t, ok)
	require.True(t, pointsNear(r2.Point{X: 0.5, Y: 0.5}, c, 1e-12))

	c, ok = PolygonCentroid([]r2.Point{{X: 0, Y: 0}, {X: 3, Y: 0}, {X: 0, Y: 3}})
	require.True(t, ok)
	require.True(t, pointsNear(r2.Point{X: 1, Y: 1}, c, 1e-12))

	_, ok = PolygonCentroid([]r2.Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}})
	require.False(t, ok)
}

func TestPointInConvexPolygon(t *testing.T) {
	for name, poly := range map[string][]r2.Point{
		"counter-clockwise": unitSquare(),
		"clockwise":         reversed(unitSquare()),
	} {
		t.Run(name, func(t *testing.T) {
			require.True(t, PointInConvexPolygon(r2.Point{X: 0.5, Y: 0.5}, poly))
			require.True(t, PointInConvexPolygon(r2.Point{X: 0, Y: 0.5}, poly), "edge")
			require.True(t, PointInConvexPolygon(r2.Point{X: 1, Y: 1}, poly), "vertex")
			require.False(t, PointInConvexPolygon(r2.Point{X: 1.0001, Y: 0.5}, poly))
			require.False(t, PointInConvexPolygon(r2.Point{X: -0.5, Y: -0.5}, poly))
			require.False(t, PointInConvexPolygon(r2.Point{X: math.NaN(), Y: 0.5}, poly))
		})
	}

	t.Run("degenerate polygon", func(t *testing.T) {
		line := []r2.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}}
		require.False(t, PointInConvexPolygon(r2.Point{X: 1, Y: 0}, line))
	})
}

func TestPointInPolygon(t *testing.T) {
	// concave "L" shape
	poly := []r2.Point{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 2}, {X: 0, Y: 2}}

	require.True(t, PointInPolygon(r2.Point{X: 0.5, Y: 1.5}, poly))
	require.True(t, PointInPolygon(r2.Point{X: 1.5, Y: 0.5}, poly))
	require.False(t, PointInPolygon(r2.Point{X: 1.5, Y: 1.5}, poly))
	require.False(t, PointInPolygon(r2.Point{X: 3, Y: 0.5}, poly))
	require.False(t, PointInPolygon(r2.Point{X: math.NaN(), Y: 0.5}, poly))
}

func TestIsConvex(t *testing.T) {
	tests := []struct {
		scenario string
		poly     []r2.Point
		convex   bool
	}{
		{
			scenario: "square",
			poly:     unitSquare(),
			convex:   true,
		},
		{
			scenario: "clockwise square",
			poly:     reversed(unitSquare()),
			convex:   true,
		},
		{
			scenario: "collinear vertex",
			poly:     []r2.Point{{X: 0, Y: 0}, {X: 0.5, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}},
			convex:   true,
		},
		{
			scenario: "concave",
			poly:     []r2.Point{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 1, Y: 0.5}, {X: 2, Y: 2}, {X: 0, Y: 2}},
			convex:   false,
		},
		{
			scenario: "bow tie",
			poly:     []r2.Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: 1}},
			convex:   false,
		},
		{
			scenario: "pentagram",
			poly: []r2.Point{
				{X: 0, Y: 10}, {X: 5.9, Y: -8.1}, {X: -9.5, Y: 3.1}, {X: 9.5, Y: 3.1}, {X: -5.9, Y: -8.1},
			},
			convex: false,
		},
		{
			scenario: "zero area",
			poly:     []r2.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}},
			convex:   false,
		},
		{
			scenario: "non finite",
			poly:     []r2.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: math.Inf(1), Y: 1}},
			convex:   false,
		},
	}

	for _, test := range tests {
		t.Run(test.scenario, func(t *testing.T) {
			require.Equal(t, test.convex, IsConvex(test.poly))
		})
	}
}

func TestClipPolygon(t *testing.T) {
	square := unitSquare()

	t.Run("overlapping squares", func(t *testing.T) {
		shifted := []r2.Point{{X: 0.5, Y: 0.5}, {X: 1.5, Y: 0.5}, {X: 1.5, Y: 1.5}, {X: 0.5, Y: 1.5}}
		clipped := ClipPolygon(shifted, square)
		require.Len(t, clipped, 4)
		require.InDelta(t, 0.25, PolygonArea(clipped), 1e-12)
	})

	t.Run("clockwise clip polygon", func(t *testing.T) {
		triangle := []r2.Point{{X: -1, Y: -1}, {X: 3, Y: -1}, {X: -1, Y: 3}}
		clipped := ClipPolygon(triangle, reversed(square))
		require.InDelta(t, 1.0, math.Abs(PolygonArea(clipped)), 1e-12)
	})

	t.Run("subject inside clip", func(t *testing.T) {
		small := []r2.Point{{X: 0.25, Y: 0.25}, {X: 0.75, Y: 0.25}, {X: 0.5, Y: 0.75}}
		clipped := ClipPolygon(small, square)
		require.Equal(t, small, clipped)
	})

	t.Run("clip inside subject", func(t *testing.T) {
		large := []r2.Point{{X: -5, Y: -5}, {X: 5, Y: -5}, {X: 5, Y: 5}, {X: -5, Y: 5}}
		clipped := ClipPolygon(large, square)
		require.InDelta(t, 1.0, PolygonArea(clipped), 1e-12)
	})

	t.Run("disjoint polygons", func(t *testing.T) {
		far := []r2.Point{{X: 3, Y: 3}, {X: 4, Y: 3}, {X: 4, Y: 4}}
		require.Nil(t, ClipPolygon(far, square))
	})

	t.Run("touching polygons have zero area", func(t *testing.T) {
		neighbour := []r2.Point{{X: 1, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 1}, {X: 1, Y: 1}}
		require.Zero(t, PolygonArea(ClipPolygon(neighbour, square)))
	})

	t.Run("degenerate inputs", func(t *testing.T) {
		line := []r2.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}}
		require.Nil(t, ClipPolygon(square, line))
		require.Nil(t, ClipPolygon(square[:2], square))
	})
}

func TestClipPolygonToBox(t *testing.T) {
	box := NewBox(0, 0, 1, 1)

	t.Run("subject inside box", func(t *testing.T) {
		small := []r2.Point{{X: 0.25, Y: 0.25}, {X: 0.75, Y: 0.25}, {X: 0.5, Y: 0.75}}
		require.Equal(t, small, ClipPolygonToBox(small, box))
	})

	t.Run("overlapping square", func(t *testing.T) {
		shifted := []r2.Point{{X: 0.5, Y: 0.5}, {X: 1.5, Y: 0.5}, {X: 1.5, Y: 1.5}, {X: 0.5, Y: 1.5}}
		clipped := ClipPolygonToBox(shifted, box)
		require.InDelta(t, 0.25, PolygonArea(clipped), 1e-12)
	})

	t.Run("far apart vertices", func(t *testing.T) {
		huge := []r2.Point{{X: -1e308, Y: -1e308}, {X: 1e308, Y: -1e308}, {X: 0, Y: 1e308}}
		clipped := ClipPolygonToBox(huge, box)
		require.True(t, AllFinite(clipped))
		require.InDelta(t, 1.0, PolygonArea(clipped), 1e-9)
	})

	t.Run("disjoint subject", func(t *testing.T) {
		far := []r2.Point{{X: 3, Y: 3}, {X: 4, Y: 3}, {X: 4, Y: 4}}
		require.Nil(t, ClipPolygonToBox(far, box))
	})

	t.Run("non finite subject", func(t *testing.T) {
		nan := []r2.Point{{X: 0, Y: 0}, {X: math.NaN(), Y: 1}, {X: 1, Y: 1}}
		require.Nil(t, ClipPolygonToBox(nan, box))
	})
}
