package geometry

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCircle(t *testing.T, r float64) Shape {
	t.Helper()
	s, err := NewCircle(r)
	require.NoError(t, err)
	return s
}

func mustRectangle(t *testing.T, w, h float64) Shape {
	t.Helper()
	s, err := NewRectangle(w, h)
	require.NoError(t, err)
	return s
}

func TestCirclesCollide(t *testing.T) {
	c := mustCircle(t, 5)
	origin := FromRectangular(0, 0)

	hit, err := Collides(c, origin, c, FromRectangular(9, 0))
	require.NoError(t, err)
	assert.True(t, hit)

	hit, err = Collides(c, origin, c, FromRectangular(10, 0))
	require.NoError(t, err)
	assert.True(t, hit, "tangent circles count as colliding")

	hit, err = Collides(c, origin, c, FromRectangular(11, 0))
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestRectanglesCollide(t *testing.T) {
	r := mustRectangle(t, 10, 10)
	origin := FromRectangular(0, 0)

	hit, err := Collides(r, origin, r, FromRectangular(5, 5))
	require.NoError(t, err)
	assert.True(t, hit)

	hit, err = Collides(r, origin, r, FromRectangular(10, 10))
	require.NoError(t, err)
	assert.False(t, hit, "corner touching")

	hit, err = Collides(r, origin, r, FromRectangular(10, 0))
	require.NoError(t, err)
	assert.False(t, hit, "edge touching")
}

func TestCircleRectangleCollide(t *testing.T) {
	c := mustCircle(t, 5)
	r := mustRectangle(t, 10, 10)
	rAnchor := FromRectangular(0, 0)

	cases := []struct {
		name   string
		center Vector
		want   bool
	}{
		{"center inside", FromRectangular(5, 5), true},
		{"overlapping left edge", FromRectangular(-4, 5), true},
		{"touching left edge", FromRectangular(-5, 5), true},
		{"clear of left edge", FromRectangular(-5.1, 5), false},
		{"above", FromRectangular(5, 16), false},
		{"near corner inside radius", FromRectangular(13, 13), true},
		{"near corner outside radius", FromRectangular(14, 14), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hit, err := Collides(c, tc.center, r, rAnchor)
			require.NoError(t, err)
			assert.Equal(t, tc.want, hit)
		})
	}
}

func TestCollidesIsSymmetric(t *testing.T) {
	shapes := []Shape{
		mustCircle(t, 3),
		mustCircle(t, 7.5),
		mustRectangle(t, 4, 9),
		mustRectangle(t, 12, 2),
	}
	var anchors []Vector
	for x := -12.0; x <= 12; x += 3 {
		for y := -12.0; y <= 12; y += 3 {
			anchors = append(anchors, FromRectangular(x, y))
		}
	}
	origin := FromRectangular(0, 0)

	for _, a := range shapes {
		for _, b := range shapes {
			for _, anchor := range anchors {
				ab, err := Collides(a, origin, b, anchor)
				require.NoError(t, err)
				ba, err := Collides(b, anchor, a, origin)
				require.NoError(t, err)
				assert.Equal(t, ab, ba, "%s at origin vs %s at %v", a, b, anchor)
			}
		}
	}
}

func TestCollisionAxis(t *testing.T) {
	c := mustCircle(t, 5)
	r := mustRectangle(t, 10, 10)
	rAnchor := FromRectangular(0, 0)

	axis, err := CollisionAxis(c, FromRectangular(-4, 5), r, rAnchor)
	require.NoError(t, err)
	assert.Equal(t, AxisHorizontal, axis)

	axis, err = CollisionAxis(r, rAnchor, c, FromRectangular(5, 14))
	require.NoError(t, err)
	assert.Equal(t, AxisVertical, axis)

	// wide, shallow overlap between boxes resolves vertically
	axis, err = CollisionAxis(r, rAnchor, r, FromRectangular(2, 9))
	require.NoError(t, err)
	assert.Equal(t, AxisVertical, axis)

	axis, err = CollisionAxis(r, rAnchor, r, FromRectangular(9, 2))
	require.NoError(t, err)
	assert.Equal(t, AxisHorizontal, axis)

	_, err = CollisionAxis(c, rAnchor, c, FromRectangular(1, 1))
	assert.True(t, errors.Is(err, ErrUnsupportedShape))
}

func TestContainsPoint(t *testing.T) {
	r := mustRectangle(t, 10, 20)
	anchor := FromRectangular(5, 5)

	inside, err := ContainsPoint(r, anchor, FromRectangular(6, 6))
	require.NoError(t, err)
	assert.True(t, inside)

	onEdge, err := ContainsPoint(r, anchor, FromRectangular(5, 10))
	require.NoError(t, err)
	assert.False(t, onEdge, "edges are not interior")

	outside, err := ContainsPoint(r, anchor, FromRectangular(16, 10))
	require.NoError(t, err)
	assert.False(t, outside)

	_, err = ContainsPoint(mustCircle(t, 1), anchor, anchor)
	assert.True(t, errors.Is(err, ErrUnsupportedShape))
}

func TestUnsupportedKind(t *testing.T) {
	bogus := Shape{Kind: ShapeKind(42)}
	_, err := Collides(bogus, FromRectangular(0, 0), mustCircle(t, 1), FromRectangular(0, 0))
	assert.True(t, errors.Is(err, ErrUnsupportedShape))

	_, err = ContainsPoint(bogus, FromRectangular(0, 0), FromRectangular(0, 0))
	assert.True(t, errors.Is(err, ErrUnsupportedShape))
}

func TestParseShape(t *testing.T) {
	s, err := ParseShape("circle", 4)
	require.NoError(t, err)
	assert.Equal(t, Circle, s.Kind)
	assert.Equal(t, 4.0, s.Radius)

	s, err = ParseShape("Rectangle", 3, 2)
	require.NoError(t, err)
	assert.Equal(t, Rectangle, s.Kind)

	for _, tc := range []struct {
		name string
		args []float64
	}{
		{"circle", nil},
		{"circle", []float64{1, 2}},
		{"rectangle", []float64{1}},
		{"triangle", []float64{1, 2, 3}},
		{"rectangle", []float64{-1, 2}},
		{"circle", []float64{0}},
	} {
		_, err := ParseShape(tc.name, tc.args...)
		assert.True(t, errors.Is(err, ErrConstruction), "%s %v", tc.name, tc.args)
	}
}
