package planner

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rrt-planner/geometry"
	"rrt-planner/obstacle"
	"rrt-planner/workspace"
)

func vec(x, y float64) geometry.Vector { return geometry.FromRectangular(x, y) }

// block is a rectangle given by its lower-left corner and size.
type block struct{ x, y, w, h float64 }

func newWorkspace(t *testing.T, w, h float64, start, goal geometry.Vector, blocks ...block) *workspace.Workspace {
	t.Helper()
	var static []*obstacle.Obstacle
	for _, b := range blocks {
		shape, err := geometry.NewRectangle(b.w, b.h)
		require.NoError(t, err)
		static = append(static, obstacle.NewStatic(shape, vec(b.x, b.y)))
	}
	ws, err := workspace.New(workspace.Config{Width: w, Height: h, Start: start, Goal: goal, Static: static})
	require.NoError(t, err)
	return ws
}

func TestSteer(t *testing.T) {
	tests := []struct {
		name     string
		from, to geometry.Vector
		want     geometry.Vector
	}{
		{"closer than step", vec(0, 0), vec(3, 4), vec(3, 4)},
		{"exactly one step", vec(0, 0), vec(6, 8), vec(6, 8)},
		{"far", vec(0, 0), vec(30, 40), vec(6, 8)},
		{"backwards", vec(50, 50), vec(20, 10), vec(44, 42)},
		{"vertical", vec(5, 5), vec(5, 100), vec(5, 15)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Steer(tt.from, tt.to, 10)
			assert.True(t, got.Equal(tt.want, 1e-9), "got %s", got)
			assert.LessOrEqual(t, got.Distance(tt.from), 10+1e-9)
		})
	}
}

func TestCollisionFree(t *testing.T) {
	ws := newWorkspace(t, 100, 100, vec(10, 50), vec(90, 50), block{40, 0, 20, 60})
	tree := NewTree(ws, 10, 20)

	tests := []struct {
		name string
		a, b geometry.Vector
		want bool
	}{
		{"open", vec(10, 80), vec(90, 80), true},
		{"through block", vec(10, 30), vec(90, 30), false},
		{"ends inside", vec(30, 30), vec(45, 30), false},
		{"zero length", vec(10, 80), vec(10, 80), true},
		{"touches edge only", vec(30, 30), vec(40, 30), true},
		{"out of bounds", vec(90, 90), vec(110, 90), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tree.CollisionFree(tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChooseBestParent(t *testing.T) {
	ws := newWorkspace(t, 100, 100, vec(10, 10), vec(90, 90))
	root := ws.Root()
	a, _ := ws.Insert(vec(10, 20), root)
	b, _ := ws.Insert(vec(20, 30), a)
	c, _ := ws.Insert(vec(30, 30), b)
	tree := NewTree(ws, 10, 20)

	pos := vec(30, 20)
	best, err := tree.ChooseBestParent(pos, c, []workspace.NodeID{root, a, b, c})
	require.NoError(t, err)
	assert.Equal(t, root, best, "straight from the root is cheapest")

	best, err = tree.ChooseBestParent(pos, c, []workspace.NodeID{a, b, c})
	require.NoError(t, err)
	assert.Equal(t, a, best, "a costs 10+20, c costs about 34+10")
}

func TestChooseBestParentSkipsBlockedEdges(t *testing.T) {
	ws := newWorkspace(t, 100, 100, vec(10, 10), vec(90, 90), block{15, 0, 5, 40})
	root := ws.Root()
	a, _ := ws.Insert(vec(10, 50), root)
	b, _ := ws.Insert(vec(25, 50), a)
	tree := NewTree(ws, 10, 30)

	best, err := tree.ChooseBestParent(vec(25, 10), b, []workspace.NodeID{root, a, b})
	require.NoError(t, err)
	assert.Equal(t, b, best, "the direct edge from the root crosses the block")
}

func TestRewire(t *testing.T) {
	ws := newWorkspace(t, 100, 100, vec(10, 10), vec(90, 90))
	root := ws.Root()
	a, _ := ws.Insert(vec(10, 20), root)
	b, _ := ws.Insert(vec(10, 30), a)
	c, _ := ws.Insert(vec(20, 30), b) // cost 30
	d, _ := ws.Insert(vec(20, 40), c) // cost 40
	n, _ := ws.Insert(vec(20, 20), root)
	tree := NewTree(ws, 10, 20)

	moved, err := tree.Rewire(n, []workspace.NodeID{root, a, b, c, n})
	require.NoError(t, err)
	assert.Equal(t, 1, moved)
	assert.Equal(t, n, ws.Node(c).Parent())
	assert.InDelta(t, math.Hypot(10, 10)+10, ws.Node(c).Cost(), 1e-9)
	assert.InDelta(t, math.Hypot(10, 10)+20, ws.Node(d).Cost(), 1e-9, "descendant cost follows")
	assert.Equal(t, root, ws.Node(n).Parent(), "the new node keeps its own parent")
}

func TestWithAncestors(t *testing.T) {
	ws := newWorkspace(t, 100, 100, vec(10, 10), vec(90, 90))
	root := ws.Root()
	a, _ := ws.Insert(vec(10, 20), root)
	b, _ := ws.Insert(vec(10, 30), a)
	c, _ := ws.Insert(vec(20, 20), root)
	tree := NewTree(ws, 10, 20)

	assert.Equal(t, []workspace.NodeID{b, c, a, root}, tree.WithAncestors([]workspace.NodeID{b, c}))
	assert.Equal(t, []workspace.NodeID{a, root}, tree.WithAncestors([]workspace.NodeID{a, a}))
}

func TestReSearchParent(t *testing.T) {
	ws := newWorkspace(t, 100, 100, vec(10, 10), vec(90, 90))
	a, _ := ws.Insert(vec(20, 20), ws.Root())
	b, _ := ws.Insert(vec(30, 10), a)
	c, _ := ws.Insert(vec(40, 20), b)
	tree := NewTree(ws, 10, 20)

	moved, err := tree.ReSearchParent(c)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, ws.Root(), ws.Node(c).Parent(), "straight line from the root")
	assert.InDelta(t, math.Hypot(30, 10), ws.Node(c).Cost(), 1e-9)

	moved, err = tree.ReSearchParent(c)
	require.NoError(t, err)
	assert.False(t, moved)

	moved, err = tree.ReSearchParent(ws.Root())
	require.NoError(t, err)
	assert.False(t, moved)
}

func TestReSearchParentRespectsObstacles(t *testing.T) {
	ws := newWorkspace(t, 100, 100, vec(10, 10), vec(50, 10), block{25, 0, 10, 40})
	a, _ := ws.Insert(vec(10, 60), ws.Root())
	b, _ := ws.Insert(vec(50, 60), a)
	c, _ := ws.Insert(vec(50, 50), b)
	tree := NewTree(ws, 10, 20)

	moved, err := tree.ReSearchParent(c)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, a, ws.Node(c).Parent(), "the root is hidden behind the block")
}

func TestOptimisePathWithoutPath(t *testing.T) {
	ws := newWorkspace(t, 100, 100, vec(10, 10), vec(90, 90))
	_, err := NewTree(ws, 10, 20).OptimisePath()
	assert.True(t, errors.Is(err, ErrInvalidState))

	_, err = NewTree(ws, 10, 20).Densify()
	assert.True(t, errors.Is(err, ErrInvalidState))
}

func TestOptimisePathAndDensify(t *testing.T) {
	ws := newWorkspace(t, 100, 100, vec(10, 10), vec(90, 10))
	prev := ws.Root()
	for _, p := range []geometry.Vector{vec(20, 30), vec(40, 40), vec(60, 30), vec(80, 20)} {
		prev, _ = ws.Insert(p, prev)
	}
	_, err := ws.AttachGoal(prev)
	require.NoError(t, err)
	tree := NewTree(ws, 10, 20)

	moved, err := tree.OptimisePath()
	require.NoError(t, err)
	assert.Positive(t, moved)
	assert.Len(t, ws.PathIDs(), 2)
	assert.InDelta(t, 80, ws.PathLength(), 1e-9, "open workspace collapses to the straight segment")

	added, err := tree.Densify()
	require.NoError(t, err)
	assert.Equal(t, 7, added)
	path := ws.Path()
	for i := 1; i < len(path); i++ {
		assert.LessOrEqual(t, path[i-1].Distance(path[i]), 10+1e-9)
	}
	assert.InDelta(t, 80, ws.PathLength(), 1e-9)
}
