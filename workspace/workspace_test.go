package workspace

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rrt-planner/geometry"
	"rrt-planner/obstacle"
)

func vec(x, y float64) geometry.Vector { return geometry.FromRectangular(x, y) }

func rectangle(t *testing.T, w, h float64) geometry.Shape {
	t.Helper()
	s, err := geometry.NewRectangle(w, h)
	require.NoError(t, err)
	return s
}

func circle(t *testing.T, r float64) geometry.Shape {
	t.Helper()
	s, err := geometry.NewCircle(r)
	require.NoError(t, err)
	return s
}

func openWorkspace(t *testing.T) *Workspace {
	t.Helper()
	ws, err := New(Config{Width: 100, Height: 100, Start: vec(10, 10), Goal: vec(90, 90)})
	require.NoError(t, err)
	return ws
}

func TestNewInjectsBoundaryWalls(t *testing.T) {
	block := obstacle.NewStatic(rectangle(t, 10, 10), vec(40, 40))
	ws, err := New(Config{Width: 100, Height: 100, Start: vec(10, 10), Goal: vec(90, 90),
		Static: []*obstacle.Obstacle{block}})
	require.NoError(t, err)

	assert.Len(t, ws.StaticObstacles(), 5)
	assert.Equal(t, 1, ws.NodeCount())

	tests := []struct {
		name string
		p    geometry.Vector
		want bool
	}{
		{"left wall", vec(0.5, 50), true},
		{"right wall", vec(99.5, 50), true},
		{"top wall", vec(50, 99.5), true},
		{"bottom wall", vec(50, 0.5), true},
		{"block", vec(45, 45), true},
		{"block edge", vec(40, 45), false},
		{"free", vec(20, 70), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ws.IsColliding(tt.p)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSegmentObstacles(t *testing.T) {
	block := obstacle.NewStatic(rectangle(t, 10, 10), vec(40, 40))
	ws, err := New(Config{Width: 100, Height: 100, Start: vec(10, 10), Goal: vec(90, 90),
		Static: []*obstacle.Obstacle{block}})
	require.NoError(t, err)
	left := ws.StaticObstacles()[0]

	assert.Equal(t, []*obstacle.Obstacle{block}, ws.SegmentObstacles(vec(20, 45), vec(60, 45)))
	assert.Equal(t, []*obstacle.Obstacle{block}, ws.SegmentObstacles(vec(90, 90), vec(10, 10)))
	assert.Equal(t, []*obstacle.Obstacle{left}, ws.SegmentObstacles(vec(0.5, 10), vec(0.5, 90)))
	assert.Empty(t, ws.SegmentObstacles(vec(20, 20), vec(30, 30)))
}

func TestNewRejectsBadConfigs(t *testing.T) {
	_, err := New(Config{Width: 100, Height: 100, Start: vec(10, 10), Goal: vec(90, 90),
		Static: []*obstacle.Obstacle{obstacle.NewStatic(circle(t, 5), vec(50, 50))}})
	assert.True(t, errors.Is(err, geometry.ErrUnsupportedShape), "circular static obstacle")

	_, err = New(Config{Width: 100, Height: 100, Start: vec(45, 45), Goal: vec(90, 90),
		Static: []*obstacle.Obstacle{obstacle.NewStatic(rectangle(t, 10, 10), vec(40, 40))}})
	assert.True(t, errors.Is(err, ErrInvalidLayout), "start inside obstacle")

	_, err = New(Config{Width: 100, Height: 100, Start: vec(10, 10), Goal: vec(190, 90)})
	assert.True(t, errors.Is(err, ErrInvalidLayout), "goal out of bounds")

	_, err = New(Config{Width: 0, Height: 100, Start: vec(10, 10), Goal: vec(90, 90)})
	assert.True(t, errors.Is(err, ErrInvalidLayout), "empty workspace")
}

func TestInsertSetsCost(t *testing.T) {
	ws := openWorkspace(t)
	a, err := ws.Insert(vec(13, 14), ws.Root())
	require.NoError(t, err)
	b, err := ws.Insert(vec(16, 18), a)
	require.NoError(t, err)

	assert.InDelta(t, 5, ws.Node(a).Cost(), 1e-9)
	assert.InDelta(t, 10, ws.Node(b).Cost(), 1e-9)
	assert.Equal(t, []NodeID{b}, ws.Node(a).Children())
	assert.True(t, ws.Stale())

	_, err = ws.Insert(vec(20, 20), NodeID(42))
	assert.True(t, errors.Is(err, ErrUnknownNode))
}

func TestReparentPropagatesCost(t *testing.T) {
	ws := openWorkspace(t)
	a, _ := ws.Insert(vec(20, 10), ws.Root())
	b, _ := ws.Insert(vec(30, 10), a)
	c, _ := ws.Insert(vec(10, 30), ws.Root())
	d, _ := ws.Insert(vec(40, 10), b)
	require.InDelta(t, 30, ws.Node(d).Cost(), 1e-9)

	require.NoError(t, ws.Reparent(b, c))
	wantB := 20 + math.Hypot(20, 20)
	assert.InDelta(t, wantB, ws.Node(b).Cost(), 1e-9)
	assert.InDelta(t, wantB+10, ws.Node(d).Cost(), 1e-9)
	assert.Empty(t, ws.Node(a).Children())
	assert.Equal(t, c, ws.Node(b).Parent())

	for _, n := range ws.Nodes() {
		if !n.HasParent() {
			continue
		}
		p := ws.Node(n.Parent())
		assert.InDelta(t, p.Cost()+p.Distance(n), n.Cost(), 1e-9, "node %d", n.ID())
	}
}

func TestReparentRejectsCycles(t *testing.T) {
	ws := openWorkspace(t)
	a, _ := ws.Insert(vec(20, 10), ws.Root())
	b, _ := ws.Insert(vec(30, 10), a)

	assert.True(t, errors.Is(ws.Reparent(a, b), ErrCycle))
	assert.True(t, errors.Is(ws.Reparent(a, a), ErrCycle))
	assert.True(t, errors.Is(ws.Reparent(ws.Root(), a), ErrCycle))
	assert.True(t, ws.IsAncestor(a, b))
	assert.False(t, ws.IsAncestor(b, a))
}

func TestNearestNodeMatchesLinearScan(t *testing.T) {
	ws := openWorkspace(t)
	rng := rand.New(rand.NewPCG(7, 7))
	for i := 0; i < 300; i++ {
		p := vec(1+rng.Float64()*98, 1+rng.Float64()*98)
		_, err := ws.Insert(p, ws.NearestNode(p))
		require.NoError(t, err)
	}

	for i := 0; i < 100; i++ {
		p := vec(rng.Float64()*100, rng.Float64()*100)
		got, want := ws.NearestNode(p), ws.nearestLinear(p)
		assert.InDelta(t,
			ws.Node(want).Position().Distance(p),
			ws.Node(got).Position().Distance(p), 1e-9)
	}
}

func TestNeighborsUseStrictRadius(t *testing.T) {
	ws := openWorkspace(t)
	a, _ := ws.Insert(vec(20, 10), ws.Root())
	b, _ := ws.Insert(vec(25, 10), a)
	_, _ = ws.Insert(vec(40, 10), b)

	assert.Equal(t, []NodeID{ws.Root(), a, b}, ws.Neighbors(vec(20, 10), 11))
	assert.Equal(t, []NodeID{a, b}, ws.Neighbors(vec(20, 10), 10), "node at exactly the radius is excluded")
	assert.Empty(t, ws.Neighbors(vec(20, 10), 0))
}

func TestAttachGoalPublishesPath(t *testing.T) {
	ws := openWorkspace(t)
	assert.False(t, ws.HasPath())
	assert.Zero(t, ws.PathLength())

	a, _ := ws.Insert(vec(10, 50), ws.Root())
	b, _ := ws.Insert(vec(50, 90), a)
	goal, err := ws.AttachGoal(b)
	require.NoError(t, err)

	assert.True(t, ws.HasPath())
	assert.Equal(t, []NodeID{ws.Root(), a, b, goal}, ws.PathIDs())
	assert.InDelta(t, 40+math.Hypot(40, 40)+40, ws.PathLength(), 1e-9)
	assert.InDelta(t, ws.PathLength(), ws.Node(goal).Cost(), 1e-9)

	path := ws.Path()
	assert.True(t, path[0].Equal(ws.Start(), 0))
	assert.True(t, path[len(path)-1].Equal(ws.Goal(), 0))

	// goal is not a tree node for search purposes
	assert.NotEqual(t, goal, ws.NearestNode(vec(90, 90)))

	// a second attach re-parents the same goal node
	again, err := ws.AttachGoal(a)
	require.NoError(t, err)
	assert.Equal(t, goal, again)
	assert.Equal(t, []NodeID{ws.Root(), a, goal}, ws.PathIDs())
}

func TestPublishPathRejectsBrokenChains(t *testing.T) {
	ws := openWorkspace(t)
	a, _ := ws.Insert(vec(10, 50), ws.Root())
	b, _ := ws.Insert(vec(50, 50), ws.Root())
	goal, err := ws.AttachGoal(a)
	require.NoError(t, err)

	assert.Error(t, ws.PublishPath([]NodeID{ws.Root(), b, goal}))
	assert.Error(t, ws.PublishPath([]NodeID{a, goal}))
	assert.Error(t, ws.PublishPath(nil))
	assert.NoError(t, ws.PublishPath([]NodeID{ws.Root(), a, goal}))
}

func TestInvert(t *testing.T) {
	ws := openWorkspace(t)
	a, _ := ws.Insert(vec(20, 10), ws.Root())
	b, _ := ws.Insert(vec(30, 10), a)

	chain, err := ws.Invert(b)
	require.NoError(t, err)
	assert.Equal(t, []NodeID{ws.Root(), a, b}, chain)

	_, err = ws.Invert(99)
	assert.True(t, errors.Is(err, ErrUnknownNode))
}

func TestUpdateRicochetsOncePerContact(t *testing.T) {
	ball, err := obstacle.NewDynamic(circle(t, 5), vec(90, 50), vec(10, 0))
	require.NoError(t, err)
	ws, err := New(Config{Width: 100, Height: 100, Start: vec(10, 10), Goal: vec(20, 90),
		Dynamic: []*obstacle.Obstacle{ball}})
	require.NoError(t, err)

	require.NoError(t, ws.Update(0.5))
	assert.InDelta(t, 95, ball.Anchor.X(), 1e-9)
	assert.InDelta(t, -10, ball.Velocity().X(), 1e-9, "bounced off the right wall")

	require.NoError(t, ws.Update(0))
	assert.InDelta(t, -10, ball.Velocity().X(), 1e-9, "still in contact, no second bounce")

	require.NoError(t, ws.Update(0.5))
	assert.InDelta(t, 90, ball.Anchor.X(), 1e-9)
	assert.InDelta(t, -10, ball.Velocity().X(), 1e-9)
}

func TestScratchSharesObstaclesOnly(t *testing.T) {
	ws := openWorkspace(t)
	_, _ = ws.Insert(vec(20, 20), ws.Root())

	scratch := ws.Scratch()
	assert.Equal(t, 1, scratch.NodeCount())
	assert.Len(t, scratch.StaticObstacles(), len(ws.StaticObstacles()))
	assert.Empty(t, scratch.DynamicObstacles())
	assert.True(t, scratch.Start().Equal(ws.Start(), 0))
}
