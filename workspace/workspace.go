package workspace

import (
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"rrt-planner/geometry"
	"rrt-planner/internal/logging"
	"rrt-planner/obstacle"
)

// wallThickness is the width of the four synthetic boundary walls.
const wallThickness = 1

// Config describes a workspace before the boundary walls are injected.
type Config struct {
	Width   float64
	Height  float64
	Start   geometry.Vector
	Goal    geometry.Vector
	Static  []*obstacle.Obstacle
	Dynamic []*obstacle.Obstacle
	Logger  *zap.Logger
}

// Workspace owns the obstacles, the tree of nodes grown by a planner and the
// current path. It is not safe for concurrent use.
type Workspace struct {
	width, height float64
	bound         orb.Bound
	start, goal   geometry.Vector

	static      []*obstacle.Obstacle
	dynamic     []*obstacle.Obstacle
	staticIndex *obstacle.Index

	nodes    []*Node
	nodeTree *rtreego.Rtree
	goalID   NodeID
	path     []NodeID

	// stale is set whenever nodes, links or the path change
	stale bool

	logger *zap.Logger
}

// New builds a workspace, adds the boundary walls and roots the tree at the start point.
func New(cfg Config) (*Workspace, error) {
	if !(cfg.Width > 0) || !(cfg.Height > 0) || math.IsInf(cfg.Width, 0) || math.IsInf(cfg.Height, 0) {
		return nil, errors.Wrapf(ErrInvalidLayout, "workspace size must be positive, got %gx%g", cfg.Width, cfg.Height)
	}
	if cfg.Start.Len() != 2 || cfg.Goal.Len() != 2 {
		return nil, errors.Wrap(ErrInvalidLayout, "start and goal must be 2D points")
	}

	walls, err := boundaryWalls(cfg.Width, cfg.Height)
	if err != nil {
		return nil, err
	}
	static := append(walls, cfg.Static...)
	for _, o := range static {
		if o.IsDynamic() {
			return nil, errors.Wrap(ErrInvalidLayout, "dynamic obstacle in the static list")
		}
		if o.Shape.Kind != geometry.Rectangle {
			return nil, errors.Wrapf(geometry.ErrUnsupportedShape,
				"static obstacles must be rectangles for node collision tests, got %s", o.Shape.Kind)
		}
	}
	for _, o := range cfg.Dynamic {
		if !o.IsDynamic() {
			return nil, errors.Wrap(ErrInvalidLayout, "static obstacle in the dynamic list")
		}
	}

	index, err := obstacle.NewIndex(static)
	if err != nil {
		return nil, errors.Wrap(err, "indexing static obstacles")
	}

	ws := &Workspace{
		width:       cfg.Width,
		height:      cfg.Height,
		bound:       orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{cfg.Width, cfg.Height}},
		start:       cfg.Start,
		goal:        cfg.Goal,
		static:      static,
		dynamic:     append([]*obstacle.Obstacle(nil), cfg.Dynamic...),
		staticIndex: index,
		goalID:      NoParent,
		logger:      logging.OrNop(cfg.Logger),
	}

	for name, p := range map[string]geometry.Vector{"start": cfg.Start, "goal": cfg.Goal} {
		if !ws.InBounds(p) {
			return nil, errors.Wrapf(ErrInvalidLayout, "%s %s is outside the workspace", name, p)
		}
		colliding, err := ws.IsColliding(p)
		if err != nil {
			return nil, err
		}
		if colliding {
			return nil, errors.Wrapf(ErrInvalidLayout, "%s %s lies inside a static obstacle", name, p)
		}
	}

	ws.resetTree()

	ws.logger.Debug("workspace built",
		zap.Float64("width", cfg.Width),
		zap.Float64("height", cfg.Height),
		zap.Int("static_obstacles", len(static)),
		zap.Int("dynamic_obstacles", len(cfg.Dynamic)),
	)
	return ws, nil
}

// boundaryWalls returns the left, top, right and bottom walls of a width × height workspace.
func boundaryWalls(width, height float64) ([]*obstacle.Obstacle, error) {
	vertical, err := geometry.NewRectangle(wallThickness, height)
	if err != nil {
		return nil, err
	}
	horizontal, err := geometry.NewRectangle(width, wallThickness)
	if err != nil {
		return nil, err
	}
	return []*obstacle.Obstacle{
		obstacle.NewStatic(vertical, geometry.FromRectangular(0, 0)),                      // left
		obstacle.NewStatic(horizontal, geometry.FromRectangular(0, height-wallThickness)), // top
		obstacle.NewStatic(vertical, geometry.FromRectangular(width-wallThickness, 0)),    // right
		obstacle.NewStatic(horizontal, geometry.FromRectangular(0, 0)),                    // bottom
	}, nil
}

func (ws *Workspace) resetTree() {
	root := newNode(0, ws.start, NoParent, 0)
	ws.nodes = []*Node{root}
	ws.nodeTree = rtreego.NewTree(2, 25, 50)
	ws.nodeTree.Insert(root)
	ws.goalID = NoParent
	ws.path = nil
	ws.stale = true
}

// Scratch returns a workspace with the same bounds, start, goal and static
// obstacles but an empty tree and no moving obstacles.
func (ws *Workspace) Scratch() *Workspace {
	scratch := &Workspace{
		width:       ws.width,
		height:      ws.height,
		bound:       ws.bound,
		start:       ws.start,
		goal:        ws.goal,
		static:      ws.static,
		staticIndex: ws.staticIndex,
		logger:      ws.logger,
	}
	scratch.resetTree()
	return scratch
}

// Size returns the workspace width and height.
func (ws *Workspace) Size() (float64, float64) { return ws.width, ws.height }

// Bound returns the workspace rectangle.
func (ws *Workspace) Bound() orb.Bound { return ws.bound }

func (ws *Workspace) Start() geometry.Vector { return ws.start }
func (ws *Workspace) Goal() geometry.Vector  { return ws.goal }

// StaticObstacles returns the static obstacles, boundary walls first.
func (ws *Workspace) StaticObstacles() []*obstacle.Obstacle {
	return append([]*obstacle.Obstacle(nil), ws.static...)
}

// DynamicObstacles returns the moving obstacles.
func (ws *Workspace) DynamicObstacles() []*obstacle.Obstacle {
	return append([]*obstacle.Obstacle(nil), ws.dynamic...)
}

// Root returns the ID of the node at the start point.
func (ws *Workspace) Root() NodeID { return 0 }

// Node returns the node with the given ID, or nil.
func (ws *Workspace) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(ws.nodes) {
		return nil
	}
	return ws.nodes[id]
}

// Nodes returns every node, including the goal once it is attached.
func (ws *Workspace) Nodes() []*Node {
	return append([]*Node(nil), ws.nodes...)
}

// NodeCount returns the number of nodes in the arena.
func (ws *Workspace) NodeCount() int { return len(ws.nodes) }

// InBounds reports whether p lies within the workspace rectangle.
func (ws *Workspace) InBounds(p geometry.Vector) bool {
	return ws.bound.Contains(orb.Point{p.X(), p.Y()})
}

// IsColliding reports whether p lies strictly inside any static obstacle, walls included.
func (ws *Workspace) IsColliding(p geometry.Vector) (bool, error) {
	for _, o := range ws.staticIndex.QueryPoint(p) {
		inside, err := o.ContainsPoint(p)
		if err != nil {
			return false, err
		}
		if inside {
			return true, nil
		}
	}
	return false, nil
}

// SegmentObstacles returns the static obstacles, walls included, whose bounding
// box meets the box spanned by a and b.
func (ws *Workspace) SegmentObstacles(a, b geometry.Vector) []*obstacle.Obstacle {
	return ws.staticIndex.QueryRegion(a.X(), a.Y(), b.X(), b.Y())
}

// NearestNode finds the tree node closest to p. The goal node is never returned.
func (ws *Workspace) NearestNode(p geometry.Vector) NodeID {
	nearest := ws.nodeTree.NearestNeighbor(rtreego.Point{p.X(), p.Y()})
	if nearest == nil {
		return ws.nearestLinear(p)
	}
	return nearest.(*Node).id
}

// nearestLinear finds the closest node by scanning the arena.
func (ws *Workspace) nearestLinear(p geometry.Vector) NodeID {
	nearestID := NoParent
	minDist := math.MaxFloat64
	for _, n := range ws.nodes {
		if n.id == ws.goalID {
			continue
		}
		if dist := n.position.Distance(p); dist < minDist {
			minDist = dist
			nearestID = n.id
		}
	}
	return nearestID
}

// Neighbors returns the tree nodes strictly closer than radius to p, in ID order.
func (ws *Workspace) Neighbors(p geometry.Vector, radius float64) []NodeID {
	if radius <= 0 {
		return nil
	}
	bbox, err := rtreego.NewRect(
		rtreego.Point{p.X() - radius, p.Y() - radius},
		[]float64{2 * radius, 2 * radius},
	)
	if err != nil {
		return nil
	}

	var ids []NodeID
	for _, item := range ws.nodeTree.SearchIntersect(bbox) {
		n := item.(*Node)
		if n.position.Distance(p) < radius {
			ids = append(ids, n.id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Insert appends a node at p below parent, with cost-to-come through parent.
func (ws *Workspace) Insert(p geometry.Vector, parent NodeID) (NodeID, error) {
	pn := ws.Node(parent)
	if pn == nil || parent == ws.goalID {
		return NoParent, errors.Wrapf(ErrUnknownNode, "parent %d", parent)
	}

	id := NodeID(len(ws.nodes))
	n := newNode(id, p, parent, pn.cost+pn.position.Distance(p))
	ws.nodes = append(ws.nodes, n)
	pn.children = append(pn.children, id)
	ws.nodeTree.Insert(n)
	ws.stale = true
	return id, nil
}

// IsAncestor reports whether ancestor lies on the parent chain of id.
func (ws *Workspace) IsAncestor(ancestor, id NodeID) bool {
	steps := 0
	for cur := ws.Node(id); cur != nil && cur.parent != NoParent && steps <= len(ws.nodes); steps++ {
		if cur.parent == ancestor {
			return true
		}
		cur = ws.nodes[cur.parent]
	}
	return false
}

// Reparent attaches child below parent and propagates the new cost-to-come
// through the child's subtree.
func (ws *Workspace) Reparent(child, parent NodeID) error {
	cn, pn := ws.Node(child), ws.Node(parent)
	if cn == nil || pn == nil {
		return errors.Wrapf(ErrUnknownNode, "reparent %d below %d", child, parent)
	}
	if child == ws.Root() {
		return errors.Wrap(ErrCycle, "the root cannot be re-parented")
	}
	if child == parent || ws.IsAncestor(child, parent) {
		return errors.Wrapf(ErrCycle, "node %d is an ancestor of %d", child, parent)
	}

	if cn.parent != NoParent {
		ws.nodes[cn.parent].removeChild(child)
	}
	cn.parent = parent
	pn.children = append(pn.children, child)
	cn.cost = pn.cost + pn.Distance(cn)
	ws.propagateCost(cn)
	ws.stale = true
	return nil
}

func (ws *Workspace) propagateCost(from *Node) {
	queue := []*Node{from}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, id := range n.children {
			c := ws.nodes[id]
			c.cost = n.cost + n.Distance(c)
			queue = append(queue, c)
		}
	}
}

// Invert follows parent links from id to the root and returns the chain root-first.
func (ws *Workspace) Invert(id NodeID) ([]NodeID, error) {
	if ws.Node(id) == nil {
		return nil, errors.Wrapf(ErrUnknownNode, "invert %d", id)
	}
	var chain []NodeID
	for cur := id; cur != NoParent; cur = ws.nodes[cur].parent {
		if len(chain) > len(ws.nodes) {
			return nil, errors.Wrapf(ErrCycle, "parent chain of %d does not reach the root", id)
		}
		chain = append(chain, cur)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	if chain[0] != ws.Root() {
		return nil, errors.Wrapf(ErrUnknownNode, "node %d is not attached to the root", id)
	}
	return chain, nil
}

// GoalNode returns the ID of the goal node once it has been attached.
func (ws *Workspace) GoalNode() (NodeID, bool) {
	return ws.goalID, ws.goalID != NoParent
}

// AttachGoal makes the goal a child of parent and publishes the path through it.
func (ws *Workspace) AttachGoal(parent NodeID) (NodeID, error) {
	if ws.goalID == NoParent {
		pn := ws.Node(parent)
		if pn == nil {
			return NoParent, errors.Wrapf(ErrUnknownNode, "goal parent %d", parent)
		}
		id := NodeID(len(ws.nodes))
		ws.nodes = append(ws.nodes, newNode(id, ws.goal, parent, pn.cost+pn.position.Distance(ws.goal)))
		pn.children = append(pn.children, id)
		ws.goalID = id
	} else if err := ws.Reparent(ws.goalID, parent); err != nil {
		return NoParent, err
	}
	return ws.goalID, ws.RefreshPath()
}

// RefreshPath re-derives the published path from the goal's current parent chain.
func (ws *Workspace) RefreshPath() error {
	if ws.goalID == NoParent {
		return errors.Wrap(ErrUnknownNode, "goal is not attached")
	}
	chain, err := ws.Invert(ws.goalID)
	if err != nil {
		return err
	}
	return ws.PublishPath(chain)
}

// PublishPath replaces the current path. ids must be a contiguous parent
// chain from the root to the goal node.
func (ws *Workspace) PublishPath(ids []NodeID) error {
	if len(ids) == 0 || ids[0] != ws.Root() {
		return errors.Wrap(ErrUnknownNode, "path must start at the root")
	}
	if ws.goalID == NoParent || ids[len(ids)-1] != ws.goalID {
		return errors.Wrap(ErrUnknownNode, "path must end at the goal node")
	}
	for i := 1; i < len(ids); i++ {
		n := ws.Node(ids[i])
		if n == nil || n.parent != ids[i-1] {
			return errors.Wrapf(ErrUnknownNode, "path breaks at node %d", ids[i])
		}
	}
	ws.path = append([]NodeID(nil), ids...)
	ws.stale = true
	return nil
}

// HasPath reports whether a path has been published.
func (ws *Workspace) HasPath() bool { return len(ws.path) > 0 }

// PathIDs returns the published path as node IDs, start first.
func (ws *Workspace) PathIDs() []NodeID {
	return append([]NodeID(nil), ws.path...)
}

// Path returns the published path as positions, start first, or nil.
func (ws *Workspace) Path() []geometry.Vector {
	if len(ws.path) == 0 {
		return nil
	}
	out := make([]geometry.Vector, len(ws.path))
	for i, id := range ws.path {
		out[i] = ws.nodes[id].position
	}
	return out
}

// PathLineString returns the published path as an orb line string.
func (ws *Workspace) PathLineString() orb.LineString {
	ls := make(orb.LineString, 0, len(ws.path))
	for _, id := range ws.path {
		p := ws.nodes[id].position
		ls = append(ls, orb.Point{p.X(), p.Y()})
	}
	return ls
}

// PathLength returns the Euclidean length of the published path, or 0.
func (ws *Workspace) PathLength() float64 {
	if len(ws.path) < 2 {
		return 0
	}
	return planar.Length(ws.PathLineString())
}

// Stale reports whether the tree or path changed since the last ClearStale.
func (ws *Workspace) Stale() bool { return ws.stale }

// ClearStale acknowledges the current state, e.g. after a renderer drew it.
func (ws *Workspace) ClearStale() { ws.stale = false }

// Update advances every dynamic obstacle by dt, then bounces each one off
// any obstacle it has just come into contact with.
func (ws *Workspace) Update(dt float64) error {
	for _, o := range ws.dynamic {
		if err := o.Move(dt); err != nil {
			return err
		}
	}

	for _, o := range ws.dynamic {
		for _, other := range ws.static {
			if err := ws.bounce(o, other); err != nil {
				return err
			}
		}
		for _, other := range ws.dynamic {
			if other == o {
				continue
			}
			if err := ws.bounce(o, other); err != nil {
				return err
			}
		}
	}
	return nil
}

func (ws *Workspace) bounce(o, other *obstacle.Obstacle) error {
	fresh, err := o.IsNewContact(other)
	if err != nil {
		return err
	}
	if !fresh {
		return nil
	}
	ws.logger.Debug("ricochet", zap.Stringer("obstacle", o), zap.Stringer("other", other))
	return o.Ricochet(other)
}
