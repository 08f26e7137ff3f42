package planner

import (
	"math"

	"github.com/pkg/errors"

	"rrt-planner/geometry"
	"rrt-planner/workspace"
)

// Tree bundles a workspace with the step and radius the tree operations run at.
type Tree struct {
	ws     *workspace.Workspace
	step   float64
	radius float64
}

// NewTree wraps ws for tree operations at the given resolution.
func NewTree(ws *workspace.Workspace, step, radius float64) *Tree {
	return &Tree{ws: ws, step: step, radius: radius}
}

// Workspace returns the underlying workspace.
func (t *Tree) Workspace() *workspace.Workspace { return t.ws }

// Steer returns the point at most step away from "from" in the direction of "to".
// When "to" is already closer it is returned unchanged.
func Steer(from, to geometry.Vector, step float64) geometry.Vector {
	d := from.Distance(to)
	if d < step {
		return to
	}
	k := step / d
	return geometry.FromRectangular(
		from.X()+(to.X()-from.X())*k,
		from.Y()+(to.Y()-from.Y())*k,
	)
}

// CollisionFree samples the segment from a to b at step resolution and reports
// whether every sample point is inside the workspace and outside static obstacles.
// The start point is not tested.
func (t *Tree) CollisionFree(a, b geometry.Vector) (bool, error) {
	steps := int(math.Ceil(a.Distance(b) / t.step))
	if steps < 1 {
		steps = 1
	}
	dx := (b.X() - a.X()) / float64(steps)
	dy := (b.Y() - a.Y()) / float64(steps)

	// every sample point lies in the segment's box
	candidates := t.ws.SegmentObstacles(a, b)
	for k := 1; k <= steps; k++ {
		p := geometry.FromRectangular(a.X()+dx*float64(k), a.Y()+dy*float64(k))
		if !t.ws.InBounds(p) {
			return false, nil
		}
		for _, o := range candidates {
			inside, err := o.ContainsPoint(p)
			if err != nil {
				return false, err
			}
			if inside {
				return false, nil
			}
		}
	}
	return true, nil
}

// Neighbors returns the tree nodes strictly within the neighbor radius of p.
func (t *Tree) Neighbors(p geometry.Vector) []workspace.NodeID {
	return t.ws.Neighbors(p, t.radius)
}

// ChooseBestParent picks, among nearest and neighbors, the node giving pos
// the lowest cost-to-come over a collision-free edge. The edge from nearest
// is assumed to have been checked already.
func (t *Tree) ChooseBestParent(pos geometry.Vector, nearest workspace.NodeID, neighbors []workspace.NodeID) (workspace.NodeID, error) {
	best := nearest
	n := t.ws.Node(nearest)
	bestCost := n.Cost() + n.Position().Distance(pos)

	for _, id := range neighbors {
		if id == nearest {
			continue
		}
		candidate := t.ws.Node(id)
		cost := candidate.Cost() + candidate.Position().Distance(pos)
		if cost >= bestCost {
			continue
		}
		free, err := t.CollisionFree(candidate.Position(), pos)
		if err != nil {
			return workspace.NoParent, err
		}
		if free {
			best, bestCost = id, cost
		}
	}
	return best, nil
}

// Rewire re-parents each candidate below id when that strictly lowers its cost.
// It returns the number of candidates that moved.
func (t *Tree) Rewire(id workspace.NodeID, candidates []workspace.NodeID) (int, error) {
	n := t.ws.Node(id)
	if n == nil {
		return 0, errors.Wrapf(workspace.ErrUnknownNode, "rewire around %d", id)
	}

	rewired := 0
	for _, cid := range candidates {
		if cid == id || cid == n.Parent() || cid == t.ws.Root() || t.ws.IsAncestor(cid, id) {
			continue
		}
		c := t.ws.Node(cid)
		if n.Cost()+n.Distance(c) >= c.Cost() {
			continue
		}
		free, err := t.CollisionFree(n.Position(), c.Position())
		if err != nil {
			return rewired, err
		}
		if !free {
			continue
		}
		if err := t.ws.Reparent(cid, id); err != nil {
			return rewired, err
		}
		rewired++
	}
	return rewired, nil
}

// WithAncestors returns ids followed by every ancestor of any of them, without duplicates.
func (t *Tree) WithAncestors(ids []workspace.NodeID) []workspace.NodeID {
	seen := make(map[workspace.NodeID]struct{}, len(ids))
	out := make([]workspace.NodeID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	for _, id := range ids {
		for cur := t.ws.Node(id).Parent(); cur != workspace.NoParent; cur = t.ws.Node(cur).Parent() {
			if _, ok := seen[cur]; ok {
				break
			}
			seen[cur] = struct{}{}
			out = append(out, cur)
		}
	}
	return out
}

// ReSearchParent walks the whole ancestor chain of id and re-parents id to the
// ancestor giving the lowest cost over a collision-free edge, if that is
// strictly cheaper than its current link. It reports whether id moved.
func (t *Tree) ReSearchParent(id workspace.NodeID) (bool, error) {
	n := t.ws.Node(id)
	if n == nil {
		return false, errors.Wrapf(workspace.ErrUnknownNode, "re-search parent of %d", id)
	}
	if !n.HasParent() {
		return false, nil
	}

	best := n.Parent()
	bestCost := n.Cost()
	for cur := t.ws.Node(n.Parent()).Parent(); cur != workspace.NoParent; cur = t.ws.Node(cur).Parent() {
		a := t.ws.Node(cur)
		cost := a.Cost() + a.Distance(n)
		if cost >= bestCost {
			continue
		}
		free, err := t.CollisionFree(a.Position(), n.Position())
		if err != nil {
			return false, err
		}
		if free {
			best, bestCost = cur, cost
		}
	}

	if best == n.Parent() {
		return false, nil
	}
	return true, t.ws.Reparent(id, best)
}

// OptimisePath runs ReSearchParent on every node of the current path from
// the goal back to the root, then republishes the path. It returns the
// number of nodes that moved.
func (t *Tree) OptimisePath() (int, error) {
	goal, ok := t.ws.GoalNode()
	if !ok || !t.ws.HasPath() {
		return 0, errors.Wrap(ErrInvalidState, "cannot optimise before a path exists")
	}

	moved := 0
	for cur := goal; cur != workspace.NoParent; cur = t.ws.Node(cur).Parent() {
		changed, err := t.ReSearchParent(cur)
		if err != nil {
			return moved, err
		}
		if changed {
			moved++
		}
	}
	return moved, t.ws.RefreshPath()
}

// Densify walks the current path from the goal and inserts intermediate nodes
// wherever consecutive nodes are more than step apart. It returns the number
// of nodes added.
func (t *Tree) Densify() (int, error) {
	goal, ok := t.ws.GoalNode()
	if !ok {
		return 0, errors.Wrap(ErrInvalidState, "cannot densify before a path exists")
	}

	added := 0
	cur := goal
	for t.ws.Node(cur).HasParent() {
		n := t.ws.Node(cur)
		parent := t.ws.Node(n.Parent())
		if n.Distance(parent) <= t.step {
			cur = parent.ID()
			continue
		}
		mid, err := t.ws.Insert(Steer(n.Position(), parent.Position(), t.step), parent.ID())
		if err != nil {
			return added, err
		}
		if err := t.ws.Reparent(cur, mid); err != nil {
			return added, err
		}
		added++
		cur = mid
	}
	return added, t.ws.RefreshPath()
}
