package planner

import (
	"rrt-planner/geometry"
	"rrt-planner/workspace"
)

// RewirePolicy decides where a new point attaches and which links are
// adjusted once it is in the tree.
type RewirePolicy interface {
	Parent(t *Tree, pos geometry.Vector, nearest workspace.NodeID, neighbors []workspace.NodeID) (workspace.NodeID, error)
	Rewire(t *Tree, id workspace.NodeID, neighbors []workspace.NodeID) error
}

// OptimizePolicy improves an existing path. It runs when the goal is first
// reached and on every Iterate after that.
type OptimizePolicy interface {
	Optimize(t *Tree) (int, error)
}

// nearestParent attaches to the nearest node and never rewires.
type nearestParent struct{}

func (nearestParent) Parent(_ *Tree, _ geometry.Vector, nearest workspace.NodeID, _ []workspace.NodeID) (workspace.NodeID, error) {
	return nearest, nil
}

func (nearestParent) Rewire(*Tree, workspace.NodeID, []workspace.NodeID) error { return nil }

// radiusRewire chooses the cheapest neighbor as parent and then rewires the
// neighbors through the new node. withAncestors widens the rewire set.
type radiusRewire struct {
	withAncestors bool
}

func (radiusRewire) Parent(t *Tree, pos geometry.Vector, nearest workspace.NodeID, neighbors []workspace.NodeID) (workspace.NodeID, error) {
	return t.ChooseBestParent(pos, nearest, neighbors)
}

func (r radiusRewire) Rewire(t *Tree, id workspace.NodeID, neighbors []workspace.NodeID) error {
	candidates := neighbors
	if r.withAncestors {
		candidates = t.WithAncestors(neighbors)
	}
	_, err := t.Rewire(id, candidates)
	return err
}

// ancestorSearch chooses the cheapest neighbor as parent and, unless lazy,
// re-searches the ancestor chain of the new node right away.
type ancestorSearch struct {
	lazy bool
}

func (ancestorSearch) Parent(t *Tree, pos geometry.Vector, nearest workspace.NodeID, neighbors []workspace.NodeID) (workspace.NodeID, error) {
	return t.ChooseBestParent(pos, nearest, neighbors)
}

func (a ancestorSearch) Rewire(t *Tree, id workspace.NodeID, _ []workspace.NodeID) error {
	if a.lazy {
		return nil
	}
	_, err := t.ReSearchParent(id)
	return err
}

type noOptimize struct{}

func (noOptimize) Optimize(*Tree) (int, error) { return 0, nil }

// pathOptimize re-searches parents along the whole path.
type pathOptimize struct{}

func (pathOptimize) Optimize(t *Tree) (int, error) { return t.OptimisePath() }

// policies returns the rewire and optimize strategies of alg.
func policies(alg Algorithm) (RewirePolicy, OptimizePolicy) {
	switch alg {
	case RRTStar:
		return radiusRewire{}, noOptimize{}
	case QRRTStar:
		return radiusRewire{withAncestors: true}, noOptimize{}
	case DTRRTStar:
		return ancestorSearch{}, noOptimize{}
	case LazyDTRRTStar:
		return ancestorSearch{lazy: true}, pathOptimize{}
	}
	return nearestParent{}, noOptimize{}
}
