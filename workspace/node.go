package workspace

import (
	"fmt"
	"math"

	"github.com/dhconnelly/rtreego"

	"rrt-planner/geometry"
)

// NodeID indexes a node in the workspace arena.
type NodeID int

// NoParent marks the root and nodes that were never attached.
const NoParent NodeID = -1

// Unreached is the cost of a node with no route from the root.
var Unreached = math.Inf(1)

// pointTolerance is the half-size of the box a node occupies in the R-tree.
const pointTolerance = 1e-9

// Node is a tree vertex. Its position never changes; cost and parent are
// managed by the owning Workspace.
type Node struct {
	id       NodeID
	position geometry.Vector
	cost     float64
	parent   NodeID
	children []NodeID
	bbox     rtreego.Rect
}

func newNode(id NodeID, position geometry.Vector, parent NodeID, cost float64) *Node {
	bbox, _ := rtreego.NewRect(
		rtreego.Point{position.X() - pointTolerance, position.Y() - pointTolerance},
		[]float64{2 * pointTolerance, 2 * pointTolerance},
	)
	return &Node{
		id:       id,
		position: position,
		cost:     cost,
		parent:   parent,
		bbox:     bbox,
	}
}

func (n *Node) ID() NodeID                { return n.id }
func (n *Node) Position() geometry.Vector { return n.position }
func (n *Node) Cost() float64             { return n.cost }
func (n *Node) Parent() NodeID            { return n.parent }

// HasParent reports whether the node is attached below another node.
func (n *Node) HasParent() bool { return n.parent != NoParent }

// Children returns a copy of the IDs of the nodes attached below n.
func (n *Node) Children() []NodeID {
	out := make([]NodeID, len(n.children))
	copy(out, n.children)
	return out
}

// Distance calculates the Euclidean distance between two nodes
func (n *Node) Distance(other *Node) float64 {
	return n.position.Distance(other.position)
}

// Bounds implements rtreego.Spatial interface
func (n *Node) Bounds() rtreego.Rect {
	return n.bbox
}

func (n *Node) String() string {
	return fmt.Sprintf("Node#%d(%.3f, %.3f, cost=%.3f, parent=%d)", n.id, n.position.X(), n.position.Y(), n.cost, n.parent)
}

func (n *Node) removeChild(child NodeID) {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			return
		}
	}
}
