package obstacle

import (
	"math"

	"github.com/dhconnelly/rtreego"
	"github.com/pkg/errors"

	"rrt-planner/geometry"
)

// queryTolerance is the half-size of the box used to look up a single point.
const queryTolerance = 1e-9

// indexEntry wraps an obstacle for R-tree storage
type indexEntry struct {
	obstacle *Obstacle
	bbox     rtreego.Rect
}

// Bounds implements rtreego.Spatial interface
func (e *indexEntry) Bounds() rtreego.Rect {
	return e.bbox
}

// Index answers spatial queries over obstacles that never move.
type Index struct {
	tree *rtreego.Rtree
	size int
}

// NewIndex builds an R-tree over the bounding boxes of the given obstacles.
// Dynamic obstacles are rejected since their boxes would go stale.
func NewIndex(obstacles []*Obstacle) (*Index, error) {
	tree := rtreego.NewTree(2, 25, 50) // 2D, min 25, max 50 entries per node

	for _, o := range obstacles {
		if o.IsDynamic() {
			return nil, errors.New("cannot index a dynamic obstacle")
		}
		bbox, err := boundingBox(o)
		if err != nil {
			return nil, err
		}
		tree.Insert(&indexEntry{obstacle: o, bbox: bbox})
	}

	return &Index{tree: tree, size: len(obstacles)}, nil
}

// Size returns the number of indexed obstacles.
func (idx *Index) Size() int { return idx.size }

// QueryPoint returns the obstacles whose bounding box may contain p.
func (idx *Index) QueryPoint(p geometry.Vector) []*Obstacle {
	bbox, err := rtreego.NewRect(
		rtreego.Point{p.X() - queryTolerance, p.Y() - queryTolerance},
		[]float64{2 * queryTolerance, 2 * queryTolerance},
	)
	if err != nil {
		return nil
	}
	return idx.search(bbox)
}

// QueryRegion returns the obstacles whose bounding box intersects the box
// spanned by the two corners. Degenerate boxes (a point or an axis-aligned
// segment) are padded so they still intersect what they touch.
func (idx *Index) QueryRegion(x0, y0, x1, y1 float64) []*Obstacle {
	minX, maxX := math.Min(x0, x1), math.Max(x0, x1)
	minY, maxY := math.Min(y0, y1), math.Max(y0, y1)
	bbox, err := rtreego.NewRect(
		rtreego.Point{minX - queryTolerance, minY - queryTolerance},
		[]float64{maxX - minX + 2*queryTolerance, maxY - minY + 2*queryTolerance},
	)
	if err != nil {
		return nil
	}
	return idx.search(bbox)
}

func (idx *Index) search(bbox rtreego.Rect) []*Obstacle {
	results := idx.tree.SearchIntersect(bbox)
	obstacles := make([]*Obstacle, 0, len(results))
	for _, item := range results {
		obstacles = append(obstacles, item.(*indexEntry).obstacle)
	}
	return obstacles
}

// boundingBox computes the axis-aligned bounding box for an obstacle
func boundingBox(o *Obstacle) (rtreego.Rect, error) {
	minX, minY, maxX, maxY, err := o.Shape.Bounds(o.Anchor)
	if err != nil {
		return rtreego.Rect{}, err
	}
	return rtreego.NewRect(
		rtreego.Point{minX, minY},
		[]float64{maxX - minX, maxY - minY},
	)
}
