package geometry

import (
	"math"

	"github.com/pkg/errors"
)

// Axis is the direction along which two shapes meet.
type Axis uint8

const (
	// AxisHorizontal means the contact normal is along x; x velocity flips.
	AxisHorizontal Axis = iota + 1
	// AxisVertical means the contact normal is along y; y velocity flips.
	AxisVertical
)

func (a Axis) String() string {
	switch a {
	case AxisHorizontal:
		return "horizontal"
	case AxisVertical:
		return "vertical"
	}
	return "none"
}

// Collides checks whether shape a placed at aAnchor overlaps shape b placed at bAnchor.
// The result does not depend on argument order.
func Collides(a Shape, aAnchor Vector, b Shape, bAnchor Vector) (bool, error) {
	switch a.Kind {
	case Circle:
		switch b.Kind {
		case Circle:
			return circlesCollide(a, aAnchor, b, bAnchor), nil
		case Rectangle:
			return circleRectangleCollide(a, aAnchor, b, bAnchor), nil
		}
	case Rectangle:
		switch b.Kind {
		case Circle:
			return circleRectangleCollide(b, bAnchor, a, aAnchor), nil
		case Rectangle:
			return rectanglesCollide(a, aAnchor, b, bAnchor), nil
		}
	}
	return false, errors.Wrapf(ErrUnsupportedShape, "collision between %s and %s", a.Kind, b.Kind)
}

func circlesCollide(a Shape, aAnchor Vector, b Shape, bAnchor Vector) bool {
	return aAnchor.Distance(bAnchor) <= a.Radius+b.Radius
}

// rectanglesCollide uses four separating checks; edges that only touch do not overlap.
func rectanglesCollide(a Shape, aAnchor Vector, b Shape, bAnchor Vector) bool {
	ax, ay := aAnchor.X(), aAnchor.Y()
	bx, by := bAnchor.X(), bAnchor.Y()
	return !(ax >= bx+b.Width ||
		ax+a.Width <= bx ||
		ay >= by+b.Height ||
		ay+a.Height <= by)
}

func circleRectangleCollide(c Shape, cAnchor Vector, r Shape, rAnchor Vector) bool {
	halfW, halfH := r.Width/2, r.Height/2
	dx := math.Abs(cAnchor.X() - (rAnchor.X() + halfW))
	dy := math.Abs(cAnchor.Y() - (rAnchor.Y() + halfH))

	if dx > halfW+c.Radius || dy > halfH+c.Radius {
		return false
	}
	if dx <= halfW || dy <= halfH {
		return true
	}

	cornerX, cornerY := dx-halfW, dy-halfH
	return cornerX*cornerX+cornerY*cornerY <= c.Radius*c.Radius
}

// CollisionAxis determines along which axis two touching shapes meet.
// Circle–rectangle pairs use the point of the rectangle nearest to the circle center;
// rectangle–rectangle pairs use the axis of least penetration.
func CollisionAxis(a Shape, aAnchor Vector, b Shape, bAnchor Vector) (Axis, error) {
	switch {
	case a.Kind == Circle && b.Kind == Rectangle:
		return circleRectangleAxis(aAnchor, b, bAnchor), nil
	case a.Kind == Rectangle && b.Kind == Circle:
		return circleRectangleAxis(bAnchor, a, aAnchor), nil
	case a.Kind == Rectangle && b.Kind == Rectangle:
		return rectanglesAxis(a, aAnchor, b, bAnchor), nil
	}
	return 0, errors.Wrapf(ErrUnsupportedShape, "collision axis between %s and %s", a.Kind, b.Kind)
}

func circleRectangleAxis(center Vector, r Shape, rAnchor Vector) Axis {
	cx, cy := center.X(), center.Y()
	closestX := math.Max(rAnchor.X(), math.Min(cx, rAnchor.X()+r.Width))
	closestY := math.Max(rAnchor.Y(), math.Min(cy, rAnchor.Y()+r.Height))

	if math.Abs(closestX-cx) > math.Abs(closestY-cy) {
		return AxisHorizontal
	}
	return AxisVertical
}

func rectanglesAxis(a Shape, aAnchor Vector, b Shape, bAnchor Vector) Axis {
	ax, ay := aAnchor.X(), aAnchor.Y()
	bx, by := bAnchor.X(), bAnchor.Y()
	overlapX := math.Min(ax+a.Width, bx+b.Width) - math.Max(ax, bx)
	overlapY := math.Min(ay+a.Height, by+b.Height) - math.Max(ay, by)
	if overlapX < overlapY {
		return AxisHorizontal
	}
	return AxisVertical
}

// ContainsPoint reports whether p lies strictly inside the shape placed at anchor.
// Only rectangles are supported.
func ContainsPoint(s Shape, anchor Vector, p Vector) (bool, error) {
	switch s.Kind {
	case Rectangle:
		x, y := p.X(), p.Y()
		ax, ay := anchor.X(), anchor.Y()
		return x > ax && x < ax+s.Width && y > ay && y < ay+s.Height, nil
	case Circle:
		return false, errors.Wrap(ErrUnsupportedShape, "point containment is only implemented for rectangles")
	}
	return false, errors.Wrapf(ErrUnsupportedShape, "point containment for %s", s.Kind)
}
