package obstacle

import (
	"fmt"

	"github.com/pkg/errors"

	"rrt-planner/geometry"
)

// Obstacle is a shape placed in the workspace. Static obstacles have no velocity;
// dynamic ones move by Move and bounce off others by Ricochet.
type Obstacle struct {
	Shape  geometry.Shape
	Anchor geometry.Vector

	velocity *geometry.Vector

	// obstacles currently overlapping this one; a contact fires once per episode
	contacts map[*Obstacle]struct{}
}

// NewStatic creates an immovable obstacle.
func NewStatic(shape geometry.Shape, anchor geometry.Vector) *Obstacle {
	return &Obstacle{
		Shape:    shape,
		Anchor:   anchor,
		contacts: make(map[*Obstacle]struct{}),
	}
}

// NewDynamic creates a moving obstacle. Velocity must have the same dimensionality as the anchor.
func NewDynamic(shape geometry.Shape, anchor, velocity geometry.Vector) (*Obstacle, error) {
	if anchor.Len() != velocity.Len() {
		return nil, errors.Wrapf(geometry.ErrConstruction,
			"mismatched dimensions of position (%d) and velocity (%d)", anchor.Len(), velocity.Len())
	}
	return &Obstacle{
		Shape:    shape,
		Anchor:   anchor,
		velocity: &velocity,
		contacts: make(map[*Obstacle]struct{}),
	}, nil
}

// IsDynamic reports whether the obstacle has a velocity.
func (o *Obstacle) IsDynamic() bool { return o.velocity != nil }

// Velocity returns the obstacle velocity, or the zero vector for static obstacles.
func (o *Obstacle) Velocity() geometry.Vector {
	if o.velocity == nil {
		return geometry.FromRectangular(make([]float64, o.Anchor.Len())...)
	}
	return *o.velocity
}

// Move advances the anchor by velocity·dt. Static obstacles do not move.
func (o *Obstacle) Move(dt float64) error {
	if o.velocity == nil {
		return nil
	}
	next, err := o.Anchor.Add(o.velocity.Scale(dt))
	if err != nil {
		return errors.Wrap(err, "moving obstacle")
	}
	o.Anchor = next
	return nil
}

// CollidesWith checks whether two obstacles overlap at their current anchors.
func (o *Obstacle) CollidesWith(other *Obstacle) (bool, error) {
	return geometry.Collides(o.Shape, o.Anchor, other.Shape, other.Anchor)
}

// IsNewContact reports whether o and other overlap now but did not on the previous check.
// The contact is recorded on both obstacles and forgotten once they separate.
func (o *Obstacle) IsNewContact(other *Obstacle) (bool, error) {
	colliding, err := o.CollidesWith(other)
	if err != nil {
		return false, err
	}
	if !colliding {
		delete(o.contacts, other)
		delete(other.contacts, o)
		return false, nil
	}
	if _, ok := o.contacts[other]; ok {
		return false, nil
	}
	o.contacts[other] = struct{}{}
	other.contacts[o] = struct{}{}
	return true, nil
}

// InContact reports whether a contact with other is currently recorded.
func (o *Obstacle) InContact(other *Obstacle) bool {
	_, ok := o.contacts[other]
	return ok
}

// Ricochet updates velocities after o and other came into contact.
//
//   - circle–circle: velocities are swapped; against a static circle the moving one reverses.
//   - circle–rectangle: the circle's velocity is reflected along the collision axis,
//     or the rectangle's when the circle is static.
//   - rectangle–rectangle: every dynamic party is reflected along the axis of least penetration.
func (o *Obstacle) Ricochet(other *Obstacle) error {
	if !o.IsDynamic() && !other.IsDynamic() {
		return nil
	}

	switch {
	case o.Shape.Kind == geometry.Circle && other.Shape.Kind == geometry.Circle:
		switch {
		case o.IsDynamic() && other.IsDynamic():
			o.velocity, other.velocity = other.velocity, o.velocity
		case o.IsDynamic():
			*o.velocity = o.velocity.Scale(-1)
		default:
			*other.velocity = other.velocity.Scale(-1)
		}
		return nil

	case o.Shape.Kind == geometry.Circle && other.Shape.Kind == geometry.Rectangle,
		o.Shape.Kind == geometry.Rectangle && other.Shape.Kind == geometry.Circle:
		axis, err := geometry.CollisionAxis(o.Shape, o.Anchor, other.Shape, other.Anchor)
		if err != nil {
			return err
		}
		circle, rect := o, other
		if o.Shape.Kind == geometry.Rectangle {
			circle, rect = other, o
		}
		if circle.IsDynamic() {
			circle.reflect(axis)
		} else {
			rect.reflect(axis)
		}
		return nil

	case o.Shape.Kind == geometry.Rectangle && other.Shape.Kind == geometry.Rectangle:
		axis, err := geometry.CollisionAxis(o.Shape, o.Anchor, other.Shape, other.Anchor)
		if err != nil {
			return err
		}
		o.reflect(axis)
		other.reflect(axis)
		return nil
	}
	return errors.Wrapf(geometry.ErrUnsupportedShape, "ricochet between %s and %s", o.Shape.Kind, other.Shape.Kind)
}

// reflect inverts the velocity component along axis. No-op for static obstacles.
func (o *Obstacle) reflect(axis geometry.Axis) {
	if o.velocity == nil {
		return
	}
	switch axis {
	case geometry.AxisHorizontal:
		o.velocity.SetComponent(0, -o.velocity.X())
	case geometry.AxisVertical:
		o.velocity.SetComponent(1, -o.velocity.Y())
	}
}

// ContainsPoint reports whether p is strictly inside the obstacle.
func (o *Obstacle) ContainsPoint(p geometry.Vector) (bool, error) {
	return geometry.ContainsPoint(o.Shape, o.Anchor, p)
}

func (o *Obstacle) String() string {
	if o.velocity == nil {
		return fmt.Sprintf("Static Obstacle → %s, anchor %s", o.Shape, o.Anchor)
	}
	return fmt.Sprintf("Dynamic Obstacle → %s, anchor %s, velocity %s", o.Shape, o.Anchor, *o.velocity)
}
