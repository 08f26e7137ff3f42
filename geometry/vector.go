package geometry

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

const fullTurn = 2 * math.Pi

// Vector is a directed quantity kept in rectangular and polar form.
// Only one side is authoritative after a mutation; the other is recomputed on every access.
// Spatial components (up to two) come first, any further components are carried as-is.
type Vector struct {
	components []float64
	magnitude  float64
	angle      float64

	// polar is true when magnitude/angle are authoritative and components are stale
	polar bool
}

// FromRectangular builds a vector from its components.
func FromRectangular(components ...float64) Vector {
	c := make([]float64, len(components))
	copy(c, components)
	return Vector{components: c}
}

// FromPolar builds a 2D vector from a magnitude and an angle in radians.
// A negative magnitude is folded into the angle.
func FromPolar(r, theta float64) Vector {
	if r < 0 {
		r, theta = -r, theta+math.Pi
	}
	return Vector{magnitude: r, angle: normalizeAngle(theta), polar: true}
}

func normalizeAngle(theta float64) float64 {
	theta = math.Mod(theta, fullTurn)
	if theta < 0 {
		theta += fullTurn
	}
	if theta >= fullTurn {
		theta = 0
	}
	return theta
}

// Len returns the number of components.
func (v Vector) Len() int {
	if v.polar {
		return 2
	}
	return len(v.components)
}

// Components returns a copy of the rectangular components.
func (v Vector) Components() []float64 {
	if v.polar {
		if v.angle == 0 {
			return []float64{v.magnitude, 0}
		}
		return []float64{math.Cos(v.angle) * v.magnitude, math.Sin(v.angle) * v.magnitude}
	}
	c := make([]float64, len(v.components))
	copy(c, v.components)
	return c
}

// Component returns the i-th rectangular component, or 0 if the vector is shorter.
func (v Vector) Component(i int) float64 {
	if v.polar {
		switch i {
		case 0:
			return math.Cos(v.angle) * v.magnitude
		case 1:
			return math.Sin(v.angle) * v.magnitude
		}
		return 0
	}
	if i < 0 || i >= len(v.components) {
		return 0
	}
	return v.components[i]
}

func (v Vector) X() float64 { return v.Component(0) }
func (v Vector) Y() float64 { return v.Component(1) }

// Magnitude returns the length of the spatial part of the vector.
func (v Vector) Magnitude() float64 {
	if v.polar {
		return v.magnitude
	}
	switch len(v.components) {
	case 0:
		return 0
	case 1:
		return math.Abs(v.components[0])
	}
	return math.Hypot(v.components[0], v.components[1])
}

// Angle returns the direction of the spatial part in [0, 2π).
func (v Vector) Angle() float64 {
	if v.polar {
		return v.angle
	}
	switch len(v.components) {
	case 0:
		return 0
	case 1:
		if v.components[0] < 0 {
			return math.Pi
		}
		return 0
	}
	return normalizeAngle(math.Atan2(v.components[1], v.components[0]))
}

// SetComponent replaces the i-th component, invalidating the polar side.
func (v *Vector) SetComponent(i int, value float64) {
	c := v.Components()
	if i >= len(c) {
		grown := make([]float64, i+1)
		copy(grown, c)
		c = grown
	}
	c[i] = value
	*v = Vector{components: c}
}

// SetPolar replaces the vector with the given polar form, invalidating the components.
func (v *Vector) SetPolar(r, theta float64) {
	*v = FromPolar(r, theta)
}

// Scale returns the vector scaled by factor. A negative factor turns it around.
func (v Vector) Scale(factor float64) Vector {
	if v.Len() != 2 {
		c := v.Components()
		for i := range c {
			c[i] *= factor
		}
		return Vector{components: c}
	}
	angle := v.Angle()
	if factor < 0 {
		angle += math.Pi
	}
	return FromPolar(math.Abs(factor)*v.Magnitude(), angle)
}

// Add returns the component-wise sum.
func (v Vector) Add(other Vector) (Vector, error) {
	if v.Len() != other.Len() {
		return Vector{}, errors.Wrapf(ErrDimensionMismatch, "cannot add %d-vector and %d-vector", v.Len(), other.Len())
	}
	a, b := v.Components(), other.Components()
	for i := range a {
		a[i] += b[i]
	}
	return Vector{components: a}, nil
}

// Sub returns the component-wise difference.
func (v Vector) Sub(other Vector) (Vector, error) {
	if v.Len() != other.Len() {
		return Vector{}, errors.Wrapf(ErrDimensionMismatch, "cannot subtract %d-vector from %d-vector", other.Len(), v.Len())
	}
	a, b := v.Components(), other.Components()
	for i := range a {
		a[i] -= b[i]
	}
	return Vector{components: a}, nil
}

// Distance calculates the Euclidean distance between the spatial parts of two vectors.
func (v Vector) Distance(other Vector) float64 {
	return math.Hypot(v.X()-other.X(), v.Y()-other.Y())
}

// Equal reports whether both vectors have the same length and components within tol.
func (v Vector) Equal(other Vector, tol float64) bool {
	if v.Len() != other.Len() {
		return false
	}
	a, b := v.Components(), other.Components()
	for i := range a {
		if math.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}

func (v Vector) String() string {
	return fmt.Sprintf("Vector(%.3f, %.3f | r=%.3f, θ=%.3f)", v.X(), v.Y(), v.Magnitude(), v.Angle())
}
