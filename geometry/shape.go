package geometry

import (
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"
)

// ShapeKind enumerates the closed set of obstacle shapes.
type ShapeKind uint8

const (
	// Circle is anchored at its center.
	Circle ShapeKind = iota + 1
	// Rectangle is axis-aligned and anchored at its lower-left corner.
	Rectangle
)

func (k ShapeKind) String() string {
	switch k {
	case Circle:
		return "circle"
	case Rectangle:
		return "rectangle"
	}
	return fmt.Sprintf("shape(%d)", uint8(k))
}

// Shape describes obstacle geometry. Only the fields of its Kind are meaningful.
type Shape struct {
	Kind   ShapeKind
	Radius float64
	Width  float64
	Height float64
}

// NewCircle returns a circle of the given radius.
func NewCircle(radius float64) (Shape, error) {
	if err := checkDimension("radius", radius); err != nil {
		return Shape{}, err
	}
	return Shape{Kind: Circle, Radius: radius}, nil
}

// NewRectangle returns a width × height rectangle.
func NewRectangle(width, height float64) (Shape, error) {
	if err := checkDimension("width", width); err != nil {
		return Shape{}, err
	}
	if err := checkDimension("height", height); err != nil {
		return Shape{}, err
	}
	return Shape{Kind: Rectangle, Width: width, Height: height}, nil
}

// ParseShape builds a shape from its name and positional arguments,
// e.g. ("circle", 5) or ("rectangle", 10, 20).
func ParseShape(name string, args ...float64) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "circle":
		if len(args) != 1 {
			return Shape{}, errors.Wrapf(ErrConstruction, "circle takes 1 argument, got %d", len(args))
		}
		return NewCircle(args[0])
	case "rectangle", "rect":
		if len(args) != 2 {
			return Shape{}, errors.Wrapf(ErrConstruction, "rectangle takes 2 arguments, got %d", len(args))
		}
		return NewRectangle(args[0], args[1])
	}
	return Shape{}, errors.Wrapf(ErrConstruction, "unknown shape %q, must be circle or rectangle", name)
}

func checkDimension(name string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return errors.Wrapf(ErrConstruction, "%s must be a positive finite number, got %v", name, value)
	}
	return nil
}

// Bounds returns the axis-aligned bounding box of the shape placed at anchor.
func (s Shape) Bounds(anchor Vector) (minX, minY, maxX, maxY float64, err error) {
	x, y := anchor.X(), anchor.Y()
	switch s.Kind {
	case Circle:
		return x - s.Radius, y - s.Radius, x + s.Radius, y + s.Radius, nil
	case Rectangle:
		return x, y, x + s.Width, y + s.Height, nil
	}
	return 0, 0, 0, 0, errors.Wrapf(ErrUnsupportedShape, "bounds of %s", s.Kind)
}

func (s Shape) String() string {
	switch s.Kind {
	case Circle:
		return fmt.Sprintf("Circle(r=%g)", s.Radius)
	case Rectangle:
		return fmt.Sprintf("Rectangle(w=%g, h=%g)", s.Width, s.Height)
	}
	return s.Kind.String()
}
