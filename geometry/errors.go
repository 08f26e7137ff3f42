package geometry

import "github.com/pkg/errors"

var (
	// ErrConstruction is returned when a shape or vector is built from malformed arguments.
	ErrConstruction = errors.New("invalid construction arguments")

	// ErrDimensionMismatch is returned by vector arithmetic across unequal lengths.
	ErrDimensionMismatch = errors.New("vector dimensions do not match")

	// ErrUnsupportedShape is returned when a predicate has no rule for the shapes involved.
	ErrUnsupportedShape = errors.New("unsupported shape")
)
