package planner

import "github.com/pkg/errors"

var (
	// ErrInvalidState is returned when an operation needs a path that does not exist yet.
	ErrInvalidState = errors.New("planner is not in a valid state for this operation")

	// ErrNoPath is returned when the iteration budget runs out before the goal is reached.
	ErrNoPath = errors.New("no path found")

	// ErrUnknownAlgorithm is returned when an algorithm name cannot be parsed.
	ErrUnknownAlgorithm = errors.New("unknown algorithm")
)
