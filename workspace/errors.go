package workspace

import "github.com/pkg/errors"

var (
	// ErrCycle is returned when a re-parent would make a node its own ancestor.
	ErrCycle = errors.New("parent link would create a cycle")

	// ErrUnknownNode is returned for node IDs outside the arena.
	ErrUnknownNode = errors.New("unknown node")

	// ErrInvalidLayout is returned when a layout cannot be turned into a workspace.
	ErrInvalidLayout = errors.New("invalid layout")
)
