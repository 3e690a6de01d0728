package tree

import (
	"fmt"

	"github.com/arborlore/arbor/internal/common"
)

// Position says where a moved node lands relative to the move target.
type Position string

const (
	// PositionFirstChild makes the node the first child of the target.
	PositionFirstChild Position = "first-child"
	// PositionLastChild makes the node the last child of the target.
	PositionLastChild Position = "last-child"
	// PositionLeft makes the node the sibling immediately before the target.
	PositionLeft Position = "left"
	// PositionRight makes the node the sibling immediately after the target.
	PositionRight Position = "right"
	// PositionFirstSibling makes the node the first sibling of the target.
	PositionFirstSibling Position = "first-sibling"
	// PositionLastSibling makes the node the last sibling of the target.
	PositionLastSibling Position = "last-sibling"
)

// ParsePosition validates a position string.
func ParsePosition(s string) (Position, error) {
	switch Position(s) {
	case PositionFirstChild, PositionLastChild, PositionLeft, PositionRight,
		PositionFirstSibling, PositionLastSibling:
		return Position(s), nil
	default:
		return "", fmt.Errorf("%w: %q", common.ErrInvalidPosition, s)
	}
}

// isChild reports whether the position makes the node a child of the target
// rather than a sibling.
func (p Position) isChild() bool {
	return p == PositionFirstChild || p == PositionLastChild
}
