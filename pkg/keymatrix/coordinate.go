package keymatrix

import (
	"fmt"
	"time"
)

// Coordinate identifies one key position as a (row, column) pair.
// Coordinates are unique within a board's local matrix; the merger maps
// peer-local coordinates into the global matrix by adding the peer's
// configured offset.
type Coordinate struct {
	Row uint8
	Col uint8
}

// String returns the coordinate in "(row,col)" form.
func (c Coordinate) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// Offset returns the coordinate translated by the given row/column offset.
func (c Coordinate) Offset(rowOffset, colOffset uint8) Coordinate {
	return Coordinate{Row: c.Row + rowOffset, Col: c.Col + colOffset}
}

// Less reports whether c orders before other in row-major order.
// The orchestrator emits per-cycle diffs in this order.
func (c Coordinate) Less(other Coordinate) bool {
	if c.Row != other.Row {
		return c.Row < other.Row
	}
	return c.Col < other.Col
}

// KeyEvent is a validated key state transition: the output unit of the
// debouncer and of the merger's per-cycle diff.
type KeyEvent struct {
	Coordinate
	Pressed bool
	Time    time.Time
}

// String returns a short human-readable form, e.g. "(1,6) press".
func (e KeyEvent) String() string {
	action := "release"
	if e.Pressed {
		action = "press"
	}
	return fmt.Sprintf("%s %s", e.Coordinate, action)
}
