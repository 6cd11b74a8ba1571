package keymatrix

// Grid is a rectangular matrix of pressed booleans indexed [row][col].
// The zero cell value is "released".
type Grid [][]bool

// NewGrid returns an all-released grid with the given dimensions.
func NewGrid(rows, cols uint8) Grid {
	g := make(Grid, rows)
	for r := range g {
		g[r] = make([]bool, cols)
	}
	return g
}

// Rows returns the number of rows.
func (g Grid) Rows() int {
	return len(g)
}

// Cols returns the number of columns.
func (g Grid) Cols() int {
	if len(g) == 0 {
		return 0
	}
	return len(g[0])
}

// Get returns the cell at (row, col). Out-of-range cells read as released.
func (g Grid) Get(row, col uint8) bool {
	if int(row) >= len(g) || int(col) >= len(g[row]) {
		return false
	}
	return g[row][col]
}

// Set sets the cell at (row, col). Out-of-range coordinates are ignored.
func (g Grid) Set(row, col uint8, pressed bool) {
	if int(row) >= len(g) || int(col) >= len(g[row]) {
		return
	}
	g[row][col] = pressed
}

// Clone returns a deep copy of the grid.
func (g Grid) Clone() Grid {
	c := make(Grid, len(g))
	for r := range g {
		c[r] = make([]bool, len(g[r]))
		copy(c[r], g[r])
	}
	return c
}

// CopyFrom copies src into g. Both grids must have identical dimensions;
// mismatched cells are left untouched.
func (g Grid) CopyFrom(src Grid) {
	for r := range g {
		if r >= len(src) {
			return
		}
		copy(g[r], src[r])
	}
}

// Clear releases every cell.
func (g Grid) Clear() {
	for r := range g {
		for c := range g[r] {
			g[r][c] = false
		}
	}
}

// Equal reports whether both grids have identical dimensions and cells.
func (g Grid) Equal(other Grid) bool {
	if len(g) != len(other) {
		return false
	}
	for r := range g {
		if len(g[r]) != len(other[r]) {
			return false
		}
		for c := range g[r] {
			if g[r][c] != other[r][c] {
				return false
			}
		}
	}
	return true
}

// Any reports whether any cell is pressed.
func (g Grid) Any() bool {
	for r := range g {
		for c := range g[r] {
			if g[r][c] {
				return true
			}
		}
	}
	return false
}
