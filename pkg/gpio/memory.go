package gpio

import (
	"fmt"
	"sync"
)

// MemoryMatrix is an in-memory matrix pin bank for tests and the
// simulator. Output pins select a strobed row; input pins read the
// pressed state of the key at (strobed row, column).
//
// Pin names follow the "rowN" / "colN" convention. Key state is set
// with Press and Release, which are safe for concurrent use with a
// running scanner.
type MemoryMatrix struct {
	mu      sync.Mutex
	pressed [][]bool
	strobed int // active row, -1 if none
	faulty  bool
}

// NewMemoryMatrix creates a released matrix with the given dimensions.
func NewMemoryMatrix(rows, cols uint8) *MemoryMatrix {
	pressed := make([][]bool, rows)
	for r := range pressed {
		pressed[r] = make([]bool, cols)
	}
	return &MemoryMatrix{pressed: pressed, strobed: -1}
}

// Press marks the key at (row, col) as held down.
func (m *MemoryMatrix) Press(row, col uint8) {
	m.setKey(row, col, true)
}

// Release marks the key at (row, col) as released.
func (m *MemoryMatrix) Release(row, col uint8) {
	m.setKey(row, col, false)
}

func (m *MemoryMatrix) setKey(row, col uint8, pressed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if int(row) < len(m.pressed) && int(col) < len(m.pressed[row]) {
		m.pressed[row][col] = pressed
	}
}

// SetFaulty makes all subsequent pin operations fail until cleared.
// Used to exercise hardware fault handling.
func (m *MemoryMatrix) SetFaulty(faulty bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faulty = faulty
}

// Input returns the input pin for a "colN" name.
func (m *MemoryMatrix) Input(name string) (InputPin, error) {
	var col int
	if _, err := fmt.Sscanf(name, "col%d", &col); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPin, name)
	}
	if col < 0 || len(m.pressed) == 0 || col >= len(m.pressed[0]) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPin, name)
	}
	return &memoryInput{m: m, col: col}, nil
}

// Output returns the output pin for a "rowN" name.
func (m *MemoryMatrix) Output(name string) (OutputPin, error) {
	var row int
	if _, err := fmt.Sscanf(name, "row%d", &row); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPin, name)
	}
	if row < 0 || row >= len(m.pressed) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPin, name)
	}
	return &memoryOutput{m: m, row: row}, nil
}

type memoryInput struct {
	m   *MemoryMatrix
	col int
}

func (p *memoryInput) Read() (bool, error) {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	if p.m.faulty {
		return false, ErrRead
	}
	if p.m.strobed < 0 {
		return false, nil
	}
	return p.m.pressed[p.m.strobed][p.col], nil
}

type memoryOutput struct {
	m   *MemoryMatrix
	row int
}

func (p *memoryOutput) Set(level bool) error {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	if p.m.faulty {
		return ErrWrite
	}
	if level {
		p.m.strobed = p.row
	} else if p.m.strobed == p.row {
		p.m.strobed = -1
	}
	return nil
}

// Compile-time interface satisfaction checks.
var (
	_ Bank      = (*MemoryMatrix)(nil)
	_ InputPin  = (*memoryInput)(nil)
	_ OutputPin = (*memoryOutput)(nil)
)
