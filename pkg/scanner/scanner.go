package scanner

import (
	"errors"
	"fmt"

	"github.com/splitlink-protocol/splitlink-go/pkg/gpio"
	"github.com/splitlink-protocol/splitlink-go/pkg/keymatrix"
)

// Scanner errors.
var (
	// ErrHardware indicates a local pin I/O failure. Hardware faults
	// are non-fatal: the cycle is abandoned and retried on the next
	// tick.
	ErrHardware = errors.New("hardware fault")
)

// Scanner strobes the local matrix and samples raw key states.
// One output pin per matrix row, one input pin per matrix column.
// No debounce is applied here.
type Scanner struct {
	outs []gpio.OutputPin
	ins  []gpio.InputPin
}

// New resolves the configured pin names against the bank and returns a
// scanner. The grid scanned has len(outputPins) rows and
// len(inputPins) columns.
func New(bank gpio.Bank, outputPins, inputPins []string) (*Scanner, error) {
	if len(outputPins) == 0 || len(inputPins) == 0 {
		return nil, fmt.Errorf("%w: no pins bound", keymatrix.ErrInvalidConfig)
	}

	s := &Scanner{
		outs: make([]gpio.OutputPin, len(outputPins)),
		ins:  make([]gpio.InputPin, len(inputPins)),
	}
	for i, name := range outputPins {
		pin, err := bank.Output(name)
		if err != nil {
			return nil, fmt.Errorf("%w: output pin %q: %v", keymatrix.ErrInvalidConfig, name, err)
		}
		s.outs[i] = pin
	}
	for i, name := range inputPins {
		pin, err := bank.Input(name)
		if err != nil {
			return nil, fmt.Errorf("%w: input pin %q: %v", keymatrix.ErrInvalidConfig, name, err)
		}
		s.ins[i] = pin
	}
	return s, nil
}

// Rows returns the number of scanned rows.
func (s *Scanner) Rows() int { return len(s.outs) }

// Cols returns the number of scanned columns.
func (s *Scanner) Cols() int { return len(s.ins) }

// Scan strobes every row and samples every column into dst, which must
// have at least Rows x Cols cells. On a pin failure the strobe is
// released, dst is left partially updated, and an error wrapping
// ErrHardware is returned; the caller retries next cycle.
func (s *Scanner) Scan(dst keymatrix.Grid) error {
	for r, out := range s.outs {
		if err := out.Set(true); err != nil {
			return fmt.Errorf("%w: strobing row %d: %v", ErrHardware, r, err)
		}

		for c, in := range s.ins {
			level, err := in.Read()
			if err != nil {
				// Release the strobe before abandoning the cycle.
				_ = out.Set(false)
				return fmt.Errorf("%w: sampling (%d,%d): %v", ErrHardware, r, c, err)
			}
			dst.Set(uint8(r), uint8(c), level)
		}

		if err := out.Set(false); err != nil {
			return fmt.Errorf("%w: releasing row %d: %v", ErrHardware, r, err)
		}
	}
	return nil
}
