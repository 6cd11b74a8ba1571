package gpio

import "errors"

// Pin errors.
var (
	// ErrRead indicates a digital input read failure.
	ErrRead = errors.New("pin read failed")

	// ErrWrite indicates a digital output write failure.
	ErrWrite = errors.New("pin write failed")

	// ErrUnknownPin indicates a pin name with no binding.
	ErrUnknownPin = errors.New("unknown pin")
)

// InputPin is a digital input capability.
type InputPin interface {
	// Read samples the pin level. High (true) means the key at the
	// strobed intersection is pressed.
	Read() (bool, error)
}

// OutputPin is a digital output capability.
type OutputPin interface {
	// Set drives the pin high (true) or low (false).
	Set(level bool) error
}

// Bank resolves configured pin names to concrete pins.
// The platform layer supplies one at startup.
type Bank interface {
	Input(name string) (InputPin, error)
	Output(name string) (OutputPin, error)
}
