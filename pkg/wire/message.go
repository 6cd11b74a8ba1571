package wire

import "fmt"

// Frame tags.
const (
	// TagKey identifies a Key message.
	TagKey uint8 = 0

	// TagPeripheralState identifies a PeripheralState message.
	TagPeripheralState uint8 = 1
)

// Peripheral state kinds carried by PeripheralState messages.
const (
	// StateKindLed carries the host LED state (1-byte bitmask),
	// central to peripheral.
	StateKindLed uint8 = 0

	// StateKindConnection carries the central's host connection state
	// (1 byte, 0/1), central to peripheral.
	StateKindConnection uint8 = 1
)

// MaxStatePayload is the maximum PeripheralState payload length.
const MaxStatePayload = 255

// Message is a decoded wire message: either Key or PeripheralState.
type Message interface {
	// Tag returns the frame tag of the message.
	Tag() uint8
}

// Key reports one validated key transition from a peripheral.
type Key struct {
	Row     uint8
	Col     uint8
	Pressed bool
}

// Tag returns TagKey.
func (Key) Tag() uint8 { return TagKey }

// String returns a short human-readable form.
func (k Key) String() string {
	action := "release"
	if k.Pressed {
		action = "press"
	}
	return fmt.Sprintf("Key(%d,%d %s)", k.Row, k.Col, action)
}

// PeripheralState carries auxiliary state between the halves, such as
// LED state or the central's connection state.
type PeripheralState struct {
	Kind    uint8
	Payload []byte
}

// Tag returns TagPeripheralState.
func (PeripheralState) Tag() uint8 { return TagPeripheralState }

// String returns a short human-readable form.
func (s PeripheralState) String() string {
	return fmt.Sprintf("PeripheralState(kind=%d, %d bytes)", s.Kind, len(s.Payload))
}

// Compile-time interface satisfaction checks.
var (
	_ Message = Key{}
	_ Message = PeripheralState{}
)
