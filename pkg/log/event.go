package log

import "time"

// Event represents a sync-core log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// PeerID identifies the peer the event relates to, if any.
	PeerID string `cbor:"2,keyasint,omitempty"`

	// LinkID uniquely identifies one link session (UUID); a new id is
	// assigned on every successful (re)connect.
	LinkID string `cbor:"3,keyasint,omitempty"`

	// Direction indicates message flow for wire events.
	Direction Direction `cbor:"4,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"5,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"6,keyasint"`

	// LocalRole indicates whether this instance is central or peripheral.
	LocalRole Role `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"` // raw wire frames
	Key         *KeyEventData     `cbor:"11,keyasint,omitempty"` // validated key transitions
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"` // link/scan state
	Error       *ErrorEventData   `cbor:"13,keyasint,omitempty"` // errors at any layer
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which layer captured the event.
type Layer uint8

const (
	// LayerScan is the local matrix scan/debounce layer.
	LayerScan Layer = 0
	// LayerWire is the message codec layer.
	LayerWire Layer = 1
	// LayerLink is the per-peer link layer (transport + reconnect).
	LayerLink Layer = 2
	// LayerMerge is the unified matrix merge layer.
	LayerMerge Layer = 3
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerScan:
		return "SCAN"
	case LayerWire:
		return "WIRE"
	case LayerLink:
		return "LINK"
	case LayerMerge:
		return "MERGE"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryFrame indicates a raw wire frame.
	CategoryFrame Category = 0
	// CategoryKey indicates a validated key transition.
	CategoryKey Category = 1
	// CategoryState indicates a state change.
	CategoryState Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryFrame:
		return "FRAME"
	case CategoryKey:
		return "KEY"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Role indicates whether the local instance is the central or a peripheral.
type Role uint8

const (
	// RoleCentral indicates the aggregating half.
	RoleCentral Role = 0
	// RolePeripheral indicates a forwarding half.
	RolePeripheral Role = 1
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleCentral:
		return "CENTRAL"
	case RolePeripheral:
		return "PERIPHERAL"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw frame bytes at the wire layer.
type FrameEvent struct {
	// Size is the frame size in bytes including the tag byte.
	Size int `cbor:"1,keyasint"`

	// Data is the raw frame bytes.
	Data []byte `cbor:"2,keyasint,omitempty"`
}

// KeyEventData captures a validated key transition.
type KeyEventData struct {
	// Row and Col locate the key. Global coordinates at the merge
	// layer, local coordinates elsewhere.
	Row uint8 `cbor:"1,keyasint"`
	Col uint8 `cbor:"2,keyasint"`

	// Pressed is the new validated state.
	Pressed bool `cbor:"3,keyasint"`
}

// StateChangeEvent captures link and scan lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityLink indicates a peer link state change.
	StateEntityLink StateEntity = 0
	// StateEntityScan indicates a scan loop state change.
	StateEntityScan StateEntity = 1
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityLink:
		return "LINK"
	case StateEntityScan:
		return "SCAN"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
