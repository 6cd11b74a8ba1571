package peerlink

import (
	"time"

	"github.com/splitlink-protocol/splitlink-go/pkg/wire"
)

// LinkState represents the health of a peer link.
type LinkState uint8

const (
	// LinkDisconnected indicates no active stream; reconnection may be
	// in progress.
	LinkDisconnected LinkState = 0

	// LinkConnected indicates an active stream.
	LinkConnected LinkState = 1

	// LinkFailed indicates the reconnect attempt budget is exhausted.
	// The peer stays disconnected until reconfiguration.
	LinkFailed LinkState = 2
)

// String returns a human-readable state name.
func (s LinkState) String() string {
	switch s {
	case LinkDisconnected:
		return "DISCONNECTED"
	case LinkConnected:
		return "CONNECTED"
	case LinkFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Update is one message from a link task to the orchestrator.
// Exactly one of Key, State and Health is set.
type Update struct {
	// PeerID identifies the originating peer.
	PeerID string

	// Time is when the update was received.
	Time time.Time

	// Key is a validated key transition from the peer.
	Key *wire.Key

	// State is an auxiliary peripheral state message.
	State *wire.PeripheralState

	// Health is a link state transition.
	Health *HealthChange
}

// HealthChange reports a link state transition.
type HealthChange struct {
	State LinkState

	// Attempts is the number of reconnect attempts taken so far in the
	// current outage (zero when State is LinkConnected).
	Attempts int

	// Reason holds the triggering error text, if any.
	Reason string
}
