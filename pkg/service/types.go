package service

import (
	"errors"

	"github.com/splitlink-protocol/splitlink-go/pkg/keymatrix"
	"github.com/splitlink-protocol/splitlink-go/pkg/wire"
)

// Service errors.
var (
	// ErrAlreadyRunning indicates Run was called on a running service.
	ErrAlreadyRunning = errors.New("service already running")

	// ErrMissingTransport indicates a configured peer has no transport.
	ErrMissingTransport = errors.New("peer has no transport")

	// ErrRoleMismatch indicates the configuration role does not match
	// the service being constructed.
	ErrRoleMismatch = errors.New("configuration role mismatch")
)

// EventHandler consumes the ordered key-event diff of one merge cycle.
// It is called from the orchestrator goroutine; the slice is reused
// across cycles and must not be retained.
type EventHandler func(events []keymatrix.KeyEvent)

// StateHandler consumes peripheral-state pushes from the central.
type StateHandler func(state wire.PeripheralState)

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
