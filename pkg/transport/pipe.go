package transport

import (
	"context"
	"net"
	"sync"
)

// Pair returns two connected in-memory transports. Every time both
// ends call Open, they rendezvous on a fresh synchronous pipe, so a
// link can be "unplugged" (close the stream) and reconnected (Open
// again) any number of times. Used by tests and the loopback simulator.
func Pair() (*PairEnd, *PairEnd) {
	core := &pairCore{}
	a := &PairEnd{core: core, side: 0}
	b := &PairEnd{core: core, side: 1}
	return a, b
}

// pairCore is the rendezvous point shared by both ends.
type pairCore struct {
	mu     sync.Mutex
	closed bool
	waiter *pairWaiter
}

type pairWaiter struct {
	side int
	ch   chan net.Conn
}

// PairEnd is one end of an in-memory transport pair.
type PairEnd struct {
	core *pairCore
	side int
}

// Open blocks until the other end also opens, then returns one side of
// a fresh pipe.
func (e *PairEnd) Open(ctx context.Context) (Stream, error) {
	core := e.core

	core.mu.Lock()
	if core.closed {
		core.mu.Unlock()
		return nil, ErrClosed
	}

	// Another end already waiting: complete the rendezvous.
	if w := core.waiter; w != nil && w.side != e.side {
		core.waiter = nil
		c1, c2 := net.Pipe()
		w.ch <- c1
		core.mu.Unlock()
		return c2, nil
	}

	w := &pairWaiter{side: e.side, ch: make(chan net.Conn, 1)}
	core.waiter = w
	core.mu.Unlock()

	select {
	case conn := <-w.ch:
		if conn == nil {
			// Pair closed while waiting.
			return nil, ErrClosed
		}
		return conn, nil
	case <-ctx.Done():
		core.mu.Lock()
		if core.waiter == w {
			core.waiter = nil
		}
		core.mu.Unlock()
		// The peer may have completed the rendezvous while we were
		// cancelling; close the abandoned stream.
		select {
		case conn := <-w.ch:
			conn.Close()
		default:
		}
		return nil, ctx.Err()
	}
}

// Close shuts down the pair. Both ends observe ErrClosed on Open.
func (e *PairEnd) Close() error {
	core := e.core

	core.mu.Lock()
	defer core.mu.Unlock()

	if core.closed {
		return nil
	}
	core.closed = true
	if core.waiter != nil {
		close(core.waiter.ch)
		core.waiter = nil
	}
	return nil
}

// Compile-time interface satisfaction check.
var _ Transport = (*PairEnd)(nil)
