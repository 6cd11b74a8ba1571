package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
)

// TCPDialer is a Transport that dials a remote half. The central side
// of a simulated wireless link uses one dialer per configured peer.
type TCPDialer struct {
	addr string

	mu     sync.Mutex
	closed bool
}

// NewTCPDialer creates a dialer for the given "host:port" address.
func NewTCPDialer(addr string) *TCPDialer {
	return &TCPDialer{addr: addr}
}

// Open dials the peer.
func (d *TCPDialer) Open(ctx context.Context) (Stream, error) {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", d.addr)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", d.addr, err)
	}
	return conn, nil
}

// Close marks the dialer closed.
func (d *TCPDialer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// TCPAcceptor is a Transport that listens for the other half to dial
// in. The peripheral side of a simulated wireless link uses one; each
// Open yields the next accepted connection.
type TCPAcceptor struct {
	listener net.Listener

	mu     sync.Mutex
	closed bool
}

// NewTCPAcceptor listens on the given "host:port" address.
func NewTCPAcceptor(addr string) (*TCPAcceptor, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}
	return &TCPAcceptor{listener: l}, nil
}

// Addr returns the bound listen address.
func (a *TCPAcceptor) Addr() net.Addr {
	return a.listener.Addr()
}

// Open returns the next accepted connection.
func (a *TCPAcceptor) Open(ctx context.Context) (Stream, error) {
	a.mu.Lock()
	closed := a.closed
	a.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	// Unblock Accept when the context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			a.listener.Close()
		case <-done:
		}
	}()

	conn, err := a.listener.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a.mu.Lock()
		closed = a.closed
		a.mu.Unlock()
		if closed {
			return nil, ErrClosed
		}
		return nil, fmt.Errorf("accepting connection: %w", err)
	}
	return conn, nil
}

// Close closes the listener. Pending and future Open calls fail.
func (a *TCPAcceptor) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()
	return a.listener.Close()
}

// Compile-time interface satisfaction checks.
var (
	_ Transport = (*TCPDialer)(nil)
	_ Transport = (*TCPAcceptor)(nil)
)
