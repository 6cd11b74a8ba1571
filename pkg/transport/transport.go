package transport

import (
	"context"
	"errors"
	"io"
)

// Transport errors.
var (
	// ErrClosed indicates the transport has been closed.
	ErrClosed = errors.New("transport closed")

	// ErrExhausted indicates a one-shot transport cannot reopen.
	ErrExhausted = errors.New("transport exhausted")
)

// Stream is an open byte stream to a peer. Ordering within the stream
// is guaranteed by the transport; reliability beyond that is not
// assumed by the codec.
type Stream = io.ReadWriteCloser

// Transport supplies the byte stream for one peer link. Open blocks
// until a stream is available, the context is cancelled, or the
// transport fails. Implementations must support repeated Open calls:
// the link task reopens after every stream failure.
type Transport interface {
	// Open establishes and returns the byte stream.
	Open(ctx context.Context) (Stream, error)

	// Close releases any resources held by the transport. After Close,
	// Open returns ErrClosed.
	Close() error
}

// Single wraps an already-open stream as a Transport that can be opened
// exactly once. Useful for platform layers that hand over a ready
// stream (an opened UART) and in tests.
type Single struct {
	stream Stream
	opened bool
	closed bool
}

// NewSingle creates a one-shot transport around an open stream.
func NewSingle(stream Stream) *Single {
	return &Single{stream: stream}
}

// Open returns the wrapped stream on the first call and ErrExhausted
// afterwards.
func (s *Single) Open(ctx context.Context) (Stream, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if s.opened {
		return nil, ErrExhausted
	}
	s.opened = true
	return s.stream, nil
}

// Close closes the wrapped stream if it was never handed out.
func (s *Single) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if !s.opened {
		return s.stream.Close()
	}
	return nil
}

// Compile-time interface satisfaction check.
var _ Transport = (*Single)(nil)
