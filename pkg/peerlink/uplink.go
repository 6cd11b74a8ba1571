package peerlink

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/splitlink-protocol/splitlink-go/pkg/log"
	"github.com/splitlink-protocol/splitlink-go/pkg/transport"
	"github.com/splitlink-protocol/splitlink-go/pkg/wire"
)

// UplinkOptions configures an Uplink.
type UplinkOptions struct {
	// Logger receives link/wire events. Nil disables logging.
	Logger log.Logger

	// Backoff overrides the reconnect backoff parameters.
	Backoff BackoffConfig

	// QueueDepth overrides the outgoing message queue capacity.
	QueueDepth int

	// Resync, when set, is called after every (re)connect; the
	// returned messages are sent before anything queued. A peripheral
	// uses it to replay its full pressed state so the central can
	// rebuild its cache.
	Resync func() []wire.Message
}

// Uplink is the peripheral-side link task: it carries validated local
// key events (and state echoes) to the central over one transport,
// reconnecting with backoff on failure.
type Uplink struct {
	tr      transport.Transport
	logger  log.Logger
	backoff *Backoff
	resync  func() []wire.Message
	out     chan wire.Message
	states  chan wire.PeripheralState
}

// NewUplink creates an uplink over the given transport.
func NewUplink(tr transport.Transport, opts UplinkOptions) *Uplink {
	depth := opts.QueueDepth
	if depth <= 0 {
		depth = DefaultUpdateDepth
	}
	return &Uplink{
		tr:      tr,
		logger:  log.OrNoop(opts.Logger),
		backoff: NewBackoffWithConfig(opts.Backoff),
		resync:  opts.Resync,
		out:     make(chan wire.Message, depth),
		states:  make(chan wire.PeripheralState, depth),
	}
}

// Send queues a message for transmission. It blocks only when the
// queue is full, and never past context cancellation.
func (u *Uplink) Send(ctx context.Context, msg wire.Message) error {
	select {
	case u.out <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// States returns downstream peripheral-state messages pushed by the
// central (LED state, connection state). The peripheral service drains
// this channel.
func (u *Uplink) States() <-chan wire.PeripheralState {
	return u.states
}

// Run drives the uplink until the context is cancelled. The owned
// stream is closed on every exit path.
func (u *Uplink) Run(ctx context.Context) error {
	// Message held across a reconnect because its write failed.
	var pending wire.Message

	for {
		stream, err := u.tr.Open(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			u.logError(err, "opening transport")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(u.backoff.Next()):
			}
			continue
		}

		u.backoff.Reset()
		linkID := uuid.NewString()
		u.logState(linkID, LinkConnected.String())

		enc := wire.NewEncoder(stream)

		// The reader drains central->peripheral state pushes and, by
		// returning, signals stream loss to the write loop.
		var readErr error
		readDone := make(chan struct{})
		go func() {
			defer close(readDone)
			readErr = u.readLoop(ctx, stream)
		}()

		writeErr := func() error {
			if u.resync != nil {
				for _, msg := range u.resync() {
					if err := u.write(enc, msg, linkID); err != nil {
						return err
					}
				}
			}
			if pending != nil {
				if err := u.write(enc, pending, linkID); err != nil {
					return err
				}
				pending = nil
			}

			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-readDone:
					return readErr
				case msg := <-u.out:
					if err := u.write(enc, msg, linkID); err != nil {
						pending = msg
						return err
					}
				}
			}
		}()
		stream.Close()
		<-readDone

		if ctx.Err() != nil {
			return ctx.Err()
		}
		u.logError(writeErr, "uplink stream lost")
		u.logState(linkID, LinkDisconnected.String())
	}
}

// readLoop decodes downstream messages until the stream fails. Framing
// errors are logged and skipped.
func (u *Uplink) readLoop(ctx context.Context, stream transport.Stream) error {
	dec := wire.NewDecoder(stream)
	for {
		msg, err := dec.Decode()
		if err != nil {
			if errors.Is(err, wire.ErrFraming) {
				u.logError(err, "decoding frame")
				continue
			}
			if err == io.EOF {
				return errors.New("stream closed by peer")
			}
			return err
		}
		state, ok := msg.(wire.PeripheralState)
		if !ok {
			continue
		}
		select {
		case u.states <- state:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// write encodes one message and logs the outgoing key event.
func (u *Uplink) write(enc *wire.Encoder, msg wire.Message, linkID string) error {
	if err := enc.Encode(msg); err != nil {
		return err
	}
	if key, ok := msg.(wire.Key); ok {
		u.logger.Log(log.Event{
			Timestamp: time.Now(),
			LinkID:    linkID,
			Direction: log.DirectionOut,
			Layer:     log.LayerWire,
			Category:  log.CategoryKey,
			LocalRole: log.RolePeripheral,
			Key:       &log.KeyEventData{Row: key.Row, Col: key.Col, Pressed: key.Pressed},
		})
	}
	return nil
}

func (u *Uplink) logState(linkID, newState string) {
	u.logger.Log(log.Event{
		Timestamp: time.Now(),
		LinkID:    linkID,
		Layer:     log.LayerLink,
		Category:  log.CategoryState,
		LocalRole: log.RolePeripheral,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityLink,
			NewState: newState,
		},
	})
}

func (u *Uplink) logError(err error, context string) {
	if err == nil {
		return
	}
	u.logger.Log(log.Event{
		Timestamp: time.Now(),
		Layer:     log.LayerLink,
		Category:  log.CategoryError,
		LocalRole: log.RolePeripheral,
		Error: &log.ErrorEventData{
			Layer:   log.LayerLink,
			Message: err.Error(),
			Context: context,
		},
	})
}
