package peerlink

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/splitlink-protocol/splitlink-go/pkg/keymatrix"
	"github.com/splitlink-protocol/splitlink-go/pkg/log"
	"github.com/splitlink-protocol/splitlink-go/pkg/transport"
	"github.com/splitlink-protocol/splitlink-go/pkg/wire"
)

// DefaultUpdateDepth is the default update channel capacity.
// Deep enough to absorb a burst of key events between two scan cycles.
const DefaultUpdateDepth = 64

// LinkOptions configures a Link.
type LinkOptions struct {
	// Logger receives link/wire events. Nil disables logging.
	Logger log.Logger

	// Backoff overrides the reconnect backoff parameters.
	Backoff BackoffConfig

	// UpdateDepth overrides the update channel capacity.
	UpdateDepth int
}

// Link is the task owning one peer's transport. It decodes incoming
// wire messages and posts updates into its channel; the orchestrator
// is the only reader.
type Link struct {
	peer    keymatrix.PeerConfig
	tr      transport.Transport
	logger  log.Logger
	backoff *Backoff
	updates chan Update
	out     chan wire.Message
}

// NewLink creates a link task for the given peer and transport.
// Call Run to start it.
func NewLink(peer keymatrix.PeerConfig, tr transport.Transport, opts LinkOptions) *Link {
	depth := opts.UpdateDepth
	if depth <= 0 {
		depth = DefaultUpdateDepth
	}
	return &Link{
		peer:    peer,
		tr:      tr,
		logger:  log.OrNoop(opts.Logger),
		backoff: NewBackoffWithConfig(opts.Backoff),
		updates: make(chan Update, depth),
		out:     make(chan wire.Message, depth),
	}
}

// PeerID returns the configured peer id.
func (l *Link) PeerID() string {
	return l.peer.ID
}

// Updates returns the channel the orchestrator drains.
func (l *Link) Updates() <-chan Update {
	return l.updates
}

// Send queues a message for transmission to the peer. Messages queued
// while the link is down are sent once it reconnects. It blocks only
// when the queue is full, and never past context cancellation.
func (l *Link) Send(ctx context.Context, msg wire.Message) error {
	select {
	case l.out <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drives the link until the context is cancelled or the reconnect
// attempt budget is exhausted. The owned stream is closed on every
// exit path. Run never returns a transport error: link failures are
// contained here and reported as health updates.
func (l *Link) Run(ctx context.Context) error {
	for {
		stream, err := l.tr.Open(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, transport.ErrClosed) {
				l.postHealth(ctx, LinkFailed, err.Error())
				return nil
			}

			attempts := l.backoff.Attempts() + 1
			if l.peer.ReconnectLimit > 0 && attempts > l.peer.ReconnectLimit {
				// Budget exhausted: persistently disconnected.
				l.postHealth(ctx, LinkFailed, err.Error())
				return nil
			}

			l.logError(err, "opening transport")
			delay := l.backoff.Next()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			continue
		}

		l.backoff.Reset()
		linkID := uuid.NewString()
		l.logState(linkID, "", LinkConnected.String(), "")
		l.postHealth(ctx, LinkConnected, "")

		stop := make(chan struct{})
		writeDone := make(chan struct{})
		go func() {
			defer close(writeDone)
			l.writeLoop(ctx, stream, stop)
		}()

		readErr := l.readLoop(ctx, stream, linkID)
		stream.Close()
		close(stop)
		<-writeDone

		if ctx.Err() != nil {
			return ctx.Err()
		}

		reason := ""
		if readErr != nil {
			reason = readErr.Error()
		}
		l.logState(linkID, LinkConnected.String(), LinkDisconnected.String(), reason)
		l.postHealth(ctx, LinkDisconnected, reason)
	}
}

// readLoop decodes messages until the stream fails or the context is
// cancelled. Framing errors are logged and skipped: the decoder has
// already resynchronized.
func (l *Link) readLoop(ctx context.Context, stream transport.Stream, linkID string) error {
	dec := wire.NewDecoder(stream)

	for {
		msg, err := dec.Decode()
		if err != nil {
			if errors.Is(err, wire.ErrFraming) {
				l.logError(err, "decoding frame")
				continue
			}
			if err == io.EOF {
				return errors.New("stream closed by peer")
			}
			return err
		}

		u := Update{PeerID: l.peer.ID, Time: time.Now()}
		switch m := msg.(type) {
		case wire.Key:
			key := m
			u.Key = &key
			l.logger.Log(log.Event{
				Timestamp: u.Time,
				PeerID:    l.peer.ID,
				LinkID:    linkID,
				Direction: log.DirectionIn,
				Layer:     log.LayerWire,
				Category:  log.CategoryKey,
				Key:       &log.KeyEventData{Row: m.Row, Col: m.Col, Pressed: m.Pressed},
			})
		case wire.PeripheralState:
			state := m
			u.State = &state
		default:
			continue
		}

		select {
		case l.updates <- u:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// writeLoop encodes queued outgoing messages onto the stream until the
// stream fails or the context is cancelled. A write failure only stops
// the writer; the read loop observes the same broken stream and drives
// the reconnect.
func (l *Link) writeLoop(ctx context.Context, stream transport.Stream, stop <-chan struct{}) {
	enc := wire.NewEncoder(stream)
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case msg := <-l.out:
			if err := enc.Encode(msg); err != nil {
				l.logError(err, "writing frame")
				return
			}
		}
	}
}

// postHealth posts a health update without ever blocking forever.
func (l *Link) postHealth(ctx context.Context, state LinkState, reason string) {
	u := Update{
		PeerID: l.peer.ID,
		Time:   time.Now(),
		Health: &HealthChange{
			State:    state,
			Attempts: l.backoff.Attempts(),
			Reason:   reason,
		},
	}
	select {
	case l.updates <- u:
	case <-ctx.Done():
	}
}

func (l *Link) logState(linkID, oldState, newState, reason string) {
	l.logger.Log(log.Event{
		Timestamp: time.Now(),
		PeerID:    l.peer.ID,
		LinkID:    linkID,
		Layer:     log.LayerLink,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityLink,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}

func (l *Link) logError(err error, context string) {
	l.logger.Log(log.Event{
		Timestamp: time.Now(),
		PeerID:    l.peer.ID,
		Layer:     log.LayerLink,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerLink,
			Message: err.Error(),
			Context: context,
		},
	})
}
