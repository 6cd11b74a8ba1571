package wire

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"
)

// Codec errors.
var (
	// ErrFraming indicates malformed wire data. Framing errors are
	// non-fatal: the decoder resynchronizes on the next valid tag.
	ErrFraming = errors.New("framing error")

	// ErrInvalidTag indicates an unrecognized frame tag.
	ErrInvalidTag = fmt.Errorf("%w: invalid tag", ErrFraming)

	// ErrInvalidValue indicates a payload field outside its valid range.
	ErrInvalidValue = fmt.Errorf("%w: invalid field value", ErrFraming)

	// ErrTruncated indicates the stream ended mid-frame.
	ErrTruncated = fmt.Errorf("%w: truncated frame", ErrFraming)

	// ErrPayloadTooLarge indicates a PeripheralState payload over 255 bytes.
	ErrPayloadTooLarge = errors.New("state payload too large")
)

// EncodeMessage encodes a message into its wire frame.
func EncodeMessage(msg Message) ([]byte, error) {
	switch m := msg.(type) {
	case Key:
		pressed := byte(0)
		if m.Pressed {
			pressed = 1
		}
		return []byte{TagKey, m.Row, m.Col, pressed}, nil
	case PeripheralState:
		if len(m.Payload) > MaxStatePayload {
			return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(m.Payload))
		}
		frame := make([]byte, 0, 3+len(m.Payload))
		frame = append(frame, TagPeripheralState, m.Kind, byte(len(m.Payload)))
		frame = append(frame, m.Payload...)
		return frame, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidTag, msg)
	}
}

// Encoder writes wire frames to an underlying writer.
// Thread-safe: peripheral services write key events and state echoes
// from separate goroutines.
type Encoder struct {
	w  io.Writer
	mu sync.Mutex
}

// NewEncoder creates an encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes one message as a single frame.
func (e *Encoder) Encode(msg Message) error {
	frame, err := EncodeMessage(msg)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.w.Write(frame); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// Decoder reads wire frames from an underlying byte stream.
//
// Decode errors that wrap ErrFraming are recoverable: the decoder has
// already discarded the offending bytes and the next call resumes at
// the next recognizable tag.
type Decoder struct {
	r *bufio.Reader
}

// NewDecoder creates a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Decode reads the next message from the stream.
//
// Returns io.EOF when the stream ends cleanly between frames, an error
// wrapping ErrFraming for malformed data (recoverable), or the
// underlying transport error.
func (d *Decoder) Decode() (Message, error) {
	tag, err := d.r.ReadByte()
	if err != nil {
		return nil, err
	}

	switch tag {
	case TagKey:
		var buf [3]byte
		if err := d.readFull(buf[:]); err != nil {
			return nil, err
		}
		if buf[2] > 1 {
			d.resync()
			return nil, fmt.Errorf("%w: pressed byte %d", ErrInvalidValue, buf[2])
		}
		return Key{Row: buf[0], Col: buf[1], Pressed: buf[2] == 1}, nil

	case TagPeripheralState:
		var head [2]byte
		if err := d.readFull(head[:]); err != nil {
			return nil, err
		}
		payload := make([]byte, head[1])
		if err := d.readFull(payload); err != nil {
			return nil, err
		}
		return PeripheralState{Kind: head[0], Payload: payload}, nil

	default:
		skipped := d.resync()
		return nil, fmt.Errorf("%w: 0x%02x (%d bytes discarded)", ErrInvalidTag, tag, skipped+1)
	}
}

// readFull reads an exact payload, mapping stream end to ErrTruncated.
func (d *Decoder) readFull(buf []byte) error {
	if _, err := io.ReadFull(d.r, buf); err != nil {
		if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrTruncated
		}
		return fmt.Errorf("failed to read frame payload: %w", err)
	}
	return nil
}

// resync discards buffered bytes until the next recognizable tag.
// Only already-buffered bytes are consumed so resynchronization never
// blocks waiting for more data; a later Decode call continues from the
// first byte that looks like a tag.
func (d *Decoder) resync() int {
	skipped := 0
	for d.r.Buffered() > 0 {
		b, err := d.r.Peek(1)
		if err != nil {
			break
		}
		if b[0] == TagKey || b[0] == TagPeripheralState {
			break
		}
		_, _ = d.r.ReadByte()
		skipped++
	}
	return skipped
}
