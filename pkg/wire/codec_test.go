package wire

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestKeyRoundTrip(t *testing.T) {
	// Representative corners of the field space: row/col 0-255,
	// pressed in {0,1}.
	rows := []uint8{0, 1, 127, 254, 255}
	cols := []uint8{0, 3, 128, 255}

	for _, row := range rows {
		for _, col := range cols {
			for _, pressed := range []bool{false, true} {
				orig := Key{Row: row, Col: col, Pressed: pressed}

				frame, err := EncodeMessage(orig)
				if err != nil {
					t.Fatalf("EncodeMessage(%v) error = %v", orig, err)
				}
				if len(frame) != 4 {
					t.Fatalf("frame length = %d, want 4", len(frame))
				}

				msg, err := NewDecoder(bytes.NewReader(frame)).Decode()
				if err != nil {
					t.Fatalf("Decode(%v) error = %v", orig, err)
				}
				if got, ok := msg.(Key); !ok || got != orig {
					t.Errorf("Decode = %v, want %v", msg, orig)
				}
			}
		}
	}
}

func TestPeripheralStateRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		msg  PeripheralState
	}{
		{name: "led state", msg: PeripheralState{Kind: StateKindLed, Payload: []byte{0b101}}},
		{name: "connection state", msg: PeripheralState{Kind: StateKindConnection, Payload: []byte{1}}},
		{name: "empty payload", msg: PeripheralState{Kind: 7, Payload: []byte{}}},
		{name: "max payload", msg: PeripheralState{Kind: 2, Payload: bytes.Repeat([]byte{0xAB}, 255)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := EncodeMessage(tt.msg)
			if err != nil {
				t.Fatalf("EncodeMessage() error = %v", err)
			}

			msg, err := NewDecoder(bytes.NewReader(frame)).Decode()
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			got, ok := msg.(PeripheralState)
			if !ok {
				t.Fatalf("Decode returned %T", msg)
			}
			if got.Kind != tt.msg.Kind || !bytes.Equal(got.Payload, tt.msg.Payload) {
				t.Errorf("Decode = %v, want %v", got, tt.msg)
			}
		})
	}
}

func TestEncodePayloadTooLarge(t *testing.T) {
	_, err := EncodeMessage(PeripheralState{Kind: 0, Payload: make([]byte, 256)})
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("EncodeMessage() error = %v, want ErrPayloadTooLarge", err)
	}
}

func TestDecodeResync(t *testing.T) {
	t.Run("GarbageThenFrame", func(t *testing.T) {
		// Garbage bytes, then a valid Key frame.
		stream := append([]byte{0xFF, 0xFE, 0xFD}, 0, 2, 3, 1)
		d := NewDecoder(bytes.NewReader(stream))

		_, err := d.Decode()
		if !errors.Is(err, ErrInvalidTag) {
			t.Fatalf("first Decode() error = %v, want ErrInvalidTag", err)
		}

		msg, err := d.Decode()
		if err != nil {
			t.Fatalf("second Decode() error = %v", err)
		}
		want := Key{Row: 2, Col: 3, Pressed: true}
		if msg != want {
			t.Errorf("Decode = %v, want %v", msg, want)
		}
	})

	t.Run("InvalidPressedByte", func(t *testing.T) {
		// Key frame with pressed=7, then a valid release frame.
		stream := []byte{0, 1, 1, 7, 0, 1, 1, 0}
		d := NewDecoder(bytes.NewReader(stream))

		_, err := d.Decode()
		if !errors.Is(err, ErrInvalidValue) {
			t.Fatalf("first Decode() error = %v, want ErrInvalidValue", err)
		}
		if !errors.Is(err, ErrFraming) {
			t.Fatalf("ErrInvalidValue does not wrap ErrFraming")
		}

		msg, err := d.Decode()
		if err != nil {
			t.Fatalf("second Decode() error = %v", err)
		}
		want := Key{Row: 1, Col: 1, Pressed: false}
		if msg != want {
			t.Errorf("Decode = %v, want %v", msg, want)
		}
	})

	t.Run("Truncated", func(t *testing.T) {
		d := NewDecoder(bytes.NewReader([]byte{0, 1}))
		_, err := d.Decode()
		if !errors.Is(err, ErrTruncated) {
			t.Errorf("Decode() error = %v, want ErrTruncated", err)
		}
	})

	t.Run("TruncatedStatePayload", func(t *testing.T) {
		// Declares 4 payload bytes, provides 2.
		d := NewDecoder(bytes.NewReader([]byte{1, 0, 4, 0xAA, 0xBB}))
		_, err := d.Decode()
		if !errors.Is(err, ErrTruncated) {
			t.Errorf("Decode() error = %v, want ErrTruncated", err)
		}
	})

	t.Run("CleanEOF", func(t *testing.T) {
		d := NewDecoder(bytes.NewReader(nil))
		_, err := d.Decode()
		if err != io.EOF {
			t.Errorf("Decode() error = %v, want io.EOF", err)
		}
	})
}

func TestEncoderStream(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	msgs := []Message{
		Key{Row: 0, Col: 0, Pressed: true},
		PeripheralState{Kind: StateKindLed, Payload: []byte{0x02}},
		Key{Row: 0, Col: 0, Pressed: false},
	}
	for _, m := range msgs {
		if err := enc.Encode(m); err != nil {
			t.Fatalf("Encode(%v) error = %v", m, err)
		}
	}

	d := NewDecoder(&buf)
	for i, want := range msgs {
		got, err := d.Decode()
		if err != nil {
			t.Fatalf("Decode #%d error = %v", i, err)
		}
		switch w := want.(type) {
		case Key:
			if got != w {
				t.Errorf("Decode #%d = %v, want %v", i, got, w)
			}
		case PeripheralState:
			s, ok := got.(PeripheralState)
			if !ok || s.Kind != w.Kind || !bytes.Equal(s.Payload, w.Payload) {
				t.Errorf("Decode #%d = %v, want %v", i, got, w)
			}
		}
	}
	if _, err := d.Decode(); err != io.EOF {
		t.Errorf("trailing Decode() error = %v, want io.EOF", err)
	}
}
