package log

import (
	"io"
	"path/filepath"
	"testing"
	"time"
)

func sampleEvent(peerID string, category Category) Event {
	e := Event{
		Timestamp: time.Now(),
		PeerID:    peerID,
		LinkID:    "00000000-0000-0000-0000-000000000001",
		Direction: DirectionIn,
		Layer:     LayerWire,
		Category:  category,
		LocalRole: RoleCentral,
	}
	switch category {
	case CategoryFrame:
		e.Frame = &FrameEvent{Size: 4, Data: []byte{0x00, 0x01, 0x02, 0x01}}
	case CategoryKey:
		e.Key = &KeyEventData{Row: 1, Col: 2, Pressed: true}
	case CategoryState:
		e.StateChange = &StateChangeEvent{
			Entity:   StateEntityLink,
			OldState: "CONNECTED",
			NewState: "DISCONNECTED",
			Reason:   "read error",
		}
	case CategoryError:
		e.Error = &ErrorEventData{Layer: LayerWire, Message: "framing error"}
	}
	return e
}

func TestEventRoundTrip(t *testing.T) {
	for _, cat := range []Category{CategoryFrame, CategoryKey, CategoryState, CategoryError} {
		t.Run(cat.String(), func(t *testing.T) {
			orig := sampleEvent("left", cat)

			data, err := EncodeEvent(orig)
			if err != nil {
				t.Fatalf("EncodeEvent() error = %v", err)
			}

			got, err := DecodeEvent(data)
			if err != nil {
				t.Fatalf("DecodeEvent() error = %v", err)
			}

			if got.PeerID != orig.PeerID || got.Layer != orig.Layer || got.Category != orig.Category {
				t.Errorf("decoded header mismatch: got %+v", got)
			}
			switch cat {
			case CategoryKey:
				if got.Key == nil || *got.Key != *orig.Key {
					t.Errorf("Key = %+v, want %+v", got.Key, orig.Key)
				}
			case CategoryState:
				if got.StateChange == nil || got.StateChange.NewState != "DISCONNECTED" {
					t.Errorf("StateChange = %+v", got.StateChange)
				}
			}
		})
	}
}

func TestFileLoggerAndReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.cbor")

	fl, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	fl.Log(sampleEvent("left", CategoryKey))
	fl.Log(sampleEvent("right", CategoryKey))
	fl.Log(sampleEvent("left", CategoryState))
	if err := fl.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	// Logging after close must be a no-op, not a panic.
	fl.Log(sampleEvent("left", CategoryKey))

	t.Run("ReadAll", func(t *testing.T) {
		r, err := NewReader(path)
		if err != nil {
			t.Fatalf("NewReader() error = %v", err)
		}
		defer r.Close()

		count := 0
		for {
			_, err := r.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				t.Fatalf("Next() error = %v", err)
			}
			count++
		}
		if count != 3 {
			t.Errorf("read %d events, want 3", count)
		}
	})

	t.Run("Filtered", func(t *testing.T) {
		cat := CategoryKey
		r, err := NewFilteredReader(path, Filter{PeerID: "left", Category: &cat})
		if err != nil {
			t.Fatalf("NewFilteredReader() error = %v", err)
		}
		defer r.Close()

		ev, err := r.Next()
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if ev.PeerID != "left" || ev.Category != CategoryKey {
			t.Errorf("filtered event = %+v", ev)
		}
		if _, err := r.Next(); err != io.EOF {
			t.Errorf("second Next() error = %v, want io.EOF", err)
		}
	})
}

func TestMultiLogger(t *testing.T) {
	var a, b countingLogger
	m := NewMultiLogger(&a, &b)
	m.Log(sampleEvent("left", CategoryKey))
	m.Log(sampleEvent("left", CategoryFrame))

	if a.count != 2 || b.count != 2 {
		t.Errorf("counts = %d, %d, want 2, 2", a.count, b.count)
	}
}

type countingLogger struct {
	count int
}

func (c *countingLogger) Log(Event) { c.count++ }
