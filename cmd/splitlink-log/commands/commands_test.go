package commands

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/splitlink-protocol/splitlink-go/pkg/log"
)

func captureEvents() []log.Event {
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	return []log.Event{
		{
			Timestamp: base,
			PeerID:    "right",
			LinkID:    "11111111-2222-3333-4444-555555555555",
			Direction: log.DirectionOut,
			Layer:     log.LayerLink,
			Category:  log.CategoryState,
			StateChange: &log.StateChangeEvent{
				Entity:   log.StateEntityLink,
				NewState: "CONNECTED",
			},
		},
		{
			Timestamp: base.Add(50 * time.Millisecond),
			PeerID:    "right",
			LinkID:    "11111111-2222-3333-4444-555555555555",
			Direction: log.DirectionIn,
			Layer:     log.LayerWire,
			Category:  log.CategoryFrame,
			Frame:     &log.FrameEvent{Size: 4, Data: []byte{0x00, 0x01, 0x02, 0x01}},
		},
		{
			Timestamp: base.Add(60 * time.Millisecond),
			PeerID:    "right",
			Direction: log.DirectionIn,
			Layer:     log.LayerMerge,
			Category:  log.CategoryKey,
			Key:       &log.KeyEventData{Row: 1, Col: 6, Pressed: true},
		},
		{
			Timestamp: base.Add(200 * time.Millisecond),
			PeerID:    "right",
			Direction: log.DirectionIn,
			Layer:     log.LayerMerge,
			Category:  log.CategoryKey,
			Key:       &log.KeyEventData{Row: 1, Col: 6, Pressed: false},
		},
		{
			Timestamp: base.Add(300 * time.Millisecond),
			Layer:     log.LayerScan,
			Category:  log.CategoryError,
			Error: &log.ErrorEventData{
				Layer:   log.LayerScan,
				Message: "reading pin: hardware failure",
				Context: "matrix scan",
			},
		},
	}
}

// writeCapture writes the standard test events to a capture file.
func writeCapture(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.klog")
	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	for _, e := range captureEvents() {
		logger.Log(e)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return path
}

func TestRunView(t *testing.T) {
	path := writeCapture(t)

	var buf bytes.Buffer
	if err := RunView(path, ViewFilter{}, &buf); err != nil {
		t.Fatalf("RunView() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"[peer:right]",
		"-> CONNECTED",
		"Key: (1,6) pressed",
		"Key: (1,6) released",
		"reading pin: hardware failure",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("view output missing %q\n%s", want, out)
		}
	}
}

func TestRunViewFiltered(t *testing.T) {
	path := writeCapture(t)

	layer := log.LayerMerge
	var buf bytes.Buffer
	if err := RunView(path, ViewFilter{Layer: &layer}, &buf); err != nil {
		t.Fatalf("RunView() error = %v", err)
	}

	out := buf.String()
	if got := strings.Count(out, "MERGE"); got != 2 {
		t.Errorf("merge events = %d, want 2\n%s", got, out)
	}
	if strings.Contains(out, "CONNECTED") {
		t.Errorf("layer filter leaked link event\n%s", out)
	}
}

func TestRunExportCSV(t *testing.T) {
	path := writeCapture(t)
	out := filepath.Join(t.TempDir(), "out.csv")

	if err := RunExport(path, "csv", out); err != nil {
		t.Fatalf("RunExport() error = %v", err)
	}

	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("reading export: %v", err)
	}
	data := string(raw)
	lines := strings.Split(strings.TrimSpace(data), "\n")
	if len(lines) != 6 { // header + 5 events
		t.Fatalf("csv lines = %d, want 6\n%s", len(lines), data)
	}
	if !strings.HasPrefix(lines[0], "timestamp,peer_id,link_id") {
		t.Errorf("csv header = %q", lines[0])
	}
	if !strings.Contains(data, "key,1,6,true") {
		t.Errorf("csv missing key row\n%s", data)
	}
}

func TestRunExportUnknownFormat(t *testing.T) {
	path := writeCapture(t)

	if err := RunExport(path, "xml", ""); err == nil {
		t.Error("RunExport() with unknown format succeeded, want error")
	}
}

func TestRunFilter(t *testing.T) {
	path := writeCapture(t)
	out := filepath.Join(t.TempDir(), "filtered.klog")

	opts := FilterOptions{
		Output:   out,
		Category: "key",
	}
	if err := RunFilter(path, opts); err != nil {
		t.Fatalf("RunFilter() error = %v", err)
	}

	reader, err := log.NewReader(out)
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	defer reader.Close()

	count := 0
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if event.Key == nil {
			t.Errorf("filtered event without key payload: %+v", event)
		}
		count++
	}
	if count != 2 {
		t.Errorf("filtered events = %d, want 2", count)
	}
}

func TestRunStats(t *testing.T) {
	path := writeCapture(t)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"Total Events: 5",
		"Key Transitions: 1 pressed, 1 released",
		"Peers: 1",
		"Link sessions: 1",
		"Errors: 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("stats output missing %q\n%s", want, out)
		}
	}
}

func TestParseFlags(t *testing.T) {
	if _, err := ParseLayerFlag("bogus"); err == nil {
		t.Error("ParseLayerFlag(bogus) succeeded, want error")
	}
	if l, err := ParseLayerFlag("MERGE"); err != nil || l != log.LayerMerge {
		t.Errorf("ParseLayerFlag(MERGE) = %v, %v", l, err)
	}
	if d, err := ParseDirectionFlag("out"); err != nil || d != log.DirectionOut {
		t.Errorf("ParseDirectionFlag(out) = %v, %v", d, err)
	}
	if c, err := ParseCategoryFlag("frame"); err != nil || c != log.CategoryFrame {
		t.Errorf("ParseCategoryFlag(frame) = %v, %v", c, err)
	}
}
