package merge

import (
	"testing"
	"time"

	"github.com/splitlink-protocol/splitlink-go/pkg/keymatrix"
	"github.com/splitlink-protocol/splitlink-go/pkg/peerlink"
	"github.com/splitlink-protocol/splitlink-go/pkg/wire"
)

// splitConfig is a 4x7 split: the central's own 4x4 block on the left,
// one peripheral's 4x3 block at column offset 4.
func splitConfig(t *testing.T) keymatrix.Config {
	t.Helper()
	cfg, err := keymatrix.Config{
		Role:           keymatrix.RoleCentral,
		Rows:           4,
		Cols:           7,
		LocalRows:      4,
		LocalCols:      4,
		LocalRowOffset: 0,
		LocalColOffset: 0,
		Peers: []keymatrix.PeerConfig{
			{ID: "right", Rows: 4, Cols: 3, RowOffset: 0, ColOffset: 4},
		},
	}.Validate()
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	return cfg
}

// dongleConfig is a 4x7 central without local keys, fed by two peers.
func dongleConfig(t *testing.T) keymatrix.Config {
	t.Helper()
	cfg, err := keymatrix.Config{
		Role: keymatrix.RoleCentral,
		Rows: 4,
		Cols: 7,
		Peers: []keymatrix.PeerConfig{
			{ID: "left", Rows: 4, Cols: 4, RowOffset: 0, ColOffset: 0},
			{ID: "right", Rows: 4, Cols: 3, RowOffset: 0, ColOffset: 4},
		},
	}.Validate()
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	return cfg
}

func connectedCache(t *testing.T, cfg keymatrix.PeerConfig, now time.Time, keys ...wire.Key) *peerlink.Cache {
	t.Helper()
	c := peerlink.NewCache(cfg)
	c.Apply(peerlink.Update{PeerID: cfg.ID, Time: now, Health: &peerlink.HealthChange{State: peerlink.LinkConnected}})
	for i := range keys {
		if err := c.Apply(peerlink.Update{PeerID: cfg.ID, Time: now, Key: &keys[i]}); err != nil {
			t.Fatalf("Apply(%+v) error = %v", keys[i], err)
		}
	}
	return c
}

func TestMergeOffsetMapping(t *testing.T) {
	now := time.Unix(100, 0)
	cfg := splitConfig(t)
	m := NewMerger(cfg)

	// Local (2,3) plus peer-local (1,2), which maps to global (1,6).
	local := keymatrix.NewGrid(4, 4)
	local.Set(2, 3, true)
	right := connectedCache(t, cfg.Peers[0], now, wire.Key{Row: 1, Col: 2, Pressed: true})

	unified, events := m.Merge(local, []*peerlink.Cache{right}, now)

	if !unified.Changed {
		t.Error("Changed = false after first pressed cycle")
	}
	if !unified.Grid.Get(2, 3) {
		t.Error("local (2,3) not in unified grid")
	}
	if !unified.Grid.Get(1, 6) {
		t.Error("peer-local (1,2) did not map to global (1,6)")
	}

	want := []keymatrix.KeyEvent{
		{Coordinate: keymatrix.Coordinate{Row: 1, Col: 6}, Pressed: true, Time: now},
		{Coordinate: keymatrix.Coordinate{Row: 2, Col: 3}, Pressed: true, Time: now},
	}
	if len(events) != len(want) {
		t.Fatalf("got %d events %v, want %d", len(events), events, len(want))
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event #%d = %v, want %v", i, events[i], want[i])
		}
	}

	// Steady state: same inputs, no diff.
	unified, events = m.Merge(local, []*peerlink.Cache{right}, now.Add(time.Millisecond))
	if unified.Changed || len(events) != 0 {
		t.Errorf("steady cycle: Changed = %v, events = %v", unified.Changed, events)
	}
}

func TestMergeOrderIndependence(t *testing.T) {
	now := time.Unix(100, 0)
	cfg := dongleConfig(t)
	noLocal := keymatrix.NewGrid(0, 0)

	build := func(caches []*peerlink.Cache) keymatrix.Grid {
		unified, _ := NewMerger(cfg).Merge(noLocal, caches, now)
		return unified.Grid.Clone()
	}

	left := connectedCache(t, cfg.Peers[0], now,
		wire.Key{Row: 0, Col: 0, Pressed: true},
		wire.Key{Row: 3, Col: 3, Pressed: true})
	right := connectedCache(t, cfg.Peers[1], now,
		wire.Key{Row: 1, Col: 2, Pressed: true})

	forward := build([]*peerlink.Cache{left, right})
	reversed := build([]*peerlink.Cache{right, left})

	if !forward.Equal(reversed) {
		t.Error("unified grid depends on peer iteration order")
	}
}

func TestMergeStalePeerReleasesKeysOnce(t *testing.T) {
	now := time.Unix(100, 0)
	cfg := splitConfig(t)
	m := NewMerger(cfg)
	noLocal := keymatrix.NewGrid(4, 4)

	right := connectedCache(t, cfg.Peers[0], now,
		wire.Key{Row: 0, Col: 0, Pressed: true},
		wire.Key{Row: 1, Col: 2, Pressed: true})

	unified, events := m.Merge(noLocal, []*peerlink.Cache{right}, now)
	if len(events) != 2 || !unified.Changed {
		t.Fatalf("press cycle: events = %v", events)
	}

	// The peer goes silent past the timeout. Its keys release in one
	// cycle, exactly one release event each.
	late := now.Add(cfg.PeerTimeout + time.Millisecond)
	unified, events = m.Merge(noLocal, []*peerlink.Cache{right}, late)
	if !unified.Changed {
		t.Fatal("Changed = false on stale transition")
	}
	if len(events) != 2 {
		t.Fatalf("stale cycle: got %d events %v, want 2 releases", len(events), events)
	}
	for _, e := range events {
		if e.Pressed {
			t.Errorf("stale cycle emitted press %v", e)
		}
	}
	if unified.Grid.Any() {
		t.Error("stale peer's keys still pressed in unified grid")
	}

	// Still stale: no further events.
	unified, events = m.Merge(noLocal, []*peerlink.Cache{right}, late.Add(time.Second))
	if unified.Changed || len(events) != 0 {
		t.Errorf("repeat stale cycle: Changed = %v, events = %v", unified.Changed, events)
	}
}

func TestMergeDiffOrderRowMajor(t *testing.T) {
	now := time.Unix(100, 0)
	cfg := dongleConfig(t)
	m := NewMerger(cfg)
	noLocal := keymatrix.NewGrid(0, 0)

	// Keys spread across both halves and rows, applied in scrambled
	// order.
	left := connectedCache(t, cfg.Peers[0], now,
		wire.Key{Row: 3, Col: 0, Pressed: true},
		wire.Key{Row: 0, Col: 2, Pressed: true})
	right := connectedCache(t, cfg.Peers[1], now,
		wire.Key{Row: 0, Col: 0, Pressed: true}, // global (0,4)
		wire.Key{Row: 2, Col: 1, Pressed: true}) // global (2,5)

	_, events := m.Merge(noLocal, []*peerlink.Cache{right, left}, now)

	if len(events) != 4 {
		t.Fatalf("got %d events %v", len(events), events)
	}
	for i := 1; i < len(events); i++ {
		if !events[i-1].Coordinate.Less(events[i].Coordinate) {
			t.Errorf("events not in row-major order: %v before %v", events[i-1], events[i])
		}
	}
}
