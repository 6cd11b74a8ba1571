package peerlink

import (
	"testing"
	"time"

	"github.com/splitlink-protocol/splitlink-go/pkg/keymatrix"
	"github.com/splitlink-protocol/splitlink-go/pkg/wire"
)

func rightPeer() keymatrix.PeerConfig {
	// Scenario B's peer B: 4x3 local matrix at offset (0,4).
	return keymatrix.PeerConfig{ID: "right", Rows: 4, Cols: 3, RowOffset: 0, ColOffset: 4}
}

func connectedAt(c *Cache, at time.Time) {
	c.Apply(Update{PeerID: c.PeerID(), Time: at, Health: &HealthChange{State: LinkConnected}})
}

func TestCacheContributeOffset(t *testing.T) {
	now := time.Unix(100, 0)
	c := NewCache(rightPeer())
	connectedAt(c, now)

	// Peer B reports local Key(1,2,true).
	key := wire.Key{Row: 1, Col: 2, Pressed: true}
	if err := c.Apply(Update{PeerID: "right", Time: now, Key: &key}); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	dst := keymatrix.NewGrid(4, 7)
	c.Contribute(dst, now, time.Second)

	// The unified cell (1,6) becomes pressed.
	if !dst.Get(1, 6) {
		t.Error("global (1,6) not pressed")
	}
	pressedCount := 0
	for r := uint8(0); r < 4; r++ {
		for col := uint8(0); col < 7; col++ {
			if dst.Get(r, col) {
				pressedCount++
			}
		}
	}
	if pressedCount != 1 {
		t.Errorf("%d cells pressed, want 1", pressedCount)
	}
}

func TestCacheRejectsOutOfRangeKey(t *testing.T) {
	now := time.Unix(100, 0)
	c := NewCache(rightPeer())
	connectedAt(c, now)

	key := wire.Key{Row: 1, Col: 3, Pressed: true} // col 3 outside 4x3
	if err := c.Apply(Update{PeerID: "right", Time: now, Key: &key}); err == nil {
		t.Fatal("Apply() accepted out-of-range key")
	}

	dst := keymatrix.NewGrid(4, 7)
	c.Contribute(dst, now, time.Second)
	if dst.Any() {
		t.Error("rejected key leaked into the grid")
	}
}

func TestCacheStaleness(t *testing.T) {
	now := time.Unix(100, 0)
	timeout := 500 * time.Millisecond

	c := NewCache(rightPeer())

	t.Run("DisconnectedByDefault", func(t *testing.T) {
		if !c.Stale(now, timeout) {
			t.Error("new cache should be stale until the link connects")
		}
	})

	connectedAt(c, now)
	key := wire.Key{Row: 0, Col: 0, Pressed: true}
	c.Apply(Update{PeerID: "right", Time: now, Key: &key})

	t.Run("FreshWithinTimeout", func(t *testing.T) {
		if c.Stale(now.Add(timeout), timeout) {
			t.Error("cache stale exactly at timeout boundary")
		}
	})

	t.Run("StaleAfterTimeout", func(t *testing.T) {
		late := now.Add(timeout + time.Millisecond)
		if !c.Stale(late, timeout) {
			t.Error("cache not stale past timeout")
		}
		dst := keymatrix.NewGrid(4, 7)
		c.Contribute(dst, late, timeout)
		if dst.Any() {
			t.Error("stale cache contributed pressed keys")
		}
	})

	t.Run("DisconnectForcesStale", func(t *testing.T) {
		c.Apply(Update{PeerID: "right", Time: now, Health: &HealthChange{State: LinkDisconnected}})
		if !c.Stale(now, timeout) {
			t.Error("disconnected cache not stale")
		}
	})
}

func TestCacheReconnectClearsState(t *testing.T) {
	now := time.Unix(100, 0)
	c := NewCache(rightPeer())
	connectedAt(c, now)

	key := wire.Key{Row: 2, Col: 1, Pressed: true}
	c.Apply(Update{PeerID: "right", Time: now, Key: &key})

	// Link drops and comes back: the old session's keys are gone until
	// the peripheral replays them.
	c.Apply(Update{PeerID: "right", Time: now, Health: &HealthChange{State: LinkDisconnected}})
	later := now.Add(time.Second)
	connectedAt(c, later)

	dst := keymatrix.NewGrid(4, 7)
	c.Contribute(dst, later, time.Second)
	if dst.Any() {
		t.Error("stale keys survived reconnect")
	}

	// Liveness refresh from auxiliary state messages.
	state := wire.PeripheralState{Kind: wire.StateKindLed, Payload: []byte{1}}
	c.Apply(Update{PeerID: "right", Time: later.Add(time.Second), State: &state})
	if got := c.LastUpdate(); !got.Equal(later.Add(time.Second)) {
		t.Errorf("LastUpdate = %v", got)
	}
}
