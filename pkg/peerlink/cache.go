package peerlink

import (
	"fmt"
	"time"

	"github.com/splitlink-protocol/splitlink-go/pkg/keymatrix"
)

// Cache is the last-known key state of one peer, in the peer's local
// coordinate space.
//
// A Cache is owned by the orchestrator goroutine and fed exclusively by
// draining the peer's update channel; it is deliberately unsynchronized.
// The merger reads it through Contribute, which applies the stale-data
// policy: a cache older than the configured timeout (or belonging to a
// disconnected link) contributes all-released cells so a vanished peer
// cannot leave keys stuck down.
type Cache struct {
	cfg        keymatrix.PeerConfig
	grid       keymatrix.Grid
	lastUpdate time.Time
	health     LinkState
}

// NewCache creates an empty cache for the given peer.
func NewCache(cfg keymatrix.PeerConfig) *Cache {
	return &Cache{
		cfg:  cfg,
		grid: keymatrix.NewGrid(cfg.Rows, cfg.Cols),
	}
}

// PeerID returns the owning peer's id.
func (c *Cache) PeerID() string {
	return c.cfg.ID
}

// Apply folds one update into the cache.
//
// Key coordinates outside the peer's configured matrix are rejected
// with an error and otherwise ignored, mirroring the defensive check a
// central must make against a misbehaving peripheral.
func (c *Cache) Apply(u Update) error {
	switch {
	case u.Key != nil:
		if int(u.Key.Row) >= int(c.cfg.Rows) || int(u.Key.Col) >= int(c.cfg.Cols) {
			return fmt.Errorf("peer %q key (%d,%d) outside %dx%d matrix",
				c.cfg.ID, u.Key.Row, u.Key.Col, c.cfg.Rows, c.cfg.Cols)
		}
		c.grid.Set(u.Key.Row, u.Key.Col, u.Key.Pressed)
		c.lastUpdate = u.Time

	case u.State != nil:
		// Auxiliary state refreshes liveness but not key state.
		c.lastUpdate = u.Time

	case u.Health != nil:
		c.health = u.Health.State
		if u.Health.State == LinkConnected {
			// Fresh session: the peripheral replays its state, so
			// drop whatever the old session left behind.
			c.grid.Clear()
			c.lastUpdate = u.Time
		}
	}
	return nil
}

// Health returns the current link state.
func (c *Cache) Health() LinkState {
	return c.health
}

// LastUpdate returns when the cache last received data.
func (c *Cache) LastUpdate() time.Time {
	return c.lastUpdate
}

// Stale reports whether the cache must be treated as disconnected:
// either the link says so, or no data has arrived within the timeout.
func (c *Cache) Stale(now time.Time, timeout time.Duration) bool {
	if c.health != LinkConnected {
		return true
	}
	if timeout <= 0 {
		return false
	}
	return now.Sub(c.lastUpdate) > timeout
}

// Contribute writes this peer's cells into the global grid, mapped by
// the configured offset. A stale cache contributes nothing, leaving
// its cells released. This is the stuck-key-prevention policy, not an
// error condition.
func (c *Cache) Contribute(dst keymatrix.Grid, now time.Time, timeout time.Duration) {
	if c.Stale(now, timeout) {
		return
	}
	for r := 0; r < int(c.cfg.Rows); r++ {
		for col := 0; col < int(c.cfg.Cols); col++ {
			if c.grid.Get(uint8(r), uint8(col)) {
				dst.Set(uint8(r)+c.cfg.RowOffset, uint8(col)+c.cfg.ColOffset, true)
			}
		}
	}
}
