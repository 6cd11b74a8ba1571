package merge

import (
	"time"

	"github.com/splitlink-protocol/splitlink-go/pkg/keymatrix"
	"github.com/splitlink-protocol/splitlink-go/pkg/peerlink"
)

// Unified is the result of one merge cycle: the global matrix and
// whether it differs from the previous cycle.
type Unified struct {
	// Grid is the unified global matrix. It is owned by the merger and
	// valid until the next Merge call; callers must Clone it to retain
	// it.
	Grid keymatrix.Grid

	// Changed reports whether any cell differs from the previous cycle.
	Changed bool
}

// Merger folds the local matrix and the peer caches into the unified
// global matrix and diffs consecutive cycles.
//
// A Merger is owned by the orchestrator goroutine and is not safe for
// concurrent use.
type Merger struct {
	cfg     keymatrix.Config
	unified keymatrix.Grid
	next    keymatrix.Grid
	events  []keymatrix.KeyEvent
}

// NewMerger creates a merger for the given validated configuration.
// The unified matrix starts all-released.
func NewMerger(cfg keymatrix.Config) *Merger {
	return &Merger{
		cfg:     cfg,
		unified: keymatrix.NewGrid(cfg.Rows, cfg.Cols),
		next:    keymatrix.NewGrid(cfg.Rows, cfg.Cols),
	}
}

// Merge builds the unified matrix for one cycle from the local settled
// grid and the peer caches. It returns the unified result and the key
// events for every cell that changed since the previous cycle, in
// row-major coordinate order. The returned slices are reused across
// calls.
func (m *Merger) Merge(local keymatrix.Grid, caches []*peerlink.Cache, now time.Time) (Unified, []keymatrix.KeyEvent) {
	m.next.Clear()

	for r := 0; r < local.Rows(); r++ {
		for c := 0; c < local.Cols(); c++ {
			if local.Get(uint8(r), uint8(c)) {
				m.next.Set(uint8(r)+m.cfg.LocalRowOffset, uint8(c)+m.cfg.LocalColOffset, true)
			}
		}
	}
	for _, cache := range caches {
		cache.Contribute(m.next, now, m.cfg.PeerTimeout)
	}

	m.events = m.events[:0]
	for r := uint8(0); int(r) < m.next.Rows(); r++ {
		for c := uint8(0); int(c) < m.next.Cols(); c++ {
			pressed := m.next.Get(r, c)
			if pressed == m.unified.Get(r, c) {
				continue
			}
			m.events = append(m.events, keymatrix.KeyEvent{
				Coordinate: keymatrix.Coordinate{Row: r, Col: c},
				Pressed:    pressed,
				Time:       now,
			})
		}
	}

	m.unified, m.next = m.next, m.unified
	return Unified{Grid: m.unified, Changed: len(m.events) > 0}, m.events
}

// Current returns the unified matrix from the last Merge call, owned by
// the merger.
func (m *Merger) Current() keymatrix.Grid {
	return m.unified
}
