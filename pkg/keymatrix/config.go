package keymatrix

import (
	"errors"
	"fmt"
	"time"
)

// Configuration errors.
var (
	// ErrInvalidConfig indicates an invalid matrix configuration.
	// Configuration errors are fatal at startup; there is no recovery.
	ErrInvalidConfig = errors.New("invalid matrix configuration")
)

// Role selects what a firmware instance does for its whole lifetime.
// One image serves exactly one role; the role is fixed at configuration
// time, never switched at runtime.
type Role uint8

const (
	// RoleCentral aggregates the local matrix and all peer caches into
	// the unified matrix and emits key events downstream.
	RoleCentral Role = 0

	// RolePeripheral scans and debounces its own matrix only and
	// forwards validated key events to the central over its link.
	RolePeripheral Role = 1
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleCentral:
		return "CENTRAL"
	case RolePeripheral:
		return "PERIPHERAL"
	default:
		return "UNKNOWN"
	}
}

// ScanMode selects how scan cycles are triggered.
type ScanMode uint8

const (
	// ScanModeInterval runs a scan on every timer tick.
	ScanModeInterval ScanMode = 0

	// ScanModeEventTriggered additionally runs an immediate scan when
	// local or peer key activity is detected, reducing idle latency
	// and power.
	ScanModeEventTriggered ScanMode = 1
)

// String returns the scan mode name.
func (m ScanMode) String() string {
	switch m {
	case ScanModeInterval:
		return "INTERVAL"
	case ScanModeEventTriggered:
		return "EVENT_TRIGGERED"
	default:
		return "UNKNOWN"
	}
}

// Default timing parameters.
const (
	// DefaultScanInterval is the default matrix scan period.
	DefaultScanInterval = 1 * time.Millisecond

	// DefaultDebounceTicks is the default number of consecutive stable
	// samples required to settle a key.
	DefaultDebounceTicks = 5

	// DefaultPeerTimeout is the default age after which a peer cache is
	// treated as disconnected.
	DefaultPeerTimeout = 2 * time.Second
)

// PeerConfig describes one configured peer (a physically separate half).
type PeerConfig struct {
	// ID is the stable peer identifier, bound to exactly one transport.
	ID string

	// Rows and Cols are the dimensions of the peer's local matrix.
	Rows uint8
	Cols uint8

	// RowOffset and ColOffset translate the peer's local coordinates
	// into the global matrix: global = local + offset.
	RowOffset uint8
	ColOffset uint8

	// ReconnectLimit caps reconnection attempts before the peer is
	// reported persistently disconnected. Zero means retry forever.
	ReconnectLimit int
}

// Config is the immutable matrix configuration consumed by the core.
// It is loaded once at process start and validated with Validate; the
// core never parses raw configuration text itself.
type Config struct {
	// Role is the fixed role of this instance.
	Role Role

	// Rows and Cols are the global logical matrix dimensions for a
	// central, or the local matrix dimensions for a peripheral.
	Rows uint8
	Cols uint8

	// LocalRows and LocalCols are the dimensions of the central's own
	// physical matrix. Zero means the central has no local keys (dongle
	// configurations). Ignored for peripherals.
	LocalRows uint8
	LocalCols uint8

	// LocalRowOffset and LocalColOffset place the central's own matrix
	// inside the global matrix.
	LocalRowOffset uint8
	LocalColOffset uint8

	// OutputPins and InputPins are the ordered pin names of the local
	// matrix. Output pins are strobed; input pins are sampled.
	OutputPins []string
	InputPins  []string

	// ScanMode selects interval or event-triggered scanning.
	ScanMode ScanMode

	// ScanInterval is the base scan period.
	ScanInterval time.Duration

	// DebounceTicks is the number of consecutive matching samples
	// required before a key state transition is validated.
	DebounceTicks int

	// DebounceInterval is an optional minimum elapsed time before a
	// transition settles, in addition to DebounceTicks. Zero disables
	// the time criterion.
	DebounceInterval time.Duration

	// PeerTimeout is the cache age beyond which a peer is treated as
	// disconnected and its pressed keys are forced released.
	PeerTimeout time.Duration

	// Peers are the configured peers. Empty for peripherals.
	Peers []PeerConfig
}

// withDefaults returns a copy with zero timing fields defaulted.
func (c Config) withDefaults() Config {
	if c.ScanInterval == 0 {
		c.ScanInterval = DefaultScanInterval
	}
	if c.DebounceTicks == 0 {
		c.DebounceTicks = DefaultDebounceTicks
	}
	if c.PeerTimeout == 0 {
		c.PeerTimeout = DefaultPeerTimeout
	}
	return c
}

// Validate checks the configuration and returns a populated copy with
// defaults applied. Any violation wraps ErrInvalidConfig and must abort
// startup.
func (c Config) Validate() (Config, error) {
	c = c.withDefaults()

	if c.Rows == 0 || c.Cols == 0 {
		return c, fmt.Errorf("%w: matrix dimensions %dx%d", ErrInvalidConfig, c.Rows, c.Cols)
	}
	if c.Role != RoleCentral && c.Role != RolePeripheral {
		return c, fmt.Errorf("%w: unknown role %d", ErrInvalidConfig, c.Role)
	}
	if c.DebounceTicks < 1 {
		return c, fmt.Errorf("%w: debounce ticks %d", ErrInvalidConfig, c.DebounceTicks)
	}

	if c.Role == RolePeripheral {
		if len(c.Peers) != 0 {
			return c, fmt.Errorf("%w: peripheral role cannot have peers", ErrInvalidConfig)
		}
		return c, nil
	}

	// Central: the local block and every peer block must fit the global
	// matrix and must not overlap each other.
	type block struct {
		name           string
		rowOff, colOff uint8
		rows, cols     uint8
	}
	var blocks []block

	if c.LocalRows > 0 && c.LocalCols > 0 {
		blocks = append(blocks, block{
			name:   "local",
			rowOff: c.LocalRowOffset, colOff: c.LocalColOffset,
			rows: c.LocalRows, cols: c.LocalCols,
		})
	}

	seen := make(map[string]struct{}, len(c.Peers))
	for _, p := range c.Peers {
		if p.ID == "" {
			return c, fmt.Errorf("%w: peer with empty id", ErrInvalidConfig)
		}
		if _, dup := seen[p.ID]; dup {
			return c, fmt.Errorf("%w: duplicate peer id %q", ErrInvalidConfig, p.ID)
		}
		seen[p.ID] = struct{}{}
		if p.Rows == 0 || p.Cols == 0 {
			return c, fmt.Errorf("%w: peer %q has empty matrix", ErrInvalidConfig, p.ID)
		}
		blocks = append(blocks, block{
			name:   p.ID,
			rowOff: p.RowOffset, colOff: p.ColOffset,
			rows: p.Rows, cols: p.Cols,
		})
	}

	for i, b := range blocks {
		endRow := int(b.rowOff) + int(b.rows)
		endCol := int(b.colOff) + int(b.cols)
		if endRow > int(c.Rows) || endCol > int(c.Cols) {
			return c, fmt.Errorf("%w: block %q (%d+%d rows, %d+%d cols) exceeds global %dx%d matrix",
				ErrInvalidConfig, b.name, b.rowOff, b.rows, b.colOff, b.cols, c.Rows, c.Cols)
		}
		for _, o := range blocks[i+1:] {
			if overlaps(b.rowOff, b.rows, o.rowOff, o.rows) &&
				overlaps(b.colOff, b.cols, o.colOff, o.cols) {
				return c, fmt.Errorf("%w: blocks %q and %q overlap", ErrInvalidConfig, b.name, o.name)
			}
		}
	}

	return c, nil
}

// Peer returns the configuration for the given peer id.
func (c Config) Peer(id string) (PeerConfig, bool) {
	for _, p := range c.Peers {
		if p.ID == id {
			return p, true
		}
	}
	return PeerConfig{}, false
}

// overlaps reports whether the half-open ranges [aOff, aOff+aLen) and
// [bOff, bOff+bLen) intersect.
func overlaps(aOff, aLen, bOff, bLen uint8) bool {
	return int(aOff) < int(bOff)+int(bLen) && int(bOff) < int(aOff)+int(aLen)
}
