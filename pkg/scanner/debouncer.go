package scanner

import (
	"time"

	"github.com/splitlink-protocol/splitlink-go/pkg/keymatrix"
)

// debounceState tracks one coordinate's stabilization progress.
// A coordinate is idle while raw samples match the settled value,
// debouncing while a run of differing samples accumulates, and settles
// (emitting exactly one event) when the run reaches the threshold.
type debounceState struct {
	settled bool
	count   int
	since   time.Time
}

// Debouncer converts raw per-cycle samples into validated key events.
// Each coordinate owns an independent state machine, so one key's
// bounce never masks or delays another's.
type Debouncer struct {
	ticks    int
	minHold  time.Duration
	states   [][]debounceState
	settled  keymatrix.Grid
	eventBuf []keymatrix.KeyEvent
}

// NewDebouncer creates a debouncer for a rows x cols matrix. A
// transition is validated after ticks consecutive differing samples;
// if minHold is non-zero the transition must additionally have been
// held at least that long.
func NewDebouncer(rows, cols uint8, ticks int, minHold time.Duration) *Debouncer {
	if ticks < 1 {
		ticks = 1
	}
	states := make([][]debounceState, rows)
	for r := range states {
		states[r] = make([]debounceState, cols)
	}
	return &Debouncer{
		ticks:   ticks,
		minHold: minHold,
		states:  states,
		settled: keymatrix.NewGrid(rows, cols),
	}
}

// Feed processes one raw scan and returns the validated key events it
// produced, in row-major coordinate order. The returned slice is
// reused by the next Feed call.
func (d *Debouncer) Feed(raw keymatrix.Grid, now time.Time) []keymatrix.KeyEvent {
	events := d.eventBuf[:0]

	for r := range d.states {
		for c := range d.states[r] {
			st := &d.states[r][c]
			sample := raw.Get(uint8(r), uint8(c))

			if sample == st.settled {
				// Back to the settled value: the run was bounce.
				st.count = 0
				continue
			}

			if st.count == 0 {
				st.since = now
			}
			st.count++

			if st.count < d.ticks {
				continue
			}
			if d.minHold > 0 && now.Sub(st.since) < d.minHold {
				continue
			}

			st.settled = sample
			st.count = 0
			d.settled.Set(uint8(r), uint8(c), sample)
			events = append(events, keymatrix.KeyEvent{
				Coordinate: keymatrix.Coordinate{Row: uint8(r), Col: uint8(c)},
				Pressed:    sample,
				Time:       now,
			})
		}
	}

	d.eventBuf = events
	return events
}

// Settled returns the current validated key grid. The grid is owned by
// the debouncer; callers must treat it as read-only.
func (d *Debouncer) Settled() keymatrix.Grid {
	return d.settled
}

// Reset releases all keys and clears in-flight debounce state.
func (d *Debouncer) Reset() {
	for r := range d.states {
		for c := range d.states[r] {
			d.states[r][c] = debounceState{}
		}
	}
	d.settled.Clear()
}
