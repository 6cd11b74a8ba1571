// Package scanner reads the local physical key matrix.
//
// Scanner strobes the configured output pins and samples the input pins
// to produce one raw boolean grid per cycle. Raw grids bounce: a
// mechanical switch can flicker for milliseconds around a transition,
// so Debouncer runs an independent state machine per coordinate and
// emits a validated key event only after a transition has been stable
// for the configured number of consecutive samples (and, optionally, a
// minimum elapsed time).
//
// A hardware fault during a scan abandons that cycle only; the caller
// retries on the next tick.
package scanner
