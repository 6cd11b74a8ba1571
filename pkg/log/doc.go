// Package log provides structured event capture for the split keyboard
// synchronization core.
//
// Components report what happens on the wire and inside the scan loop as
// Events: raw link frames, validated key transitions, link/scan state
// changes and errors. Applications choose where events go by supplying a
// Logger implementation:
//
//   - NoopLogger discards everything (the default everywhere)
//   - FileLogger appends CBOR-encoded events to a capture file
//   - SlogAdapter bridges events into a log/slog logger for the console
//   - MultiLogger fans out to several of the above
//
// Capture files are streams of CBOR maps with integer keys and can be
// replayed with Reader or dumped with cmd/splitlink-log.
package log
