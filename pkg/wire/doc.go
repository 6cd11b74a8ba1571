// Package wire implements the split-link message codec.
//
// The wire format is a compact tagged binary layout designed for tiny
// MCU transports (UART, BLE characteristic streams):
//
//	┌────────┬───────────────────────────────┐
//	│ tag 1B │ variant payload               │
//	├────────┼───────────────────────────────┤
//	│ 0 Key  │ row 1B │ col 1B │ pressed 1B  │
//	│ 1 State│ kind 1B │ len 1B │ payload    │
//	└────────┴───────────────────────────────┘
//
// The codec assumes nothing about the underlying transport beyond
// byte-stream ordering. A malformed or truncated frame is reported as a
// framing error; the decoder then discards bytes until the next
// recognizable tag and resumes, so a corrupted link self-resynchronizes
// without being torn down.
package wire
