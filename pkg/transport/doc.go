// Package transport abstracts the byte streams connecting keyboard
// halves.
//
// The synchronization core is agnostic to what carries the bytes: a
// UART, a BLE characteristic stream, an I2C packet channel, or the TCP
// and in-memory implementations provided here for the simulator and
// tests. A Transport knows how to (re)open its stream; the owning peer
// link task drives reconnection, so Open may be called many times over
// the life of a link.
package transport
