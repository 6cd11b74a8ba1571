// Package peerlink connects one configured peer half to the central.
//
// A Link is a task that owns exactly one transport: it opens the byte
// stream, decodes wire messages, and posts updates (key transitions,
// peripheral state, link health) into its update channel. The channel
// has a single writer (the link task) and a single reader (the
// orchestrator), which drains it into the peer's Cache — no state is
// shared across goroutines.
//
// Transport failures are contained within the link: the task marks the
// peer disconnected and retries with jittered exponential backoff,
// never affecting local scanning or other peers. An optional attempt
// budget turns a hopeless link into a terminal Failed state that a
// status/LED layer can surface.
//
// Uplink is the peripheral-side counterpart: it carries validated
// local key events to the central, reconnecting the same way and
// replaying the full pressed state after every reconnect so the
// central can rebuild its cache.
//
// Both ends are bidirectional: the central pushes peripheral state
// (LED, connection) through Link.Send, and the peripheral receives it
// on Uplink.States.
package peerlink
