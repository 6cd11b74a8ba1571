// Package merge combines the local settled matrix with every peer's
// cached matrix into the unified global matrix.
//
// Each source block is mapped into global coordinates by its configured
// offset (global = local + offset); validated configurations guarantee
// the blocks are disjoint, so the result is independent of the order the
// sources are folded in. The merger also diffs consecutive cycles and
// emits the transitions as key events in row-major order, which is the
// output the keycode/HID layers consume.
//
// A stale peer (link not connected, or no data within the peer timeout)
// contributes all-released cells. Keys the peer last reported pressed
// therefore produce exactly one release event and stay released until
// fresh data arrives.
package merge
