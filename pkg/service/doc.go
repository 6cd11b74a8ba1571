// Package service assembles the scan, link, and merge layers into the
// two runnable halves of a split keyboard.
//
// CentralService owns the authoritative unified matrix: it scans its
// own block (if any), drains every peer link's updates into that peer's
// cache, merges everything into global coordinates, and hands the
// per-cycle key-event diff to the registered handler in row-major
// order. PeripheralService scans and debounces only its local matrix
// and forwards validated transitions upstream; it never merges.
//
// The role is fixed by the validated configuration at construction and
// never changes at runtime. Both services are driven by Run(ctx) and
// shut down via context cancellation; peer failures reconnect in the
// background and never stall a scan cycle.
package service
