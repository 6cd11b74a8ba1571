// Package discovery locates the halves of a split keyboard on the
// local network via mDNS.
//
// Each simulator half advertises one `_splitlink._tcp` service whose
// TXT records carry the half's identity (peer id, role, matrix
// dimensions). A central browses for its configured peer ids and dials
// the advertised address. Discovery is a convenience for the LAN
// simulator; embedded transports (UART, BLE) locate their peer out of
// band and never use this package.
package discovery
