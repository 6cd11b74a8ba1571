// Package gpio abstracts digital input/output pins behind capability
// interfaces so the scanning core never depends on a vendor-specific
// pin type. Concrete bindings (MCU pins, shift registers, or the
// in-memory bank used by tests and the simulator) are resolved from pin
// names at configuration time by the platform layer.
package gpio
