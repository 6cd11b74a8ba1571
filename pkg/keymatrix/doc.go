// Package keymatrix defines the core data model of the split keyboard
// synchronization layer: key coordinates, validated key events, boolean
// key grids, and the immutable matrix configuration shared by the
// scanner, peer links, merger and orchestrator.
//
// A Config is produced once at startup (typically by pkg/config from a
// YAML file), validated with Validate, and never mutated afterwards.
// Validation enforces the global invariants of a split layout:
//
//   - every peer's offset-adjusted coordinate range fits inside the
//     global matrix
//   - no two peer ranges overlap, and none overlaps the local block
//
// Violations are configuration errors and abort startup.
package keymatrix
