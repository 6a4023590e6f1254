// Package types provides shared data structures for the kernel manager.
//
// This package defines the wire-level domain types used across all
// components, ensuring consistent shapes between the transport layer,
// caches, and observers.
//
// Core Types:
//   - KernelSpec: Static metadata for one installable kernel type
//   - SpecCollection: All installed specs plus the server default
//   - KernelModel: One running kernel instance record
//   - StartOptions: Options for starting a new instance
//
// State Enums:
//   - ExecutionState: Server-reported instance state (starting, idle, busy, dead)
//   - ConnectionStatus: Local connection handle status
//
// Equality helpers (Equal on specs, collections, and models) define the
// diffing contract used by the manager's change notifications: any field
// difference counts as a change.
//
// Example Usage:
//
//	model := types.KernelModel{
//	    ID:             "b4cf7dd1",
//	    Name:           "python3",
//	    ExecutionState: types.ExecutionIdle,
//	}
package types
