// Package events provides a minimal typed observer-list primitive.
//
// A Signal multicasts payloads to dynamically registered observers:
//   - Connect(fn) returns a Token
//   - Disconnect(token) removes the observer
//   - Emit(payload) invokes observers in registration order
//
// Emission is synchronous with respect to the caller, so an observer that
// re-reads shared state during its callback sees the state the emitter just
// committed. Per-signal emissions are serialized to preserve ordering.
//
// Example Usage:
//
//	changed := events.NewSignal[int]()
//	tok := changed.Connect(func(v int) { fmt.Println(v) })
//	changed.Emit(42)
//	changed.Disconnect(tok)
package events
