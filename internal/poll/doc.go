// Package poll provides a reusable interval-driven task scheduler with
// adaptive standby behavior.
//
// A Scheduler runs a caller-supplied refresh task on one of two intervals:
// a short active interval and a long standby interval, selected before each
// wait by a StandbyPolicy. The manager instantiates it twice (specs,
// running kernels) instead of duplicating interval logic.
//
// Semantics:
//   - Start/Stop are idempotent
//   - the first execution fires immediately on Start; the interval governs
//     the waits between executions, not the time to first data
//   - at most one task execution in flight; overlapping ticks are skipped
//   - tick failures are logged and swallowed; polling continues
//   - RefreshNow executes immediately, resets the timer, and returns the
//     task's outcome to the caller
package poll
