// Package transport implements the REST/WebSocket client for the kernel
// service.
//
// The HTTP side wraps resty over a retryable transport, guarded by a circuit
// breaker and an optional rate limiter. Payloads decode with sonic. The
// WebSocket side dials the per-kernel channel endpoint with gorilla.
//
// Operations:
//   - ListSpecs: GET /api/kernelspecs
//   - ListRunning: GET /api/kernels
//   - StartKernel: POST /api/kernels
//   - GetKernel: GET /api/kernels/{id}
//   - ShutdownKernel: DELETE /api/kernels/{id}
//   - DialChannels: WS /api/kernels/{id}/channels
//
// Failures surface as *Error with the operation and HTTP status when one was
// received; IsNotFound distinguishes 404 so shutdown stays idempotent.
package transport
