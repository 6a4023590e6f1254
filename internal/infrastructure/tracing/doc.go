// Package tracing provides request correlation for outbound service calls.
//
// Every HTTP request to the kernel service carries an X-Request-ID header;
// the id is minted per request unless the caller put one on the context,
// which lets multi-request operations share a single correlation id in
// server-side logs.
package tracing
