package transport

import (
	"errors"
	"fmt"
	"net/http"
)

// errServerStatus marks a 5xx response inside the breaker path.
var errServerStatus = errors.New("server error status")

// Error is a transport-level failure: network, HTTP status, breaker, or
// rate-limit. StatusCode is zero when no HTTP response was received.
type Error struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport: %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// errNotFound underlies every 404 mapping so callers can use IsNotFound.
var errNotFound = errors.New("not found")

// IsNotFound reports whether err represents a 404 from the kernel service.
// Shutdown treats this as already-gone, which makes shutdown idempotent.
func IsNotFound(err error) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.StatusCode == http.StatusNotFound
	}
	return errors.Is(err, errNotFound)
}

// wrapError normalizes any failure into a *Error carrying the operation.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var te *Error
	if errors.As(err, &te) {
		return err
	}
	return &Error{Op: op, Err: err}
}

// statusError builds a *Error for an unexpected HTTP status.
func statusError(op string, code int) error {
	underlying := fmt.Errorf("unexpected response")
	if code == http.StatusNotFound {
		underlying = errNotFound
	}
	return &Error{Op: op, StatusCode: code, Err: underlying}
}
