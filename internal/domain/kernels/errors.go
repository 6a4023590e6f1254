package kernels

import "errors"

var (
	// ErrDisposed is returned by every operation invoked after the manager
	// has been closed.
	ErrDisposed = errors.New("kernel manager is disposed")

	// ErrNotFound is returned by FindByID when an instance id is absent from
	// the cache even after a refresh-and-retry.
	ErrNotFound = errors.New("kernel not found")

	// ErrStartFailed wraps transport failures from StartNew. The running-set
	// cache is left untouched when a start fails.
	ErrStartFailed = errors.New("kernel start failed")

	// ErrConnectionDisposed is returned by connection operations after the
	// connection has been disposed locally or by shutdown.
	ErrConnectionDisposed = errors.New("kernel connection is disposed")
)
