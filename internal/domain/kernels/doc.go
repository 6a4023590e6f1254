// Package kernels provides client-side lifecycle management for remote
// compute kernels.
//
// The Manager is the orchestrating component. It owns a spec cache, a
// running-set cache, two poll schedulers keeping both eventually consistent
// with the server, and a registry of connections it has vended. Lifecycle
// operations (StartNew, ConnectTo, Shutdown) talk to the transport directly
// and update the caches synchronously, without waiting for the next poll.
//
// Key Components:
//   - Manager: caches, pollers, readiness, change notifications
//   - Connection: local handle bound to one kernel instance id
//   - Change channels: SpecsChanged and RunningChanged signals, notified
//     only when a refresh actually changed cache content
//
// Notification contract: diff-then-notify. Observers are invoked
// synchronously after the triggering mutation commits, in commit order per
// channel; unchanged polls emit nothing.
//
// Example Usage:
//
//	mgr := kernels.NewManager(client, cfg, logger)
//	if err := mgr.Wait(ctx); err != nil {
//	    return err
//	}
//	conn, err := mgr.StartNew(ctx, types.StartOptions{Name: "python3"})
//	defer mgr.Close()
package kernels
