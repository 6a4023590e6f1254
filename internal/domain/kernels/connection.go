package kernels

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/corelinkhq/kernelmgr/internal/shared/id"
	"github.com/corelinkhq/kernelmgr/internal/shared/types"
)

// ChannelDialer opens the WebSocket channel endpoint for a kernel instance.
// Implemented by the transport client.
type ChannelDialer interface {
	DialChannels(ctx context.Context, kernelID string) (*websocket.Conn, error)
}

// Connection is a local handle bound to one running kernel instance.
// Several connections may target the same instance id; the backend process
// is shared, the handles are independent.
//
// A connection is vended by StartNew or ConnectTo. Its message protocol is
// not interpreted here; only the lifecycle surface is managed.
type Connection struct {
	id       id.ConnectionID
	clientID string
	model    types.KernelModel

	mgr    *Manager
	dialer ChannelDialer

	mu       sync.Mutex
	status   types.ConnectionStatus
	sock     *websocket.Conn
	disposed bool
	done     chan struct{}
}

func newConnection(mgr *Manager, dialer ChannelDialer, model types.KernelModel) *Connection {
	return &Connection{
		id:       id.NewConnectionID(),
		clientID: uuid.New().String(),
		model:    model,
		mgr:      mgr,
		dialer:   dialer,
		status:   types.StatusUnknown,
		done:     make(chan struct{}),
	}
}

// ID returns the local handle id (conn_* ULID).
func (c *Connection) ID() id.ConnectionID {
	return c.id
}

// ClientID returns the client session id sent to the server when channels
// are attached.
func (c *Connection) ClientID() string {
	return c.clientID
}

// Model returns the instance record this connection was vended with.
func (c *Connection) Model() types.KernelModel {
	return c.model
}

// KernelID returns the bound instance id.
func (c *Connection) KernelID() string {
	return c.model.ID
}

// Status returns the connection-local status.
func (c *Connection) Status() types.ConnectionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// IsDisposed reports whether the connection has been disposed, locally or by
// an observed shutdown.
func (c *Connection) IsDisposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed
}

// Done returns a channel closed when the connection is disposed.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Connect attaches the WebSocket channel to the kernel instance. Optional:
// a connection is fully usable for lifecycle tracking without channels.
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrConnectionDisposed
	}
	if c.sock != nil {
		c.mu.Unlock()
		return nil
	}
	if c.dialer == nil {
		c.mu.Unlock()
		return errors.New("no channel dialer configured")
	}
	c.status = types.StatusStarting
	c.mu.Unlock()

	sock, err := c.dialer.DialChannels(ctx, c.model.ID)
	if err != nil {
		c.mu.Lock()
		c.status = types.StatusUnknown
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	if c.disposed {
		// Disposed while dialing; drop the socket.
		c.mu.Unlock()
		sock.Close()
		return ErrConnectionDisposed
	}
	c.sock = sock
	c.status = types.StatusIdle
	c.mu.Unlock()

	go c.watch(sock)
	return nil
}

// watch drains the socket until it closes and flips the status to dead.
// Message contents are not interpreted.
func (c *Connection) watch(sock *websocket.Conn) {
	for {
		if _, _, err := sock.ReadMessage(); err != nil {
			break
		}
	}

	c.mu.Lock()
	if c.sock == sock && !c.disposed {
		c.status = types.StatusDead
		c.sock = nil
	}
	c.mu.Unlock()
}

// Close disposes the connection locally: the channel socket is closed and
// the handle deregisters from its manager. The remote instance is not
// touched; use Manager.Shutdown for that. Idempotent.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return nil
	}
	c.disposed = true
	c.status = types.StatusDead
	sock := c.sock
	c.sock = nil
	close(c.done)
	c.mu.Unlock()

	if sock != nil {
		sock.Close()
	}
	if c.mgr != nil {
		c.mgr.deregister(c)
	}
	return nil
}

// markDisposed is invoked by the manager when the backing instance is
// confirmed gone (shutdown, or disappearance observed by polling). It does
// not call back into the manager; the registry entry is cleaned up by the
// caller.
func (c *Connection) markDisposed() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	c.status = types.StatusDead
	sock := c.sock
	c.sock = nil
	close(c.done)
	c.mu.Unlock()

	if sock != nil {
		sock.Close()
	}
}
