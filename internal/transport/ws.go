package transport

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// DialChannels opens the WebSocket channel endpoint for one kernel instance.
// The caller owns the returned connection and is responsible for closing it.
// The message protocol on the channel is not interpreted at this layer.
func (c *Client) DialChannels(ctx context.Context, kernelID string) (*websocket.Conn, error) {
	const op = "dial channels"

	wsURL := *c.baseURL
	switch wsURL.Scheme {
	case "https":
		wsURL.Scheme = "wss"
	default:
		wsURL.Scheme = "ws"
	}
	wsURL.Path = wsURL.Path + "/api/kernels/" + url.PathEscape(kernelID) + "/channels"

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "token "+c.token)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
	}
	conn, resp, err := dialer.DialContext(ctx, wsURL.String(), header)
	if err != nil {
		if resp != nil {
			return nil, &Error{Op: op, StatusCode: resp.StatusCode, Err: err}
		}
		return nil, &Error{Op: op, Err: err}
	}
	return conn, nil
}
