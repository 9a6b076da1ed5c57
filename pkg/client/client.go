// Package client implements the request/response protocol used to talk to
// a running hearthd daemon.
package client

import (
	"context"
	"encoding/json"
	"net"
	"strings"
	"time"

	herr "github.com/hearthdesk/hearthd/errors"
	"github.com/hearthdesk/hearthd/internal/server"
	"github.com/hearthdesk/hearthd/pkg/paths"
)

// The request-per-connection accept model means a connecting client can
// race another client still being served; dialing retries with a short
// backoff for a bounded total wait before giving up.
const (
	dialRetryBackoff = 50 * time.Millisecond
	dialRetryBudget  = 2 * time.Second
)

// Client issues single request/response calls against the daemon socket.
type Client struct {
	socketPath string
}

// New creates a Client against the default daemon socket.
func New() *Client {
	return &Client{socketPath: paths.SocketPath(paths.RootDir())}
}

// NewWithSocket creates a Client against an explicit socket path.
func NewWithSocket(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

// Call sends one request and returns the response data. An ok:false
// response surfaces as a structured error carrying the server's code.
func (c *Client) Call(ctx context.Context, namespace, cmd string, args map[string]interface{}) (interface{}, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, herr.Wrap(err, herr.ErrCodeServerBusy, "daemon not reachable")
	}
	defer conn.Close()

	req := server.Request{Namespace: namespace, Cmd: cmd, Args: args}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, herr.Wrap(err, herr.ErrCodeRequestInvalid, "failed to encode request")
	}
	if len(payload) > server.MaxEnvelopeSize {
		return nil, herr.New(herr.ErrCodeRequestTooLarge, "request exceeds maximum envelope size")
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	if _, err := conn.Write(payload); err != nil {
		return nil, herr.Wrap(err, herr.ErrCodeServerBusy, "failed to send request")
	}
	if uc, ok := conn.(*net.UnixConn); ok {
		_ = uc.CloseWrite()
	}

	var resp server.Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, herr.Wrap(err, herr.ErrCodeRequestInvalid, "malformed response envelope")
	}
	if !resp.OK {
		if resp.Error == "" {
			return nil, herr.New(herr.ErrCodeInternal, "request failed without error detail")
		}
		return nil, decodeError(resp.Error)
	}
	return resp.Data, nil
}

// decodeError rebuilds a structured error from the wire string, which
// carries the code as a "CODE: message" prefix.
func decodeError(wire string) *herr.HearthError {
	code, msg, ok := strings.Cut(wire, ": ")
	if !ok || code == "" || strings.ContainsFunc(code, func(r rune) bool {
		return (r < 'A' || r > 'Z') && r != '_'
	}) {
		return herr.New(herr.ErrCodeInternal, wire)
	}
	return herr.New(herr.ErrorCode(code), msg)
}

// dial connects to the daemon socket, retrying transient failures within
// the retry budget.
func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	var dialer net.Dialer
	deadline := time.Now().Add(dialRetryBudget)

	for {
		conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
		if err == nil {
			return conn, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if time.Now().After(deadline) {
			return nil, err
		}
		time.Sleep(dialRetryBackoff)
	}
}

// Ping reports whether a daemon answers on the socket.
func (c *Client) Ping(ctx context.Context) bool {
	_, err := c.Call(ctx, "backend", "get_config", nil)
	return err == nil
}
