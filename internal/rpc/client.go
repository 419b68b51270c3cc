package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

// Client is a connection to a running Sterling daemon.
type Client struct {
	conn    net.Conn
	reader  *bufio.Reader
	writer  *bufio.Writer
	timeout time.Duration
	actor   string
}

// TryConnect attempts to dial socketPath once. It returns (nil, nil) if
// the daemon is simply not running (socket missing, connection refused),
// so callers fall back to direct ledger access rather than treating an
// absent daemon as an error.
func TryConnect(socketPath string) (*Client, error) {
	return TryConnectWithTimeout(socketPath, 200*time.Millisecond)
}

// TryConnectWithTimeout is TryConnect with an explicit dial timeout.
func TryConnectWithTimeout(socketPath string, dialTimeout time.Duration) (*Client, error) {
	network, addr, err := DiscoverEndpoint(socketPath)
	if err != nil {
		return nil, nil
	}
	conn, err := net.DialTimeout(network, addr, dialTimeout)
	if err != nil {
		return nil, nil
	}
	c := newClient(conn)
	if _, err := c.Ping(); err != nil {
		_ = conn.Close()
		return nil, nil
	}
	return c, nil
}

// DialWithRetry dials socketPath, retrying with capped exponential
// backoff until ctx is done or the daemon becomes reachable. Used by
// callers that know a daemon is starting up (e.g. just spawned) and want
// to wait rather than fall back immediately.
func DialWithRetry(ctx context.Context, socketPath string, maxElapsed time.Duration) (*Client, error) {
	var client *Client
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 20 * time.Millisecond
	bo.MaxInterval = 500 * time.Millisecond
	bo.MaxElapsedTime = maxElapsed

	err := backoff.Retry(func() error {
		c, err := TryConnectWithTimeout(socketPath, 200*time.Millisecond)
		if err != nil {
			return backoff.Permanent(err)
		}
		if c == nil {
			return ErrDaemonUnavailable
		}
		client = c
		return nil
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return nil, fmt.Errorf("rpc.DialWithRetry: %w", err)
	}
	return client, nil
}

func newClient(conn net.Conn) *Client {
	return &Client{
		conn:    conn,
		reader:  bufio.NewReader(conn),
		writer:  bufio.NewWriter(conn),
		timeout: 30 * time.Second,
	}
}

// SetActor sets the audit-trail actor attached to every request.
func (c *Client) SetActor(actor string) { c.actor = actor }

// Close closes the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

// Call sends operation with args marshaled as the request body and
// decodes the response's Data into out (if out is non-nil).
func (c *Client) Call(operation string, args any, out any) error {
	resp, err := c.call(operation, args)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("rpc: %s: %s", operation, resp.Error)
	}
	if out == nil || len(resp.Data) == 0 {
		return nil
	}
	return json.Unmarshal(resp.Data, out)
}

// CallRaw sends operation and returns the response's raw Data payload
// undecoded, for callers that must sniff the payload shape before
// choosing a destination type (e.g. packet.assemble's
// DecisionPacket-or-CertifiedFailure union).
func (c *Client) CallRaw(operation string, args any) (json.RawMessage, error) {
	resp, err := c.call(operation, args)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("rpc: %s: %s", operation, resp.Error)
	}
	return resp.Data, nil
}

func (c *Client) call(operation string, args any) (*Response, error) {
	var raw json.RawMessage
	if args != nil {
		b, err := json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("rpc.Call: marshal args: %w", err)
		}
		raw = b
	}
	req := Request{
		Operation: operation,
		Args:      raw,
		Actor:     c.actor,
		RequestID: uuid.NewString(),
	}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("rpc.Call: marshal request: %w", err)
	}

	if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, err
	}
	if _, err := c.writer.Write(append(data, '\n')); err != nil {
		return nil, fmt.Errorf("rpc.Call: write: %w", err)
	}
	if err := c.writer.Flush(); err != nil {
		return nil, fmt.Errorf("rpc.Call: flush: %w", err)
	}

	if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, err
	}
	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("rpc.Call: read: %w", err)
	}
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("rpc.Call: unmarshal response: %w", err)
	}
	return &resp, nil
}

// Ping round-trips OpPing and returns the daemon's PingResponse.
func (c *Client) Ping() (*PingResponse, error) {
	var out PingResponse
	if err := c.Call(OpPing, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health round-trips OpHealth.
func (c *Client) Health() (*HealthResponse, error) {
	var out HealthResponse
	if err := c.Call(OpHealth, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
