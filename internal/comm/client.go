package comm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/vk/dashlink/internal/ctxlog"
)

const defaultDialTimeout = 10 * time.Second

// Client is a thin Go client for a dashboard server, used by tooling
// and tests that drive a session without a browser.
type Client struct {
	manager *socket.Manager
	io      *socket.Socket
}

// Dial connects to a dashboard server over websocket and waits for the
// connection to establish or the context to expire.
func Dial(ctx context.Context, rawURL, namespace string) (*Client, error) {
	logger := ctxlog.FromContext(ctx).With("url", rawURL, "namespace", namespace)
	logger.Debug("Dialing dashboard server")

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	opts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		opts.SetPath(parsedURL.Path)
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(namespace, opts)

	var isConnected atomic.Bool
	done := make(chan error, 1)

	io.On(types.EventName("connect"), func(...any) {
		isConnected.Store(true)
		logger.Info("Successfully connected", "sid", io.Id())
		done <- nil
	})
	io.On(types.EventName("connect_error"), func(errs ...any) {
		done <- errs[0].(error)
	})

	opCtx, cancel := context.WithTimeout(ctx, defaultDialTimeout)
	defer cancel()

	io.Connect()

	select {
	case <-opCtx.Done():
		io.Disconnect()
		if isConnected.Load() {
			return nil, fmt.Errorf("timed out after connecting")
		}
		return nil, fmt.Errorf("timed out while waiting for initial connection")
	case err := <-done:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("connection failed: %w", err)
		}
	}

	return &Client{manager: manager, io: io}, nil
}

// OnDocument registers a handler for document snapshots pushed by the
// server. Malformed snapshots are dropped.
func (c *Client) OnDocument(fn func(DocumentPayload)) {
	c.io.On(types.EventName("document"), func(data ...any) {
		if len(data) == 0 {
			return
		}
		raw, err := json.Marshal(data[0])
		if err != nil {
			return
		}
		var doc DocumentPayload
		if err := json.Unmarshal(raw, &doc); err != nil {
			return
		}
		fn(doc)
	})
}

// SendPatch emits a property update for one model of the current
// session.
func (c *Client) SendPatch(p Patch) error {
	return c.io.Emit("patch", p)
}

// Close disconnects the client.
func (c *Client) Close() {
	c.io.Disconnect()
}
