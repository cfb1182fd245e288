// Package mcp implements a client for the Model Context Protocol: JSON-RPC
// 2.0 over an HTTP server-sent-events transport. The service uses it to
// discover and invoke operations on the remote persistence server.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/expensesync/expensesync/internal/common"
)

// Client maintains one shared session to an MCP server. It is safe for
// concurrent use: the response stream is demultiplexed by request ID, so
// overlapping calls from different requests interleave freely. If the
// stream drops, the next call reconnects lazily; calls made while the
// server is unreachable fail explicitly.
type Client struct {
	sseURL       string
	logger       *slog.Logger
	streamClient *http.Client
	postClient   *http.Client

	// connectMu serializes connection establishment so concurrent
	// callers do not race to open duplicate streams.
	connectMu sync.Mutex

	mu        sync.Mutex
	stream    *sseStream
	pending   map[int64]chan *response
	tools     map[string]Tool
	server    serverInfo
	nextID    int64
	connected bool
}

// Config holds connection settings for the MCP client.
type Config struct {
	ServerURL      string
	ConnectTimeout time.Duration
	CallTimeout    time.Duration
}

// NewClient creates a client for the MCP server at the given SSE URL.
// No connection is made until Connect or the first call.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	callTimeout := cfg.CallTimeout
	if callTimeout == 0 {
		callTimeout = 30 * time.Second
	}

	return &Client{
		sseURL: cfg.ServerURL,
		logger: logger,
		// The stream client carries no timeout: the SSE response body
		// stays open for the lifetime of the session.
		streamClient: &http.Client{},
		postClient:   &http.Client{Timeout: callTimeout},
		pending:      make(map[int64]chan *response),
		tools:        make(map[string]Tool),
		nextID:       1,
	}
}

// Connect establishes the session: opens the SSE stream, performs the
// initialize handshake, and discovers the server's tools.
func (c *Client) Connect(ctx context.Context) error {
	c.connectMu.Lock()
	defer c.connectMu.Unlock()

	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	stream, err := openStream(ctx, c.streamClient, c.sseURL)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrNotConnected, err)
	}

	c.mu.Lock()
	c.stream = stream
	c.pending = make(map[int64]chan *response)
	c.connected = true
	c.mu.Unlock()

	go c.dispatch(stream)

	if err := c.handshake(ctx); err != nil {
		c.teardown(err)
		return fmt.Errorf("%w: %v", common.ErrNotConnected, err)
	}

	c.mu.Lock()
	server := c.server
	toolCount := len(c.tools)
	c.mu.Unlock()

	c.logger.Info("connected to MCP server",
		"server", server.Name,
		"version", server.Version,
		"tools", toolCount)

	return nil
}

// handshake runs initialize, the initialized notification, and tools/list.
func (c *Client) handshake(ctx context.Context) error {
	var initResult initializeResult
	err := c.call(ctx, "initialize", initializeParams{
		ProtocolVersion: protocolVersion,
		Capabilities:    map[string]any{},
		ClientInfo: clientInfo{
			Name:    "expensesync",
			Version: "1.0.0",
		},
	}, &initResult)
	if err != nil {
		return fmt.Errorf("initialize failed: %w", err)
	}

	if err := c.notify(ctx, "notifications/initialized"); err != nil {
		return fmt.Errorf("initialized notification failed: %w", err)
	}

	var toolsResult toolsListResult
	if err := c.call(ctx, "tools/list", map[string]any{}, &toolsResult); err != nil {
		return fmt.Errorf("tools/list failed: %w", err)
	}

	c.mu.Lock()
	c.server = initResult.ServerInfo
	c.tools = make(map[string]Tool, len(toolsResult.Tools))
	for _, tool := range toolsResult.Tools {
		c.tools[tool.Name] = tool
	}
	c.mu.Unlock()

	return nil
}

// ensureConnected reconnects lazily after a dropped stream.
func (c *Client) ensureConnected(ctx context.Context) error {
	c.mu.Lock()
	connected := c.connected
	c.mu.Unlock()

	if connected {
		return nil
	}
	return c.Connect(ctx)
}

// Connected reports whether the session is currently established.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Tools returns the discovered tool names, sorted. Empty until connected.
func (c *Client) Tools() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(c.tools))
	for name := range c.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasTool reports whether the server advertised the named tool.
func (c *Client) HasTool(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.tools[name]
	return ok
}

// CallTool invokes a named remote operation with the given arguments,
// reconnecting first if the session dropped.
func (c *Client) CallTool(ctx context.Context, name string, arguments any) (*ToolResult, error) {
	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}

	if !c.HasTool(name) {
		return nil, fmt.Errorf("%w: %q (available: %s)",
			common.ErrToolNotFound, name, strings.Join(c.Tools(), ", "))
	}

	c.logger.Debug("calling MCP tool", "tool", name)

	var result ToolResult
	if err := c.call(ctx, "tools/call", toolsCallParams{Name: name, Arguments: arguments}, &result); err != nil {
		return nil, fmt.Errorf("tool call %q failed: %w", name, err)
	}

	return &result, nil
}

// call sends a JSON-RPC request and waits for the matching response from
// the stream.
func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return common.ErrNotConnected
	}
	id := c.nextID
	c.nextID++
	ch := make(chan *response, 1)
	c.pending[id] = ch
	endpoint := c.stream.endpoint
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	req := request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(strconv.FormatInt(id, 10)),
		Method:  method,
		Params:  params,
	}

	if err := c.post(ctx, endpoint, req); err != nil {
		return err
	}

	select {
	case resp := <-ch:
		if resp == nil {
			return common.ErrNotConnected
		}
		if resp.Error != nil {
			return fmt.Errorf("server error %d: %s", resp.Error.Code, resp.Error.Message)
		}
		if out != nil {
			if err := json.Unmarshal(resp.Result, out); err != nil {
				return fmt.Errorf("failed to parse result: %w", err)
			}
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// notify sends a JSON-RPC notification; no response is expected.
func (c *Client) notify(ctx context.Context, method string) error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return common.ErrNotConnected
	}
	endpoint := c.stream.endpoint
	c.mu.Unlock()

	return c.post(ctx, endpoint, request{JSONRPC: "2.0", Method: method})
}

// post delivers one JSON-RPC message to the server's message endpoint.
func (c *Client) post(ctx context.Context, endpoint string, msg request) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(body)))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.postClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrNotConnected, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("message rejected (status %d)", resp.StatusCode)
	}
	return nil
}

// dispatch routes stream messages to waiting callers until the stream ends.
func (c *Client) dispatch(stream *sseStream) {
	for ev := range stream.events {
		if ev.name != "message" && ev.name != "" {
			continue
		}

		var resp response
		if err := json.Unmarshal([]byte(ev.data), &resp); err != nil {
			c.logger.Warn("discarding malformed stream message", "error", err)
			continue
		}
		if len(resp.ID) == 0 {
			// Server-initiated notification; nothing waits on it.
			continue
		}

		id, err := strconv.ParseInt(string(resp.ID), 10, 64)
		if err != nil {
			c.logger.Warn("discarding message with non-numeric id", "id", string(resp.ID))
			continue
		}

		// Deliver while holding the lock so teardown cannot close the
		// channel between lookup and send. The send never blocks: the
		// channel is buffered and the entry is removed after the first
		// response, so a duplicate id is dropped here.
		c.mu.Lock()
		if ch, ok := c.pending[id]; ok {
			delete(c.pending, id)
			ch <- &resp
		}
		c.mu.Unlock()
	}

	err := <-stream.errs
	c.teardown(err)
}

// teardown marks the session disconnected and fails all pending calls.
func (c *Client) teardown(cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return
	}

	c.logger.Warn("MCP session lost", "error", cause)

	c.connected = false
	if c.stream != nil {
		c.stream.close()
		c.stream = nil
	}
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

// Close shuts down the session.
func (c *Client) Close() error {
	c.teardown(fmt.Errorf("client closed"))
	return nil
}
