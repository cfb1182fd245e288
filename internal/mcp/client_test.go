package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expensesync/expensesync/internal/common"
	"github.com/expensesync/expensesync/internal/model"
)

// fakeMCPServer implements enough of the SSE transport and the tools
// surface to exercise the client end to end.
type fakeMCPServer struct {
	srv          *httptest.Server
	events       chan []byte
	callError    bool
	callText     string
	silentCalls  bool
	dupResponses bool
}

func newFakeMCPServer(t *testing.T) *fakeMCPServer {
	t.Helper()

	f := &fakeMCPServer{
		events:   make(chan []byte, 16),
		callText: "Expenses!A42",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /sse", f.handleStream)
	mux.HandleFunc("POST /message", f.handleMessage)

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeMCPServer) url() string { return f.srv.URL + "/sse" }

func (f *fakeMCPServer) handleStream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	flusher := w.(http.Flusher)

	fmt.Fprint(w, "event: endpoint\ndata: /message\n\n")
	flusher.Flush()

	for {
		select {
		case msg := <-f.events:
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", msg)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func (f *fakeMCPServer) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     json.RawMessage `json:"id"`
		Method string          `json:"method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Notifications get acknowledged with no response message.
	if len(req.ID) == 0 {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	var result any
	switch req.Method {
	case "initialize":
		result = map[string]any{
			"protocolVersion": "2024-11-05",
			"capabilities":    map[string]any{},
			"serverInfo":      map[string]any{"name": "fake-expense-server", "version": "0.1.0"},
		}
	case "tools/list":
		result = map[string]any{
			"tools": []map[string]any{
				{
					"name":        "add_expense",
					"description": "Append an expense to the ledger",
					"inputSchema": map[string]any{"type": "object"},
				},
			},
		}
	case "tools/call":
		if f.silentCalls {
			// Accept the message but never answer it.
			w.WriteHeader(http.StatusAccepted)
			return
		}
		result = map[string]any{
			"content": []map[string]any{{"type": "text", "text": f.callText}},
			"isError": f.callError,
		}
	default:
		result = map[string]any{}
	}

	resp, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      req.ID,
		"result":  result,
	})
	f.events <- resp
	if f.dupResponses {
		f.events <- resp
	}
	w.WriteHeader(http.StatusAccepted)
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	client := NewClient(Config{ServerURL: url, CallTimeout: 5 * time.Second}, slog.Default())
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestClient_ConnectAndDiscoverTools(t *testing.T) {
	fake := newFakeMCPServer(t)
	client := newTestClient(t, fake.url())

	require.NoError(t, client.Connect(context.Background()))

	assert.True(t, client.Connected())
	assert.Equal(t, []string{"add_expense"}, client.Tools())
	assert.True(t, client.HasTool("add_expense"))
	assert.False(t, client.HasTool("delete_expense"))
}

func TestClient_CallTool(t *testing.T) {
	fake := newFakeMCPServer(t)
	client := newTestClient(t, fake.url())
	require.NoError(t, client.Connect(context.Background()))

	result, err := client.CallTool(context.Background(), "add_expense", map[string]any{"merchant": "Amazon"})
	require.NoError(t, err)

	assert.False(t, result.IsError)
	assert.Equal(t, "Expenses!A42", result.Text())
}

func TestClient_CallToolConnectsLazily(t *testing.T) {
	fake := newFakeMCPServer(t)
	client := newTestClient(t, fake.url())

	// No explicit Connect; the first call establishes the session.
	result, err := client.CallTool(context.Background(), "add_expense", nil)
	require.NoError(t, err)
	assert.Equal(t, "Expenses!A42", result.Text())
	assert.True(t, client.Connected())
}

func TestClient_UnknownTool(t *testing.T) {
	fake := newFakeMCPServer(t)
	client := newTestClient(t, fake.url())
	require.NoError(t, client.Connect(context.Background()))

	_, err := client.CallTool(context.Background(), "delete_expense", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrToolNotFound), "got: %v", err)
}

func TestClient_UnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	client := newTestClient(t, srv.URL+"/sse")

	err := client.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrNotConnected), "got: %v", err)
	assert.False(t, client.Connected())

	_, err = client.CallTool(context.Background(), "add_expense", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrNotConnected), "got: %v", err)
}

func TestClient_CloseFailsPendingCalls(t *testing.T) {
	fake := newFakeMCPServer(t)
	fake.silentCalls = true

	client := newTestClient(t, fake.url())
	require.NoError(t, client.Connect(context.Background()))

	done := make(chan error, 1)
	go func() {
		_, err := client.CallTool(context.Background(), "add_expense", nil)
		done <- err
	}()

	// Let the call register as pending before the session shuts down.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, client.Close())

	select {
	case err := <-done:
		require.Error(t, err)
		assert.True(t, errors.Is(err, common.ErrNotConnected), "got: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("pending call did not fail after close")
	}
	assert.False(t, client.Connected())
}

func TestClient_DuplicateResponseIsIgnored(t *testing.T) {
	fake := newFakeMCPServer(t)
	fake.dupResponses = true

	client := newTestClient(t, fake.url())
	require.NoError(t, client.Connect(context.Background()))

	result, err := client.CallTool(context.Background(), "add_expense", nil)
	require.NoError(t, err)
	assert.Equal(t, "Expenses!A42", result.Text())

	// The session survives the stray duplicates.
	result, err = client.CallTool(context.Background(), "add_expense", nil)
	require.NoError(t, err)
	assert.Equal(t, "Expenses!A42", result.Text())
}

func TestRecorder_Record(t *testing.T) {
	fake := newFakeMCPServer(t)
	client := newTestClient(t, fake.url())
	require.NoError(t, client.Connect(context.Background()))

	recorder := NewRecorder(client, slog.Default())

	location, err := recorder.Record(context.Background(), model.Expense{
		Merchant: "Amazon",
		Amount:   29.99,
		Currency: "EUR",
		Date:     "2024-12-06",
		Category: "tecnologia",
	})
	require.NoError(t, err)

	assert.Equal(t, "Expenses!A42", location)
	assert.Equal(t, "mcp", recorder.Name())
}

func TestRecorder_ServerRejection(t *testing.T) {
	fake := newFakeMCPServer(t)
	fake.callError = true
	fake.callText = "duplicate expense"

	client := newTestClient(t, fake.url())
	require.NoError(t, client.Connect(context.Background()))

	recorder := NewRecorder(client, slog.Default())

	_, err := recorder.Record(context.Background(), model.Expense{Merchant: "Amazon"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrPersistenceFailed), "got: %v", err)
	assert.Contains(t, err.Error(), "duplicate expense")
}

func TestResolveEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		sseURL   string
		endpoint string
		want     string
	}{
		{
			name:     "relative path",
			sseURL:   "http://localhost:8080/sse",
			endpoint: "/message?session=abc",
			want:     "http://localhost:8080/message?session=abc",
		},
		{
			name:     "absolute URL",
			sseURL:   "http://localhost:8080/sse",
			endpoint: "http://other:9090/messages",
			want:     "http://other:9090/messages",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveEndpoint(tt.sseURL, tt.endpoint)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
