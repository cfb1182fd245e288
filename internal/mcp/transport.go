package mcp

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// sseEvent is one server-sent event from the stream.
type sseEvent struct {
	name string
	data string
}

// sseStream holds one live server-sent-events connection. The MCP SSE
// transport works in two halves: the server pushes JSON-RPC messages over
// this stream, and the client POSTs its own messages to the endpoint the
// server announces in the first event.
type sseStream struct {
	endpoint string
	events   <-chan sseEvent
	errs     <-chan error
	cancel   context.CancelFunc
}

// openStream connects to the SSE URL, waits for the server's "endpoint"
// event, and starts a reader goroutine delivering subsequent events.
func openStream(ctx context.Context, client *http.Client, sseURL string) (*sseStream, error) {
	// The stream must outlive the caller's context, which only bounds
	// connection setup: the dial is canceled if the caller gives up, and
	// the stream is detached from the caller once the endpoint arrives.
	streamCtx, cancel := context.WithCancel(context.Background())
	detach := context.AfterFunc(ctx, cancel)

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, sseURL, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := client.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("stream request failed (status %d)", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		_ = resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("unexpected stream content type: %s", ct)
	}

	events := make(chan sseEvent, 16)
	errs := make(chan error, 1)

	go func() {
		defer close(events)
		defer func() { _ = resp.Body.Close() }()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

		var name string
		var data strings.Builder
		for scanner.Scan() {
			line := scanner.Text()

			if line == "" {
				if data.Len() > 0 || name != "" {
					select {
					case events <- sseEvent{name: name, data: data.String()}:
					case <-streamCtx.Done():
						errs <- streamCtx.Err()
						return
					}
				}
				name = ""
				data.Reset()
				continue
			}

			switch {
			case strings.HasPrefix(line, ":"):
				// Comment line used as keepalive; ignore.
			case strings.HasPrefix(line, "event:"):
				name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:"):
				if data.Len() > 0 {
					data.WriteByte('\n')
				}
				data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
			}
		}

		if err := scanner.Err(); err != nil {
			errs <- err
		} else {
			errs <- fmt.Errorf("stream closed by server")
		}
	}()

	stream := &sseStream{
		events: events,
		errs:   errs,
		cancel: cancel,
	}

	// The first event must announce where to POST our messages.
	select {
	case ev, ok := <-events:
		if !ok {
			cancel()
			return nil, fmt.Errorf("stream closed before endpoint event")
		}
		if ev.name != "endpoint" {
			cancel()
			return nil, fmt.Errorf("expected endpoint event, got %q", ev.name)
		}
		endpoint, resolveErr := resolveEndpoint(sseURL, ev.data)
		if resolveErr != nil {
			cancel()
			return nil, resolveErr
		}
		stream.endpoint = endpoint
	case <-ctx.Done():
		cancel()
		return nil, ctx.Err()
	}

	detach()
	return stream, nil
}

// resolveEndpoint resolves the endpoint URI from the endpoint event
// against the SSE URL, since servers usually announce a relative path.
func resolveEndpoint(sseURL, endpoint string) (string, error) {
	base, err := url.Parse(sseURL)
	if err != nil {
		return "", fmt.Errorf("invalid stream URL: %w", err)
	}
	ref, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	return base.ResolveReference(ref).String(), nil
}

// close tears down the stream connection.
func (s *sseStream) close() {
	s.cancel()
}
