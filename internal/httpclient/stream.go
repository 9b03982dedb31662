package httpclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// sseDone is the sentinel fragment that terminates an SSE body.
const sseDone = "[DONE]"

// Event is one item of a streamed response. Exactly one of Data or Err is
// set. Err marks a malformed fragment; the stream itself continues unless
// the connection fails.
type Event struct {
	Data []byte
	Err  error
}

// Stream executes a streaming request and returns a finite,
// single-consumption channel of events. The body is parsed as server-sent,
// newline-delimited "data: " fragments terminated by [DONE] or stream close.
//
// Cancelling ctx aborts the HTTP exchange and closes the channel without a
// trailing error; buffered-but-undelivered fragments are discarded. The
// channel is not restartable and the connection is released when it closes.
func Stream(ctx context.Context, client HTTPClient, method, url string, headers map[string]string, body any) (<-chan Event, error) {
	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stream request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode,
			Body:       respBody,
			URL:        url,
			RetryAfter: retryAfter(resp.Header),
		}
	}

	ch := make(chan Event)
	go func() {
		defer close(ch)
		defer func() {
			_ = resp.Body.Close()
		}()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := scanner.Text()
			if line == "" || strings.HasPrefix(line, ":") {
				continue
			}
			if !strings.HasPrefix(line, "data: ") {
				continue
			}

			data := strings.TrimPrefix(line, "data: ")
			if data == sseDone {
				return
			}

			select {
			case ch <- Event{Data: []byte(data)}:
			case <-ctx.Done():
				return
			}
		}

		// Cancellation surfaces as a read error on the aborted body; the
		// sequence must end with no further items rather than an error.
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			select {
			case ch <- Event{Err: fmt.Errorf("stream read failed: %w", err)}:
			case <-ctx.Done():
			}
		}
	}()

	return ch, nil
}
