package openaicompat

import (
	"context"
	"strings"
	"time"

	"github.com/spindlehq/spindle/internal/httpclient"
	"github.com/spindlehq/spindle/internal/provider"
)

// Caller executes chat-completion calls against one OpenAI-compatible
// endpoint. Adapters compose a Caller by delegation and differ only in
// endpoint resolution, attached headers, and failure policy.
type Caller struct {
	Provider string
	BaseURL  string // versioned API root, no trailing slash
	Headers  map[string]string
	Client   httpclient.HTTPClient
	Timeout  time.Duration
}

// ListModels fetches the backend's model ids from GET /models.
func (c *Caller) ListModels(ctx context.Context) ([]string, error) {
	var list ModelList
	url := strings.TrimRight(c.BaseURL, "/") + "/models"
	if err := httpclient.Send(ctx, c.Client, "GET", url, c.Headers, nil, &list); err != nil {
		return nil, MapError(c.Provider, "", c.Timeout, err)
	}

	ids := make([]string, len(list.Data))
	for i, m := range list.Data {
		ids[i] = m.ID
	}
	return ids, nil
}

// Chat sends a non-streaming completion and normalizes the response.
func (c *Caller) Chat(ctx context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	var wire Response
	url := strings.TrimRight(c.BaseURL, "/") + "/chat/completions"
	if err := httpclient.Send(ctx, c.Client, "POST", url, c.Headers, EncodeRequest(req, false), &wire); err != nil {
		return nil, MapError(c.Provider, req.Model, c.Timeout, err)
	}
	return DecodeResponse(c.Provider, &wire)
}

// ChatStream sends a streaming completion. Each SSE fragment is decoded
// independently: a malformed fragment yields one failed StreamResult and the
// stream continues. The channel closes at the sentinel, on connection
// failure, or on cancellation.
func (c *Caller) ChatStream(ctx context.Context, req *provider.ChatRequest) (<-chan provider.StreamResult, error) {
	url := strings.TrimRight(c.BaseURL, "/") + "/chat/completions"
	events, err := httpclient.Stream(ctx, c.Client, "POST", url, c.Headers, EncodeRequest(req, true))
	if err != nil {
		return nil, MapError(c.Provider, req.Model, c.Timeout, err)
	}

	out := make(chan provider.StreamResult)
	go func() {
		defer close(out)
		for ev := range events {
			var result provider.StreamResult
			if ev.Err != nil {
				result.Err = MapError(c.Provider, req.Model, c.Timeout, ev.Err)
			} else {
				chunk, decodeErr := DecodeChunk(c.Provider, ev.Data)
				if decodeErr != nil {
					result.Err = decodeErr
				} else {
					result.Chunk = chunk
				}
			}

			select {
			case out <- result:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
