// internal/inference/client.go
// Package inference sends chat completion requests to the Foundry Local
// OpenAI-compatible endpoint, either whole or as a server-sent event stream.
package inference

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/mwiater/foundrychat/internal/logging"
	"github.com/mwiater/foundrychat/internal/transport"
)

const completionsPath = "v1/chat/completions"

// Client issues chat completion requests.
type Client struct {
	transport *transport.Client
}

// New wraps a transport client.
func New(t *transport.Client) *Client {
	return &Client{transport: t}
}

// Complete sends a non-streaming request.
func (c *Client) Complete(ctx context.Context, req ChatRequest) transport.Result[ChatResponse] {
	req.Stream = false
	logging.LogDebug("chat completion: model=%s messages=%d", req.Model, len(req.Messages))
	return transport.Post[ChatRequest, ChatResponse](ctx, c.transport, completionsPath, req)
}

// Stream sends a streaming request and calls onChunk for each decoded chunk.
// Chunks that fail to decode are skipped. The stream ends at "[DONE]", at
// EOF, or when onChunk returns an error.
func (c *Client) Stream(ctx context.Context, req ChatRequest, onChunk func(ChatChunk) error) *transport.ErrorInfo {
	req.Stream = true
	resp, info := c.transport.OpenStream(ctx, http.MethodPost, completionsPath, req)
	if info != nil {
		return info
	}
	defer resp.Body.Close()

	err := transport.ReadEvents(ctx, resp.Body, func(data string) error {
		var chunk ChatChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			logging.LogDebug("chat stream: skipping malformed chunk: %v", err)
			return nil
		}
		return onChunk(chunk)
	})
	if err != nil {
		return transport.AsStreamError(err)
	}
	return nil
}
