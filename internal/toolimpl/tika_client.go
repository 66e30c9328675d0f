package toolimpl

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TikaClient is the text-extraction collaborator: PUT /tika returns
// extracted UTF-8 text for an arbitrary document; PUT /detect/stream
// returns its detected mime. Grounded in the mime-detection design note
// that the orchestrator only ever talks to this through the
// registered tool, never to a concrete implementation directly.
type TikaClient struct {
	endpoint string
	client   *http.Client
}

// NewTikaClient builds a client against endpoint (e.g. http://localhost:9998).
func NewTikaClient(endpoint string) *TikaClient {
	return &TikaClient{endpoint: endpoint, client: &http.Client{Timeout: 30 * time.Second}}
}

// ExtractText PUTs content to /tika and returns the extracted text.
func (c *TikaClient) ExtractText(ctx context.Context, content []byte) (string, error) {
	if c.endpoint == "" {
		return "", fmt.Errorf("tika client: no endpoint configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.endpoint+"/tika", bytes.NewReader(content))
	if err != nil {
		return "", err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("tika request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("tika returned status %d", resp.StatusCode)
	}
	return string(body), nil
}

// DetectStream PUTs content to /detect/stream and returns the detected mime.
func (c *TikaClient) DetectStream(ctx context.Context, content []byte) (string, error) {
	if c.endpoint == "" {
		return "", fmt.Errorf("tika client: no endpoint configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.endpoint+"/detect/stream", bytes.NewReader(content))
	if err != nil {
		return "", err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("tika detect request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("tika detect returned status %d", resp.StatusCode)
	}
	return string(bytes.TrimSpace(body)), nil
}

// Reachable is a cheap liveness probe used to decide whether to attempt
// delegation at all before spending the dispatch timeout on a dead host.
func (c *TikaClient) Reachable(ctx context.Context) bool {
	if c.endpoint == "" {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/version", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
