package toolimpl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mnemex/internal/logging"
)

// GenerativeClient talks to a local Ollama-compatible generative endpoint,
// the same shape as the generative-model collaborator: POST /api/generate
// with {model, prompt, system?, stream:false, options?}, response
// {response}; availability probed via GET /api/tags. Grounded on the
// request/logging shape of the embedding package's Ollama client, applied
// to this single HTTP collaborator rather than a full multi-turn SDK.
// Each call makes one attempt; there is no retry.
type GenerativeClient struct {
	endpoint string
	model    string
	client   *http.Client
}

// NewGenerativeClient builds a client against endpoint (default
// http://localhost:11434) using model for generation calls.
func NewGenerativeClient(endpoint, model string) *GenerativeClient {
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.2"
	}
	return &GenerativeClient{
		endpoint: endpoint,
		model:    model,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Reachable probes GET /api/tags; a non-2xx response or network error means
// the caller should fall back to the deterministic stub path.
func (c *GenerativeClient) Reachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/api/tags", nil)
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

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
	Format  string         `json:"format,omitempty"`
	Images  []string       `json:"images,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generate issues a single non-streaming completion. When asJSON is true
// the request asks the model to constrain its output to JSON via
// format:"json", matching the collaborator's documented option.
func (c *GenerativeClient) Generate(ctx context.Context, systemPrompt, userPrompt string, asJSON bool) (string, error) {
	timer := logging.StartTimer(logging.CategoryOrchestrator, "GenerativeClient.Generate")
	defer timer.Stop()

	reqBody := generateRequest{
		Model:  c.model,
		Prompt: userPrompt,
		System: systemPrompt,
		Stream: false,
	}
	if asJSON {
		reqBody.Format = "json"
	}
	return c.doGenerate(ctx, reqBody)
}

// GenerateWithImage issues a single non-streaming completion against a
// vision-capable model, attaching imageBytes as the request's images
// field (Ollama's multimodal convention: base64-encoded, no data URI
// prefix). Callers should only use this against a model known to
// support images; a text-only model will typically ignore the field.
func (c *GenerativeClient) GenerateWithImage(ctx context.Context, systemPrompt, userPrompt string, imageBytes []byte) (string, error) {
	timer := logging.StartTimer(logging.CategoryOrchestrator, "GenerativeClient.GenerateWithImage")
	defer timer.Stop()

	reqBody := generateRequest{
		Model:  c.model,
		Prompt: userPrompt,
		System: systemPrompt,
		Stream: false,
		Images: []string{encodeImageBase64(imageBytes)},
	}
	return c.doGenerate(ctx, reqBody)
}

func (c *GenerativeClient) doGenerate(ctx context.Context, reqBody generateRequest) (string, error) {
	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/generate", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read generate response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("generate returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out generateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	return strings.TrimSpace(out.Response), nil
}
