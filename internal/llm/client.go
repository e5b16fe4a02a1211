package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Ethan0723/Insight-Hub/internal/logger"
)

// ErrUnreachable marks transport-level failures (endpoint down, timeout) as
// opposed to a reachable endpoint returning a bad response. The pipeline
// breaker counts these to stop a storm of doomed calls.
var ErrUnreachable = errors.New("model endpoint unreachable")

// Message is a single chat message in the request payload.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the chat-completions request body.
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream"`
}

// ResponseMessage carries every provider-specific text field we know how to
// read. Content is either a plain string or a list of typed text blocks, so
// it stays raw until ExtractText inspects it.
type ResponseMessage struct {
	Content          json.RawMessage `json:"content"`
	ReasoningContent string          `json:"reasoning_content"`
	Text             string          `json:"text"`
	RawText          string          `json:"raw_text"`
	GeneratedText    string          `json:"generated_text"`
}

type Choice struct {
	Message      ResponseMessage `json:"message"`
	FinishReason string          `json:"finish_reason"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the chat-completions response body.
type Response struct {
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Client talks to an OpenAI-compatible chat-completions endpoint.
type Client struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

func NewClient(endpoint, apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		client:   &http.Client{Timeout: timeout},
	}
}

// ChatCompletion sends one prompt and returns the decoded response. A non-2xx
// status is a hard failure for the item; a transport error wraps
// ErrUnreachable so callers can tell the two apart.
func (c *Client) ChatCompletion(ctx context.Context, prompt string, temperature float64, maxTokens int) (*Response, error) {
	payload := Request{
		Model:       c.model,
		Messages:    []Message{{Role: "user", Content: prompt}},
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Stream:      false,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUnreachable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("model endpoint returned status %d: %s", resp.StatusCode, truncateForLog(raw))
	}

	var decoded Response
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(decoded.Choices) > 0 && decoded.Choices[0].FinishReason == "length" {
		logger.Warn("model response truncated by token limit", "model", c.model, "usage", decoded.Usage.TotalTokens)
	}

	return &decoded, nil
}

func truncateForLog(raw []byte) string {
	const max = 300
	if len(raw) > max {
		return string(raw[:max]) + "..."
	}
	return string(raw)
}
