// Package llm talks to an OpenAI-compatible chat completions endpoint.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/julianstephens/studylit/internal/constants"
	"github.com/julianstephens/studylit/internal/logger"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type Client interface {
	// Chat returns the model's free-text reply.
	Chat(ctx context.Context, messages []Message) (string, error)
	// ChatJSON asks for a JSON object and decodes it into out.
	ChatJSON(ctx context.Context, messages []Message, out any) error
}

var (
	// ErrNoAPIKey is returned when no API key is configured
	ErrNoAPIKey = errors.New("llm api key is not configured")
	// ErrEmptyReply is returned when the provider answers without content
	ErrEmptyReply = errors.New("llm returned an empty reply")
)

// APIError is a non-2xx answer from the provider.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("llm request failed with status %d: %s", e.StatusCode, e.Body)
}

type Options struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

type HTTPClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

func NewHTTPClient(opts Options) (*HTTPClient, error) {
	if opts.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if opts.BaseURL == "" {
		opts.BaseURL = constants.DefaultLLMBaseURL
	}
	if opts.Model == "" {
		opts.Model = constants.DefaultLLMModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = constants.DefaultLLMTimeout
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		model:   opts.Model,
		client:  &http.Client{Timeout: opts.Timeout},
	}, nil
}

type responseFormat struct {
	Type string `json:"type"`
}

type completionRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

func (c *HTTPClient) Chat(ctx context.Context, messages []Message) (string, error) {
	return c.complete(ctx, completionRequest{Model: c.model, Messages: messages})
}

func (c *HTTPClient) ChatJSON(ctx context.Context, messages []Message, out any) error {
	reply, err := c.complete(ctx, completionRequest{
		Model:          c.model,
		Messages:       messages,
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return err
	}
	return DecodeJSON(reply, out)
}

func (c *HTTPClient) complete(ctx context.Context, body completionRequest) (string, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	started := time.Now()
	res, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm request failed: %w", err)
	}
	defer res.Body.Close()
	logger.Debug("LLM request", "model", c.model, "status", res.StatusCode, "latency", time.Since(started))

	if res.StatusCode < 200 || res.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return "", &APIError{StatusCode: res.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	var parsed completionResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode llm response: %w", err)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", ErrEmptyReply
	}
	return parsed.Choices[0].Message.Content, nil
}

// DecodeJSON decodes a model reply into out. Replies wrapped in a markdown
// code fence are unwrapped first.
func DecodeJSON(reply string, out any) error {
	s := strings.TrimSpace(reply)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	if err := json.Unmarshal([]byte(s), out); err != nil {
		return fmt.Errorf("llm reply is not valid JSON: %w", err)
	}
	return nil
}
