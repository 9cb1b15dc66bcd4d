// Package ollama is a small client for a local Ollama server: text
// generation (plain and streamed), embeddings and a liveness check.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrUnavailable is returned when the server cannot be reached or answers
// with a non-2xx status.
var ErrUnavailable = errors.New("ollama unavailable")

// Client talks to one Ollama server.
type Client struct {
	baseURL    string
	model      string
	embedModel string
	client     *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.client = h }
}

// WithEmbedModel sets the model used by Embed.
func WithEmbedModel(m string) Option {
	return func(c *Client) { c.embedModel = m }
}

// New creates a client for baseURL using model for generation.
func New(baseURL, model string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		embedModel: "nomic-embed-text",
		client:     &http.Client{Timeout: 60 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Model returns the generation model name.
func (c *Client) Model() string { return c.model }

type generateReq struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

// chunk covers both /api/generate and /api/chat stream lines.
type chunk struct {
	Response string `json:"response"`
	Message  struct {
		Content string `json:"content"`
	} `json:"message"`
	Done  bool   `json:"done"`
	Error string `json:"error"`
}

func (ch chunk) text() string {
	if ch.Response != "" {
		return ch.Response
	}
	return ch.Message.Content
}

func (c *Client) post(ctx context.Context, system, prompt string, stream bool) (*http.Response, error) {
	body, _ := json.Marshal(generateReq{
		Model:   c.model,
		Prompt:  prompt,
		System:  system,
		Stream:  stream,
		Options: map[string]any{"temperature": 0.3, "num_predict": 512},
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return resp, nil
}

// Generate returns the full completion for prompt.
func (c *Client) Generate(ctx context.Context, system, prompt string) (string, error) {
	resp, err := c.post(ctx, system, prompt, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out chunk
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("ollama generate decode: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("ollama generate: %s", out.Error)
	}
	return out.text(), nil
}

// Stream calls onChunk for every non-empty piece of the completion and
// returns the concatenated text. It stops at the first line marked done.
// Lines that are not JSON are skipped.
func (c *Client) Stream(ctx context.Context, system, prompt string, onChunk func(string) error) (string, error) {
	resp, err := c.post(ctx, system, prompt, true)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 64*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ch chunk
		if err := json.Unmarshal(line, &ch); err != nil {
			continue
		}
		if ch.Error != "" {
			return full.String(), fmt.Errorf("ollama stream: %s", ch.Error)
		}
		if t := ch.text(); t != "" {
			full.WriteString(t)
			if onChunk != nil {
				if err := onChunk(t); err != nil {
					return full.String(), err
				}
			}
		}
		if ch.Done {
			return full.String(), nil
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return full.String(), fmt.Errorf("ollama stream read: %w", err)
	}
	return full.String(), nil
}

// Ping lists installed models and reports whether the configured model is
// among them.
func (c *Client) Ping(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return false, fmt.Errorf("ollama tags decode: %w", err)
	}
	for _, m := range tags.Models {
		if m.Name == c.model || strings.TrimSuffix(m.Name, ":latest") == c.model {
			return true, nil
		}
	}
	return false, nil
}
