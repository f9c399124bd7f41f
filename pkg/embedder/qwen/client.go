// Package qwen provides a text featurizer backed by the DashScope
// text-embedding API.
package qwen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Defaults for the DashScope text-embedding-v4 model.
const (
	DefaultBaseURL    = "https://dashscope.aliyuncs.com/api/v1"
	DefaultModel      = "text-embedding-v4"
	DefaultDimensions = 1024

	// MaxBatch is the number of texts DashScope accepts per request.
	MaxBatch = 10

	embeddingPath = "/services/embeddings/text-embedding/text-embedding"
)

// Client implements embedder.Provider using the DashScope API.
type Client struct {
	client     *http.Client
	apiKey     string
	model      string
	baseURL    string
	dimensions int
}

// Config contains configuration for creating a Qwen embedder.
type Config struct {
	// APIKey is the DashScope API key (required).
	APIKey string

	// Model is the model name (default: text-embedding-v4).
	Model string

	// BaseURL is the API base URL (default: DashScope official address).
	BaseURL string

	// Dimensions is the requested vector width (default: 1024).
	Dimensions int

	// HTTPClient is a custom HTTP client (uses a 30s-timeout client if nil).
	HTTPClient *http.Client
}

// APIError is returned when DashScope answers with a non-200 status.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("dashscope: status %d: %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("dashscope: status %d: %s", e.StatusCode, e.Message)
}

type embeddingRequest struct {
	Model      string           `json:"model"`
	Input      embeddingInput   `json:"input"`
	Parameters *embeddingParams `json:"parameters,omitempty"`
}

type embeddingInput struct {
	Texts []string `json:"texts"`
}

type embeddingParams struct {
	Dimension int    `json:"dimension,omitempty"`
	TextType  string `json:"text_type"`
}

type embeddingResponse struct {
	Output struct {
		Embeddings []struct {
			TextIndex int       `json:"text_index"`
			Embedding []float64 `json:"embedding"`
		} `json:"embeddings"`
	} `json:"output"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewClient creates a new Qwen embedder.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("qwen embedder: api key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	dimensions := cfg.Dimensions
	if dimensions == 0 {
		dimensions = DefaultDimensions
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{
			Timeout: 30 * time.Second,
		}
	}

	return &Client{
		client:     client,
		apiKey:     cfg.APIKey,
		model:      model,
		baseURL:    baseURL,
		dimensions: dimensions,
	}, nil
}

// Embed converts a single text to a vector.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch converts texts to vectors, splitting into requests of at most
// MaxBatch texts. The result is in input order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += MaxBatch {
		end := start + MaxBatch
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := c.request(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (c *Client) request(ctx context.Context, texts []string) ([][]float64, error) {
	body, err := json.Marshal(embeddingRequest{
		Model: c.model,
		Input: embeddingInput{Texts: texts},
		Parameters: &embeddingParams{
			Dimension: c.dimensions,
			TextType:  "document",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+embeddingPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(raw)}
		var parsed embeddingResponse
		if json.Unmarshal(raw, &parsed) == nil && parsed.Message != "" {
			apiErr.Code, apiErr.Message = parsed.Code, parsed.Message
		}
		return nil, apiErr
	}

	var parsed embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(parsed.Output.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding generation failed: got %d results, expected %d", len(parsed.Output.Embeddings), len(texts))
	}

	embeddings := make([][]float64, len(texts))
	for _, e := range parsed.Output.Embeddings {
		if e.TextIndex < 0 || e.TextIndex >= len(texts) || embeddings[e.TextIndex] != nil {
			return nil, fmt.Errorf("embedding generation failed: bad text index %d", e.TextIndex)
		}
		embeddings[e.TextIndex] = e.Embedding
	}
	return embeddings, nil
}

// Dimensions returns the requested vector width.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// Close is a no-op; the HTTP client holds no per-client resources.
func (c *Client) Close() error {
	return nil
}
