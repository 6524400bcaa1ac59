package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/cenkalti/backoff/v3"
	"github.com/ollama/ollama/api"
)

const (
	DefaultURL         = "http://localhost:11434"
	DefaultMaxAttempts = 3
)

// Client wraps the Ollama API for embedding and generation. Every
// upstream call runs under a bounded exponential-backoff retry so a
// transient endpoint failure does not fail the whole invocation.
type Client struct {
	api             *api.Client
	embeddingModel  string
	generationModel string
	maxAttempts     int
}

func NewClient(baseURL string, httpClient *http.Client, embeddingModel, generationModel string, maxAttempts int) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama url %q: %w", baseURL, err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	return &Client{
		api:             api.NewClient(u, httpClient),
		embeddingModel:  embeddingModel,
		generationModel: generationModel,
		maxAttempts:     maxAttempts,
	}, nil
}

// Embed returns the embedding vector for the given text, unchanged from
// what the endpoint produced.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	var embedding []float64

	err := c.retry(ctx, func() error {
		resp, err := c.api.Embeddings(ctx, &api.EmbeddingRequest{
			Model:  c.embeddingModel,
			Prompt: text,
		})
		if err != nil {
			return fmt.Errorf("embedding request failed: %w", err)
		}
		if len(resp.Embedding) == 0 {
			return fmt.Errorf("embedding response has no vector")
		}
		embedding = resp.Embedding
		return nil
	})
	if err != nil {
		return nil, err
	}

	return embedding, nil
}

// Generate returns the model's completion for the prompt, bounded to
// maxTokens output tokens. An empty completion is not an error.
func (c *Client) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	var completion string

	err := c.retry(ctx, func() error {
		stream := false
		var sb strings.Builder
		err := c.api.Generate(ctx, &api.GenerateRequest{
			Model:  c.generationModel,
			Prompt: prompt,
			Stream: &stream,
			Options: map[string]interface{}{
				"num_predict": maxTokens,
			},
		}, func(resp api.GenerateResponse) error {
			sb.WriteString(resp.Response)
			return nil
		})
		if err != nil {
			return fmt.Errorf("generate request failed: %w", err)
		}
		completion = sb.String()
		return nil
	})
	if err != nil {
		return "", err
	}

	return completion, nil
}

func (c *Client) retry(ctx context.Context, op func() error) error {
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.maxAttempts-1)),
		ctx,
	)
	return backoff.Retry(op, b)
}
