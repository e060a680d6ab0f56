package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/mbertholdt/docrag/helper"
)

// OpenAIEmbedderConfig configures the OpenAI-compatible embeddings client.
type OpenAIEmbedderConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	Dimension int
	Timeout   time.Duration
}

// OpenAIEmbedder generates embeddings through an OpenAI-compatible
// /embeddings endpoint.
type OpenAIEmbedder struct {
	baseURL    string
	apiKey     string
	model      string
	dimension  int
	client     *http.Client
	maxRetries int
}

// NewOpenAIEmbedder creates an embeddings client. Missing fields are filled
// from the environment (OPENAI_API_KEY, OPENAI_BASE_URL) and defaults
// (text-embedding-3-small, 1536 dimensions). A missing API key is a
// configuration error.
func NewOpenAIEmbedder(config OpenAIEmbedderConfig) (*OpenAIEmbedder, error) {
	// Missing .env is fine, the variables may already be exported.
	_ = godotenv.Load()

	if config.APIKey == "" {
		config.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if config.APIKey == "" {
		return nil, helper.NewConfigurationError("create embeddings client", fmt.Errorf("OPENAI_API_KEY not found in environment variables"))
	}
	if config.BaseURL == "" {
		config.BaseURL = os.Getenv("OPENAI_BASE_URL")
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.openai.com/v1"
	}
	if config.Model == "" {
		config.Model = "text-embedding-3-small"
	}
	if config.Dimension == 0 {
		config.Dimension = 1536
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &OpenAIEmbedder{
		baseURL:    config.BaseURL,
		apiKey:     config.APIKey,
		model:      config.Model,
		dimension:  config.Dimension,
		client:     &http.Client{Timeout: config.Timeout},
		maxRetries: 5,
	}, nil
}

// Dimension returns the embedding dimensionality.
func (c *OpenAIEmbedder) Dimension() int {
	return c.dimension
}

// Embed generates an embedding for a single text.
func (c *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one request,
// preserving input order.
func (c *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	type reqBody struct {
		Input []string `json:"input"`
		Model string   `json:"model"`
	}

	payload, err := c.post(ctx, "/embeddings", reqBody{Input: texts, Model: c.model})
	if err != nil {
		return nil, err
	}

	var out struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, helper.NewProviderError("decode embeddings response", err)
	}
	if len(out.Data) != len(texts) {
		return nil, helper.NewProviderError("decode embeddings response", fmt.Errorf("got %d embeddings for %d texts", len(out.Data), len(texts)))
	}

	// Responses carry an index field; input order is restored from it.
	sort.Slice(out.Data, func(i, j int) bool { return out.Data[i].Index < out.Data[j].Index })

	embeddings := make([][]float32, len(out.Data))
	for i, item := range out.Data {
		if len(item.Embedding) == 0 {
			return nil, helper.NewProviderError("decode embeddings response", fmt.Errorf("empty embedding at index %d", i))
		}
		embeddings[i] = item.Embedding
	}

	return embeddings, nil
}

// post sends a JSON request with bounded retry on rate limiting and server
// errors, honoring Retry-After when present.
func (c *OpenAIEmbedder) post(ctx context.Context, path string, body interface{}) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, helper.NewProviderError("encode request", err)
	}

	url := c.baseURL + path
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return nil, helper.NewProviderError("build request", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			if attempt < c.maxRetries {
				time.Sleep(retryDelay(attempt))
				continue
			}
			break
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("request failed: %s", resp.Status)
			delay := retryDelay(attempt)
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if secs, err := strconv.Atoi(ra); err == nil {
					delay = time.Duration(secs) * time.Second
				}
			}
			_ = resp.Body.Close()
			if attempt < c.maxRetries {
				time.Sleep(delay)
				continue
			}
			break
		}

		if resp.StatusCode >= 300 {
			_ = resp.Body.Close()
			return nil, helper.NewProviderError("request", fmt.Errorf("request failed: %s", resp.Status))
		}

		payload, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = err
			if attempt < c.maxRetries {
				time.Sleep(retryDelay(attempt))
				continue
			}
			break
		}

		return payload, nil
	}

	return nil, helper.NewProviderError("request", lastErr)
}

// retryDelay is an exponential backoff capped at 5s.
func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
