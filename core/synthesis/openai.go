package synthesis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/mbertholdt/docrag/helper"
)

// OpenAIModelConfig configures the OpenAI-compatible chat completion client.
type OpenAIModelConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// OpenAIModel generates text through an OpenAI-compatible /chat/completions
// endpoint.
type OpenAIModel struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	client      *http.Client
	maxRetries  int
}

// NewOpenAIModel creates a chat completion client. Missing fields are filled
// from the environment (OPENAI_API_KEY, OPENAI_BASE_URL) and defaults
// (gpt-3.5-turbo, temperature 0.1). A missing API key is a configuration
// error.
func NewOpenAIModel(config OpenAIModelConfig) (*OpenAIModel, error) {
	// Missing .env is fine, the variables may already be exported.
	_ = godotenv.Load()

	if config.APIKey == "" {
		config.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if config.APIKey == "" {
		return nil, helper.NewConfigurationError("create completion client", fmt.Errorf("OPENAI_API_KEY not found in environment variables"))
	}
	if config.BaseURL == "" {
		config.BaseURL = os.Getenv("OPENAI_BASE_URL")
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.openai.com/v1"
	}
	if config.Model == "" {
		config.Model = "gpt-3.5-turbo"
	}
	if config.Temperature == 0 {
		config.Temperature = 0.1
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	return &OpenAIModel{
		baseURL:     config.BaseURL,
		apiKey:      config.APIKey,
		model:       config.Model,
		temperature: config.Temperature,
		client:      &http.Client{Timeout: config.Timeout},
		maxRetries:  3,
	}, nil
}

// Complete sends the prompt as a single user message and returns the
// generated text.
func (c *OpenAIModel) Complete(ctx context.Context, prompt string) (string, error) {
	type message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	type reqBody struct {
		Model       string    `json:"model"`
		Messages    []message `json:"messages"`
		Temperature float64   `json:"temperature"`
	}

	body := reqBody{
		Model:       c.model,
		Messages:    []message{{Role: "user", Content: prompt}},
		Temperature: c.temperature,
	}

	payload, err := c.post(ctx, "/chat/completions", body)
	if err != nil {
		return "", err
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return "", helper.NewProviderError("decode completion response", err)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return "", helper.NewProviderError("decode completion response", fmt.Errorf("no completion returned"))
	}

	return out.Choices[0].Message.Content, nil
}

// post sends a JSON request with bounded retry on rate limiting and server
// errors, honoring Retry-After when present.
func (c *OpenAIModel) post(ctx context.Context, path string, body interface{}) ([]byte, error) {
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
