// internal/embedding/openai.go
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"ticket-router/internal/common/config"
	"ticket-router/internal/common/errors"
	commonhttp "ticket-router/internal/common/http"
	"ticket-router/internal/common/logger"
)

const defaultMaxRetries = 3

// Client is an OpenAI-compatible embeddings client. It also accepts the
// Ollama-native response shape so a local model server can stand in for the
// hosted API without configuration changes.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	dimension  int
	maxRetries int
	httpClient *commonhttp.Client
	logger     logger.Logger
}

// NewClient creates an embeddings client from the API configuration. The
// configured dimension is advisory; the actual dimension is fixed by the
// first successful response.
func NewClient(cfg config.EmbeddingAPIConfig, dimension int, log logger.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("embedding base URL is required")
	}
	timeout := time.Duration(cfg.Timeout) * time.Millisecond
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimension:  dimension,
		maxRetries: defaultMaxRetries,
		httpClient: commonhttp.NewClient(timeout),
		logger:     log.WithFields(map[string]interface{}{"component": "embedding"}),
	}, nil
}

// Dimension returns the dimensionality of the produced embedding vectors.
func (c *Client) Dimension() int { return c.dimension }

// Embed returns an embedding vector for the given text. Transient upstream
// failures (429, 5xx, transport errors) are retried with exponential backoff.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	type reqBody struct {
		Input string `json:"input,omitempty"`
		Model string `json:"model,omitempty"`
	}
	url := fmt.Sprintf("%s/embeddings", c.baseURL)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, errors.NewEmbeddingServiceError(ctx.Err())
			case <-time.After(retryDelay(attempt - 1)):
			}
		}

		data, _ := json.Marshal(reqBody{Input: text, Model: c.model})
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return nil, errors.NewEmbeddingServiceError(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.NewEmbeddingServiceError(ctx.Err())
			}
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			// Respect Retry-After when the server sends it.
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if secs, perr := strconv.Atoi(ra); perr == nil {
					resp.Body.Close()
					select {
					case <-ctx.Done():
						return nil, errors.NewEmbeddingServiceError(ctx.Err())
					case <-time.After(time.Duration(secs) * time.Second):
					}
					lastErr = fmt.Errorf("embedding service returned %s", resp.Status)
					continue
				}
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("embedding service returned %s", resp.Status)
			continue
		}

		if resp.StatusCode >= 300 {
			resp.Body.Close()
			return nil, errors.NewEmbeddingServiceError(fmt.Errorf("embedding service returned %s", resp.Status))
		}

		payload, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		vec, err := decodeEmbedding(payload)
		if err != nil {
			lastErr = err
			continue
		}
		if c.dimension == 0 {
			c.dimension = len(vec)
		}
		return vec, nil
	}
	return nil, errors.NewEmbeddingServiceError(lastErr)
}

// decodeEmbedding accepts the OpenAI response envelope and falls back to the
// Ollama-native shape.
func decodeEmbedding(payload []byte) ([]float32, error) {
	var openaiOut struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &openaiOut); err == nil {
		if len(openaiOut.Data) > 0 && len(openaiOut.Data[0].Embedding) > 0 {
			return openaiOut.Data[0].Embedding, nil
		}
	}

	var nativeOut struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(payload, &nativeOut); err == nil && len(nativeOut.Embedding) > 0 {
		return nativeOut.Embedding, nil
	}
	return nil, fmt.Errorf("no embedding in response")
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := 200 * time.Millisecond << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
