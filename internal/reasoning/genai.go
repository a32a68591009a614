// internal/reasoning/genai.go
package reasoning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ticket-router/internal/common/config"
	"ticket-router/internal/common/errors"
	commonhttp "ticket-router/internal/common/http"
	"ticket-router/internal/common/logger"
)

// GenAIClient calls a generation endpoint (POST {base}/api/ai/generate) with a
// fixed temperature. Every pipeline call runs at the configured temperature,
// normally 0, so repeated runs over the same data stay deterministic.
type GenAIClient struct {
	cfg        config.ReasoningAPIConfig
	httpClient *commonhttp.Client
	logger     logger.Logger
}

func NewGenAIClient(cfg config.ReasoningAPIConfig, log logger.Logger) (*GenAIClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("reasoning base URL is required")
	}
	return &GenAIClient{
		cfg: cfg,
		// No client-level timeout; per-call deadlines come from the context.
		httpClient: commonhttp.NewClient(0),
		logger:     log.WithFields(map[string]interface{}{"component": "reasoning"}),
	}, nil
}

func (c *GenAIClient) Normalize(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, "normalize", prompt)
}

func (c *GenAIClient) Rerank(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, "rerank", prompt)
}

func (c *GenAIClient) Select(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, "select", prompt)
}

func (c *GenAIClient) generate(ctx context.Context, call, prompt string) (string, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(c.cfg.Timeout)*time.Millisecond)
		defer cancel()
	}

	requestBody := map[string]interface{}{
		"prompt":      prompt,
		"model":       c.cfg.Model,
		"temperature": c.cfg.Temperature,
		"max_tokens":  c.cfg.MaxTokens,
	}
	body, _ := json.Marshal(requestBody)
	url := c.cfg.BaseURL + "/api/ai/generate"

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", errors.NewReasoningServiceError(call, ctx.Err())
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return "", errors.NewReasoningServiceError(call, err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		}

		resp, lastErr = c.httpClient.Do(req)
		if lastErr == nil {
			if resp.StatusCode == http.StatusOK {
				break
			}
			status := resp.StatusCode
			resp.Body.Close()
			resp = nil
			// Only rate limiting and server-side failures are worth another
			// attempt; other 4xx replies will not change on retry.
			if status != http.StatusTooManyRequests && status >= 400 && status < 500 {
				return "", errors.NewReasoningServiceError(call, fmt.Errorf("status %d", status))
			}
			lastErr = fmt.Errorf("status %d", status)
		}

		if ctx.Err() != nil {
			return "", errors.NewReasoningServiceError(call, ctx.Err())
		}
	}

	if resp == nil {
		if lastErr == nil {
			lastErr = fmt.Errorf("no successful response after retries")
		}
		return "", errors.NewReasoningServiceError(call, lastErr)
	}
	defer resp.Body.Close()

	var apiResponse struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return "", errors.NewReasoningServiceError(call, fmt.Errorf("decode response: %w", err))
	}
	if strings.TrimSpace(apiResponse.Text) == "" {
		return "", errors.NewReasoningServiceError(call, fmt.Errorf("empty completion"))
	}

	c.logger.Debug("generation completed", map[string]interface{}{
		"call":   call,
		"length": len(apiResponse.Text),
	})
	return apiResponse.Text, nil
}
