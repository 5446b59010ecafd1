package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"shipdoc/internal"
	"shipdoc/internal/config"
	"shipdoc/internal/logger"
)

const maxAttempts = 4

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer returns the assistant content for a chat exchange.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, messages []Message) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, messages []Message) (string, error) {
	return f(ctx, messages)
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type Client struct {
	apiKey     string
	baseURL    string
	model      string
	enabled    bool
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *zap.Logger
}

func NewClient(cfg config.Config, log *zap.Logger) *Client {
	rps := cfg.LLMRateLimitRPS
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		apiKey:     cfg.LLMAPIKey,
		baseURL:    strings.TrimRight(cfg.LLMBaseURL, "/"),
		model:      cfg.LLMModel,
		enabled:    cfg.LLMActive(),
		httpClient: &http.Client{Timeout: time.Duration(cfg.LLMTimeoutMs) * time.Millisecond},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		log:        logger.OrNop(log),
	}
}

func (c *Client) Enabled() bool { return c != nil && c.enabled }

// Complete posts a JSON-mode chat completion and returns the first choice.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	if !c.Enabled() {
		return "", internal.ErrLLMUnavailable
	}

	payload, err := json.Marshal(chatRequest{
		Model:          c.model,
		Messages:       messages,
		Temperature:    0,
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", &internal.ExternalServiceError{Service: "llm", Err: err}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
		if err != nil {
			return "", err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			c.backoff(ctx, attempt)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < maxAttempts {
				lastErr = fmt.Errorf("status %d", resp.StatusCode)
				c.log.Debug("llm retry", zap.Int("status", resp.StatusCode), zap.Int("attempt", attempt))
				c.backoff(ctx, attempt)
				continue
			}
			return "", &internal.ExternalServiceError{
				Service: "llm",
				Err:     fmt.Errorf("status=%d body=%s", resp.StatusCode, truncate(string(body), 300)),
			}
		}

		var out chatResponse
		if err := json.Unmarshal(body, &out); err != nil {
			return "", &internal.ExternalServiceError{Service: "llm", Err: fmt.Errorf("%w: %v", internal.ErrMalformedLLMOutput, err)}
		}
		if out.Error != nil {
			return "", &internal.ExternalServiceError{Service: "llm", Err: errors.New(out.Error.Message)}
		}
		if len(out.Choices) == 0 {
			return "", &internal.ExternalServiceError{Service: "llm", Err: fmt.Errorf("%w: no choices", internal.ErrMalformedLLMOutput)}
		}
		return out.Choices[0].Message.Content, nil
	}

	if lastErr == nil {
		lastErr = errors.New("request failed")
	}
	return "", &internal.ExternalServiceError{Service: "llm", Err: lastErr}
}

func (c *Client) backoff(ctx context.Context, attempt int) {
	d := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
