package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/relaygate/gateway/core"
	"github.com/relaygate/gateway/model"
)

// HTTPAdapter is a demo HTTP-based Adapter with ai/providers/base.go's
// BaseClient retry/backoff shape: exponential backoff across
// MaxRetries attempts, retrying 5xx/429/network errors and returning
// 4xx client errors immediately. It POSTs a small JSON envelope to
// Endpoint and expects `{"content": "..."}` back — good enough to
// exercise the dispatch path against a local echo server without
// wiring a real upstream's wire protocol.
type HTTPAdapter struct {
	Endpoint   string
	HTTPClient *http.Client
	Logger     core.Logger
	MaxRetries int
	RetryDelay time.Duration

	// Limiter, if set, paces outbound requests to Endpoint to at most
	// its configured rate before every attempt (including retries).
	Limiter *rate.Limiter
}

var _ Adapter = (*HTTPAdapter)(nil)

// NewHTTPAdapter builds an HTTPAdapter posting to endpoint, with
// BaseClient's defaults (3 retries, 1s initial backoff).
func NewHTTPAdapter(endpoint string, timeout time.Duration, logger core.Logger) *HTTPAdapter {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &HTTPAdapter{
		Endpoint:   endpoint,
		HTTPClient: &http.Client{Timeout: timeout},
		Logger:     logger,
		MaxRetries: 3,
		RetryDelay: time.Second,
	}
}

// WithRateLimit caps h's outbound QPS to Endpoint using a token-bucket
// limiter, burst requests up to burst before throttling kicks in.
func (h *HTTPAdapter) WithRateLimit(requestsPerSecond float64, burst int) *HTTPAdapter {
	h.Limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	return h
}

type httpRequestEnvelope struct {
	Model    string   `json:"model"`
	Messages []string `json:"messages"`
}

type httpResponseEnvelope struct {
	Content      string `json:"content"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// Complete implements Adapter.
func (h *HTTPAdapter) Complete(ctx context.Context, req *model.Request, modelName string) (CompletionResult, error) {
	body := httpRequestEnvelope{Model: modelName}
	for _, msg := range req.Messages {
		body.Messages = append(body.Messages, msg.Text())
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return CompletionResult{}, &Error{Err: err, Retryable: false}
	}

	resp, err := h.executeWithRetry(ctx, payload)
	if err != nil {
		return CompletionResult{}, err
	}
	defer resp.Body.Close()

	var out httpResponseEnvelope
	if decodeErr := json.NewDecoder(resp.Body).Decode(&out); decodeErr != nil {
		return CompletionResult{}, &Error{Err: decodeErr, Retryable: false}
	}

	return CompletionResult{
		Content:      out.Content,
		TokenUsage:   model.TokenUsage{Input: out.InputTokens, Output: out.OutputTokens},
		FinishReason: FinishStop,
	}, nil
}

// Stream implements Adapter by completing and replaying as a single
// chunk; the demo endpoint has no real streaming transport.
func (h *HTTPAdapter) Stream(ctx context.Context, req *model.Request, modelName string) (<-chan StreamChunk, error) {
	result, err := h.Complete(ctx, req, modelName)
	if err != nil {
		return nil, err
	}
	ch := make(chan StreamChunk, 2)
	ch <- StreamChunk{Delta: result.Content}
	ch <- StreamChunk{Done: true, FinishReason: result.FinishReason}
	close(ch)
	return ch, nil
}

// executeWithRetry mirrors BaseClient.ExecuteWithRetry: exponential
// backoff, 4xx (other than 429) returned immediately, 5xx/429/network
// errors retried up to MaxRetries times.
func (h *HTTPAdapter) executeWithRetry(ctx context.Context, payload []byte) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= h.MaxRetries; attempt++ {
		if h.Limiter != nil {
			if err := h.Limiter.Wait(ctx); err != nil {
				return nil, &Error{Err: err, Retryable: false}
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.Endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, &Error{Err: err, Retryable: false}
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := h.HTTPClient.Do(httpReq)
		if err == nil && resp.StatusCode < 400 {
			return resp, nil
		}
		if err == nil && resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			b, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, &Error{Err: fmt.Errorf("client error %d: %s", resp.StatusCode, b), Retryable: false}
		}

		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("server error: status %d", resp.StatusCode)
			resp.Body.Close()
		}

		if attempt < h.MaxRetries {
			shift := attempt
			if shift > 30 {
				shift = 30
			}
			delay := h.RetryDelay * time.Duration(uint64(1)<<uint(shift))
			h.Logger.Debug("retrying provider request", map[string]interface{}{
				"attempt": attempt + 1,
				"delay":   delay.String(),
				"error":   lastErr.Error(),
			})
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, &Error{Err: ctx.Err(), Retryable: false}
			}
		}
	}

	return nil, &Error{Err: fmt.Errorf("%w: %v", core.ErrMaxRetriesExceeded, lastErr), Retryable: true}
}
