// Package httprequest provides an action that calls an HTTP endpoint.
package httprequest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukex/flowrun/pkg/actions/params"
	"github.com/dukex/flowrun/pkg/protocol"
)

const (
	actionID              = "http_request"
	defaultTimeoutSeconds = 30
)

var (
	// ErrHTTPRequestURLInvalid is returned when the URL is missing.
	ErrHTTPRequestURLInvalid = errors.New("invalid HTTP request url")
	// ErrHTTPServerError is returned when the server keeps answering with a 5xx status.
	ErrHTTPServerError = errors.New("server error during HTTP request")
)

// Action performs an HTTP request with a bounded retry loop inside a single dispatch.
type Action struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    any
	Timeout time.Duration
	Retry   RetryConfig
}

// RetryConfig defines retry behavior for HTTP requests.
type RetryConfig struct {
	Attempts int
	Delay    time.Duration
}

// NewAction creates a new Action from a resolved configuration.
func NewAction(config map[string]any) (*Action, error) {
	url := params.String(config, "url", "")
	if url == "" {
		return nil, protocol.NewValidationError(actionID, ErrHTTPRequestURLInvalid.Error())
	}

	headers := make(map[string]string)

	if headersMap, ok := config["headers"].(map[string]any); ok {
		for k, v := range headersMap {
			headers[k] = fmt.Sprintf("%v", v)
		}
	}

	retry := RetryConfig{Attempts: 1}

	if retryMap, ok := config["retries"].(map[string]any); ok {
		retry.Attempts = 1 + params.Int(retryMap, "attempts", 0)
		retry.Delay = time.Duration(params.Int(retryMap, "delay", 0)) * time.Millisecond
	}

	return &Action{
		Method:  strings.ToUpper(params.String(config, "method", http.MethodGet)),
		URL:     url,
		Headers: headers,
		Body:    config["body"],
		Timeout: time.Duration(params.Int(config, "timeout", defaultTimeoutSeconds)) * time.Second,
		Retry:   retry,
	}, nil
}

// Run performs the request and returns status code, body and headers.
func (a *Action) Run(ctx context.Context, input protocol.ActionContext) (map[string]any, error) {
	logger := input.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With("module", "http_request_action", "node_id", input.NodeID)

	client := input.Services.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	var lastErr error

	for attempt := 1; attempt <= a.Retry.Attempts; attempt++ {
		if attempt > 1 {
			logger.InfoContext(ctx, "Retrying HTTP request", "attempt", attempt, "max_attempts", a.Retry.Attempts)

			select {
			case <-ctx.Done():
				return nil, protocol.NewRuntimeError(actionID, "request cancelled", ctx.Err())
			case <-time.After(a.Retry.Delay):
			}
		}

		result, retryable, err := a.do(ctx, client, logger)
		if err == nil {
			return result, nil
		}

		lastErr = err

		if !retryable {
			break
		}
	}

	return nil, protocol.NewRuntimeError(actionID, "all attempts failed", lastErr)
}

// MockRun returns a representative response without calling the endpoint.
func (a *Action) MockRun(context.Context, protocol.ActionContext) (map[string]any, error) {
	return map[string]any{
		"status_code": http.StatusOK,
		"body":        map[string]any{},
		"headers":     map[string]any{},
	}, nil
}

func (a *Action) do(ctx context.Context, client *http.Client, logger *slog.Logger) (map[string]any, bool, error) {
	reqCtx, cancel := context.WithTimeout(ctx, a.Timeout)
	defer cancel()

	body, err := a.requestBody()
	if err != nil {
		return nil, false, err
	}

	req, err := http.NewRequestWithContext(reqCtx, a.Method, a.URL, body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create http request: %w", err)
	}

	for key, value := range a.Headers {
		req.Header.Set(key, value)
	}

	if _, isString := a.Body.(string); a.Body != nil && !isString && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	logger.DebugContext(ctx, "Sending HTTP request", "method", a.Method, "url", a.URL)

	resp, err := client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("http request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, true, fmt.Errorf("status %d: %w", resp.StatusCode, ErrHTTPServerError)
	}

	result, err := processResponse(resp)
	if err != nil {
		return nil, true, err
	}

	logger.InfoContext(ctx, "HTTP request completed", "status", resp.StatusCode)

	return result, false, nil
}

func (a *Action) requestBody() (io.Reader, error) {
	switch body := a.Body.(type) {
	case nil:
		return nil, nil
	case string:
		return strings.NewReader(body), nil
	default:
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}

		return bytes.NewReader(b), nil
	}
}

func processResponse(resp *http.Response) (map[string]any, error) {
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var body any

	if err := json.Unmarshal(bodyBytes, &body); err != nil {
		body = string(bodyBytes)
	}

	headers := make(map[string]any, len(resp.Header))
	for key := range resp.Header {
		headers[key] = resp.Header.Get(key)
	}

	return map[string]any{
		"status_code": resp.StatusCode,
		"body":        body,
		"headers":     headers,
	}, nil
}
