package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"kudi/internal/metrics"

	"go.uber.org/zap"
)

const maxErrorBody = 4 << 10

// Client is the JSON-over-HTTP transport shared by provider clients. It owns
// authentication, timeouts and error classification.
type Client struct {
	name      string
	baseURL   string
	secretKey string
	http      *http.Client
	metrics   metrics.Collector
	logger    *zap.Logger
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

func WithMetrics(m metrics.Collector) ClientOption {
	return func(c *Client) { c.metrics = m }
}

func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

func NewClient(name, baseURL, secretKey string, timeout time.Duration, opts ...ClientOption) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		name:      name,
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		http:      &http.Client{Timeout: timeout},
		metrics:   metrics.NoopCollector{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Name() string {
	return c.name
}

// Do sends payload (if any) to path and decodes a 2xx body into out. Any
// other outcome comes back as a *ProviderError; an undecodable 2xx body is
// flagged Accepted.
func (c *Client) Do(ctx context.Context, op, method, path string, payload, out interface{}) (err error) {
	start := time.Now()
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
			if IsTransient(err) {
				outcome = "transient"
			}
		}
		c.metrics.RecordProviderCall(c.name, op, outcome, time.Since(start))
	}()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return &ProviderError{Provider: c.name, Op: op, Message: "invalid request", Err: err}
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &ProviderError{Provider: c.name, Op: op, Message: "invalid request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("provider request failed",
			zap.String("provider", c.name),
			zap.String("op", op),
			zap.Error(err))
		return TransportError(c.name, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn("provider returned error status",
			zap.String("provider", c.name),
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", raw))
		return StatusError(c.name, op, resp.StatusCode, errorMessage(raw))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.logger.Warn("provider response unreadable",
			zap.String("provider", c.name),
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
			zap.Error(err))
		return &ProviderError{
			Provider:   c.name,
			Op:         op,
			Message:    "unreadable provider response",
			StatusCode: resp.StatusCode,
			Accepted:   true,
			Err:        fmt.Errorf("failed to decode %s response: %w", op, err),
		}
	}
	return nil
}

// errorMessage pulls a human message out of a provider error body.
func errorMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &body) != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}
