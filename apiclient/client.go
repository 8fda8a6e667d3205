// Package apiclient talks to the game API. Every call carries the session
// token as a bearer credential and is bounded by a timeout.
package apiclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"luchaserver/normalize"
)

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// New builds a client for baseURL. A non-positive timeout means 20s.
func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Do sends one request and returns the raw response body on 2xx.
func (c *Client) Do(ctx context.Context, method, path, token string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.Warn("game API unreachable", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("%w: %s %s: %v", ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrNetwork, path, err)
	}

	c.logger.Debug("game API call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Path: path}
		if m, err := normalize.Object(raw); err == nil {
			apiErr.Message = normalize.Str(m["error"])
			apiErr.Detail = normalize.Str(m["message"])
		}
		if resp.StatusCode != http.StatusNotFound {
			c.logger.Warn("game API rejected request",
				zap.String("method", method),
				zap.String("path", path),
				zap.Int("status", resp.StatusCode),
				zap.String("error", apiErr.Message),
			)
		}
		return nil, apiErr
	}
	return raw, nil
}

// List reads a collection endpoint. A 404 is an empty collection.
func (c *Client) List(ctx context.Context, token, path string, keys ...string) ([]map[string]any, error) {
	raw, err := c.Do(ctx, http.MethodGet, path, token, nil)
	if errors.Is(err, ErrNotFound) {
		return []map[string]any{}, nil
	}
	if err != nil {
		return []map[string]any{}, err
	}
	list, err := normalize.Collection(raw, keys...)
	if err != nil {
		return list, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}
	return list, nil
}

// Object reads a single-object endpoint.
func (c *Client) Object(ctx context.Context, token, path string) (map[string]any, error) {
	raw, err := c.Do(ctx, http.MethodGet, path, token, nil)
	if err != nil {
		return map[string]any{}, err
	}
	m, err := normalize.Object(raw)
	if err != nil {
		return m, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}
	return m, nil
}

// Send performs a mutation and decodes the (optional) JSON object reply.
func (c *Client) Send(ctx context.Context, token, method, path string, payload any) (map[string]any, error) {
	raw, err := c.Do(ctx, method, path, token, payload)
	if err != nil {
		return nil, err
	}
	m, err := normalize.Object(raw)
	if err != nil {
		// 2xx with a non-JSON body still counts as success.
		return map[string]any{}, nil
	}
	return m, nil
}
