// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package anthropic

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/openclaw/openclaw-tui/internal/model"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultBaseURL is the API endpoint base.
	DefaultBaseURL = "https://api.anthropic.com"

	// messagesPath is the Messages API path.
	messagesPath = "/v1/messages"

	// apiVersion is the value of the anthropic-version header.
	apiVersion = "2023-06-01"

	// DefaultMaxTokens caps response length per request.
	DefaultMaxTokens = 1024

	// DefaultTimeout bounds non-streaming requests. Streaming requests are
	// bounded by their context instead.
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize is the maximum allowed non-streaming response body.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 10 * 1024 * 1024
)

// ErrNoCredential indicates a request was attempted without an API key.
var ErrNoCredential = errors.New("no API key configured")

// =============================================================================
// SHARED HTTP CLIENTS
// =============================================================================

// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
var sharedHTTPClient = &http.Client{
	Transport: newTransport(),
	Timeout:   DefaultTimeout,
}

// sharedStreamingClient has no timeout; streaming is context-controlled.
var sharedStreamingClient = &http.Client{
	Transport: newTransport(),
}

func newTransport() *http.Transport {
	return &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}
}

// =============================================================================
// ERRORS
// =============================================================================

// APIError is a non-2xx response from the Messages API.
type APIError struct {
	Status  int
	Type    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API error %d (%s): %s", e.Status, e.Type, e.Message)
	}
	return fmt.Sprintf("API error %d", e.Status)
}

// Temporary reports whether retrying later could help.
func (e *APIError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// errorEnvelope is the wire shape of an API error body.
type errorEnvelope struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Request describes one Messages API call.
type Request struct {
	Model     string
	System    string
	Messages  []model.PromptMessage
	MaxTokens int
}

// wireRequest is the serialized request body.
type wireRequest struct {
	Model     string                `json:"model"`
	MaxTokens int                   `json:"max_tokens"`
	System    string                `json:"system,omitempty"`
	Messages  []model.PromptMessage `json:"messages"`
	Stream    bool                  `json:"stream,omitempty"`
}

// wireResponse is the non-streaming response body.
type wireResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Client talks to the Messages API. The credential is supplied per call so
// the vault stays the single owner of key material.
type Client struct {
	baseURL    string
	httpClient *http.Client
	streaming  *http.Client
}

// NewClient creates a client against the production endpoint.
func NewClient() *Client {
	return &Client{
		baseURL:    DefaultBaseURL,
		httpClient: sharedHTTPClient,
		streaming:  sharedStreamingClient,
	}
}

// NewClientWithBaseURL creates a client against an alternate endpoint.
func NewClientWithBaseURL(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: sharedHTTPClient,
		streaming:  sharedStreamingClient,
	}
}

// =============================================================================
// NON-STREAMING REQUEST
// =============================================================================

// Message performs a blocking completion and returns the response text.
func (c *Client) Message(ctx context.Context, apiKey string, req Request) (string, error) {
	if apiKey == "" {
		return "", ErrNoCredential
	}

	resp, err := c.send(ctx, c.httpClient, apiKey, req, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var wire wireResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(wire.Content) == 0 {
		return "", errors.New("response contained no content blocks")
	}
	return wire.Content[0].Text, nil
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// send builds, authenticates, and issues the request. Non-2xx responses are
// drained and returned as *APIError.
func (c *Client) send(ctx context.Context, httpClient *http.Client, apiKey string, req Request, stream bool) (*http.Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	body, err := json.Marshal(wireRequest{
		Model:     req.Model,
		MaxTokens: maxTokens,
		System:    req.System,
		Messages:  req.Messages,
		Stream:    stream,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+messagesPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		resp.Body.Close()

		apiErr := &APIError{Status: resp.StatusCode}
		var envelope errorEnvelope
		if json.Unmarshal(raw, &envelope) == nil {
			apiErr.Type = envelope.Error.Type
			apiErr.Message = envelope.Error.Message
		}
		return nil, apiErr
	}

	return resp, nil
}
