// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package openai provides the natural-language responder for ircbridge.
package openai

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Configuration constants for the chat completions API.
const (
	// DefaultBaseURL is the OpenAI API base URL.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultTimeout applies when the config supplies no request timeout.
	DefaultTimeout = 120 * time.Second

	// MaxResponseSize caps the response body read to guard against a
	// misbehaving upstream streaming unbounded data.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB
)

// sharedHTTPClient pools connections across all responder calls. Timeouts
// are enforced per request via context, not on the client.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	},
}

// Error variables for common responder failures.
var (
	// ErrNotConfigured indicates the API key is not set.
	ErrNotConfigured = errors.New("openai: API key not configured")

	// ErrAuthFailed indicates authentication failed.
	ErrAuthFailed = errors.New("openai: authentication failed")

	// ErrRateLimited indicates too many requests were made upstream.
	ErrRateLimited = errors.New("openai: rate limited")

	// ErrEmptyResponse indicates the API returned no choices.
	ErrEmptyResponse = errors.New("openai: empty response")
)

// APIError represents a structured error returned by the API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("openai: API error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("openai: API error (HTTP %d): %s", e.Status, e.Message)
}

// ChatMessage is a single message in the chat completions format.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatParams carries the generation parameters for one request.
type ChatParams struct {
	Temperature      float64
	MaxTokens        int
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
	RequestTimeout   time.Duration
}

// chatRequest is the wire request body.
type chatRequest struct {
	Model            string        `json:"model"`
	Messages         []ChatMessage `json:"messages"`
	Temperature      float64       `json:"temperature,omitempty"`
	MaxTokens        int           `json:"max_tokens,omitempty"`
	TopP             float64       `json:"top_p,omitempty"`
	FrequencyPenalty float64       `json:"frequency_penalty,omitempty"`
	PresencePenalty  float64       `json:"presence_penalty,omitempty"`
}

// chatResponse is the wire response body.
type chatResponse struct {
	Choices []struct {
		Message      ChatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// apiErrorResponse is the error envelope the API wraps failures in.
type apiErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a chat completions client.
func NewClient(logger *zap.Logger) *Client {
	return &Client{
		baseURL:    DefaultBaseURL,
		httpClient: sharedHTTPClient,
		logger:     logger,
	}
}

// WithBaseURL points the client at a different API host. Used by tests and
// OpenAI-compatible proxies.
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = strings.TrimSuffix(url, "/")
	return c
}

// Complete performs one chat completion call. The API key travels per call
// because hot reload may replace it between messages. No retry here: rate
// limits and transient failures surface as errors for the dispatcher.
func (c *Client) Complete(ctx context.Context, apiKey, model string, messages []ChatMessage, params ChatParams) (string, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return "", ErrNotConfigured
	}

	timeout := params.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model:            model,
		Messages:         messages,
		Temperature:      params.Temperature,
		MaxTokens:        params.MaxTokens,
		TopP:             params.TopP,
		FrequencyPenalty: params.FrequencyPenalty,
		PresencePenalty:  params.PresencePenalty,
	})
	if err != nil {
		return "", fmt.Errorf("openai: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("openai: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return "", fmt.Errorf("openai: read response: %w", err)
	}

	// Status and duration only; never headers or bodies, they may carry
	// credentials or user content.
	c.logger.Debug("responder call",
		zap.String("model", model),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
		zap.String("key", keyFingerprint(apiKey)))

	if resp.StatusCode != http.StatusOK {
		return "", decodeAPIError(resp.StatusCode, data)
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("openai: decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return parsed.Choices[0].Message.Content, nil
}

// decodeAPIError maps an HTTP failure to a typed error.
func decodeAPIError(status int, data []byte) error {
	var envelope apiErrorResponse
	_ = json.Unmarshal(data, &envelope)

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrAuthFailed, envelope.Error.Message)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, envelope.Error.Message)
	default:
		return &APIError{Status: status, Code: envelope.Error.Code, Message: envelope.Error.Message}
	}
}

// keyFingerprint identifies an API key in logs without exposing any part of
// it.
func keyFingerprint(apiKey string) string {
	if apiKey == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(h[:4])
}
