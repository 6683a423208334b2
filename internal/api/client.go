// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/jeranaias/nexus-tui/internal/model"
)

// Configuration constants for the backend API.
const (
	// DefaultBaseURL is the base URL of a locally running backend.
	DefaultBaseURL = "http://localhost:8000/api/v1"

	// DefaultTimeout is the default timeout for non-streaming requests.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is the retry budget for idempotent GET requests.
	DefaultMaxRetries = 3

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay is the maximum delay for exponential backoff.
	retryMaxDelay = 10 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB

	userAgent = "nexus-tui/0.1.0"
)

// Error variables for common backend failures.
var (
	// ErrUnreachable indicates no response was received at all.
	ErrUnreachable = errors.New("backend unreachable")

	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")
)

var (
	// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
	// Shared HTTP client for request/response endpoints.
	sharedHTTPClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
		Timeout: DefaultTimeout,
	}

	// sharedStreamingClient is used for streaming requests. No client
	// timeout: stream lifetime is controlled via context.
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
)

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the Nexus RAG backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	streaming  *http.Client
	maxRetries int

	// limiter throttles document mutations. The watch-folder uploader can
	// fire a burst of uploads when a directory is populated all at once;
	// the backend's ingestion pipeline is not built for that.
	limiter *rate.Limiter
}

// NewClient creates a client for the backend at baseURL. An empty baseURL
// selects DefaultBaseURL.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: sharedHTTPClient,
		streaming:  sharedStreamingClient,
		maxRetries: DefaultMaxRetries,
		limiter:    rate.NewLimiter(rate.Every(time.Second), 4),
	}
}

// WithMaxRetries sets the retry budget for GET requests.
func (c *Client) WithMaxRetries(n int) *Client {
	c.maxRetries = n
	return c
}

// WithTimeout overrides the timeout for non-streaming requests. The
// streaming client is unaffected; stream lifetime stays context-bound.
func (c *Client) WithTimeout(d time.Duration) *Client {
	if d <= 0 {
		return c
	}
	hc := *sharedHTTPClient // shallow copy shares the pooled transport
	hc.Timeout = d
	c.httpClient = &hc
	return c
}

// WithHTTPClient overrides both HTTP clients. Used by tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	c.streaming = hc
	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// setHeaders sets common headers on a request.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
}

// =============================================================================
// SESSIONS & HISTORY
// =============================================================================

// ListSessions returns the session summaries known to the backend, newest
// first (backend order is preserved).
func (c *Client) ListSessions(ctx context.Context) ([]model.SessionSummary, error) {
	var sessions []model.SessionSummary
	if err := c.getJSON(ctx, c.baseURL+"/chat/sessions", &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// History returns the persisted messages for a session in order. An empty
// slice means the session exists but has no messages yet.
func (c *Client) History(ctx context.Context, sessionID int) ([]HistoryMessage, error) {
	var history []HistoryMessage
	u := c.baseURL + "/chat/history/" + strconv.Itoa(sessionID)
	if err := c.getJSON(ctx, u, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// =============================================================================
// DOCUMENTS
// =============================================================================

// ListDocuments returns the backend's authoritative document list.
func (c *Client) ListDocuments(ctx context.Context) ([]DocumentInfo, error) {
	var docs []DocumentInfo
	if err := c.getJSON(ctx, c.baseURL+"/documents/", &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// UploadDocument uploads one file as a multipart request (field "file").
func (c *Client) UploadDocument(ctx context.Context, filename string, r io.Reader) (*UploadResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to read upload source: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/documents/upload", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	data, err := readResponse(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errorFromResponse(resp.StatusCode, data)
	}

	var result UploadResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse upload response: %w", err)
	}
	return &result, nil
}

// DeleteDocument asks the backend to forget a document by file name.
func (c *Client) DeleteDocument(ctx context.Context, filename string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u := c.baseURL + "/documents/" + url.PathEscape(filename)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		data, _ := readResponse(resp)
		return errorFromResponse(resp.StatusCode, data)
	}
	return nil
}

// =============================================================================
// CHAT
// =============================================================================

// Send posts a message and waits for the complete answer (non-streaming
// variant). Chat requests are never retried: a duplicate send would append a
// duplicate message to the conversation on the backend.
func (c *Client) Send(ctx context.Context, message string, sessionID *int) (*ChatResponse, error) {
	reqBody := ChatRequest{Message: message, SessionID: sessionID}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/message", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	data, err := readResponse(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errorFromResponse(resp.StatusCode, data)
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(data, &chatResp); err != nil {
		return nil, fmt.Errorf("failed to parse chat response: %w", err)
	}
	return &chatResp, nil
}

// Stream posts a message with the streaming flag set and returns the raw
// response body for decoding. The caller owns the body and must close it;
// wrap it with NewDecoder to consume records.
func (c *Client) Stream(ctx context.Context, message string, sessionID *int) (io.ReadCloser, error) {
	reqBody := ChatRequest{Message: message, SessionID: sessionID, Stream: true}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/message", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/x-ndjson")

	resp, err := c.streaming.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	if resp.StatusCode != http.StatusOK {
		data, _ := readResponse(resp)
		resp.Body.Close()
		return nil, errorFromResponse(resp.StatusCode, data)
	}
	return resp.Body, nil
}

// =============================================================================
// INTERNALS
// =============================================================================

// getJSON performs a GET with retry on transient failures and decodes the
// JSON body into out.
func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := calculateBackoff(attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		c.setHeaders(req)

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			lastErr = fmt.Errorf("%w: %v", ErrUnreachable, err)
			continue
		}

		data, readErr := readResponse(resp)
		resp.Body.Close()
		log.Printf("API GET %s: %d (%v)", req.URL.Path, resp.StatusCode, time.Since(start))

		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = errorFromResponse(resp.StatusCode, data)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return errorFromResponse(resp.StatusCode, data)
		}

		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
		return nil
	}

	if lastErr != nil {
		return fmt.Errorf("max retries exceeded: %w", lastErr)
	}
	return errors.New("max retries exceeded")
}

// readResponse reads the response body with a size limit.
// SECURITY: Response size limit prevents memory exhaustion.
func readResponse(resp *http.Response) ([]byte, error) {
	limited := io.LimitReader(resp.Body, MaxResponseSize)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// errorFromResponse converts an HTTP error status and body to a Go error.
func errorFromResponse(status int, body []byte) error {
	var parsed errorBody
	message := ""
	if err := json.Unmarshal(body, &parsed); err == nil {
		message = parsed.Message
		if message == "" {
			message = parsed.Detail
		}
	}

	if status == http.StatusNotFound {
		if message != "" {
			return fmt.Errorf("%w: %s", ErrNotFound, message)
		}
		return ErrNotFound
	}

	return &BackendError{Status: status, Message: message}
}

// calculateBackoff returns the delay before the next retry attempt.
func calculateBackoff(attempt int) time.Duration {
	delay := retryBaseDelay * time.Duration(1<<uint(attempt))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}
