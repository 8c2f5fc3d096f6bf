package v0

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultOverallTimeout    = 5 * time.Minute
	defaultInactivityTimeout = 30 * time.Second
)

// shared HTTP client for generation service calls. no client-level timeout:
// streaming responses stay open for minutes and are bounded per request by
// the overall timeout context.
var v0HTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	},
}

// rate limiter for generation service calls (10 requests/second, burst of 5)
var v0RateLimiter = rate.NewLimiter(10, 5)

type ClientConfig struct {
	APIKey            string
	BaseURL           string        // e.g. "https://api.v0.dev/v1"
	OverallTimeout    time.Duration // hard ceiling for one call
	InactivityTimeout time.Duration // abort a stream after this long without bytes
}

// Client talks to the remote code-generation service: the streaming chat
// endpoint, the synchronous fallback, and the durable project record.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
}

func NewClient(config ClientConfig) *Client {
	if config.OverallTimeout == 0 {
		config.OverallTimeout = defaultOverallTimeout
	}

	if config.InactivityTimeout == 0 {
		config.InactivityTimeout = defaultInactivityTimeout
	}

	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	return &Client{
		config:     config,
		httpClient: v0HTTPClient,
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader

	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}

		reader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// GenerateSync issues the generation request on the synchronous endpoint.
// Used as the fallback when the streaming path cannot be resolved; the
// payload contract is identical to the streaming call.
func (c *Client) GenerateSync(ctx context.Context, genReq GenerateRequest) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.OverallTimeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodPost, "/chats", genReq)
	if err != nil {
		return nil, &TransportError{Kind: KindHTTP, Err: err}
	}

	if err := v0RateLimiter.Wait(ctx); err != nil {
		return nil, &TransportError{Kind: KindHTTP, Err: fmt.Errorf("rate limiter error: %w", err)}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Kind: KindHTTP, Err: err}
	}

	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, remoteError(resp)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &TransportError{Kind: KindParse, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	return &result, nil
}

// ProjectRecord fetches the durable record for a project: its last known
// conversation identifier, preview URL, and code snapshot. Read-only, used
// exclusively by reconciliation.
func (c *Client) ProjectRecord(ctx context.Context, projectID string) (*ProjectRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodGet, "/projects/"+projectID, nil)
	if err != nil {
		return nil, err
	}

	if err := v0RateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch project record: %w", err)
	}

	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096)) //nolint:errcheck
		return nil, fmt.Errorf("project record request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var record ProjectRecord
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return nil, fmt.Errorf("failed to decode project record: %w", err)
	}

	return &record, nil
}

// builds a RemoteError from a non-2xx response, surfacing the service's own
// message when the body carries one
func remoteError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096)) //nolint:errcheck

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}

	message := ""
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			message = payload.Message
		} else {
			message = payload.Error
		}
	}

	if message == "" {
		message = fmt.Sprintf("request failed with status %d", resp.StatusCode)
	}

	return &TransportError{Kind: KindRemote, Message: message, StatusCode: resp.StatusCode}
}
