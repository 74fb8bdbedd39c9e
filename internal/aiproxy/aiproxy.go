// Package aiproxy forwards chat generation requests to the external AI
// service and hands back its reply untouched.
//
// The caller's bearer token never leaves this process. Outbound requests
// carry the service-to-service key instead, attached by an oauth2 transport
// built from a static token source.
package aiproxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

// GeneratePath is appended to the configured service URL.
const GeneratePath = "/api/v1/conversational/generate"

// maxResponseBytes caps how much of an upstream reply is buffered.
const maxResponseBytes = 10 << 20

var (
	ErrNotConfigured = errors.New("aiproxy: AI service URL is not configured")
	// ErrResponseTooLarge means a successful reply exceeded the buffer cap.
	// It is never relayed truncated.
	ErrResponseTooLarge = errors.New("aiproxy: AI service response too large")
)

// Response is the upstream reply, passed through as-is.
type Response struct {
	Body        []byte
	ContentType string
}

// Generator is the interface the HTTP handler depends on.
type Generator interface {
	Generate(ctx context.Context, body []byte) (*Response, error)
}

// APIError is returned for a non-2xx upstream status.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("aiproxy: upstream returned %d: %s", e.Status, e.Body)
}

// Client calls the AI service over HTTP.
type Client struct {
	endpoint   string
	httpClient *http.Client
	maxBytes   int64
}

// NewClient returns a Client posting to baseURL+GeneratePath with
// "Authorization: Bearer <apiKey>". An empty baseURL gives a Client whose
// Generate always fails with ErrNotConfigured.
//
// ctx only supplies an optional base *http.Client through oauth2.HTTPClient;
// it is not used for requests.
func NewClient(ctx context.Context, baseURL, apiKey string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	c := &Client{maxBytes: maxResponseBytes}
	if baseURL == "" {
		return c
	}
	c.endpoint = baseURL + GeneratePath
	c.httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: apiKey,
		TokenType:   "Bearer",
	}))
	return c
}

var _ Generator = (*Client)(nil)

// Generate posts body as JSON. There is no retry and no timeout beyond ctx.
func (c *Client) Generate(ctx context.Context, body []byte) (*Response, error) {
	if c.endpoint == "" {
		return nil, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("aiproxy: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("aiproxy: calling AI service: %w", err)
	}
	defer resp.Body.Close()

	// One byte past the cap tells a reply that fits from one that was cut.
	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("aiproxy: reading response: %w", err)
	}
	overflow := int64(len(data)) > c.maxBytes
	if overflow {
		data = data[:c.maxBytes]
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(data)
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		return nil, &APIError{Status: resp.StatusCode, Body: snippet}
	}
	if overflow {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, c.maxBytes)
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/json"
	}
	return &Response{Body: data, ContentType: ct}, nil
}
