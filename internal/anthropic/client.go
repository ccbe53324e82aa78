// Package anthropic implements a minimal client for the Anthropic messages
// API: one structured request in, raw text or a typed error out. No
// retries, no streaming.
package anthropic

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/starford/fiche/internal/apperr"
)

const (
	defaultBaseURL = "https://api.anthropic.com/v1/messages"
	apiVersion     = "2023-06-01"

	// ModelGeneration is the default document-generation model tier.
	ModelGeneration = "claude-sonnet-4-20250514"
	// ModelEconomy is the cheaper tier used for classification and when
	// the user selects it in settings.
	ModelEconomy = "claude-3-5-haiku-latest"
)

// ImageSource is a base64-embedded JPEG image.
type ImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// ContentPart is one typed part of a message: text or image.
type ContentPart struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *ImageSource `json:"source,omitempty"`
}

// TextPart builds a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: "text", Text: text}
}

// ImagePart builds a base64 JPEG content part.
func ImagePart(jpegData []byte) ContentPart {
	return ContentPart{
		Type: "image",
		Source: &ImageSource{
			Type:      "base64",
			MediaType: "image/jpeg",
			Data:      base64.StdEncoding.EncodeToString(jpegData),
		},
	}
}

// Message is one conversation message. Content is either a plain string or
// an ordered []ContentPart.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// Request is a single generation request. Immutable once built.
type Request struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
}

// KeyFunc resolves the configured API key at call time. An empty result
// means no credential is configured.
type KeyFunc func() string

// Client issues single-shot generation calls.
type Client struct {
	key     KeyFunc
	baseURL string
	httpc   *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint (tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient overrides the internal HTTP client (e.g. for custom
// timeouts or tracing).
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) {
		if httpc != nil {
			c.httpc = httpc
		}
	}
}

// New creates a client. key is consulted on every call, so credential
// changes in settings take effect without rebuilding the client.
func New(key KeyFunc, opts ...Option) *Client {
	c := &Client{
		key:     key,
		baseURL: defaultBaseURL,
		httpc: &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 120 * time.Second,
				IdleConnTimeout:       90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type responseEnvelope struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Generate sends one request and returns the raw text of the first content
// part. Failures map to the apperr kinds; a well-formed 200 response with
// no content is a defect of the remote service and surfaces as a plain
// error.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	apiKey := c.key()
	if apiKey == "" {
		return "", apperr.ErrMissingCredential
	}

	resp, err := c.post(ctx, apiKey, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode); err != nil {
		// Per contract the body of a failed call is not parsed.
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", err
	}

	var env responseEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return "", fmt.Errorf("anthropic: decode response: %w", err)
	}
	if len(env.Content) == 0 {
		return "", fmt.Errorf("anthropic: response has no content parts")
	}
	return env.Content[0].Text, nil
}

// VerifyCredential probes key validity with a minimal-cost request. It
// returns false only on an authorization rejection; any other outcome,
// including transport failures, is treated as presumed valid so transient
// errors never read as a bad key.
func (c *Client) VerifyCredential(ctx context.Context, key string) bool {
	probe := Request{
		Model:     ModelEconomy,
		MaxTokens: 10,
		Messages:  []Message{{Role: "user", Content: "Test"}},
	}
	resp, err := c.post(ctx, key, probe)
	if err != nil {
		return true
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode != http.StatusUnauthorized
}

func (c *Client) post(ctx context.Context, apiKey string, req Request) (*http.Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("anthropic: marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("anthropic: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("anthropic: %w: %v", apperr.ErrNetworkUnreachable, err)
	}
	return resp, nil
}

func statusError(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized:
		return apperr.ErrInvalidCredential
	case status == http.StatusTooManyRequests:
		return apperr.ErrRateLimited
	case status == http.StatusRequestEntityTooLarge:
		return apperr.ErrPayloadTooLarge
	default:
		return &apperr.TransportError{Status: status}
	}
}
