package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the official release metadata root.
	DefaultBaseURL = "https://builds.dotnet.microsoft.com/dotnet/release-metadata"

	// defaultTimeout bounds a metadata request when no timeout is configured.
	defaultTimeout = 30 * time.Second

	// maxJSONResponseBytes caps the metadata document size (32 MB).
	maxJSONResponseBytes = 32 << 20
)

var (
	// ErrTransport marks a failed request or a non-success response.
	ErrTransport = errors.New("feed unavailable")
	// ErrDecode marks a response body that is not a release document.
	ErrDecode = errors.New("malformed release metadata")
)

type (
	// StatusError is returned when the feed answers with a non-2xx status.
	StatusError struct {
		URL        string
		StatusCode int
	}

	// Client reads release metadata documents.
	Client struct {
		httpClient *http.Client
		baseURL    string
		userAgent  string
		timeout    time.Duration
	}

	// ClientOption configures a Client during construction.
	ClientOption func(*Client)
)

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Unwrap classifies status failures as transport failures.
func (e *StatusError) Unwrap() error { return ErrTransport }

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// WithBaseURL overrides the metadata root, primarily for test servers.
func WithBaseURL(base string) ClientOption {
	return func(cl *Client) {
		cl.baseURL = strings.TrimRight(base, "/")
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(cl *Client) {
		cl.userAgent = ua
	}
}

// WithTimeout bounds each metadata request.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(cl *Client) {
		if timeout > 0 {
			cl.timeout = timeout
		}
	}
}

// NewClient creates a Client pointed at the official feed.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		baseURL:    DefaultBaseURL,
		userAgent:  "homebrew-dotnet",
		timeout:    defaultTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// URL returns the metadata document location for channel.
func (c *Client) URL(channel string) string {
	return c.baseURL + "/" + url.PathEscape(channel) + "/releases.json"
}

// Fetch performs a single read of the channel's release document. Failures
// wrap ErrTransport or ErrDecode; neither is retried here.
func (c *Client) Fetch(ctx context.Context, channel string) (*Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	docURL := c.URL(channel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, docURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w: %w", ErrTransport, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w: %w", docURL, ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &StatusError{URL: docURL, StatusCode: resp.StatusCode}
	}

	var meta Metadata
	if err = json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(&meta); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("reading %s: %w: %w", docURL, ErrTransport, err)
		}

		return nil, fmt.Errorf("decoding %s: %w: %w", docURL, ErrDecode, err)
	}

	return &meta, nil
}
