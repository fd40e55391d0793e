package digest

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	sha256 "github.com/minio/sha256-simd"
)

const (
	// DefaultTimeout bounds one artifact download from request to last byte.
	DefaultTimeout = 5 * time.Minute

	// Size is the length of a hex-encoded SHA-256 digest.
	Size = sha256.Size * 2
)

var (
	// ErrInvalidURL is returned for an empty or non-absolute artifact URL.
	ErrInvalidURL = errors.New("invalid artifact url")
	// ErrTransport marks a failed download.
	ErrTransport = errors.New("artifact download failed")
)

type (
	// Downloader hashes remote artifacts.
	Downloader struct {
		httpClient *http.Client
		userAgent  string
		timeout    time.Duration
	}

	// Option configures a Downloader during construction.
	Option func(*Downloader)
)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Downloader) {
		if c != nil {
			d.httpClient = c
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every download.
func WithUserAgent(ua string) Option {
	return func(d *Downloader) {
		d.userAgent = ua
	}
}

// WithTimeout bounds each download.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Downloader) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// NewDownloader creates a Downloader with a five minute timeout.
func NewDownloader(opts ...Option) *Downloader {
	d := &Downloader{
		httpClient: http.DefaultClient,
		userAgent:  "homebrew-dotnet",
		timeout:    DefaultTimeout,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// DownloadAndHash downloads rawURL and returns the digest of its body.
// The body is hashed as it arrives; the digest exists only once the whole
// stream has been consumed.
func (d *Downloader) DownloadAndHash(ctx context.Context, rawURL string) (string, error) {
	if err := validateURL(rawURL); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("creating request: %w: %w", ErrInvalidURL, err)
	}

	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w: %w", redactURL(rawURL), ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("downloading %s: %w: unexpected status %d",
			redactURL(rawURL), ErrTransport, resp.StatusCode)
	}

	sum, err := Sum(resp.Body)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w: %w", redactURL(rawURL), ErrTransport, err)
	}

	return sum, nil
}

// Sum returns the hex SHA-256 digest of everything read from r.
func Sum(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// IsDigest reports whether s is a lowercase hex SHA-256 digest.
func IsDigest(s string) bool {
	if len(s) != Size {
		return false
	}

	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}

	return true
}

func validateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("%w: empty", ErrInvalidURL)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}

	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%w: %s is not absolute", ErrInvalidURL, redactURL(rawURL))
	}

	return nil
}

// redactURL strips query parameters and fragments for log and error output.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}

	u.RawQuery = ""
	u.Fragment = ""

	return u.String()
}
