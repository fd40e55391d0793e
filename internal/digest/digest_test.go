package digest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestSum matches the standard library digest and is deterministic.
func TestSum(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte("dotnet-sdk"), 100_000)
	want := sha256.Sum256(payload)

	first, err := Sum(bytes.NewReader(payload))
	require.NoError(t, err)
	second, err := Sum(bytes.NewReader(payload))
	require.NoError(t, err)

	require.Equal(t, hex.EncodeToString(want[:]), first)
	require.Equal(t, first, second)
	require.Len(t, first, Size)
	require.True(t, IsDigest(first))

	empty, err := Sum(strings.NewReader(""))
	require.NoError(t, err)
	require.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", empty)
}

// TestIsDigest rejects wrong lengths and uppercase or non-hex characters.
func TestIsDigest(t *testing.T) {
	t.Parallel()

	require.True(t, IsDigest(strings.Repeat("a", 64)))
	require.False(t, IsDigest(strings.Repeat("a", 63)))
	require.False(t, IsDigest(strings.Repeat("A", 64)))
	require.False(t, IsDigest(strings.Repeat("g", 64)))
	require.False(t, IsDigest(""))
}

// TestDownloadAndHash streams a served artifact through the hash.
func TestDownloadAndHash(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte{0x5a}, 3<<20)
	want := sha256.Sum256(payload)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	d := NewDownloader(WithUserAgent("test-agent"))

	got, err := d.DownloadAndHash(context.Background(), srv.URL+"/dotnet-sdk-osx-arm64.pkg")
	require.NoError(t, err)
	require.Equal(t, hex.EncodeToString(want[:]), got)
}

// TestDownloadAndHash_InvalidURL rejects empty and relative URLs before any request.
func TestDownloadAndHash_InvalidURL(t *testing.T) {
	t.Parallel()

	d := NewDownloader()

	for _, raw := range []string{"", "dotnet-sdk.pkg", "/relative/path", "://bad"} {
		_, err := d.DownloadAndHash(context.Background(), raw)
		require.ErrorIs(t, err, ErrInvalidURL, raw)
	}
}

// TestDownloadAndHash_BadStatus fails with ErrTransport on a non-success status.
func TestDownloadAndHash_BadStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	_, err := NewDownloader().DownloadAndHash(context.Background(), srv.URL+"/a.pkg?token=secret")
	require.ErrorIs(t, err, ErrTransport)
	require.NotContains(t, err.Error(), "secret")
}

// TestDownloadAndHash_Timeout aborts a download that stalls mid-body.
func TestDownloadAndHash_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1024")
		_, _ = w.Write([]byte("partial"))
		w.(http.Flusher).Flush()

		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	d := NewDownloader(WithTimeout(100 * time.Millisecond))

	_, err := d.DownloadAndHash(context.Background(), srv.URL+"/a.pkg")
	require.ErrorIs(t, err, ErrTransport)
}
