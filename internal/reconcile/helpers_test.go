package reconcile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/junian/homebrew-dotnet/internal/cask"
	"github.com/junian/homebrew-dotnet/internal/digest"
	"github.com/junian/homebrew-dotnet/internal/feed"
)

const (
	armPkg   = "dotnet-sdk-osx-arm64.pkg"
	intelPkg = "dotnet-sdk-osx-x64.pkg"
	oldArm   = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	oldIntel = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

const caskTemplate = `cask "dotnet-sdk@%s" do
  arch arm: "arm64", intel: "x64"

  version "%s"
  sha256 arm:   "%s",
         intel: "%s"

  url "https://builds.dotnet.microsoft.com/dotnet/Sdk/#{version}/dotnet-sdk-#{version}-osx-#{arch}.pkg"
  name ".NET SDK"
end
`

// feedServer serves release documents and installer payloads.
type feedServer struct {
	*httptest.Server

	mu        sync.Mutex
	docs      map[string]*feed.Metadata
	payloads  map[string][]byte
	docStatus map[string]int

	metadataHits atomic.Int64
	downloads    atomic.Int64
}

func newFeedServer(t *testing.T) *feedServer {
	t.Helper()

	fs := &feedServer{
		docs:      make(map[string]*feed.Metadata),
		payloads:  make(map[string][]byte),
		docStatus: make(map[string]int),
	}

	fs.Server = httptest.NewServer(http.HandlerFunc(fs.handle))
	t.Cleanup(fs.Close)

	return fs
}

func (fs *feedServer) handle(w http.ResponseWriter, r *http.Request) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if channel, ok := strings.CutSuffix(strings.TrimPrefix(r.URL.Path, "/meta/"), "/releases.json"); ok {
		fs.metadataHits.Add(1)

		if status := fs.docStatus[channel]; status != 0 {
			w.WriteHeader(status)
			return
		}

		doc, found := fs.docs[channel]
		if !found {
			http.NotFound(w, r)
			return
		}

		_ = json.NewEncoder(w).Encode(doc)

		return
	}

	payload, ok := fs.payloads[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}

	fs.downloads.Add(1)
	_, _ = w.Write(payload)
}

// publish makes version the latest SDK of channel with one installer per
// architecture and returns the expected arm and intel digests.
func (fs *feedServer) publish(channel, version string, names ...string) (string, string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if len(names) == 0 {
		names = []string{armPkg, intelPkg}
	}

	files := make([]feed.File, 0, len(names))
	sums := make(map[string]string, len(names))

	for _, name := range names {
		path := fmt.Sprintf("/sdk/%s/%s", version, name)
		payload := []byte(strings.Repeat(version+"/"+name+"\n", 4096))
		sum := sha256.Sum256(payload)

		fs.payloads[path] = payload
		sums[name] = hex.EncodeToString(sum[:])
		files = append(files, feed.File{Name: name, URL: fs.URL + path})
	}

	fs.docs[channel] = &feed.Metadata{
		ChannelVersion: channel,
		LatestSDK:      version,
		Releases:       []feed.Release{{SDK: &feed.SDK{Version: version, Files: files}}},
	}

	return sums[armPkg], sums[intelPkg]
}

func (fs *feedServer) failChannel(channel string, status int) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.docStatus[channel] = status
}

func (fs *feedServer) dropPayload(version, name string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	delete(fs.payloads, fmt.Sprintf("/sdk/%s/%s", version, name))
}

// countingStore counts writes made through a real cask.Store.
type countingStore struct {
	*cask.Store

	writes atomic.Int64
}

func (s *countingStore) Write(path string, rec cask.Record) error {
	s.writes.Add(1)
	return s.Store.Write(path, rec)
}

// lossyStore accepts writes without persisting them.
type lossyStore struct {
	*cask.Store
}

func (lossyStore) Write(string, cask.Record) error { return nil }

// memoryCache is an in-memory DigestCache.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string]string
}

func (c *memoryCache) Get(_ context.Context, url string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sum, ok := c.entries[url]
	if !ok {
		return "", fmt.Errorf("miss: %s", url)
	}

	return sum, nil
}

func (c *memoryCache) Put(_ context.Context, url, sum string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entries == nil {
		c.entries = make(map[string]string)
	}

	c.entries[url] = sum

	return nil
}

type fixture struct {
	dir   string
	feed  *feedServer
	store *countingStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	return &fixture{
		dir:   t.TempDir(),
		feed:  newFeedServer(t),
		store: &countingStore{Store: cask.NewStore()},
	}
}

func (f *fixture) caskPath(channel string) string {
	return filepath.Join(f.dir, "dotnet-sdk@"+channel+".rb")
}

func (f *fixture) writeCask(t *testing.T, channel, version string) {
	t.Helper()

	content := fmt.Sprintf(caskTemplate, channel, version, oldArm, oldIntel)
	require.NoError(t, os.WriteFile(f.caskPath(channel), []byte(content), 0o644))
}

func (f *fixture) readCask(t *testing.T, channel string) string {
	t.Helper()

	content, err := os.ReadFile(f.caskPath(channel))
	require.NoError(t, err)

	return string(content)
}

func (f *fixture) engine(t *testing.T, manifests Manifests, opts Options, extra ...Option) *Engine {
	t.Helper()

	if manifests == nil {
		manifests = f.store
	}

	opts.CaskPath = f.caskPath
	opts.PrimaryArtifact = armPkg
	opts.SecondaryArtifact = intelPkg

	e, err := New(
		manifests,
		feed.NewClient(feed.WithBaseURL(f.feed.URL+"/meta")),
		digest.NewDownloader(),
		opts,
		extra...,
	)
	require.NoError(t, err)

	return e
}
