package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Repository defines digest cache operations.
type Repository interface {
	Get(ctx context.Context, url string) (string, error)
	Put(ctx context.Context, url, digest string) error
}

// ErrNotFound is returned when no digest is cached for a URL.
var ErrNotFound = errors.New("digest not cached")

// filePermissions is the mode of a newly created cache file.
const filePermissions = 0o644

// FileRepository persists digests in a YAML file on disk.
type FileRepository struct {
	// path is the filesystem location of the YAML cache file.
	path string
	// mu protects entries and the cache file.
	mu sync.Mutex
	// entries is loaded on first use.
	entries map[string]string
}

// NewFileRepository creates a repository that reads/writes YAML at path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Get returns the cached digest for url.
func (r *FileRepository) Get(_ context.Context, url string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(); err != nil {
		return "", err
	}

	digest, ok := r.entries[url]
	if !ok {
		return "", ErrNotFound
	}

	return digest, nil
}

// Put stores digest for url and rewrites the cache file.
func (r *FileRepository) Put(_ context.Context, url, digest string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(); err != nil {
		return err
	}

	if r.entries[url] == digest {
		return nil
	}

	r.entries[url] = digest

	data, err := yaml.Marshal(r.entries)
	if err != nil {
		return fmt.Errorf("encode digest cache: %w", err)
	}

	if err = os.WriteFile(r.path, data, filePermissions); err != nil {
		return fmt.Errorf("write digest cache: %w", err)
	}

	return nil
}

func (r *FileRepository) load() error {
	if r.entries != nil {
		return nil
	}

	contents, err := os.ReadFile(r.path)

	switch {
	case errors.Is(err, fs.ErrNotExist):
		r.entries = make(map[string]string)
		return nil
	case err != nil:
		return fmt.Errorf("read digest cache: %w", err)
	}

	entries := make(map[string]string)
	if err = yaml.Unmarshal(contents, &entries); err != nil {
		return fmt.Errorf("decode digest cache: %w", err)
	}

	r.entries = entries

	return nil
}
