package cask

import (
	"bytes"
	"crypto"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"
)

// ErrNotFound is returned when the cask file does not exist.
var ErrNotFound = errors.New("cask not found")

// Store reads and writes cask files on the local filesystem.
type Store struct{}

// NewStore returns a Store.
func NewStore() *Store {
	return &Store{}
}

// Read loads the Record of the cask at path.
func (s *Store) Read(path string) (Record, error) {
	content, err := s.load(path)
	if err != nil {
		return Record{}, err
	}

	return Parse(string(content)), nil
}

// Write re-reads the cask at path, substitutes the stanzas of rec and
// replaces the whole file in one step. Unchanged content is not rewritten.
func (s *Store) Write(path string, rec Record) error {
	path = filepath.Clean(path)

	content, err := s.load(path)
	if err != nil {
		return err
	}

	updated := []byte(Apply(string(content), rec))
	if bytes.Equal(updated, content) {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat cask: %w", err)
	}

	checksum := sha256.Sum256(updated)

	// go-update stages the new file next to the target and swaps it in with
	// renames, so readers see either the old or the new cask. Without
	// OldSavePath it removes the backup itself.
	options := goupdate.Options{
		TargetPath: path,
		TargetMode: info.Mode().Perm(),
		Checksum:   checksum[:],
		Hash:       crypto.SHA256,
	}

	if err = goupdate.Apply(bytes.NewReader(updated), options); err != nil {
		return fmt.Errorf("write cask %s: %w", path, err)
	}

	return nil
}

func (s *Store) load(path string) ([]byte, error) {
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}

		return nil, fmt.Errorf("read cask: %w", err)
	}

	return content, nil
}
