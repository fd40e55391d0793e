package lock

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/junian/homebrew-dotnet/internal/logger"
)

const (
	// MarkerFilename is created inside the casks directory during a run.
	MarkerFilename = ".update-casks.lock"

	// MarkerLifetime is the age after which a marker is ignored.
	MarkerLifetime = time.Hour

	markerPermissions = 0o644
)

// ErrAlreadyRunning is returned while another live run holds the marker.
var ErrAlreadyRunning = errors.New("another update-casks run is in progress")

// Marker is a held run marker.
type Marker struct {
	path string
}

// Acquire creates the marker in dir, clearing a stale one first.
func Acquire(ctx context.Context, dir string) (*Marker, error) {
	path := filepath.Join(dir, MarkerFilename)

	if err := clearStale(ctx, path); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, markerPermissions)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, ErrAlreadyRunning
		}

		return nil, fmt.Errorf("create run marker: %w", err)
	}

	_, err = f.WriteString(strconv.Itoa(os.Getpid()))
	if cerr := f.Close(); err == nil {
		err = cerr
	}

	if err != nil {
		_ = os.Remove(path)

		return nil, fmt.Errorf("write run marker: %w", err)
	}

	logger.DebugKV(ctx, "Run marker created", "path", path)

	return &Marker{path: path}, nil
}

// Release removes the marker.
func (m *Marker) Release(ctx context.Context) {
	if m == nil {
		return
	}

	if err := os.Remove(m.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.WarnKV(ctx, "Unable to remove run marker", "path", m.path, "error", err)
	}
}

// clearStale removes the marker at path unless it belongs to a live run.
func clearStale(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("stat run marker: %w", err)
	}

	if time.Since(info.ModTime()) <= MarkerLifetime && ownerAlive(path) {
		return ErrAlreadyRunning
	}

	logger.InfoKV(ctx, "Removing stale run marker", "path", path)

	if err = os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove stale run marker: %w", err)
	}

	return nil
}

// ownerAlive reports whether the PID recorded in the marker is a running process.
func ownerAlive(path string) bool {
	contents, err := os.ReadFile(path)
	if err != nil {
		return false
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(contents)))
	if err != nil || pid <= 0 {
		return false
	}

	process, err := ps.FindProcess(pid)

	return err == nil && process != nil
}
