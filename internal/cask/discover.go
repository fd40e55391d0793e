package cask

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/mod/semver"
)

// Discover lists the channels that have a cask in dir. pattern maps a channel
// to a filename and must contain exactly one %s. Channels are returned newest
// first; channels that do not look like versions sort last, by name.
func Discover(fsys afero.Fs, dir, pattern string) ([]string, error) {
	prefix, suffix, ok := strings.Cut(pattern, "%s")
	if !ok {
		return nil, fmt.Errorf("pattern %q has no channel placeholder", pattern)
	}

	matches, err := afero.Glob(fsys, filepath.Join(dir, prefix+"*"+suffix))
	if err != nil {
		return nil, fmt.Errorf("list casks: %w", err)
	}

	channels := make([]string, 0, len(matches))

	for _, match := range matches {
		name := filepath.Base(match)

		channel := strings.TrimSuffix(strings.TrimPrefix(name, prefix), suffix)
		if channel == "" {
			continue
		}

		if info, statErr := fsys.Stat(match); statErr != nil || info.IsDir() {
			continue
		}

		channels = append(channels, channel)
	}

	slices.SortFunc(channels, compareChannels)

	return channels, nil
}

// compareChannels orders "10.0" before "9.0" before "8.0".
func compareChannels(a, b string) int {
	va, vb := "v"+a, "v"+b

	switch okA, okB := semver.IsValid(va), semver.IsValid(vb); {
	case okA && okB:
		if c := semver.Compare(vb, va); c != 0 {
			return c
		}
	case okA:
		return -1
	case okB:
		return 1
	}

	return strings.Compare(a, b)
}
