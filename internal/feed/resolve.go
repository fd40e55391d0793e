package feed

import (
	"errors"
	"fmt"
)

var (
	// ErrArtifactNotFound is returned when the required installer is missing
	// from the newest release or named more than once.
	ErrArtifactNotFound = errors.New("artifact not found")

	errNoReleases = errors.New("no releases listed")
	errNoSDK      = errors.New("newest release has no sdk files")
	errAmbiguous  = errors.New("artifact listed more than once")
	errNoURL      = errors.New("artifact has no url")
)

// Resolve returns the single file named filename in the SDK of the newest
// release. Only that release is consulted; the feed's ordering is trusted.
func Resolve(meta *Metadata, filename string) (File, error) {
	newest := meta.Newest()
	if newest == nil {
		return File{}, fmt.Errorf("%s: %w: %w", filename, ErrArtifactNotFound, errNoReleases)
	}

	if newest.SDK == nil || len(newest.SDK.Files) == 0 {
		return File{}, fmt.Errorf("%s: %w: %w", filename, ErrArtifactNotFound, errNoSDK)
	}

	var (
		found File
		count int
	)

	for _, f := range newest.SDK.Files {
		if f.Name == filename {
			found = f
			count++
		}
	}

	switch {
	case count == 0:
		return File{}, fmt.Errorf("%s in sdk %s: %w", filename, newest.SDK.Version, ErrArtifactNotFound)
	case count > 1:
		return File{}, fmt.Errorf("%s in sdk %s: %w: %w", filename, newest.SDK.Version, ErrArtifactNotFound, errAmbiguous)
	case found.URL == "":
		return File{}, fmt.Errorf("%s in sdk %s: %w: %w", filename, newest.SDK.Version, ErrArtifactNotFound, errNoURL)
	}

	return found, nil
}
