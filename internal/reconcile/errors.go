package reconcile

import (
	"errors"
	"fmt"
)

var (
	// ErrVerificationMismatch is returned when the re-read cask differs from
	// what was written.
	ErrVerificationMismatch = errors.New("cask verification mismatch")

	// ErrNoHashStanza is returned when a stale cask has no sha256 arm/intel
	// stanza, so a write would update the version alone.
	ErrNoHashStanza = errors.New("cask has no sha256 arm/intel stanza")

	// ErrNoVersionStanza is returned when a stale cask has no version stanza,
	// so a write would update the digests alone.
	ErrNoVersionStanza = errors.New("cask has no version stanza")

	// errInvalidDigest is returned when a digest is not 64 lowercase hex characters.
	errInvalidDigest = errors.New("invalid digest")
)

// MismatchError describes a field that did not persist.
type MismatchError struct {
	Field string
	Want  string
	Got   string
}

// Error implements error.
func (e *MismatchError) Error() string {
	return fmt.Sprintf("persisted %s is %q, want %q", e.Field, e.Got, e.Want)
}

// Unwrap returns ErrVerificationMismatch so callers can use errors.Is.
func (e *MismatchError) Unwrap() error { return ErrVerificationMismatch }
