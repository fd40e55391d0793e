package reconcile

// State is a step of the per-channel state machine.
type State int

const (
	// Idle is the state before any work.
	Idle State = iota
	// Checking reads the cask and fetches the feed.
	Checking
	// UpToDate means the cask already names the latest version.
	UpToDate
	// Skipped means the feed could not be read; try again on a later run.
	Skipped
	// Stale means an update is needed.
	Stale
	// Resolving finds the installer entries per architecture.
	Resolving
	// Hashing downloads and hashes the installers.
	Hashing
	// Updating rewrites the cask.
	Updating
	// Verifying re-reads the cask.
	Verifying
	// Done means the cask was updated and verified.
	Done
	// Failed means the channel could not be reconciled.
	Failed
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Checking:
		return "checking"
	case UpToDate:
		return "up-to-date"
	case Skipped:
		return "skipped"
	case Stale:
		return "stale"
	case Resolving:
		return "resolving"
	case Hashing:
		return "hashing"
	case Updating:
		return "updating"
	case Verifying:
		return "verifying"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}
