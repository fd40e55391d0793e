package reconcile

import (
	"time"

	"github.com/junian/homebrew-dotnet/internal/cask"
)

// Outcome is the result of one channel.
type Outcome struct {
	// Channel is the reconciled channel.
	Channel string
	// Path is the channel's cask file.
	Path string
	// State is terminal: UpToDate, Skipped, Stale, Done or Failed.
	State State
	// FailedAt is the step that failed when State is Failed.
	FailedAt State
	// Previous is the cask as read before any change.
	Previous cask.Record
	// Current is the cask after the run.
	Current cask.Record
	// Latest is the feed's latest SDK version, if known.
	Latest string
	// Err explains Failed and Skipped outcomes.
	Err error
	// Duration is the wall time spent on the channel.
	Duration time.Duration
}

// Changed reports whether the cask was rewritten.
func (o *Outcome) Changed() bool {
	return o.State == Done
}

// Report aggregates the outcomes of one run.
type Report struct {
	// RunID identifies the run in logs.
	RunID string
	// Started and Finished bound the run.
	Started, Finished time.Time
	// Outcomes are in channel order.
	Outcomes []Outcome
}

// Count returns how many channels ended in state.
func (r *Report) Count(state State) int {
	n := 0

	for i := range r.Outcomes {
		if r.Outcomes[i].State == state {
			n++
		}
	}

	return n
}

// Failed returns the failed outcomes.
func (r *Report) Failed() []Outcome {
	return r.filter(Failed)
}

// Updated returns the outcomes whose cask was rewritten.
func (r *Report) Updated() []Outcome {
	return r.filter(Done)
}

func (r *Report) filter(state State) []Outcome {
	var out []Outcome

	for _, o := range r.Outcomes {
		if o.State == state {
			out = append(out, o)
		}
	}

	return out
}
