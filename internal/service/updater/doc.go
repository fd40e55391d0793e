// Package updater is the entry point of one update-casks run.
//
// It loads settings, takes the run marker in the casks directory, selects the
// channels and the digest cache, runs the reconciliation engine and renders
// the summary. Per-channel failures never abort the run.
package updater
