// Package report renders the per-channel summary printed at the end of a run.
package report
