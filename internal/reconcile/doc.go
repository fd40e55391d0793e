// Package reconcile brings cask files in line with the release feed.
//
// For every channel the Engine reads the cask, fetches the channel's release
// document and, when the feed names a different SDK version, resolves the
// arm and intel installers of the newest release, hashes both, rewrites the
// cask in one step and reads it back to confirm the write. A failure ends
// only that channel; the remaining channels are still processed.
package reconcile
