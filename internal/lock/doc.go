// Package lock keeps two reconciler runs from rewriting the same casks
// directory at once.
//
// A marker file holding the owner's PID is created next to the casks. A
// marker whose process is gone, or that is older than MarkerLifetime, is
// treated as left over from a crashed run and replaced.
package lock
