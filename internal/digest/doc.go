// Package digest streams remote artifacts through SHA-256 without keeping
// them in memory and returns the lowercase hex digest.
package digest
