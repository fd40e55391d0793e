// Package cask reads and rewrites the version and sha256 stanzas of
// Homebrew cask files.
//
// Only two stanzas are understood:
//
//	version "8.0.415"
//	sha256 arm:   "<hex>",
//	       intel: "<hex>"
//
// Everything else in the file is passed through byte for byte. Parsing never
// fails on content: a missing stanza yields empty fields.
package cask
