// Package feed fetches per-channel .NET release metadata and picks the
// installer entries needed for each architecture.
//
// The feed publishes one document per channel at
// <base>/<channel>/releases.json with the releases listed most recent first.
// The "latest-sdk" pointer is trusted as the channel's current version.
package feed
