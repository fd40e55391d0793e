// Package config defines the settings of the cask reconciler and provides
// helpers to load, validate and save them in YAML format.
//
// A missing settings file is not an error: every field has a default that
// reproduces the stock setup (three tracked .NET channels, the official
// release-metadata feed, macOS arm64/x64 SDK installers). Values from a .env
// file and UPDATE_CASKS_* environment variables override the file.
package config
