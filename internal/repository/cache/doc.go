// Package cache remembers artifact digests by download URL.
//
// A digest computed in an earlier run (for example one whose second download
// failed) is reused instead of downloading the artifact again. FileRepository
// keeps the map in a YAML file, RedisRepository in Redis; both satisfy
// Repository.
package cache
