package cask

import (
	"regexp"
)

var (
	versionPattern = regexp.MustCompile(`(version\s+")([^"]+)(")`)
	sha256Pattern  = regexp.MustCompile(`(sha256\s+arm:\s+")([^"]+)(",\s*intel:\s+")([^"]+)(")`)
)

// Record is the persisted state of one cask.
type Record struct {
	// Version is the quoted token after the version keyword.
	Version string
	// SHA256Arm is the digest of the arm (primary) installer.
	SHA256Arm string
	// SHA256Intel is the digest of the intel (secondary) installer.
	SHA256Intel string
}

// HasVersion reports whether a version stanza was found.
func (r Record) HasVersion() bool {
	return r.Version != ""
}

// HasHashes reports whether both digests are set.
func (r Record) HasHashes() bool {
	return r.SHA256Arm != "" && r.SHA256Intel != ""
}

// Parse extracts a Record from cask text. Stanzas that do not match leave
// their fields empty.
func Parse(content string) Record {
	var rec Record

	if m := versionPattern.FindStringSubmatch(content); m != nil {
		rec.Version = m[2]
	}

	if m := sha256Pattern.FindStringSubmatch(content); m != nil {
		rec.SHA256Arm = m[2]
		rec.SHA256Intel = m[4]
	}

	return rec
}

// Apply returns content with the stanzas of rec substituted in place.
// The version is replaced only when rec.Version is set, the digests only when
// both are set, so a one-sided hash update can never happen. Only the first
// occurrence of each stanza is touched and the surrounding text, quotes and
// alignment are preserved.
func Apply(content string, rec Record) string {
	if rec.HasVersion() {
		content = replaceGroups(content, versionPattern, map[int]string{2: rec.Version})
	}

	if rec.HasHashes() {
		content = replaceGroups(content, sha256Pattern, map[int]string{
			2: rec.SHA256Arm,
			4: rec.SHA256Intel,
		})
	}

	return content
}

// replaceGroups rebuilds the first match of re, swapping the listed capture
// groups and copying every other group verbatim.
func replaceGroups(content string, re *regexp.Regexp, values map[int]string) string {
	loc := re.FindStringSubmatchIndex(content)
	if loc == nil {
		return content
	}

	var (
		groups = re.NumSubexp()
		out    = make([]byte, 0, len(content)+64)
	)

	out = append(out, content[:loc[0]]...)

	for g := 1; g <= groups; g++ {
		if v, ok := values[g]; ok {
			out = append(out, v...)
			continue
		}

		out = append(out, content[loc[2*g]:loc[2*g+1]]...)
	}

	out = append(out, content[loc[1]:]...)

	return string(out)
}
