package feed

type (
	// Metadata is the release document of one channel.
	Metadata struct {
		ChannelVersion string    `json:"channel-version"`
		LatestRelease  string    `json:"latest-release"`
		LatestRuntime  string    `json:"latest-runtime"`
		LatestSDK      string    `json:"latest-sdk"`
		SupportPhase   string    `json:"support-phase"`
		ReleaseType    string    `json:"release-type"`
		Releases       []Release `json:"releases"`
	}

	// Release is one published release of the channel.
	Release struct {
		ReleaseDate    string `json:"release-date"`
		ReleaseVersion string `json:"release-version"`
		Security       bool   `json:"security"`
		SDK            *SDK   `json:"sdk"`
	}

	// SDK lists the SDK build shipped with a release.
	SDK struct {
		Version        string `json:"version"`
		RuntimeVersion string `json:"runtime-version"`
		Files          []File `json:"files"`
	}

	// File is a downloadable artifact.
	File struct {
		Name string `json:"name"`
		RID  string `json:"rid"`
		URL  string `json:"url"`
		// Hash is the feed's own SHA-512; it is informational only.
		Hash string `json:"hash"`
	}
)

// HasLatest reports whether the document names a latest SDK version.
func (m *Metadata) HasLatest() bool {
	return m != nil && m.LatestSDK != ""
}

// Newest returns the first release entry, or nil.
func (m *Metadata) Newest() *Release {
	if m == nil || len(m.Releases) == 0 {
		return nil
	}

	return &m.Releases[0]
}

// PointerMatchesNewest reports whether the newest release entry carries the
// SDK named by latest-sdk. A mismatch is tolerated but worth a warning.
func (m *Metadata) PointerMatchesNewest() bool {
	newest := m.Newest()
	if newest == nil || newest.SDK == nil {
		return false
	}

	return newest.SDK.Version == m.LatestSDK
}
