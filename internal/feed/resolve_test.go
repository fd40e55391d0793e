package feed

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T) *Metadata {
	t.Helper()

	body, err := os.ReadFile("testdata/releases.json")
	require.NoError(t, err)

	var meta Metadata
	require.NoError(t, json.Unmarshal(body, &meta))

	return &meta
}

// TestResolve_Found picks the installer from the newest release only.
func TestResolve_Found(t *testing.T) {
	t.Parallel()

	meta := loadFixture(t)

	arm, err := Resolve(meta, "dotnet-sdk-osx-arm64.pkg")
	require.NoError(t, err)
	require.Contains(t, arm.URL, "/8.0.415/")

	x64, err := Resolve(meta, "dotnet-sdk-osx-x64.pkg")
	require.NoError(t, err)
	require.Equal(t, "osx-x64", x64.RID)
}

// TestResolve_Failures covers every way the lookup can fail.
func TestResolve_Failures(t *testing.T) {
	t.Parallel()

	const name = "dotnet-sdk-osx-arm64.pkg"

	cases := map[string]*Metadata{
		"nil metadata": nil,
		"no releases":  {LatestSDK: "8.0.415"},
		"no sdk":       {Releases: []Release{{ReleaseVersion: "8.0.21"}}},
		"no files":     {Releases: []Release{{SDK: &SDK{Version: "8.0.415"}}}},
		"missing": {Releases: []Release{{SDK: &SDK{Files: []File{
			{Name: "dotnet-sdk-osx-x64.pkg", URL: "https://example.com/x64.pkg"},
		}}}}},
		"ambiguous": {Releases: []Release{{SDK: &SDK{Files: []File{
			{Name: name, URL: "https://example.com/a.pkg"},
			{Name: name, URL: "https://example.com/b.pkg"},
		}}}}},
		"no url": {Releases: []Release{{SDK: &SDK{Files: []File{{Name: name}}}}}},
		"only in older release": {Releases: []Release{
			{SDK: &SDK{Files: []File{{Name: "other.pkg", URL: "https://example.com/o.pkg"}}}},
			{SDK: &SDK{Files: []File{{Name: name, URL: "https://example.com/a.pkg"}}}},
		}},
	}

	for label, meta := range cases {
		_, err := Resolve(meta, name)
		require.ErrorIs(t, err, ErrArtifactNotFound, label)
	}
}

// TestPointerMatchesNewest flags a latest-sdk pointer that disagrees with the first release.
func TestPointerMatchesNewest(t *testing.T) {
	t.Parallel()

	meta := loadFixture(t)
	require.True(t, meta.PointerMatchesNewest())

	meta.LatestSDK = "8.0.416"
	require.False(t, meta.PointerMatchesNewest())

	var empty *Metadata
	require.False(t, empty.HasLatest())
	require.False(t, empty.PointerMatchesNewest())
}
