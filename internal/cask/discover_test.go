package cask

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// TestDiscover lists channels from cask filenames, newest first.
func TestDiscover(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()

	for _, name := range []string{
		"Casks/dotnet-sdk@8.0.rb",
		"Casks/dotnet-sdk@10.0.rb",
		"Casks/dotnet-sdk@9.0.rb",
		"Casks/dotnet-sdk@2.1.rb",
		"Casks/dotnet-sdk@preview.rb",
		"Casks/dotnet-runtime@8.0.rb",
		"Casks/README.md",
	} {
		require.NoError(t, afero.WriteFile(fsys, name, []byte("cask"), 0o644))
	}

	require.NoError(t, fsys.MkdirAll("Casks/dotnet-sdk@7.0.rb", 0o755))

	got, err := Discover(fsys, "Casks", "dotnet-sdk@%s.rb")
	require.NoError(t, err)
	require.Equal(t, []string{"10.0", "9.0", "8.0", "2.1", "preview"}, got)
}

// TestDiscover_Empty returns no channels for an empty directory.
func TestDiscover_Empty(t *testing.T) {
	t.Parallel()

	got, err := Discover(afero.NewMemMapFs(), "Casks", "dotnet-sdk@%s.rb")
	require.NoError(t, err)
	require.Empty(t, got)

	_, err = Discover(afero.NewMemMapFs(), "Casks", "dotnet-sdk.rb")
	require.Error(t, err)
}
