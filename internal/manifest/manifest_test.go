package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "package.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeManifest(t, `{
		"name": "widget",
		"version": "1.2.3",
		"homepage": "https://github.com/acme/widget#readme",
		"scripts": {"release": "verbump"}
	}`)

	m, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "widget", m.Name)
	assert.Equal(t, "1.2.3", m.Version)
	assert.Equal(t, path, m.Path)
	assert.Equal(t, "https://github.com/acme/widget", m.RepoURL())
}

func TestLoad_MissingHomepage(t *testing.T) {
	tests := map[string]string{
		"absent": `{"version": "1.0.0"}`,
		"empty":  `{"version": "1.0.0", "homepage": "  "}`,
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeManifest(t, content))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMissingHomepage)
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "package.json"))
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrMissingHomepage)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := Load(writeManifest(t, `{"version": `))
		require.Error(t, err)
	})
}

func TestRepoURL(t *testing.T) {
	tests := map[string]string{
		"https://github.com/acme/widget":          "https://github.com/acme/widget",
		"https://github.com/acme/widget#readme":   "https://github.com/acme/widget",
		"https://github.com/acme/widget/#section": "https://github.com/acme/widget",
		"https://gitlab.com/acme/widget/":         "https://gitlab.com/acme/widget",
	}

	for homepage, want := range tests {
		m := &Manifest{Homepage: homepage}
		assert.Equal(t, want, m.RepoURL(), homepage)
	}
}

func TestFiles(t *testing.T) {
	m := &Manifest{Path: filepath.Join("app", "package.json")}

	assert.Equal(t, []string{
		filepath.Join("app", "package.json"),
		filepath.Join("app", "package-lock.json"),
		"CHANGELOG.md",
	}, m.Files("CHANGELOG.md"))
}
