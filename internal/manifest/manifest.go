// Package manifest reads the package manifest that stores the current
// version and repository homepage, and bumps the stored version.
package manifest

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var ErrMissingHomepage = errors.New("no repository homepage specified in the manifest")

// LockFile is staged alongside the manifest when present
const LockFile = "package-lock.json"

// Manifest is the subset of package.json used for releases
type Manifest struct {
	Path     string `koanf:"-"`
	Name     string `koanf:"name"`
	Version  string `koanf:"version"`
	Homepage string `koanf:"homepage"`
}

// Load reads the manifest at path. A manifest without a homepage is
// rejected because every changelog link is built from it.
func Load(path string) (*Manifest, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), json.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load manifest %s: %w", path, err)
	}

	m := &Manifest{Path: path}
	if err := k.Unmarshal("", m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest %s: %w", path, err)
	}

	if strings.TrimSpace(m.Homepage) == "" {
		return nil, fmt.Errorf("%w (%s)", ErrMissingHomepage, path)
	}
	return m, nil
}

// RepoURL is the homepage without any fragment, e.g. "#readme"
func (m *Manifest) RepoURL() string {
	url, _, _ := strings.Cut(m.Homepage, "#")
	return strings.TrimSuffix(url, "/")
}

// Files returns the paths committed with a release
func (m *Manifest) Files(changelogPath string) []string {
	return []string{
		m.Path,
		filepath.Join(filepath.Dir(m.Path), LockFile),
		changelogPath,
	}
}

// Bumper updates the version stored in the manifest
type Bumper interface {
	SetVersion(ctx context.Context, version string) error
}

// NPM bumps the version with `npm version`, which also keeps the lock file
// in sync. Tagging is left to the release step.
type NPM struct {
	Dir string
}

// SetVersion runs `npm version <version> --git-tag-version false`
func (n NPM) SetVersion(ctx context.Context, version string) error {
	cmd := exec.CommandContext(ctx, "npm", "version", version, "--git-tag-version", "false")
	cmd.Dir = n.Dir
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("npm version %s: %w: %s", version, err, strings.TrimSpace(string(out)))
	}
	return nil
}
