// Package config loads verbump settings using koanf.
// Priority: CLI flags (applied by the caller) > environment variables
// (VERBUMP_*) > project config (.verbump.yml) > defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// DefaultConfigPath is the project config file, relative to the repository
	DefaultConfigPath = ".verbump.yml"

	envPrefix = "VERBUMP_"
)

// Git backends
const (
	BackendGoGit = "go-git"
	BackendCLI   = "cli"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Configuration holds the release settings
type Configuration struct {
	// Changelog is the changelog file, relative to the repository
	Changelog string `koanf:"changelog"`
	// Manifest is the package manifest holding version and homepage
	Manifest string `koanf:"manifest"`

	Git    GitConfig    `koanf:"git"`
	GitHub GitHubConfig `koanf:"github"`

	Verbose bool `koanf:"verbose"`
}

// GitConfig selects how the repository is read and written
type GitConfig struct {
	// Backend is "go-git" (default) or "cli" to shell out to git
	Backend string `koanf:"backend"`
}

// GitHubConfig controls draft release publication
type GitHubConfig struct {
	// Release creates a draft GitHub release after tagging
	Release bool `koanf:"release"`
	// Token authenticates against the GitHub API; GITHUB_TOKEN is used when empty
	Token string `koanf:"token"`
}

// GetDefaults returns the default configuration values keyed by koanf path
func GetDefaults() map[string]any {
	return map[string]any{
		"changelog":      "CHANGELOG.md",
		"manifest":       "package.json",
		"git.backend":    BackendGoGit,
		"github.release": false,
		"github.token":   "",
		"verbose":        false,
	}
}

// Load reads configuration from defaults, the optional project file at
// path and VERBUMP_* environment variables. A missing file is not an error.
func Load(path string) (*Configuration, error) {
	k := koanf.New(".")

	for key, value := range GetDefaults() {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("failed to set default %s: %w", key, err)
		}
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config %s: %w", path, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment config: %w", err)
	}

	var cfg Configuration
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envTransform maps VERBUMP_GIT_BACKEND to git.backend
func envTransform(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".")
}

// Validate checks values that cannot be defaulted
func (c *Configuration) Validate() error {
	switch c.Git.Backend {
	case BackendGoGit, BackendCLI:
	default:
		return fmt.Errorf("%w: git.backend must be %q or %q, got %q", ErrInvalidConfig, BackendGoGit, BackendCLI, c.Git.Backend)
	}

	if strings.TrimSpace(c.Changelog) == "" {
		return fmt.Errorf("%w: changelog path is empty", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.Manifest) == "" {
		return fmt.Errorf("%w: manifest path is empty", ErrInvalidConfig)
	}
	return nil
}

// GitHubToken returns the configured token, falling back to GITHUB_TOKEN
func (c *Configuration) GitHubToken() string {
	if c.GitHub.Token != "" {
		return c.GitHub.Token
	}
	return os.Getenv("GITHUB_TOKEN")
}
