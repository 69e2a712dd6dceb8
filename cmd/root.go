package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Yates-Labs/verbump/internal/config"
	clierr "github.com/Yates-Labs/verbump/internal/errors"
	"github.com/Yates-Labs/verbump/internal/github"
	"github.com/Yates-Labs/verbump/internal/ingest/git"
	"github.com/Yates-Labs/verbump/internal/manifest"
	"github.com/Yates-Labs/verbump/internal/release"
)

var (
	dryRun        bool
	prerelease    string
	lastTag       string
	configPath    string
	changelogPath string
	manifestPath  string
	repoDir       string
	githubRelease bool
	verbose       bool
)

var rootCmd = &cobra.Command{
	Use:   "verbump",
	Short: "Verbump - conventional commit release tool",
	Long: `Verbump cuts a release from the commits since the last version tag.

It classifies commit subjects using conventional commits, bumps the version
in package.json (major for breaking changes, minor for features, patch
otherwise), prepends a section to CHANGELOG.md, then commits and tags
the release as v<version>.

Examples:
  verbump --dry-run
  verbump --prerelease beta
  verbump --lastTag v1.4.0 --github-release
  verbump next`,
	Args:          cobra.NoArgs,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runRelease,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVar(&dryRun, "dry-run", false, "Print the changelog section instead of writing, committing and tagging")
	flags.StringVar(&prerelease, "prerelease", "", "Cut a prerelease; the value labels the prerelease identifier")
	flags.StringVar(&lastTag, "lastTag", "", "Tag or commit to collect commits from (default: newest version tag)")
	flags.StringVar(&configPath, "config", "", "Config file (default: <repo>/"+config.DefaultConfigPath+")")
	flags.StringVar(&changelogPath, "changelog", "", "Changelog file, relative to the repository")
	flags.StringVar(&manifestPath, "manifest", "", "Package manifest, relative to the repository")
	flags.StringVar(&repoDir, "repo", "", "Repository directory (default: current directory)")
	flags.BoolVar(&githubRelease, "github-release", false, "Publish a draft GitHub release after tagging")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Log each release step to stderr")
}

// Execute runs the root command
func Execute() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		clierr.Print(os.Stderr, err)
		os.Exit(clierr.ExitCode(err))
	}
}

func runRelease(cmd *cobra.Command, args []string) error {
	cfg, opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}

	releaser, err := newReleaser(cfg, opts, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	result, err := releaser.Run(cmd.Context(), opts)
	if result != nil && result.Applied {
		printSummary(cmd.ErrOrStderr(), result)
	}
	return err
}

// loadOptions layers the config file, environment and flags into the
// options of a single run
func loadOptions(cmd *cobra.Command) (*config.Configuration, release.Options, error) {
	dir := repoDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, release.Options{}, clierr.Wrap(clierr.IO, err, "cannot determine working directory")
		}
		dir = wd
	} else {
		// The repository may carry its own .env
		_ = godotenv.Load(filepath.Join(dir, ".env"))
	}

	path := configPath
	if path == "" {
		path = filepath.Join(dir, config.DefaultConfigPath)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, release.Options{}, clierr.Wrap(clierr.Configuration, err, "cannot load configuration",
			fmt.Sprintf("Check %s and VERBUMP_* environment variables", path))
	}

	flags := cmd.Flags()
	if flags.Changed("changelog") {
		cfg.Changelog = changelogPath
	}
	if flags.Changed("manifest") {
		cfg.Manifest = manifestPath
	}
	if flags.Changed("github-release") {
		cfg.GitHub.Release = githubRelease
	}
	if flags.Changed("verbose") {
		cfg.Verbose = verbose
	}
	setDebugLoggers(cfg.Verbose, cmd.ErrOrStderr())

	opts := release.Options{
		Dir:           dir,
		ManifestPath:  cfg.Manifest,
		ChangelogPath: cfg.Changelog,
		DryRun:        dryRun,
		LastTag:       lastTag,
		GitHubRelease: cfg.GitHub.Release,
	}
	// An empty --prerelease still selects a prerelease bump
	if flags.Changed("prerelease") {
		label := prerelease
		opts.Prerelease = &label
	}
	return cfg, opts, nil
}

// newReleaser wires the configured git backend, the npm bumper and, when
// releasing to GitHub, the publisher
func newReleaser(cfg *config.Configuration, opts release.Options, stdout io.Writer) (*release.Releaser, error) {
	var vcs release.VCS
	switch cfg.Git.Backend {
	case config.BackendCLI:
		vcs = git.CLI{Dir: opts.Dir}
	default:
		repo, err := git.OpenRepository(opts.Dir)
		if err != nil {
			return nil, clierr.Wrap(clierr.Configuration, err, "cannot open repository",
				"Run verbump inside a git repository or pass --repo")
		}
		vcs = repo
	}

	manifestDir := filepath.Dir(cfg.Manifest)
	if !filepath.IsAbs(manifestDir) {
		manifestDir = filepath.Join(opts.Dir, manifestDir)
	}

	releaser := &release.Releaser{
		VCS:    vcs,
		Bumper: manifest.NPM{Dir: manifestDir},
		Stdout: stdout,
	}

	if opts.GitHubRelease && !opts.DryRun {
		publisher, err := github.NewPublisher(cfg.GitHubToken())
		if err != nil {
			return nil, clierr.Wrap(clierr.Configuration, err, "cannot publish GitHub release",
				"Set GITHUB_TOKEN or VERBUMP_GITHUB_TOKEN",
				"Or drop --github-release")
		}
		releaser.Publisher = publisher
	}

	return releaser, nil
}

// setDebugLoggers routes package debug output to w when enabled
func setDebugLoggers(enabled bool, w io.Writer) {
	var logger func(format string, args ...any)
	if enabled {
		logger = func(format string, args ...any) {
			fmt.Fprintf(w, format+"\n", args...)
		}
	}
	git.SetDebugLogger(logger)
	release.SetDebugLogger(logger)
}
