// Package release runs the release pipeline: it reads the commits since the
// last release tag, decides the next version, renders the changelog section
// and, unless simulating, writes the changelog, bumps the manifest, and
// commits and tags the result.
package release

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/Yates-Labs/verbump/internal/changelog"
	"github.com/Yates-Labs/verbump/internal/conventional"
	clierr "github.com/Yates-Labs/verbump/internal/errors"
	"github.com/Yates-Labs/verbump/internal/github"
	"github.com/Yates-Labs/verbump/internal/ingest/git"
	"github.com/Yates-Labs/verbump/internal/manifest"
	"github.com/Yates-Labs/verbump/internal/version"
)

var (
	ErrNoBoundaryTag   = errors.New("no release tag found")
	ErrAlreadyReleased = errors.New("version is already the latest entry in the changelog")
	ErrNoPublisher     = errors.New("GitHub release requested but no publisher configured")
)

// debugLogger is a no-op unless SetDebugLogger is called
var debugLogger func(format string, args ...any)

// SetDebugLogger configures the debug logger for the release pipeline.
// Pass nil to disable debug logging.
func SetDebugLogger(logger func(format string, args ...any)) {
	debugLogger = logger
}

func logDebug(format string, args ...any) {
	if debugLogger != nil {
		debugLogger(format, args...)
	}
}

// VCS is the version control collaborator. Both git.Repository and git.CLI
// implement it.
type VCS interface {
	// Tags returns tag names, newest first
	Tags(ctx context.Context) ([]string, error)
	// Log returns the commits after boundary up to HEAD, newest first
	Log(ctx context.Context, boundary string) ([]git.CommitRecord, error)
	HeadShortHash(ctx context.Context) (string, error)
	CommitTime(ctx context.Context, rev string) (time.Time, error)
	CommitAndTag(ctx context.Context, files []string, message, tag string) error
}

// Publisher publishes release notes to a hosting service
type Publisher interface {
	PublishDraft(ctx context.Context, req github.ReleaseRequest) (*github.Release, error)
}

// Options are the inputs of a single run. Relative paths are resolved
// against Dir.
type Options struct {
	Dir           string
	ManifestPath  string
	ChangelogPath string

	// DryRun prints the rendered section instead of changing anything
	DryRun bool
	// Prerelease selects a pre- bump when non-nil; a non-empty value is
	// also the prerelease label
	Prerelease *string
	// LastTag overrides boundary tag discovery
	LastTag string
	// GitHubRelease publishes a draft GitHub release after tagging
	GitHubRelease bool

	// Now stamps the section heading; defaults to time.Now
	Now func() time.Time
}

// Result describes what a run computed and did
type Result struct {
	Decision  version.Decision
	Boundary  string
	Commits   int
	Section   string
	Changelog string
	Applied   bool
	Release   *github.Release
}

// Releaser runs the pipeline against its collaborators
type Releaser struct {
	VCS       VCS
	Bumper    manifest.Bumper
	Publisher Publisher

	// Stdout receives the dry run output
	Stdout io.Writer
}

// Plan computes the next version and changelog without side effects
func (r *Releaser) Plan(ctx context.Context, opts Options) (*Result, *manifest.Manifest, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("context cancelled before release: %w", err)
	}

	manifestPath := resolve(opts.Dir, opts.ManifestPath)
	m, err := manifest.Load(manifestPath)
	if err != nil {
		if errors.Is(err, manifest.ErrMissingHomepage) {
			return nil, nil, clierr.Wrap(clierr.Configuration, err, "cannot build changelog links",
				fmt.Sprintf("Add a \"homepage\" field with the repository URL to %s", manifestPath))
		}
		return nil, nil, clierr.Wrap(clierr.IO, err, "cannot read manifest")
	}

	boundary, err := r.boundary(ctx, opts.LastTag)
	if err != nil {
		return nil, nil, err
	}
	logDebug("[release] boundary tag %s", boundary)

	commits, err := r.VCS.Log(ctx, boundary)
	if err != nil {
		return nil, nil, clierr.Wrap(clierr.Runtime, err, fmt.Sprintf("cannot read commits since %s", boundary))
	}
	changes := conventional.Classify(commits)
	logDebug("[release] %d commits, %d breaking, %d other conventional",
		len(commits), changes.Breaking.Len(), changes.Normal.Len())

	prerelease, err := r.prereleaseLabel(ctx, opts.Prerelease)
	if err != nil {
		return nil, nil, err
	}

	decision, err := version.Decide(m.Version, changes.HasBreaking(), changes.HasFeatures(), prerelease)
	if err != nil {
		return nil, nil, clierr.Wrap(clierr.Parse, err, fmt.Sprintf("cannot compute next version from %s", manifestPath))
	}
	logDebug("[release] %s bump: %s -> %s", decision.Kind(), decision.Current, decision.Next)

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	section := changelog.Render(changelog.Section{
		Version:     decision.Next.String(),
		PreviousTag: boundary,
		RepoURL:     m.RepoURL(),
		Date:        now(),
		Changes:     changes,
	})

	changelogPath := resolve(opts.Dir, opts.ChangelogPath)
	existing, found, err := changelog.ReadExisting(changelogPath)
	if err != nil {
		return nil, nil, clierr.Wrap(clierr.IO, err, "cannot read changelog")
	}
	if !found {
		logDebug("[release] %s does not exist, starting a new changelog", changelogPath)
	}
	if err := checkNotReleased(existing, decision.Next.String()); err != nil {
		return nil, nil, err
	}

	return &Result{
		Decision:  decision,
		Boundary:  boundary,
		Commits:   len(commits),
		Section:   section,
		Changelog: changelog.Merge(existing, section),
	}, m, nil
}

// Run plans the release and then either prints it (dry run) or applies it.
// Apply steps run in order and stop at the first failure; earlier steps are
// not rolled back.
func (r *Releaser) Run(ctx context.Context, opts Options) (*Result, error) {
	result, m, err := r.Plan(ctx, opts)
	if err != nil {
		return nil, err
	}

	if opts.DryRun {
		if r.Stdout != nil {
			fmt.Fprintln(r.Stdout, changelog.Preview(result.Section))
		}
		return result, nil
	}

	changelogPath := resolve(opts.Dir, opts.ChangelogPath)
	if err := changelog.Write(changelogPath, result.Changelog); err != nil {
		return nil, clierr.Wrap(clierr.IO, err, "cannot write changelog")
	}

	next := result.Decision.Next.String()
	if err := r.Bumper.SetVersion(ctx, next); err != nil {
		return nil, clierr.Wrap(clierr.Runtime, err, "cannot update manifest version",
			fmt.Sprintf("%s was already written; revert it or finish the release by hand", changelogPath))
	}

	tag := result.Decision.Tag()
	message := "chore(release): " + tag
	if err := r.VCS.CommitAndTag(ctx, m.Files(changelogPath), message, tag); err != nil {
		return nil, clierr.Wrap(clierr.Runtime, err, "cannot commit and tag release")
	}
	result.Applied = true
	logDebug("[release] committed and tagged %s", tag)

	if opts.GitHubRelease {
		release, err := r.publish(ctx, m, result)
		if err != nil {
			return result, clierr.Wrap(clierr.Runtime, err, "cannot publish GitHub release",
				fmt.Sprintf("The release %s was tagged locally; create the GitHub release by hand", tag))
		}
		result.Release = release
	}

	return result, nil
}

// boundary returns lastTag when given, otherwise the newest version tag
func (r *Releaser) boundary(ctx context.Context, lastTag string) (string, error) {
	if lastTag != "" {
		return lastTag, nil
	}

	tags, err := r.VCS.Tags(ctx)
	if err != nil {
		return "", clierr.Wrap(clierr.Runtime, err, "cannot list tags")
	}

	tag, ok := version.LatestTag(tags)
	if !ok {
		return "", clierr.Wrap(clierr.Configuration, ErrNoBoundaryTag, "cannot find the previous release",
			"Tag the previous release (e.g. git tag v1.0.0)",
			"Or pass --lastTag with the tag or commit to start from")
	}
	return tag, nil
}

// prereleaseLabel extends a non-empty label with the HEAD commit time and
// short hash. An empty label still selects a prerelease bump.
func (r *Releaser) prereleaseLabel(ctx context.Context, label *string) (*string, error) {
	if label == nil || *label == "" {
		return label, nil
	}

	short, err := r.VCS.HeadShortHash(ctx)
	if err != nil {
		return nil, clierr.Wrap(clierr.Runtime, err, "cannot read HEAD")
	}
	when, err := r.VCS.CommitTime(ctx, "HEAD")
	if err != nil {
		return nil, clierr.Wrap(clierr.Runtime, err, "cannot read HEAD commit time")
	}

	identifier := version.PrereleaseIdentifier(*label, when, short)
	return &identifier, nil
}

func (r *Releaser) publish(ctx context.Context, m *manifest.Manifest, result *Result) (*github.Release, error) {
	if r.Publisher == nil {
		return nil, ErrNoPublisher
	}

	owner, repo, err := github.ParseRepoURL(m.RepoURL())
	if err != nil {
		return nil, err
	}

	return r.Publisher.PublishDraft(ctx, github.ReleaseRequest{
		Owner:      owner,
		Repo:       repo,
		Tag:        result.Decision.Tag(),
		Notes:      result.Section,
		Prerelease: result.Decision.Prerelease,
	})
}

// checkNotReleased rejects a run whose version already heads the changelog
func checkNotReleased(existing, next string) error {
	retained := changelog.Retained(existing)
	if retained == "" {
		return nil
	}

	firstLine, _, _ := strings.Cut(retained, "\n")
	heading, err := changelog.ParseHeading(firstLine)
	if err != nil {
		// Headings written by other tools are not checked
		return nil
	}
	if heading.Version == next {
		return clierr.Wrap(clierr.Configuration, ErrAlreadyReleased, "v"+next,
			"Commit new changes before releasing again")
	}
	return nil
}

func resolve(dir, path string) string {
	if dir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
