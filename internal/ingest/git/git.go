// Package git reads release history from a repository and records the
// release commit and tag. Repository uses go-git; CLI shells out to the git
// binary and decodes the delimited log format with ParseLog.
package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/config"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/object"
)

// ErrNoIdentity is returned when no author is configured for the release commit
var ErrNoIdentity = errors.New("no git user.name/user.email configured")

// debugLogger is a no-op unless SetDebugLogger is called
var debugLogger func(format string, args ...any)

// SetDebugLogger configures the debug logger for git operations.
// Pass nil to disable debug logging.
func SetDebugLogger(logger func(format string, args ...any)) {
	debugLogger = logger
}

func logDebug(format string, args ...any) {
	if debugLogger != nil {
		debugLogger(format, args...)
	}
}

// Repository is a go-git backed view of a local repository
type Repository struct {
	repo *git.Repository

	// Signature overrides the identity used for the release commit and tag.
	// When nil the identity is read from git config.
	Signature *object.Signature
}

// OpenRepository opens the Git repository containing path
func OpenRepository(path string) (*Repository, error) {
	logDebug("[git] opening repository at %s", path)

	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository at %s: %w", path, err)
	}
	return &Repository{repo: repo}, nil
}

// Tags returns all tag names, newest version first
func (r *Repository) Tags(ctx context.Context) ([]string, error) {
	refs, err := r.repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}

	var tags []string
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		tags = append(tags, ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate tags: %w", err)
	}

	SortTags(tags)
	logDebug("[git] found %d tags", len(tags))
	return tags, nil
}

// SortTags orders tags like `git tag --sort=-v:refname`: tags that parse as
// versions come first, highest version first, then the rest by name descending
func SortTags(tags []string) {
	sort.SliceStable(tags, func(i, j int) bool {
		vi, errI := semver.NewVersion(tags[i])
		vj, errJ := semver.NewVersion(tags[j])
		switch {
		case errI == nil && errJ == nil:
			if vi.Equal(vj) {
				return tags[i] > tags[j]
			}
			return vi.GreaterThan(vj)
		case errI == nil:
			return true
		case errJ == nil:
			return false
		default:
			return tags[i] > tags[j]
		}
	})
}

// resolveCommit peels a revision (tag, branch, hash) to its commit
func (r *Repository) resolveCommit(rev string) (*object.Commit, error) {
	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", rev, err)
	}

	commit, err := r.repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("failed to load commit %s: %w", hash, err)
	}
	return commit, nil
}

// Log returns the commits reachable from HEAD but not from boundary,
// newest first. An empty boundary yields no commits, as `git log ..HEAD` does.
func (r *Repository) Log(ctx context.Context, boundary string) ([]CommitRecord, error) {
	if boundary == "" {
		return nil, nil
	}

	base, err := r.resolveCommit(boundary)
	if err != nil {
		return nil, err
	}

	// Everything reachable from the boundary is already released
	released := make(map[plumbing.Hash]struct{})
	baseIter, err := r.repo.Log(&git.LogOptions{From: base.Hash})
	if err != nil {
		return nil, fmt.Errorf("failed to get log for %s: %w", boundary, err)
	}
	err = baseIter.ForEach(func(c *object.Commit) error {
		released[c.Hash] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate commits of %s: %w", boundary, err)
	}

	head, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}

	headIter, err := r.repo.Log(&git.LogOptions{
		From:  head.Hash(),
		Order: git.LogOrderCommitterTime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get log: %w", err)
	}

	var records []CommitRecord
	err = headIter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, ok := released[c.Hash]; ok {
			return nil
		}
		records = append(records, ParseCommit(c))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate commits: %w", err)
	}

	logDebug("[git] %d commits since %s", len(records), boundary)
	return records, nil
}

// ParseCommit converts a go-git Commit to a CommitRecord
func ParseCommit(c *object.Commit) CommitRecord {
	subject, body := parseCommitMessage(c.Message)
	hash := c.Hash.String()
	return CommitRecord{
		Subject:   subject,
		Body:      body,
		ShortHash: hash[:shortHashLen],
		Hash:      hash,
	}
}

// HeadShortHash returns the abbreviated hash of HEAD
func (r *Repository) HeadShortHash(ctx context.Context) (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}
	return head.Hash().String()[:shortHashLen], nil
}

// CommitTime returns the author time of rev
func (r *Repository) CommitTime(ctx context.Context, rev string) (time.Time, error) {
	commit, err := r.resolveCommit(rev)
	if err != nil {
		return time.Time{}, err
	}
	return commit.Author.When, nil
}

// CommitAndTag stages files, commits them with message and creates an
// annotated tag at the new commit. Relative paths are taken from the
// worktree root and files missing from disk are skipped.
func (r *Repository) CommitAndTag(ctx context.Context, files []string, message, tag string) error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	root := wt.Filesystem.Root()
	for _, file := range files {
		path := file
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, file)
		}
		if _, err := os.Stat(path); err != nil {
			logDebug("[git] skipping %s: %v", file, err)
			continue
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("failed to stage %s: %w", file, err)
		}
		if _, err := wt.Add(filepath.ToSlash(rel)); err != nil {
			return fmt.Errorf("failed to stage %s: %w", file, err)
		}
	}

	sig, err := r.signature()
	if err != nil {
		return err
	}

	hash, err := wt.Commit(message, &git.CommitOptions{
		Author:    sig,
		Committer: sig,
	})
	if err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	logDebug("[git] created commit %s", hash)

	if _, err := r.repo.CreateTag(tag, hash, &git.CreateTagOptions{
		Tagger:  sig,
		Message: tag,
	}); err != nil {
		return fmt.Errorf("failed to create tag %s: %w", tag, err)
	}
	logDebug("[git] created tag %s", tag)

	return nil
}

// signature returns the configured identity stamped with the current time
func (r *Repository) signature() (*object.Signature, error) {
	if r.Signature != nil {
		sig := *r.Signature
		sig.When = time.Now()
		return &sig, nil
	}

	cfg, err := r.repo.ConfigScoped(config.GlobalScope)
	if err != nil {
		return nil, fmt.Errorf("failed to read git config: %w", err)
	}
	if cfg.User.Name == "" || cfg.User.Email == "" {
		return nil, ErrNoIdentity
	}

	return &object.Signature{
		Name:  cfg.User.Name,
		Email: cfg.User.Email,
		When:  time.Now(),
	}, nil
}
