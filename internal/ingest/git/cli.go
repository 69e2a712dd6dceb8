package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// CLI runs the git binary inside Dir. It offers the same operations as
// Repository for setups go-git cannot read (e.g. partial clones).
type CLI struct {
	Dir string
}

func (c CLI) run(ctx context.Context, args ...string) (string, error) {
	logDebug("[git] git %s", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = c.Dir
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	return string(out), nil
}

// Tags lists tags newest version first
func (c CLI) Tags(ctx context.Context) ([]string, error) {
	out, err := c.run(ctx, "tag", "-l", "--sort=-v:refname")
	if err != nil {
		return nil, err
	}

	var tags []string
	for _, line := range strings.Split(out, "\n") {
		if tag := strings.TrimSpace(line); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags, nil
}

// Log returns the commits in boundary..HEAD, newest first
func (c CLI) Log(ctx context.Context, boundary string) ([]CommitRecord, error) {
	if boundary == "" {
		return nil, nil
	}

	out, err := c.run(ctx, "log", "--format="+logFormat, boundary+"..HEAD")
	if err != nil {
		return nil, err
	}
	return ParseLog(out), nil
}

// HeadShortHash returns `git rev-parse --short HEAD`
func (c CLI) HeadShortHash(ctx context.Context) (string, error) {
	out, err := c.run(ctx, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// CommitTime returns the author time of rev
func (c CLI) CommitTime(ctx context.Context, rev string) (time.Time, error) {
	out, err := c.run(ctx, "log", "-1", "--pretty=format:%at", rev)
	if err != nil {
		return time.Time{}, err
	}

	secs, err := strconv.ParseInt(strings.TrimSpace(out), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse commit time %q: %w", out, err)
	}
	return time.Unix(secs, 0), nil
}

// CommitAndTag stages files, commits and creates an annotated tag
func (c CLI) CommitAndTag(ctx context.Context, files []string, message, tag string) error {
	var existing []string
	for _, file := range files {
		path := file
		if !filepath.IsAbs(path) {
			path = filepath.Join(c.Dir, file)
		}
		if _, err := os.Stat(path); err == nil {
			existing = append(existing, path)
		}
	}

	if len(existing) > 0 {
		if _, err := c.run(ctx, append([]string{"add", "--"}, existing...)...); err != nil {
			return err
		}
	}
	if _, err := c.run(ctx, "commit", "-m", message); err != nil {
		return err
	}
	if _, err := c.run(ctx, "tag", "-a", tag, "-m", tag); err != nil {
		return err
	}
	return nil
}
