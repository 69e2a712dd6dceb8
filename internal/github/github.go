package github

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/go-github/v77/github"
)

var (
	ErrMissingToken  = errors.New("GitHub token is required to publish a release")
	ErrNotGitHubRepo = errors.New("repository URL is not a github.com repository")
)

// NewClient creates a GitHub API client with authentication
// token: GitHub personal access token
func NewClient(token string) *github.Client {
	return github.NewClient(nil).WithAuthToken(token)
}

// Publisher creates draft releases on GitHub
type Publisher struct {
	client *github.Client
}

// NewPublisher creates a Publisher authenticated with token
func NewPublisher(token string) (*Publisher, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	return &Publisher{client: NewClient(token)}, nil
}

// NewPublisherWithClient wraps an existing client, e.g. one pointed at a
// GitHub Enterprise instance
func NewPublisherWithClient(client *github.Client) *Publisher {
	return &Publisher{client: client}
}

// PublishDraft creates a draft release for req.Tag with the changelog
// section as its notes. GitHub creates the tag on publish if it has not
// been pushed yet.
func (p *Publisher) PublishDraft(ctx context.Context, req ReleaseRequest) (*Release, error) {
	ghRelease, _, err := p.client.Repositories.CreateRelease(ctx, req.Owner, req.Repo, &github.RepositoryRelease{
		TagName:    github.Ptr(req.Tag),
		Name:       github.Ptr(req.Tag),
		Body:       github.Ptr(req.Notes),
		Draft:      github.Ptr(true),
		Prerelease: github.Ptr(req.Prerelease),
	})
	if err != nil {
		return nil, handleAPIError(err, fmt.Sprintf("failed to create release %s", req.Tag))
	}

	return ParseRelease(ghRelease), nil
}

// ParseRelease converts a go-github RepositoryRelease to our Release struct
func ParseRelease(ghRelease *github.RepositoryRelease) *Release {
	return &Release{
		ID:         ghRelease.GetID(),
		TagName:    ghRelease.GetTagName(),
		Name:       ghRelease.GetName(),
		Body:       ghRelease.GetBody(),
		Draft:      ghRelease.GetDraft(),
		Prerelease: ghRelease.GetPrerelease(),
		HTMLURL:    ghRelease.GetHTMLURL(),
		CreatedAt:  ghRelease.GetCreatedAt().Time,
	}
}

// ParseRepoURL extracts owner and repository name from a github.com URL
// (https, http or ssh form)
func ParseRepoURL(url string) (owner, repo string, err error) {
	if !strings.Contains(url, "github.com") {
		return "", "", fmt.Errorf("%w: %s", ErrNotGitHubRepo, url)
	}

	// Remove protocol if present
	rest := strings.TrimPrefix(url, "https://")
	rest = strings.TrimPrefix(rest, "http://")
	rest = strings.TrimPrefix(rest, "git@")

	// Replace colon with slash for SSH URLs
	rest = strings.Replace(rest, ":", "/", 1)
	rest = strings.TrimPrefix(rest, "www.")
	rest = strings.TrimPrefix(rest, "github.com/")
	rest = strings.TrimSuffix(rest, "/")
	rest = strings.TrimSuffix(rest, ".git")

	parts := strings.Split(rest, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: %s", ErrNotGitHubRepo, url)
	}
	return parts[0], parts[1], nil
}

// handleAPIError wraps API errors with context and detects rate limiting
func handleAPIError(err error, msg string) error {
	if err == nil {
		return nil
	}

	var rateLimitErr *github.RateLimitError
	if errors.As(err, &rateLimitErr) {
		return fmt.Errorf("%s: hit primary rate limit (used %d of %d, resets at %v): %w",
			msg, rateLimitErr.Rate.Used, rateLimitErr.Rate.Limit, rateLimitErr.Rate.Reset.Time, err)
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		retryAfter := abuseErr.GetRetryAfter()
		return fmt.Errorf("%s: hit secondary rate limit (retry after %v): %w",
			msg, retryAfter, err)
	}

	return fmt.Errorf("%s: %w", msg, err)
}
