package github

import "time"

// Release is the GitHub release created for a version tag
type Release struct {
	ID         int64     `json:"id"`
	TagName    string    `json:"tag_name"`
	Name       string    `json:"name"`
	Body       string    `json:"body"`
	Draft      bool      `json:"draft"`
	Prerelease bool      `json:"prerelease"`
	HTMLURL    string    `json:"html_url"`
	CreatedAt  time.Time `json:"created_at"`
}

// ReleaseRequest describes the release to publish
type ReleaseRequest struct {
	Owner      string
	Repo       string
	Tag        string
	Notes      string
	Prerelease bool
}
