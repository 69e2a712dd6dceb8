// Package changelog renders a release section from classified commits and
// merges it into an existing CHANGELOG.md.
package changelog

import (
	"fmt"
	"strings"
	"time"

	"github.com/Yates-Labs/verbump/internal/conventional"
)

// Header is written at the top of every generated changelog
const Header = "# Changelog\n\nAll notable changes to this project will be documented in this file. See [Convential Commits](https://www.conventionalcommits.org/en/v1.0.0/#specification) for commit guidelines.\n\n"

// DateLayout formats the release date in the section heading, e.g. "Tue Mar 05 2024"
const DateLayout = "Mon Jan 02 2006"

// Group maps a commit type to its heading in the changelog
type Group struct {
	Type  string
	Title string
}

// Groups lists the commit types that appear in the changelog. Commits of
// any other type are classified but never rendered.
var Groups = []Group{
	{Type: conventional.TypeFeature, Title: "Features"},
	{Type: conventional.TypeFix, Title: "Fixes"},
}

func groupTitle(typ string) (string, bool) {
	for _, g := range Groups {
		if g.Type == typ {
			return g.Title, true
		}
	}
	return "", false
}

// Section holds everything needed to render one release
type Section struct {
	// Version is the released version without the "v" prefix
	Version     string
	PreviousTag string
	RepoURL     string
	Date        time.Time
	Changes     conventional.Classification
}

// Render produces the Markdown for a release section. Breaking changes come
// first, then the remaining features and fixes.
func Render(s Section) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## [%s](%s/compare/%s...v%s) (%s)\n",
		s.Version, s.RepoURL, s.PreviousTag, s.Version, s.Date.Format(DateLayout))

	if s.Changes.HasBreaking() {
		b.WriteString("\n## Breaking changes\n")
		for _, typ := range s.Changes.Breaking.Types() {
			title, ok := groupTitle(typ)
			if !ok {
				continue
			}
			b.WriteString("\n### " + title + "\n")
			writeEntries(&b, s.RepoURL, s.Changes.Breaking.Changes(typ))
		}
	}

	for _, typ := range s.Changes.Normal.Types() {
		title, ok := groupTitle(typ)
		if !ok {
			continue
		}
		b.WriteString("\n\n### " + title + "\n")
		writeEntries(&b, s.RepoURL, s.Changes.Normal.Changes(typ))
	}

	return b.String()
}

func writeEntries(b *strings.Builder, repoURL string, changes []conventional.Change) {
	for _, c := range changes {
		b.WriteString("\n* ")
		if c.Scope != "" {
			b.WriteString("**" + c.Scope + "** ")
		}
		fmt.Fprintf(b, "%s [%s](%s/commit/%s)", c.Description, c.ShortHash, repoURL, strings.TrimSpace(c.Hash))
	}
}

// Preview is what a dry run prints: the header and the new section
func Preview(section string) string {
	return Header + section
}
