package changelog

import (
	"fmt"
	"regexp"
	"strings"
)

// Heading is the parsed first line of a rendered release section
type Heading struct {
	Version     string
	RepoURL     string
	PreviousTag string
	Date        string
}

var headingPattern = regexp.MustCompile(`^## \[([^\]]+)\]\((.*)/compare/(.*)\.\.\.v([^)]+)\) \((.*)\)$`)

// ParseHeading reads the version, compare link and date back out of a
// heading produced by Render
func ParseHeading(line string) (Heading, error) {
	line = strings.TrimRight(line, "\r\n")
	m := headingPattern.FindStringSubmatch(line)
	if m == nil {
		return Heading{}, fmt.Errorf("not a release heading: %q", line)
	}
	if m[1] != m[4] {
		return Heading{}, fmt.Errorf("heading version %s does not match compare target v%s", m[1], m[4])
	}

	return Heading{
		Version:     m[1],
		RepoURL:     m[2],
		PreviousTag: m[3],
		Date:        m[5],
	}, nil
}
