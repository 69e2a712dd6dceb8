// Package version decides the semantic version bump for a release and
// computes the next version.
package version

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
)

var (
	ErrInvalidVersion = errors.New("invalid semantic version")
	ErrNotIncreasing  = errors.New("next version is not greater than current version")
)

// BumpKind is the semantic version component being incremented
type BumpKind int

const (
	Patch BumpKind = iota
	Minor
	Major
)

// String returns major, minor or patch
func (k BumpKind) String() string {
	switch k {
	case Major:
		return "major"
	case Minor:
		return "minor"
	default:
		return "patch"
	}
}

// DecideBump picks major for breaking changes, minor for features and
// patch otherwise
func DecideBump(hasBreaking, hasFeatures bool) BumpKind {
	switch {
	case hasBreaking:
		return Major
	case hasFeatures:
		return Minor
	default:
		return Patch
	}
}

// Decision is the outcome of the version calculation
type Decision struct {
	Current *semver.Version
	Next    *semver.Version
	Bump    BumpKind

	// Prerelease marks the pre- variant of Bump
	Prerelease bool
	Identifier string
}

// Kind returns the bump name as understood by npm, e.g. "preminor"
func (d Decision) Kind() string {
	if d.Prerelease {
		return "pre" + d.Bump.String()
	}
	return d.Bump.String()
}

// Tag returns the release tag name for the next version
func (d Decision) Tag() string {
	return "v" + d.Next.String()
}

// Parse parses a semantic version, allowing a leading "v" or "="
func Parse(raw string) (*semver.Version, error) {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "=")
	trimmed = strings.TrimPrefix(trimmed, "v")

	v, err := semver.StrictNewVersion(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidVersion, raw, err)
	}
	return v, nil
}

// LatestTag returns the first tag that is a valid semantic version.
// tags are expected newest first.
func LatestTag(tags []string) (string, bool) {
	for _, tag := range tags {
		if _, err := Parse(tag); err == nil {
			return tag, true
		}
	}
	return "", false
}

// Decide computes the next version from current. A non-nil prerelease
// switches to the pre- variant of the bump; a non-empty one is also used as
// the prerelease identifier.
func Decide(current string, hasBreaking, hasFeatures bool, prerelease *string) (Decision, error) {
	cur, err := Parse(current)
	if err != nil {
		return Decision{}, err
	}

	d := Decision{
		Current:    cur,
		Bump:       DecideBump(hasBreaking, hasFeatures),
		Prerelease: prerelease != nil,
	}
	if prerelease != nil {
		d.Identifier = *prerelease
	}

	d.Next = Next(cur, d.Bump, d.Prerelease, d.Identifier)
	if !d.Next.GreaterThan(cur) {
		return Decision{}, fmt.Errorf("%w: %s -> %s", ErrNotIncreasing, cur, d.Next)
	}
	return d, nil
}

// Next increments v the way `npm version <kind>` does. Releasing a
// prerelease only drops its prerelease part when that already yields a
// greater version, e.g. 2.0.0-rc.1 bumped major is 2.0.0.
func Next(v *semver.Version, kind BumpKind, prerelease bool, identifier string) *semver.Version {
	major, minor, patch := v.Major(), v.Minor(), v.Patch()
	pre := v.Prerelease()
	if prerelease {
		pre = ""
	}

	switch kind {
	case Major:
		if minor != 0 || patch != 0 || pre == "" {
			major++
		}
		minor, patch = 0, 0
	case Minor:
		if patch != 0 || pre == "" {
			minor++
		}
		patch = 0
	default:
		if pre == "" {
			patch++
		}
	}

	pre = ""
	if prerelease {
		pre = "0"
		if identifier != "" {
			pre = identifier + ".0"
		}
	}
	return semver.New(major, minor, patch, pre, "")
}

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// SanitizeIdentifier replaces each run of non-alphanumeric characters with
// a single hyphen
func SanitizeIdentifier(raw string) string {
	return nonAlphanumeric.ReplaceAllString(raw, "-")
}

// PrereleaseIdentifier builds the identifier for a prerelease build from
// the user supplied label, the time of the released commit and its short hash
func PrereleaseIdentifier(label string, commitTime time.Time, shortHash string) string {
	return fmt.Sprintf("%s-%s-%s",
		SanitizeIdentifier(label),
		commitTime.UTC().Format("20060102-150405"),
		strings.TrimSpace(shortHash))
}
