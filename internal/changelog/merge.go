package changelog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
)

// previousRelease matches the first line of an earlier release: a version
// heading or a named anchor left by other changelog generators
var previousRelease = regexp.MustCompile(`(?m)(^#+ \[?[0-9]+\.[0-9]+\.[0-9]+|<a name=)`)

// Retained returns the part of an existing changelog that is kept below a
// new section: everything from the first previous release onward.
// Without a previous release nothing is kept.
func Retained(existing string) string {
	loc := previousRelease.FindStringIndex(existing)
	if loc == nil {
		return ""
	}
	return existing[loc[0]:]
}

// Merge places section above the previous releases in existing and
// regenerates the header
func Merge(existing, section string) string {
	return Header + section + "\n\n" + Retained(existing)
}

// ReadExisting reads the changelog at path. A missing file is reported as
// found == false with no error.
func ReadExisting(path string) (content string, found bool, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read changelog %s: %w", path, err)
	}
	return string(raw), true, nil
}

// Write stores the merged changelog at path
func Write(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write changelog %s: %w", path, err)
	}
	return nil
}
