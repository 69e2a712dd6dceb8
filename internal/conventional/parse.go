// Package conventional classifies commit subjects written as
// `type(scope)!: description`.
package conventional

import "unicode/utf8"

// Subject is the result of scanning a commit subject line.
// When Matched is false every other field is zero.
type Subject struct {
	Matched bool

	Type string

	// Scope is the text between the parentheses. HasScope is also true for an
	// opening parenthesis without a closing one, in which case Scope is empty.
	Scope    string
	HasScope bool

	Breaking bool

	// Description is the text after ": ", or the full subject when that is
	// missing or empty
	Description string
}

// ParseSubject scans subject against `type(scope)!: description`.
// Only the leading type is required; the match is not anchored at the end,
// so trailing text that does not fit the grammar is ignored.
func ParseSubject(subject string) Subject {
	pos := 0
	for pos < len(subject) && isWordByte(subject[pos]) {
		pos++
	}
	if pos == 0 {
		return Subject{}
	}

	s := Subject{
		Matched: true,
		Type:    subject[:pos],
	}

	if pos < len(subject) && subject[pos] == '(' {
		s.HasScope = true
		if end, ok := scanScope(subject, pos+1); ok {
			s.Scope = subject[pos+1 : end]
			pos = end + 1
		} else {
			pos++
		}
	}

	if pos < len(subject) && subject[pos] == '!' {
		s.Breaking = true
		pos++
	}

	s.Description = subject
	if pos < len(subject) && subject[pos] == ':' {
		if desc := dropLeadingRune(subject[pos+1:]); desc != "" {
			s.Description = desc
		}
	}

	return s
}

// scanScope returns the index of the closing parenthesis that ends a scope
// starting at from. Scopes cannot contain parentheses or line breaks.
func scanScope(subject string, from int) (int, bool) {
	for i := from; i < len(subject); i++ {
		switch subject[i] {
		case ')':
			return i, true
		case '(', '\r', '\n':
			return 0, false
		}
	}
	return 0, false
}

// dropLeadingRune removes the separator after the colon, usually a space
func dropLeadingRune(s string) string {
	if s == "" {
		return s
	}
	_, size := utf8.DecodeRuneInString(s)
	return s[size:]
}

func isWordByte(b byte) bool {
	return b == '_' ||
		('a' <= b && b <= 'z') ||
		('A' <= b && b <= 'Z') ||
		('0' <= b && b <= '9')
}
