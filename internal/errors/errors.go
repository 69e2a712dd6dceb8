// Package errors categorizes release failures for terminal display.
package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// ErrorCategory represents the type of error that occurred.
type ErrorCategory int

const (
	// Runtime covers failures of external tools (git, npm, GitHub) and
	// anything not otherwise categorized.
	Runtime ErrorCategory = iota
	// Configuration errors are caused by missing or invalid settings or metadata.
	Configuration
	// Parse errors come from malformed input such as an invalid version.
	Parse
	// IO errors come from reading or writing files.
	IO
)

// String returns a human-readable name for the error category.
func (c ErrorCategory) String() string {
	switch c {
	case Configuration:
		return "Configuration Error"
	case Parse:
		return "Parse Error"
	case IO:
		return "I/O Error"
	default:
		return "Runtime Error"
	}
}

// CLIError is an error with a category and remediation hints.
type CLIError struct {
	Category    ErrorCategory
	Message     string
	Remediation []string
	Err         error
}

// Error implements the error interface.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// Wrap categorizes err. A nil err yields nil.
func Wrap(category ErrorCategory, err error, message string, remediation ...string) error {
	if err == nil {
		return nil
	}
	return &CLIError{
		Category:    category,
		Message:     message,
		Remediation: remediation,
		Err:         err,
	}
}

// NewConfigError creates a configuration error without an underlying cause.
func NewConfigError(message string, remediation ...string) *CLIError {
	return &CLIError{
		Category:    Configuration,
		Message:     message,
		Remediation: remediation,
	}
}

// CategoryOf returns the category of the first CLIError in err's chain,
// or Runtime.
func CategoryOf(err error) ErrorCategory {
	var cliErr *CLIError
	if stderrors.As(err, &cliErr) {
		return cliErr.Category
	}
	return Runtime
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}

var (
	errorLabel  = color.New(color.FgRed, color.Bold).SprintFunc()
	errorMsg    = color.New(color.FgRed).SprintFunc()
	fixLabel    = color.New(color.FgGreen, color.Bold).SprintFunc()
	bullet      = color.New(color.FgGreen).SprintFunc()
	categoryFmt = color.New(color.FgYellow).SprintFunc()
)

// Format renders err with its category and remediation hints. Colors are
// disabled automatically when the output is not a terminal.
func Format(err error) string {
	if err == nil {
		return ""
	}

	var sb strings.Builder
	category := CategoryOf(err)

	sb.WriteString(errorLabel("Error"))
	sb.WriteString(" [")
	sb.WriteString(categoryFmt(category.String()))
	sb.WriteString("]: ")
	sb.WriteString(errorMsg(err.Error()))
	sb.WriteString("\n")

	var cliErr *CLIError
	if stderrors.As(err, &cliErr) && len(cliErr.Remediation) > 0 {
		sb.WriteString("\n")
		sb.WriteString(fixLabel("To fix this:"))
		sb.WriteString("\n")
		for _, step := range cliErr.Remediation {
			sb.WriteString(fmt.Sprintf("  %s %s\n", bullet("•"), step))
		}
	}

	return sb.String()
}

// Print writes the formatted error to w.
func Print(w io.Writer, err error) {
	fmt.Fprint(w, Format(err))
}
