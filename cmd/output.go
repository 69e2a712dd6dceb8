package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"github.com/Yates-Labs/verbump/internal/release"
)

// printSummary shows what an applied release did
func printSummary(w io.Writer, result *release.Result) {
	// LipGloss signature purple/pink palette
	var (
		headerColor  = lipgloss.Color("#F780FF") // Bright pink/magenta
		labelColor   = lipgloss.Color("#BD93F9") // Purple
		valueColor   = lipgloss.Color("#E9E9F4") // Light purple/white
		successColor = lipgloss.Color("#50FA7B") // Green
		borderColor  = lipgloss.Color("#6272A4") // Muted purple
	)

	const labelWidth = 10

	headerStyle := lipgloss.NewStyle().Foreground(headerColor).Bold(true)
	labelStyle := lipgloss.NewStyle().Foreground(labelColor).Width(labelWidth)
	valueStyle := lipgloss.NewStyle().Foreground(valueColor)
	successStyle := lipgloss.NewStyle().Foreground(successColor)
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(0, 1)

	decision := result.Decision
	rows := [][2]string{
		{"Version", fmt.Sprintf("%s → %s", decision.Current, decision.Next)},
		{"Bump", decision.Kind()},
		{"Since", result.Boundary},
		{"Commits", strconv.Itoa(result.Commits)},
		{"Tag", decision.Tag()},
	}
	if result.Release != nil {
		rows = append(rows, [2]string{"GitHub", result.Release.HTMLURL})
	}

	lines := []string{headerStyle.Render("Release " + decision.Tag())}
	for _, row := range rows {
		lines = append(lines, labelStyle.Render(row[0])+valueStyle.Render(row[1]))
	}

	fmt.Fprintln(w, boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
	fmt.Fprintln(w, successStyle.Render("✓ Committed and tagged "+decision.Tag()+"; push with: git push --follow-tags"))
}
