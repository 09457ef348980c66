package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8"))
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// renderTable lays out headers and rows as an evenly-spaced, lipgloss-styled
// table -- a non-interactive stand-in for sercha-cli's bubbletea status
// bar (internal/adapters/driving/tui/components/status/statusbar.go),
// since this CLI prints once per invocation instead of redrawing a live
// view.
func renderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(padRow(headers, widths)))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("-", totalWidth(widths)))
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString(cellStyle.Render(padRow(row, widths)))
		b.WriteString("\n")
	}
	return b.String()
}

func padRow(cells []string, widths []int) string {
	parts := make([]string, len(cells))
	for i, c := range cells {
		w := 0
		if i < len(widths) {
			w = widths[i]
		}
		parts[i] = lipgloss.NewStyle().Width(w).Render(c)
	}
	return strings.Join(parts, "  ")
}

func totalWidth(widths []int) int {
	total := 0
	for _, w := range widths {
		total += w + 2
	}
	return total
}

// statusStyle colors a schemamig/datamig status code for terminal output.
func statusStyle(status string) lipgloss.Style {
	switch status {
	case "up_to_date", "applied":
		return okStyle
	case "pending_drift", "pending", "pending_create":
		return warnStyle
	case "orphan_on_server":
		return errStyle
	default:
		return cellStyle
	}
}
