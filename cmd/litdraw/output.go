package main

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jwtly10/litdraw/internal/cli"
)

var (
	okStyle    = lipgloss.NewStyle().SetString("✓").Foreground(lipgloss.Color("#2CD7C7"))
	errStyle   = lipgloss.NewStyle().SetString("✗").Foreground(lipgloss.Color("#E74C3C"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C8A94"))
	pathStyle  = lipgloss.NewStyle().Bold(true)
)

// printResults writes one line per compiled file.
func printResults(w io.Writer, results []cli.CompileResult) {
	for _, r := range results {
		fmt.Fprintf(w, "%s %s → %s %s\n",
			okStyle,
			pathStyle.Render(r.Path),
			r.OutPath,
			mutedStyle.Render(r.Duration.Round(time.Microsecond).String()),
		)
	}
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %v\n", errStyle, err)
}
