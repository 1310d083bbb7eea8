package doctor

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	styleOK    = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	styleWarn  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	styleError = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	styleDim   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	styleBold  = lipgloss.NewStyle().Bold(true)
)

// Output prints progress and results of a doctor run
type Output struct {
	writer    io.Writer
	useColors bool
}

// NewOutput creates an Output. Colors are only used when useColors is set.
func NewOutput(w io.Writer, useColors bool) *Output {
	return &Output{writer: w, useColors: useColors}
}

// Header prints the run header
func (o *Output) Header() {
	o.println("")
	o.println(o.render(styleBold, "wtclient doctor"))
	o.println(strings.Repeat("=", 15))
	o.println("")
}

// CheckStart prints the start of a check
func (o *Output) CheckStart(index, total int, name string) {
	o.printf("[%d/%d] Checking %s...\n", index, total, name)
}

// CheckResult prints the result of a check
func (o *Output) CheckResult(result CheckResult) {
	var icon string
	var style lipgloss.Style
	switch result.Status {
	case StatusOK:
		icon, style = "✓", styleOK
	case StatusWarning:
		icon, style = "!", styleWarn
	case StatusError:
		icon, style = "✗", styleError
	default:
		icon, style = "-", styleDim
	}

	o.printf("  %s %s\n", o.render(style, icon), result.Message)
	if result.Details != "" {
		o.printf("    %s\n", result.Details)
	}
	if result.Hint != "" && result.Status != StatusOK {
		o.printf("    %s\n", o.render(styleDim, "Try: "+result.Hint))
	}
}

// Summary prints the totals
func (o *Output) Summary(summary Summary) {
	o.println("")
	failed := fmt.Sprintf("%d failed", summary.Failed)
	if summary.Failed > 0 {
		failed = o.render(styleError, failed)
	}
	line := fmt.Sprintf("Summary: %s, %s", o.render(styleOK, fmt.Sprintf("%d passed", summary.Passed)), failed)
	if summary.Warned > 0 {
		line += ", " + o.render(styleWarn, fmt.Sprintf("%d warnings", summary.Warned))
	}
	if summary.Skipped > 0 {
		line += fmt.Sprintf(", %d skipped", summary.Skipped)
	}
	o.println(line)
}

func (o *Output) render(style lipgloss.Style, s string) string {
	if !o.useColors {
		return s
	}
	return style.Render(s)
}

func (o *Output) println(s string) {
	fmt.Fprintln(o.writer, s)
}

func (o *Output) printf(format string, args ...interface{}) {
	fmt.Fprintf(o.writer, format, args...)
}
