package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Verbosity represents the console verbosity level
type Verbosity int

const (
	// VerbosityQuiet shows only warnings, errors and the final summary
	VerbosityQuiet Verbosity = iota
	// VerbosityNormal shows per-step progress (default)
	VerbosityNormal
	// VerbosityVerbose shows recovered failures and frame settling details
	VerbosityVerbose
	// VerbosityDebug shows all internal details
	VerbosityDebug
)

// ParseVerbosity converts a configured log level to a Verbosity
func ParseVerbosity(level string) Verbosity {
	switch level {
	case "quiet":
		return VerbosityQuiet
	case "verbose":
		return VerbosityVerbose
	case "debug":
		return VerbosityDebug
	default:
		return VerbosityNormal
	}
}

// Console renders human-readable run progress to a terminal.
type Console struct {
	level  Verbosity
	writer io.Writer

	bold    lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	warning lipgloss.Style
	accent  lipgloss.Style
	muted   lipgloss.Style
	info    lipgloss.Style
}

// NewConsole creates a console writing to stdout.
func NewConsole(level Verbosity) *Console {
	return NewConsoleWriter(os.Stdout, level)
}

// NewConsoleWriter creates a console writing to w. Colors are only emitted
// when w is a terminal that supports them.
func NewConsoleWriter(w io.Writer, level Verbosity) *Console {
	r := lipgloss.NewRenderer(w)
	return &Console{
		level:   level,
		writer:  w,
		bold:    r.NewStyle().Bold(true),
		success: r.NewStyle().Bold(true).Foreground(lipgloss.Color("2")),
		failure: r.NewStyle().Bold(true).Foreground(lipgloss.Color("1")),
		warning: r.NewStyle().Foreground(lipgloss.Color("3")),
		accent:  r.NewStyle().Foreground(lipgloss.Color("6")),
		muted:   r.NewStyle().Foreground(lipgloss.Color("8")),
		info:    r.NewStyle().Foreground(lipgloss.Color("#FFB3BA")),
	}
}

// Header prints a prominent header message
func (c *Console) Header(message string) {
	if c.level < VerbosityNormal {
		return
	}
	rule := strings.Repeat("=", 70)
	fmt.Fprintf(c.writer, "\n%s\n%s\n%s\n", c.bold.Render(rule), c.bold.Render("  "+message), c.bold.Render(rule))
}

// Step prints one executed step with its outcome
func (c *Console) Step(index int, kind, target, outcome string) {
	if c.level < VerbosityNormal {
		return
	}

	label := fmt.Sprintf("[%d] %s", index, kind)
	if target != "" {
		label += " " + target
	}

	var mark string
	switch outcome {
	case "completed":
		mark = c.success.Render("✓")
	case "skipped":
		mark = c.muted.Render("-")
	default:
		mark = c.warning.Render("⚠ " + outcome)
	}
	fmt.Fprintf(c.writer, "%s %s\n", c.accent.Render(label), mark)
}

// Infof prints an informational message
func (c *Console) Infof(format string, args ...interface{}) {
	if c.level >= VerbosityNormal {
		fmt.Fprintln(c.writer, c.info.Render(fmt.Sprintf(format, args...)))
	}
}

// Warningf prints a warning message
func (c *Console) Warningf(format string, args ...interface{}) {
	fmt.Fprintln(c.writer, c.warning.Render("⚠ Warning: "+fmt.Sprintf(format, args...)))
}

// Errorf prints an error message
func (c *Console) Errorf(format string, args ...interface{}) {
	fmt.Fprintln(c.writer, c.failure.Render("✗ Error: "+fmt.Sprintf(format, args...)))
}

// Verbosef prints detailed information (only in verbose mode)
func (c *Console) Verbosef(format string, args ...interface{}) {
	if c.level >= VerbosityVerbose {
		fmt.Fprintln(c.writer, c.muted.Render("→ "+fmt.Sprintf(format, args...)))
	}
}

// Debugf prints debug information (only in debug mode)
func (c *Console) Debugf(format string, args ...interface{}) {
	if c.level >= VerbosityDebug {
		fmt.Fprintln(c.writer, c.muted.Render("[DEBUG] "+fmt.Sprintf(format, args...)))
	}
}

// RunSummary is the console view of a finished run.
type RunSummary struct {
	TestCaseID  string
	RunID       string
	Status      string
	Message     string
	FailingStep *int
	Elapsed     time.Duration
	StepsRun    int
	Recovered   int
}

// Summary prints the final run summary. It is printed at every verbosity.
func (c *Console) Summary(s RunSummary) {
	rule := strings.Repeat("=", 70)
	fmt.Fprintln(c.writer)
	fmt.Fprintln(c.writer, c.bold.Render(rule))
	fmt.Fprintln(c.writer, c.bold.Render("  RUN SUMMARY"))
	fmt.Fprintln(c.writer, c.bold.Render(rule))

	fmt.Fprint(c.writer, "  Status: ")
	switch s.Status {
	case "pass":
		fmt.Fprintln(c.writer, c.success.Render("✓ PASS"))
	case "fail":
		fmt.Fprintln(c.writer, c.failure.Render("✗ FAIL"))
	case "error":
		fmt.Fprintln(c.writer, c.failure.Render("✗ ERROR"))
	default:
		fmt.Fprintln(c.writer, s.Status)
	}

	fmt.Fprintf(c.writer, "  Test case: %s\n", s.TestCaseID)
	if c.level >= VerbosityVerbose && s.RunID != "" {
		fmt.Fprintf(c.writer, "  Run: %s\n", s.RunID)
	}
	fmt.Fprintf(c.writer, "  Duration: %s\n", s.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(c.writer, "  Steps run: %d (recovered failures: %d)\n", s.StepsRun, s.Recovered)

	if s.FailingStep != nil {
		fmt.Fprintf(c.writer, "  Failing step: %d\n", *s.FailingStep)
	}
	if s.Message != "" {
		fmt.Fprintf(c.writer, "  Message: %s\n", s.Message)
	}

	fmt.Fprintln(c.writer, c.bold.Render(rule))
	fmt.Fprintln(c.writer)
}
