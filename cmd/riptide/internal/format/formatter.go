// Package format renders scan results and failures for the CLI.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/riptide-sec/riptide/pkg/scan"
)

// Mode selects the output rendering.
type Mode string

const (
	ModeText Mode = "text"
	ModeJSON Mode = "json"
)

// ParseMode maps a flag value to a Mode, defaulting to text.
func ParseMode(s string) Mode {
	if strings.EqualFold(s, string(ModeJSON)) {
		return ModeJSON
	}
	return ModeText
}

// Formatter renders scan outcomes to the command's output streams.
type Formatter interface {
	PrintResult(result scan.Result) error
	PrintFailure(err error, errorCode string) error
}

type formatter struct {
	stdout io.Writer
	stderr io.Writer
	mode   Mode
	color  bool
}

// New builds a Formatter.
func New(stdout, stderr io.Writer, mode Mode, useColor bool) Formatter {
	return &formatter{stdout: stdout, stderr: stderr, mode: mode, color: useColor}
}

// PrintResult renders the aggregated scan result.
func (f *formatter) PrintResult(result scan.Result) error {
	if f.mode == ModeJSON {
		return f.printJSON(result)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("\nScan %s finished: %s\n", result.RunID, f.colorStatus(result.Status)))
	if result.StatusMessage != "" {
		sb.WriteString("  " + result.StatusMessage + "\n")
	}
	sb.WriteString(fmt.Sprintf("  Target:   %s\n", result.Target))
	sb.WriteString(fmt.Sprintf("  Duration: %.1fs\n", result.FinishedAt.Sub(result.StartedAt).Seconds()))
	sb.WriteString(fmt.Sprintf("  Plugins:  %d\n", len(result.Outcomes)))
	sb.WriteString(fmt.Sprintf("  Findings: %d\n", len(result.Findings)))

	if _, err := io.WriteString(f.stdout, sb.String()); err != nil {
		return err
	}
	if len(result.Findings) > 0 {
		if err := f.printFindings(result.Findings); err != nil {
			return err
		}
	}
	return f.printFailedOutcomes(result.Outcomes)
}

func (f *formatter) printFindings(findings []scan.Finding) error {
	w := tabwriter.NewWriter(f.stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\nSEVERITY\tID\tTITLE\tPLUGIN")
	for _, finding := range findings {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			f.colorSeverity(finding.Severity), finding.ID, finding.Title, finding.Plugin)
	}
	return w.Flush()
}

func (f *formatter) printFailedOutcomes(outcomes []scan.PluginOutcome) error {
	var failed []scan.PluginOutcome
	for _, o := range outcomes {
		if !o.Succeeded() {
			failed = append(failed, o)
		}
	}
	if len(failed) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("\nFailed plugins:\n")
	for _, o := range failed {
		sb.WriteString(fmt.Sprintf("  - %s: %s\n", o.Plugin, o.Error))
	}
	_, err := io.WriteString(f.stdout, sb.String())
	return err
}

// PrintFailure renders a run-level failure.
func (f *formatter) PrintFailure(err error, errorCode string) error {
	if f.mode == ModeJSON {
		return f.printJSON(map[string]any{
			"success":    false,
			"error":      err.Error(),
			"error_code": errorCode,
		})
	}

	message := fmt.Sprintf("✗ Scan failed: %v\n", err)
	if f.color {
		_, werr := color.New(color.FgRed).Fprint(f.stderr, message)
		return werr
	}
	_, werr := io.WriteString(f.stderr, message)
	return werr
}

func (f *formatter) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f.stdout, string(data))
	return err
}

func (f *formatter) colorStatus(status scan.Status) string {
	if !f.color {
		return string(status)
	}
	switch status {
	case scan.StatusSucceeded:
		return color.GreenString(string(status))
	case scan.StatusPartiallySucceeded:
		return color.YellowString(string(status))
	default:
		return color.RedString(string(status))
	}
}

func (f *formatter) colorSeverity(severity scan.Severity) string {
	if !f.color {
		return string(severity)
	}
	switch severity {
	case scan.CriticalSeverity, scan.HighSeverity:
		return color.RedString(string(severity))
	case scan.MediumSeverity:
		return color.YellowString(string(severity))
	default:
		return string(severity)
	}
}
