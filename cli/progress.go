package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"auto_blog_pipeline/pipeline"
)

// Style definitions.
var (
	stageStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	stepStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// terminalProgress prints a banner per stage and an indented line per step.
type terminalProgress struct {
	w io.Writer
}

var _ pipeline.Progress = terminalProgress{}

func (p terminalProgress) Stage(n int, title string) {
	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, stageStyle.Render(fmt.Sprintf("STAGE %d: %s", n, strings.ToUpper(title))))
}

func (p terminalProgress) Step(format string, args ...any) {
	fmt.Fprintln(p.w, stepStyle.Render("  "+fmt.Sprintf(format, args...)))
}

func printSummary(w io.Writer, sum *pipeline.Summary) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, stageStyle.Render("PIPELINE COMPLETE"))
	row := func(label, value string) {
		fmt.Fprintf(w, "  %s %s\n", labelStyle.Render(fmt.Sprintf("%-16s", label+":")), value)
	}

	row("Run", sum.RunID)
	row("Stages", joinInts(sum.Stages))
	if rec := sum.Record; rec != nil && rec.Review != nil {
		row("Quality score", fmt.Sprintf("%g/10", rec.Review.QualityScore))
		if rec.Review.ReadyToPublish {
			row("Status", okStyle.Render("Ready to publish"))
		} else {
			row("Status", warnStyle.Render("Needs review"))
		}
	}
	if sum.Images != nil {
		row("Images", fmt.Sprintf("%d generated, %d embedded", len(sum.Images.Images), sum.ImagesEmbedded))
		for _, f := range sum.Images.Failures {
			row("Failed", errStyle.Render(fmt.Sprintf("%s (%s)", f.ImageID, f.Error)))
		}
	}
	for _, u := range sum.Unmatched {
		row("Not placed", warnStyle.Render(fmt.Sprintf("%s -> %q: %s", u.ImageID, u.TargetSection, u.Reason)))
	}
	row("Output", sum.OutputPath)
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ",")
}
