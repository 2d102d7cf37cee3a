package models

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/panbanda/deadapi/internal/output"
)

const unusedTitle = "Unused Core Methods"

func (r *UnusedReport) packageRows() [][]string {
	pkgs := r.Summary.TopPackages(r.TopN)
	rows := make([][]string, len(pkgs))
	for i, p := range pkgs {
		name := p
		if name == "" {
			name = "(default)"
		}
		rows[i] = []string{name, strconv.Itoa(r.Summary.ByPackage[p])}
	}
	return rows
}

func (r *UnusedReport) methodRows() [][]string {
	rows := make([][]string, len(r.Methods))
	for i, m := range r.Methods {
		rows[i] = []string{m.Signature}
	}
	return rows
}

func (r *UnusedReport) failureRows() [][]string {
	rows := make([][]string, len(r.Failures))
	for i, f := range r.Failures {
		state := "abandoned"
		if f.Quarantined {
			state = "quarantined"
		}
		rows[i] = []string{f.Artifact, state, f.Error}
	}
	return rows
}

func (r *UnusedReport) summaryLines() []string {
	s := r.Summary
	return []string{
		fmt.Sprintf("Candidates:  %d", s.CandidatesSeeded),
		fmt.Sprintf("Unused:      %d", s.TotalUnused),
		fmt.Sprintf("Analyzed:    %d artifacts", s.ArtifactsAnalyzed),
		fmt.Sprintf("Failed:      %d artifacts", s.ArtifactsFailed),
		fmt.Sprintf("Anomalies:   %d", s.HierarchyAnomalies),
		fmt.Sprintf("Duration:    %s", s.Duration.Round(time.Millisecond)),
	}
}

// RenderText implements output.Renderable for text output.
func (r *UnusedReport) RenderText(w io.Writer, colored bool) error {
	title := fmt.Sprintf("%s (run %s)", unusedTitle, r.Summary.RunID)
	if colored {
		color.New(color.Bold, color.FgCyan).Fprintln(w, title)
	} else {
		fmt.Fprintln(w, title)
	}
	fmt.Fprintln(w, strings.Repeat("=", len(title)))
	fmt.Fprintln(w)
	for _, line := range r.summaryLines() {
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w)

	if len(r.Methods) == 0 {
		msg := "No unused methods found"
		if colored {
			color.New(color.FgGreen).Fprintln(w, msg)
		} else {
			fmt.Fprintln(w, msg)
		}
	} else {
		packages := output.NewTable("By Package", []string{"Package", "Unused"}, r.packageRows(), nil, nil)
		if err := packages.RenderText(w, colored); err != nil {
			return err
		}
		methods := output.NewTable("Methods", []string{"Signature"}, r.methodRows(),
			[]string{fmt.Sprintf("Total: %d", len(r.Methods))}, nil)
		if err := methods.RenderText(w, colored); err != nil {
			return err
		}
	}

	if len(r.Failures) > 0 {
		failures := output.NewTable("Abandoned Artifacts", []string{"Artifact", "State", "Error"}, r.failureRows(), nil, nil)
		if colored {
			color.New(color.FgYellow).Fprintf(w, "%d artifacts could not be analyzed\n\n", len(r.Failures))
		}
		return failures.RenderText(w, colored)
	}
	return nil
}

// RenderMarkdown implements output.Renderable for markdown output.
func (r *UnusedReport) RenderMarkdown(w io.Writer) error {
	fmt.Fprintf(w, "# %s\n\n", unusedTitle)
	fmt.Fprintf(w, "**Run:** `%s`\n\n", r.Summary.RunID)

	fmt.Fprintln(w, "| Metric | Value |")
	fmt.Fprintln(w, "|--------|-------|")
	fmt.Fprintf(w, "| Candidates | %d |\n", r.Summary.CandidatesSeeded)
	fmt.Fprintf(w, "| Unused | %d |\n", r.Summary.TotalUnused)
	fmt.Fprintf(w, "| Artifacts analyzed | %d |\n", r.Summary.ArtifactsAnalyzed)
	fmt.Fprintf(w, "| Artifacts failed | %d |\n", r.Summary.ArtifactsFailed)
	fmt.Fprintf(w, "| Hierarchy anomalies | %d |\n", r.Summary.HierarchyAnomalies)
	fmt.Fprintln(w)

	sections := []*output.Table{
		output.NewTable("By Package", []string{"Package", "Unused"}, r.packageRows(), nil, nil),
		output.NewTable("Methods", []string{"Signature"}, r.methodRows(), nil, nil),
	}
	if len(r.Failures) > 0 {
		sections = append(sections,
			output.NewTable("Abandoned Artifacts", []string{"Artifact", "State", "Error"}, r.failureRows(), nil, nil))
	}
	for _, t := range sections {
		if err := t.RenderMarkdown(w); err != nil {
			return err
		}
	}
	return nil
}

// RenderData implements output.Renderable for JSON/TOON output.
func (r *UnusedReport) RenderData() any {
	return r
}
