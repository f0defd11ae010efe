package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/loykin/castctl/internal/extension"
	"github.com/loykin/castctl/internal/history"
	"github.com/loykin/castctl/internal/supervisor"
)

var (
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	stoppedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	nameStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

func printStatus(w io.Writer, st supervisor.Status, version string, detailed bool) {
	if st.Running {
		_, _ = fmt.Fprintf(w, "castd is %s (pid %d)\n", runningStyle.Render("running"), st.PID)
	} else {
		_, _ = fmt.Fprintf(w, "castd is %s\n", stoppedStyle.Render("stopped"))
	}
	if version != "" {
		_, _ = fmt.Fprintf(w, "version: %s\n", version)
	}
	if detailed {
		_, _ = fmt.Fprintf(w, "%s\n", dimStyle.Render("detected by "+st.DetectedBy))
	}
}

func printExtensions(w io.Writer, records []extension.Record) {
	if len(records) == 0 {
		_, _ = fmt.Fprintln(w, "no extensions installed")
		return
	}
	nameWidth := 0
	for _, r := range records {
		if len(r.Name) > nameWidth {
			nameWidth = len(r.Name)
		}
	}
	for _, r := range records {
		version := r.InstalledVersion
		if version == "" {
			version = dimStyle.Render("-")
		}
		_, _ = fmt.Fprintf(w, "%s  %-10s  %s\n",
			nameStyle.Render(pad(r.Name, nameWidth)), r.Origin.String(), version)
	}
}

func printHistory(w io.Writer, runs []history.Run) {
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(w, "no upgrade runs recorded")
		return
	}
	for _, run := range runs {
		line := fmt.Sprintf("%s  %s", run.StartedAt.Format("2006-01-02 15:04:05"), run.Outcome)
		switch run.Outcome {
		case history.OutcomeFailed:
			line = stoppedStyle.Render(line)
			if run.FailedStage != "" {
				line += dimStyle.Render("  (" + run.FailedStage + ")")
			}
		case history.OutcomeDeclined:
			line = warnStyle.Render(line)
		}
		_, _ = fmt.Fprintln(w, line)
		for _, ch := range run.Changes {
			_, _ = fmt.Fprintf(w, "  %s %s -> %s\n", nameStyle.Render(ch.Name), ch.From, ch.To)
		}
		if run.Error != "" {
			_, _ = fmt.Fprintf(w, "  %s\n", dimStyle.Render(run.Error))
		}
	}
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func printJSON(w io.Writer, v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	_, _ = fmt.Fprintln(w, string(b))
}
