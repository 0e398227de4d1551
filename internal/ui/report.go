package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/altinukshini/gha-triage/internal/cache"
	"github.com/altinukshini/gha-triage/internal/model"
	"github.com/altinukshini/gha-triage/internal/summarize"
	"github.com/altinukshini/gha-triage/internal/triage"
)

// DefaultWidth is used when the output is not a terminal.
const DefaultWidth = 100

func RenderHeader(title, right string, width int) string {
	left := lipgloss.NewStyle().Bold(true).
		Foreground(ColorText).
		Render(" " + title)
	if right != "" {
		right = lipgloss.NewStyle().Foreground(ColorMuted).Render(right + " ")
	}

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	padding := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.NewStyle().
		Background(ColorHighlight).
		Width(width).
		Render(left + padding + right)
}

// RenderResults lists every analysed job with where its failure was found
// and the summary lines, truncated to width.
func RenderResults(run model.WorkflowRun, results []triage.Result, width int) string {
	if width <= 0 {
		width = DefaultWidth
	}
	label := lipgloss.NewStyle().Foreground(ColorMuted).Width(12)
	row := func(l, v string) string {
		return "  " + label.Render(l) + v + "\n"
	}

	var b strings.Builder
	b.WriteString(RenderHeader(run.DisplayName(), fmt.Sprintf("run %d", run.ID), width))
	b.WriteString("\n")
	b.WriteString(row("Workflow", run.Name))
	b.WriteString(row("Branch", run.HeadBranch))
	b.WriteString(row("Commit", run.ShortSHA()))
	b.WriteString(row("Conclusion", ConclusionStyle(string(run.Conclusion)).Render(string(run.Conclusion))))

	if len(results) == 0 {
		b.WriteString("\n  " + StyleMuted.Render("No failed jobs") + "\n")
		return b.String()
	}
	for _, r := range results {
		b.WriteString("\n")
		b.WriteString("  " + StatusIcon(string(r.Job.Conclusion)) + " " + StyleBold.Render(r.Job.Name) + "\n")
		if r.Err != nil {
			b.WriteString(row("Error", StyleFailure.Render(r.Err.Error())))
			continue
		}
		prov := r.Fragment.Provenance
		b.WriteString(row("Source", prov.Source()))
		if prov.Task != "" {
			b.WriteString(row("Task", prov.Task))
		}
		if prov.Rank > 0 {
			b.WriteString(row("Depth", fmt.Sprintf("%d", prov.Rank)))
		}
		b.WriteString(renderSummary(r.Summary, width-4))
	}
	return b.String()
}

func renderSummary(s summarize.Summary, width int) string {
	if s.Len() == 0 {
		return "    " + StyleMuted.Render("(empty summary)") + "\n"
	}
	var b strings.Builder
	if s.Fallback {
		b.WriteString("    " + StyleMuted.Render("no error lines found, showing the log tail") + "\n")
	}
	for _, l := range s.Lines {
		text := runewidth.Truncate(strings.ReplaceAll(l.Text, "\t", "    "), width, "…")
		if l.Class == summarize.Error {
			text = StyleError.Render(text)
		}
		b.WriteString("    " + text + "\n")
	}
	return b.String()
}

// RenderOutcome reports what CreateIssueFromRun did. The issue body is
// included for dry runs.
func RenderOutcome(out triage.Outcome, width int) string {
	if width <= 0 {
		width = DefaultWidth
	}
	var b strings.Builder
	b.WriteString(RenderResults(out.Run, out.Results, width))
	b.WriteString("\n")

	label := lipgloss.NewStyle().Foreground(ColorMuted).Width(12)
	row := func(l, v string) {
		b.WriteString("  " + label.Render(l) + v + "\n")
	}
	if out.Issue.Title != "" {
		row("Issue", StyleBold.Render(out.Issue.Title))
		if len(out.Issue.Labels) > 0 {
			row("Labels", strings.Join(out.Issue.Labels, ", "))
		}
	}
	if out.Verdict.Compared > 0 || out.Verdict.Issue != 0 {
		row("Duplicates", VerdictStyle(out.Verdict.Kind).Render(out.Verdict.String()))
	}
	if out.Closest != nil && out.Closest.HTMLURL != "" {
		row("Closest", out.Closest.HTMLURL)
	}
	row("Action", actionStyle(out.Action).Render(string(out.Action)))
	if out.Created != nil {
		row("Created", fmt.Sprintf("#%d %s", out.Created.Number, out.Created.HTMLURL))
	}

	if out.Action == triage.ActionDryRun && out.Issue.Body != "" {
		b.WriteString("\n")
		b.WriteString(StylePane.Width(width - 2).Render(out.Issue.Body))
		b.WriteString("\n")
	}
	return b.String()
}

func actionStyle(a triage.Action) lipgloss.Style {
	switch a {
	case triage.ActionCreated:
		return StyleSuccess
	case triage.ActionDryRun:
		return StyleInfo
	case triage.ActionDuplicate, triage.ActionInconclusive:
		return StyleWarning
	default:
		return StyleMuted
	}
}

// RenderCacheEntries lists cached runs, most recently used first.
func RenderCacheEntries(entries []cache.CacheEntry, total int64, width int) string {
	if width <= 0 {
		width = DefaultWidth
	}
	var b strings.Builder
	b.WriteString(RenderHeader("Log cache", fmt.Sprintf("%d runs | %s", len(entries), FormatSize(total)), width))
	b.WriteString("\n")
	if len(entries) == 0 {
		b.WriteString("  " + StyleMuted.Render("Cache is empty") + "\n")
		return b.String()
	}
	for _, e := range entries {
		name := e.WorkflowName
		if name == "" {
			name = "(unknown workflow)"
		}
		title := fmt.Sprintf("%s  run %d (attempt %d)", name, e.RunID, e.Attempt)
		b.WriteString("  " + StatusIcon(e.Conclusion) + " " + runewidth.Truncate(title, width-6, "…") + "\n")

		var meta []string
		if e.Repo != "" {
			meta = append(meta, e.Repo)
		}
		if e.Branch != "" {
			meta = append(meta, e.Branch)
		}
		meta = append(meta, FormatSize(e.Size), "used "+RelativeTime(e.LastAccessed))
		b.WriteString("    " + StyleMuted.Render(strings.Join(meta, " | ")) + "\n")
	}
	return b.String()
}

// FormatSize formats a byte count into a human-readable string (KB, MB, GB).
func FormatSize(bytes int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
	)
	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(gb))
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// RelativeTime returns a human-readable relative time string.
func RelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		m := int(d.Minutes())
		if m == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", m)
	case d < 24*time.Hour:
		h := int(d.Hours())
		if h == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", h)
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
}
