// Package issue renders failed runs as issue titles and markdown bodies.
package issue

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"

	"github.com/altinukshini/gha-triage/internal/dedup"
	"github.com/altinukshini/gha-triage/internal/model"
	"github.com/altinukshini/gha-triage/internal/summarize"
)

const (
	DefaultTitle        = "Scheduled run failed"
	DefaultMaxLineWidth = 500
	// DefaultMaxLogBytes bounds the located log attached to a job section.
	DefaultMaxLogBytes = 5000
	// MaxBodyLength is the largest issue body GitHub accepts.
	MaxBodyLength = 65536
)

// Failure is one analysed failed job.
type Failure struct {
	Job      model.Job
	Fragment model.Fragment
	Summary  summarize.Summary
}

// Step returns the name of the step the fragment was located in.
func (f Failure) Step() string {
	if f.Fragment.Provenance.Step != "" {
		return f.Fragment.Provenance.Step
	}
	if s, ok := f.Job.FirstFailedStep(); ok {
		return s.Name
	}
	return "unknown"
}

type Composer struct {
	// RepoURL is canonicalized with CanonicalRepoURL; the run's own
	// repository is used when empty.
	RepoURL string
	Host    string
	Title   string
	Labels  []string

	MaxLineWidth int
	MaxLogBytes  int
	// EmbedSignature appends a hidden normalized summary used by later
	// duplicate checks.
	EmbedSignature bool
}

func NewComposer(repoURL string, labels ...string) *Composer {
	return &Composer{
		RepoURL:        repoURL,
		Title:          DefaultTitle,
		Labels:         labels,
		MaxLineWidth:   DefaultMaxLineWidth,
		MaxLogBytes:    DefaultMaxLogBytes,
		EmbedSignature: true,
	}
}

// ComposeJob renders a single failed job.
func (c *Composer) ComposeJob(run model.WorkflowRun, job model.Job, frag model.Fragment, sum summarize.Summary) model.Issue {
	return c.Compose(run, []Failure{{Job: job, Fragment: frag, Summary: sum}})
}

// Compose renders every failure of run into one issue. It never fails: an
// unparseable repository URL is used as given.
func (c *Composer) Compose(run model.WorkflowRun, failures []Failure) model.Issue {
	repoURL := c.repoURL(run)

	var b strings.Builder
	fmt.Fprintf(&b, "**Run ID**: %d [LINK TO RUN](%s)\n\n", run.ID, runURL(repoURL, run.ID))
	noun := "jobs"
	if len(failures) == 1 {
		noun = "job"
	}
	fmt.Fprintf(&b, "**%d %s failed:**\n", len(failures), noun)
	for _, f := range failures {
		fmt.Fprintf(&b, "- **`%s`**\n", f.Job.Name)
	}

	var sigs []string
	for _, f := range failures {
		c.writeJob(&b, repoURL, run.ID, f)
		sigs = append(sigs, c.clip(f.Summary.Text()))
	}

	body := b.String()
	if c.EmbedSignature {
		// Normalize bounds the signature to dedup.MaxSignatureRunes, far below
		// MaxBodyLength.
		sig := dedup.EmbedSignature(dedup.Normalize(strings.Join(sigs, "\n")))
		body = truncateBody(body, MaxBodyLength-len(sig)-2) + "\n\n" + sig
	} else {
		body = truncateBody(body, MaxBodyLength)
	}

	title := c.Title
	if title == "" {
		title = DefaultTitle
	}
	return model.Issue{Title: title, Body: body, Labels: c.labels(failures)}
}

func (c *Composer) writeJob(b *strings.Builder, repoURL string, runID int64, f Failure) {
	summary := c.clip(f.Summary.Text())
	fence := fenceFor(summary)

	fmt.Fprintf(b, "\n### `%s` (ID %d)\n", f.Job.Name, f.Job.ID)
	fmt.Fprintf(b, "**Step failed:** `%s`\n\\\n", f.Step())
	fmt.Fprintf(b, "**Log:** %s\n\\\n", jobURL(repoURL, runID, f.Job.ID))
	fmt.Fprintf(b, "*Best effort error summary*:\n%s\n%s%s\n", fence, summary, fence)

	full := f.Fragment.Text
	if strings.TrimSpace(full) == "" || full == f.Summary.Text() {
		return
	}
	full = c.tail(full)
	fence = fenceFor(full)
	fmt.Fprintf(b, "<details><summary>Located log: <code>%s</code></summary>\n\n", f.Fragment.Provenance.Source())
	fmt.Fprintf(b, "%s\n%s", fence, full)
	if !strings.HasSuffix(full, "\n") {
		b.WriteString("\n")
	}
	fmt.Fprintf(b, "%s\n\n</details>\n", fence)
}

func (c *Composer) repoURL(run model.WorkflowRun) string {
	raw := c.RepoURL
	if raw == "" {
		raw = run.Repo
	}
	if raw == "" {
		raw = run.Repository.HTMLURL
	}
	canonical, err := CanonicalRepoURL(raw, c.Host)
	if err != nil {
		return strings.TrimRight(strings.TrimSpace(raw), "/")
	}
	return canonical
}

// labels returns the configured labels plus the build task of each failure,
// without duplicates, in first-seen order.
func (c *Composer) labels(failures []Failure) []string {
	seen := map[string]bool{}
	var out []string
	add := func(l string) {
		if l != "" && !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	for _, l := range c.Labels {
		add(l)
	}
	for _, f := range failures {
		add(f.Fragment.Provenance.Task)
	}
	return out
}

// clip shortens every line to the configured display width.
func (c *Composer) clip(text string) string {
	if c.MaxLineWidth <= 0 {
		return text
	}
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		if runewidth.StringWidth(l) > c.MaxLineWidth {
			lines[i] = runewidth.Truncate(l, c.MaxLineWidth, "...")
		}
	}
	return strings.Join(lines, "\n")
}

// tail keeps the last MaxLogBytes of text, starting on a line boundary.
func (c *Composer) tail(text string) string {
	if c.MaxLogBytes <= 0 || len(text) <= c.MaxLogBytes {
		return c.clip(text)
	}
	cut := text[len(text)-c.MaxLogBytes:]
	if i := strings.IndexByte(cut, '\n'); i >= 0 && i < len(cut)-1 {
		cut = cut[i+1:]
	}
	return "[... truncated ...]\n" + c.clip(cut)
}

// fenceFor returns a backtick fence longer than any backtick run in text.
func fenceFor(text string) string {
	longest, run := 0, 0
	for _, r := range text {
		if r == '`' {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	return strings.Repeat("`", max(3, longest+1))
}

func truncateBody(body string, limit int) string {
	if len(body) <= limit {
		return body
	}
	const note = "\n\n*Body truncated.*\n"
	cut := max(0, limit-len(note))
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut] + note
}
