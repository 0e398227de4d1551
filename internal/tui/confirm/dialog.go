// Package confirm asks on the terminal whether an issue should be filed when
// the duplicate check could not decide.
package confirm

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/altinukshini/gha-triage/internal/dedup"
	"github.com/altinukshini/gha-triage/internal/model"
	"github.com/altinukshini/gha-triage/internal/triage"
	"github.com/altinukshini/gha-triage/internal/ui"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	// chrome is the number of rows used around the preview.
	chrome = 9
)

type Model struct {
	Title   string
	Message string

	viewport viewport.Model
	help     help.Model
	keys     ui.KeyMap
	width    int

	selected  bool // true = confirm selected
	done      bool
	confirmed bool
}

// New returns a prompt showing preview in a scrollable pane. No is
// selected initially.
func New(title, message, preview string) Model {
	vp := viewport.New(defaultWidth-4, defaultHeight-chrome)
	vp.SetContent(preview)
	return Model{
		Title:    title,
		Message:  message,
		viewport: vp,
		help:     help.New(),
		keys:     ui.Keys,
		width:    defaultWidth,
	}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.done {
		return m, tea.Quit
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = max(msg.Width-4, 10)
		m.viewport.Height = max(msg.Height-chrome, 3)
		return m, nil
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Yes):
			return m.finish(true)
		case key.Matches(msg, m.keys.No), key.Matches(msg, m.keys.Quit):
			return m.finish(false)
		case key.Matches(msg, m.keys.Enter):
			return m.finish(m.selected)
		case key.Matches(msg, m.keys.Toggle):
			m.selected = !m.selected
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) finish(confirmed bool) (tea.Model, tea.Cmd) {
	m.done = true
	m.confirmed = confirmed
	return m, tea.Quit
}

// Done reports whether an answer was given.
func (m Model) Done() bool { return m.done }

func (m Model) Confirmed() bool { return m.confirmed }

func (m Model) View() string {
	if m.done {
		return ""
	}

	title := lipgloss.NewStyle().Bold(true).
		Foreground(ui.ColorWarning).
		Render(m.Title)

	yesStyle := lipgloss.NewStyle().Padding(0, 1)
	noStyle := lipgloss.NewStyle().Padding(0, 1)

	if m.selected {
		yesStyle = yesStyle.Bold(true).Background(ui.ColorSuccess).Foreground(ui.ColorText)
		noStyle = noStyle.Foreground(ui.ColorMuted)
	} else {
		yesStyle = yesStyle.Foreground(ui.ColorMuted)
		noStyle = noStyle.Bold(true).Background(ui.ColorFailure).Foreground(ui.ColorText)
	}

	preview := ui.StylePane.Width(m.viewport.Width).Render(m.viewport.View())
	scroll := ui.StyleMuted.Render(fmt.Sprintf("%3.f%%", m.viewport.ScrollPercent()*100))

	return fmt.Sprintf("%s\n%s\n%s\n%s\n\n%s  %s\n%s\n",
		title, m.Message, preview, scroll,
		yesStyle.Render("File issue"), noStyle.Render("Skip"),
		m.help.View(m.keys))
}

// Ask runs the prompt on in and out and returns the answer. Aborting the
// prompt counts as no.
func Ask(ctx context.Context, in io.Reader, out io.Writer, title, message, preview string) (bool, error) {
	p := tea.NewProgram(New(title, message, preview),
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
	)
	final, err := p.Run()
	if err != nil {
		return false, fmt.Errorf("confirmation prompt: %w", err)
	}
	m, ok := final.(Model)
	return ok && m.Confirmed(), nil
}

// Confirmer asks through the terminal on in and out.
func Confirmer(in io.Reader, out io.Writer) triage.Confirmer {
	return func(ctx context.Context, is model.Issue, v dedup.Verdict, closest *model.ExistingIssue) (bool, error) {
		return Ask(ctx, in, out, "File this issue?", Describe(v, closest), Preview(is))
	}
}

// Describe explains an inconclusive verdict in one or two lines.
func Describe(v dedup.Verdict, closest *model.ExistingIssue) string {
	msg := fmt.Sprintf("The duplicate check was inconclusive: %s.", v)
	if closest != nil {
		msg += fmt.Sprintf("\nClosest: #%d %s", closest.Number, closest.Title)
		if closest.HTMLURL != "" {
			msg += " (" + closest.HTMLURL + ")"
		}
	}
	return msg
}

// Preview is the text shown in the scrollable pane.
func Preview(is model.Issue) string {
	var b strings.Builder
	b.WriteString(is.Title)
	if len(is.Labels) > 0 {
		b.WriteString("  [" + strings.Join(is.Labels, ", ") + "]")
	}
	b.WriteString("\n\n")
	b.WriteString(is.Body)
	return b.String()
}
