package summarize

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/altinukshini/gha-triage/internal/model"
	"github.com/altinukshini/gha-triage/internal/search"
)

type Class int

const (
	Irrelevant Class = iota
	Context
	Error
	Ignored
)

func (c Class) String() string {
	switch c {
	case Context:
		return "context"
	case Error:
		return "error"
	case Ignored:
		return "ignored"
	default:
		return "irrelevant"
	}
}

type Line struct {
	Text   string
	Class  Class
	Number int    // 1-based line number within the fragment
	Marker string // error marker that matched, if any
}

// Summary is a bounded, ordered selection of lines from a fragment.
type Summary struct {
	Lines    []Line
	Fragment model.Fragment
	// Fallback is set when no error line was found and the summary is the
	// tail of the fragment.
	Fallback bool
}

func (s Summary) Len() int { return len(s.Lines) }

func (s Summary) Strings() []string {
	out := make([]string, len(s.Lines))
	for i, l := range s.Lines {
		out[i] = l.Text
	}
	return out
}

// Text joins the lines, newline terminated.
func (s Summary) Text() string {
	if len(s.Lines) == 0 {
		return ""
	}
	return strings.Join(s.Strings(), "\n") + "\n"
}

// AsFragment wraps the summary text as a fragment with the same provenance.
func (s Summary) AsFragment() model.Fragment {
	return model.WholeFragment(s.Text(), s.Fragment.Provenance)
}

type Summarizer struct {
	rules   Rules
	errors  search.Set
	context search.Set
	ignore  search.Set
}

func New(rules Rules) (*Summarizer, error) {
	if rules.Window < 0 {
		return nil, fmt.Errorf("context window must be >= 0, got %d", rules.Window)
	}
	if rules.MaxLines <= 0 {
		return nil, fmt.Errorf("max lines must be > 0, got %d", rules.MaxLines)
	}
	if rules.TailLines <= 0 {
		rules.TailLines = rules.MaxLines
	}
	s := &Summarizer{rules: rules}
	var err error
	if s.errors, err = search.CompileSet(rules.Errors); err != nil {
		return nil, fmt.Errorf("error markers: %w", err)
	}
	if s.context, err = search.CompileSet(rules.Context); err != nil {
		return nil, fmt.Errorf("context markers: %w", err)
	}
	if s.ignore, err = search.CompileSet(rules.Ignore); err != nil {
		return nil, fmt.Errorf("ignore markers: %w", err)
	}
	return s, nil
}

// Default returns a Summarizer using DefaultRules.
func Default() *Summarizer {
	s, err := New(DefaultRules())
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Summarizer) Rules() Rules { return s.rules }

// Summarize never fails: a fragment with visible text always yields at least
// one line, falling back to the fragment's tail when nothing matches.
func (s *Summarizer) Summarize(frag model.Fragment) Summary {
	lines := s.classify(frag.Text)

	var selected []Line
	for _, l := range lines {
		if l.Class == Error || l.Class == Context {
			selected = append(selected, l)
		}
	}
	if len(selected) == 0 {
		return Summary{Lines: s.tail(lines), Fragment: frag, Fallback: true}
	}

	selected = dedupeConsecutive(selected)
	if len(selected) > s.rules.MaxLines {
		selected = selected[len(selected)-s.rules.MaxLines:]
	}
	selected = dedupeConsecutive(s.pruneOrphans(selected))
	return Summary{Lines: selected, Fragment: frag}
}

func (s *Summarizer) classify(text string) []Line {
	first := 1
	if m := s.rules.SectionMarker; m != "" {
		if i := strings.LastIndex(text, m); i >= 0 {
			// an empty section falls back to the whole fragment
			if _, rest, _ := strings.Cut(text[i:], "\n"); strings.TrimSpace(ansi.Strip(rest)) != "" {
				first += strings.Count(text[:i], "\n") + 1
				text = rest
			}
		}
	}

	raw := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	lines := make([]Line, 0, len(raw))
	for i, r := range raw {
		l := Line{Text: clean(r), Number: first + i}
		switch {
		case l.Text == "":
		case matches(s.ignore, l.Text):
			l.Class = Ignored
		default:
			if m, ok := s.errors.First(l.Text); ok {
				l.Class = Error
				l.Marker = m.Query().String()
			}
		}
		lines = append(lines, l)
	}

	w := s.rules.Window
	for i := range lines {
		if lines[i].Class != Error {
			continue
		}
		for j := max(0, i-w); j <= min(len(lines)-1, i+w); j++ {
			if lines[j].Class == Irrelevant && lines[j].Text != "" && s.isContext(lines[j].Text) {
				lines[j].Class = Context
			}
		}
	}
	return lines
}

func (s *Summarizer) isContext(line string) bool {
	if len(s.context) == 0 {
		return true
	}
	return matches(s.context, line)
}

// pruneOrphans drops context lines that are no longer within the window of
// a retained error line once the selection has been reduced.
func (s *Summarizer) pruneOrphans(lines []Line) []Line {
	w := s.rules.Window
	out := lines[:0:0]
	for i, l := range lines {
		if l.Class == Context && !nearError(lines, i, w) {
			continue
		}
		out = append(out, l)
	}
	return out
}

func nearError(lines []Line, i, w int) bool {
	for j := max(0, i-w); j <= min(len(lines)-1, i+w); j++ {
		if lines[j].Class == Error {
			return true
		}
	}
	return false
}

func (s *Summarizer) tail(lines []Line) []Line {
	n := min(s.rules.TailLines, s.rules.MaxLines)

	var kept []Line
	for _, l := range lines {
		if l.Text != "" && l.Class != Ignored {
			kept = append(kept, l)
		}
	}
	if len(kept) == 0 {
		for _, l := range lines {
			if l.Text != "" {
				kept = append(kept, l)
			}
		}
	}
	if len(kept) > n {
		kept = kept[len(kept)-n:]
	}
	return kept
}

func dedupeConsecutive(lines []Line) []Line {
	out := lines[:0:0]
	for _, l := range lines {
		if n := len(out); n > 0 && out[n-1].Text == l.Text {
			continue
		}
		out = append(out, l)
	}
	return out
}

func matches(set search.Set, line string) bool {
	_, ok := set.First(line)
	return ok
}

func clean(line string) string {
	return strings.TrimRight(ansi.Strip(line), " \t\r")
}
