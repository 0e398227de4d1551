package model

import (
	"fmt"
	"strings"
)

// Provenance records where a fragment was taken from.
type Provenance struct {
	JobID   int64
	JobName string
	Step    string
	// Nested lists the nested log names followed to reach the fragment,
	// outermost first. Empty for a step-scoped fragment.
	Nested []string
	// Rank is the specificity of the fragment: 0 for the step log, one
	// more for every nested log followed.
	Rank int
	// Task is the build task kind derived from the nested log name, if any.
	Task string
}

// Source names the text the fragment was sliced from.
func (p Provenance) Source() string {
	if n := len(p.Nested); n > 0 {
		return p.Nested[n-1]
	}
	if p.Step != "" {
		return fmt.Sprintf("%s / %s", p.JobName, p.Step)
	}
	return p.JobName
}

func (p Provenance) String() string {
	parts := []string{fmt.Sprintf("job %d", p.JobID)}
	if p.Step != "" {
		parts = append(parts, "step "+p.Step)
	}
	parts = append(parts, p.Nested...)
	return strings.Join(parts, " > ")
}

// Fragment is a contiguous slice [Start, End) of a source text.
type Fragment struct {
	Text       string
	Start      int
	End        int
	Provenance Provenance
}

// NewFragment slices source, clamping the range so that it is always a
// valid sub-range of source.
func NewFragment(source string, start, end int, prov Provenance) Fragment {
	if start < 0 {
		start = 0
	}
	if end > len(source) {
		end = len(source)
	}
	if start > end {
		start = end
	}
	return Fragment{
		Text:       source[start:end],
		Start:      start,
		End:        end,
		Provenance: prov,
	}
}

// WholeFragment covers all of source.
func WholeFragment(source string, prov Provenance) Fragment {
	return NewFragment(source, 0, len(source), prov)
}

func (f Fragment) Empty() bool {
	return strings.TrimSpace(f.Text) == ""
}
