// Package summarize reduces a located log fragment to the lines most likely
// to explain the failure.
package summarize

import "github.com/altinukshini/gha-triage/internal/search"

// YoctoErrorSummary introduces the recap BitBake prints at the end of a
// failed build. Only text after the last occurrence is summarized.
const YoctoErrorSummary = "--- Error summary ---"

type Rules struct {
	// Errors mark a line as an error. Case-sensitive markers are tried
	// before case-insensitive ones.
	Errors []search.Query
	// Context restricts which lines near an error are kept. Empty means
	// any non-blank line.
	Context []search.Query
	// Ignore drops lines outright, before any other rule.
	Ignore []search.Query
	// SectionMarker, when found, limits the summary to the text after its
	// last occurrence.
	SectionMarker string

	Window    int
	MaxLines  int
	TailLines int
}

const (
	DefaultWindow    = 2
	DefaultMaxLines  = 30
	DefaultTailLines = 20
)

func DefaultRules() Rules {
	return Rules{
		Errors: []search.Query{
			{Pattern: "ERROR:", Prefix: true, CaseSensitive: true},
			{Pattern: "##[error]", Prefix: true, CaseSensitive: true},
			{Pattern: "FAILED", CaseSensitive: true},
			{Pattern: "--- FAIL:", Prefix: true, CaseSensitive: true},
			{Pattern: "FAIL\t", Prefix: true, CaseSensitive: true},
			{Pattern: "panic:", Prefix: true, CaseSensitive: true},
			{Pattern: "fatal:", Prefix: true, CaseSensitive: true},
			{Pattern: "E!", Prefix: true, CaseSensitive: true},
			{Pattern: "[ERROR]", Prefix: true, CaseSensitive: true},
			{Pattern: `\berror(\[\w+\])?:`, IsRegex: true},
			{Pattern: `fatal error`},
			{Pattern: `failed with exit code`},
			{Pattern: `command not found`},
			{Pattern: `no such file or directory`},
		},
		Ignore: []search.Query{
			{Pattern: "error: Recipe ", Prefix: true, CaseSensitive: true},
			{Pattern: "##[error]Process completed with exit code", Prefix: true, CaseSensitive: true},
		},
		SectionMarker: YoctoErrorSummary,
		Window:        DefaultWindow,
		MaxLines:      DefaultMaxLines,
		TailLines:     DefaultTailLines,
	}
}
