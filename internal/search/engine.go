// Package search matches log lines against plain or regex markers.
package search

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Query describes a single marker.
type Query struct {
	Pattern       string
	IsRegex       bool
	CaseSensitive bool
	// Prefix anchors a plain pattern at the start of the line, ignoring
	// leading whitespace.
	Prefix bool
}

func (q Query) String() string {
	switch {
	case q.IsRegex:
		return "/" + q.Pattern + "/"
	case q.Prefix:
		return "^" + q.Pattern
	default:
		return q.Pattern
	}
}

type Matcher struct {
	query Query
	match func(string) bool
}

func Compile(q Query) (*Matcher, error) {
	match, err := buildMatcher(q)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", q.Pattern, err)
	}
	return &Matcher{query: q, match: match}, nil
}

func (m *Matcher) Query() Query { return m.query }

func (m *Matcher) Match(line string) bool { return m.match(line) }

// Set is an ordered list of matchers. Case-sensitive matchers come first,
// otherwise declaration order is kept.
type Set []*Matcher

func CompileSet(queries []Query) (Set, error) {
	set := make(Set, 0, len(queries))
	for _, q := range queries {
		m, err := Compile(q)
		if err != nil {
			return nil, err
		}
		set = append(set, m)
	}
	sort.SliceStable(set, func(i, j int) bool {
		return set[i].query.CaseSensitive && !set[j].query.CaseSensitive
	})
	return set, nil
}

// MustCompileSet is CompileSet for built-in marker lists.
func MustCompileSet(queries []Query) Set {
	set, err := CompileSet(queries)
	if err != nil {
		panic(err)
	}
	return set
}

// First returns the highest priority matcher that matches line.
func (s Set) First(line string) (*Matcher, bool) {
	for _, m := range s {
		if m.match(line) {
			return m, true
		}
	}
	return nil, false
}

// Result is a matched line.
type Result struct {
	Line    int // 1-based
	Offset  int // byte offset of the line start
	Content string
	Query   Query
}

// Scan returns every line of text matched by the set, in text order.
func (s Set) Scan(text string) []Result {
	var results []Result
	offset := 0
	for i, line := range strings.SplitAfter(text, "\n") {
		if line == "" {
			continue
		}
		content := strings.TrimRight(line, "\r\n")
		if m, ok := s.First(content); ok {
			results = append(results, Result{
				Line:    i + 1,
				Offset:  offset,
				Content: content,
				Query:   m.query,
			})
		}
		offset += len(line)
	}
	return results
}

// FirstIn returns the earliest matching line of text.
func (s Set) FirstIn(text string) (Result, bool) {
	offset := 0
	for i, line := range strings.SplitAfter(text, "\n") {
		content := strings.TrimRight(line, "\r\n")
		if m, ok := s.First(content); ok {
			return Result{Line: i + 1, Offset: offset, Content: content, Query: m.query}, true
		}
		offset += len(line)
	}
	return Result{}, false
}

func buildMatcher(query Query) (func(string) bool, error) {
	if query.IsRegex {
		flags := ""
		if !query.CaseSensitive {
			flags = "(?i)"
		}
		re, err := regexp.Compile(flags + query.Pattern)
		if err != nil {
			return nil, err
		}
		return func(line string) bool { return re.MatchString(line) }, nil
	}

	pattern := query.Pattern
	if !query.CaseSensitive {
		pattern = strings.ToLower(pattern)
	}
	return func(line string) bool {
		if !query.CaseSensitive {
			line = strings.ToLower(line)
		}
		if query.Prefix {
			return strings.HasPrefix(strings.TrimLeft(line, " \t"), pattern)
		}
		return strings.Contains(line, pattern)
	}, nil
}
