// Package logs turns raw job log text into per-step logs.
package logs

import (
	"strings"
	"time"

	"github.com/altinukshini/gha-triage/internal/model"
)

const bom = "\ufeff"

// SplitTimestamp splits a job log line of the form
// "2024-02-10T00:03:45.5797561Z text" into its time and text. ok is false
// when the line carries no timestamp.
func SplitTimestamp(line string) (ts time.Time, text string, ok bool) {
	line = strings.TrimPrefix(line, bom)
	head, rest, found := strings.Cut(line, " ")
	if !found {
		head, rest = line, ""
	}
	if len(head) < len("2006-01-02T15:04:05Z") || head[4] != '-' || head[10] != 'T' {
		return time.Time{}, line, false
	}
	ts, err := time.Parse(time.RFC3339Nano, head)
	if err != nil {
		return time.Time{}, line, false
	}
	return ts, rest, true
}

// SliceByTimestamps assigns every line of a raw job log to the last step that
// had started by the time the line was written, at the one second precision
// the jobs API reports. Lines without a timestamp stay with the previous
// line's step. Timestamp prefixes are removed from the returned text.
func SliceByTimestamps(raw string, steps []model.Step) []model.StepLog {
	out := make([]model.StepLog, len(steps))
	for i, s := range steps {
		out[i] = model.StepLog{Number: s.Number, Name: s.Name}
	}
	if len(steps) == 0 || raw == "" {
		return out
	}

	builders := make([]strings.Builder, len(steps))
	current := firstStarted(steps)
	for _, line := range strings.SplitAfter(raw, "\n") {
		if line == "" {
			continue
		}
		ts, text, ok := SplitTimestamp(line)
		if ok {
			if idx := stepAt(steps, ts); idx >= 0 {
				current = idx
			}
			if !strings.HasSuffix(text, "\n") && strings.HasSuffix(line, "\n") {
				text += "\n"
			}
		}
		builders[current].WriteString(text)
	}
	for i := range out {
		out[i].Text = builders[i].String()
	}
	return out
}

func firstStarted(steps []model.Step) int {
	for i, s := range steps {
		if !s.StartedAt.IsZero() {
			return i
		}
	}
	return 0
}

// stepAt returns the last step whose start is at or before ts, or -1.
func stepAt(steps []model.Step, ts time.Time) int {
	ts = ts.Truncate(time.Second)
	idx := -1
	for i, s := range steps {
		if s.StartedAt.IsZero() {
			continue
		}
		if !s.StartedAt.Truncate(time.Second).After(ts) {
			idx = i
		}
	}
	return idx
}
