package model

import "strings"

// StepLog is the raw log text produced by a single step.
type StepLog struct {
	Number int
	Name   string
	Text   string
}

// AssembleLog returns a copy of job whose Log is the concatenation of logs,
// in step order, with every step's LogStart/LogEnd pointing at its own text.
// Logs are matched to steps by number, falling back to the step name. Steps
// without a log get an empty range at the position they would occupy.
func AssembleLog(job Job, logs []StepLog) Job {
	byNumber := make(map[int]int, len(logs))
	byName := make(map[string]int, len(logs))
	for i, l := range logs {
		if l.Number > 0 {
			if _, dup := byNumber[l.Number]; !dup {
				byNumber[l.Number] = i
			}
		}
		if l.Name != "" {
			if _, dup := byName[l.Name]; !dup {
				byName[l.Name] = i
			}
		}
	}

	used := make([]bool, len(logs))
	steps := make([]Step, len(job.Steps))
	var b strings.Builder
	for i, s := range job.Steps {
		idx, ok := byNumber[s.Number]
		if !ok || used[idx] {
			idx, ok = byName[s.Name]
		}
		s.LogStart = b.Len()
		if ok && !used[idx] {
			used[idx] = true
			b.WriteString(logs[idx].Text)
		}
		s.LogEnd = b.Len()
		steps[i] = s
	}

	out := job
	out.Steps = steps
	out.Log = b.String()
	return out
}
