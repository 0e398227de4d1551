package logs

import (
	"strings"

	"github.com/altinukshini/gha-triage/internal/model"
)

// JobLog groups the step logs of one job found in `gh run view --log` output.
type JobLog struct {
	Job   string
	Steps []model.StepLog
}

// ParsePrefixed parses the output of `gh run view --log` or `--log-failed`,
// where each line reads "<job>\t<step>\t<timestamp> <text>". Jobs and steps
// are returned in order of first appearance; steps carry names but no
// numbers. Lines that do not follow the format continue the previous step.
func ParsePrefixed(raw string) []JobLog {
	var (
		jobs    []JobLog
		jobIdx  = map[string]int{}
		stepIdx = map[string]map[string]int{}
		bufs    [][]*strings.Builder
		cj, cs  = -1, -1
	)

	for _, line := range strings.SplitAfter(raw, "\n") {
		if line == "" {
			continue
		}
		job, step, rest, ok := splitPrefixed(line)
		if !ok {
			if cj >= 0 {
				bufs[cj][cs].WriteString(line)
			}
			continue
		}

		ji, seen := jobIdx[job]
		if !seen {
			ji = len(jobs)
			jobIdx[job] = ji
			stepIdx[job] = map[string]int{}
			jobs = append(jobs, JobLog{Job: job})
			bufs = append(bufs, nil)
		}
		si, seen := stepIdx[job][step]
		if !seen {
			si = len(jobs[ji].Steps)
			stepIdx[job][step] = si
			jobs[ji].Steps = append(jobs[ji].Steps, model.StepLog{Name: step})
			bufs[ji] = append(bufs[ji], &strings.Builder{})
		}
		cj, cs = ji, si

		if _, text, hasTS := SplitTimestamp(rest); hasTS {
			rest = text
			if !strings.HasSuffix(rest, "\n") && strings.HasSuffix(line, "\n") {
				rest += "\n"
			}
		}
		bufs[ji][si].WriteString(rest)
	}

	for ji := range jobs {
		for si := range jobs[ji].Steps {
			jobs[ji].Steps[si].Text = bufs[ji][si].String()
		}
	}
	return jobs
}

// Find returns the step logs recorded for the named job.
func Find(jobs []JobLog, name string) ([]model.StepLog, bool) {
	for _, j := range jobs {
		if j.Job == name {
			return j.Steps, true
		}
	}
	return nil, false
}

func splitPrefixed(line string) (job, step, rest string, ok bool) {
	job, after, found := strings.Cut(line, "\t")
	if !found {
		return "", "", "", false
	}
	step, rest, found = strings.Cut(after, "\t")
	if !found {
		return "", "", "", false
	}
	return job, step, rest, true
}
