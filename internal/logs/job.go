package logs

import (
	"strings"

	"github.com/altinukshini/gha-triage/internal/model"
)

// ForJob attaches raw to job, split into step logs. raw is either the job log
// served by the REST API or `gh run view --log` output covering the run.
func ForJob(job model.Job, raw string) model.Job {
	if IsPrefixed(raw) {
		if steps, ok := Find(ParsePrefixed(raw), job.Name); ok {
			return model.AssembleLog(job, steps)
		}
	}
	return model.AssembleLog(job, SliceByTimestamps(raw, job.Steps))
}

// IsPrefixed reports whether the first non-empty line of raw is in the
// "<job>\t<step>\t<timestamp> <text>" form.
func IsPrefixed(raw string) bool {
	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		_, _, rest, ok := splitPrefixed(line)
		if !ok {
			return false
		}
		_, _, ok = SplitTimestamp(rest)
		return ok
	}
	return false
}
