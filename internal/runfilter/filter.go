// Package runfilter picks workflow runs out of a run listing.
package runfilter

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/altinukshini/gha-triage/internal/model"
)

type Filter struct {
	WorkflowName string
	Branch       string
	Event        string
	// FailedOnly keeps completed runs that concluded with failure or timed out.
	FailedOnly bool
	// Since drops runs created before it.
	Since time.Time
}

func FilterRuns(runs []model.Run, filter Filter) []model.Run {
	var matched []model.Run
	for _, r := range runs {
		if filter.WorkflowName != "" && !strings.EqualFold(r.Name, filter.WorkflowName) {
			continue
		}
		if filter.Branch != "" && r.HeadBranch != filter.Branch {
			continue
		}
		if filter.Event != "" && r.Event != filter.Event {
			continue
		}
		if filter.FailedOnly && (r.Status != model.RunStatusCompleted || !r.Conclusion.Failing()) {
			continue
		}
		if !filter.Since.IsZero() && r.CreatedAt.Before(filter.Since) {
			continue
		}
		matched = append(matched, r)
	}
	return matched
}

// LatestFailed returns the most recently created failed run that matches
// filter. Runs created at the same instant are ordered by ID.
func LatestFailed(runs []model.Run, filter Filter) (model.Run, error) {
	filter.FailedOnly = true
	matched := FilterRuns(runs, filter)
	if len(matched) == 0 {
		return model.Run{}, fmt.Errorf("no failed run matches %s", filter)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	return matched[0], nil
}

func (f Filter) String() string {
	var parts []string
	if f.WorkflowName != "" {
		parts = append(parts, "workflow="+f.WorkflowName)
	}
	if f.Branch != "" {
		parts = append(parts, "branch="+f.Branch)
	}
	if f.Event != "" {
		parts = append(parts, "event="+f.Event)
	}
	if !f.Since.IsZero() {
		parts = append(parts, "since="+f.Since.Format(time.RFC3339))
	}
	if len(parts) == 0 {
		return "any workflow"
	}
	return strings.Join(parts, " ")
}
