package model

import "time"

type RunStatus string

const (
	RunStatusQueued     RunStatus = "queued"
	RunStatusInProgress RunStatus = "in_progress"
	RunStatusCompleted  RunStatus = "completed"
)

type RunConclusion string

const (
	ConclusionSuccess   RunConclusion = "success"
	ConclusionFailure   RunConclusion = "failure"
	ConclusionCancelled RunConclusion = "cancelled"
	ConclusionSkipped   RunConclusion = "skipped"
	ConclusionTimedOut  RunConclusion = "timed_out"
	ConclusionNeutral   RunConclusion = "neutral"
)

// Failing reports whether the conclusion marks a failed execution.
// A timed out job is treated as failed.
func (c RunConclusion) Failing() bool {
	return c == ConclusionFailure || c == ConclusionTimedOut
}

type Run struct {
	ID           int64         `json:"id"`
	Name         string        `json:"name"`
	DisplayTitle string        `json:"display_title"`
	Status       RunStatus     `json:"status"`
	Conclusion   RunConclusion `json:"conclusion"`
	WorkflowID   int64         `json:"workflow_id"`
	RunNumber    int           `json:"run_number"`
	RunAttempt   int           `json:"run_attempt"`
	Event        string        `json:"event"`
	HeadBranch   string        `json:"head_branch"`
	HeadSHA      string        `json:"head_sha"`
	CreatedAt    time.Time     `json:"created_at"`
	HTMLURL      string        `json:"html_url"`
	Repository   Repository    `json:"repository"`
}

type Repository struct {
	FullName string `json:"full_name"`
	HTMLURL  string `json:"html_url"`
}

type RunsResponse struct {
	TotalCount int   `json:"total_count"`
	Runs       []Run `json:"workflow_runs"`
}

func (r Run) ShortSHA() string {
	if len(r.HeadSHA) >= 7 {
		return r.HeadSHA[:7]
	}
	return r.HeadSHA
}

// WorkflowRun is a run together with its jobs, as handed to the analysis
// pipeline. Repo is the owner/name of the repository the run belongs to.
type WorkflowRun struct {
	Run
	Repo string `json:"repo,omitempty"`
	Jobs []Job  `json:"jobs,omitempty"`
}

// DisplayName prefers the run title shown in the Actions UI.
func (w WorkflowRun) DisplayName() string {
	if w.DisplayTitle != "" {
		return w.DisplayTitle
	}
	return w.Name
}

// FailedJobs returns the failed jobs in their original order.
func (w WorkflowRun) FailedJobs() []Job {
	var out []Job
	for _, j := range w.Jobs {
		if j.Failed() {
			out = append(out, j)
		}
	}
	return out
}
