// Package triage runs failed workflow runs through location, summarization,
// composition and duplicate detection, and files the resulting issue.
package triage

import (
	"context"

	"github.com/altinukshini/gha-triage/internal/model"
)

// Platform is the hosting platform as seen by the pipeline. Implementations
// report failures as-is; the pipeline never retries them.
type Platform interface {
	FetchRun(ctx context.Context, runID int64) (model.WorkflowRun, error)
	FetchJobLog(ctx context.Context, job model.Job) (string, error)
	// ListOpenIssues returns open issues carrying all of labels.
	ListOpenIssues(ctx context.Context, labels []string) ([]model.ExistingIssue, error)
	CreateIssue(ctx context.Context, issue model.Issue) (model.ExistingIssue, error)
	// EnsureLabels creates whichever of labels does not exist yet.
	EnsureLabels(ctx context.Context, labels []string) error
}

// StepLogSource is implemented by platforms that can serve each step's log
// separately, which is more precise than slicing the job log by timestamp.
type StepLogSource interface {
	StepLogs(ctx context.Context, job model.Job) ([]model.StepLog, error)
}
