package triage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/altinukshini/gha-triage/internal/dedup"
	"github.com/altinukshini/gha-triage/internal/locate"
	"github.com/altinukshini/gha-triage/internal/model"
)

// InconclusivePolicy says what to do when a duplicate check is inconclusive.
type InconclusivePolicy string

const (
	PolicyAsk    InconclusivePolicy = "ask"
	PolicyCreate InconclusivePolicy = "create"
	PolicySkip   InconclusivePolicy = "skip"
)

func ParsePolicy(s string) (InconclusivePolicy, error) {
	switch p := InconclusivePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyAsk, PolicyCreate, PolicySkip:
		return p, nil
	case "":
		return PolicyAsk, nil
	default:
		return "", fmt.Errorf("unknown inconclusive policy %q (want ask, create or skip)", s)
	}
}

// Confirmer asks whether an issue should be filed despite an inconclusive
// duplicate check. closest is the best matching existing issue, if any.
type Confirmer func(ctx context.Context, is model.Issue, v dedup.Verdict, closest *model.ExistingIssue) (bool, error)

// Action is what CreateIssueFromRun ended up doing.
type Action string

const (
	ActionCreated      Action = "created"
	ActionDryRun       Action = "dry-run"
	ActionDuplicate    Action = "skipped-duplicate"
	ActionInconclusive Action = "skipped-inconclusive"
	ActionNoFailures   Action = "no-failed-jobs"
	ActionNoEvidence   Action = "no-failure-evidence"
)

type Request struct {
	RunID int64
	Kind  locate.BuildKind

	// IssueLabels filters the existing issues compared against; the
	// composer's labels are used when empty.
	IssueLabels    []string
	DryRun         bool
	SkipDuplicates bool
	Policy         InconclusivePolicy
}

type Outcome struct {
	Run     model.WorkflowRun
	Results []Result
	Issue   model.Issue
	Verdict dedup.Verdict
	// Closest is the existing issue the verdict refers to, if any.
	Closest *model.ExistingIssue
	Created *model.ExistingIssue
	Action  Action
}

// Errors returns the per-job analysis errors.
func (o Outcome) Errors() []error {
	var errs []error
	for _, r := range o.Results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errs
}

type Service struct {
	Platform    Platform
	Analyzer    *Analyzer
	Detector    dedup.Detector
	Confirm     Confirmer
	Parallelism int
	Logger      *slog.Logger
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.Logger
}

// Analyze fetches a run with the logs of its failed jobs and analyses them.
func (s *Service) Analyze(ctx context.Context, runID int64, kind locate.BuildKind) (model.WorkflowRun, []Result, error) {
	run, err := s.Platform.FetchRun(ctx, runID)
	if err != nil {
		return model.WorkflowRun{}, nil, fmt.Errorf("fetch run %d: %w", runID, err)
	}
	log := s.logger().With("run_id", run.ID)
	log.Info("fetched run", "name", run.DisplayName(), "jobs", len(run.Jobs), "failed", len(run.FailedJobs()))

	run, err = LoadLogs(ctx, s.Platform, run, s.Parallelism, s.logger())
	if err != nil {
		return run, nil, fmt.Errorf("fetch logs of run %d: %w", runID, err)
	}
	return run, s.Analyzer.AnalyzeRun(ctx, run, kind), nil
}

// CreateIssueFromRun analyses a run and files one issue describing all of its
// failed jobs, unless the issue duplicates an open one.
func (s *Service) CreateIssueFromRun(ctx context.Context, req Request) (Outcome, error) {
	log := s.logger().With("run_id", req.RunID)

	run, results, err := s.Analyze(ctx, req.RunID, req.Kind)
	out := Outcome{Run: run, Results: results}
	if err != nil {
		return out, err
	}
	if len(results) == 0 {
		out.Action = ActionNoFailures
		log.Warn("run has no failed jobs")
		return out, nil
	}

	is, ok := s.Analyzer.Compose(run, results)
	if !ok {
		out.Action = ActionNoEvidence
		return out, errors.Join(out.Errors()...)
	}
	out.Issue = is

	if !req.SkipDuplicates {
		labels := req.IssueLabels
		if len(labels) == 0 {
			labels = s.Analyzer.Composer.Labels
		}
		existing, err := s.Platform.ListOpenIssues(ctx, labels)
		if err != nil {
			return out, fmt.Errorf("list open issues: %w", err)
		}
		out.Verdict = CheckDuplicate(is, existing, s.Detector)
		out.Closest = findIssue(existing, out.Verdict.Issue)
		log.Info("duplicate check", "verdict", out.Verdict.Kind.String(), "issue", out.Verdict.Issue,
			"score", out.Verdict.Score, "compared", out.Verdict.Compared)

		switch out.Verdict.Kind {
		case dedup.Duplicate:
			out.Action = ActionDuplicate
			return out, nil
		case dedup.Inconclusive:
			file, err := s.resolveInconclusive(ctx, req.Policy, out)
			if err != nil {
				return out, err
			}
			if !file {
				out.Action = ActionInconclusive
				return out, nil
			}
		}
	}

	if req.DryRun {
		out.Action = ActionDryRun
		return out, nil
	}

	if err := s.Platform.EnsureLabels(ctx, is.Labels); err != nil {
		return out, fmt.Errorf("ensure labels: %w", err)
	}
	created, err := s.Platform.CreateIssue(ctx, is)
	if err != nil {
		return out, fmt.Errorf("create issue: %w", err)
	}
	out.Created = &created
	out.Action = ActionCreated
	log.Info("created issue", "issue", created.Number, "url", created.HTMLURL)
	return out, nil
}

func (s *Service) resolveInconclusive(ctx context.Context, policy InconclusivePolicy, out Outcome) (bool, error) {
	switch policy {
	case PolicyCreate:
		return true, nil
	case PolicySkip:
		return false, nil
	}
	if s.Confirm == nil {
		s.logger().Warn("inconclusive duplicate check and nobody to ask, not filing", "closest", out.Verdict.Issue)
		return false, nil
	}
	ok, err := s.Confirm(ctx, out.Issue, out.Verdict, out.Closest)
	if err != nil {
		return false, fmt.Errorf("confirm inconclusive verdict: %w", err)
	}
	return ok, nil
}

func findIssue(existing []model.ExistingIssue, number int) *model.ExistingIssue {
	if number == 0 {
		return nil
	}
	for i := range existing {
		if existing[i].Number == number {
			is := existing[i]
			return &is
		}
	}
	return nil
}
