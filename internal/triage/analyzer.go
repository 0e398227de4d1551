package triage

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/altinukshini/gha-triage/internal/dedup"
	"github.com/altinukshini/gha-triage/internal/issue"
	"github.com/altinukshini/gha-triage/internal/locate"
	"github.com/altinukshini/gha-triage/internal/logs"
	"github.com/altinukshini/gha-triage/internal/model"
	"github.com/altinukshini/gha-triage/internal/summarize"
)

// DefaultParallelism bounds concurrent per-job work.
const DefaultParallelism = 4

// Result is the analysis of one failed job. Err is set, and the other
// fields besides Job are zero, when the job could not be analysed.
type Result struct {
	Job      model.Job
	Fragment model.Fragment
	Summary  summarize.Summary
	Issue    model.Issue
	Err      error
}

func (r Result) OK() bool { return r.Err == nil }

// Failure converts an analysed job for the composer.
func (r Result) Failure() issue.Failure {
	return issue.Failure{Job: r.Job, Fragment: r.Fragment, Summary: r.Summary}
}

type Analyzer struct {
	Locator    *locate.Locator
	Summarizer *summarize.Summarizer
	Composer   *issue.Composer
	// Parallelism caps how many jobs are analysed at once.
	Parallelism int
	Logger      *slog.Logger
}

// NewAnalyzer fills in defaults for the nil collaborators.
func NewAnalyzer(loc *locate.Locator, sum *summarize.Summarizer, comp *issue.Composer, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if loc == nil {
		loc = locate.New(locate.DefaultMaxDepth, nil, logger)
	}
	if sum == nil {
		sum = summarize.Default()
	}
	if comp == nil {
		comp = issue.NewComposer("")
	}
	return &Analyzer{
		Locator:     loc,
		Summarizer:  sum,
		Composer:    comp,
		Parallelism: DefaultParallelism,
		Logger:      logger,
	}
}

// AnalyzeRun analyses every failed job of run, whose logs must already be
// attached. Results follow the job order of run; a job that fails analysis
// carries its error in Result.Err and does not affect its siblings.
func (a *Analyzer) AnalyzeRun(ctx context.Context, run model.WorkflowRun, kind locate.BuildKind) []Result {
	failed := run.FailedJobs()
	results := make([]Result, len(failed))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.parallelism())
	for i, job := range failed {
		g.Go(func() error {
			results[i] = a.analyzeJob(ctx, run, job, kind)
			return nil
		})
	}
	g.Wait()
	return results
}

func (a *Analyzer) analyzeJob(ctx context.Context, run model.WorkflowRun, job model.Job, kind locate.BuildKind) Result {
	res := Result{Job: job}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}
	frag, err := a.Locator.Locate(job, kind)
	if err != nil {
		a.Logger.Warn("no failure evidence", "run_id", run.ID, "job_id", job.ID, "job", job.Name, "err", err)
		res.Err = err
		return res
	}
	res.Fragment = frag
	res.Summary = a.Summarizer.Summarize(frag)
	res.Issue = a.Composer.ComposeJob(run, job, frag, res.Summary)
	a.Logger.Debug("analysed job",
		"run_id", run.ID, "job_id", job.ID, "step", frag.Provenance.Step,
		"rank", frag.Provenance.Rank, "summary_lines", res.Summary.Len(), "fallback", res.Summary.Fallback)
	return res
}

func (a *Analyzer) parallelism() int {
	if a.Parallelism < 1 {
		return 1
	}
	return a.Parallelism
}

// Compose renders the analysed jobs of run into a single issue. ok is false
// when no job was analysed successfully.
func (a *Analyzer) Compose(run model.WorkflowRun, results []Result) (model.Issue, bool) {
	var failures []issue.Failure
	for _, r := range results {
		if r.OK() {
			failures = append(failures, r.Failure())
		}
	}
	if len(failures) == 0 {
		return model.Issue{}, false
	}
	return a.Composer.Compose(run, failures), true
}

// CheckDuplicate compares a composed issue against the existing ones.
func CheckDuplicate(is model.Issue, existing []model.ExistingIssue, d dedup.Detector) dedup.Verdict {
	return d.CheckIssue(is, existing)
}

// LoadLogs fetches and attaches the logs of run's failed jobs. Step logs are
// taken from p when it implements StepLogSource and has them; otherwise the
// job log is fetched and split by step. The first platform error aborts.
func LoadLogs(ctx context.Context, p Platform, run model.WorkflowRun, parallelism int, logger *slog.Logger) (model.WorkflowRun, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if parallelism < 1 {
		parallelism = 1
	}
	out := run
	out.Jobs = make([]model.Job, len(run.Jobs))
	copy(out.Jobs, run.Jobs)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i, job := range run.Jobs {
		if !job.Failed() {
			continue
		}
		g.Go(func() error {
			loaded, err := loadJob(ctx, p, job, logger)
			if err != nil {
				return fmt.Errorf("job %d (%s): %w", job.ID, job.Name, err)
			}
			out.Jobs[i] = loaded
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return run, err
	}
	return out, nil
}

func loadJob(ctx context.Context, p Platform, job model.Job, logger *slog.Logger) (model.Job, error) {
	if src, ok := p.(StepLogSource); ok {
		steps, err := src.StepLogs(ctx, job)
		if err == nil && len(steps) > 0 {
			return model.AssembleLog(job, steps), nil
		}
		if err != nil {
			logger.Debug("step logs unavailable, using job log", "job_id", job.ID, "err", err)
		}
	}
	raw, err := p.FetchJobLog(ctx, job)
	if err != nil {
		return job, err
	}
	return logs.ForJob(job, raw), nil
}
