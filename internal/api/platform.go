package api

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"

	"github.com/altinukshini/gha-triage/internal/cache"
	"github.com/altinukshini/gha-triage/internal/model"
)

// ErrNoStepLogs is returned by Platform.StepLogs when no run archive is
// available for the job.
var ErrNoStepLogs = errors.New("no step logs available")

// PlatformOptions configures a Platform.
type PlatformOptions struct {
	// Cache, when set, keeps job logs and run archives between invocations.
	Cache *cache.LogCache
	// Archives allows downloading the run log archive to get exact step logs.
	Archives bool
	// RequestsPerSecond paces API calls; zero disables pacing.
	RequestsPerSecond float64
	Burst             int
	Logger            *slog.Logger
}

// Platform adapts Client to the operations the triage pipeline needs.
type Platform struct {
	client   *Client
	cache    *cache.LogCache
	archives bool
	limiter  *rate.Limiter
	logger   *slog.Logger

	mu sync.Mutex // serializes archive downloads
}

func NewPlatform(client *Client, opts PlatformOptions) *Platform {
	p := &Platform{
		client:   client,
		cache:    opts.Cache,
		archives: opts.Archives,
		logger:   opts.Logger,
	}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return p
}

func (p *Platform) wait(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}

// FetchRun returns the run with every job of its latest attempt.
func (p *Platform) FetchRun(ctx context.Context, runID int64) (model.WorkflowRun, error) {
	if err := p.wait(ctx); err != nil {
		return model.WorkflowRun{}, err
	}
	run, err := p.client.GetRun(ctx, runID)
	if err != nil {
		return model.WorkflowRun{}, err
	}
	if err := p.wait(ctx); err != nil {
		return model.WorkflowRun{}, err
	}
	jobs, err := p.client.ListAllJobs(ctx, runID)
	if err != nil {
		return model.WorkflowRun{}, err
	}
	p.logger.Debug("fetched run", "run_id", runID, "jobs", len(jobs), "conclusion", run.Conclusion)

	if p.cache != nil {
		if err := p.cache.WriteMeta(cache.MetaFor(p.client.FullName(), *run)); err != nil {
			p.logger.Warn("write cache metadata", "run_id", runID, "err", err)
		}
	}
	return model.WorkflowRun{Run: *run, Repo: p.client.FullName(), Jobs: jobs}, nil
}

// FetchJobLog returns the raw log of job, from the cache when possible.
func (p *Platform) FetchJobLog(ctx context.Context, job model.Job) (string, error) {
	if p.cache != nil {
		if text, ok := p.cache.JobLog(job.RunID, job.RunAttempt, job.ID); ok {
			p.logger.Debug("job log cache hit", "job_id", job.ID)
			return text, nil
		}
	}
	if err := p.wait(ctx); err != nil {
		return "", err
	}
	text, err := p.client.JobLog(ctx, job.ID)
	if err != nil {
		return "", err
	}
	if p.cache != nil {
		if err := p.cache.StoreJobLog(job.RunID, job.RunAttempt, job.ID, text); err != nil {
			p.logger.Warn("cache job log", "job_id", job.ID, "err", err)
		}
	}
	return text, nil
}

// StepLogs returns exact per-step logs from the run log archive.
func (p *Platform) StepLogs(ctx context.Context, job model.Job) ([]model.StepLog, error) {
	if p.cache == nil {
		return nil, ErrNoStepLogs
	}
	if err := p.ensureArchive(ctx, job.RunID, job.RunAttempt); err != nil {
		return nil, err
	}
	return p.cache.StepLogs(job.RunID, job.RunAttempt, job)
}

func (p *Platform) ensureArchive(ctx context.Context, runID int64, attempt int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cache.HasRun(runID, attempt) {
		return nil
	}
	if !p.archives {
		return ErrNoStepLogs
	}
	if err := p.wait(ctx); err != nil {
		return err
	}
	rc, err := p.client.DownloadRunAttemptLogs(ctx, runID, attempt)
	if err != nil {
		return err
	}
	defer rc.Close()
	files, err := p.cache.StoreRunLogs(runID, attempt, rc)
	if err != nil {
		return err
	}
	p.logger.Debug("stored run log archive", "run_id", runID, "attempt", attempt, "files", len(files))
	return nil
}

// ListOpenIssues returns the open issues carrying all of labels.
func (p *Platform) ListOpenIssues(ctx context.Context, labels []string) ([]model.ExistingIssue, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	return p.client.ListIssues(ctx, IssuesFilter{State: "open", Labels: labels})
}

func (p *Platform) CreateIssue(ctx context.Context, issue model.Issue) (model.ExistingIssue, error) {
	if err := p.wait(ctx); err != nil {
		return model.ExistingIssue{}, err
	}
	created, err := p.client.CreateIssue(ctx, issue)
	if err != nil {
		return model.ExistingIssue{}, err
	}
	return *created, nil
}

func (p *Platform) EnsureLabels(ctx context.Context, labels []string) error {
	if err := p.wait(ctx); err != nil {
		return err
	}
	created, err := p.client.EnsureLabels(ctx, labels)
	for _, name := range created {
		p.logger.Info("created label", "label", name, "color", DefaultLabelColor)
	}
	return err
}

// LatestRuns lists recent runs, newest first.
func (p *Platform) LatestRuns(ctx context.Context, filter RunsFilter) ([]model.Run, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	resp, err := p.client.ListRuns(ctx, filter)
	if err != nil {
		return nil, err
	}
	return resp.Runs, nil
}
