package locate

import (
	"io"
	"log/slog"
	"strings"

	"github.com/altinukshini/gha-triage/internal/model"
)

// DefaultMaxDepth bounds how many nested logs are followed.
const DefaultMaxDepth = 5

type Locator struct {
	maxDepth int
	resolver Resolver
	logger   *slog.Logger
}

// New returns a Locator. resolver supplies nested logs beyond those printed
// into the job log itself and may be nil.
func New(maxDepth int, resolver Resolver, logger *slog.Logger) *Locator {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Locator{maxDepth: maxDepth, resolver: resolver, logger: logger}
}

// Locate returns the most specific fragment of job's log that explains its
// failure. It fails with a *NoFailureEvidenceError when no step failed or
// the failed step logged nothing. An unrecognized kind degrades to the
// generic step-scoped fragment.
func (l *Locator) Locate(job model.Job, kind BuildKind) (model.Fragment, error) {
	step, ok := job.FirstFailedStep()
	if !ok {
		return model.Fragment{}, &NoFailureEvidenceError{JobID: job.ID, JobName: job.Name, Reason: "no failed step"}
	}

	start, end := job.StepBounds(step)
	top := model.NewFragment(job.Log, start, end, model.Provenance{
		JobID:   job.ID,
		JobName: job.Name,
		Step:    step.Name,
	})
	if strings.TrimSpace(top.Text) == "" {
		return model.Fragment{}, &NoFailureEvidenceError{
			JobID:   job.ID,
			JobName: job.Name,
			Reason:  "failed step " + step.Name + " has an empty log",
		}
	}

	if !kind.Known() {
		l.logger.Warn("falling back to generic heuristic",
			"job_id", job.ID, "kind", string(kind), "error", ErrUnrecognizedBuildKind)
	}
	h := heuristicFor(kind, l.logger)

	resolver := Chain{EmbeddedBlocks(job.Log), l.resolver}
	frag := h.Refine(top, resolver, l.maxDepth)
	l.logger.Debug("located failure fragment",
		"job_id", job.ID, "step", step.Name, "kind", string(h.Kind()),
		"rank", frag.Provenance.Rank, "source", frag.Provenance.Source())
	return frag, nil
}

// LocateText applies kind's heuristic to a standalone log, such as a
// downloaded BitBake console log, using only the locator's resolver.
func (l *Locator) LocateText(text string, kind BuildKind) model.Fragment {
	top := model.WholeFragment(text, model.Provenance{})
	resolver := Chain{EmbeddedBlocks(text), l.resolver}
	return heuristicFor(kind, l.logger).Refine(top, resolver, l.maxDepth)
}
